package backtest

import "gridflow/internal/model"

type RunIDReq struct {
	ID string `uri:"id" json:"id" validate:"required,max=64"`
}

type ResultReq struct {
	ID    string `uri:"id" json:"id" validate:"required,max=64"`
	Index int    `uri:"index" json:"index" validate:"gte=0"`
}

type SnapshotQuery struct {
	Offset int `form:"offset" json:"offset" validate:"gte=0"`
	Limit  int `form:"limit" json:"limit" validate:"gte=0,lte=1000"`
}

type ListRunsQuery struct {
	Status string `form:"status" json:"status" validate:"omitempty,oneof=pending running paused completed failed cancelled"`
	Limit  int    `form:"limit" json:"limit" validate:"gte=0,lte=500"`
}

type ImportTicksReq struct {
	Observations []model.PriceObservation `json:"observations" validate:"required,min=1"`
}

type ImportSentimentReq struct {
	Points []model.SentimentObservation `json:"points" validate:"required,min=1,dive"`
}

type CreateRunResp struct {
	RunID        string          `json:"run_id"`
	Status       model.RunStatus `json:"status"`
	TotalConfigs int             `json:"total_configs"`
}

type ControlResp struct {
	RunID  string          `json:"run_id"`
	Status model.RunStatus `json:"status"`
	Queued bool            `json:"queued,omitempty"` // true 表示已投递到任务队列
}

// StatusResp 运行状态与进度，eta 单位为秒
type StatusResp struct {
	RunID         string          `json:"run_id"`
	Status        model.RunStatus `json:"status"`
	TotalBots     int             `json:"total_bots"`
	BotsCompleted int             `json:"bots_completed"`
	BotsFailed    int             `json:"bots_failed"`
	Progress      float64         `json:"progress"`
	EtaSeconds    float64         `json:"eta_seconds"`
}
