package backtest

import (
	"context"

	"gridflow/internal/model"
	"gridflow/internal/service"
	"gridflow/pkg/errors"
	"gridflow/pkg/errors/ecode"
	"gridflow/pkg/response"
	"gridflow/pkg/validator"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.BacktestService
}

func NewHandler(svc *service.BacktestService) *Handler {
	return &Handler{svc: svc}
}

func bindErr(err error) error {
	return errors.WithCode(ecode.ValidateErr, validator.FirstError(err))
}

// RunCreate 创建运行，只保存不启动
func (h *Handler) RunCreate() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var spec model.RunSpec
		if err := ctx.ShouldBindJSON(&spec); err != nil {
			response.JSON(ctx, bindErr(err), nil)
			return
		}
		run, total, err := h.svc.CreateRun(ctx, spec)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, CreateRunResp{RunID: run.ID, Status: run.Status, TotalConfigs: total})
	}
}

func (h *Handler) RunList() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req ListRunsQuery
		if err := ctx.ShouldBindQuery(&req); err != nil {
			response.JSON(ctx, bindErr(err), nil)
			return
		}
		runs, err := h.svc.ListRuns(ctx, model.RunStatus(req.Status), req.Limit)
		response.JSON(ctx, err, runs)
	}
}

func (h *Handler) RunStart() gin.HandlerFunc {
	return h.launch(h.svc.Start)
}

func (h *Handler) RunResume() gin.HandlerFunc {
	return h.launch(h.svc.Resume)
}

func (h *Handler) RunPause() gin.HandlerFunc {
	return h.control(h.svc.Pause)
}

func (h *Handler) RunCancel() gin.HandlerFunc {
	return h.control(h.svc.Cancel)
}

func (h *Handler) launch(fn func(ctx context.Context, runID string) (bool, error)) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req RunIDReq
		if err := ctx.ShouldBindUri(&req); err != nil {
			response.JSON(ctx, bindErr(err), nil)
			return
		}
		queued, err := fn(ctx, req.ID)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, ControlResp{RunID: req.ID, Status: model.RunRunning, Queued: queued})
	}
}

func (h *Handler) control(fn func(ctx context.Context, runID string) error) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req RunIDReq
		if err := ctx.ShouldBindUri(&req); err != nil {
			response.JSON(ctx, bindErr(err), nil)
			return
		}
		if err := fn(ctx, req.ID); err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		status, _ := h.svc.Progress(ctx, req.ID)
		resp := ControlResp{RunID: req.ID}
		if status != nil {
			resp.Status = status.Status
		}
		response.JSON(ctx, nil, resp)
	}
}

// RunStatus 状态、进度与 ETA
func (h *Handler) RunStatus() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req RunIDReq
		if err := ctx.ShouldBindUri(&req); err != nil {
			response.JSON(ctx, bindErr(err), nil)
			return
		}
		p, err := h.svc.Progress(ctx, req.ID)
		if err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, StatusResp{
			RunID:         req.ID,
			Status:        p.Status,
			TotalBots:     p.TotalBots,
			BotsCompleted: p.BotsCompleted,
			BotsFailed:    p.BotsFailed,
			Progress:      p.Progress,
			EtaSeconds:    p.ETA.Seconds(),
		})
	}
}

func (h *Handler) RunDetail() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req RunIDReq
		if err := ctx.ShouldBindUri(&req); err != nil {
			response.JSON(ctx, bindErr(err), nil)
			return
		}
		run, err := h.svc.GetRun(ctx, req.ID)
		response.JSON(ctx, err, run)
	}
}

func (h *Handler) RunDelete() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req RunIDReq
		if err := ctx.ShouldBindUri(&req); err != nil {
			response.JSON(ctx, bindErr(err), nil)
			return
		}
		response.JSON(ctx, h.svc.DeleteRun(ctx, req.ID), nil)
	}
}

func (h *Handler) TopPerformers() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req RunIDReq
		if err := ctx.ShouldBindUri(&req); err != nil {
			response.JSON(ctx, bindErr(err), nil)
			return
		}
		top, err := h.svc.Top(ctx, req.ID)
		response.JSON(ctx, err, top)
	}
}

func (h *Handler) RunErrors() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req RunIDReq
		if err := ctx.ShouldBindUri(&req); err != nil {
			response.JSON(ctx, bindErr(err), nil)
			return
		}
		list, err := h.svc.Errors(ctx, req.ID)
		response.JSON(ctx, err, list)
	}
}

func (h *Handler) ResultDetail() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req ResultReq
		if err := ctx.ShouldBindUri(&req); err != nil {
			response.JSON(ctx, bindErr(err), nil)
			return
		}
		res, err := h.svc.Result(ctx, req.ID, req.Index)
		response.JSON(ctx, err, res)
	}
}

func (h *Handler) ResultSnapshots() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req ResultReq
		if err := ctx.ShouldBindUri(&req); err != nil {
			response.JSON(ctx, bindErr(err), nil)
			return
		}
		var q SnapshotQuery
		if err := ctx.ShouldBindQuery(&q); err != nil {
			response.JSON(ctx, bindErr(err), nil)
			return
		}
		snaps, err := h.svc.Snapshots(ctx, req.ID, req.Index, q.Offset, q.Limit)
		response.JSON(ctx, err, snaps)
	}
}

// TicksImport 批量导入行情观测
func (h *Handler) TicksImport() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req ImportTicksReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, bindErr(err), nil)
			return
		}
		if err := h.svc.ImportTicks(ctx, req.Observations); err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, gin.H{"imported": len(req.Observations)})
	}
}

// SentimentImport 批量导入舆情得分
func (h *Handler) SentimentImport() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req ImportSentimentReq
		if err := ctx.ShouldBindJSON(&req); err != nil {
			response.JSON(ctx, bindErr(err), nil)
			return
		}
		if err := h.svc.ImportSentiment(ctx, req.Points); err != nil {
			response.JSON(ctx, err, nil)
			return
		}
		response.JSON(ctx, nil, gin.H{"imported": len(req.Points)})
	}
}
