package orchestrator

import (
	"errors"
	"time"

	"gridflow/internal/model"
)

var ErrNoExecutionData = errors.New("orchestrator: no observations inside the execution window")

// Split 按执行起点切分：之前为历史数据，[start, end] 为执行数据，end 之后丢弃
func Split(obs []model.PriceObservation, start, end time.Time) (history, execution []model.PriceObservation) {
	for _, o := range obs {
		switch {
		case o.Timestamp.Before(start):
			history = append(history, o)
		case !o.Timestamp.After(end):
			execution = append(execution, o)
		}
	}
	return history, execution
}
