package executor

import (
	"time"

	"gridflow/internal/model"
)

// candleBuilder 把逐笔行情增量聚合成固定周期的 OHLCV K线，最后一根可能未收盘
type candleBuilder struct {
	period time.Duration
	klines []model.Kline
}

func newCandleBuilder(period time.Duration) *candleBuilder {
	if period <= 0 {
		period = 24 * time.Hour
	}
	return &candleBuilder{period: period}
}

func (b *candleBuilder) add(o model.PriceObservation) {
	start := o.Timestamp.UTC().Truncate(b.period)
	n := len(b.klines)
	if n > 0 && b.klines[n-1].Timestamp.Equal(start) {
		k := &b.klines[n-1]
		k.Close = o.Price
		k.High = max(k.High, o.Price)
		k.Low = min(k.Low, o.Price)
		k.Vol += o.Volume
		return
	}
	b.klines = append(b.klines, model.Kline{
		Timestamp: start,
		Open:      o.Price,
		Close:     o.Price,
		High:      o.Price,
		Low:       o.Price,
		Vol:       o.Volume,
	})
}

// view 返回拷贝，最后一根仍在更新，回调拿到的历史不能随之变化
func (b *candleBuilder) view() []model.Kline {
	if len(b.klines) == 0 {
		return nil
	}
	out := make([]model.Kline, len(b.klines))
	copy(out, b.klines)
	return out
}

// Aggregate 一次性把观测序列聚合成K线，观测需已按时间排序
func Aggregate(obs []model.PriceObservation, period time.Duration) []model.Kline {
	b := newCandleBuilder(period)
	for _, o := range obs {
		b.add(o)
	}
	return b.klines
}
