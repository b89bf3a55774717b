package orchestrator

import (
	"context"
	"fmt"
	"slices"
	"time"

	"gridflow/internal/model"
	"gridflow/internal/strategy"
)

// SentimentLoader 按 symbol 与时间范围加载舆情得分，结果按时间排序
type SentimentLoader interface {
	Sentiment(ctx context.Context, symbols []string, channel model.SentimentChannel, from, to time.Time) ([]model.SentimentObservation, error)
}

// withSentiment 运行开启了社交或新闻开关时，加载对应舆情注入策略
func (o *Orchestrator) withSentiment(ctx context.Context, spec model.RunSpec, f strategy.Factory) (strategy.Factory, error) {
	sa, ok := f.(strategy.SentimentAware)
	if !ok || o.sentiment == nil {
		return f, nil
	}
	var social, news strategy.SentimentSource
	if slices.Contains(spec.SocialFlags, true) {
		src, err := o.loadSentiment(ctx, spec, model.SentimentSocial)
		if err != nil {
			return nil, err
		}
		social = src
	}
	if slices.Contains(spec.NewsFlags, true) {
		src, err := o.loadSentiment(ctx, spec, model.SentimentNews)
		if err != nil {
			return nil, err
		}
		news = src
	}
	if social == nil && news == nil {
		return f, nil
	}
	return sa.WithSentiment(social, news), nil
}

func (o *Orchestrator) loadSentiment(ctx context.Context, spec model.RunSpec, ch model.SentimentChannel) (*strategy.StaticSentiment, error) {
	pts, err := o.sentiment.Sentiment(ctx, spec.StockUniverse, ch, spec.HistoryStart, spec.ExecutionEnd)
	if err != nil {
		return nil, fmt.Errorf("load %s sentiment: %w", ch, err)
	}
	bySymbol := make(map[string][]strategy.SentimentPoint)
	for _, p := range pts {
		bySymbol[p.Symbol] = append(bySymbol[p.Symbol], strategy.SentimentPoint{At: p.Timestamp, Score: p.Score})
	}
	src := strategy.NewStaticSentiment(o.opts.SentimentMaxAge)
	for sym, list := range bySymbol {
		src.Add(sym, list...)
	}
	return src, nil
}
