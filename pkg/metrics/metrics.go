package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	BotsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridflow",
		Name:      "bots_processed_total",
		Help:      "Bot configurations replayed, by outcome.",
	}, []string{"outcome"})

	BotDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "gridflow",
		Name:      "bot_replay_seconds",
		Help:      "Wall time of a single bot configuration replay.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
	})

	BatchesDiscarded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gridflow",
		Name:      "batches_discarded_total",
		Help:      "Batches whose results were dropped after a pause or cancel.",
	})

	RunsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gridflow",
		Name:      "runs_active",
		Help:      "Backtest runs currently executing.",
	})

	RunsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gridflow",
		Name:      "runs_finished_total",
		Help:      "Backtest runs that left the running state, by status.",
	}, []string{"status"})
)

var once sync.Once

// InitMetrics 注册全部指标，重复调用无副作用
func InitMetrics() {
	once.Do(func() {
		prometheus.MustRegister(BotsProcessed, BotDuration, BatchesDiscarded, RunsActive, RunsFinished)
	})
}
