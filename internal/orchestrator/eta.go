package orchestrator

import "time"

const (
	etaWindow     = 20
	defaultMargin = 1.1
)

// EstimateETA 最近至多 20 个耗时的线性加权平均（越新权重越大）× 剩余数量 × 安全系数
func EstimateETA(durations []time.Duration, remaining int, margin float64) time.Duration {
	if remaining <= 0 || len(durations) == 0 {
		return 0
	}
	recent := durations
	if len(recent) > etaWindow {
		recent = recent[len(recent)-etaWindow:]
	}
	var sum, wsum float64
	for i, d := range recent {
		w := float64(i + 1)
		sum += w * float64(d)
		wsum += w
	}
	return time.Duration(sum / wsum * float64(remaining) * margin)
}
