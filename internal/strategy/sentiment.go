package strategy

import (
	"sort"
	"sync"
	"time"
)

// SentimentSource 舆情得分来源，得分在 [-1,1]，没有数据时 ok 为 false
type SentimentSource interface {
	Score(symbol string, at time.Time) (float64, bool)
}

// SentimentAware 可以按运行注入舆情来源的 Factory
type SentimentAware interface {
	WithSentiment(social, news SentimentSource) Factory
}

// SentimentPoint 某一时刻的舆情得分
type SentimentPoint struct {
	At    time.Time
	Score float64
}

// StaticSentiment 预先加载的舆情时间序列，查询时取不晚于 at 的最近一条
type StaticSentiment struct {
	mu     sync.RWMutex
	points map[string][]SentimentPoint
	maxAge time.Duration
}

// NewStaticSentiment maxAge 为 0 表示不限制数据新鲜度
func NewStaticSentiment(maxAge time.Duration) *StaticSentiment {
	return &StaticSentiment{points: make(map[string][]SentimentPoint), maxAge: maxAge}
}

func (s *StaticSentiment) Add(symbol string, pts ...SentimentPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.points[symbol], pts...)
	sort.SliceStable(list, func(i, j int) bool { return list[i].At.Before(list[j].At) })
	s.points[symbol] = list
}

func (s *StaticSentiment) Score(symbol string, at time.Time) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.points[symbol]
	i := sort.Search(len(list), func(i int) bool { return list[i].At.After(at) })
	if i == 0 {
		return 0, false
	}
	p := list[i-1]
	if s.maxAge > 0 && at.Sub(p.At) > s.maxAge {
		return 0, false
	}
	return p.Score, true
}
