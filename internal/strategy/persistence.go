package strategy

import "gridflow/internal/model"

// persistenceTracker 按 symbol 记录最近的方向判断，用于过滤一闪而过的信号
type persistenceTracker struct {
	rule    model.PersistenceRule
	history map[string][]model.Direction
}

func newPersistenceTracker(rule model.PersistenceRule) *persistenceTracker {
	return &persistenceTracker{rule: rule, history: make(map[string][]model.Direction)}
}

// observe 记录本次方向并返回是否满足持续性要求
func (p *persistenceTracker) observe(symbol string, dir model.Direction) bool {
	if !p.rule.Enabled() {
		return dir != model.Neutral
	}
	n := p.rule.Value
	h := append(p.history[symbol], dir)
	if len(h) > n {
		h = h[len(h)-n:]
	}
	p.history[symbol] = h
	if dir == model.Neutral {
		return false
	}
	switch p.rule.Type {
	case model.PersistenceConsecutive:
		if len(h) < n {
			return false
		}
		for _, d := range h {
			if d != dir {
				return false
			}
		}
		return true
	case model.PersistenceWindow:
		same := 0
		for _, d := range h {
			if d == dir {
				same++
			}
		}
		return same*2 > n
	}
	return true
}
