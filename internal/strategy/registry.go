package strategy

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// 策略注册表，按名字查找 Factory
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

var ErrNotFound = errors.New("strategy not found")

func Register(f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[f.Name()] = f
}

func Get(name string) (Factory, error) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, nil
}

// Names 已注册的策略名，按字母序
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// runScoped 可以接收运行级阈值的 Factory
type runScoped interface {
	WithRunThresholds(th map[string]map[string]float64) Factory
}

// ForRun 按名字取 Factory 并注入运行级阈值，名字为空时使用默认策略
func ForRun(name string, thresholds map[string]map[string]float64) (Factory, error) {
	if name == "" {
		name = DefaultName
	}
	f, err := Get(name)
	if err != nil {
		return nil, err
	}
	if rs, ok := f.(runScoped); ok {
		return rs.WithRunThresholds(thresholds), nil
	}
	return f, nil
}
