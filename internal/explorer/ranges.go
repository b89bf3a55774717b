package explorer

import (
	"reflect"
	"sort"

	"gridflow/internal/model"
	"gridflow/internal/signal"

	"github.com/spf13/cast"
)

// 缺省取值：对应字段为空或格式不对时只取这一个值
var (
	DefaultSignalWeights = model.SignalWeights{Indicator: 1.0, Pattern: 0.5, ML: 0.5, Social: 0.2, News: 0.2}
	DefaultMLWeights     = map[string]float64{"momentum": 1.0}
	DefaultRiskThreshold = 0.5
	DefaultAggregation   = model.AggWeightedAverage
	DefaultHoldingPeriod = 0
	DefaultStopLoss      = 0.05
	DefaultTakeProfit    = 0.10
	DefaultRiskFactor    = 1.0
)

// 形态分组组合方式
const (
	PatternPowerSet      = "power_set"
	PatternSinglesAndAll = "singles_and_all"
)

// WeightAxes 各信号族的候选权重，Generate 时族之间做笛卡尔积
type WeightAxes struct {
	Indicator []float64
	Pattern   []float64
	ML        []float64
	Social    []float64
	News      []float64
}

func (w WeightAxes) sizes() []int {
	return []int{len(w.Indicator), len(w.Pattern), len(w.ML), len(w.Social), len(w.News)}
}

func (w WeightAxes) at(idx []int) model.SignalWeights {
	return model.SignalWeights{
		Indicator: w.Indicator[idx[0]],
		Pattern:   w.Pattern[idx[1]],
		ML:        w.ML[idx[2]],
		Social:    w.Social[idx[3]],
		News:      w.News[idx[4]],
	}
}

// MLAxis 一个模型的候选权重
type MLAxis struct {
	Name   string
	Values []float64
}

// Ranges 解析后的参数网格，每个字段都至少有一个取值
type Ranges struct {
	SignalWeights   WeightAxes
	MLWeights       []MLAxis // 按模型名排序
	RiskThresholds  []float64
	Aggregations    []string
	HoldingPeriods  []int
	StopLosses      []float64
	TakeProfits     []float64
	RiskFactors     []float64
	Persistence     []model.PersistenceRule
	IndicatorGroups []string
	// AllIndicators indicator_groups 缺省时为 true，只生成一个包含全部指标分组的组合
	AllIndicators bool
	PatternGroups []string
	PatternMode   string
	Thresholds    map[string]map[string]float64
}

// ParseRanges 从宽松类型的 map（通常来自 JSON/YAML）解析网格。
// 任何字段缺失、为空或无法解析时回落到单一默认值，不返回错误
func ParseRanges(raw map[string]any) Ranges {
	r := Ranges{
		SignalWeights:   parseSignalWeights(raw["signal_weights"]),
		MLWeights:       parseMLWeights(raw["ml_weights"]),
		RiskThresholds:  floats(raw["risk_thresholds"], DefaultRiskThreshold),
		Aggregations:    aggregations(raw["aggregation_methods"]),
		HoldingPeriods:  ints(raw["holding_periods"], DefaultHoldingPeriod),
		StopLosses:      floats(raw["stop_losses"], DefaultStopLoss),
		TakeProfits:     floats(raw["take_profits"], DefaultTakeProfit),
		RiskFactors:     floats(raw["risk_adjustment_factors"], DefaultRiskFactor),
		Persistence:     persistence(raw["persistence_types"], raw["persistence_values"]),
		IndicatorGroups: groups(raw["indicator_groups"], signal.IndicatorGroups),
		AllIndicators:   raw["indicator_groups"] == nil,
		PatternGroups:   groups(raw["pattern_groups"], signal.PatternGroups),
		PatternMode:     cast.ToString(raw["pattern_mode"]),
		Thresholds:      thresholds(raw["thresholds"]),
	}
	if r.PatternMode != PatternSinglesAndAll {
		r.PatternMode = PatternPowerSet
	}
	return r
}

// ModelNames 网格里出现的模型名
func (r Ranges) ModelNames() []string {
	out := make([]string, len(r.MLWeights))
	for i, a := range r.MLWeights {
		out[i] = a.Name
	}
	return out
}

func (r Ranges) indicatorCombos() [][]string {
	if r.AllIndicators {
		return [][]string{AllIndicatorGroups()}
	}
	return IndicatorCombos(r.IndicatorGroups)
}

func (r Ranges) mlAt(idx []int) map[string]float64 {
	out := make(map[string]float64, len(r.MLWeights))
	for i, a := range r.MLWeights {
		out[a.Name] = a.Values[idx[i]]
	}
	return out
}

// AllIndicatorGroups 全部指标分组名，按字母序
func AllIndicatorGroups() []string {
	out := make([]string, 0, len(signal.IndicatorGroups))
	for g := range signal.IndicatorGroups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

func toSlice(v any) []any {
	if v == nil {
		return nil
	}
	if s, err := cast.ToSliceE(v); err == nil {
		return s
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		// 标量当作单元素列表
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func toMap(v any) (map[string]any, bool) {
	if v == nil {
		return nil, false
	}
	if m, err := cast.ToStringMapE(v); err == nil {
		return m, len(m) > 0
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, len(out) > 0
}

func floats(v any, def float64) []float64 {
	var out []float64
	seen := make(map[float64]bool)
	for _, x := range toSlice(v) {
		f, err := cast.ToFloat64E(x)
		if err != nil || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	if len(out) == 0 {
		return []float64{def}
	}
	return out
}

func ints(v any, def int) []int {
	var out []int
	seen := make(map[int]bool)
	for _, x := range toSlice(v) {
		i, err := cast.ToIntE(x)
		if err != nil || i < 0 || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	if len(out) == 0 {
		return []int{def}
	}
	return out
}

func aggregations(v any) []string {
	valid := map[string]bool{
		model.AggWeightedAverage: true,
		model.AggMajorityVote:    true,
		model.AggUnanimous:       true,
		model.AggStrongest:       true,
	}
	var out []string
	seen := make(map[string]bool)
	for _, x := range toSlice(v) {
		s := cast.ToString(x)
		if !valid[s] || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return []string{DefaultAggregation}
	}
	return out
}

// parseSignalWeights 每个族一组候选值；没给的族取默认
func parseSignalWeights(v any) WeightAxes {
	d := DefaultSignalWeights
	m, ok := toMap(v)
	if !ok {
		return WeightAxes{
			Indicator: []float64{d.Indicator},
			Pattern:   []float64{d.Pattern},
			ML:        []float64{d.ML},
			Social:    []float64{d.Social},
			News:      []float64{d.News},
		}
	}
	return WeightAxes{
		Indicator: floats(m["indicator"], d.Indicator),
		Pattern:   floats(m["pattern"], d.Pattern),
		ML:        floats(m["ml"], d.ML),
		Social:    floats(m["social"], d.Social),
		News:      floats(m["news"], d.News),
	}
}

// parseMLWeights 模型名 -> 候选权重，按模型名排序
func parseMLWeights(v any) []MLAxis {
	m, ok := toMap(v)
	if !ok {
		m = make(map[string]any, len(DefaultMLWeights))
		for name, w := range DefaultMLWeights {
			m[name] = w
		}
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]MLAxis, len(names))
	for i, name := range names {
		out[i] = MLAxis{Name: name, Values: floats(m[name], 1.0)}
	}
	return out
}

func copyThresholds(m map[string]map[string]float64) map[string]map[string]float64 {
	if m == nil {
		return nil
	}
	out := make(map[string]map[string]float64, len(m))
	for kind, kv := range m {
		inner := make(map[string]float64, len(kv))
		for k, v := range kv {
			inner[k] = v
		}
		out[kind] = inner
	}
	return out
}

// persistence none 不带值；其他类型与每个值配对，没有值的类型跳过
func persistence(types, values any) []model.PersistenceRule {
	var vals []int
	for _, x := range toSlice(values) {
		if i, err := cast.ToIntE(x); err == nil && i > 0 {
			vals = append(vals, i)
		}
	}
	var out []model.PersistenceRule
	seen := make(map[string]bool)
	for _, x := range toSlice(types) {
		t := cast.ToString(x)
		if seen[t] {
			continue
		}
		seen[t] = true
		switch t {
		case model.PersistenceNone:
			out = append(out, model.PersistenceRule{Type: model.PersistenceNone})
		case model.PersistenceConsecutive, model.PersistenceWindow:
			for _, v := range vals {
				out = append(out, model.PersistenceRule{Type: t, Value: v})
			}
		}
	}
	if len(out) == 0 {
		return []model.PersistenceRule{{Type: model.PersistenceNone}}
	}
	return out
}

// groups 过滤掉未知分组名，保持输入顺序；结果可以为空
func groups(v any, table map[string][]signal.Kind) []string {
	var out []string
	seen := make(map[string]bool)
	for _, x := range toSlice(v) {
		g := cast.ToString(x)
		if _, ok := table[g]; !ok || seen[g] {
			continue
		}
		seen[g] = true
		out = append(out, g)
	}
	return out
}

func thresholds(v any) map[string]map[string]float64 {
	m, ok := toMap(v)
	if !ok {
		return nil
	}
	out := make(map[string]map[string]float64, len(m))
	for kind, inner := range m {
		im, ok := toMap(inner)
		if !ok {
			continue
		}
		vals := make(map[string]float64, len(im))
		for key, x := range im {
			if f, err := cast.ToFloat64E(x); err == nil {
				vals[key] = f
			}
		}
		if len(vals) > 0 {
			out[kind] = vals
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
