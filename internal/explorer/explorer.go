package explorer

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gridflow/internal/model"
)

var (
	ErrEmptyUniverse = errors.New("explorer: stock universe is empty")
	ErrGridTooLarge  = errors.New("explorer: parameter grid is too large")
)

// MaxGridSize Generate 一次展开的配置数上限
const MaxGridSize = 10_000_000

// IndicatorCombos 每个分组单独一组，再加上全部分组一组；去重。
// 没有分组时只有一个空组合
func IndicatorCombos(groups []string) [][]string {
	return singlesAndAll(groups)
}

// PatternCombos 默认是完整幂集（含空集），singles_and_all 模式下与指标分组规则一致
func PatternCombos(groups []string, mode string) [][]string {
	if mode == PatternSinglesAndAll {
		return singlesAndAll(groups)
	}
	return powerSet(groups)
}

func singlesAndAll(groups []string) [][]string {
	if len(groups) == 0 {
		return [][]string{{}}
	}
	out := make([][]string, 0, len(groups)+1)
	for _, g := range groups {
		out = append(out, []string{g})
	}
	if len(groups) > 1 {
		out = append(out, append([]string(nil), groups...))
	}
	return out
}

// powerSet 按位掩码顺序枚举：空集、{g0}、{g1}、{g0,g1} ...
func powerSet(groups []string) [][]string {
	n := len(groups)
	out := make([][]string, 0, 1<<n)
	for mask := 0; mask < 1<<n; mask++ {
		subset := []string{}
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				subset = append(subset, groups[i])
			}
		}
		out = append(out, subset)
	}
	return out
}

// StockCombos 每只单独、每个无序对；超过两只时再加全部
func StockCombos(universe []string) [][]string {
	stocks := uniqueStocks(universe)
	n := len(stocks)
	var out [][]string
	for _, s := range stocks {
		out = append(out, []string{s})
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out = append(out, []string{stocks[i], stocks[j]})
		}
	}
	if n > 2 {
		out = append(out, append([]string(nil), stocks...))
	}
	return out
}

func uniqueStocks(universe []string) []string {
	seen := make(map[string]bool, len(universe))
	out := make([]string, 0, len(universe))
	for _, s := range universe {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func boolFlags(flags []bool) []bool {
	if len(flags) == 0 {
		return []bool{false}
	}
	seen := make(map[bool]bool, 2)
	out := make([]bool, 0, 2)
	for _, f := range flags {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

// dims 各维度的取值个数，顺序即迭代顺序，最后一维变化最快：
// 五个信号族权重、每个模型的权重、其余策略参数、指标组合、形态组合、股票组合、两个开关
func dims(r Ranges, nInd, nPat, nStocks, nSocial, nNews int) []int {
	out := r.SignalWeights.sizes()
	for _, a := range r.MLWeights {
		out = append(out, len(a.Values))
	}
	return append(out,
		len(r.RiskThresholds),
		len(r.Aggregations),
		len(r.HoldingPeriods),
		len(r.StopLosses),
		len(r.TakeProfits),
		len(r.RiskFactors),
		len(r.Persistence),
		nInd,
		nPat,
		nStocks,
		nSocial,
		nNews,
	)
}

// product 维度乘积，溢出时返回 ErrGridTooLarge
func product(sizes []int) (int, error) {
	total := 1
	for _, d := range sizes {
		if d == 0 {
			return 0, nil
		}
		if total > math.MaxInt/d {
			return 0, ErrGridTooLarge
		}
		total *= d
	}
	return total, nil
}

// singlesAndAllCount 与 singlesAndAll 的结果长度一致
func singlesAndAllCount(n int) int {
	if n <= 1 {
		return 1
	}
	return n + 1
}

func patternComboCount(n int, mode string) (int, error) {
	if mode == PatternSinglesAndAll {
		return singlesAndAllCount(n), nil
	}
	if n >= 62 {
		return 0, ErrGridTooLarge
	}
	return 1 << n, nil
}

// stockComboCount 与 StockCombos 的结果长度一致：n + n(n-1)/2，超过两只再加 1
func stockComboCount(n int) (int, error) {
	if n == 0 {
		return 0, nil
	}
	pairs, err := product([]int{n, n - 1})
	if err != nil {
		return 0, err
	}
	total := n + pairs/2
	if n > 2 {
		total++
	}
	if total < 0 {
		return 0, ErrGridTooLarge
	}
	return total, nil
}

// Count 返回 Generate 会产出的配置数量，只做乘法不展开任何组合。
// 股票池为空时返回 0；乘积超出 int 范围时返回 ErrGridTooLarge
func Count(r Ranges, universe []string, socialFlags, newsFlags []bool) (int, error) {
	nStocks, err := stockComboCount(len(uniqueStocks(universe)))
	if err != nil || nStocks == 0 {
		return 0, err
	}
	nInd := 1
	if !r.AllIndicators {
		nInd = singlesAndAllCount(len(r.IndicatorGroups))
	}
	nPat, err := patternComboCount(len(r.PatternGroups), r.PatternMode)
	if err != nil {
		return 0, err
	}
	return product(dims(r, nInd, nPat, nStocks, len(boolFlags(socialFlags)), len(boolFlags(newsFlags))))
}

// Generate 展开完整网格。结果只依赖入参，同样的输入得到同样的顺序和下标
func Generate(r Ranges, universe []string, socialFlags, newsFlags []bool) ([]model.BotConfig, error) {
	total, err := Count(r, universe, socialFlags, newsFlags)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, ErrEmptyUniverse
	}
	if total > MaxGridSize {
		return nil, fmt.Errorf("%w: %d configurations", ErrGridTooLarge, total)
	}
	stocks := StockCombos(universe)
	social, news := boolFlags(socialFlags), boolFlags(newsFlags)
	indCombos := r.indicatorCombos()
	patCombos := PatternCombos(r.PatternGroups, r.PatternMode)

	sizes := dims(r, len(indCombos), len(patCombos), len(stocks), len(social), len(news))
	// p 为模型权重之后第一个维度
	p := 5 + len(r.MLWeights)
	out := make([]model.BotConfig, 0, total)
	idx := make([]int, len(sizes))
	for n := 0; n < total; n++ {
		out = append(out, model.BotConfig{
			Version: model.BotConfigVersion,
			Index:   n,
			Params: model.StrategyParams{
				SignalWeights:        r.SignalWeights.at(idx[:5]),
				MLWeights:            r.mlAt(idx[5:p]),
				RiskThreshold:        r.RiskThresholds[idx[p]],
				AggregationMethod:    r.Aggregations[idx[p+1]],
				HoldingPeriod:        r.HoldingPeriods[idx[p+2]],
				StopLoss:             r.StopLosses[idx[p+3]],
				TakeProfit:           r.TakeProfits[idx[p+4]],
				RiskAdjustmentFactor: r.RiskFactors[idx[p+5]],
				Persistence:          r.Persistence[idx[p+6]],
			},
			IndicatorGroups: append([]string{}, indCombos[idx[p+7]]...),
			PatternGroups:   append([]string{}, patCombos[idx[p+8]]...),
			Stocks:          append([]string{}, stocks[idx[p+9]]...),
			Flags:           model.FeatureFlags{UseSocial: social[idx[p+10]], UseNews: news[idx[p+11]]},
			Thresholds:      copyThresholds(r.Thresholds),
		})
		// 里程表式进位
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < sizes[d] {
				break
			}
			idx[d] = 0
		}
	}
	return out, nil
}
