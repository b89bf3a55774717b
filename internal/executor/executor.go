package executor

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"gridflow/internal/ledger"
	"gridflow/internal/model"
	"gridflow/internal/strategy"
)

var (
	ErrAlreadyReplayed = errors.New("executor: replay already performed")
	ErrNoStocks        = errors.New("executor: config has no assigned stocks")
	ErrBadWindow       = errors.New("executor: replay window start is after end")
	ErrNoCallback      = errors.New("executor: nil strategy callback")
)

const dateLayout = "2006-01-02"

type state int

const (
	notStarted state = iota
	replaying
	finished
)

// Result 一次回放的完整产出
type Result struct {
	Snapshots   []model.Snapshot
	Trades      []model.TradeRecord
	FinalLedger *ledger.Ledger
	FinalCash   float64
	FinalValue  float64
}

type Option func(*Executor)

func WithMode(m model.ExecutionMode) Option {
	return func(e *Executor) {
		if m != "" {
			e.mode = m
		}
	}
}

func WithStep(s model.StepMode) Option {
	return func(e *Executor) {
		if s != "" {
			e.step = s
		}
	}
}

// WithAnalysisOnly 只记录决策，不动账本
func WithAnalysisOnly(on bool) Option {
	return func(e *Executor) { e.analysisOnly = on }
}

func WithCandlePeriod(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.period = d
		}
	}
}

// WithInitialPositions 以已有持仓起步，持仓不占用初始资金
func WithInitialPositions(p map[string]model.Position) Option {
	return func(e *Executor) { e.seed = p }
}

// Executor 绑定一个配置，按时间顺序回放行情。单线程，不可重复使用
type Executor struct {
	cfg          *model.BotConfig
	obs          []model.PriceObservation
	fund         float64
	cb           strategy.Callback
	mode         model.ExecutionMode
	step         model.StepMode
	analysisOnly bool
	period       time.Duration
	seed         map[string]model.Position

	state  state
	ledger *ledger.Ledger
}

// New obs 可以包含任意 symbol、任意顺序，构造时只保留分配给该配置的股票并排序
func New(cfg *model.BotConfig, obs []model.PriceObservation, fund float64, cb strategy.Callback, opts ...Option) *Executor {
	e := &Executor{
		cfg:    cfg,
		fund:   fund,
		cb:     cb,
		mode:   model.ModeContinuous,
		step:   model.StepTick,
		period: 24 * time.Hour,
	}
	for _, o := range opts {
		o(e)
	}
	if cfg != nil {
		for _, o := range obs {
			if cfg.HasStock(o.Symbol) {
				e.obs = append(e.obs, o)
			}
		}
	}
	sort.SliceStable(e.obs, func(i, j int) bool { return model.LessObservation(e.obs[i], e.obs[j]) })
	return e
}

// group 一步要处理的观测
type group struct {
	at  time.Time
	obs []model.PriceObservation
}

func dateOf(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// Replay 回放 [from, to] 区间。from 之前的观测只作为历史K线，不产生决策
func (e *Executor) Replay(from, to time.Time) (*Result, error) {
	if e.state != notStarted {
		return nil, ErrAlreadyReplayed
	}
	if e.cfg == nil || len(e.cfg.Stocks) == 0 {
		return nil, ErrNoStocks
	}
	if from.After(to) {
		return nil, fmt.Errorf("%w: %s > %s", ErrBadWindow, from.Format(time.RFC3339), to.Format(time.RFC3339))
	}
	if e.cb == nil {
		return nil, ErrNoCallback
	}
	e.state = replaying
	defer func() { e.state = finished }()

	e.ledger = ledger.New(e.fund)
	for sym, p := range e.seed {
		if err := e.ledger.Seed(sym, p.Quantity, p.AverageCost); err != nil {
			return nil, fmt.Errorf("seed %s: %w", sym, err)
		}
	}

	builders := make(map[string]*candleBuilder, len(e.cfg.Stocks))
	for _, s := range e.cfg.Stocks {
		builders[s] = newCandleBuilder(e.period)
	}
	lastPrice := make(map[string]float64)

	i := 0
	for ; i < len(e.obs) && e.obs[i].Timestamp.Before(from); i++ {
		builders[e.obs[i].Symbol].add(e.obs[i])
		lastPrice[e.obs[i].Symbol] = e.obs[i].Price
	}
	groups := e.groups(e.obs[i:], to)

	res := &Result{Snapshots: make([]model.Snapshot, 0, len(groups))}
	prevTotal := e.ledger.TotalValue(lastPrice)
	var cumulative float64
	currentDate := ""

	for stepNo, g := range groups {
		date := dateOf(g.at)
		if e.mode == model.ModeDailyReset && currentDate != "" && date != currentDate {
			// 新的一天：资金回到初始值，持仓清空，当日盈亏从初始资金算起
			e.ledger.Reset(e.fund)
			prevTotal = e.fund
		}
		currentDate = date

		prices := make(map[string]float64, len(g.obs))
		for _, o := range g.obs {
			builders[o.Symbol].add(o)
			lastPrice[o.Symbol] = o.Price
			prices[o.Symbol] = o.Price
		}

		snap := model.Snapshot{
			Step:      stepNo,
			Timestamp: g.at,
			Date:      date,
			Decisions: make(map[string]model.Decision, len(e.cfg.Stocks)),
			Prices:    prices,
		}
		for _, sym := range e.cfg.Stocks {
			price, ok := prices[sym]
			if !ok {
				snap.Decisions[sym] = model.SkipDecision("no market data")
				continue
			}
			pos, has := e.ledger.Position(sym)
			d := e.decide(strategy.DecisionRequest{
				Symbol:      sym,
				Step:        stepNo,
				Time:        g.at,
				Price:       price,
				History:     builders[sym].view(),
				Position:    pos,
				HasPosition: has,
				Cash:        e.ledger.Cash(),
				Params:      &e.cfg.Params,
			})
			snap.Decisions[sym] = d
			for _, s := range d.Signals {
				if s.Direction == model.Neutral {
					continue
				}
				snap.Attribution = append(snap.Attribution, model.Attribution{
					Key:        s.AttributionKey(),
					Symbol:     sym,
					Direction:  s.Direction,
					Confidence: s.Confidence,
					Price:      price,
				})
			}
			if e.analysisOnly {
				continue
			}
			if tr, ok := e.apply(sym, d, price); ok {
				tr.Step = stepNo
				tr.Timestamp = g.at
				res.Trades = append(res.Trades, tr)
				snap.Trades++
			}
		}

		snap.Cash = e.ledger.Cash()
		snap.PositionsValue = e.ledger.PositionsValue(lastPrice)
		snap.TotalValue = e.ledger.TotalValue(lastPrice)
		snap.ProfitDelta = snap.TotalValue - prevTotal
		cumulative += snap.ProfitDelta
		snap.CumulativeProfit = cumulative
		prevTotal = snap.TotalValue
		res.Snapshots = append(res.Snapshots, snap)
	}

	res.FinalLedger = e.ledger.Clone()
	res.FinalCash = e.ledger.Cash()
	res.FinalValue = e.ledger.TotalValue(lastPrice)
	return res, nil
}

// groups 按步长切分执行区间内的观测
func (e *Executor) groups(obs []model.PriceObservation, to time.Time) []group {
	var out []group
	for _, o := range obs {
		if o.Timestamp.After(to) {
			break
		}
		n := len(out)
		same := false
		if n > 0 {
			if e.step == model.StepDay {
				same = dateOf(out[n-1].at) == dateOf(o.Timestamp)
			} else {
				same = out[n-1].at.Equal(o.Timestamp)
			}
		}
		if same {
			out[n-1].obs = append(out[n-1].obs, o)
			out[n-1].at = o.Timestamp
			continue
		}
		out = append(out, group{at: o.Timestamp, obs: []model.PriceObservation{o}})
	}
	return out
}

// decide 回调的错误和 panic 都转成 error 决策，不影响后续回放
func (e *Executor) decide(req strategy.DecisionRequest) (d model.Decision) {
	defer func() {
		if r := recover(); r != nil {
			d = model.ErrorDecision(fmt.Errorf("strategy panic: %v", r))
		}
	}()
	d, err := e.cb.Decide(req)
	if err != nil {
		return model.ErrorDecision(err)
	}
	return d
}

// apply 把买卖决策落到账本；现金不足、无持仓等情况不成交
func (e *Executor) apply(sym string, d model.Decision, price float64) (model.TradeRecord, bool) {
	switch d.Action {
	case model.ActionBuy:
		if d.PositionSize <= 0 {
			return model.TradeRecord{}, false
		}
		tr, err := e.ledger.Buy(sym, d.PositionSize, price)
		return tr, err == nil
	case model.ActionSell:
		tr, err := e.ledger.Sell(sym, price)
		return tr, err == nil
	}
	return model.TradeRecord{}, false
}
