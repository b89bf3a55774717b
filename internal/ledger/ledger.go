package ledger

import (
	"errors"
	"fmt"
	"sort"

	"gridflow/internal/model"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientCash = errors.New("ledger: insufficient cash")
	ErrNoPosition       = errors.New("ledger: no position to sell")
	ErrInvalidOrder     = errors.New("ledger: price and quantity must be positive")
)

type position struct {
	qty     decimal.Decimal
	avgCost decimal.Decimal
}

// Ledger 单个配置独占的资金与持仓账本，不做并发保护。
// 金额全部用 decimal 计算，对外再转回 float64
type Ledger struct {
	cash      decimal.Decimal
	positions map[string]*position
}

func New(cash float64) *Ledger {
	return &Ledger{
		cash:      decimal.NewFromFloat(cash),
		positions: make(map[string]*position),
	}
}

// Seed 以已有持仓初始化，用于持仓起步的回测
func (l *Ledger) Seed(symbol string, qty, avgCost float64) error {
	if qty <= 0 || avgCost <= 0 {
		return ErrInvalidOrder
	}
	l.positions[symbol] = &position{qty: decimal.NewFromFloat(qty), avgCost: decimal.NewFromFloat(avgCost)}
	return nil
}

// Reset 资金重置为 cash，清空持仓
func (l *Ledger) Reset(cash float64) {
	l.cash = decimal.NewFromFloat(cash)
	l.positions = make(map[string]*position)
}

func (l *Ledger) Cash() float64 {
	return l.cash.InexactFloat64()
}

// Position 返回持仓视图，没有持仓时 ok 为 false
func (l *Ledger) Position(symbol string) (model.Position, bool) {
	p, ok := l.positions[symbol]
	if !ok {
		return model.Position{}, false
	}
	return model.Position{Quantity: p.qty.InexactFloat64(), AverageCost: p.avgCost.InexactFloat64()}, true
}

// Positions 返回全部持仓的拷贝
func (l *Ledger) Positions() map[string]model.Position {
	out := make(map[string]model.Position, len(l.positions))
	for s := range l.positions {
		out[s], _ = l.Position(s)
	}
	return out
}

// Symbols 有持仓的 symbol，按字母序
func (l *Ledger) Symbols() []string {
	out := make([]string, 0, len(l.positions))
	for s := range l.positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Buy 买入 qty 股。现金不足时不做任何修改。持仓成本按加权平均滚动
func (l *Ledger) Buy(symbol string, qty, price float64) (model.TradeRecord, error) {
	if qty <= 0 || price <= 0 {
		return model.TradeRecord{}, ErrInvalidOrder
	}
	q := decimal.NewFromFloat(qty)
	px := decimal.NewFromFloat(price)
	cost := q.Mul(px)
	if l.cash.LessThan(cost) {
		return model.TradeRecord{}, fmt.Errorf("%w: need %s have %s", ErrInsufficientCash, cost.StringFixed(2), l.cash.StringFixed(2))
	}
	l.cash = l.cash.Sub(cost)
	if p, ok := l.positions[symbol]; ok {
		total := p.qty.Add(q)
		p.avgCost = p.qty.Mul(p.avgCost).Add(cost).Div(total)
		p.qty = total
	} else {
		l.positions[symbol] = &position{qty: q, avgCost: px}
	}
	return model.TradeRecord{
		Symbol:    symbol,
		Action:    model.ActionBuy,
		Quantity:  qty,
		Price:     price,
		CashDelta: cost.Neg().InexactFloat64(),
	}, nil
}

// Sell 全部平仓，没有持仓时拒绝且不修改账本
func (l *Ledger) Sell(symbol string, price float64) (model.TradeRecord, error) {
	if price <= 0 {
		return model.TradeRecord{}, ErrInvalidOrder
	}
	p, ok := l.positions[symbol]
	if !ok || !p.qty.IsPositive() {
		return model.TradeRecord{}, ErrNoPosition
	}
	px := decimal.NewFromFloat(price)
	proceeds := p.qty.Mul(px)
	profit := proceeds.Sub(p.qty.Mul(p.avgCost))
	l.cash = l.cash.Add(proceeds)
	delete(l.positions, symbol)
	return model.TradeRecord{
		Symbol:         symbol,
		Action:         model.ActionSell,
		Quantity:       p.qty.InexactFloat64(),
		Price:          price,
		CashDelta:      proceeds.InexactFloat64(),
		RealizedProfit: profit.InexactFloat64(),
	}, nil
}

// PositionsValue 按给定价格估值；缺价格的 symbol 用平均成本估值
func (l *Ledger) PositionsValue(prices map[string]float64) float64 {
	total := decimal.Zero
	for s, p := range l.positions {
		px := p.avgCost
		if v, ok := prices[s]; ok && v > 0 {
			px = decimal.NewFromFloat(v)
		}
		total = total.Add(p.qty.Mul(px))
	}
	return total.InexactFloat64()
}

// TotalValue 现金 + 持仓市值
func (l *Ledger) TotalValue(prices map[string]float64) float64 {
	return l.cash.Add(decimal.NewFromFloat(l.PositionsValue(prices))).InexactFloat64()
}

// Clone 深拷贝，回放结束时把最终账本交给调用方
func (l *Ledger) Clone() *Ledger {
	c := &Ledger{cash: l.cash, positions: make(map[string]*position, len(l.positions))}
	for s, p := range l.positions {
		cp := *p
		c.positions[s] = &cp
	}
	return c
}
