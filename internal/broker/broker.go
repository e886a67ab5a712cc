package broker

import (
	"math"

	"huice/internal/market"
)

// LotSize 为 A 股最小交易单位（1 手 = 100 股）。
const LotSize = 100

// cashSafetyRatio 为买入时预留的资金比例，防止费用估算误差导致透支。
const cashSafetyRatio = 0.998

// Side 表示买卖方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Reason 为撮合失败的业务原因，属于正常市场状态而非程序错误。
type Reason string

const (
	ReasonHalted            Reason = "HALTED"             // 停牌
	ReasonLimitBlocked      Reason = "LIMIT_BLOCKED"      // 触及涨/跌停封板
	ReasonInsufficientLot   Reason = "INSUFFICIENT_LOT"   // 资金不足 1 手
	ReasonInsufficientFunds Reason = "INSUFFICIENT_FUNDS" // 最终结算资金不足
	ReasonSettlementLocked  Reason = "SETTLEMENT_LOCKED"  // T+1 限制
	ReasonNoPosition        Reason = "NO_POSITION"        // 无持仓
)

// Rejection 描述一次未能成交的撮合尝试。
type Rejection struct {
	Reason Reason `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Trade 为一笔已成交记录，写入后不再修改。
type Trade struct {
	Date      string  `json:"date"`
	Side      Side    `json:"side"`
	Price     float64 `json:"price"`
	Shares    int64   `json:"shares"`
	Value     float64 `json:"value"`
	Costs     Costs   `json:"costs"`
	Fee       float64 `json:"fee"`
	CashAfter float64 `json:"cash_after"`
}

// Broker 是 A 股撮合与账户管理核心，
// 处理 T+1、涨跌停、停牌、整手买入与三段式费用。
// 账户状态只通过 AttemptBuy/AttemptSell 变更；每个标的独立实例化，不做并发保护。
type Broker struct {
	initialCash float64
	cash        float64
	shares      int64
	lastBuyDate string

	ledger []Trade
}

// New 以初始资金创建撮合引擎。
func New(initialCash float64) *Broker {
	return &Broker{initialCash: initialCash, cash: initialCash}
}

// Cash 返回当前可用现金。
func (b *Broker) Cash() float64 { return b.cash }

// Shares 返回当前持股数。
func (b *Broker) Shares() int64 { return b.shares }

// InitialCash 返回初始资金。
func (b *Broker) InitialCash() float64 { return b.initialCash }

// LastBuyDate 返回最近一次买入日期，用于 T+1 判断；未买入过时为空串。
func (b *Broker) LastBuyDate() string { return b.lastBuyDate }

// Ledger 返回按成交顺序排列的流水副本。
func (b *Broker) Ledger() []Trade {
	return append([]Trade(nil), b.ledger...)
}

// AttemptBuy 尝试以 price 全仓买入（按 0.998 的可用资金上限向下取整手）。
// bar 提供当日昨收/最高/最低/成交量用于停牌与涨停判断。
// 返回成交记录，或带原因的拒绝；两者互斥。
func (b *Broker) AttemptBuy(bar market.Bar, price float64) (Trade, *Rejection) {
	if bar.Halted() {
		return Trade{}, &Rejection{Reason: ReasonHalted, Detail: "买入失败: 股票停牌"}
	}
	if limitLocked(price, bar.PrevClose, bar.High, bar.Low, true) {
		return Trade{}, &Rejection{Reason: ReasonLimitBlocked, Detail: "买入失败: 触及涨停板无法成交"}
	}
	available := b.cash * cashSafetyRatio
	maxShares := int64(math.Floor(available/price/LotSize)) * LotSize
	if maxShares < LotSize {
		return Trade{}, &Rejection{Reason: ReasonInsufficientLot, Detail: "买入失败: 资金不足买入1手(100股)"}
	}
	value := float64(maxShares) * price
	costs := calcCosts(value, true)
	total := value + costs.Total()
	if total > b.cash {
		return Trade{}, &Rejection{Reason: ReasonInsufficientFunds, Detail: "买入失败: 最终结算资金不足"}
	}
	b.cash -= total
	b.shares += maxShares
	b.lastBuyDate = bar.Date
	trade := Trade{
		Date:      bar.Date,
		Side:      SideBuy,
		Price:     price,
		Shares:    maxShares,
		Value:     value,
		Costs:     costs,
		Fee:       costs.Total(),
		CashAfter: b.cash,
	}
	b.ledger = append(b.ledger, trade)
	return trade, nil
}

// AttemptSell 尝试以 price 清空全部持仓（不支持分笔卖出）。
// T+1：当日买入的仓位要到下一个交易日才允许卖出。
func (b *Broker) AttemptSell(bar market.Bar, price float64) (Trade, *Rejection) {
	if bar.Halted() {
		return Trade{}, &Rejection{Reason: ReasonHalted, Detail: "卖出失败: 股票停牌"}
	}
	if limitLocked(price, bar.PrevClose, bar.High, bar.Low, false) {
		return Trade{}, &Rejection{Reason: ReasonLimitBlocked, Detail: "卖出失败: 触及跌停板无法成交"}
	}
	if b.lastBuyDate != "" && bar.Date <= b.lastBuyDate {
		return Trade{}, &Rejection{Reason: ReasonSettlementLocked, Detail: "卖出失败: 触发T+1限制 (买入日期: " + b.lastBuyDate + ")"}
	}
	if b.shares == 0 {
		return Trade{}, &Rejection{Reason: ReasonNoPosition, Detail: "卖出失败: 无持仓"}
	}
	shares := b.shares
	value := float64(shares) * price
	costs := calcCosts(value, false)
	b.cash += value - costs.Total()
	b.shares = 0
	trade := Trade{
		Date:      bar.Date,
		Side:      SideSell,
		Price:     price,
		Shares:    shares,
		Value:     value,
		Costs:     costs,
		Fee:       costs.Total(),
		CashAfter: b.cash,
	}
	b.ledger = append(b.ledger, trade)
	return trade, nil
}
