package strategy

import (
	"huice/internal/broker"
	"huice/internal/indicator"
	"huice/internal/market"
)

// State 为信号状态机的位置状态。
type State string

const (
	StateFlat            State = "FLAT"              // 空仓
	StateFlatPendingBuy  State = "FLAT_PENDING_BUY"  // 空仓挂买单待成交
	StateLong            State = "LONG"              // 持仓
	StateLongPendingSell State = "LONG_PENDING_SELL" // 持仓挂卖单待成交
)

// Counters 为失败重试统计。
type Counters struct {
	FailedBuys  int `json:"failed_buys"`
	FailedSells int `json:"failed_sells"`
}

// Strategy 将单根 K 线（含指标快照）推进为 0~2 笔成交。
// 实现者持有自己的挂单状态；账户状态归 broker 所有。
type Strategy interface {
	Step(b *broker.Broker, bar market.Bar, frame indicator.Frame) []broker.Trade
	State() State
	Counters() Counters
}
