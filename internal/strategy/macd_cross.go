package strategy

import (
	"huice/internal/broker"
	"huice/internal/indicator"
	"huice/internal/market"
)

// MACDCross 为 MACD 金叉买入 / 死叉卖出状态机，含次日开盘价重试逻辑：
// 当日收盘撮合失败的订单转为挂单，此后每个交易日先以开盘价重试；
// 挂单未解决前跳过当日的新信号判断。挂单没有有效期，直到成交或数据结束。
type MACDCross struct {
	state    State
	counters Counters
}

// NewMACDCross 创建初始为空仓的状态机。
func NewMACDCross() *MACDCross {
	return &MACDCross{state: StateFlat}
}

// State 返回当前状态。
func (s *MACDCross) State() State { return s.state }

// Counters 返回失败统计。
func (s *MACDCross) Counters() Counters { return s.counters }

// Step 处理一根 K 线。指标未就绪或昨收缺失的 K 线直接跳过。
// 先以开盘价处理遗留挂单；只有挂单清空后才评估当日收盘的新信号，
// 因此一根 K 线最多产生两笔成交（挂单成交 + 新信号成交）。
func (s *MACDCross) Step(b *broker.Broker, bar market.Bar, frame indicator.Frame) []broker.Trade {
	if !frame.Ready || !bar.HasPrevClose() {
		return nil
	}
	var executed []broker.Trade

	switch s.state {
	case StateFlatPendingBuy:
		trade, rej := b.AttemptBuy(bar, bar.Open)
		if rej != nil {
			s.counters.FailedBuys++
			return nil
		}
		executed = append(executed, trade)
		s.state = StateLong
	case StateLongPendingSell:
		trade, rej := b.AttemptSell(bar, bar.Open)
		if rej != nil {
			s.counters.FailedSells++
			return nil
		}
		executed = append(executed, trade)
		s.state = StateFlat
	}

	switch {
	case s.state == StateFlat && frame.GoldenCross():
		trade, rej := b.AttemptBuy(bar, bar.Close)
		if rej != nil {
			s.counters.FailedBuys++
			s.state = StateFlatPendingBuy
			break
		}
		executed = append(executed, trade)
		s.state = StateLong
	case s.state == StateLong && frame.DeathCross():
		trade, rej := b.AttemptSell(bar, bar.Close)
		if rej != nil {
			s.counters.FailedSells++
			s.state = StateLongPendingSell
			break
		}
		executed = append(executed, trade)
		s.state = StateFlat
	}
	return executed
}
