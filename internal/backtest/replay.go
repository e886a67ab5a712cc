package backtest

import (
	"fmt"

	"huice/internal/broker"
	"huice/internal/indicator"
	"huice/internal/market"
	"huice/internal/strategy"
)

// ReplayConfig 为单标的回放参数。
type ReplayConfig struct {
	Symbol      string
	InitialCash float64
	Fast        int
	Slow        int
	Signal      int
}

// ReplayResult 汇总一次回放的全部产出：
// 清洗后的 K 线、逐根指标、成交流水、资金曲线与统计。
// 零成交是有效结果而非错误（例如全程未出现金叉）。
type ReplayResult struct {
	Symbol   string              `json:"symbol"`
	Bars     []market.Bar        `json:"bars"`
	Frames   []indicator.Frame   `json:"frames"`
	Trades   []broker.Trade      `json:"trades"`
	Counters strategy.Counters   `json:"counters"`
	EndState strategy.State      `json:"end_state"`
	Stats    Stats               `json:"stats"`
	Equity   []EquityPoint       `json:"equity"`
	Overlay  indicator.MAOverlay `json:"overlay"`
}

// Replay 是回测核心：严格按日期顺序单线程推演，
// K 线 → 指标 → 信号状态机 → 撮合 → 流水 → 统计。
// 相同输入必然产出完全相同的流水与统计；每次调用各自持有
// 独立的账户与挂单状态，可按标的并行调用。
// 数据形态问题（历史不足、脏行）以 error 返回，由批量层跳过该标的。
func Replay(cfg ReplayConfig, raw []market.Bar) (*ReplayResult, error) {
	if cfg.InitialCash <= 0 {
		return nil, fmt.Errorf("初始资金必须为正: %.2f", cfg.InitialCash)
	}
	bars, err := market.Normalize(raw)
	if err != nil {
		return nil, fmt.Errorf("标的 %s 数据清洗失败: %w", cfg.Symbol, err)
	}
	if len(bars) < market.MinHistoryBars {
		return nil, fmt.Errorf("标的 %s: %w", cfg.Symbol, market.ErrInsufficientHistory)
	}

	closes := market.Closes(bars)
	frames := indicator.MACD(closes, cfg.Fast, cfg.Slow, cfg.Signal)

	engine := broker.New(cfg.InitialCash)
	machine := strategy.NewMACDCross()
	for i, bar := range bars {
		machine.Step(engine, bar, frames[i])
	}

	trades := engine.Ledger()
	stats, equity := Analyze(bars, trades, cfg.InitialCash)
	stats.FailedBuys = machine.Counters().FailedBuys
	stats.FailedSells = machine.Counters().FailedSells

	return &ReplayResult{
		Symbol:   cfg.Symbol,
		Bars:     bars,
		Frames:   frames,
		Trades:   trades,
		Counters: machine.Counters(),
		EndState: machine.State(),
		Stats:    stats,
		Equity:   equity,
		Overlay:  indicator.MovingAverages(closes),
	}, nil
}
