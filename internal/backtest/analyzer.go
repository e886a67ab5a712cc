package backtest

import (
	"math"

	"huice/internal/broker"
	"huice/internal/market"
)

// 无风险收益按年化 3% 折算到日。
const (
	annualRiskFree = 0.03
	tradingDays    = 252
)

// Analyze 用成交流水回放收盘价序列，重建资金曲线并推导风险收益指标。
// 对每个交易日，取“当日或之前最后一笔成交”之后的（现金, 持股）对，
// 无任何成交之前取（初始资金, 0）；权益 = 现金 + 持股 × 收盘价。
// trades 必须按成交顺序排列（broker 流水天然满足）。
func Analyze(bars []market.Bar, trades []broker.Trade, initialCash float64) (Stats, []EquityPoint) {
	stats := Stats{
		FinalValue: initialCash,
		Trades:     len(trades),
		Bars:       len(bars),
	}

	cash := initialCash
	var shares int64
	ti := 0
	equity := make([]EquityPoint, 0, len(bars))
	peak := 0.0
	for _, bar := range bars {
		for ti < len(trades) && trades[ti].Date <= bar.Date {
			t := trades[ti]
			cash = t.CashAfter
			if t.Side == broker.SideBuy {
				shares += t.Shares
			} else {
				shares -= t.Shares
			}
			ti++
		}
		eq := cash + float64(shares)*bar.Close
		if eq > peak {
			peak = eq
		}
		dd := 0.0
		if peak > 0 {
			dd = (peak - eq) / peak
		}
		if dd > stats.MaxDrawdown {
			stats.MaxDrawdown = dd
		}
		equity = append(equity, EquityPoint{
			Date:     bar.Date,
			Cash:     cash,
			Shares:   shares,
			Equity:   eq,
			Drawdown: dd,
		})
	}

	stats.SharpeRatio = sharpe(equity)

	// 成对盈亏：一买一卖为一对，净利润扣除买卖双边费用。
	var lastBuyValue, lastBuyFee float64
	for _, t := range trades {
		stats.TotalFees += t.Fee
		if t.Side == broker.SideBuy {
			lastBuyValue = t.Value
			lastBuyFee = t.Fee
			continue
		}
		profit := t.Value - lastBuyValue - (lastBuyFee + t.Fee)
		stats.TradePairs++
		if profit > 0 {
			stats.WinRate++ // 先累计胜场，最后归一
		}
	}
	if stats.TradePairs > 0 {
		stats.WinRate /= float64(stats.TradePairs)
	}

	// 期末估值：仍持仓时按最后一根收盘价折算。
	stats.FinalValue = cash
	if shares > 0 && len(bars) > 0 {
		stats.FinalValue = cash + float64(shares)*bars[len(bars)-1].Close
	}
	if initialCash > 0 {
		stats.TotalReturn = stats.FinalValue/initialCash - 1
		if n := len(equity); n > 0 {
			stats.AnnualizedReturn = math.Pow(stats.FinalValue/initialCash, tradingDays/float64(n)) - 1
		}
	}
	return stats, equity
}

// sharpe 计算年化夏普比率：日收益均值减日无风险利率，除以日收益样本标准差，乘 √252。
// 收益无波动时定义为 0。
func sharpe(equity []EquityPoint) float64 {
	if len(equity) < 2 {
		return 0
	}
	returns := make([]float64, len(equity))
	for i := 1; i < len(equity); i++ {
		if prev := equity[i-1].Equity; prev != 0 {
			returns[i] = equity[i].Equity/prev - 1
		}
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	dailyRF := annualRiskFree / tradingDays
	return (mean - dailyRF) / std * math.Sqrt(tradingDays)
}
