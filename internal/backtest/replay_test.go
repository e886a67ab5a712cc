package backtest

import (
	"fmt"
	"math"
	"testing"

	"huice/internal/market"
	"huice/internal/strategy"

	"github.com/stretchr/testify/assert"
)

// trendBars 生成先跌后涨的日线序列，足以触发至少一次金叉。
func trendBars(n int) []market.Bar {
	bars := make([]market.Bar, n)
	for i := 0; i < n; i++ {
		price := 20 - 5*math.Cos(float64(i)/12)
		bars[i] = market.Bar{
			Date:   fmt.Sprintf("2024-%02d-%02d", 1+i/28, 1+i%28),
			Open:   price * 0.995,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 10000,
		}
	}
	return bars
}

func TestReplay_Deterministic(t *testing.T) {
	bars := trendBars(120)
	cfg := ReplayConfig{Symbol: "600519", InitialCash: 100000}

	first, err := Replay(cfg, bars)
	assert.NoError(t, err)
	second, err := Replay(cfg, bars)
	assert.NoError(t, err)

	assert.Equal(t, first.Trades, second.Trades)
	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, first.Counters, second.Counters)
	assert.Equal(t, first.EndState, second.EndState)
}

func TestReplay_ProducesTradesOnTrendReversal(t *testing.T) {
	result, err := Replay(ReplayConfig{Symbol: "600519", InitialCash: 100000}, trendBars(120))
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Trades, "先跌后涨应至少触发一次金叉买入")
	assert.Len(t, result.Frames, len(result.Bars))
	assert.Len(t, result.Equity, len(result.Bars))
	// 流水买卖交替，首笔必为买入
	for i, tr := range result.Trades {
		if i%2 == 0 {
			assert.Equal(t, "BUY", string(tr.Side))
		} else {
			assert.Equal(t, "SELL", string(tr.Side))
		}
	}
}

func TestReplay_ZeroTradesIsValid(t *testing.T) {
	// 单边缓慢下行，不会出现金叉
	bars := make([]market.Bar, 60)
	for i := range bars {
		price := 30 - float64(i)*0.1
		bars[i] = market.Bar{
			Date:   fmt.Sprintf("2024-%02d-%02d", 1+i/28, 1+i%28),
			Open:   price,
			High:   price * 1.005,
			Low:    price * 0.995,
			Close:  price,
			Volume: 10000,
		}
	}
	result, err := Replay(ReplayConfig{Symbol: "000001", InitialCash: 100000}, bars)
	assert.NoError(t, err)
	assert.Empty(t, result.Trades)
	assert.Equal(t, strategy.StateFlat, result.EndState)
	assert.Equal(t, 100000.0, result.Stats.FinalValue)
}

func TestReplay_InsufficientHistory(t *testing.T) {
	bars := trendBars(20)
	_, err := Replay(ReplayConfig{Symbol: "600519", InitialCash: 100000}, bars)
	assert.ErrorIs(t, err, market.ErrInsufficientHistory)
}

func TestReplay_InvalidInitialCash(t *testing.T) {
	_, err := Replay(ReplayConfig{Symbol: "600519"}, trendBars(60))
	assert.Error(t, err)
}

func TestReplay_DirtyRowsDropped(t *testing.T) {
	bars := trendBars(60)
	bars[10].Close = -1 // 脏数据行被剔除而非报错
	result, err := Replay(ReplayConfig{Symbol: "600519", InitialCash: 100000}, bars)
	assert.NoError(t, err)
	assert.Len(t, result.Bars, 59)
}
