package broker

import (
	"testing"

	"huice/internal/market"

	"github.com/stretchr/testify/assert"
)

func normalBar(date string, price float64) market.Bar {
	return market.Bar{
		Date:      date,
		Open:      price,
		High:      price * 1.02,
		Low:       price * 0.98,
		Close:     price,
		PrevClose: price,
		Volume:    10000,
	}
}

func TestBroker_AttemptBuy(t *testing.T) {
	t.Run("全仓买入按整手向下取整", func(t *testing.T) {
		b := New(100000)
		trade, rej := b.AttemptBuy(normalBar("2024-01-02", 10.0), 10.0)
		assert.Nil(t, rej)
		assert.Equal(t, int64(9900), trade.Shares)
		assert.InDelta(t, 99000.0, trade.Value, 1e-9)
		assert.InDelta(t, 9.9, trade.Costs.Commission, 1e-9)
		assert.InDelta(t, 0.99, trade.Costs.Transfer, 1e-9)
		assert.Equal(t, 0.0, trade.Costs.StampDuty)
		assert.InDelta(t, 10.89, trade.Fee, 1e-9)
		assert.InDelta(t, 989.11, b.Cash(), 1e-6)
		assert.Equal(t, int64(9900), b.Shares())
		assert.Equal(t, "2024-01-02", b.LastBuyDate())
	})

	t.Run("小额成交收最低佣金", func(t *testing.T) {
		b := New(2000)
		trade, rej := b.AttemptBuy(normalBar("2024-01-02", 10.0), 10.0)
		assert.Nil(t, rej)
		assert.Equal(t, int64(100), trade.Shares)
		assert.InDelta(t, 5.0, trade.Costs.Commission, 1e-9) // 万一佣金 0.1 元，按最低 5 元收
	})

	t.Run("资金不足一手拒绝", func(t *testing.T) {
		b := New(900)
		_, rej := b.AttemptBuy(normalBar("2024-01-02", 10.0), 10.0)
		assert.NotNil(t, rej)
		assert.Equal(t, ReasonInsufficientLot, rej.Reason)
		assert.Equal(t, 900.0, b.Cash())
		assert.Empty(t, b.Ledger())
	})

	t.Run("含费总额超出现金拒绝", func(t *testing.T) {
		// 1005 元恰好整手可买 100 股，但加上 5.01 元费用后透支
		b := New(1005)
		_, rej := b.AttemptBuy(normalBar("2024-01-02", 10.0), 10.0)
		assert.NotNil(t, rej)
		assert.Equal(t, ReasonInsufficientFunds, rej.Reason)
	})

	t.Run("停牌拒绝", func(t *testing.T) {
		b := New(100000)
		bar := normalBar("2024-01-02", 10.0)
		bar.Volume = 0
		_, rej := b.AttemptBuy(bar, 10.0)
		assert.NotNil(t, rej)
		assert.Equal(t, ReasonHalted, rej.Reason)
	})

	t.Run("涨停封板拒绝", func(t *testing.T) {
		b := New(100000)
		bar := market.Bar{
			Date: "2024-01-02", Open: 10.5, High: 11.0, Low: 10.4,
			Close: 11.0, PrevClose: 10.0, Volume: 10000,
		}
		_, rej := b.AttemptBuy(bar, 11.0)
		assert.NotNil(t, rej)
		assert.Equal(t, ReasonLimitBlocked, rej.Reason)
	})
}

func TestBroker_AttemptSell(t *testing.T) {
	buyThenHold := func(t *testing.T) *Broker {
		t.Helper()
		b := New(100000)
		_, rej := b.AttemptBuy(normalBar("2024-01-02", 10.0), 10.0)
		assert.Nil(t, rej)
		return b
	}

	t.Run("次日全部卖出并收印花税", func(t *testing.T) {
		b := buyThenHold(t)
		trade, rej := b.AttemptSell(normalBar("2024-01-03", 11.0), 11.0)
		assert.Nil(t, rej)
		assert.Equal(t, int64(9900), trade.Shares)
		assert.InDelta(t, 108900.0, trade.Value, 1e-9)
		assert.InDelta(t, 10.89, trade.Costs.Commission, 1e-9)
		assert.InDelta(t, 1.089, trade.Costs.Transfer, 1e-9)
		assert.InDelta(t, 54.45, trade.Costs.StampDuty, 1e-9)
		assert.Equal(t, int64(0), b.Shares())
		assert.InDelta(t, 989.11+108900.0-66.429, b.Cash(), 1e-6)
	})

	t.Run("当日卖出触发T+1限制", func(t *testing.T) {
		b := buyThenHold(t)
		_, rej := b.AttemptSell(normalBar("2024-01-02", 11.0), 11.0)
		assert.NotNil(t, rej)
		assert.Equal(t, ReasonSettlementLocked, rej.Reason)
		assert.Equal(t, int64(9900), b.Shares())
	})

	t.Run("无持仓拒绝", func(t *testing.T) {
		b := New(100000)
		_, rej := b.AttemptSell(normalBar("2024-01-03", 11.0), 11.0)
		assert.NotNil(t, rej)
		assert.Equal(t, ReasonNoPosition, rej.Reason)
	})

	t.Run("跌停封板拒绝", func(t *testing.T) {
		b := buyThenHold(t)
		bar := market.Bar{
			Date: "2024-01-03", Open: 9.2, High: 9.5, Low: 9.0,
			Close: 9.0, PrevClose: 10.0, Volume: 10000,
		}
		_, rej := b.AttemptSell(bar, 9.0)
		assert.NotNil(t, rej)
		assert.Equal(t, ReasonLimitBlocked, rej.Reason)
	})

	t.Run("一字板高于昨收买不进低于昨收卖不出", func(t *testing.T) {
		b := buyThenHold(t)
		bar := market.Bar{
			Date: "2024-01-03", Open: 9.7, High: 9.7, Low: 9.7,
			Close: 9.7, PrevClose: 10.0, Volume: 10000,
		}
		_, rej := b.AttemptSell(bar, 9.7)
		assert.NotNil(t, rej)
		assert.Equal(t, ReasonLimitBlocked, rej.Reason)

		b2 := New(100000)
		bar2 := market.Bar{
			Date: "2024-01-02", Open: 10.3, High: 10.3, Low: 10.3,
			Close: 10.3, PrevClose: 10.0, Volume: 10000,
		}
		_, rej2 := b2.AttemptBuy(bar2, 10.3)
		assert.NotNil(t, rej2)
		assert.Equal(t, ReasonLimitBlocked, rej2.Reason)
	})
}

func TestBroker_Ledger(t *testing.T) {
	b := New(100000)
	b.AttemptBuy(normalBar("2024-01-02", 10.0), 10.0)
	b.AttemptSell(normalBar("2024-01-03", 10.5), 10.5)

	ledger := b.Ledger()
	assert.Len(t, ledger, 2)
	assert.Equal(t, SideBuy, ledger[0].Side)
	assert.Equal(t, SideSell, ledger[1].Side)
	// 副本语义：外部修改不影响内部流水
	ledger[0].Shares = 0
	assert.Equal(t, int64(9900), b.Ledger()[0].Shares)
	// 现金始终非负
	assert.GreaterOrEqual(t, b.Cash(), 0.0)
}
