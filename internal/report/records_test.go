package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"huice/internal/broker"

	"github.com/stretchr/testify/assert"
)

func sampleTrades() []broker.Trade {
	return []broker.Trade{
		{Date: "2024-01-02", Side: broker.SideBuy, Price: 10, Shares: 9900, Value: 99000, Fee: 10.89, CashAfter: 989.11},
		{Date: "2024-02-01", Side: broker.SideSell, Price: 11, Shares: 9900, Value: 108900, Fee: 66.429, CashAfter: 109822.681},
	}
}

func TestBuildRecords(t *testing.T) {
	records := BuildRecords("600519", sampleTrades())
	assert.Len(t, records, 2)

	buy := records[0]
	assert.Equal(t, "买入", buy.Side)
	assert.Equal(t, int64(9900), buy.Shareholding)
	assert.InDelta(t, 989.11+9900*10, buy.TotalAsset, 1e-9) // 买入行按成交价估总资产
	assert.Equal(t, 0.0, buy.RoundTripFee)

	sell := records[1]
	assert.Equal(t, "卖出", sell.Side)
	assert.Equal(t, int64(0), sell.Shareholding)
	assert.InDelta(t, 109822.681, sell.TotalAsset, 1e-9)
	assert.InDelta(t, 77.319, sell.RoundTripFee, 1e-9) // 买卖双边费用合计
	assert.InDelta(t, 108900-99000-77.319, sell.PairProfit, 1e-9)
}

func TestWriteRecordsCSV(t *testing.T) {
	dir := t.TempDir()
	path := RecordsPath(dir, "600519")
	err := WriteRecordsCSV(path, BuildRecords("600519", sampleTrades()))
	assert.NoError(t, err)

	raw, err := os.ReadFile(path)
	assert.NoError(t, err)
	content := string(raw)
	assert.True(t, strings.HasPrefix(content, "\xEF\xBB\xBF"), "应带 UTF-8 BOM")
	assert.Contains(t, content, "单笔盈亏(扣费后)")
	lines := strings.Split(strings.TrimSpace(content), "\n")
	assert.Len(t, lines, 3)
	// 买入行双边费用与盈亏留空
	assert.Contains(t, lines[1], ",,")
	assert.Equal(t, "600519_trade_records.csv", filepath.Base(path))
}
