package datasource

import (
	"context"
	"strings"
	"testing"

	"huice/internal/market"

	"github.com/stretchr/testify/assert"
)

type memWriter struct {
	bars map[string][]market.Bar
}

func newMemWriter() *memWriter {
	return &memWriter{bars: make(map[string][]market.Bar)}
}

func (m *memWriter) InsertBars(_ context.Context, symbol string, bars []market.Bar) (int, error) {
	m.bars[symbol] = append(m.bars[symbol], bars...)
	return len(bars), nil
}

func TestParseCSV(t *testing.T) {
	t.Run("中文表头", func(t *testing.T) {
		csv := "日期,股票代码,开盘,最高,最低,收盘,成交量\n" +
			"2024-01-02,600519,10.0,10.5,9.8,10.2,120000\n" +
			"2024/1/3,600519,10.2,10.8,10.1,10.6,98000\n"
		rows, err := ParseCSV(strings.NewReader(csv))
		assert.NoError(t, err)
		assert.Len(t, rows, 2)
		assert.Equal(t, "600519", rows[0].Symbol)
		assert.Equal(t, "2024-01-02", rows[0].Bar.Date)
		assert.Equal(t, "2024-01-03", rows[1].Bar.Date) // 斜杠日期归一化
		assert.Equal(t, 10.2, rows[0].Bar.Close)
		assert.Equal(t, 120000.0, rows[0].Bar.Volume)
	})

	t.Run("英文表头且无成交量", func(t *testing.T) {
		csv := "date,open,high,low,close\n20240102,10.0,10.5,9.8,10.2\n"
		rows, err := ParseCSV(strings.NewReader(csv))
		assert.NoError(t, err)
		assert.Equal(t, "2024-01-02", rows[0].Bar.Date) // 紧凑日期归一化
		assert.Equal(t, float64(defaultVolume), rows[0].Bar.Volume)
		assert.Empty(t, rows[0].Symbol)
	})

	t.Run("带BOM的表头", func(t *testing.T) {
		csv := "\ufeff日期,开盘,最高,最低,收盘\n2024-01-02,10,10.5,9.8,10.2\n"
		rows, err := ParseCSV(strings.NewReader(csv))
		assert.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("缺少必需列报错", func(t *testing.T) {
		csv := "日期,开盘,最高,最低\n2024-01-02,10,10.5,9.8\n"
		_, err := ParseCSV(strings.NewReader(csv))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "close")
	})

	t.Run("数值非法报行号", func(t *testing.T) {
		csv := "date,open,high,low,close\n2024-01-02,10,abc,9.8,10.2\n"
		_, err := ParseCSV(strings.NewReader(csv))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "第 2 行")
	})
}

func TestImportRows(t *testing.T) {
	t.Run("按标的分组并归一代码", func(t *testing.T) {
		w := newMemWriter()
		rows := []Row{
			{Symbol: "600519.SH", Bar: market.Bar{Date: "2024-01-02", Open: 10, High: 10.5, Low: 9.8, Close: 10.2, Volume: 1}},
			{Symbol: "sz000001", Bar: market.Bar{Date: "2024-01-02", Open: 8, High: 8.2, Low: 7.9, Close: 8.1, Volume: 1}},
			{Bar: market.Bar{Date: "2024-01-03", Open: 10, High: 10.5, Low: 9.8, Close: 10.2, Volume: 1}},
		}
		counts, err := ImportRows(context.Background(), w, rows, "600519")
		assert.NoError(t, err)
		assert.Equal(t, map[string]int{"600519": 2, "000001": 1}, counts)
		assert.Len(t, w.bars["600519"], 2)
	})
}

func TestNormalizeRecords(t *testing.T) {
	t.Run("宽松提取含字符串数字", func(t *testing.T) {
		raw := []byte(`[
			{"日期":"2024-01-02","股票代码":"600519","开盘":"10.0","最高":10.5,"最低":9.8,"收盘":10.2,"成交量":120000},
			{"date":"2024-01-03","symbol":"600519","open":10.2,"high":10.8,"low":10.1,"close":10.6}
		]`)
		rows, err := NormalizeRecords(raw)
		assert.NoError(t, err)
		assert.Len(t, rows, 2)
		assert.Equal(t, 10.0, rows[0].Bar.Open)
		assert.Equal(t, float64(defaultVolume), rows[1].Bar.Volume)
	})

	t.Run("缺字段整批拒绝", func(t *testing.T) {
		raw := []byte(`[{"date":"2024-01-02","open":10,"high":10.5,"low":9.8}]`)
		_, err := NormalizeRecords(raw)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "close")
	})

	t.Run("非数组拒绝", func(t *testing.T) {
		_, err := NormalizeRecords([]byte(`{"date":"2024-01-02"}`))
		assert.Error(t, err)
	})

	t.Run("空数组拒绝", func(t *testing.T) {
		_, err := NormalizeRecords([]byte(`[]`))
		assert.Error(t, err)
	})
}
