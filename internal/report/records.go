package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"huice/internal/backtest"
	"huice/internal/broker"
)

// TradeRecord 是单笔账单流水，卖出行额外带配对盈亏与双边费用。
type TradeRecord struct {
	Symbol       string  `json:"symbol"`
	Date         string  `json:"date"`
	Side         string  `json:"side"`
	Price        float64 `json:"price"`
	Shares       int64   `json:"shares"`
	Value        float64 `json:"value"`
	Fee          float64 `json:"fee"`
	RoundTripFee float64 `json:"round_trip_fee"` // 买卖双边合计，仅卖出行
	CashAfter    float64 `json:"cash_after"`
	Shareholding int64   `json:"shareholding"`
	TotalAsset   float64 `json:"total_asset"`
	PairProfit   float64 `json:"pair_profit"` // 扣费后单笔盈亏，仅卖出行
}

// BuildRecords 把撮合流水展开为账单流水：
// 买入行按成交价估总资产，卖出行回填配对盈亏与买卖双边费用。
func BuildRecords(symbol string, trades []broker.Trade) []TradeRecord {
	records := make([]TradeRecord, 0, len(trades))
	var holding int64
	var lastBuyValue, lastBuyFee float64
	for _, t := range trades {
		rec := TradeRecord{
			Symbol:    symbol,
			Date:      t.Date,
			Price:     t.Price,
			Shares:    t.Shares,
			Value:     t.Value,
			Fee:       t.Fee,
			CashAfter: t.CashAfter,
		}
		if t.Side == broker.SideBuy {
			rec.Side = "买入"
			holding += t.Shares
			rec.Shareholding = holding
			rec.TotalAsset = t.CashAfter + float64(holding)*t.Price
			lastBuyValue = t.Value
			lastBuyFee = t.Fee
		} else {
			rec.Side = "卖出"
			holding -= t.Shares
			rec.Shareholding = holding
			rec.TotalAsset = t.CashAfter
			rec.RoundTripFee = lastBuyFee + t.Fee
			rec.PairProfit = t.Value - lastBuyValue - rec.RoundTripFee
		}
		records = append(records, rec)
	}
	return records
}

var recordHeader = []string{
	"股票代码", "交易日期", "买卖方向", "成交价格", "成交数量(股)",
	"交易金额", "当笔费用", "买卖双边总费用", "可用现金", "持有股数",
	"总资产", "单笔盈亏(扣费后)",
}

// WriteRecordsCSV 导出账单流水，带 BOM 方便 Excel 打开。
// 买入行的双边费用与单笔盈亏留空，表格更干净。
func WriteRecordsCSV(path string, records []TradeRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建流水文件失败: %w", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write(recordHeader); err != nil {
		return err
	}
	for _, rec := range records {
		roundTrip, profit := "", ""
		if rec.Side == "卖出" {
			roundTrip = money(rec.RoundTripFee)
			profit = money(rec.PairProfit)
		}
		row := []string{
			rec.Symbol,
			rec.Date,
			rec.Side,
			money(rec.Price),
			strconv.FormatInt(rec.Shares, 10),
			money(rec.Value),
			money(rec.Fee),
			roundTrip,
			money(rec.CashAfter),
			strconv.FormatInt(rec.Shareholding, 10),
			money(rec.TotalAsset),
			profit,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// RecordsPath 返回某标的流水文件的默认落盘位置。
func RecordsPath(dir, symbol string) string {
	return filepath.Join(dir, fmt.Sprintf("%s_trade_records.csv", symbol))
}

// SaveRecords 生成并落盘账单流水，返回文件路径。
func SaveRecords(dir string, result *backtest.ReplayResult) (string, error) {
	path := RecordsPath(dir, result.Symbol)
	if err := WriteRecordsCSV(path, BuildRecords(result.Symbol, result.Trades)); err != nil {
		return "", err
	}
	return path, nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
