package datasource

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"huice/internal/logger"
	"huice/internal/market"
	"huice/internal/pkg/symbol"
)

// BarWriter 是行情落库的最小接口，由 backtest.Store 实现。
type BarWriter interface {
	InsertBars(ctx context.Context, symbol string, bars []market.Bar) (int, error)
}

// defaultVolume 为缺少成交量列时的占位；非零保证不会被误判为停牌。
const defaultVolume = 10000

// Row 为一行导入数据：标的代码 + 日线。代码列缺失时 Symbol 为空，由调用方兜底。
type Row struct {
	Symbol string
	Bar    market.Bar
}

// 中英文列名到标准字段的映射。导出数据源五花八门，两套都认。
var columnAliases = map[string]string{
	"日期": "date", "date": "date", "time": "date",
	"开盘": "open", "open": "open",
	"最高": "high", "high": "high",
	"最低": "low", "low": "low",
	"收盘": "close", "close": "close",
	"成交量": "volume", "volume": "volume", "vol": "volume",
	"股票代码": "symbol", "symbol": "symbol", "code": "symbol",
	"股票名称": "name", "name": "name",
}

// ParseCSV 解析日线 CSV。必需列：日期/开盘/最高/最低/收盘；
// 成交量缺失时按占位量处理；无法识别的列忽略。
// 列缺失或数值解析失败属于数据形态错误，整个文件报错（该标的跳过，批次继续）。
func ParseCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}
	cols := make(map[string]int)
	for i, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if std, ok := columnAliases[strings.ToLower(name)]; ok {
			cols[std] = i
		}
	}
	for _, required := range []string{"date", "open", "high", "low", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("数据中缺少 %q 列", required)
		}
	}

	var rows []Row
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("第 %d 行解析失败: %w", line, err)
		}
		bar := market.Bar{Date: normalizeDate(record[cols["date"]]), Volume: defaultVolume}
		if bar.Date == "" {
			return nil, fmt.Errorf("第 %d 行日期为空", line)
		}
		if bar.Open, err = parseFloat(record[cols["open"]]); err != nil {
			return nil, fmt.Errorf("第 %d 行开盘价非法: %w", line, err)
		}
		if bar.High, err = parseFloat(record[cols["high"]]); err != nil {
			return nil, fmt.Errorf("第 %d 行最高价非法: %w", line, err)
		}
		if bar.Low, err = parseFloat(record[cols["low"]]); err != nil {
			return nil, fmt.Errorf("第 %d 行最低价非法: %w", line, err)
		}
		if bar.Close, err = parseFloat(record[cols["close"]]); err != nil {
			return nil, fmt.Errorf("第 %d 行收盘价非法: %w", line, err)
		}
		if idx, ok := cols["volume"]; ok {
			if bar.Volume, err = parseFloat(record[idx]); err != nil {
				return nil, fmt.Errorf("第 %d 行成交量非法: %w", line, err)
			}
		}
		row := Row{Bar: bar}
		if idx, ok := cols["symbol"]; ok {
			row.Symbol = strings.TrimSpace(record[idx])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ImportFile 把一个 CSV 文件导入行情库。
// 文件带股票代码列时按代码分组写入多个标的；否则全部写入 fallbackSymbol
//（通常取文件名）。返回每个标的写入的行数。
func ImportFile(ctx context.Context, store BarWriter, path, fallbackSymbol string) (map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("导入 %s 失败: %w", filepath.Base(path), err)
	}
	if fallbackSymbol == "" {
		fallbackSymbol = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return ImportRows(ctx, store, rows, fallbackSymbol)
}

// ImportDir 导入目录内全部 CSV，一个文件一个标的（文件名即代码）。
// 单个文件的数据形态错误只记日志并跳过。
func ImportDir(ctx context.Context, store BarWriter, dir string) (map[string]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	total := make(map[string]int)
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		counts, err := ImportFile(ctx, store, filepath.Join(dir, e.Name()), "")
		if err != nil {
			logger.Warnf("[import] 跳过 %s: %v", e.Name(), err)
			continue
		}
		for symbol, n := range counts {
			total[symbol] += n
		}
	}
	return total, nil
}

// ImportRows 按标的分组写入行情库，Symbol 为空的行归入 fallbackSymbol。
// 代码写法统一（600519.SH、sh600519 均归一为 600519），不可识别的保留原样。
func ImportRows(ctx context.Context, store BarWriter, rows []Row, fallbackSymbol string) (map[string]int, error) {
	grouped := make(map[string][]market.Bar)
	for _, row := range rows {
		sym := row.Symbol
		if sym == "" {
			sym = fallbackSymbol
		}
		if norm := symbol.Normalize(sym); norm != "" {
			sym = norm
		}
		grouped[sym] = append(grouped[sym], row.Bar)
	}
	counts := make(map[string]int, len(grouped))
	symbols := make([]string, 0, len(grouped))
	for symbol := range grouped {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	for _, symbol := range symbols {
		n, err := store.InsertBars(ctx, symbol, grouped[symbol])
		if err != nil {
			return nil, fmt.Errorf("写入 %s 行情失败: %w", symbol, err)
		}
		counts[symbol] = n
		logger.Infof("[import] %s: 写入 %d 根日线", symbol, n)
	}
	return counts, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// normalizeDate 把 2024/1/2、20240102 等写法统一为 2024-01-02。
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "/", "-")
	parts := strings.Split(s, "-")
	if len(parts) == 3 {
		if len(parts[1]) == 1 {
			parts[1] = "0" + parts[1]
		}
		if len(parts[2]) == 1 {
			parts[2] = "0" + parts[2]
		}
		return strings.Join(parts, "-")
	}
	if len(s) == 8 {
		return s[:4] + "-" + s[4:6] + "-" + s[6:]
	}
	return s
}
