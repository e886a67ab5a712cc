package datasource

import (
	"fmt"

	"huice/internal/market"

	"github.com/tidwall/gjson"
)

// jsonKeyAliases 按优先级列出每个字段可能出现的 JSON 键。
var jsonKeyAliases = map[string][]string{
	"date":   {"date", "time", "日期"},
	"open":   {"open", "开盘"},
	"high":   {"high", "最高"},
	"low":    {"low", "最低"},
	"close":  {"close", "收盘"},
	"volume": {"volume", "vol", "成交量"},
	"symbol": {"symbol", "code", "股票代码"},
}

// NormalizeRecords 把 HTTP 导入的 JSON 数组转为标准行。
// 各家数据源字段名与类型并不统一（数字有时是字符串），用 gjson 做宽松提取；
// 缺少必需价格字段的记录视为数据形态错误，整批拒绝。
func NormalizeRecords(raw []byte) ([]Row, error) {
	parsed := gjson.ParseBytes(raw)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("导入数据必须是 JSON 数组")
	}
	var rows []Row
	var badIdx int
	var badField string
	ok := true
	parsed.ForEach(func(_, item gjson.Result) bool {
		idx := len(rows)
		bar := market.Bar{Volume: defaultVolume}
		bar.Date = normalizeDate(pick(item, "date").String())
		if bar.Date == "" {
			badIdx, badField, ok = idx, "date", false
			return false
		}
		for _, field := range []struct {
			name string
			dst  *float64
		}{
			{"open", &bar.Open},
			{"high", &bar.High},
			{"low", &bar.Low},
			{"close", &bar.Close},
		} {
			v := pick(item, field.name)
			if !v.Exists() {
				badIdx, badField, ok = idx, field.name, false
				return false
			}
			*field.dst = v.Float()
		}
		if v := pick(item, "volume"); v.Exists() {
			bar.Volume = v.Float()
		}
		rows = append(rows, Row{Symbol: pick(item, "symbol").String(), Bar: bar})
		return true
	})
	if !ok {
		return nil, fmt.Errorf("第 %d 条记录缺少 %q 字段", badIdx+1, badField)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("导入数据为空")
	}
	return rows, nil
}

func pick(item gjson.Result, field string) gjson.Result {
	for _, key := range jsonKeyAliases[field] {
		if v := item.Get(key); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}
