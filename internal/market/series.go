package market

import (
	"fmt"
	"sort"
)

// MinHistoryBars 为一次回测要求的最少有效 K 线数量，
// 低于该值时 MACD(12/26/9) 尚未收敛，整只股票跳过。
const MinHistoryBars = 35

// ErrInsufficientHistory 表示该标的有效历史不足，属于数据类致命错误（单标的级别）。
var ErrInsufficientHistory = fmt.Errorf("有效历史 K 线不足 %d 根", MinHistoryBars)

// Normalize 对原始日线做上游预清洗：
// 剔除高/低/收任一非正的脏数据行，按日期升序排序并去重（保留后出现的行），
// 然后以前一根收盘价回填 PrevClose。首日 PrevClose 保持 0。
func Normalize(bars []Bar) ([]Bar, error) {
	cleaned := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if b.Date == "" {
			return nil, fmt.Errorf("存在缺失日期的行")
		}
		if b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
			continue
		}
		if b.High < b.Low {
			return nil, fmt.Errorf("日期 %s 最高价低于最低价", b.Date)
		}
		cleaned = append(cleaned, b)
	}
	sort.SliceStable(cleaned, func(i, j int) bool { return cleaned[i].Date < cleaned[j].Date })
	deduped := cleaned[:0]
	for _, b := range cleaned {
		if n := len(deduped); n > 0 && deduped[n-1].Date == b.Date {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	for i := range deduped {
		if i == 0 {
			deduped[i].PrevClose = 0
			continue
		}
		deduped[i].PrevClose = deduped[i-1].Close
	}
	out := append([]Bar(nil), deduped...)
	return out, nil
}

// Closes 提取收盘价序列。
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
