package market

// Bar 表示一根 A 股日线行情（后复权价）。
// PrevClose 为前一交易日收盘价，序列首日为 0（尚不可判定）。
// Volume 为 0 表示当日停牌。
type Bar struct {
	Date      string  `json:"date"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	PrevClose float64 `json:"prev_close"`
	Volume    float64 `json:"volume"`
}

// Halted 判断当日是否停牌。
func (b Bar) Halted() bool { return b.Volume == 0 }

// HasPrevClose 判断昨收价是否可用。
func (b Bar) HasPrevClose() bool { return b.PrevClose > 0 }
