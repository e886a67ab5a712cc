package broker

import (
	"math"

	"github.com/shopspring/decimal"
)

// A 股现行涨跌幅档位：ST 股 5%、主板 10%、科创/创业板 20%、北交所 30%。
// 标的所属板块无法从行情本身得知，因此四档全部尝试匹配。
var limitBands = []decimal.Decimal{
	decimal.NewFromFloat(0.05),
	decimal.NewFromFloat(0.10),
	decimal.NewFromFloat(0.20),
	decimal.NewFromFloat(0.30),
}

var (
	decOne       = decimal.NewFromInt(1)
	priceEpsilon = decimal.NewFromFloat(0.01)
)

// limitLocked 判断候选成交价是否被涨/跌停封死。
// 这是对“封板排队吃不到量”的启发式近似，并不还原真实盘口深度：
//   - 昨收缺失或为 0 时不做判断；
//   - 一字板（全天最高价等于最低价）时，高于昨收买不进、低于昨收卖不出；
//   - 其余情况要求成交价恰好位于当日极值，且与某档理论停板价
//     昨收×(1±档位) 按银行家舍入保留两位后的偏差不超过 0.01 元。
func limitLocked(price, prevClose, high, low float64, isBuy bool) bool {
	if prevClose == 0 || math.IsNaN(prevClose) {
		return false
	}
	if high == low {
		if isBuy && price > prevClose {
			return true
		}
		if !isBuy && price < prevClose {
			return true
		}
	}
	pc := decimal.NewFromFloat(prevClose)
	px := decimal.NewFromFloat(price)
	if isBuy {
		if price != high {
			return false
		}
		for _, band := range limitBands {
			ceiling := pc.Mul(decOne.Add(band)).RoundBank(2)
			if px.Sub(ceiling).Abs().LessThanOrEqual(priceEpsilon) {
				return true
			}
		}
		return false
	}
	if price != low {
		return false
	}
	for _, band := range limitBands {
		floor := pc.Mul(decOne.Sub(band)).RoundBank(2)
		if px.Sub(floor).Abs().LessThanOrEqual(priceEpsilon) {
			return true
		}
	}
	return false
}
