package indicator

import (
	"math"

	talib "github.com/markcheno/go-talib"
)

// MAOverlay 为行情图叠加的均线组（5/20/60 日），
// 未满窗口期的前段置为 NaN，图表端据此跳过。
type MAOverlay struct {
	MA5  []float64 `json:"ma5"`
	MA20 []float64 `json:"ma20"`
	MA60 []float64 `json:"ma60"`
}

// MovingAverages 计算均线组。数据不足某个窗口时对应均线整列为 NaN。
func MovingAverages(closes []float64) MAOverlay {
	return MAOverlay{
		MA5:  sma(closes, 5),
		MA20: sma(closes, 20),
		MA60: sma(closes, 60),
	}
}

func sma(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	if len(closes) < period {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	copy(out, talib.Sma(closes, period))
	for i := 0; i < period-1 && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}
