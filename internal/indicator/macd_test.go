package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEMA(t *testing.T) {
	t.Run("递推与手算一致", func(t *testing.T) {
		// span=3 → k=0.5
		got := EMA([]float64{10, 12, 14, 13}, 3)
		assert.InDelta(t, 10.0, got[0], 1e-12)
		assert.InDelta(t, 11.0, got[1], 1e-12)  // 12*0.5 + 10*0.5
		assert.InDelta(t, 12.5, got[2], 1e-12)  // 14*0.5 + 11*0.5
		assert.InDelta(t, 12.75, got[3], 1e-12) // 13*0.5 + 12.5*0.5
	})

	t.Run("常数序列EMA不变", func(t *testing.T) {
		got := EMA([]float64{5, 5, 5, 5, 5}, 12)
		for _, v := range got {
			assert.InDelta(t, 5.0, v, 1e-12)
		}
	})

	t.Run("空输入与非法周期", func(t *testing.T) {
		assert.Nil(t, EMA(nil, 12))
		assert.Nil(t, EMA([]float64{1, 2}, 0))
	})
}

func TestMACD(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 10 + math.Sin(float64(i)/5)*2
	}

	t.Run("首根不可用且前值正确回填", func(t *testing.T) {
		frames := MACD(closes, 12, 26, 9)
		assert.Len(t, frames, 60)
		assert.False(t, frames[0].Ready)
		for i := 1; i < len(frames); i++ {
			assert.True(t, frames[i].Ready)
			assert.Equal(t, frames[i-1].DIF, frames[i].PrevDIF)
			assert.Equal(t, frames[i-1].DEA, frames[i].PrevDEA)
		}
	})

	t.Run("柱值为两倍离差", func(t *testing.T) {
		frames := MACD(closes, 12, 26, 9)
		for _, f := range frames {
			assert.InDelta(t, (f.DIF-f.DEA)*2, f.Hist, 1e-12)
		}
	})

	t.Run("常数序列无交叉", func(t *testing.T) {
		flat := make([]float64, 40)
		for i := range flat {
			flat[i] = 10
		}
		for _, f := range MACD(flat, 12, 26, 9) {
			assert.False(t, f.GoldenCross())
			assert.False(t, f.DeathCross())
			assert.InDelta(t, 0, f.DIF, 1e-12)
		}
	})

	t.Run("非法参数回退默认值", func(t *testing.T) {
		assert.Equal(t, MACD(closes, 0, 0, 0), MACD(closes, 12, 26, 9))
	})
}

func TestFrameCross(t *testing.T) {
	t.Run("金叉", func(t *testing.T) {
		f := Frame{DIF: 0.5, DEA: 0.3, PrevDIF: 0.2, PrevDEA: 0.3, Ready: true}
		assert.True(t, f.GoldenCross())
		assert.False(t, f.DeathCross())
	})

	t.Run("死叉", func(t *testing.T) {
		f := Frame{DIF: 0.1, DEA: 0.3, PrevDIF: 0.4, PrevDEA: 0.3, Ready: true}
		assert.True(t, f.DeathCross())
	})

	t.Run("持续在上方不算金叉", func(t *testing.T) {
		f := Frame{DIF: 0.5, DEA: 0.3, PrevDIF: 0.4, PrevDEA: 0.3, Ready: true}
		assert.False(t, f.GoldenCross())
	})

	t.Run("未就绪不产生信号", func(t *testing.T) {
		f := Frame{DIF: 0.5, DEA: 0.3, PrevDIF: 0.2, PrevDEA: 0.3}
		assert.False(t, f.GoldenCross())
	})
}

func TestMovingAverages(t *testing.T) {
	closes := make([]float64, 70)
	for i := range closes {
		closes[i] = float64(i + 1)
	}
	overlay := MovingAverages(closes)

	assert.True(t, math.IsNaN(overlay.MA5[3]))
	assert.InDelta(t, 3.0, overlay.MA5[4], 1e-9) // (1+2+3+4+5)/5
	assert.True(t, math.IsNaN(overlay.MA20[18]))
	assert.InDelta(t, 10.5, overlay.MA20[19], 1e-9)
	assert.True(t, math.IsNaN(overlay.MA60[58]))
	assert.InDelta(t, 30.5, overlay.MA60[59], 1e-9)
}
