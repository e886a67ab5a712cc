package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitLocked(t *testing.T) {
	t.Run("主板10%涨停", func(t *testing.T) {
		assert.True(t, limitLocked(11.0, 10.0, 11.0, 10.2, true))
	})

	t.Run("创业板20%涨停", func(t *testing.T) {
		assert.True(t, limitLocked(12.0, 10.0, 12.0, 10.5, true))
	})

	t.Run("ST股5%跌停", func(t *testing.T) {
		assert.True(t, limitLocked(9.5, 10.0, 10.1, 9.5, false))
	})

	t.Run("北交所30%涨停", func(t *testing.T) {
		assert.True(t, limitLocked(13.0, 10.0, 13.0, 11.0, true))
	})

	t.Run("价格到达停板价但盘中回落不算封板", func(t *testing.T) {
		// 最高价冲过 11.00 后回落，11.00 不再是当日极值
		assert.False(t, limitLocked(11.0, 10.0, 11.5, 10.2, true))
	})

	t.Run("普通价格不封板", func(t *testing.T) {
		assert.False(t, limitLocked(10.4, 10.0, 10.4, 10.0, true))
		assert.False(t, limitLocked(9.8, 10.0, 10.2, 9.8, false))
	})

	t.Run("昨收缺失不判断", func(t *testing.T) {
		assert.False(t, limitLocked(11.0, 0, 11.0, 10.2, true))
	})

	t.Run("舍入后一分钱以内算封板", func(t *testing.T) {
		// 昨收 3.33，10% 理论涨停 3.663 → 3.66
		assert.True(t, limitLocked(3.66, 3.33, 3.66, 3.4, true))
		assert.True(t, limitLocked(3.67, 3.33, 3.67, 3.4, true))
		assert.False(t, limitLocked(3.69, 3.33, 3.69, 3.4, true))
	})

	t.Run("半分钱边界按银行家舍入取偶", func(t *testing.T) {
		// 昨收 3.35，10% 理论涨停 3.685 → 取偶得 3.68（而非 3.69）
		assert.True(t, limitLocked(3.68, 3.35, 3.68, 3.4, true))
		assert.True(t, limitLocked(3.67, 3.35, 3.67, 3.4, true))
		assert.False(t, limitLocked(3.70, 3.35, 3.70, 3.4, true))
	})

	t.Run("一字板按昨收方向判断", func(t *testing.T) {
		assert.True(t, limitLocked(10.3, 10.0, 10.3, 10.3, true))   // 高开一字，买不进
		assert.True(t, limitLocked(9.7, 10.0, 9.7, 9.7, false))     // 低开一字，卖不出
		assert.False(t, limitLocked(9.7, 10.0, 9.7, 9.7, true))     // 低开一字可以买
		assert.False(t, limitLocked(10.3, 10.0, 10.3, 10.3, false)) // 高开一字可以卖
	})
}
