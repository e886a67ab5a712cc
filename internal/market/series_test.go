package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Run("排序去重并回填昨收", func(t *testing.T) {
		bars := []Bar{
			{Date: "2024-01-03", Open: 10.2, High: 10.5, Low: 10.0, Close: 10.4, Volume: 100},
			{Date: "2024-01-02", Open: 10.0, High: 10.3, Low: 9.9, Close: 10.1, Volume: 100},
			{Date: "2024-01-03", Open: 10.3, High: 10.6, Low: 10.1, Close: 10.5, Volume: 120},
		}
		got, err := Normalize(bars)
		assert.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, "2024-01-02", got[0].Date)
		assert.Equal(t, 0.0, got[0].PrevClose)
		// 同日重复保留后出现的行
		assert.Equal(t, 10.5, got[1].Close)
		assert.Equal(t, 10.1, got[1].PrevClose)
	})

	t.Run("剔除非正价格脏数据", func(t *testing.T) {
		bars := []Bar{
			{Date: "2024-01-02", High: 10.3, Low: 9.9, Close: 10.1},
			{Date: "2024-01-03", High: 0, Low: 0, Close: 0},
			{Date: "2024-01-04", High: 10.8, Low: 10.2, Close: 10.6},
		}
		got, err := Normalize(bars)
		assert.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, "2024-01-04", got[1].Date)
		assert.Equal(t, 10.1, got[1].PrevClose)
	})

	t.Run("缺失日期直接报错", func(t *testing.T) {
		_, err := Normalize([]Bar{{Date: "", High: 10, Low: 9, Close: 9.5}})
		assert.Error(t, err)
	})

	t.Run("高低价倒挂直接报错", func(t *testing.T) {
		_, err := Normalize([]Bar{{Date: "2024-01-02", High: 9.5, Low: 10, Close: 9.8}})
		assert.Error(t, err)
	})

	t.Run("不修改输入切片", func(t *testing.T) {
		bars := []Bar{
			{Date: "2024-01-03", High: 10.5, Low: 10.0, Close: 10.4},
			{Date: "2024-01-02", High: 10.3, Low: 9.9, Close: 10.1},
		}
		got, err := Normalize(bars)
		assert.NoError(t, err)
		got[0].Close = 99
		assert.Equal(t, 10.1, bars[1].Close)
	})
}

func TestBarHelpers(t *testing.T) {
	assert.True(t, Bar{Volume: 0}.Halted())
	assert.False(t, Bar{Volume: 1000}.Halted())
	assert.True(t, Bar{PrevClose: 10}.HasPrevClose())
	assert.False(t, Bar{}.HasPrevClose())

	closes := Closes([]Bar{{Close: 1.1}, {Close: 2.2}})
	assert.Equal(t, []float64{1.1, 2.2}, closes)
}
