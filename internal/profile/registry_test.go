package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewRegistry(t *testing.T) {
	t.Run("空路径只含default", func(t *testing.T) {
		r, err := NewRegistry("")
		assert.NoError(t, err)
		p, ok := r.Get("")
		assert.True(t, ok)
		assert.Equal(t, DefaultProfile, p)
		assert.Len(t, r.Snapshot().Profiles, 1)
	})

	t.Run("加载并补全默认参数", func(t *testing.T) {
		path := writeProfiles(t, `
profiles:
  sensitive:
    description: 短周期
    fast: 6
    slow: 13
    signal: 5
  minimal: {}
`)
		r, err := NewRegistry(path)
		assert.NoError(t, err)

		p, ok := r.Get("sensitive")
		assert.True(t, ok)
		assert.Equal(t, 6, p.Fast)
		assert.Equal(t, 0.0, p.InitialCash) // 未写时留 0，由全局配置兜底

		m, ok := r.Get("minimal")
		assert.True(t, ok)
		assert.Equal(t, DefaultProfile.Fast, m.Fast)
		assert.Equal(t, "minimal", m.ID) // ID 缺省取键名

		_, ok = r.Get("default")
		assert.True(t, ok)
	})

	t.Run("快线不小于慢线报错", func(t *testing.T) {
		path := writeProfiles(t, `
profiles:
  broken:
    fast: 26
    slow: 12
`)
		_, err := NewRegistry(path)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "快线周期必须小于慢线周期")
	})

	t.Run("未知字段报错", func(t *testing.T) {
		path := writeProfiles(t, `
profiles:
  typo:
    fsat: 12
`)
		_, err := NewRegistry(path)
		assert.Error(t, err)
	})

	t.Run("未知ID查不到", func(t *testing.T) {
		r, err := NewRegistry("")
		assert.NoError(t, err)
		_, ok := r.Get("nope")
		assert.False(t, ok)
	})
}

func TestNormalizeProfile(t *testing.T) {
	t.Run("非正周期回退默认值", func(t *testing.T) {
		p, err := normalizeProfile("fallback", Profile{Fast: 0, Slow: 0, Signal: -3})
		assert.NoError(t, err)
		assert.Equal(t, DefaultProfile.Signal, p.Signal)
	})

	t.Run("未指定初始资金保持为零", func(t *testing.T) {
		p, err := normalizeProfile("nocash", Profile{Fast: 12, Slow: 26, Signal: 9})
		assert.NoError(t, err)
		assert.Equal(t, 0.0, p.InitialCash)
	})

	t.Run("负初始资金被schema拒绝", func(t *testing.T) {
		_, err := normalizeProfile("negcash", Profile{InitialCash: -1, Fast: 12, Slow: 26, Signal: 9})
		assert.Error(t, err)
	})

	t.Run("schema挡住非法数值", func(t *testing.T) {
		err := validateProfile(Profile{ID: "bad", InitialCash: 100000, Fast: 12, Slow: 26, Signal: -3})
		assert.Error(t, err)
	})

	t.Run("合法输入原样通过", func(t *testing.T) {
		p, err := normalizeProfile("ok", Profile{ID: "ok", InitialCash: 50000, Fast: 5, Slow: 20, Signal: 7})
		assert.NoError(t, err)
		assert.Equal(t, 50000.0, p.InitialCash)
	})
}
