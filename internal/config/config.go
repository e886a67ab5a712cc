package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取 YAML 配置并完成三步处理：
// 按 include 声明自底向上合并文件、对未显式设置的键补默认值、整体校验。
// include 引用的文件先于引用者合并，引用者的同名键覆盖被引用者。
func Load(path string) (*Config, error) {
	files, err := expandIncludes(path)
	if err != nil {
		return nil, err
	}
	merged := viper.New()
	merged.SetConfigType("yaml")
	for _, file := range files {
		sub := viper.New()
		sub.SetConfigFile(file)
		if err := sub.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败 (%s): %w", file, err)
		}
		if err := merged.MergeConfigMap(sub.AllSettings()); err != nil {
			return nil, fmt.Errorf("合并配置失败 (%s): %w", file, err)
		}
	}

	var cfg Config
	if err := merged.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "toml"
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 显式出现在文件里的键不再套默认值，即使值是零值（如 render_png: false）。
	set := make(keySet)
	markKeys("", merged.AllSettings(), set)
	cfg.applyDefaults(set)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// expandIncludes 展开 include 链，返回按合并顺序排列的文件列表（被引用者在前）。
func expandIncludes(path string) ([]string, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("配置路径不能为空")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &includeWalker{seen: make(map[string]bool), active: make(map[string]bool)}
	if err := w.walk(abs); err != nil {
		return nil, err
	}
	return w.ordered, nil
}

type includeWalker struct {
	seen    map[string]bool // 已合并过的文件，重复引用只合并一次
	active  map[string]bool // 当前递归路径，用于环检测
	ordered []string
}

func (w *includeWalker) walk(path string) error {
	path = filepath.Clean(path)
	if w.active[path] {
		return fmt.Errorf("include 出现循环引用: %s", path)
	}
	if w.seen[path] {
		return nil
	}
	w.active[path] = true
	defer delete(w.active, path)

	includes, err := readIncludeList(path)
	if err != nil {
		return fmt.Errorf("解析 include 失败 (%s): %w", path, err)
	}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := w.walk(inc); err != nil {
			return err
		}
	}
	w.seen[path] = true
	w.ordered = append(w.ordered, path)
	return nil
}

func readIncludeList(path string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	raw := v.Get("include")
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		if strs, ok := raw.([]string); ok {
			items = make([]any, len(strs))
			for i, s := range strs {
				items[i] = s
			}
		} else {
			return nil, fmt.Errorf("include 必须是字符串数组")
		}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("include 只支持字符串")
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

// markKeys 把 viper 的嵌套 settings 压平成 "a.b.c" 形式记入 keySet。
func markKeys(prefix string, node any, dest keySet) {
	join := func(k string) string {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || prefix == "" {
			return k
		}
		return prefix + "." + k
	}
	switch val := node.(type) {
	case map[string]any:
		for k, v := range val {
			if next := join(k); next != "" {
				markKeys(next, v, dest)
			}
		}
	case map[any]any:
		for k, v := range val {
			s, ok := k.(string)
			if !ok {
				continue
			}
			if next := join(s); next != "" {
				markKeys(next, v, dest)
			}
		}
	default:
		if prefix != "" {
			dest.mark(prefix)
		}
	}
}