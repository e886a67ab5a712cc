package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"huice/internal/indicator"
	"huice/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Profile 描述一套回测参数模板（MACD 周期 + 初始资金）。
// InitialCash 为 0 表示模板未指定初始资金，由全局配置兜底。
type Profile struct {
	ID          string  `mapstructure:"id" yaml:"id" json:"id"`
	Description string  `mapstructure:"description" yaml:"description" json:"description"`
	InitialCash float64 `mapstructure:"initial_cash" yaml:"initial_cash" json:"initial_cash"`
	Fast        int     `mapstructure:"fast" yaml:"fast" json:"fast"`
	Slow        int     `mapstructure:"slow" yaml:"slow" json:"slow"`
	Signal      int     `mapstructure:"signal" yaml:"signal" json:"signal"`
}

// FileConfig 映射 profiles 配置文件。
type FileConfig struct {
	Profiles map[string]Profile `yaml:"profiles"`
}

// Snapshot 公开的模板快照。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Profiles map[string]Profile
}

// DefaultProfile 为未配置文件时的兜底参数（标准 MACD，10 万初始资金）。
var DefaultProfile = Profile{
	ID:          "default",
	Description: "标准 MACD 金叉死叉",
	InitialCash: 100000,
	Fast:        indicator.DefaultFast,
	Slow:        indicator.DefaultSlow,
	Signal:      indicator.DefaultSignal,
}

// profileSchema 校验单个 profile 的字段形态，挡掉改错配置后整批回测跑偏的情况。
const profileSchema = `{
	"type": "object",
	"properties": {
		"id": {"type": "string"},
		"description": {"type": "string"},
		"initial_cash": {"type": "number", "minimum": 0},
		"fast": {"type": "integer", "minimum": 1},
		"slow": {"type": "integer", "minimum": 1},
		"signal": {"type": "integer", "minimum": 1}
	},
	"additionalProperties": false
}`

var compiledSchema = jsonschema.MustCompileString("profile.json", profileSchema)

// Registry 管理 profile 模板，文件变更时热加载。
type Registry struct {
	path string
	v    *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewRegistry 读取配置文件并监听更新。path 为空时返回只含 default 的静态注册表。
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: strings.TrimSpace(path)}
	if r.path == "" {
		r.snapshot = Snapshot{
			Version:  1,
			LoadedAt: time.Now(),
			Profiles: map[string]Profile{DefaultProfile.ID: DefaultProfile},
		}
		return r, nil
	}
	v := viper.New()
	v.SetConfigFile(r.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取 profile 配置失败: %w", err)
	}
	r.v = v
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("profile 热加载失败: %v", err)
		}
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot 返回当前模板集副本。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// Get 返回指定 ID 的 profile；ID 为空时返回 default。
func (r *Registry) Get(id string) (Profile, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = DefaultProfile.ID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.snapshot.Profiles[id]
	return p, ok
}

func (r *Registry) reload() error {
	cfg, err := readProfileFile(r.path)
	if err != nil {
		return err
	}
	profiles := make(map[string]Profile, len(cfg.Profiles)+1)
	profiles[DefaultProfile.ID] = DefaultProfile
	for name, p := range cfg.Profiles {
		norm, err := normalizeProfile(name, p)
		if err != nil {
			return err
		}
		profiles[norm.ID] = norm
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Profiles: profiles,
	}
	r.mu.Unlock()
	logger.Infof("profile 注册表已加载 %d 套模板（%s）", len(profiles), filepath.Base(r.path))
	return nil
}

func normalizeProfile(name string, p Profile) (Profile, error) {
	p.ID = strings.TrimSpace(p.ID)
	if p.ID == "" {
		p.ID = strings.TrimSpace(name)
	}
	p.Description = strings.TrimSpace(p.Description)
	if p.Fast <= 0 {
		p.Fast = DefaultProfile.Fast
	}
	if p.Slow <= 0 {
		p.Slow = DefaultProfile.Slow
	}
	if p.Signal <= 0 {
		p.Signal = DefaultProfile.Signal
	}
	if err := validateProfile(p); err != nil {
		return Profile{}, fmt.Errorf("profile %s 非法: %w", p.ID, err)
	}
	if p.Fast >= p.Slow {
		return Profile{}, fmt.Errorf("profile %s 非法: 快线周期必须小于慢线周期", p.ID)
	}
	return p, nil
}

func validateProfile(p Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return compiledSchema.Validate(doc)
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Profiles: make(map[string]Profile, len(src.Profiles)),
	}
	for id, p := range src.Profiles {
		dst.Profiles[id] = p
	}
	return dst
}

func readProfileFile(path string) (FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("读取 profile 配置失败: %w", err)
	}
	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return FileConfig{}, fmt.Errorf("解析 profile 配置失败: %w", err)
	}
	return cfg, nil
}
