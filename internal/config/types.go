package config

import "strings"

// Config 是回测服务的主配置载体。
type Config struct {
	App      AppConfig      `toml:"app"`
	Data     DataConfig     `toml:"data"`
	Backtest BacktestConfig `toml:"backtest"`
	Report   ReportConfig   `toml:"report"`
	Notify   NotifyConfig   `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

// DataConfig 描述行情库与 CSV 导入目录。
type DataConfig struct {
	BarDir    string `toml:"bar_dir"`    // 每个标的一个 SQLite 文件
	ImportDir string `toml:"import_dir"` // 批量导入 CSV 所在目录
}

// BacktestConfig 控制回测执行与结果落盘。
type BacktestConfig struct {
	ResultDB      string  `toml:"result_db"`     // 回测结果库（GORM）
	ProfilesPath  string  `toml:"profiles_path"` // 参数档案 YAML，支持热更新
	InitialCash   float64 `toml:"initial_cash"`  // 档案未指定时的默认本金
	MaxConcurrent int     `toml:"max_concurrent"`
	BatchWorkers  int     `toml:"batch_workers"`
}

// ReportConfig 控制报告产物。
type ReportConfig struct {
	OutputDir string `toml:"output_dir"`
	RenderPNG bool   `toml:"render_png"` // 需要本机有 Chrome/Chromium
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
