package app

import (
	"fmt"
	"sort"
	"strings"

	"huice/internal/config"
	"huice/internal/profile"
)

type StartupSummary struct {
	Env       string
	HTTPAddr  string
	BarDir    string
	ResultDB  string
	ReportDir string
	Profiles  []ProfileSummary
}

type ProfileSummary struct {
	ID          string
	Description string
	InitialCash float64
	Fast        int
	Slow        int
	Signal      int
}

func buildSummary(cfg *config.Config, profiles *profile.Registry) *StartupSummary {
	snap := profiles.Snapshot()
	items := make([]ProfileSummary, 0, len(snap.Profiles))
	for _, p := range snap.Profiles {
		items = append(items, ProfileSummary{
			ID:          p.ID,
			Description: p.Description,
			InitialCash: p.InitialCash,
			Fast:        p.Fast,
			Slow:        p.Slow,
			Signal:      p.Signal,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return &StartupSummary{
		Env:       cfg.App.Env,
		HTTPAddr:  cfg.App.HTTPAddr,
		BarDir:    cfg.Data.BarDir,
		ResultDB:  cfg.Backtest.ResultDB,
		ReportDir: cfg.Report.OutputDir,
		Profiles:  items,
	}
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[服务 (SERVICE)]")
	fmt.Printf("  环境: %s\n", s.Env)
	fmt.Printf("  监听: %s\n", s.HTTPAddr)
	fmt.Println()

	fmt.Println("[存储 (STORAGE)]")
	fmt.Printf("  行情库: %s\n", s.BarDir)
	fmt.Printf("  结果库: %s\n", s.ResultDB)
	fmt.Printf("  报告目录: %s\n", s.ReportDir)
	fmt.Println()

	fmt.Println("[参数档案 (PROFILES)]")
	if len(s.Profiles) == 0 {
		fmt.Println("  (无配置)")
	} else {
		for _, p := range s.Profiles {
			desc := p.Description
			if desc == "" {
				desc = "-"
			}
			fmt.Printf("  > %s: MACD(%d,%d,%d) 本金 %.0f (%s)\n",
				p.ID, p.Fast, p.Slow, p.Signal, p.InitialCash, desc)
		}
	}
	fmt.Println(strings.Repeat("=", 80))
}
