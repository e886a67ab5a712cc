package app

import (
	"context"
	"fmt"
	"path/filepath"

	"huice/internal/backtest"
	"huice/internal/config"
	"huice/internal/datasource"
	"huice/internal/logger"
	"huice/internal/notifier"
	"huice/internal/profile"
	"huice/internal/report"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化存储与模拟器→对外提供
// 导入、单测、批测与 HTTP 服务四种入口。
type App struct {
	cfg      *config.Config
	barStore *backtest.Store
	results  *backtest.ResultStore
	profiles *profile.Registry
	sim      *backtest.Simulator
	httpSrv  *backtest.HTTPServer
	Summary  *StartupSummary
}

// New 根据配置构建应用对象（不启动）。
func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	barStore, err := backtest.NewStore(cfg.Data.BarDir)
	if err != nil {
		return nil, fmt.Errorf("初始化行情库失败: %w", err)
	}
	results, err := backtest.NewResultStore(cfg.Backtest.ResultDB)
	if err != nil {
		return nil, fmt.Errorf("初始化结果库失败: %w", err)
	}
	profiles, err := profile.NewRegistry(cfg.Backtest.ProfilesPath)
	if err != nil {
		return nil, fmt.Errorf("加载参数档案失败: %w", err)
	}

	var notify backtest.Notifier = notifier.Noop{}
	if cfg.Notify.Telegram.Enabled {
		notify = notifier.NewTelegram(cfg.Notify.Telegram.BotToken, cfg.Notify.Telegram.ChatID)
	}

	sim, err := backtest.NewSimulator(backtest.SimulatorConfig{
		BarStore:      barStore,
		ResultStore:   results,
		Profiles:      profiles,
		Notifier:      notify,
		MaxConcurrent: cfg.Backtest.MaxConcurrent,
		DefaultCash:   cfg.Backtest.InitialCash,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化模拟器失败: %w", err)
	}

	httpSrv, err := backtest.NewHTTPServer(backtest.HTTPConfig{
		Addr:      cfg.App.HTTPAddr,
		Store:     barStore,
		Simulator: sim,
		Results:   results,
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP 服务失败: %w", err)
	}

	app := &App{
		cfg:      cfg,
		barStore: barStore,
		results:  results,
		profiles: profiles,
		sim:      sim,
		httpSrv:  httpSrv,
	}
	app.Summary = buildSummary(cfg, profiles)
	return app, nil
}

// Serve 启动 HTTP 服务并阻塞至 ctx 取消。
func (a *App) Serve(ctx context.Context) error {
	if a.Summary != nil {
		a.Summary.Print()
	}
	a.sim.SetContext(ctx)
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http 服务错误: %w", err)
		}
		return nil
	})
	return group.Wait()
}

// Import 把目录内全部 CSV 导入行情库，返回每只股票的写入条数。
func (a *App) Import(ctx context.Context, dir string) (map[string]int, error) {
	if dir == "" {
		dir = a.cfg.Data.ImportDir
	}
	return datasource.ImportDir(ctx, a.barStore, dir)
}

// RunOne 同步执行单标的回测，落库并生成报告文件。
func (a *App) RunOne(ctx context.Context, req backtest.RunRequest) (backtest.Run, error) {
	run, result, err := a.sim.RunSync(ctx, req)
	if err != nil {
		return backtest.Run{}, err
	}
	if result == nil || len(result.Trades) == 0 {
		return run, nil
	}

	if path, err := report.SaveRecords(a.cfg.Report.OutputDir, result); err != nil {
		logger.Warnf("写交易流水失败: %v", err)
	} else {
		logger.Infof("交易流水已导出: %s", path)
	}
	if path, err := report.SaveHTML(a.cfg.Report.OutputDir, result); err != nil {
		logger.Warnf("渲染报告失败: %v", err)
	} else {
		logger.Infof("回测报告已生成: %s", path)
	}
	if a.cfg.Report.RenderPNG {
		if path, err := report.SavePNG(ctx, a.cfg.Report.OutputDir, result); err != nil {
			logger.Warnf("生成 PNG 失败（缺少 Chrome 时属预期）: %v", err)
		} else {
			logger.Infof("回测截图已生成: %s", path)
		}
	}
	return run, nil
}

// RunBatch 对全库（或指定标的）做并行回测并导出排行 CSV。
func (a *App) RunBatch(ctx context.Context, symbols []string, profileID string) (backtest.BatchSummary, error) {
	prof, ok := a.profiles.Get(profileID)
	if !ok {
		return backtest.BatchSummary{}, fmt.Errorf("未知参数档案: %s", profileID)
	}
	if prof.InitialCash <= 0 {
		prof.InitialCash = a.cfg.Backtest.InitialCash
	}
	runner, err := backtest.NewBatchRunner(a.barStore, prof, a.cfg.Backtest.BatchWorkers)
	if err != nil {
		return backtest.BatchSummary{}, err
	}
	summary, err := runner.Run(ctx, symbols)
	if err != nil {
		return backtest.BatchSummary{}, err
	}
	csvPath := filepath.Join(a.cfg.Report.OutputDir, "batch_summary.csv")
	if err := summary.ExportCSV(csvPath); err != nil {
		logger.Warnf("导出批量汇总失败: %v", err)
	} else {
		logger.Infof("批量汇总已导出: %s", csvPath)
	}
	return summary, nil
}

// Close 释放存储连接。
func (a *App) Close() {
	if a.barStore != nil {
		a.barStore.Close()
	}
	if a.results != nil {
		a.results.Close()
	}
}
