package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"huice/internal/app"
	"huice/internal/backtest"
	hccfg "huice/internal/config"
	"huice/internal/logger"

	"github.com/spf13/cobra"
)

var (
	cfgPath string
	logFile *os.File
)

func main() {
	root := &cobra.Command{
		Use:          "huice",
		Short:        "A 股 MACD 金叉死叉回测引擎",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "配置文件路径（默认 $HUICE_CONFIG 或 configs/config.yaml）")
	root.AddCommand(newServeCmd(), newImportCmd(), newRunCmd(), newBatchCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
	if logFile != nil {
		logFile.Close()
	}
}

// setup 加载配置、初始化日志与应用实例。
func setup() (*app.App, *hccfg.Config, error) {
	path := cfgPath
	if path == "" {
		path = os.Getenv("HUICE_CONFIG")
	}
	if path == "" {
		path = "configs/config.yaml"
	}
	cfg, err := hccfg.Load(path)
	if err != nil {
		return nil, nil, err
	}
	f, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		return nil, nil, err
	}
	logFile = f
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s，profiles=%s）", cfg.App.Env, cfg.Backtest.ProfilesPath)

	a, err := app.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 服务",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()
			ctx, cancel := signalContext()
			defer cancel()
			return a.Serve(ctx)
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [dir]",
		Short: "把目录内的日线 CSV 导入行情库",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()
			dir := ""
			if len(args) > 0 {
				dir = args[0]
			}
			ctx, cancel := signalContext()
			defer cancel()
			counts, err := a.Import(ctx, dir)
			if err != nil {
				return err
			}
			total := 0
			for sym, n := range counts {
				logger.Infof("  %s: %d 条", sym, n)
				total += n
			}
			logger.Infof("导入完成，共 %d 只股票 %d 条日线", len(counts), total)
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	var req backtest.RunRequest
	cmd := &cobra.Command{
		Use:   "run",
		Short: "同步执行单只股票回测并生成报告",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()
			ctx, cancel := signalContext()
			defer cancel()
			run, err := a.RunOne(ctx, req)
			if err != nil {
				return err
			}
			logger.Infof("回测完成 run=%s 状态=%s", run.ID, run.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Symbol, "symbol", "", "股票代码（必填）")
	cmd.Flags().StringVar(&req.Profile, "profile", "", "参数档案 ID，缺省用 default")
	cmd.Flags().StringVar(&req.StartDate, "start", "", "起始日期 YYYY-MM-DD")
	cmd.Flags().StringVar(&req.EndDate, "end", "", "截止日期 YYYY-MM-DD")
	cmd.Flags().Float64Var(&req.InitialCash, "cash", 0, "初始资金，覆盖档案设置")
	cmd.MarkFlagRequired("symbol")
	return cmd
}

func newBatchCmd() *cobra.Command {
	var profileID string
	cmd := &cobra.Command{
		Use:   "batch [symbols...]",
		Short: "并行回测全库或指定标的，输出收益排行",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := setup()
			if err != nil {
				return err
			}
			defer a.Close()
			ctx, cancel := signalContext()
			defer cancel()
			summary, err := a.RunBatch(ctx, args, profileID)
			if err != nil {
				return err
			}
			logger.Infof("批量回测完成：共 %d 只，成交 %d 只，跳过 %d 只",
				summary.Total, summary.Traded, summary.Skipped)
			return nil
		},
	}
	cmd.Flags().StringVar(&profileID, "profile", "", "参数档案 ID，缺省用 default")
	return cmd
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
