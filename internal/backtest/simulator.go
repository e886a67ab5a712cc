package backtest

import (
	"context"
	"fmt"
	"time"

	"huice/internal/logger"
	"huice/internal/notifier"
	stocksym "huice/internal/pkg/symbol"
	"huice/internal/profile"

	"github.com/google/uuid"
)

// Notifier 用于运行完成后的推送（Telegram 等）。
type Notifier interface {
	SendText(text string) error
}

type SimulatorConfig struct {
	BarStore      *Store
	ResultStore   *ResultStore
	Profiles      *profile.Registry
	Notifier      Notifier
	MaxConcurrent int
	DefaultCash   float64 // 请求与模板都未指定初始资金时的兜底
}

// Simulator 负责把一次回测请求推演为落库的 run：
// 读取行情、调用 Replay、持久化流水与资金曲线，并在完成后推送摘要。
type Simulator struct {
	store       *Store
	results     *ResultStore
	profiles    *profile.Registry
	notifier    Notifier
	defaultCash float64

	sem     chan struct{}
	baseCtx context.Context
}

func NewSimulator(cfg SimulatorConfig) (*Simulator, error) {
	if cfg.BarStore == nil {
		return nil, fmt.Errorf("bar store 不能为空")
	}
	if cfg.ResultStore == nil {
		return nil, fmt.Errorf("result store 不能为空")
	}
	if cfg.Profiles == nil {
		return nil, fmt.Errorf("profile registry 不能为空")
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	defaultCash := cfg.DefaultCash
	if defaultCash <= 0 {
		defaultCash = profile.DefaultProfile.InitialCash
	}
	return &Simulator{
		store:       cfg.BarStore,
		results:     cfg.ResultStore,
		profiles:    cfg.Profiles,
		notifier:    cfg.Notifier,
		defaultCash: defaultCash,
		sem:         make(chan struct{}, maxConcurrent),
		baseCtx:     context.Background(),
	}, nil
}

func (s *Simulator) SetContext(ctx context.Context) {
	if ctx != nil {
		s.baseCtx = ctx
	}
}

// StartRun 创建回测任务并立即返回，推演过程在后台进行。
func (s *Simulator) StartRun(req RunRequest) (Run, error) {
	run, err := s.prepareRun(req)
	if err != nil {
		return Run{}, err
	}
	if err := s.results.SaveRun(s.baseCtx, run); err != nil {
		return Run{}, fmt.Errorf("写入 run 失败: %w", err)
	}
	go s.execute(run)
	return run, nil
}

// RunSync 同步执行一次回测（CLI 模式），返回完整回放结果。
func (s *Simulator) RunSync(ctx context.Context, req RunRequest) (Run, *ReplayResult, error) {
	run, err := s.prepareRun(req)
	if err != nil {
		return Run{}, nil, err
	}
	if err := s.results.SaveRun(ctx, run); err != nil {
		return Run{}, nil, fmt.Errorf("写入 run 失败: %w", err)
	}
	run, result := s.runOnce(ctx, run)
	return run, result, nil
}

func (s *Simulator) prepareRun(req RunRequest) (Run, error) {
	if norm := stocksym.Normalize(req.Symbol); norm != "" {
		req.Symbol = norm
	}
	if req.Symbol == "" {
		return Run{}, fmt.Errorf("symbol 不能为空")
	}
	prof, ok := s.profiles.Get(req.Profile)
	if !ok {
		return Run{}, fmt.Errorf("未知 profile: %s", req.Profile)
	}
	// 初始资金优先级：请求 > 模板 > 全局配置。
	initialCash := req.InitialCash
	if initialCash <= 0 {
		initialCash = prof.InitialCash
	}
	if initialCash <= 0 {
		initialCash = s.defaultCash
	}
	now := time.Now()
	return Run{
		ID:          uuid.NewString(),
		Symbol:      req.Symbol,
		Profile:     prof.ID,
		Status:      RunStatusPending,
		InitialCash: initialCash,
		Config: RunConfig{
			Symbol:      req.Symbol,
			Profile:     prof.ID,
			StartDate:   req.StartDate,
			EndDate:     req.EndDate,
			InitialCash: initialCash,
			Fast:        prof.Fast,
			Slow:        prof.Slow,
			Signal:      prof.Signal,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Simulator) execute(run Run) {
	s.sem <- struct{}{}
	defer func() { <-s.sem }()
	finished, _ := s.runOnce(s.baseCtx, run)
	logger.Debugf("[backtest] run %s 结束, 状态 %s", finished.ID, finished.Status)
}

// runOnce 执行一次推演并落库；数据类错误把 run 标记为 failed，不向上抛。
func (s *Simulator) runOnce(ctx context.Context, run Run) (Run, *ReplayResult) {
	run.Status = RunStatusRunning
	if err := s.results.SaveRun(ctx, run); err != nil {
		logger.Warnf("[backtest] run %s 更新状态失败: %v", run.ID, err)
	}

	bars, err := s.store.QueryBars(ctx, run.Symbol, run.Config.StartDate, run.Config.EndDate)
	if err != nil {
		return s.fail(ctx, run, fmt.Errorf("读取行情失败: %w", err)), nil
	}
	result, err := Replay(ReplayConfig{
		Symbol:      run.Symbol,
		InitialCash: run.InitialCash,
		Fast:        run.Config.Fast,
		Slow:        run.Config.Slow,
		Signal:      run.Config.Signal,
	}, bars)
	if err != nil {
		return s.fail(ctx, run, err), nil
	}

	run.Status = RunStatusDone
	run.Stats = result.Stats
	run.CompletedAt = time.Now()
	if len(result.Trades) == 0 {
		run.Message = "有效区间内未触发任何交易"
	}
	if err := s.results.SaveRun(ctx, run); err != nil {
		logger.Warnf("[backtest] run %s 写入结果失败: %v", run.ID, err)
	}
	if err := s.results.InsertTrades(ctx, run.ID, result.Trades); err != nil {
		logger.Warnf("[backtest] run %s 写入流水失败: %v", run.ID, err)
	}
	if err := s.results.InsertSnapshots(ctx, run.ID, result.Equity); err != nil {
		logger.Warnf("[backtest] run %s 写入资金曲线失败: %v", run.ID, err)
	}
	logger.Infof("[backtest] run %s 完成: symbol=%s 交易 %d 对, 收益 %.2f%%, 回撤 %.2f%%",
		run.ID, run.Symbol, run.Stats.TradePairs, run.Stats.TotalReturn*100, run.Stats.MaxDrawdown*100)
	s.notify(run)
	return run, result
}

func (s *Simulator) fail(ctx context.Context, run Run, cause error) Run {
	run.Status = RunStatusFailed
	run.Message = cause.Error()
	run.CompletedAt = time.Now()
	if err := s.results.SaveRun(ctx, run); err != nil {
		logger.Warnf("[backtest] run %s 写入失败状态失败: %v", run.ID, err)
	}
	logger.Warnf("[backtest] run %s 失败: %v", run.ID, cause)
	return run
}

func (s *Simulator) notify(run Run) {
	if s.notifier == nil {
		return
	}
	st := run.Stats
	sum := notifier.RunSummary{
		ID:          run.ID,
		Symbol:      run.Symbol,
		Profile:     run.Profile,
		FinalValue:  st.FinalValue,
		TotalReturn: st.TotalReturn,
		WinRate:     st.WinRate,
		MaxDrawdown: st.MaxDrawdown,
		TotalFees:   st.TotalFees,
		TradePairs:  st.TradePairs,
		FailedBuys:  st.FailedBuys,
		FailedSells: st.FailedSells,
	}
	if err := s.notifier.SendText(sum.Text()); err != nil {
		logger.Warnf("回测通知失败: %v", err)
	}
}
