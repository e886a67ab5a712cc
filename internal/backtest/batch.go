package backtest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"huice/internal/logger"
	stocksym "huice/internal/pkg/symbol"
	"huice/internal/profile"

	"golang.org/x/sync/errgroup"
)

// BatchResult 为全市场批量回测中单只股票的汇总行。
type BatchResult struct {
	Symbol string `json:"symbol"`
	Stats  Stats  `json:"stats"`
}

// BatchSummary 汇总一次批量回测。
type BatchSummary struct {
	Total   int           `json:"total"`   // 参与标的数
	Traded  int           `json:"traded"`  // 产生过交易的标的数
	Skipped int           `json:"skipped"` // 数据不足或清洗失败而跳过的标的数
	Results []BatchResult `json:"results"` // 按总收益率降序
}

// BatchRunner 对行情库内全部标的做并行回测。
// 每只股票一个独立的 Replay 实例，互不共享账户、挂单与流水；
// 单只股票的数据类错误只记日志并跳过，不中断整批。
type BatchRunner struct {
	store   *Store
	profile profile.Profile
	workers int
}

func NewBatchRunner(store *Store, prof profile.Profile, workers int) (*BatchRunner, error) {
	if store == nil {
		return nil, fmt.Errorf("bar store 不能为空")
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &BatchRunner{store: store, profile: prof, workers: workers}, nil
}

// Run 回测 symbols（为空时取行情库内全部标的），返回按收益率排序的汇总。
func (r *BatchRunner) Run(ctx context.Context, symbols []string) (BatchSummary, error) {
	symbols = stocksym.NormalizeList(symbols)
	if len(symbols) == 0 {
		var err error
		symbols, err = r.store.ListSymbols()
		if err != nil {
			return BatchSummary{}, fmt.Errorf("枚举标的失败: %w", err)
		}
	}
	if len(symbols) == 0 {
		return BatchSummary{}, fmt.Errorf("行情库为空，请先导入数据")
	}
	logger.Infof("⚡ 并行回测启动: %d 只标的, %d 个 worker", len(symbols), r.workers)

	var mu sync.Mutex
	summary := BatchSummary{Total: len(symbols)}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			bars, err := r.store.QueryBars(gctx, symbol, "", "")
			if err != nil {
				return fmt.Errorf("读取 %s 行情失败: %w", symbol, err)
			}
			result, err := Replay(ReplayConfig{
				Symbol:      symbol,
				InitialCash: r.profile.InitialCash,
				Fast:        r.profile.Fast,
				Slow:        r.profile.Slow,
				Signal:      r.profile.Signal,
			}, bars)
			if err != nil {
				logger.Warnf("[batch] 跳过 %s: %v", symbol, err)
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				return nil
			}
			if len(result.Trades) == 0 {
				// 未触发信号是有效结果，但不计入排名（与全市场批跑口径一致）。
				return nil
			}
			mu.Lock()
			summary.Traded++
			summary.Results = append(summary.Results, BatchResult{Symbol: symbol, Stats: result.Stats})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchSummary{}, err
	}
	sort.Slice(summary.Results, func(i, j int) bool {
		return summary.Results[i].Stats.TotalReturn > summary.Results[j].Stats.TotalReturn
	})
	r.logSummary(summary)
	return summary, nil
}

func (r *BatchRunner) logSummary(s BatchSummary) {
	if len(s.Results) == 0 {
		logger.Warnf("无有效回测数据，可能是策略未触发任何交易信号")
		return
	}
	var sum float64
	profitable := 0
	for _, res := range s.Results {
		sum += res.Stats.TotalReturn
		if res.Stats.TotalReturn > 0 {
			profitable++
		}
	}
	logger.Infof("🎯 批量回测完成: 产生交易 %d/%d 只, 平均收益 %.2f%%, 赚钱比例 %.2f%%",
		s.Traded, s.Total, sum/float64(len(s.Results))*100,
		float64(profitable)/float64(len(s.Results))*100)
	top := s.Results
	if len(top) > 5 {
		top = top[:5]
	}
	var b strings.Builder
	for _, res := range top {
		fmt.Fprintf(&b, "🏆 [%s] 收益 %.2f%% | 胜率 %.1f%% | 交易 %d 对 | 回撤 %.2f%%\n",
			res.Symbol, res.Stats.TotalReturn*100, res.Stats.WinRate*100,
			res.Stats.TradePairs, res.Stats.MaxDrawdown*100)
	}
	logger.InfoBlock(b.String())
}

// ExportCSV 将批量结果写为 CSV（UTF-8 BOM，方便 Excel 打开）。
func (s BatchSummary) ExportCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return err
	}
	w := csv.NewWriter(f)
	header := []string{"股票代码", "最终资产", "总收益率", "胜率", "交易次数(对)", "最大回撤", "夏普比率", "总手续费", "挂单重试(买/卖)"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, res := range s.Results {
		st := res.Stats
		row := []string{
			res.Symbol,
			strconv.FormatFloat(st.FinalValue, 'f', 2, 64),
			fmt.Sprintf("%.2f%%", st.TotalReturn*100),
			fmt.Sprintf("%.2f%%", st.WinRate*100),
			strconv.Itoa(st.TradePairs),
			fmt.Sprintf("%.2f%%", st.MaxDrawdown*100),
			strconv.FormatFloat(st.SharpeRatio, 'f', 2, 64),
			strconv.FormatFloat(st.TotalFees, 'f', 2, 64),
			fmt.Sprintf("买%d | 卖%d", st.FailedBuys, st.FailedSells),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
