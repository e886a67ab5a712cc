package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"huice/internal/broker"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

type runModel struct {
	ID          string         `gorm:"column:id;primaryKey"`
	Symbol      string         `gorm:"column:symbol;index"`
	Profile     string         `gorm:"column:profile"`
	Status      string         `gorm:"column:status"`
	InitialCash float64        `gorm:"column:initial_cash"`
	FinalValue  float64        `gorm:"column:final_value"`
	TotalReturn float64        `gorm:"column:total_return"`
	WinRate     float64        `gorm:"column:win_rate"`
	MaxDrawdown float64        `gorm:"column:max_drawdown"`
	TradePairs  int            `gorm:"column:trade_pairs"`
	Message     string         `gorm:"column:message"`
	ConfigJSON  datatypes.JSON `gorm:"column:config_json;type:TEXT"`
	StatsJSON   datatypes.JSON `gorm:"column:stats_json;type:TEXT"`
	CreatedAt   int64          `gorm:"column:created_at"`
	UpdatedAt   int64          `gorm:"column:updated_at"`
	CompletedAt int64          `gorm:"column:completed_at"`
}

func (runModel) TableName() string { return "backtest_runs" }

type tradeModel struct {
	ID         int64   `gorm:"column:id;primaryKey"`
	RunID      string  `gorm:"column:run_id;index:idx_trades_run"`
	Date       string  `gorm:"column:date"`
	Side       string  `gorm:"column:side"`
	Price      float64 `gorm:"column:price"`
	Shares     int64   `gorm:"column:shares"`
	Value      float64 `gorm:"column:value"`
	Commission float64 `gorm:"column:commission"`
	Transfer   float64 `gorm:"column:transfer_fee"`
	StampDuty  float64 `gorm:"column:stamp_duty"`
	Fee        float64 `gorm:"column:fee"`
	CashAfter  float64 `gorm:"column:cash_after"`
}

func (tradeModel) TableName() string { return "backtest_trades" }

type snapshotModel struct {
	ID       int64   `gorm:"column:id;primaryKey"`
	RunID    string  `gorm:"column:run_id;index:idx_snapshots_run"`
	Date     string  `gorm:"column:date"`
	Cash     float64 `gorm:"column:cash"`
	Shares   int64   `gorm:"column:shares"`
	Equity   float64 `gorm:"column:equity"`
	Drawdown float64 `gorm:"column:drawdown"`
}

func (snapshotModel) TableName() string { return "backtest_snapshots" }

// ResultStore 用 Gorm + SQLite 管理回测任务与成交流水。
type ResultStore struct {
	db *gorm.DB
}

// NewResultStore 打开（必要时创建）结果库，path 为 SQLite 文件路径。
func NewResultStore(path string) (*ResultStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("result store 路径不能为空")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&runModel{}, &tradeModel{}, &snapshotModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL：允许少量并发供 HTTP 读取，同时控制锁竞争。
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &ResultStore{db: db}, nil
}

func (s *ResultStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveRun 写入或更新一条 run 记录。
func (s *ResultStore) SaveRun(ctx context.Context, run Run) error {
	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return err
	}
	statsJSON, err := json.Marshal(run.Stats)
	if err != nil {
		return err
	}
	m := runModel{
		ID:          run.ID,
		Symbol:      run.Symbol,
		Profile:     run.Profile,
		Status:      run.Status,
		InitialCash: run.InitialCash,
		FinalValue:  run.Stats.FinalValue,
		TotalReturn: run.Stats.TotalReturn,
		WinRate:     run.Stats.WinRate,
		MaxDrawdown: run.Stats.MaxDrawdown,
		TradePairs:  run.Stats.TradePairs,
		Message:     run.Message,
		ConfigJSON:  datatypes.JSON(cfgJSON),
		StatsJSON:   datatypes.JSON(statsJSON),
		CreatedAt:   run.CreatedAt.UnixMilli(),
		UpdatedAt:   time.Now().UnixMilli(),
	}
	if !run.CompletedAt.IsZero() {
		m.CompletedAt = run.CompletedAt.UnixMilli()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&m).Error
}

// InsertTrades 批量写入某次 run 的成交流水。
func (s *ResultStore) InsertTrades(ctx context.Context, runID string, trades []broker.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	models := make([]tradeModel, 0, len(trades))
	for _, t := range trades {
		models = append(models, tradeModel{
			RunID:      runID,
			Date:       t.Date,
			Side:       string(t.Side),
			Price:      t.Price,
			Shares:     t.Shares,
			Value:      t.Value,
			Commission: t.Costs.Commission,
			Transfer:   t.Costs.Transfer,
			StampDuty:  t.Costs.StampDuty,
			Fee:        t.Fee,
			CashAfter:  t.CashAfter,
		})
	}
	return s.db.WithContext(ctx).CreateInBatches(models, 200).Error
}

// InsertSnapshots 批量写入资金曲线。
func (s *ResultStore) InsertSnapshots(ctx context.Context, runID string, points []EquityPoint) error {
	if len(points) == 0 {
		return nil
	}
	models := make([]snapshotModel, 0, len(points))
	for _, p := range points {
		models = append(models, snapshotModel{
			RunID:    runID,
			Date:     p.Date,
			Cash:     p.Cash,
			Shares:   p.Shares,
			Equity:   p.Equity,
			Drawdown: p.Drawdown,
		})
	}
	return s.db.WithContext(ctx).CreateInBatches(models, 500).Error
}

// GetRun 按 ID 读取 run。
func (s *ResultStore) GetRun(ctx context.Context, id string) (Run, error) {
	var m runModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return Run{}, fmt.Errorf("run %s 不存在: %w", id, err)
	}
	return m.toRun()
}

// ListRuns 按创建时间倒序列出 run。
func (s *ResultStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var models []runModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Run, 0, len(models))
	for _, m := range models {
		run, err := m.toRun()
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

// ListTrades 按成交顺序列出某次 run 的流水。
func (s *ResultStore) ListTrades(ctx context.Context, runID string, limit int) ([]broker.Trade, error) {
	if limit <= 0 {
		limit = 200
	}
	var models []tradeModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("id ASC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]broker.Trade, 0, len(models))
	for _, m := range models {
		out = append(out, broker.Trade{
			Date:   m.Date,
			Side:   broker.Side(m.Side),
			Price:  m.Price,
			Shares: m.Shares,
			Value:  m.Value,
			Costs: broker.Costs{
				Commission: m.Commission,
				Transfer:   m.Transfer,
				StampDuty:  m.StampDuty,
			},
			Fee:       m.Fee,
			CashAfter: m.CashAfter,
		})
	}
	return out, nil
}

// ListSnapshots 按日期升序列出资金曲线。
func (s *ResultStore) ListSnapshots(ctx context.Context, runID string, limit int) ([]EquityPoint, error) {
	if limit <= 0 {
		limit = 400
	}
	var models []snapshotModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("date ASC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]EquityPoint, 0, len(models))
	for _, m := range models {
		out = append(out, EquityPoint{
			Date:     m.Date,
			Cash:     m.Cash,
			Shares:   m.Shares,
			Equity:   m.Equity,
			Drawdown: m.Drawdown,
		})
	}
	return out, nil
}

func (m runModel) toRun() (Run, error) {
	run := Run{
		ID:          m.ID,
		Symbol:      m.Symbol,
		Profile:     m.Profile,
		Status:      m.Status,
		InitialCash: m.InitialCash,
		Message:     m.Message,
		CreatedAt:   time.UnixMilli(m.CreatedAt),
		UpdatedAt:   time.UnixMilli(m.UpdatedAt),
	}
	if m.CompletedAt > 0 {
		run.CompletedAt = time.UnixMilli(m.CompletedAt)
	}
	if len(m.ConfigJSON) > 0 {
		if err := json.Unmarshal(m.ConfigJSON, &run.Config); err != nil {
			return Run{}, fmt.Errorf("解析 run %s config 失败: %w", m.ID, err)
		}
	}
	if len(m.StatsJSON) > 0 {
		if err := json.Unmarshal(m.StatsJSON, &run.Stats); err != nil {
			return Run{}, fmt.Errorf("解析 run %s stats 失败: %w", m.ID, err)
		}
	}
	return run, nil
}
