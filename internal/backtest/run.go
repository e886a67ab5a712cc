package backtest

import (
	"encoding/json"
	"time"
)

const (
	RunStatusPending = "pending"
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusFailed  = "failed"
)

// RunConfig 记录本次回测的参数快照，便于重放。
type RunConfig struct {
	Symbol      string  `json:"symbol"`
	Profile     string  `json:"profile"`
	StartDate   string  `json:"start_date,omitempty"`
	EndDate     string  `json:"end_date,omitempty"`
	InitialCash float64 `json:"initial_cash"`
	Fast        int     `json:"fast"`
	Slow        int     `json:"slow"`
	Signal      int     `json:"signal"`
	Notes       string  `json:"notes,omitempty"`
}

// Stats 为一次回测的只读统计汇总，流水定稿后计算一次，之后不再变更。
type Stats struct {
	FinalValue       float64 `json:"final_value"`
	TotalReturn      float64 `json:"total_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	WinRate          float64 `json:"win_rate"`
	MaxDrawdown      float64 `json:"max_drawdown"`
	SharpeRatio      float64 `json:"sharpe_ratio"`
	TotalFees        float64 `json:"total_fees"`
	FailedBuys       int     `json:"failed_buys"`
	FailedSells      int     `json:"failed_sells"`
	TradePairs       int     `json:"trade_pairs"`
	Trades           int     `json:"trades"`
	Bars             int     `json:"bars"`
}

// Run 表示一次回测任务。
type Run struct {
	ID          string    `json:"id"`
	Symbol      string    `json:"symbol"`
	Profile     string    `json:"profile"`
	Status      string    `json:"status"`
	InitialCash float64   `json:"initial_cash"`
	Message     string    `json:"message,omitempty"`
	Config      RunConfig `json:"config"`
	Stats       Stats     `json:"stats"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// MarshalStats 返回 stats JSON。
func (r Run) MarshalStats() ([]byte, error) {
	return json.Marshal(r.Stats)
}

// MarshalConfig 返回 config JSON。
func (r Run) MarshalConfig() ([]byte, error) {
	return json.Marshal(r.Config)
}

// EquityPoint 为资金曲线上的一个点。
type EquityPoint struct {
	Date     string  `json:"date"`
	Cash     float64 `json:"cash"`
	Shares   int64   `json:"shares"`
	Equity   float64 `json:"equity"`
	Drawdown float64 `json:"drawdown"`
}

// RunRequest 为 HTTP 提交使用。
type RunRequest struct {
	Symbol      string  `json:"symbol" binding:"required"`
	Profile     string  `json:"profile"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	InitialCash float64 `json:"initial_cash"`
}
