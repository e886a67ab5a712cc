package notifier

import "fmt"

// TextNotifier 是最小文本通知接口，
// 回测完成、批量汇总等处只依赖它，不感知具体渠道。
type TextNotifier interface {
	SendText(text string) error
}

// Noop 在未配置通知渠道时使用。
type Noop struct{}

func (Noop) SendText(string) error { return nil }

// RunSummary 汇总一次回测的推送要点，由通知层负责排版成消息正文。
type RunSummary struct {
	ID          string
	Symbol      string
	Profile     string
	FinalValue  float64
	TotalReturn float64 // 小数，0.1 即 10%
	WinRate     float64
	MaxDrawdown float64
	TotalFees   float64
	TradePairs  int
	FailedBuys  int
	FailedSells int
}

// Text 排版为 Telegram Markdown 消息（代码块对齐字段）。
func (s RunSummary) Text() string {
	return fmt.Sprintf("*回测完成* ✅\n```\nid      : %s\nsymbol  : %s\nprofile : %s\nfinal   : %.2f\nreturn  : %.2f%%\nwinrate : %.2f%% (%d 对)\nmaxDD   : %.2f%%\nfees    : %.2f\nretry   : 买%d/卖%d\n```\n",
		s.ID, s.Symbol, s.Profile, s.FinalValue, s.TotalReturn*100,
		s.WinRate*100, s.TradePairs, s.MaxDrawdown*100, s.TotalFees,
		s.FailedBuys, s.FailedSells)
}