package notifier

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const telegramAPI = "https://api.telegram.org"

// Telegram 在回测任务结束后把结论推送到指定群/频道。
type Telegram struct {
	token   string
	chatID  string
	base    string
	retries int
	client  *http.Client
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		token:   botToken,
		chatID:  chatID,
		base:    telegramAPI,
		retries: 3,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// SendText 调用 sendMessage 接口推送 Markdown 文本，失败时线性退避重试。
// Bot API 在 HTTP 200 之外还会在响应体里带 ok/description，一并检查。
func (t *Telegram) SendText(text string) error {
	if t.token == "" || t.chatID == "" {
		return fmt.Errorf("telegram 配置不完整")
	}
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.token)

	var lastErr error
	for i := 0; i < t.retries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i) * time.Second)
		}
		resp, err := t.client.Post(endpoint, "application/x-www-form-urlencoded",
			strings.NewReader(form.Encode()))
		if err != nil {
			lastErr = err
			continue
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		if resp.StatusCode/100 == 2 && gjson.GetBytes(body, "ok").Bool() {
			return nil
		}
		desc := gjson.GetBytes(body, "description").String()
		if desc == "" {
			desc = fmt.Sprintf("status=%d", resp.StatusCode)
		}
		lastErr = fmt.Errorf("telegram 推送失败: %s", desc)
	}
	return lastErr
}