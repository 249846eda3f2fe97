package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Notifier 定义告警输送接口。
type Notifier interface {
	Notify(ctx context.Context, alert FiredAlert) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 告警器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, alert FiredAlert) error {
	payload := map[string]string{
		"chat_id":    n.chatID,
		"text":       renderMessage(alert),
		"parse_mode": "Markdown",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("alert_id", alert.AlertID).
		Str("urgency", alert.Urgency.String()).
		Msg("告警已发送 (Telegram)")
	return nil
}

func renderMessage(alert FiredAlert) string {
	builder := strings.Builder{}
	if alert.Urgency == UrgencyHigh {
		builder.WriteString("🚨 *URGENT ALERT* 🚨\n\n")
	}
	name := alert.Name
	if name == "" {
		name = "Alert for " + alert.QueryID
	}
	builder.WriteString(fmt.Sprintf("*%s*\n", name))
	if alert.Description != "" {
		builder.WriteString(alert.Description + "\n\n")
	}
	builder.WriteString(fmt.Sprintf("Query: `%s`\n", alert.QueryID))
	if alert.Previous != nil {
		builder.WriteString(fmt.Sprintf("Previous value: `%s`\n", alert.Previous.String()))
	}
	builder.WriteString(fmt.Sprintf("Current value: `%s`\n", alert.Value.String()))
	builder.WriteString(fmt.Sprintf("Urgency: `%s`\n", alert.Urgency.String()))
	builder.WriteString(fmt.Sprintf("Time: `%s`", alert.FiredAt.UTC().Format("2006-01-02 15:04:05")))
	return builder.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
