package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"chainwatch/internal/alerting"
)

// SimulateAlert 通过真实通知通道推送一条测试告警, 用于验证 Telegram 配置。
func (a *App) SimulateAlert(ctx context.Context, value decimal.Decimal, urgency string) error {
	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("未配置任何告警通道")
	}

	parsed, err := alerting.ParseUrgency(urgency)
	if err != nil {
		return err
	}

	alert := alerting.FiredAlert{
		AlertID:     "simulated_alert",
		QueryID:     "simulated_query",
		Name:        "Simulated alert",
		Description: "chainwatch simulate 命令发出的测试消息",
		Value:       value,
		Urgency:     parsed,
		FiredAt:     time.Now().UTC(),
	}

	return notifier.Notify(ctx, alert)
}
