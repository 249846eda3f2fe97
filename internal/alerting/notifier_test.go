package alerting

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testAlert() FiredAlert {
	prev := decimal.NewFromInt(900)
	return FiredAlert{
		AlertID:     "fxs_balance_alert",
		QueryID:     "fxs_balance",
		Name:        "FXS balance high",
		Description: "Treasury FXS balance crossed the limit",
		Value:       decimal.NewFromInt(1001),
		Previous:    &prev,
		Urgency:     UrgencyHigh,
		FiredAt:     time.Now(),
	}
}

func TestTelegramNotifierSuccess(t *testing.T) {
	received := make(map[string]string)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "sendMessage") {
			t.Fatalf("路径应包含 sendMessage, 实际 %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("解析请求体失败: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testAlert()); err != nil {
		t.Fatalf("Telegram Notify 应成功: %v", err)
	}

	if received["chat_id"] != "chat" {
		t.Fatalf("chat_id 不正确: %#v", received)
	}
	if !strings.Contains(received["text"], "URGENT ALERT") {
		t.Fatalf("high urgency 应带紧急前缀: %q", received["text"])
	}
	if !strings.Contains(received["text"], "fxs_balance") {
		t.Fatalf("消息应包含查询 id: %q", received["text"])
	}
}

func TestTelegramNotifierError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false})
	}))
	defer srv.Close()

	notifier := NewTelegramNotifier("token", "chat", srv.URL, time.Second, testLogger())
	if err := notifier.Notify(context.Background(), testAlert()); err == nil {
		t.Fatal("ok=false 应报错")
	}
}

type flakyNotifier struct {
	failOn map[string]bool
	sent   []string
}

func (f *flakyNotifier) Notify(_ context.Context, alert FiredAlert) error {
	if f.failOn[alert.AlertID] {
		return errors.New("delivery refused")
	}
	f.sent = append(f.sent, alert.AlertID)
	return nil
}

func TestDispatcherIsolatesDeliveryFailures(t *testing.T) {
	notifier := &flakyNotifier{failOn: map[string]bool{"a1": true}}
	d := NewDispatcher(notifier, testLogger())

	fired := []FiredAlert{
		{AlertID: "a1", Value: decimal.NewFromInt(1)},
		{AlertID: "a2", Value: decimal.NewFromInt(2)},
	}

	delivered := d.Dispatch(context.Background(), fired)
	if delivered["a1"] || !delivered["a2"] {
		t.Fatalf("第一条投递失败不应影响第二条: %v", delivered)
	}
	if len(notifier.sent) != 1 || notifier.sent[0] != "a2" {
		t.Fatalf("a2 应成功投递: %v", notifier.sent)
	}
}

func TestDispatcherNilNotifier(t *testing.T) {
	d := NewDispatcher(nil, testLogger())
	delivered := d.Dispatch(context.Background(), []FiredAlert{{AlertID: "a1"}})
	if delivered["a1"] {
		t.Fatal("未配置通道时不应计为已投递")
	}
}
