package explorer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestClient(baseURL string, maxRetries int) *Client {
	c := NewClient(Options{
		Chains:     map[string]ChainEndpoint{"ethereum": {BaseURL: baseURL, APIKey: "test-key"}},
		Timeout:    time.Second,
		MaxRetries: maxRetries,
	}, noopLogger())
	c.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return c
}

func balanceQuery() QueryDefinition {
	return QueryDefinition{
		ID:        "eth_balance",
		ChainName: "ethereum",
		Params: map[string]string{
			"module":  "account",
			"action":  "balance",
			"address": "0xabc",
		},
	}
}

func TestFetchSuccessScalesWei(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("apikey"); got != "test-key" {
			t.Fatalf("apikey 未附加到请求: %q", got)
		}
		if got := r.URL.Query().Get("module"); got != "account" {
			t.Fatalf("params 应原样透传, module=%q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "1", "message": "OK", "result": "2000000000000000000"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 0)
	value, err := c.Fetch(context.Background(), balanceQuery())
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if value.Cmp(decimal.NewFromInt(2)) != 0 {
		t.Fatalf("期望按 18 位小数缩放得到 2, 实际 %s", value.String())
	}
}

func TestFetchDecimalsOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "1", "result": "1500"})
	}))
	defer srv.Close()

	def := balanceQuery()
	def.Params["decimals"] = "0"

	c := newTestClient(srv.URL, 0)
	value, err := c.Fetch(context.Background(), def)
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if value.Cmp(decimal.NewFromInt(1500)) != 0 {
		t.Fatalf("decimals=0 应返回原值, 实际 %s", value.String())
	}
}

func TestFetchServerErrorRetriesThenTransient(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2)
	_, err := c.Fetch(context.Background(), balanceQuery())
	if err == nil {
		t.Fatal("HTTP 502 最终应报错")
	}
	if !IsTransient(err) {
		t.Fatalf("5xx 应归类为 transient: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("max_retries=2 应发出 3 次请求, 实际 %d", got)
	}
}

func TestFetchClientErrorNoRetry(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	_, err := c.Fetch(context.Background(), balanceQuery())
	if err == nil {
		t.Fatal("HTTP 403 应报错")
	}
	if IsTransient(err) {
		t.Fatalf("4xx 应归类为 permanent: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("permanent 失败不应重试, 实际请求 %d 次", got)
	}
}

func TestFetchProviderErrorPayload(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "0", "message": "Invalid API Key"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	_, err := c.Fetch(context.Background(), balanceQuery())
	if err == nil || IsTransient(err) {
		t.Fatalf("provider 错误应为 permanent: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("provider 错误不应重试, 实际请求 %d 次", got)
	}
}

func TestFetchRateLimitIsTransient(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "0", "message": "Max rate limit reached"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "1", "result": "1000000000000000000"})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	value, err := c.Fetch(context.Background(), balanceQuery())
	if err != nil {
		t.Fatalf("限流后重试应成功: %v", err)
	}
	if value.Cmp(decimal.NewFromInt(1)) != 0 {
		t.Fatalf("期望 1, 实际 %s", value.String())
	}
}

func TestFetchUnknownChain(t *testing.T) {
	c := newTestClient("http://localhost", 0)
	def := balanceQuery()
	def.ChainName = "dogechain"
	if _, err := c.Fetch(context.Background(), def); err == nil || IsTransient(err) {
		t.Fatalf("未配置的链应返回 permanent 错误: %v", err)
	}
}
