package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, "app:\n  name: chainwatch\n"))
	if err != nil {
		t.Fatalf("load should succeed: %v", err)
	}
	if cfg.Settings.IntervalMinutes != 1.0 {
		t.Fatalf("default interval_minutes should be 1, got %v", cfg.Settings.IntervalMinutes)
	}
	if cfg.Settings.MaxRetries != 3 {
		t.Fatalf("default max_retries should be 3, got %d", cfg.Settings.MaxRetries)
	}
	if cfg.Chains["ethereum"].BaseURL == "" {
		t.Fatal("ethereum chain should have a default base_url")
	}
}

func TestLoadRejectsBadInterval(t *testing.T) {
	_, err := Load(writeConfigFile(t, "settings:\n  interval_minutes: 0\n"))
	if err == nil {
		t.Fatal("zero interval should fail validation")
	}
}

func TestLoadRejectsProxyWithoutURL(t *testing.T) {
	_, err := Load(writeConfigFile(t, "settings:\n  use_proxy: true\n"))
	if err == nil {
		t.Fatal("use_proxy without proxy_url should fail validation")
	}
}

func TestLoadRejectsTelegramWithoutCredentials(t *testing.T) {
	_, err := Load(writeConfigFile(t, "notifications:\n  telegram:\n    enabled: true\n"))
	if err == nil {
		t.Fatal("enabled telegram without credentials should fail validation")
	}
}

const partialLoadYAML = `
queries:
  - id: c2tp_fxs_balance
    chain_name: ethereum
    params:
      module: account
      action: tokenbalance
      contractaddress: "0x3432b6a60d23ca0dfca7761b7ab56459d9c964d0"
      address: "0x0000000000000000000000000000000000000001"
  - id: treasury_eth_balance
    chain_name: ethereum
    params:
      module: account
      action: balance
      address: "0x0000000000000000000000000000000000000002"
alerts:
  - id: c2tp_fxs_balance_alert
    query_id: c2tp_fxs_balance
    type: threshold
    operator: ">"
    threshold: 1000
    urgency: high
    cooldown_minutes: 60
  - id: orphan_alert
    query_id: does_not_exist
    type: threshold
    operator: ">"
    threshold: 5
  - id: eth_drop_alert
    query_id: treasury_eth_balance
    type: percent_change
    operator: "<"
    threshold: -10
    urgency: medium
    cooldown_minutes: 30
`

func TestResolveDefinitionsPartialLoad(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, partialLoadYAML))
	if err != nil {
		t.Fatalf("load should succeed despite the bad alert entry: %v", err)
	}

	queries, alerts, entryErrs := cfg.ResolveDefinitions()
	if len(queries) != 2 {
		t.Fatalf("expected 2 usable queries, got %d", len(queries))
	}
	if len(alerts) != 2 {
		t.Fatalf("expected 2 usable alerts, got %d", len(alerts))
	}
	if len(entryErrs) != 1 {
		t.Fatalf("expected exactly 1 rejected entry, got %d: %v", len(entryErrs), entryErrs)
	}
	if entryErrs[0].ID != "orphan_alert" || entryErrs[0].Kind != "alert" {
		t.Fatalf("rejected entry should be the orphan alert: %+v", entryErrs[0])
	}
}

func TestResolveDefinitionsRejectsMalformedEntries(t *testing.T) {
	cfg := &Config{
		Chains: map[string]ChainConfig{"ethereum": {BaseURL: "https://api.etherscan.io/v2/api"}},
		Queries: []QueryConfig{
			{ID: "q1", ChainName: "ethereum", Params: map[string]string{"module": "account"}},
			{ID: "q1", ChainName: "ethereum", Params: map[string]string{"module": "account"}}, // duplicate
			{ID: "q2", ChainName: "unknown_chain", Params: map[string]string{"module": "account"}},
			{ID: "", ChainName: "ethereum", Params: map[string]string{"module": "account"}},
		},
		Alerts: []AlertConfig{
			{ID: "a1", QueryID: "q1", Type: "threshold", Operator: ">"},
			{ID: "a2", QueryID: "q1", Type: "martian", Operator: ">"},
			{ID: "a3", QueryID: "q1", Type: "threshold", Operator: "~="},
			{ID: "a4", QueryID: "q1", Type: "threshold", Operator: ">", CooldownMinutes: -5},
			{ID: "a5", QueryID: "q1", RefQueryID: "nope", Type: "ratio", Operator: ">"},
		},
	}

	queries, alerts, entryErrs := cfg.ResolveDefinitions()
	if len(queries) != 1 {
		t.Fatalf("only q1 should survive, got %d", len(queries))
	}
	if len(alerts) != 1 || alerts[0].ID != "a1" {
		t.Fatalf("only a1 should survive, got %+v", alerts)
	}
	if len(entryErrs) != 7 {
		t.Fatalf("expected 7 rejected entries, got %d: %v", len(entryErrs), entryErrs)
	}
}

func TestSettingsDurationHelpers(t *testing.T) {
	s := SettingsConfig{IntervalMinutes: 2.5, RetryDelaySeconds: 1.5}
	if got := s.Interval().Seconds(); got != 150 {
		t.Fatalf("2.5 minutes should be 150s, got %v", got)
	}
	if got := s.RetryDelay().Milliseconds(); got != 1500 {
		t.Fatalf("1.5 seconds should be 1500ms, got %v", got)
	}
}
