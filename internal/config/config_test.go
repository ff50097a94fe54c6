package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
app:
  environment: test

market:
  name: binance

pairs:
  - symbol: ETH/USDC
    base_asset: ETH
    quote_asset: USDC
    min_order_size: 0.01
    max_order_size: 100
    maker_fee: 0.001
    taker_fee: 0.002
    active: true

execution:
  slippage: 0.002
  poll_interval: 250ms

algo:
  check_interval: 5s
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoad_AppliesFileValuesAndDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	if cfg.App.Environment != "test" {
		t.Errorf("expected environment test, got %s", cfg.App.Environment)
	}
	if cfg.Execution.Slippage != 0.002 {
		t.Errorf("expected slippage 0.002, got %f", cfg.Execution.Slippage)
	}
	if cfg.Execution.PollInterval != 250*time.Millisecond {
		t.Errorf("expected poll interval 250ms, got %s", cfg.Execution.PollInterval)
	}
	if cfg.Algo.CheckInterval != 5*time.Second {
		t.Errorf("expected check interval 5s, got %s", cfg.Algo.CheckInterval)
	}

	// 未出现在文件中的键取默认值。
	if cfg.Market.Retry.MaxAttempts != 5 {
		t.Errorf("expected default retry attempts 5, got %d", cfg.Market.Retry.MaxAttempts)
	}
	if cfg.Signal.Timeframe != "1h" || cfg.Signal.TrendTimeframe != "4h" {
		t.Errorf("expected default timeframes, got %s/%s", cfg.Signal.Timeframe, cfg.Signal.TrendTimeframe)
	}
	if cfg.Database.Path != "data/order_engine.db" {
		t.Errorf("expected default database path, got %s", cfg.Database.Path)
	}

	if len(cfg.Pairs) != 1 || cfg.Pairs[0].Symbol != "ETH/USDC" {
		t.Errorf("unexpected pairs: %+v", cfg.Pairs)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	broken := `
app:
  environment: test
market:
  name: binance
pairs:
  - symbol: ""
    min_order_size: 0
    max_order_size: -1
`
	_, err := Load(writeConfig(t, broken))
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"symbol", "min_order_size"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err.Error(), want)
		}
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("empty config must fail validation")
	}
	msg := err.Error()
	for _, want := range []string{"app.environment", "market.name", "pairs"} {
		if !strings.Contains(msg, want) {
			t.Errorf("validation error %q does not mention %q", msg, want)
		}
	}
}
