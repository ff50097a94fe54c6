package algo

import (
	"strings"
	"testing"
	"time"

	"defi-order-engine/internal/order"
)

func TestDecodeParams_DCA(t *testing.T) {
	params, err := DecodeParams(TypeDCA, map[string]interface{}{
		"symbol":     "ETH/USDC",
		"amount":     100.0,
		"interval":   "1h",
		"max_orders": 10,
	})
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}

	dca, ok := params.(DCAParams)
	if !ok {
		t.Fatalf("expected DCAParams, got %T", params)
	}
	if dca.Side != order.SideBuy {
		t.Errorf("expected default side BUY, got %s", dca.Side)
	}
	if dca.Interval != time.Hour {
		t.Errorf("expected interval 1h, got %s", dca.Interval)
	}
	if dca.Amount != 100 || dca.MaxOrders != 10 {
		t.Errorf("unexpected decoded params: %+v", dca)
	}
}

func TestDecodeParams_Grid(t *testing.T) {
	params, err := DecodeParams(TypeGrid, map[string]interface{}{
		"symbol":               "ETH/USDC",
		"quantity":             0.5,
		"grid_levels":          3,
		"grid_spacing_percent": 1.5,
		"base_price":           2000.0,
	})
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}
	grid, ok := params.(GridParams)
	if !ok {
		t.Fatalf("expected GridParams, got %T", params)
	}
	if grid.GridLevels != 3 || grid.BasePrice != 2000 {
		t.Errorf("unexpected decoded params: %+v", grid)
	}
}

func TestDecodeParams_MomentumDefaultsTimeframe(t *testing.T) {
	params, err := DecodeParams(TypeMomentum, map[string]interface{}{
		"symbol":             "ETH/USDC",
		"quantity":           1.0,
		"lookback_period":    10,
		"momentum_threshold": 5.0,
	})
	if err != nil {
		t.Fatalf("decode returned error: %v", err)
	}
	momentum := params.(MomentumParams)
	if momentum.Timeframe != "1h" {
		t.Errorf("expected default timeframe 1h, got %s", momentum.Timeframe)
	}
}

func TestDecodeParams_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		t       Type
		raw     map[string]interface{}
		wantErr string
	}{
		{
			name:    "dca missing amount",
			t:       TypeDCA,
			raw:     map[string]interface{}{"symbol": "ETH/USDC", "interval": "1h", "max_orders": 3},
			wantErr: "amount",
		},
		{
			name:    "grid zero levels",
			t:       TypeGrid,
			raw:     map[string]interface{}{"symbol": "ETH/USDC", "quantity": 1.0, "grid_spacing_percent": 1.0, "base_price": 100.0},
			wantErr: "grid_levels",
		},
		{
			name: "mean reversion inverted thresholds",
			t:    TypeMeanReversion,
			raw: map[string]interface{}{
				"symbol": "ETH/USDC", "quantity": 1.0,
				"oversold": 80.0, "overbought": 30.0,
			},
			wantErr: "oversold",
		},
		{
			name:    "twap routes to order engine",
			t:       TypeTWAP,
			raw:     map[string]interface{}{},
			wantErr: "订单执行引擎",
		},
		{
			name:    "unknown type",
			t:       Type("SNIPER"),
			raw:     map[string]interface{}{},
			wantErr: "暂不支持",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeParams(tt.t, tt.raw)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}
