package order

import (
	"strings"
	"testing"
	"time"

	"defi-order-engine/internal/catalog"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.TradingPair{
		{
			Symbol:       "ETH/USDC",
			BaseAsset:    "ETH",
			QuoteAsset:   "USDC",
			MinOrderSize: 0.01,
			MaxOrderSize: 100,
			MakerFee:     0.001,
			TakerFee:     0.002,
			Active:       true,
		},
		{
			Symbol:       "OLD/USDC",
			MinOrderSize: 0.01,
			MaxOrderSize: 100,
			Active:       false,
		},
	})
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	return c
}

func TestValidate(t *testing.T) {
	v := NewValidator(testCatalog(t))

	valid := Draft{
		UserID:   "user-1",
		Symbol:   "ETH/USDC",
		Type:     TypeMarket,
		Side:     SideBuy,
		Quantity: 1,
	}

	tests := []struct {
		name    string
		mutate  func(d *Draft)
		wantErr string
	}{
		{
			name:   "valid market order",
			mutate: func(d *Draft) {},
		},
		{
			name:    "unknown pair",
			mutate:  func(d *Draft) { d.Symbol = "DOGE/USDC" },
			wantErr: "未知交易对",
		},
		{
			name:    "inactive pair",
			mutate:  func(d *Draft) { d.Symbol = "OLD/USDC" },
			wantErr: "未激活",
		},
		{
			name:    "quantity below minimum",
			mutate:  func(d *Draft) { d.Quantity = 0.001 },
			wantErr: "超出允许区间",
		},
		{
			name:    "quantity above maximum",
			mutate:  func(d *Draft) { d.Quantity = 500 },
			wantErr: "超出允许区间",
		},
		{
			name:    "invalid side",
			mutate:  func(d *Draft) { d.Side = "HOLD" },
			wantErr: "无效的订单方向",
		},
		{
			name:    "limit without price",
			mutate:  func(d *Draft) { d.Type = TypeLimit },
			wantErr: "限价单必须指定 price",
		},
		{
			name: "limit with price",
			mutate: func(d *Draft) {
				d.Type = TypeLimit
				d.Price = 2000
			},
		},
		{
			name:    "stop without stop price",
			mutate:  func(d *Draft) { d.Type = TypeStop },
			wantErr: "止损单必须指定 stopPrice",
		},
		{
			name: "stop limit missing limit price",
			mutate: func(d *Draft) {
				d.Type = TypeStopLimit
				d.StopPrice = 2000
			},
			wantErr: "必须指定 limitPrice",
		},
		{
			name:    "trailing stop with neither parameter",
			mutate:  func(d *Draft) { d.Type = TypeTrailingStop },
			wantErr: "其一",
		},
		{
			name: "trailing stop with both parameters",
			mutate: func(d *Draft) {
				d.Type = TypeTrailingStop
				d.TrailingAmount = 10
				d.TrailingPercent = 5
			},
			wantErr: "其一",
		},
		{
			name: "trailing stop with percent only",
			mutate: func(d *Draft) {
				d.Type = TypeTrailingStop
				d.TrailingPercent = 5
			},
		},
		{
			name: "twap without slices",
			mutate: func(d *Draft) {
				d.Type = TypeTWAP
				d.TWAPDuration = time.Minute
			},
			wantErr: "至少1个切片",
		},
		{
			name: "twap without duration",
			mutate: func(d *Draft) {
				d.Type = TypeTWAP
				d.TWAPSlices = 4
			},
			wantErr: "正的执行时长",
		},
		{
			name: "twap valid",
			mutate: func(d *Draft) {
				d.Type = TypeTWAP
				d.TWAPSlices = 4
				d.TWAPDuration = time.Minute
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := valid
			tt.mutate(&draft)

			pair, err := v.Validate(draft)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid draft, got error: %v", err)
				}
				if pair.Symbol == "" {
					t.Fatalf("expected pair definition for valid draft")
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !IsValidation(err) {
				t.Errorf("expected *ValidationError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidate_BoundaryQuantities(t *testing.T) {
	v := NewValidator(testCatalog(t))

	for _, qty := range []float64{0.01, 100} {
		draft := Draft{Symbol: "ETH/USDC", Type: TypeMarket, Side: SideSell, Quantity: qty}
		if _, err := v.Validate(draft); err != nil {
			t.Errorf("boundary quantity %g should be accepted, got %v", qty, err)
		}
	}
}
