package catalog

import (
	"errors"
	"testing"
)

func TestNew_RejectsEmptyAndDuplicatePairs(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatalf("expected error for empty pair list")
	}

	_, err := New([]TradingPair{
		{Symbol: "ETH/USDC", MinOrderSize: 1, MaxOrderSize: 2},
		{Symbol: "eth/usdc", MinOrderSize: 1, MaxOrderSize: 2},
	})
	if err == nil {
		t.Fatalf("expected duplicate symbol error for case-insensitive collision")
	}
}

func TestLookup_NormalizesSymbol(t *testing.T) {
	c, err := New([]TradingPair{
		{Symbol: "ETH/USDC", BaseAsset: "ETH", MinOrderSize: 0.01, MaxOrderSize: 100, Active: true},
	})
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}

	for _, symbol := range []string{"ETH/USDC", "eth/usdc", "  ETH/USDC  "} {
		pair, err := c.Lookup(symbol)
		if err != nil {
			t.Errorf("lookup %q returned error: %v", symbol, err)
			continue
		}
		if pair.BaseAsset != "ETH" {
			t.Errorf("lookup %q returned wrong pair: %+v", symbol, pair)
		}
	}

	if _, err := c.Lookup("DOGE/USDC"); !errors.Is(err, ErrPairNotFound) {
		t.Errorf("expected ErrPairNotFound, got %v", err)
	}
}

func TestSymbols_Sorted(t *testing.T) {
	c, err := New([]TradingPair{
		{Symbol: "WBTC/USDC"},
		{Symbol: "ETH/USDC"},
	})
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}

	symbols := c.Symbols()
	if len(symbols) != 2 || symbols[0] != "ETH/USDC" || symbols[1] != "WBTC/USDC" {
		t.Errorf("expected sorted symbols [ETH/USDC WBTC/USDC], got %v", symbols)
	}
}
