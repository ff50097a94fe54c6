package engine

import (
	"context"
	"math"

	"defi-order-engine/internal/catalog"
	"defi-order-engine/internal/order"
)

// runTrailingStop 维护运行极值（卖单取最高价、买单取最低价），
// 由极值推出移动止损边界；极值只朝有利方向移动，因此边界只收紧不放松。
// 价格向不利方向穿越边界时按市价执行。
func (e *Engine) runTrailingStop(ctx context.Context, orderID string, pair catalog.TradingPair) error {
	var extremum float64
	initialized := false

	return e.pollUntil(ctx, orderID, func(o order.AdvancedOrder, price float64) (bool, error) {
		if !initialized {
			extremum = price
			initialized = true
		}

		if o.Side == order.SideSell {
			extremum = math.Max(extremum, price)
		} else {
			extremum = math.Min(extremum, price)
		}

		boundary := trailingBoundary(o, extremum)
		if !trailingFired(o.Side, price, boundary) {
			return false, nil
		}

		return true, e.fillAtMarket(ctx, o, price, pair)
	})
}

func trailingBoundary(o order.AdvancedOrder, extremum float64) float64 {
	if o.Side == order.SideSell {
		if o.TrailingPercent > 0 {
			return extremum * (1 - o.TrailingPercent/100)
		}
		return extremum - o.TrailingAmount
	}
	if o.TrailingPercent > 0 {
		return extremum * (1 + o.TrailingPercent/100)
	}
	return extremum + o.TrailingAmount
}

func trailingFired(side order.Side, price, boundary float64) bool {
	if side == order.SideSell {
		return price <= boundary
	}
	return price >= boundary
}
