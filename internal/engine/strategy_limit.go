package engine

import (
	"context"
	"errors"

	"defi-order-engine/internal/catalog"
	"defi-order-engine/internal/order"
)

// runLimit 轮询行情，待价格向有利方向穿越限价后按限价成交，收取 maker 费。
func (e *Engine) runLimit(ctx context.Context, orderID string, pair catalog.TradingPair) error {
	return e.pollUntil(ctx, orderID, func(o order.AdvancedOrder, price float64) (bool, error) {
		if !limitCrossed(o.Side, price, o.Price) {
			return false, nil
		}
		_, err := e.applyFill(ctx, orderID, o.Remaining, o.Price, pair.MakerFee)
		if errors.Is(err, order.ErrTerminal) {
			return true, nil
		}
		return true, err
	})
}

// runStop 轮询行情，待价格朝触发方向穿越止损价后转为市价立即执行。
func (e *Engine) runStop(ctx context.Context, orderID string, pair catalog.TradingPair) error {
	return e.pollUntil(ctx, orderID, func(o order.AdvancedOrder, price float64) (bool, error) {
		if !stopTriggered(o.Side, price, o.StopPrice) {
			return false, nil
		}
		return true, e.fillAtMarket(ctx, o, price, pair)
	})
}

// runStopLimit 分两段：触发前行为同止损单；触发后改按 limitPrice 的限价语义等待成交。
func (e *Engine) runStopLimit(ctx context.Context, orderID string, pair catalog.TradingPair) error {
	triggered := false

	return e.pollUntil(ctx, orderID, func(o order.AdvancedOrder, price float64) (bool, error) {
		if !triggered {
			if !stopTriggered(o.Side, price, o.StopPrice) {
				return false, nil
			}
			triggered = true
			e.logger.Debug("止损限价单已触发")
		}

		if !limitCrossed(o.Side, price, o.LimitPrice) {
			return false, nil
		}
		_, err := e.applyFill(ctx, orderID, o.Remaining, o.LimitPrice, pair.MakerFee)
		if errors.Is(err, order.ErrTerminal) {
			return true, nil
		}
		return true, err
	})
}

// limitCrossed 判断价格是否向有利方向穿越限价：买单要求 price ≤ limit，卖单要求 price ≥ limit。
func limitCrossed(side order.Side, price, limit float64) bool {
	if side == order.SideBuy {
		return price <= limit
	}
	return price >= limit
}

// stopTriggered 判断止损触发：买单要求 price ≥ stop，卖单要求 price ≤ stop。
func stopTriggered(side order.Side, price, stop float64) bool {
	if side == order.SideBuy {
		return price >= stop
	}
	return price <= stop
}
