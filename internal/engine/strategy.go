package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"defi-order-engine/internal/order"
)

// stepFunc 为一次轮询评估；done 表示策略已完成该订单。
type stepFunc func(o order.AdvancedOrder, price float64) (done bool, err error)

// pollUntil 以固定间隔轮询行情并驱动订单状态机。
// 每轮先检查订单是否已终态或过期，再拉取行情执行 step；
// IOC/FOK 订单在首轮未成交即转为 EXPIRED。
func (e *Engine) pollUntil(ctx context.Context, orderID string, step stepFunc) error {
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	firstPass := true
	for {
		o, err := e.repo.Get(orderID)
		if err != nil {
			return err
		}
		if o.Status.IsTerminal() {
			return nil
		}

		if e.checkExpiry(ctx, o) {
			return nil
		}

		price, err := e.market.CurrentPrice(ctx, o.Symbol)
		if err != nil {
			return fmt.Errorf("获取行情失败: %w", err)
		}

		ok, err := e.conditionsMet(ctx, o, price)
		if err != nil {
			return err
		}
		if ok {
			done, err := step(o, price)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}

		if firstPass && immediateOnly(o.TimeInForce) {
			_, err := e.transition(ctx, orderID, order.StatusExpired, "time in force "+string(o.TimeInForce))
			return err
		}
		firstPass = false

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// checkExpiry 在订单携带过期时间且已过期时将其转为 EXPIRED。
func (e *Engine) checkExpiry(ctx context.Context, o order.AdvancedOrder) bool {
	if o.ExpiresAt.IsZero() || time.Now().UTC().Before(o.ExpiresAt) {
		return false
	}
	_, err := e.transition(ctx, o.ID, order.StatusExpired, "expired")
	return err == nil
}

// conditionsMet 评估订单携带的全部触发条件，任一不满足即返回 false。
func (e *Engine) conditionsMet(ctx context.Context, o order.AdvancedOrder, price float64) (bool, error) {
	for _, cond := range o.Conditions {
		value, err := e.conditionValue(ctx, o.Symbol, cond, price)
		if err != nil {
			return false, err
		}
		if !compare(value, cond.Operator, cond.Threshold) {
			return false, nil
		}
	}
	return true, nil
}

func (e *Engine) conditionValue(ctx context.Context, symbol string, cond order.Condition, price float64) (float64, error) {
	switch strings.ToUpper(cond.Indicator) {
	case "PRICE":
		return price, nil
	case "RSI":
		timeframe := cond.Timeframe
		if timeframe == "" {
			timeframe = "1h"
		}
		candles, err := e.market.Candles(ctx, symbol, timeframe, 100)
		if err != nil {
			return 0, fmt.Errorf("获取条件K线失败: %w", err)
		}
		result, err := e.calc.Compute(timeframe, candles)
		if err != nil {
			return 0, err
		}
		return result.RSI, nil
	default:
		return 0, fmt.Errorf("engine: 不支持的条件指标 %s", cond.Indicator)
	}
}

func compare(value float64, operator string, threshold float64) bool {
	switch operator {
	case ">":
		return value > threshold
	case ">=":
		return value >= threshold
	case "<":
		return value < threshold
	case "<=":
		return value <= threshold
	default:
		return false
	}
}

// executionPrice 对市价执行应用固定滑点：买单加价、卖单折价。
func executionPrice(price float64, side order.Side, slippage float64) float64 {
	if side == order.SideBuy {
		return price * (1 + slippage)
	}
	return price * (1 - slippage)
}

func immediateOnly(tif order.TimeInForce) bool {
	return tif == order.TIFImmediate || tif == order.TIFFillOrKill
}
