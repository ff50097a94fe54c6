package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"defi-order-engine/internal/catalog"
	"defi-order-engine/internal/order"
)

// runTWAP 将总量均分为 slices 份，在 duration 内按固定间隔逐份执行。
// 每份按当时行情加滑点成交，切片之间订单保持 PARTIALLY_FILLED，
// 最后一份成交后进入 FILLED。
func (e *Engine) runTWAP(ctx context.Context, orderID string, pair catalog.TradingPair) error {
	o, err := e.repo.Get(orderID)
	if err != nil {
		return err
	}
	if o.TWAPSlices < 1 || o.TWAPDuration <= 0 {
		return fmt.Errorf("engine: TWAP 参数无效 slices=%d duration=%s", o.TWAPSlices, o.TWAPDuration)
	}

	slices := o.TWAPSlices
	interval := o.TWAPDuration / time.Duration(slices)
	sliceQty := o.Quantity / float64(slices)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for i := 1; i <= slices; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		current, err := e.repo.Get(orderID)
		if err != nil {
			return err
		}
		if current.Status.IsTerminal() {
			return nil
		}
		if e.checkExpiry(ctx, current) {
			return nil
		}

		price, err := e.market.CurrentPrice(ctx, current.Symbol)
		if err != nil {
			return fmt.Errorf("获取行情失败: %w", err)
		}

		qty := sliceQty
		if i == slices {
			// 最后一份吃掉全部剩余，避免浮点误差留下尾量。
			qty = current.Remaining
		}

		exec := executionPrice(price, current.Side, e.cfg.Slippage)
		if _, err := e.applyFill(ctx, orderID, qty, exec, pair.TakerFee); err != nil {
			if errors.Is(err, order.ErrTerminal) {
				return nil
			}
			return err
		}

		e.logger.Debug("TWAP 切片成交",
			zap.String("order_id", orderID),
			zap.Int("slice", i),
			zap.Int("slices", slices),
			zap.Float64("quantity", qty),
		)

		if i < slices {
			timer.Reset(interval)
		}
	}

	return nil
}
