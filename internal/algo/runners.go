package algo

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"defi-order-engine/internal/order"
)

// runDCA 按固定间隔以市价买入（或卖出）固定金额，达到最大次数后自动完成。
func (e *Engine) runDCA(ctx context.Context, id string, p DCAParams) error {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if !e.isActive(id) {
			continue
		}

		alg, err := e.Get(id)
		if err != nil {
			return err
		}

		price, err := e.market.CurrentPrice(ctx, p.Symbol)
		if err != nil {
			return fmt.Errorf("algo: dca 获取行情失败: %w", err)
		}
		qty := p.Amount / price

		draft := childDraft(alg, p.Symbol, order.TypeMarket, p.Side, qty)
		if _, err := e.submitter.SubmitOrder(ctx, draft); err != nil {
			return fmt.Errorf("algo: dca 下单失败: %w", err)
		}
		e.trackOrder(id, p.Side, qty, price)
		e.logger.Info("定投下单",
			zap.String("algorithm_id", id),
			zap.String("symbol", p.Symbol),
			zap.Float64("quantity", qty),
			zap.Float64("price", price),
		)

		if e.totalOrders(id) >= p.MaxOrders {
			e.complete(id, TypeDCA)
			return nil
		}
	}
}

// gridSlot 记录一个网格档位及其当前挂单。
type gridSlot struct {
	side    order.Side
	price   float64
	orderID string
}

// runGrid 在基准价两侧各挂 GridLevels 个限价单，成交的档位在下一轮检查时重新挂出。
func (e *Engine) runGrid(ctx context.Context, id string, p GridParams) error {
	alg, err := e.Get(id)
	if err != nil {
		return err
	}

	slots := make([]*gridSlot, 0, p.GridLevels*2)
	for level := 1; level <= p.GridLevels; level++ {
		offset := p.BasePrice * p.GridSpacingPercent / 100 * float64(level)
		slots = append(slots,
			&gridSlot{side: order.SideBuy, price: p.BasePrice - offset},
			&gridSlot{side: order.SideSell, price: p.BasePrice + offset},
		)
	}

	place := func(slot *gridSlot) error {
		draft := childDraft(alg, p.Symbol, order.TypeLimit, slot.side, p.Quantity)
		draft.Price = slot.price
		placed, err := e.submitter.SubmitOrder(ctx, draft)
		if err != nil {
			return fmt.Errorf("algo: grid 挂单失败: %w", err)
		}
		slot.orderID = placed.ID
		e.trackPlacement(id)
		return nil
	}

	for _, slot := range slots {
		if slot.price <= 0 {
			continue
		}
		if err := place(slot); err != nil {
			return err
		}
	}
	e.logger.Info("网格已铺设",
		zap.String("algorithm_id", id),
		zap.String("symbol", p.Symbol),
		zap.Int("levels", p.GridLevels),
		zap.Float64("base_price", p.BasePrice),
	)

	ticker := time.NewTicker(e.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if !e.isActive(id) {
			continue
		}

		for _, slot := range slots {
			if slot.orderID == "" {
				continue
			}
			child, err := e.submitter.GetOrder(slot.orderID)
			if err != nil {
				continue
			}
			if child.Status == order.StatusFilled {
				// 成交量与盈亏在确认成交时记账，挂单时不计。
				e.trackFill(id, child.Side, child.Filled, child.AveragePrice)
				if err := place(slot); err != nil {
					return err
				}
			}
		}
	}
}

// runMomentum 基于变动率动量得分做方向性市价单：得分越过阈值即追随方向下单。
func (e *Engine) runMomentum(ctx context.Context, id string, p MomentumParams) error {
	interval := p.Interval
	if interval <= 0 {
		interval = e.checkInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if !e.isActive(id) {
			continue
		}

		alg, err := e.Get(id)
		if err != nil {
			return err
		}

		candles, err := e.market.Candles(ctx, p.Symbol, p.Timeframe, p.LookbackPeriod+50)
		if err != nil {
			return fmt.Errorf("algo: momentum 获取K线失败: %w", err)
		}
		score, err := e.calc.MomentumScore(candles, p.LookbackPeriod)
		if err != nil {
			return fmt.Errorf("algo: momentum 计算动量失败: %w", err)
		}
		if math.Abs(score) < p.Threshold {
			continue
		}

		side := order.SideBuy
		if score < 0 {
			side = order.SideSell
		}
		draft := childDraft(alg, p.Symbol, order.TypeMarket, side, p.Quantity)
		if _, err := e.submitter.SubmitOrder(ctx, draft); err != nil {
			return fmt.Errorf("algo: momentum 下单失败: %w", err)
		}

		price := candles[len(candles)-1].Close
		e.trackOrder(id, side, p.Quantity, price)
		e.logger.Info("动量信号触发下单",
			zap.String("algorithm_id", id),
			zap.String("symbol", p.Symbol),
			zap.String("side", string(side)),
			zap.Float64("score", score),
		)
	}
}

// runMeanReversion 要求 RSI 与布林带位置同时确认超买或超卖，再反向下市价单。
func (e *Engine) runMeanReversion(ctx context.Context, id string, p MeanReversionParams) error {
	interval := p.Interval
	if interval <= 0 {
		interval = e.checkInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if !e.isActive(id) {
			continue
		}

		alg, err := e.Get(id)
		if err != nil {
			return err
		}

		candles, err := e.market.Candles(ctx, p.Symbol, p.Timeframe, 100)
		if err != nil {
			return fmt.Errorf("algo: mean_reversion 获取K线失败: %w", err)
		}
		result, err := e.calc.Compute(p.Timeframe, candles)
		if err != nil {
			return fmt.Errorf("algo: mean_reversion 计算指标失败: %w", err)
		}

		var side order.Side
		switch {
		case result.RSI < p.Oversold && result.Bollinger.Position <= 0.2:
			side = order.SideBuy
		case result.RSI > p.Overbought && result.Bollinger.Position >= 0.8:
			side = order.SideSell
		default:
			continue
		}

		draft := childDraft(alg, p.Symbol, order.TypeMarket, side, p.Quantity)
		if _, err := e.submitter.SubmitOrder(ctx, draft); err != nil {
			return fmt.Errorf("algo: mean_reversion 下单失败: %w", err)
		}

		price := candles[len(candles)-1].Close
		e.trackOrder(id, side, p.Quantity, price)
		e.logger.Info("均值回归信号触发下单",
			zap.String("algorithm_id", id),
			zap.String("symbol", p.Symbol),
			zap.String("side", string(side)),
			zap.Float64("rsi", result.RSI),
			zap.Float64("bb_position", result.Bollinger.Position),
		)
	}
}
