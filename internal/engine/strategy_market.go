package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"defi-order-engine/internal/catalog"
	"defi-order-engine/internal/order"
)

// runMarket 以当前价加固定滑点立即成交，收取 taker 费。
// 携带触发条件的市价单会先轮询等待条件满足。
func (e *Engine) runMarket(ctx context.Context, orderID string, pair catalog.TradingPair) error {
	o, err := e.repo.Get(orderID)
	if err != nil {
		return err
	}

	if len(o.Conditions) > 0 {
		return e.pollUntil(ctx, orderID, func(o order.AdvancedOrder, price float64) (bool, error) {
			return true, e.fillAtMarket(ctx, o, price, pair)
		})
	}

	price, err := e.market.CurrentPrice(ctx, o.Symbol)
	if err != nil {
		return fmt.Errorf("获取行情失败: %w", err)
	}
	return e.fillAtMarket(ctx, o, price, pair)
}

func (e *Engine) fillAtMarket(ctx context.Context, o order.AdvancedOrder, price float64, pair catalog.TradingPair) error {
	exec := executionPrice(price, o.Side, e.cfg.Slippage)
	_, err := e.applyFill(ctx, o.ID, o.Remaining, exec, pair.TakerFee)
	if errors.Is(err, order.ErrTerminal) {
		// 订单在成交前被并发取消，按正常结束处理。
		return nil
	}
	return err
}

// runBracket 先按市价执行主单；仅当主单 FILLED 时，在对侧合成并提交
// 止损（STOP）与止盈（LIMIT）子单，子单继承数量并记录父单ID。
// 未提供对应风险参数时跳过该子单。
func (e *Engine) runBracket(ctx context.Context, orderID string, pair catalog.TradingPair) error {
	if err := e.runMarket(ctx, orderID, pair); err != nil {
		return err
	}

	primary, err := e.repo.Get(orderID)
	if err != nil {
		return err
	}
	if primary.Status != order.StatusFilled {
		return nil
	}

	risk := primary.Metadata.Risk
	childSide := primary.Side.Opposite()
	basePrice := primary.AveragePrice

	if risk.StopLossPercent > 0 {
		stopPrice := basePrice * (1 - risk.StopLossPercent/100)
		if primary.Side == order.SideSell {
			stopPrice = basePrice * (1 + risk.StopLossPercent/100)
		}
		if err := e.submitBracketChild(ctx, primary, order.Draft{
			Type:      order.TypeStop,
			Side:      childSide,
			StopPrice: stopPrice,
		}); err != nil {
			return fmt.Errorf("提交止损子单失败: %w", err)
		}
	}

	if risk.TakeProfitPercent > 0 {
		takeProfit := basePrice * (1 + risk.TakeProfitPercent/100)
		if primary.Side == order.SideSell {
			takeProfit = basePrice * (1 - risk.TakeProfitPercent/100)
		}
		if err := e.submitBracketChild(ctx, primary, order.Draft{
			Type:  order.TypeLimit,
			Side:  childSide,
			Price: takeProfit,
		}); err != nil {
			return fmt.Errorf("提交止盈子单失败: %w", err)
		}
	}

	return nil
}

func (e *Engine) submitBracketChild(ctx context.Context, primary order.AdvancedOrder, draft order.Draft) error {
	draft.UserID = primary.UserID
	draft.WalletAddress = primary.WalletAddress
	draft.Symbol = primary.Symbol
	draft.Quantity = primary.Quantity
	draft.TimeInForce = order.TIFGoodTillCancel
	draft.Metadata = order.Metadata{
		Source:        primary.Metadata.Source,
		ParentOrderID: primary.ID,
		AlgorithmID:   primary.Metadata.AlgorithmID,
	}

	child, err := e.SubmitOrder(ctx, draft)
	if err != nil {
		return err
	}

	e.logger.Info("已提交括号子单",
		zap.String("parent_order_id", primary.ID),
		zap.String("child_order_id", child.ID),
		zap.String("child_type", string(child.Type)),
	)
	return nil
}
