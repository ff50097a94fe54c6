package order

import (
	"fmt"

	"defi-order-engine/internal/catalog"
)

// Validator 在订单进入仓库前执行交易对级与类型级前置检查。
type Validator struct {
	catalog *catalog.Catalog
}

// NewValidator 创建校验器。
func NewValidator(c *catalog.Catalog) *Validator {
	return &Validator{catalog: c}
}

// Validate 按固定顺序检查草稿，返回交易对定义或校验错误。
// 任何一项失败都会阻止订单被创建。
func (v *Validator) Validate(draft Draft) (catalog.TradingPair, error) {
	pair, err := v.catalog.Lookup(draft.Symbol)
	if err != nil {
		return catalog.TradingPair{}, &ValidationError{Reason: fmt.Sprintf("未知交易对 %s", draft.Symbol)}
	}

	if !pair.Active {
		return catalog.TradingPair{}, &ValidationError{Reason: fmt.Sprintf("交易对 %s 未激活", pair.Symbol)}
	}

	if draft.Quantity < pair.MinOrderSize || draft.Quantity > pair.MaxOrderSize {
		return catalog.TradingPair{}, &ValidationError{
			Reason: fmt.Sprintf("数量 %g 超出允许区间 [%g, %g]", draft.Quantity, pair.MinOrderSize, pair.MaxOrderSize),
		}
	}

	if draft.Side != SideBuy && draft.Side != SideSell {
		return catalog.TradingPair{}, &ValidationError{Reason: fmt.Sprintf("无效的订单方向 %q", draft.Side)}
	}

	switch draft.Type {
	case TypeLimit:
		if draft.Price <= 0 {
			return catalog.TradingPair{}, &ValidationError{Reason: "限价单必须指定 price"}
		}
	case TypeStop:
		if draft.StopPrice <= 0 {
			return catalog.TradingPair{}, &ValidationError{Reason: "止损单必须指定 stopPrice"}
		}
	case TypeStopLimit:
		if draft.StopPrice <= 0 {
			return catalog.TradingPair{}, &ValidationError{Reason: "止损限价单必须指定 stopPrice"}
		}
		if draft.LimitPrice <= 0 {
			return catalog.TradingPair{}, &ValidationError{Reason: "止损限价单必须指定 limitPrice"}
		}
	case TypeTrailingStop:
		hasAmount := draft.TrailingAmount > 0
		hasPercent := draft.TrailingPercent > 0
		if hasAmount == hasPercent {
			return catalog.TradingPair{}, &ValidationError{
				Reason: "移动止损必须且只能指定 trailingAmount 与 trailingPercent 其一",
			}
		}
	case TypeTWAP:
		if draft.TWAPSlices < 1 {
			return catalog.TradingPair{}, &ValidationError{Reason: "TWAP 订单必须指定至少1个切片"}
		}
		if draft.TWAPDuration <= 0 {
			return catalog.TradingPair{}, &ValidationError{Reason: "TWAP 订单必须指定正的执行时长"}
		}
	}

	return pair, nil
}
