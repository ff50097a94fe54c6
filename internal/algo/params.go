package algo

import (
	"errors"
	"fmt"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"

	"defi-order-engine/internal/market"
	"defi-order-engine/internal/order"
)

// Params 是按算法类型区分的强类型参数，由 DecodeParams 依据类型判别式选择。
type Params interface {
	Validate() error
}

// DCAParams 为定投策略参数。
type DCAParams struct {
	Symbol    string        `mapstructure:"symbol"`
	Side      order.Side    `mapstructure:"side"`
	Amount    float64       `mapstructure:"amount"`
	Interval  time.Duration `mapstructure:"interval"`
	MaxOrders int           `mapstructure:"max_orders"`
}

// Validate 校验定投参数。
func (p DCAParams) Validate() error {
	if p.Symbol == "" {
		return errors.New("algo: dca 参数缺少 symbol")
	}
	if p.Amount <= 0 {
		return errors.New("algo: dca 参数 amount 必须大于0")
	}
	if p.Interval <= 0 {
		return errors.New("algo: dca 参数 interval 必须大于0")
	}
	if p.MaxOrders <= 0 {
		return errors.New("algo: dca 参数 max_orders 必须大于0")
	}
	return nil
}

// GridParams 为网格策略参数。
type GridParams struct {
	Symbol             string  `mapstructure:"symbol"`
	Quantity           float64 `mapstructure:"quantity"`
	GridLevels         int     `mapstructure:"grid_levels"`
	GridSpacingPercent float64 `mapstructure:"grid_spacing_percent"`
	BasePrice          float64 `mapstructure:"base_price"`
}

// Validate 校验网格参数。
func (p GridParams) Validate() error {
	if p.Symbol == "" {
		return errors.New("algo: grid 参数缺少 symbol")
	}
	if p.Quantity <= 0 {
		return errors.New("algo: grid 参数 quantity 必须大于0")
	}
	if p.GridLevels <= 0 {
		return errors.New("algo: grid 参数 grid_levels 必须大于0")
	}
	if p.GridSpacingPercent <= 0 {
		return errors.New("algo: grid 参数 grid_spacing_percent 必须大于0")
	}
	if p.BasePrice <= 0 {
		return errors.New("algo: grid 参数 base_price 必须大于0")
	}
	return nil
}

// MomentumParams 为动量策略参数。
type MomentumParams struct {
	Symbol         string        `mapstructure:"symbol"`
	Quantity       float64       `mapstructure:"quantity"`
	LookbackPeriod int           `mapstructure:"lookback_period"`
	Threshold      float64       `mapstructure:"momentum_threshold"`
	Interval       time.Duration `mapstructure:"interval"`
	Timeframe      string        `mapstructure:"timeframe"`
}

// Validate 校验动量参数。
func (p MomentumParams) Validate() error {
	if p.Symbol == "" {
		return errors.New("algo: momentum 参数缺少 symbol")
	}
	if p.Quantity <= 0 {
		return errors.New("algo: momentum 参数 quantity 必须大于0")
	}
	if p.LookbackPeriod <= 0 {
		return errors.New("algo: momentum 参数 lookback_period 必须大于0")
	}
	if p.Threshold <= 0 {
		return errors.New("algo: momentum 参数 momentum_threshold 必须大于0")
	}
	return nil
}

// MeanReversionParams 为均值回归策略参数。
type MeanReversionParams struct {
	Symbol     string        `mapstructure:"symbol"`
	Quantity   float64       `mapstructure:"quantity"`
	Oversold   float64       `mapstructure:"oversold"`
	Overbought float64       `mapstructure:"overbought"`
	Interval   time.Duration `mapstructure:"interval"`
	Timeframe  string        `mapstructure:"timeframe"`
}

// Validate 校验均值回归参数。
func (p MeanReversionParams) Validate() error {
	if p.Symbol == "" {
		return errors.New("algo: mean_reversion 参数缺少 symbol")
	}
	if p.Quantity <= 0 {
		return errors.New("algo: mean_reversion 参数 quantity 必须大于0")
	}
	if p.Oversold <= 0 || p.Overbought >= 100 || p.Oversold >= p.Overbought {
		return errors.New("algo: mean_reversion 参数要求 0 < oversold < overbought < 100")
	}
	return nil
}

// DecodeParams 将自由形式的参数映射解码为按类型区分的强类型参数。
func DecodeParams(t Type, raw map[string]interface{}) (Params, error) {
	switch t {
	case TypeDCA:
		var p DCAParams
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		if p.Side == "" {
			p.Side = order.SideBuy
		}
		return p, p.Validate()
	case TypeGrid:
		var p GridParams
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		return p, p.Validate()
	case TypeMomentum:
		var p MomentumParams
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		if p.Timeframe == "" {
			p.Timeframe = market.Timeframe1h
		}
		return p, p.Validate()
	case TypeMeanReversion:
		var p MeanReversionParams
		if err := decode(raw, &p); err != nil {
			return nil, err
		}
		if p.Timeframe == "" {
			p.Timeframe = market.Timeframe1h
		}
		return p, p.Validate()
	case TypeTWAP, TypeVWAP:
		return nil, fmt.Errorf("algo: %s 由订单执行引擎直接支持，请提交对应类型的订单", t)
	default:
		return nil, fmt.Errorf("algo: 暂不支持的算法类型 %s", t)
	}
}

func decode(raw map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  out,
		TagName: "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return fmt.Errorf("algo: 构建参数解码器失败: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("algo: 解析算法参数失败: %w", err)
	}
	return nil
}
