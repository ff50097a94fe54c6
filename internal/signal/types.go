package signal

import (
	"time"

	"defi-order-engine/internal/order"
)

// IndicatorReading 记录一个参与打分的指标读数。
type IndicatorReading struct {
	Name   string  `json:"name"`
	Value  float64 `json:"value"`
	Vote   float64 `json:"vote"`
	Weight float64 `json:"weight"`
}

// TradingSignal 是纯建议性的交易信号，除非算法或调用方采纳，否则没有任何副作用。
type TradingSignal struct {
	ID          string             `json:"id"`
	Symbol      string             `json:"symbol"`
	Side        order.Side         `json:"side"`
	Strength    float64            `json:"strength"`
	Confidence  float64            `json:"confidence"`
	Indicators  []IndicatorReading `json:"indicators"`
	GeneratedAt time.Time          `json:"generated_at"`
	ExpiresAt   time.Time          `json:"expires_at"`
}

// Expired 判断信号是否已过期。
func (s TradingSignal) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
