package journal

import (
	"time"

	"defi-order-engine/internal/order"
	"defi-order-engine/internal/signal"
)

// EventType 表示事件类型。
type EventType string

const (
	EventOrderSubmitted  EventType = "order_submitted"
	EventOrderTransition EventType = "order_transition"
	EventOrderFill       EventType = "order_fill"
	EventAlgorithm       EventType = "algorithm"
	EventSignal          EventType = "signal"
	EventError           EventType = "error"
)

// Event 封装通用审计事件。
type Event struct {
	ID        int64     `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   string    `json:"payload"`
}

// OrderTransitionPayload 记录一次订单状态迁移。
type OrderTransitionPayload struct {
	OrderID string       `json:"order_id"`
	Symbol  string       `json:"symbol"`
	From    order.Status `json:"from"`
	To      order.Status `json:"to"`
	Filled  float64      `json:"filled"`
	Reason  string       `json:"reason,omitempty"`
}

// OrderFillPayload 记录一次成交。
type OrderFillPayload struct {
	OrderID      string  `json:"order_id"`
	Symbol       string  `json:"symbol"`
	Quantity     float64 `json:"quantity"`
	Price        float64 `json:"price"`
	Fee          float64 `json:"fee"`
	FilledTotal  float64 `json:"filled_total"`
	AveragePrice float64 `json:"average_price"`
}

// AlgorithmPayload 记录算法生命周期事件。
type AlgorithmPayload struct {
	AlgorithmID string                 `json:"algorithm_id"`
	Type        string                 `json:"type"`
	Status      string                 `json:"status"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
}

// SignalPayload 记录生成的交易信号。
type SignalPayload struct {
	Signal signal.TradingSignal `json:"signal"`
}

// ErrorPayload 记录运行期错误。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Details map[string]interface{} `json:"details,omitempty"`
}
