package order

import "time"

// Type 表示订单类型。
type Type string

const (
	TypeMarket       Type = "MARKET"
	TypeLimit        Type = "LIMIT"
	TypeStop         Type = "STOP"
	TypeStopLimit    Type = "STOP_LIMIT"
	TypeTrailingStop Type = "TRAILING_STOP"
	TypeIceberg      Type = "ICEBERG"
	TypeTWAP         Type = "TWAP"
	TypeVWAP         Type = "VWAP"
	TypeBracket      Type = "BRACKET"
	TypeOCO          Type = "OCO"
)

// Side 表示买卖方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Opposite 返回相反方向。
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Status 表示订单所处的生命周期状态。
type Status string

const (
	StatusPending         Status = "PENDING"
	StatusOpen            Status = "OPEN"
	StatusPartiallyFilled Status = "PARTIALLY_FILLED"
	StatusFilled          Status = "FILLED"
	StatusCancelled       Status = "CANCELLED"
	StatusRejected        Status = "REJECTED"
	StatusExpired         Status = "EXPIRED"
)

// IsTerminal 判断状态是否为终态，终态订单不可再被修改。
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected, StatusExpired:
		return true
	default:
		return false
	}
}

// TimeInForce 表示订单有效期策略。
type TimeInForce string

const (
	TIFGoodTillCancel TimeInForce = "GTC"
	TIFImmediate      TimeInForce = "IOC"
	TIFFillOrKill     TimeInForce = "FOK"
	TIFGoodTillDate   TimeInForce = "GTD"
)

// Source 标记订单来源。
type Source string

const (
	SourceManual    Source = "manual"
	SourceAlgorithm Source = "algorithm"
	SourceAPI       Source = "api"
)

// Condition 是条件单的触发谓词，按实时行情评估。
type Condition struct {
	Indicator string
	Operator  string
	Threshold float64
	Timeframe string
}

// RiskParams 携带括号单的风控参数，零值字段表示未设置。
type RiskParams struct {
	StopLossPercent   float64
	TakeProfitPercent float64
}

// Metadata 记录订单来源与父子关系。
type Metadata struct {
	Source        Source
	ParentOrderID string
	AlgorithmID   string
	Risk          RiskParams
}

// Draft 是提交订单时的输入，校验通过后才会生成 AdvancedOrder。
type Draft struct {
	UserID          string
	WalletAddress   string
	Symbol          string
	Type            Type
	Side            Side
	Quantity        float64
	Price           float64
	StopPrice       float64
	LimitPrice      float64
	TrailingAmount  float64
	TrailingPercent float64
	TimeInForce     TimeInForce
	Conditions      []Condition
	TWAPSlices      int
	TWAPDuration    time.Duration
	ExpiresAt       time.Time
	Metadata        Metadata
}

// AdvancedOrder 是订单的规范表示，仓库为唯一事实来源。
// 不变式: Filled + Remaining == Quantity；Remaining 单调不增；终态后不再变化。
type AdvancedOrder struct {
	ID              string
	UserID          string
	WalletAddress   string
	Symbol          string
	Type            Type
	Side            Side
	Status          Status
	Quantity        float64
	Price           float64
	StopPrice       float64
	LimitPrice      float64
	TrailingAmount  float64
	TrailingPercent float64
	TimeInForce     TimeInForce
	Conditions      []Condition
	TWAPSlices      int
	TWAPDuration    time.Duration
	Filled          float64
	Remaining       float64
	AveragePrice    float64
	Fees            float64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpiresAt       time.Time
	ExecutedAt      time.Time
	CancelledAt     time.Time
	Metadata        Metadata
}

// Clone 返回订单的深拷贝，调用方可以安全持有。
func (o AdvancedOrder) Clone() AdvancedOrder {
	clone := o
	if len(o.Conditions) > 0 {
		clone.Conditions = make([]Condition, len(o.Conditions))
		copy(clone.Conditions, o.Conditions)
	}
	return clone
}

// Filter 约束 List 查询结果。
type Filter struct {
	Symbol      string
	Status      Status
	Type        Type
	AlgorithmID string
}
