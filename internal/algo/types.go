package algo

import "time"

// Type 表示算法策略类型。
type Type string

const (
	TypeDCA           Type = "DCA"
	TypeGrid          Type = "GRID"
	TypeTWAP          Type = "TWAP"
	TypeVWAP          Type = "VWAP"
	TypeMomentum      Type = "MOMENTUM"
	TypeMeanReversion Type = "MEAN_REVERSION"
	TypeArbitrage     Type = "ARBITRAGE"
	TypeMarketMaking  Type = "MARKET_MAKING"
)

// Status 表示算法运行状态。
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusPaused    Status = "PAUSED"
	StatusStopped   Status = "STOPPED"
	StatusCompleted Status = "COMPLETED"
	StatusError     Status = "ERROR"
)

// IsTerminal 判断算法是否已结束。
func (s Status) IsTerminal() bool {
	switch s {
	case StatusStopped, StatusCompleted, StatusError:
		return true
	default:
		return false
	}
}

// Performance 累计算法的执行表现。
// PnL 为简化的现金流口径：卖出计正、买入计负。
type Performance struct {
	TotalOrders      int
	SuccessfulOrders int
	TotalVolume      float64
	PnL              float64
	WinRate          float64
	StartTime        time.Time
	EndTime          time.Time
}

// Algorithm 是一个长生命周期策略实例。
// 它拥有自己提交的子订单的引用关系（通过订单元数据），但不拥有订单仓库；
// 停止算法只停止新的提交，已提交订单继续独立走完生命周期。
type Algorithm struct {
	ID            string
	UserID        string
	WalletAddress string
	Type          Type
	Params        Params
	Status        Status
	Performance   Performance
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
