package market

import "context"

// Provider 是核心依赖的行情数据端口。
// 订单监控与算法调度只通过该接口读取行情，便于在测试中替换为确定性实现。
type Provider interface {
	// CurrentPrice 返回指定交易对的最新成交价。
	CurrentPrice(ctx context.Context, symbol string) (float64, error)
	// Ticker 返回包含买卖盘口的行情快照。
	Ticker(ctx context.Context, symbol string) (Data, error)
	// Candles 返回指定周期的K线数据，按时间升序排列。
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
	// OrderBook 返回订单簿快照。
	OrderBook(ctx context.Context, symbol string, depth int) (OrderBookSnapshot, error)
}
