package market

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SnapshotService 聚合多时间框架K线及盘口数据获取。
type SnapshotService struct {
	provider Provider
	logger   *zap.Logger
}

// NewSnapshotService 创建快照服务。
func NewSnapshotService(provider Provider, logger *zap.Logger) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{
		provider: provider,
		logger:   logger,
	}
}

// GetSnapshot 并行拉取1小时、4小时K线及订单簿，组成市场数据快照。
func (s *SnapshotService) GetSnapshot(ctx context.Context, symbol string, req SnapshotRequest) (Snapshot, error) {
	defaultReq := DefaultSnapshotRequest()
	if req.Limit1H <= 0 {
		req.Limit1H = defaultReq.Limit1H
	}
	if req.Limit4H <= 0 {
		req.Limit4H = defaultReq.Limit4H
	}
	if req.OrderBookDepth <= 0 {
		req.OrderBookDepth = defaultReq.OrderBookDepth
	}

	var (
		candles1H []Candle
		candles4H []Candle
		orderBook OrderBookSnapshot
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		data, err := s.provider.Candles(groupCtx, symbol, Timeframe1h, req.Limit1H)
		if err != nil {
			return err
		}
		candles1H = data
		return nil
	})

	group.Go(func() error {
		data, err := s.provider.Candles(groupCtx, symbol, Timeframe4h, req.Limit4H)
		if err != nil {
			return err
		}
		candles4H = data
		return nil
	})

	group.Go(func() error {
		data, err := s.provider.OrderBook(groupCtx, symbol, req.OrderBookDepth)
		if err != nil {
			return err
		}
		orderBook = data
		return nil
	})

	if err := group.Wait(); err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Symbol:      symbol,
		Candles1H:   candles1H,
		Candles4H:   candles4H,
		OrderBook:   orderBook,
		RetrievedAt: time.Now().UTC(),
	}, nil
}
