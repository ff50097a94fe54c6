package signal

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"defi-order-engine/internal/config"
	"defi-order-engine/internal/indicator"
	"defi-order-engine/internal/market"
	"defi-order-engine/internal/order"
)

// 指标权重，合计为1。
const (
	weightRSI       = 0.40
	weightMACD      = 0.35
	weightBollinger = 0.25
)

const (
	rsiOversold   = 30.0
	rsiOverbought = 70.0
	bbLowerZone   = 0.20
	bbUpperZone   = 0.80
)

// Generator 将多个加权指标读数合成为交易信号。
type Generator struct {
	snapshots *market.SnapshotService
	calc      *indicator.Calculator
	cfg       config.SignalConfig
	logger    *zap.Logger
}

// NewGenerator 创建信号生成器。
func NewGenerator(snapshots *market.SnapshotService, calc *indicator.Calculator, cfg config.SignalConfig, logger *zap.Logger) *Generator {
	if calc == nil {
		calc = indicator.NewCalculator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CandleLimit <= 0 {
		cfg.CandleLimit = 200
	}
	if cfg.SignalExpiry <= 0 {
		cfg.SignalExpiry = 15 * time.Minute
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = market.Timeframe1h
	}
	if cfg.TrendTimeframe == "" {
		cfg.TrendTimeframe = market.Timeframe4h
	}
	return &Generator{
		snapshots: snapshots,
		calc:      calc,
		cfg:       cfg,
		logger:    logger,
	}
}

// Generate 针对单个交易对产出0个或多个信号。
func (g *Generator) Generate(ctx context.Context, symbol string) ([]TradingSignal, error) {
	snapshot, err := g.snapshots.GetSnapshot(ctx, symbol, market.SnapshotRequest{
		Limit1H: g.cfg.CandleLimit,
		Limit4H: g.cfg.CandleLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("signal: 拉取市场快照失败: %w", err)
	}

	primary, err := g.calc.Compute(g.cfg.Timeframe, snapshot.Candles1H)
	if err != nil {
		return nil, fmt.Errorf("signal: %w", err)
	}
	trend, err := g.calc.Compute(g.cfg.TrendTimeframe, snapshot.Candles4H)
	if err != nil {
		return nil, fmt.Errorf("signal: %w", err)
	}

	readings := buildReadings(primary)
	score := 0.0
	for _, r := range readings {
		score += r.Vote * r.Weight
	}

	strength := math.Abs(score)
	if strength < g.cfg.MinStrength {
		return nil, nil
	}

	side := order.SideBuy
	if score < 0 {
		side = order.SideSell
	}

	confidence := confidenceFor(strength, side, trend)

	now := time.Now().UTC()
	sig := TradingSignal{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Side:        side,
		Strength:    strength,
		Confidence:  confidence,
		Indicators:  readings,
		GeneratedAt: now,
		ExpiresAt:   now.Add(g.cfg.SignalExpiry),
	}

	g.logger.Info("生成交易信号",
		zap.String("symbol", symbol),
		zap.String("side", string(side)),
		zap.Float64("strength", strength),
		zap.Float64("confidence", confidence),
	)

	return []TradingSignal{sig}, nil
}

func buildReadings(result indicator.Result) []IndicatorReading {
	rsiVote := 0.0
	switch {
	case result.RSI <= rsiOversold:
		rsiVote = 1
	case result.RSI >= rsiOverbought:
		rsiVote = -1
	}

	macdVote := 0.0
	switch {
	case result.MACD.Histogram > 0:
		macdVote = 1
	case result.MACD.Histogram < 0:
		macdVote = -1
	}

	bbVote := 0.0
	switch {
	case result.Bollinger.Position <= bbLowerZone:
		bbVote = 1
	case result.Bollinger.Position >= bbUpperZone:
		bbVote = -1
	}

	return []IndicatorReading{
		{Name: "RSI", Value: result.RSI, Vote: rsiVote, Weight: weightRSI},
		{Name: "MACD", Value: result.MACD.Histogram, Vote: macdVote, Weight: weightMACD},
		{Name: "BOLLINGER", Value: result.Bollinger.Position, Vote: bbVote, Weight: weightBollinger},
	}
}

// confidenceFor 以信号强度为基础，高周期趋势同向时加成，逆向时打折。
func confidenceFor(strength float64, side order.Side, trend indicator.Result) float64 {
	confidence := strength

	trendUp := trend.EMA12 > trend.EMA26
	if (side == order.SideBuy && trendUp) || (side == order.SideSell && !trendUp) {
		confidence *= 1.25
	} else {
		confidence *= 0.75
	}

	return math.Min(1, confidence)
}
