package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"defi-order-engine/internal/advisor"
	"defi-order-engine/internal/algo"
	"defi-order-engine/internal/catalog"
	"defi-order-engine/internal/indicator"
	"defi-order-engine/internal/journal"
	"defi-order-engine/internal/market"
	"defi-order-engine/internal/order"
	"defi-order-engine/internal/signal"
)

// ErrClosed 表示引擎已关闭，不再接纳新订单。
var ErrClosed = errors.New("engine: 引擎已关闭")

// Config 控制执行行为。
type Config struct {
	// Slippage 为市价执行的固定滑点比例，买单加价、卖单折价。
	Slippage float64
	// PollInterval 为订单监控任务的轮询间隔。
	PollInterval time.Duration
}

// Deps 聚合引擎的外部协作对象。
type Deps struct {
	Catalog *catalog.Catalog
	Market  market.Provider
	Signals *signal.Generator
	Journal *journal.Service
	Advisor *advisor.Client
	Logger  *zap.Logger
}

// Engine 是订单管理与执行引擎的服务对象，显式构造、依赖注入，无全局状态。
// 每个非终态订单由一个独立的可取消监控任务驱动，任务间互不阻塞。
type Engine struct {
	cfg       Config
	catalog   *catalog.Catalog
	repo      *order.Repository
	validator *order.Validator
	market    market.Provider
	signals   *signal.Generator
	journal   *journal.Service
	advisor   *advisor.Client
	calc      *indicator.Calculator
	logger    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	monitorMu sync.Mutex
	monitors  map[string]context.CancelFunc
	algos     *algo.Engine
	closed    bool
}

// New 创建引擎实例。
func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Catalog == nil {
		return nil, errors.New("engine: catalog 不能为空")
	}
	if deps.Market == nil {
		return nil, errors.New("engine: market provider 不能为空")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.Slippage < 0 {
		cfg.Slippage = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		cfg:       cfg,
		catalog:   deps.Catalog,
		repo:      order.NewRepository(),
		validator: order.NewValidator(deps.Catalog),
		market:    deps.Market,
		signals:   deps.Signals,
		journal:   deps.Journal,
		advisor:   deps.Advisor,
		calc:      indicator.NewCalculator(),
		logger:    deps.Logger,
		ctx:       ctx,
		cancel:    cancel,
		monitors:  make(map[string]context.CancelFunc),
	}, nil
}

// SubmitOrder 校验并接纳一个订单草稿。
// 校验失败返回 *order.ValidationError 且不创建任何订单；
// 成功后订单以 PENDING 状态入库，并异步推进到 OPEN 交由对应策略监控。
func (e *Engine) SubmitOrder(ctx context.Context, draft order.Draft) (order.AdvancedOrder, error) {
	e.monitorMu.Lock()
	closed := e.closed
	e.monitorMu.Unlock()
	if closed {
		return order.AdvancedOrder{}, ErrClosed
	}

	pair, err := e.validator.Validate(draft)
	if err != nil {
		e.logger.Info("订单被拒绝",
			zap.String("symbol", draft.Symbol),
			zap.String("type", string(draft.Type)),
			zap.Error(err),
		)
		return order.AdvancedOrder{}, err
	}

	now := time.Now().UTC()
	meta := draft.Metadata
	if meta.Source == "" {
		meta.Source = order.SourceManual
	}
	tif := draft.TimeInForce
	if tif == "" {
		tif = order.TIFGoodTillCancel
	}

	o := order.AdvancedOrder{
		ID:              uuid.NewString(),
		UserID:          draft.UserID,
		WalletAddress:   draft.WalletAddress,
		Symbol:          pair.Symbol,
		Type:            draft.Type,
		Side:            draft.Side,
		Status:          order.StatusPending,
		Quantity:        draft.Quantity,
		Price:           draft.Price,
		StopPrice:       draft.StopPrice,
		LimitPrice:      draft.LimitPrice,
		TrailingAmount:  draft.TrailingAmount,
		TrailingPercent: draft.TrailingPercent,
		TimeInForce:     tif,
		Conditions:      draft.Conditions,
		TWAPSlices:      draft.TWAPSlices,
		TWAPDuration:    draft.TWAPDuration,
		Remaining:       draft.Quantity,
		CreatedAt:       now,
		UpdatedAt:       now,
		ExpiresAt:       draft.ExpiresAt,
		Metadata:        meta,
	}

	if err := e.repo.Insert(o); err != nil {
		return order.AdvancedOrder{}, err
	}

	if e.journal != nil {
		e.journal.RecordOrderSubmitted(ctx, o)
	}

	e.logger.Info("订单已接纳",
		zap.String("order_id", o.ID),
		zap.String("symbol", o.Symbol),
		zap.String("type", string(o.Type)),
		zap.String("side", string(o.Side)),
		zap.Float64("quantity", o.Quantity),
	)

	// Close 与入库之间存在窗口，监控启动失败时不得留下永不推进的订单。
	if err := e.startMonitor(o.ID, pair); err != nil {
		e.rejectOrder(o.ID, err)
		return order.AdvancedOrder{}, err
	}

	return o, nil
}

// CancelOrder 取消订单并停止其监控任务。
// 幂等：订单已终态或不存在时返回 false，否则恰好取消一次并返回 true。
func (e *Engine) CancelOrder(ctx context.Context, orderID string) bool {
	e.stopMonitor(orderID)

	var from order.Status
	updated, err := e.repo.Update(orderID, func(o *order.AdvancedOrder) error {
		from = o.Status
		o.Status = order.StatusCancelled
		o.CancelledAt = time.Now().UTC()
		return nil
	})
	if err != nil {
		return false
	}

	if e.journal != nil {
		e.journal.RecordOrderTransition(ctx, updated, from, "cancelled by caller")
	}
	e.logger.Info("订单已取消", zap.String("order_id", orderID))
	return true
}

// GetOrder 返回订单副本。
func (e *Engine) GetOrder(orderID string) (order.AdvancedOrder, error) {
	return e.repo.Get(orderID)
}

// ListOrders 返回指定用户的订单。
func (e *Engine) ListOrders(userID string, filter order.Filter) []order.AdvancedOrder {
	return e.repo.List(userID, filter)
}

// GetMarketData 返回交易对的当前行情。
func (e *Engine) GetMarketData(ctx context.Context, symbol string) (market.Data, error) {
	if _, err := e.catalog.Lookup(symbol); err != nil {
		return market.Data{}, err
	}
	return e.market.Ticker(ctx, symbol)
}

// GenerateSignals 生成交易对的建议性信号并记录到审计日志。
func (e *Engine) GenerateSignals(ctx context.Context, symbol string) ([]signal.TradingSignal, error) {
	if e.signals == nil {
		return nil, errors.New("engine: 信号生成器未配置")
	}
	if _, err := e.catalog.Lookup(symbol); err != nil {
		return nil, err
	}

	signals, err := e.signals.Generate(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if e.journal != nil {
		for _, sig := range signals {
			e.journal.RecordSignal(ctx, sig)
		}
	}

	return signals, nil
}

// ReviewSignals 生成信号并通过可选的 AI 点评器给出人读摘要。
func (e *Engine) ReviewSignals(ctx context.Context, symbol string) ([]signal.TradingSignal, string, error) {
	if e.advisor == nil {
		return nil, "", errors.New("engine: 信号点评器未启用")
	}

	signals, err := e.GenerateSignals(ctx, symbol)
	if err != nil {
		return nil, "", err
	}
	if len(signals) == 0 {
		return nil, "", nil
	}

	review, err := e.advisor.Review(ctx, signals)
	if err != nil {
		return signals, "", err
	}

	return signals, review, nil
}

// Close 优雅关闭：取消全部存活的监控任务并等待其退出。
func (e *Engine) Close() {
	e.monitorMu.Lock()
	e.closed = true
	e.monitorMu.Unlock()

	e.cancel()
	e.wg.Wait()
}

// MonitorCount 返回当前存活的监控任务数，主要用于测试与运维观察。
func (e *Engine) MonitorCount() int {
	e.monitorMu.Lock()
	defer e.monitorMu.Unlock()
	return len(e.monitors)
}

func (e *Engine) startMonitor(orderID string, pair catalog.TradingPair) error {
	e.monitorMu.Lock()
	if e.closed {
		e.monitorMu.Unlock()
		return ErrClosed
	}
	monCtx, cancel := context.WithCancel(e.ctx)
	e.monitors[orderID] = cancel
	e.wg.Add(1)
	e.monitorMu.Unlock()

	go func() {
		defer e.wg.Done()
		defer e.stopMonitor(orderID)

		if _, err := e.transition(monCtx, orderID, order.StatusOpen, ""); err != nil {
			// 订单在入库与开启之间被取消，直接退出。
			return
		}

		if err := e.runStrategy(monCtx, orderID, pair); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			e.rejectOrder(orderID, err)
		}
	}()
	return nil
}

func (e *Engine) stopMonitor(orderID string) {
	e.monitorMu.Lock()
	cancel, ok := e.monitors[orderID]
	if ok {
		delete(e.monitors, orderID)
	}
	e.monitorMu.Unlock()

	if ok {
		cancel()
	}
}

func (e *Engine) runStrategy(ctx context.Context, orderID string, pair catalog.TradingPair) error {
	o, err := e.repo.Get(orderID)
	if err != nil {
		return err
	}

	switch o.Type {
	case order.TypeMarket:
		return e.runMarket(ctx, orderID, pair)
	case order.TypeLimit:
		return e.runLimit(ctx, orderID, pair)
	case order.TypeStop:
		return e.runStop(ctx, orderID, pair)
	case order.TypeStopLimit:
		return e.runStopLimit(ctx, orderID, pair)
	case order.TypeTrailingStop:
		return e.runTrailingStop(ctx, orderID, pair)
	case order.TypeTWAP:
		return e.runTWAP(ctx, orderID, pair)
	case order.TypeBracket:
		return e.runBracket(ctx, orderID, pair)
	default:
		return fmt.Errorf("engine: 不支持的订单类型 %s", o.Type)
	}
}

// rejectOrder 将处理失败的订单标记为 REJECTED，不影响其他订单。
func (e *Engine) rejectOrder(orderID string, cause error) {
	var from order.Status
	updated, err := e.repo.Update(orderID, func(o *order.AdvancedOrder) error {
		from = o.Status
		o.Status = order.StatusRejected
		return nil
	})
	if err != nil {
		// 已终态则无事可做。
		return
	}

	e.logger.Warn("订单处理失败，已标记为拒绝",
		zap.String("order_id", orderID),
		zap.Error(cause),
	)
	if e.journal != nil {
		e.journal.RecordOrderTransition(context.Background(), updated, from, cause.Error())
		e.journal.RecordError(context.Background(), "订单执行失败", cause, map[string]interface{}{"order_id": orderID})
	}
}

func (e *Engine) transition(ctx context.Context, orderID string, to order.Status, reason string) (order.AdvancedOrder, error) {
	var from order.Status
	updated, err := e.repo.Update(orderID, func(o *order.AdvancedOrder) error {
		from = o.Status
		o.Status = to
		switch to {
		case order.StatusCancelled:
			o.CancelledAt = time.Now().UTC()
		case order.StatusFilled:
			o.ExecutedAt = time.Now().UTC()
		}
		return nil
	})
	if err != nil {
		return order.AdvancedOrder{}, err
	}

	if e.journal != nil {
		e.journal.RecordOrderTransition(ctx, updated, from, reason)
	}
	return updated, nil
}

// applyFill 记录一次成交：更新加权均价、累计费用并推进状态。
func (e *Engine) applyFill(ctx context.Context, orderID string, qty, price, feeRate float64) (order.AdvancedOrder, error) {
	var (
		from order.Status
		fee  float64
	)
	updated, err := e.repo.Update(orderID, func(o *order.AdvancedOrder) error {
		if qty <= 0 {
			return fmt.Errorf("engine: 无效的成交数量 %f", qty)
		}
		if qty > o.Remaining+1e-9 {
			return fmt.Errorf("engine: 成交数量 %f 超出剩余 %f", qty, o.Remaining)
		}

		from = o.Status
		total := o.Filled + qty
		o.AveragePrice = (o.AveragePrice*o.Filled + price*qty) / total
		o.Filled = total
		o.Remaining = o.Quantity - o.Filled
		fee = qty * price * feeRate
		o.Fees += fee

		if o.Remaining <= 1e-9 {
			o.Filled = o.Quantity
			o.Remaining = 0
			o.Status = order.StatusFilled
			o.ExecutedAt = time.Now().UTC()
		} else {
			o.Status = order.StatusPartiallyFilled
		}
		return nil
	})
	if err != nil {
		return order.AdvancedOrder{}, err
	}

	e.logger.Info("订单成交",
		zap.String("order_id", orderID),
		zap.Float64("quantity", qty),
		zap.Float64("price", price),
		zap.Float64("fee", fee),
		zap.String("status", string(updated.Status)),
	)
	if e.journal != nil {
		e.journal.RecordFill(ctx, updated, qty, price, fee)
		if updated.Status != from {
			e.journal.RecordOrderTransition(ctx, updated, from, "fill")
		}
	}

	return updated, nil
}
