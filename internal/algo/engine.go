package algo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"defi-order-engine/internal/indicator"
	"defi-order-engine/internal/journal"
	"defi-order-engine/internal/market"
	"defi-order-engine/internal/order"
)

// ErrNotFound 表示算法实例不存在。
var ErrNotFound = errors.New("algo: algorithm not found")

// OrderSubmitter 是算法提交子订单的入口。
// 子订单走与外部订单完全相同的校验与入库路径，没有旁路。
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, draft order.Draft) (order.AdvancedOrder, error)
	GetOrder(orderID string) (order.AdvancedOrder, error)
}

type runningAlgorithm struct {
	alg    *Algorithm
	cancel context.CancelFunc
}

// Engine 管理长生命周期算法：每个 ACTIVE 算法对应一个独立的可取消调度循环。
type Engine struct {
	submitter     OrderSubmitter
	market        market.Provider
	calc          *indicator.Calculator
	journal       *journal.Service
	logger        *zap.Logger
	checkInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	algos  map[string]*runningAlgorithm
	closed bool
}

// NewEngine 创建算法引擎。
func NewEngine(submitter OrderSubmitter, provider market.Provider, jrnl *journal.Service, checkInterval time.Duration, logger *zap.Logger) (*Engine, error) {
	if submitter == nil {
		return nil, errors.New("algo: order submitter 不能为空")
	}
	if provider == nil {
		return nil, errors.New("algo: market provider 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkInterval <= 0 {
		checkInterval = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Engine{
		submitter:     submitter,
		market:        provider,
		calc:          indicator.NewCalculator(),
		journal:       jrnl,
		logger:        logger,
		checkInterval: checkInterval,
		ctx:           ctx,
		cancel:        cancel,
		algos:         make(map[string]*runningAlgorithm),
	}, nil
}

// Create 解码参数、登记算法实例并启动其调度循环。
func (e *Engine) Create(ctx context.Context, userID, walletAddress string, t Type, rawParams map[string]interface{}) (Algorithm, error) {
	params, err := DecodeParams(t, rawParams)
	if err != nil {
		return Algorithm{}, err
	}

	now := time.Now().UTC()
	alg := &Algorithm{
		ID:            uuid.NewString(),
		UserID:        userID,
		WalletAddress: walletAddress,
		Type:          t,
		Params:        params,
		Status:        StatusActive,
		Performance:   Performance{StartTime: now},
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return Algorithm{}, errors.New("algo: 引擎已关闭")
	}
	loopCtx, cancel := context.WithCancel(e.ctx)
	e.algos[alg.ID] = &runningAlgorithm{alg: alg, cancel: cancel}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		e.runLoop(loopCtx, alg.ID, t, params)
	}()

	e.logger.Info("算法已启动",
		zap.String("algorithm_id", alg.ID),
		zap.String("type", string(t)),
		zap.String("user_id", userID),
	)
	e.recordEvent(ctx, alg.ID, t, StatusActive, "created", nil)

	return *alg, nil
}

// Get 返回算法实例副本。
func (e *Engine) Get(algorithmID string) (Algorithm, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	running, ok := e.algos[algorithmID]
	if !ok {
		return Algorithm{}, fmt.Errorf("%w: %s", ErrNotFound, algorithmID)
	}
	return *running.alg, nil
}

// Pause 暂停算法的新订单提交，循环保持存活。
func (e *Engine) Pause(algorithmID string) bool {
	return e.setStatus(algorithmID, StatusActive, StatusPaused)
}

// Resume 恢复被暂停的算法。
func (e *Engine) Resume(algorithmID string) bool {
	return e.setStatus(algorithmID, StatusPaused, StatusActive)
}

// Stop 终止算法调度循环并冻结表现统计的结束时间。
// 已提交的子订单不受影响，继续独立走完自己的生命周期。
func (e *Engine) Stop(algorithmID string) bool {
	e.mu.Lock()
	running, ok := e.algos[algorithmID]
	if !ok || running.alg.Status.IsTerminal() {
		e.mu.Unlock()
		return false
	}
	running.alg.Status = StatusStopped
	now := time.Now().UTC()
	running.alg.Performance.EndTime = now
	running.alg.UpdatedAt = now
	cancel := running.cancel
	algType := running.alg.Type
	e.mu.Unlock()

	cancel()
	e.logger.Info("算法已停止", zap.String("algorithm_id", algorithmID))
	e.recordEvent(context.Background(), algorithmID, algType, StatusStopped, "stopped", nil)
	return true
}

// Close 关闭引擎：取消全部调度循环并等待退出。
func (e *Engine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
}

func (e *Engine) runLoop(ctx context.Context, id string, t Type, params Params) {
	var err error
	switch p := params.(type) {
	case DCAParams:
		err = e.runDCA(ctx, id, p)
	case GridParams:
		err = e.runGrid(ctx, id, p)
	case MomentumParams:
		err = e.runMomentum(ctx, id, p)
	case MeanReversionParams:
		err = e.runMeanReversion(ctx, id, p)
	default:
		err = fmt.Errorf("algo: 未注册的参数类型 %T", params)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		e.fail(id, t, err)
	}
}

func (e *Engine) setStatus(algorithmID string, from, to Status) bool {
	e.mu.Lock()
	running, ok := e.algos[algorithmID]
	if !ok || running.alg.Status != from {
		e.mu.Unlock()
		return false
	}
	running.alg.Status = to
	running.alg.UpdatedAt = time.Now().UTC()
	algType := running.alg.Type
	e.mu.Unlock()

	e.recordEvent(context.Background(), algorithmID, algType, to, "", nil)
	return true
}

// isActive 检查算法是否处于 ACTIVE；PAUSED 时调度循环跳过本轮。
func (e *Engine) isActive(algorithmID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	running, ok := e.algos[algorithmID]
	return ok && running.alg.Status == StatusActive
}

// complete 将算法标记为 COMPLETED 并冻结结束时间。
func (e *Engine) complete(algorithmID string, t Type) {
	e.mu.Lock()
	running, ok := e.algos[algorithmID]
	if ok && !running.alg.Status.IsTerminal() {
		now := time.Now().UTC()
		running.alg.Status = StatusCompleted
		running.alg.Performance.EndTime = now
		running.alg.UpdatedAt = now
	}
	e.mu.Unlock()

	e.logger.Info("算法已完成", zap.String("algorithm_id", algorithmID))
	e.recordEvent(context.Background(), algorithmID, t, StatusCompleted, "completed", nil)
}

// fail 在单次调度出错时将算法转为 ERROR 并停止循环，不影响已提交订单。
func (e *Engine) fail(algorithmID string, t Type, cause error) {
	e.mu.Lock()
	running, ok := e.algos[algorithmID]
	if ok && !running.alg.Status.IsTerminal() {
		now := time.Now().UTC()
		running.alg.Status = StatusError
		running.alg.Performance.EndTime = now
		running.alg.UpdatedAt = now
	}
	e.mu.Unlock()

	e.logger.Error("算法执行出错",
		zap.String("algorithm_id", algorithmID),
		zap.Error(cause),
	)
	if e.journal != nil {
		e.journal.RecordError(context.Background(), "算法执行出错", cause, map[string]interface{}{"algorithm_id": algorithmID})
	}
	e.recordEvent(context.Background(), algorithmID, t, StatusError, cause.Error(), nil)
}

// trackOrder 供市价类策略使用：提交即成交，提交与成交一并记账。
func (e *Engine) trackOrder(algorithmID string, side order.Side, qty, price float64) {
	e.trackPlacement(algorithmID)
	e.trackFill(algorithmID, side, qty, price)
}

// trackPlacement 登记一次子订单提交，挂单本身不计入成交量与盈亏。
func (e *Engine) trackPlacement(algorithmID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	running, ok := e.algos[algorithmID]
	if !ok {
		return
	}
	perf := &running.alg.Performance
	perf.TotalOrders++
	perf.WinRate = float64(perf.SuccessfulOrders) / float64(perf.TotalOrders)
	running.alg.UpdatedAt = time.Now().UTC()
}

// trackFill 在确认成交后计入成交量与现金流盈亏。
func (e *Engine) trackFill(algorithmID string, side order.Side, qty, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	running, ok := e.algos[algorithmID]
	if !ok {
		return
	}
	perf := &running.alg.Performance
	perf.SuccessfulOrders++
	perf.TotalVolume += qty
	if side == order.SideSell {
		perf.PnL += qty * price
	} else {
		perf.PnL -= qty * price
	}
	if perf.TotalOrders > 0 {
		perf.WinRate = float64(perf.SuccessfulOrders) / float64(perf.TotalOrders)
	}
	running.alg.UpdatedAt = time.Now().UTC()
}

func (e *Engine) totalOrders(algorithmID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	running, ok := e.algos[algorithmID]
	if !ok {
		return 0
	}
	return running.alg.Performance.TotalOrders
}

func (e *Engine) recordEvent(ctx context.Context, algorithmID string, t Type, status Status, message string, details map[string]interface{}) {
	if e.journal == nil {
		return
	}
	e.journal.RecordAlgorithm(ctx, algorithmID, string(t), string(status), message, details)
}

// childDraft 构造算法子订单草稿，来源与算法ID写入元数据。
func childDraft(alg Algorithm, symbol string, t order.Type, side order.Side, qty float64) order.Draft {
	return order.Draft{
		UserID:        alg.UserID,
		WalletAddress: alg.WalletAddress,
		Symbol:        symbol,
		Type:          t,
		Side:          side,
		Quantity:      qty,
		Metadata: order.Metadata{
			Source:      order.SourceAlgorithm,
			AlgorithmID: alg.ID,
		},
	}
}
