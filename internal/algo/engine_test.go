package algo

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"defi-order-engine/internal/market"
	"defi-order-engine/internal/order"
)

// fakeSubmitter 记录子订单草稿并维护一个可被测试改写状态的订单表。
type fakeSubmitter struct {
	mu     sync.Mutex
	drafts []order.Draft
	orders map[string]order.AdvancedOrder
	next   int
	err    error
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{orders: make(map[string]order.AdvancedOrder)}
}

func (f *fakeSubmitter) SubmitOrder(ctx context.Context, draft order.Draft) (order.AdvancedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return order.AdvancedOrder{}, f.err
	}
	f.next++
	o := order.AdvancedOrder{
		ID:        fmt.Sprintf("order-%d", f.next),
		UserID:    draft.UserID,
		Symbol:    draft.Symbol,
		Type:      draft.Type,
		Side:      draft.Side,
		Status:    order.StatusOpen,
		Quantity:  draft.Quantity,
		Price:     draft.Price,
		Remaining: draft.Quantity,
		Metadata:  draft.Metadata,
	}
	f.drafts = append(f.drafts, draft)
	f.orders[o.ID] = o
	return o, nil
}

func (f *fakeSubmitter) GetOrder(orderID string) (order.AdvancedOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[orderID]
	if !ok {
		return order.AdvancedOrder{}, order.ErrNotFound
	}
	return o, nil
}

func (f *fakeSubmitter) MarkFilled(orderID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orders[orderID]
	o.Status = order.StatusFilled
	o.Filled = o.Quantity
	o.Remaining = 0
	o.AveragePrice = o.Price
	f.orders[orderID] = o
}

func (f *fakeSubmitter) Drafts() []order.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]order.Draft, len(f.drafts))
	copy(out, f.drafts)
	return out
}

// fakeMarket 返回固定价格与固定K线。
type fakeMarket struct {
	price   float64
	candles []market.Candle
}

func (f *fakeMarket) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	return f.price, nil
}

func (f *fakeMarket) Ticker(ctx context.Context, symbol string) (market.Data, error) {
	return market.Data{Symbol: symbol, Price: f.price}, nil
}

func (f *fakeMarket) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	return f.candles, nil
}

func (f *fakeMarket) OrderBook(ctx context.Context, symbol string, depth int) (market.OrderBookSnapshot, error) {
	return market.OrderBookSnapshot{Symbol: symbol}, nil
}

func newTestAlgoEngine(t *testing.T, submitter OrderSubmitter, provider market.Provider) *Engine {
	t.Helper()
	eng, err := NewEngine(submitter, provider, nil, 10*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("building algo engine: %v", err)
	}
	t.Cleanup(eng.Close)
	return eng
}

func waitForAlgoStatus(t *testing.T, eng *Engine, id string, want Status) Algorithm {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		alg, err := eng.Get(id)
		if err != nil {
			t.Fatalf("get algorithm: %v", err)
		}
		if alg.Status == want {
			return alg
		}
		time.Sleep(2 * time.Millisecond)
	}
	alg, _ := eng.Get(id)
	t.Fatalf("algorithm %s never reached %s, stuck at %s", id, want, alg.Status)
	return Algorithm{}
}

func TestDCA_CompletesAfterMaxOrders(t *testing.T) {
	submitter := newFakeSubmitter()
	eng := newTestAlgoEngine(t, submitter, &fakeMarket{price: 50})

	alg, err := eng.Create(context.Background(), "user-1", "0xabc", TypeDCA, map[string]interface{}{
		"symbol":     "ETH/USDC",
		"amount":     100.0,
		"interval":   "10ms",
		"max_orders": 3,
	})
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	done := waitForAlgoStatus(t, eng, alg.ID, StatusCompleted)

	drafts := submitter.Drafts()
	if len(drafts) != 3 {
		t.Fatalf("expected exactly 3 DCA orders, got %d", len(drafts))
	}
	for i, draft := range drafts {
		if draft.Type != order.TypeMarket || draft.Side != order.SideBuy {
			t.Errorf("draft %d: expected market buy, got %s %s", i, draft.Type, draft.Side)
		}
		if draft.Quantity != 100.0/50 {
			t.Errorf("draft %d: expected quantity 2, got %f", i, draft.Quantity)
		}
		if draft.Metadata.Source != order.SourceAlgorithm || draft.Metadata.AlgorithmID != alg.ID {
			t.Errorf("draft %d: missing algorithm metadata: %+v", i, draft.Metadata)
		}
	}

	perf := done.Performance
	if perf.TotalOrders != 3 {
		t.Errorf("expected 3 tracked orders, got %d", perf.TotalOrders)
	}
	if perf.PnL != -300 {
		t.Errorf("expected cash-flow PnL -300 for three buys, got %f", perf.PnL)
	}
	if perf.EndTime.IsZero() {
		t.Errorf("expected EndTime to be frozen on completion")
	}
}

func TestPauseSkipsTicksAndResumeContinues(t *testing.T) {
	submitter := newFakeSubmitter()
	eng := newTestAlgoEngine(t, submitter, &fakeMarket{price: 50})

	alg, err := eng.Create(context.Background(), "user-1", "0xabc", TypeDCA, map[string]interface{}{
		"symbol":     "ETH/USDC",
		"amount":     100.0,
		"interval":   "15ms",
		"max_orders": 100,
	})
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	if !eng.Pause(alg.ID) {
		t.Fatalf("pause should return true for active algorithm")
	}
	if eng.Pause(alg.ID) {
		t.Errorf("pause of paused algorithm should return false")
	}

	time.Sleep(80 * time.Millisecond)
	if got := len(submitter.Drafts()); got != 0 {
		t.Fatalf("paused algorithm must not submit orders, got %d", got)
	}

	if !eng.Resume(alg.ID) {
		t.Fatalf("resume should return true for paused algorithm")
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && len(submitter.Drafts()) == 0 {
		time.Sleep(2 * time.Millisecond)
	}
	if len(submitter.Drafts()) == 0 {
		t.Fatalf("resumed algorithm never submitted an order")
	}
}

func TestStop_IsTerminalAndIdempotent(t *testing.T) {
	submitter := newFakeSubmitter()
	eng := newTestAlgoEngine(t, submitter, &fakeMarket{price: 50})

	alg, err := eng.Create(context.Background(), "user-1", "0xabc", TypeDCA, map[string]interface{}{
		"symbol":     "ETH/USDC",
		"amount":     100.0,
		"interval":   "1h",
		"max_orders": 10,
	})
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	if !eng.Stop(alg.ID) {
		t.Fatalf("first stop should return true")
	}
	if eng.Stop(alg.ID) {
		t.Errorf("second stop should return false")
	}
	if eng.Resume(alg.ID) {
		t.Errorf("resume of stopped algorithm should return false")
	}

	stopped, err := eng.Get(alg.ID)
	if err != nil {
		t.Fatalf("get returned error: %v", err)
	}
	if stopped.Status != StatusStopped {
		t.Errorf("expected STOPPED, got %s", stopped.Status)
	}
	if stopped.Performance.EndTime.IsZero() {
		t.Errorf("expected EndTime frozen on stop")
	}
}

func TestGet_UnknownAlgorithm(t *testing.T) {
	eng := newTestAlgoEngine(t, newFakeSubmitter(), &fakeMarket{price: 50})
	if _, err := eng.Get("missing"); err == nil {
		t.Fatalf("expected error for unknown algorithm")
	}
	if eng.Stop("missing") {
		t.Errorf("stop of unknown algorithm should return false")
	}
}

func TestGrid_PlacesLadderAndReplacesFilledLevels(t *testing.T) {
	submitter := newFakeSubmitter()
	eng := newTestAlgoEngine(t, submitter, &fakeMarket{price: 100})

	alg, err := eng.Create(context.Background(), "user-1", "0xabc", TypeGrid, map[string]interface{}{
		"symbol":               "ETH/USDC",
		"quantity":             1.0,
		"grid_levels":          2,
		"grid_spacing_percent": 1.0,
		"base_price":           100.0,
	})
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && len(submitter.Drafts()) < 4 {
		time.Sleep(2 * time.Millisecond)
	}

	drafts := submitter.Drafts()
	if len(drafts) != 4 {
		t.Fatalf("expected 4 initial grid orders, got %d", len(drafts))
	}

	wantLadder := map[float64]order.Side{
		99:  order.SideBuy,
		98:  order.SideBuy,
		101: order.SideSell,
		102: order.SideSell,
	}
	for _, draft := range drafts {
		if draft.Type != order.TypeLimit {
			t.Errorf("grid orders must be limit orders, got %s", draft.Type)
		}
		side, ok := wantLadder[draft.Price]
		if !ok {
			t.Errorf("unexpected grid price %f", draft.Price)
			continue
		}
		if draft.Side != side {
			t.Errorf("price %f: expected side %s, got %s", draft.Price, side, draft.Side)
		}
		delete(wantLadder, draft.Price)
	}
	if len(wantLadder) != 0 {
		t.Errorf("missing grid levels: %v", wantLadder)
	}

	// 某一档成交后应在下一轮检查时重新挂出同价位订单。
	submitter.MarkFilled("order-1")
	firstPrice := drafts[0].Price
	firstSide := drafts[0].Side

	deadline = time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && len(submitter.Drafts()) < 5 {
		time.Sleep(2 * time.Millisecond)
	}
	drafts = submitter.Drafts()
	if len(drafts) < 5 {
		t.Fatalf("filled grid level was never replaced")
	}
	replacement := drafts[4]
	if replacement.Price != firstPrice || replacement.Side != firstSide {
		t.Errorf("replacement should mirror filled level (%f %s), got %f %s",
			firstPrice, firstSide, replacement.Price, replacement.Side)
	}

	// 挂单只计提交笔数，成交量与盈亏仅在档位确认成交后记账。
	var perf Performance
	deadline = time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		tracked, err := eng.Get(alg.ID)
		if err != nil {
			t.Fatalf("get algorithm: %v", err)
		}
		perf = tracked.Performance
		if perf.TotalOrders == 5 {
			break
		}
		time.Sleep(2 * time.Millisecond)
	}
	if perf.TotalOrders != 5 {
		t.Errorf("expected 5 placed orders, got %d", perf.TotalOrders)
	}
	if perf.SuccessfulOrders != 1 {
		t.Errorf("expected exactly 1 filled order, got %d", perf.SuccessfulOrders)
	}
	if perf.TotalVolume != 1.0 {
		t.Errorf("resting orders must not count as volume, got %f", perf.TotalVolume)
	}
	wantPnL := -firstPrice
	if firstSide == order.SideSell {
		wantPnL = firstPrice
	}
	if perf.PnL != wantPnL {
		t.Errorf("expected cash-flow PnL %f from the single fill, got %f", wantPnL, perf.PnL)
	}

	if !eng.Stop(alg.ID) {
		t.Errorf("stop should return true")
	}
}

func TestMomentum_SubmitsDirectionalOrder(t *testing.T) {
	// 收盘价逐根上涨，10期变化率约 8.4%，超过阈值 5。
	candles := make([]market.Candle, 30)
	for i := range candles {
		price := 100 + float64(i)
		candles[i] = market.Candle{
			Timestamp: time.Now().Add(time.Duration(i-30) * time.Hour),
			Open:      price, High: price, Low: price, Close: price,
			Volume: 1,
		}
	}

	submitter := newFakeSubmitter()
	eng := newTestAlgoEngine(t, submitter, &fakeMarket{price: 129, candles: candles})

	alg, err := eng.Create(context.Background(), "user-1", "0xabc", TypeMomentum, map[string]interface{}{
		"symbol":             "ETH/USDC",
		"quantity":           1.0,
		"lookback_period":    10,
		"momentum_threshold": 5.0,
		"interval":           "10ms",
	})
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && len(submitter.Drafts()) == 0 {
		time.Sleep(2 * time.Millisecond)
	}
	drafts := submitter.Drafts()
	if len(drafts) == 0 {
		t.Fatalf("momentum algorithm never submitted an order")
	}
	if drafts[0].Side != order.SideBuy || drafts[0].Type != order.TypeMarket {
		t.Errorf("rising prices should produce a market buy, got %s %s", drafts[0].Type, drafts[0].Side)
	}
	if drafts[0].Metadata.AlgorithmID != alg.ID {
		t.Errorf("expected algorithm metadata on child order")
	}
}

func TestMeanReversion_BuysWhenOversold(t *testing.T) {
	// 持续下跌：RSI 趋近 0，收盘价贴近布林带下轨。
	candles := make([]market.Candle, 60)
	for i := range candles {
		price := 300 - 2*float64(i)
		candles[i] = market.Candle{
			Timestamp: time.Now().Add(time.Duration(i-60) * time.Hour),
			Open:      price, High: price, Low: price, Close: price,
			Volume: 1,
		}
	}

	submitter := newFakeSubmitter()
	eng := newTestAlgoEngine(t, submitter, &fakeMarket{price: 182, candles: candles})

	_, err := eng.Create(context.Background(), "user-1", "0xabc", TypeMeanReversion, map[string]interface{}{
		"symbol":     "ETH/USDC",
		"quantity":   1.0,
		"oversold":   30.0,
		"overbought": 70.0,
		"interval":   "10ms",
	})
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && len(submitter.Drafts()) == 0 {
		time.Sleep(2 * time.Millisecond)
	}
	drafts := submitter.Drafts()
	if len(drafts) == 0 {
		t.Fatalf("mean reversion algorithm never submitted an order")
	}
	if drafts[0].Side != order.SideBuy {
		t.Errorf("oversold market should produce a buy, got %s", drafts[0].Side)
	}
}

func TestRunLoop_SubmitFailureMarksError(t *testing.T) {
	submitter := newFakeSubmitter()
	submitter.err = order.ErrDuplicateID
	eng := newTestAlgoEngine(t, submitter, &fakeMarket{price: 50})

	alg, err := eng.Create(context.Background(), "user-1", "0xabc", TypeDCA, map[string]interface{}{
		"symbol":     "ETH/USDC",
		"amount":     100.0,
		"interval":   "10ms",
		"max_orders": 3,
	})
	if err != nil {
		t.Fatalf("create returned error: %v", err)
	}

	failed := waitForAlgoStatus(t, eng, alg.ID, StatusError)
	if failed.Performance.EndTime.IsZero() {
		t.Errorf("expected EndTime frozen on error")
	}
}
