package journal

import (
	"context"
	"strings"
	"testing"

	"defi-order-engine/internal/config"
	"defi-order-engine/internal/order"
	"defi-order-engine/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	// 内存库必须限制为单连接，否则每个连接各自拿到一份空库。
	st, err := store.NewSQLite(config.DatabaseConfig{
		InMemory:     true,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(st, nil)
	if err != nil {
		t.Fatalf("building journal service: %v", err)
	}
	return svc
}

func TestRecordAndListRecent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	o := order.AdvancedOrder{
		ID:     "order-1",
		Symbol: "ETH/USDC",
		Status: order.StatusOpen,
	}
	svc.RecordOrderSubmitted(ctx, o)
	svc.RecordOrderTransition(ctx, o, order.StatusPending, "admitted")
	svc.RecordFill(ctx, o, 1, 100, 0.2)
	svc.RecordAlgorithm(ctx, "alg-1", "DCA", "ACTIVE", "created", nil)
	svc.RecordError(ctx, "boom", context.DeadlineExceeded, map[string]interface{}{"order_id": "order-1"})

	events, err := svc.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}

	// 倒序：最新事件在前。
	if events[0].Type != EventError {
		t.Errorf("expected newest event first, got %s", events[0].Type)
	}
	if events[len(events)-1].Type != EventOrderSubmitted {
		t.Errorf("expected oldest event last, got %s", events[len(events)-1].Type)
	}

	for _, event := range events {
		if event.Timestamp.IsZero() {
			t.Errorf("event %d has no timestamp", event.ID)
		}
	}

	var fill Event
	for _, event := range events {
		if event.Type == EventOrderFill {
			fill = event
		}
	}
	if !strings.Contains(fill.Payload, `"order_id":"order-1"`) {
		t.Errorf("fill payload missing order id: %s", fill.Payload)
	}
}

func TestListRecent_RespectsLimit(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		svc.RecordAlgorithm(ctx, "alg-1", "DCA", "ACTIVE", "tick", nil)
	}

	events, err := svc.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list returned error: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("expected limit 2 to be honored, got %d", len(events))
	}
}
