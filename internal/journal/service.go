package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"defi-order-engine/internal/order"
	"defi-order-engine/internal/signal"
	"defi-order-engine/internal/store"
)

// Service 负责将引擎事件追加到 SQLite 审计日志。
// 引擎的订单与算法状态仍以内存仓库为准，这里只做审计追踪。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化审计服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("journal: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
	}

	if err := s.initSchema(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema() error {
	stmt := `
CREATE TABLE IF NOT EXISTS engine_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_engine_events_type ON engine_events(event_type);
`
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("journal: 初始化表失败: %w", err)
	}
	return nil
}

// RecordOrderTransition 记录订单状态迁移。
func (s *Service) RecordOrderTransition(ctx context.Context, o order.AdvancedOrder, from order.Status, reason string) {
	s.record(ctx, EventOrderTransition, OrderTransitionPayload{
		OrderID: o.ID,
		Symbol:  o.Symbol,
		From:    from,
		To:      o.Status,
		Filled:  o.Filled,
		Reason:  reason,
	})
}

// RecordOrderSubmitted 记录订单提交。
func (s *Service) RecordOrderSubmitted(ctx context.Context, o order.AdvancedOrder) {
	s.record(ctx, EventOrderSubmitted, OrderTransitionPayload{
		OrderID: o.ID,
		Symbol:  o.Symbol,
		To:      o.Status,
	})
}

// RecordFill 记录一次成交。
func (s *Service) RecordFill(ctx context.Context, o order.AdvancedOrder, qty, price, fee float64) {
	s.record(ctx, EventOrderFill, OrderFillPayload{
		OrderID:      o.ID,
		Symbol:       o.Symbol,
		Quantity:     qty,
		Price:        price,
		Fee:          fee,
		FilledTotal:  o.Filled,
		AveragePrice: o.AveragePrice,
	})
}

// RecordAlgorithm 记录算法生命周期事件。
func (s *Service) RecordAlgorithm(ctx context.Context, algorithmID, algorithmType, status, message string, details map[string]interface{}) {
	s.record(ctx, EventAlgorithm, AlgorithmPayload{
		AlgorithmID: algorithmID,
		Type:        algorithmType,
		Status:      status,
		Message:     message,
		Details:     details,
	})
}

// RecordSignal 记录生成的交易信号。
func (s *Service) RecordSignal(ctx context.Context, sig signal.TradingSignal) {
	s.record(ctx, EventSignal, SignalPayload{Signal: sig})
}

// RecordError 记录运行期错误。
func (s *Service) RecordError(ctx context.Context, message string, err error, details map[string]interface{}) {
	payload := ErrorPayload{
		Message: message,
		Details: details,
	}
	if err != nil {
		payload.Error = err.Error()
	}
	s.record(ctx, EventError, payload)
}

// ListRecent 返回最近的事件，按时间倒序。
func (s *Service) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_type, payload, created_at FROM engine_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			event     Event
			createdAt string
		)
		if err := rows.Scan(&event.ID, &event.Type, &event.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("journal: 读取事件失败: %w", err)
		}
		ts, parseErr := time.Parse(time.RFC3339Nano, createdAt)
		if parseErr == nil {
			event.Timestamp = ts
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: 遍历事件失败: %w", err)
	}

	return events, nil
}

func (s *Service) record(ctx context.Context, eventType EventType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("序列化事件失败",
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
		return
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO engine_events (event_type, payload, created_at) VALUES (?, ?, ?)`,
		string(eventType), string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		s.logger.Warn("写入事件失败",
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
}
