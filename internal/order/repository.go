package order

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"
)

// Repository 持有订单的规范集合，对跨订单的并发读写做串行化。
// 单个订单只由其所属策略任务修改（单写者约束），仓库负责终态不可变
// 与 Filled+Remaining==Quantity 两条不变式的集中检查。
type Repository struct {
	mu     sync.RWMutex
	orders map[string]*AdvancedOrder
}

// NewRepository 创建空仓库。
func NewRepository() *Repository {
	return &Repository{
		orders: make(map[string]*AdvancedOrder),
	}
}

// Insert 存入一个新订单。
func (r *Repository) Insert(o AdvancedOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, o.ID)
	}

	stored := o.Clone()
	r.orders[o.ID] = &stored
	return nil
}

// Get 返回订单副本。
func (r *Repository) Get(id string) (AdvancedOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return AdvancedOrder{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return o.Clone(), nil
}

// List 返回指定用户的订单副本，可按过滤条件收窄，按创建时间升序排列。
func (r *Repository) List(userID string, filter Filter) []AdvancedOrder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]AdvancedOrder, 0)
	for _, o := range r.orders {
		if userID != "" && o.UserID != userID {
			continue
		}
		if filter.Symbol != "" && o.Symbol != filter.Symbol {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Type != "" && o.Type != filter.Type {
			continue
		}
		if filter.AlgorithmID != "" && o.Metadata.AlgorithmID != filter.AlgorithmID {
			continue
		}
		result = append(result, o.Clone())
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result
}

// Update 在仓库锁内对订单应用变更函数，并检查不变式。
// 终态订单拒绝任何变更；变更失败时订单保持原状。
func (r *Repository) Update(id string, apply func(*AdvancedOrder) error) (AdvancedOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[id]
	if !ok {
		return AdvancedOrder{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if stored.Status.IsTerminal() {
		return AdvancedOrder{}, fmt.Errorf("%w: %s (%s)", ErrTerminal, id, stored.Status)
	}

	working := stored.Clone()
	if err := apply(&working); err != nil {
		return AdvancedOrder{}, err
	}

	if err := checkInvariants(stored, &working); err != nil {
		return AdvancedOrder{}, err
	}

	working.UpdatedAt = time.Now().UTC()
	r.orders[id] = &working
	return working.Clone(), nil
}

func checkInvariants(before, after *AdvancedOrder) error {
	if diff := math.Abs(after.Filled + after.Remaining - after.Quantity); diff > 1e-9 {
		return fmt.Errorf("order: 不变式被破坏 filled(%f)+remaining(%f) != quantity(%f)",
			after.Filled, after.Remaining, after.Quantity)
	}
	if after.Remaining > before.Remaining+1e-9 {
		return fmt.Errorf("order: remaining 不允许增加 (%f -> %f)", before.Remaining, after.Remaining)
	}
	return nil
}
