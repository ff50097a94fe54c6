package engine

import (
	"context"
	"errors"

	"defi-order-engine/internal/algo"
)

// AttachAlgorithms 挂载算法引擎。
// 算法引擎以本引擎为下单入口，因此在引擎之后构造、再回挂到门面。
func (e *Engine) AttachAlgorithms(algos *algo.Engine) {
	e.monitorMu.Lock()
	defer e.monitorMu.Unlock()
	e.algos = algos
}

// CreateAlgorithm 创建并启动一个算法策略实例。
func (e *Engine) CreateAlgorithm(ctx context.Context, userID, walletAddress string, t algo.Type, params map[string]interface{}) (algo.Algorithm, error) {
	algos, err := e.algorithms()
	if err != nil {
		return algo.Algorithm{}, err
	}
	return algos.Create(ctx, userID, walletAddress, t, params)
}

// GetAlgorithm 返回算法实例副本。
func (e *Engine) GetAlgorithm(algorithmID string) (algo.Algorithm, error) {
	algos, err := e.algorithms()
	if err != nil {
		return algo.Algorithm{}, err
	}
	return algos.Get(algorithmID)
}

// PauseAlgorithm 暂停算法的新订单提交。
func (e *Engine) PauseAlgorithm(algorithmID string) bool {
	algos, err := e.algorithms()
	if err != nil {
		return false
	}
	return algos.Pause(algorithmID)
}

// ResumeAlgorithm 恢复被暂停的算法。
func (e *Engine) ResumeAlgorithm(algorithmID string) bool {
	algos, err := e.algorithms()
	if err != nil {
		return false
	}
	return algos.Resume(algorithmID)
}

// StopAlgorithm 终止算法，已提交的子订单不受影响。
func (e *Engine) StopAlgorithm(algorithmID string) bool {
	algos, err := e.algorithms()
	if err != nil {
		return false
	}
	return algos.Stop(algorithmID)
}

func (e *Engine) algorithms() (*algo.Engine, error) {
	e.monitorMu.Lock()
	defer e.monitorMu.Unlock()
	if e.algos == nil {
		return nil, errors.New("engine: 算法引擎未挂载")
	}
	return e.algos, nil
}
