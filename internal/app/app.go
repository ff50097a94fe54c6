package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"defi-order-engine/internal/advisor"
	"defi-order-engine/internal/algo"
	"defi-order-engine/internal/catalog"
	"defi-order-engine/internal/config"
	"defi-order-engine/internal/engine"
	"defi-order-engine/internal/indicator"
	"defi-order-engine/internal/journal"
	"defi-order-engine/internal/market"
	"defi-order-engine/internal/signal"
	"defi-order-engine/internal/store"
)

// App 聚合核心依赖并驱动引擎生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 装配订单引擎与算法引擎，并阻塞等待退出信号。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("订单执行引擎已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("market", a.cfg.Market.Name),
		zap.Int("pairs", len(a.cfg.Pairs)),
	)

	pairs, err := catalog.FromConfig(a.cfg.Pairs)
	if err != nil {
		return err
	}

	provider, err := market.NewClient(a.cfg.Market, a.logger)
	if err != nil {
		return fmt.Errorf("初始化行情客户端失败: %w", err)
	}

	jrnl, err := journal.NewService(a.store, a.logger)
	if err != nil {
		return fmt.Errorf("初始化事件日志失败: %w", err)
	}

	snapshots := market.NewSnapshotService(provider, a.logger)
	signals := signal.NewGenerator(snapshots, indicator.NewCalculator(), a.cfg.Signal, a.logger)

	var reviewer *advisor.Client
	if a.cfg.OpenAI.APIKey != "" {
		reviewer, err = advisor.NewClient(a.cfg.OpenAI, a.logger)
		if err != nil {
			return fmt.Errorf("初始化信号点评器失败: %w", err)
		}
	}

	eng, err := engine.New(engine.Config{
		Slippage:     a.cfg.Execution.Slippage,
		PollInterval: a.cfg.Execution.PollInterval,
	}, engine.Deps{
		Catalog: pairs,
		Market:  provider,
		Signals: signals,
		Journal: jrnl,
		Advisor: reviewer,
		Logger:  a.logger,
	})
	if err != nil {
		return err
	}
	defer eng.Close()

	algos, err := algo.NewEngine(eng, provider, jrnl, a.cfg.Algo.CheckInterval, a.logger)
	if err != nil {
		return err
	}
	defer algos.Close()
	eng.AttachAlgorithms(algos)

	a.logger.Info("引擎已就绪，等待订单与算法指令")

	<-ctx.Done()
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("系统异常退出: %w", err)
	}
	a.logger.Info("系统收到退出信号，正在停止")
	return nil
}
