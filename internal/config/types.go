package config

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了订单引擎运行所需的全部配置项。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Market    MarketConfig    `mapstructure:"market"`
	Pairs     []PairConfig    `mapstructure:"pairs"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Algo      AlgoConfig      `mapstructure:"algo"`
	Signal    SignalConfig    `mapstructure:"signal"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// MarketConfig 描述行情数据源连接信息。
type MarketConfig struct {
	Name       string      `mapstructure:"name"`
	APIKey     string      `mapstructure:"api_key"`
	APISecret  string      `mapstructure:"api_secret"`
	APIPass    string      `mapstructure:"api_password"`
	UseSandbox bool        `mapstructure:"use_sandbox"`
	Retry      RetryConfig `mapstructure:"retry"`
}

// RetryConfig 统一控制重试机制。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// PairConfig 描述一个可交易的交易对。
type PairConfig struct {
	Symbol       string  `mapstructure:"symbol"`
	BaseAsset    string  `mapstructure:"base_asset"`
	QuoteAsset   string  `mapstructure:"quote_asset"`
	Chain        string  `mapstructure:"chain"`
	Decimals     int     `mapstructure:"decimals"`
	MinOrderSize float64 `mapstructure:"min_order_size"`
	MaxOrderSize float64 `mapstructure:"max_order_size"`
	TickSize     float64 `mapstructure:"tick_size"`
	MakerFee     float64 `mapstructure:"maker_fee"`
	TakerFee     float64 `mapstructure:"taker_fee"`
	Active       bool    `mapstructure:"active"`
}

// ExecutionConfig 控制订单执行行为。
type ExecutionConfig struct {
	Slippage     float64       `mapstructure:"slippage"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// AlgoConfig 控制算法引擎的调度节奏。
type AlgoConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// SignalConfig 控制信号生成参数。
type SignalConfig struct {
	CandleLimit    int           `mapstructure:"candle_limit"`
	MinStrength    float64       `mapstructure:"min_strength"`
	SignalExpiry   time.Duration `mapstructure:"signal_expiry"`
	Timeframe      string        `mapstructure:"timeframe"`
	TrendTimeframe string        `mapstructure:"trend_timeframe"`
}

// OpenAIConfig 描述可选的信号点评模型参数，api_key 为空时禁用。
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig 管理事件日志数据库连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.Market.Name == "" {
		err = multierr.Append(err, errors.New("market.name 不能为空"))
	}
	if c.Market.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("market.retry.max_attempts 必须大于0"))
	}
	if c.Market.Retry.MinDelay <= 0 || c.Market.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("market.retry.delay 必须为正"))
	}
	if c.Market.Retry.MinDelay > c.Market.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("market.retry.min_delay 不能大于 max_delay"))
	}
	if len(c.Pairs) == 0 {
		err = multierr.Append(err, errors.New("pairs 至少配置一个交易对"))
	}
	for i, pair := range c.Pairs {
		if pair.Symbol == "" {
			err = multierr.Append(err, fmt.Errorf("pairs[%d].symbol 不能为空", i))
		}
		if pair.MinOrderSize <= 0 {
			err = multierr.Append(err, fmt.Errorf("pairs[%d].min_order_size 必须大于0", i))
		}
		if pair.MaxOrderSize < pair.MinOrderSize {
			err = multierr.Append(err, fmt.Errorf("pairs[%d].max_order_size 不能小于 min_order_size", i))
		}
		if pair.MakerFee < 0 || pair.TakerFee < 0 {
			err = multierr.Append(err, fmt.Errorf("pairs[%d] 费率不能为负", i))
		}
	}
	if c.Execution.Slippage < 0 || c.Execution.Slippage > 0.2 {
		err = multierr.Append(err, errors.New("execution.slippage 应位于[0,0.2]"))
	}
	if c.Execution.PollInterval <= 0 {
		err = multierr.Append(err, errors.New("execution.poll_interval 必须大于0"))
	}
	if c.Algo.CheckInterval <= 0 {
		err = multierr.Append(err, errors.New("algo.check_interval 必须大于0"))
	}
	if c.Signal.CandleLimit <= 0 {
		err = multierr.Append(err, errors.New("signal.candle_limit 必须大于0"))
	}
	if c.Signal.MinStrength < 0 || c.Signal.MinStrength > 1 {
		err = multierr.Append(err, errors.New("signal.min_strength 必须位于[0,1]"))
	}
	if c.Signal.SignalExpiry <= 0 {
		err = multierr.Append(err, errors.New("signal.signal_expiry 必须大于0"))
	}
	if c.Signal.Timeframe == "" || c.Signal.TrendTimeframe == "" {
		err = multierr.Append(err, errors.New("signal.timeframe 与 trend_timeframe 不能为空"))
	}
	if c.OpenAI.APIKey != "" {
		if c.OpenAI.Model == "" {
			err = multierr.Append(err, errors.New("openai.model 不能为空"))
		}
		if c.OpenAI.Timeout <= 0 {
			err = multierr.Append(err, errors.New("openai.timeout 必须大于0"))
		}
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Database.ConnMaxLifetime < 0 {
		err = multierr.Append(err, errors.New("database.conn_max_lifetime 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
