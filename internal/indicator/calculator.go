package indicator

import (
	"fmt"
	"math"
	"sync"

	talib "github.com/markcheno/go-talib"

	"defi-order-engine/internal/market"
)

// MACDResult 保存 MACD 关键值。
type MACDResult struct {
	Value         float64
	Signal        float64
	Histogram     float64
	PrevHistogram float64
}

// BollingerResult 保存布林带数据。
type BollingerResult struct {
	Upper     float64
	Middle    float64
	Lower     float64
	Bandwidth float64
	Position  float64
}

// Result 为一次指标计算的汇总。
type Result struct {
	Timeframe     string
	Series        Series
	EMA12         float64
	EMA26         float64
	MACD          MACDResult
	Bollinger     BollingerResult
	RSI           float64
	Momentum      float64
	Close         float64
	PreviousClose float64
}

type cacheEntry struct {
	key    string
	result Result
}

// Calculator 提供技术指标计算并带有简单缓存。
type Calculator struct {
	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewCalculator 创建 Calculator。
func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[string]cacheEntry),
	}
}

// Compute 依据给定K线计算常用技术指标。
func (c *Calculator) Compute(timeframe string, candles []market.Candle) (Result, error) {
	if len(candles) == 0 {
		return Result{}, fmt.Errorf("计算指标失败: 输入K线为空")
	}

	series := NewSeries(candles)
	cacheKey := fmt.Sprintf("%s:%d:%d", timeframe, series.Len(), series.Timestamps[len(series.Timestamps)-1].Unix())

	c.mu.Lock()
	if entry, ok := c.cache[timeframe]; ok && entry.key == cacheKey {
		c.mu.Unlock()
		return entry.result, nil
	}
	c.mu.Unlock()

	result := c.calculate(timeframe, series)

	c.mu.Lock()
	c.cache[timeframe] = cacheEntry{key: cacheKey, result: result}
	c.mu.Unlock()

	return result, nil
}

// MomentumScore 计算 lookback 周期上的价格变化率（百分比）。
func (c *Calculator) MomentumScore(candles []market.Candle, lookback int) (float64, error) {
	if lookback <= 0 {
		return 0, fmt.Errorf("计算动量失败: lookback 必须大于0")
	}
	if len(candles) <= lookback {
		return 0, fmt.Errorf("计算动量失败: K线数量不足，至少需要 %d 根，当前 %d", lookback+1, len(candles))
	}

	series := NewSeries(candles)
	// 只取末尾 lookback+1 根收盘价，末值变化率与全序列一致。
	closes := SliceTail(series.Close, lookback+1)
	roc := talib.Roc(closes, lookback)
	score := Last(roc)
	if math.IsNaN(score) {
		return 0, fmt.Errorf("计算动量失败: 数据不足")
	}
	return score, nil
}

func (c *Calculator) calculate(timeframe string, series Series) Result {
	closePrices := series.Close

	ema12 := talib.Ema(closePrices, 12)
	ema26 := talib.Ema(closePrices, 26)

	macd, macdSignal, macdHist := talib.Macd(closePrices, 12, 26, 9)

	bbUpper, bbMiddle, bbLower := talib.BBands(closePrices, 20, 2, 2, talib.EMA)

	rsi := talib.Rsi(closePrices, 14)

	roc := talib.Roc(closePrices, 10)

	return Result{
		Timeframe:     timeframe,
		Series:        series,
		EMA12:         Last(ema12),
		EMA26:         Last(ema26),
		MACD:          buildMACD(macd, macdSignal, macdHist),
		Bollinger:     buildBollinger(closePrices, bbUpper, bbMiddle, bbLower),
		RSI:           Last(rsi),
		Momentum:      Last(roc),
		Close:         Last(closePrices),
		PreviousClose: Prev(closePrices),
	}
}

func buildMACD(macd, signal, hist []float64) MACDResult {
	return MACDResult{
		Value:         Last(macd),
		Signal:        Last(signal),
		Histogram:     Last(hist),
		PrevHistogram: Prev(hist),
	}
}

func buildBollinger(close, upper, middle, lower []float64) BollingerResult {
	u := Last(upper)
	m := Last(middle)
	l := Last(lower)
	histWidth := u - l
	bandwidth := SafeDivide(histWidth, m)

	position := 0.0
	if histWidth > 0 {
		position = SafeDivide(Last(close)-l, histWidth)
	}

	// 将位置限制在[0,1]区间，便于后续使用。
	position = math.Max(0, math.Min(1, position))

	return BollingerResult{
		Upper:     u,
		Middle:    m,
		Lower:     l,
		Bandwidth: bandwidth,
		Position:  position,
	}
}
