package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"defi-order-engine/internal/config"
)

// ErrPairNotFound 表示交易对不存在。
var ErrPairNotFound = errors.New("catalog: trading pair not found")

// TradingPair 描述一个可交易的交易对，发布后不可变。
type TradingPair struct {
	Symbol       string
	BaseAsset    string
	QuoteAsset   string
	Chain        string
	Decimals     int
	MinOrderSize float64
	MaxOrderSize float64
	TickSize     float64
	MakerFee     float64
	TakerFee     float64
	Active       bool
}

// Catalog 保存全部交易对定义，按符号查询。
// 交易对集合在构造后不再变化，因此读取无需加锁。
type Catalog struct {
	pairs map[string]TradingPair
}

// New 根据交易对列表构建目录。
func New(pairs []TradingPair) (*Catalog, error) {
	if len(pairs) == 0 {
		return nil, errors.New("catalog: 交易对列表不能为空")
	}

	index := make(map[string]TradingPair, len(pairs))
	for _, pair := range pairs {
		key := normalizeSymbol(pair.Symbol)
		if key == "" {
			return nil, errors.New("catalog: 交易对符号不能为空")
		}
		if _, exists := index[key]; exists {
			return nil, fmt.Errorf("catalog: 交易对 %s 重复定义", pair.Symbol)
		}
		index[key] = pair
	}

	return &Catalog{pairs: index}, nil
}

// FromConfig 将配置中的交易对定义转换为目录。
func FromConfig(cfgPairs []config.PairConfig) (*Catalog, error) {
	pairs := make([]TradingPair, 0, len(cfgPairs))
	for _, p := range cfgPairs {
		pairs = append(pairs, TradingPair{
			Symbol:       p.Symbol,
			BaseAsset:    p.BaseAsset,
			QuoteAsset:   p.QuoteAsset,
			Chain:        p.Chain,
			Decimals:     p.Decimals,
			MinOrderSize: p.MinOrderSize,
			MaxOrderSize: p.MaxOrderSize,
			TickSize:     p.TickSize,
			MakerFee:     p.MakerFee,
			TakerFee:     p.TakerFee,
			Active:       p.Active,
		})
	}
	return New(pairs)
}

// Lookup 按符号查找交易对。
func (c *Catalog) Lookup(symbol string) (TradingPair, error) {
	pair, ok := c.pairs[normalizeSymbol(symbol)]
	if !ok {
		return TradingPair{}, fmt.Errorf("%w: %s", ErrPairNotFound, symbol)
	}
	return pair, nil
}

// Symbols 返回全部交易对符号，按字典序排列。
func (c *Catalog) Symbols() []string {
	symbols := make([]string, 0, len(c.pairs))
	for key := range c.pairs {
		symbols = append(symbols, key)
	}
	sort.Strings(symbols)
	return symbols
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
