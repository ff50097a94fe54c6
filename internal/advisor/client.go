package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"defi-order-engine/internal/config"
	"defi-order-engine/internal/signal"
)

const reviewTemplate = `你是一个专业的加密货币量化交易员。以下是系统基于技术指标生成的交易信号，请给出简短、审慎的中文点评：
指出信号依据是否充分、主要风险在哪里，以及是否建议人工复核。不超过150字。

信号数据：
{{ .SignalsJSON }}
`

// Client 封装对 OpenAI 的信号点评调用，属于可选能力。
type Client struct {
	cfg    config.OpenAIConfig
	logger *zap.Logger
	sdk    *openai.Client
}

// NewClient 使用给定配置创建点评客户端。
func NewClient(cfg config.OpenAIConfig, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api_key 不能为空")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sdkCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		sdkCfg.BaseURL = cfg.BaseURL
	}
	sdkCfg.HTTPClient = &http.Client{
		Timeout: cfg.Timeout + 5*time.Second,
	}

	return &Client{
		cfg:    cfg,
		logger: logger,
		sdk:    openai.NewClientWithConfig(sdkCfg),
	}, nil
}

// Review 对一批信号生成自然语言点评。
func (c *Client) Review(ctx context.Context, signals []signal.TradingSignal) (string, error) {
	if c.cfg.Model == "" {
		return "", errors.New("openai model 不能为空")
	}
	if len(signals) == 0 {
		return "", errors.New("advisor: 信号列表为空")
	}

	prompt, err := buildPrompt(signals)
	if err != nil {
		return "", err
	}

	response, err := c.sdk.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0,
	})
	if err != nil {
		c.logger.Error("调用OpenAI失败", zap.Error(err))
		return "", fmt.Errorf("调用OpenAI失败: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", errors.New("OpenAI 返回结果为空")
	}

	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("OpenAI 返回内容为空")
	}

	return content, nil
}

func buildPrompt(signals []signal.TradingSignal) (string, error) {
	data, err := json.MarshalIndent(signals, "", "  ")
	if err != nil {
		return "", fmt.Errorf("advisor: 序列化信号失败: %w", err)
	}

	tmpl, err := template.New("review").Parse(reviewTemplate)
	if err != nil {
		return "", fmt.Errorf("advisor: 解析模板失败: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, map[string]string{"SignalsJSON": string(data)}); err != nil {
		return "", fmt.Errorf("advisor: 渲染模板失败: %w", err)
	}

	return buf.String(), nil
}
