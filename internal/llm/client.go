// Package llm 封装 OpenAI 兼容接口的补全调用，带限流识别与指数退避重试。
package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	maxRetries        = 3
	initialDelay      = 1 * time.Second
	maxDelay          = 60 * time.Second
	backoffMultiplier = 2

	completionTemperature = 0.7
	completionMaxTokens   = 2000
)

// 限流错误的关键字，不同兼容服务商的报错文案不统一
var rateLimitKeywords = []string{
	"rate limit",
	"ratelimit",
	"rate_limit",
	"限流",
	"速率限制",
	"too many requests",
	"429",
}

// Client OpenAI 兼容服务的补全客户端。ErrNotConfigured 之外的错误
// 均来自底层 API 调用。
type Client struct {
	api   *openai.Client
	model string

	// 测试钩子：invoke 替换真实 API 调用，sleep 替换退避等待
	invoke func(ctx context.Context, prompt string) (string, error)
	sleep  func(time.Duration)
}

var ErrNotConfigured = errors.New("llm: api key not configured")

// New 构造客户端。baseURL 非空时指向任意 OpenAI 兼容服务
// （如 GLM、DeepSeek 的兼容端点）。
func New(apiKey, model, baseURL string) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	api := openai.NewClient(opts...)

	c := &Client{
		api:   &api,
		model: model,
		sleep: time.Sleep,
	}
	if apiKey == "" {
		c.invoke = func(context.Context, string) (string, error) { return "", ErrNotConfigured }
	} else {
		c.invoke = c.complete
	}
	return c
}

// Complete 单次补全调用，不做重试
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.invoke(ctx, prompt)
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(completionTemperature),
		MaxTokens:   openai.Int(completionMaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("llm: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteWithRetry 最多尝试 3 次，失败后按 1s、2s 指数退避（上限 60s）。
// 是否限流只影响日志文案，不改变退避节奏。耗尽重试后返回最后一次的错误。
func (c *Client) CompleteWithRetry(ctx context.Context, prompt string) (string, error) {
	delay := initialDelay

	for attempt := 1; ; attempt++ {
		out, err := c.invoke(ctx, prompt)
		if err == nil {
			return out, nil
		}
		if attempt == maxRetries {
			log.Printf("llm: giving up after %d attempts: %v", maxRetries, err)
			return "", err
		}

		if IsRateLimitError(err) {
			log.Printf("llm: rate limited, retrying in %s (%d/%d)", delay, attempt, maxRetries)
		} else {
			log.Printf("llm: call failed, retrying in %s (%d/%d): %v", delay, attempt, maxRetries, err)
		}

		c.sleep(delay)
		delay *= backoffMultiplier
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// IsRateLimitError 判断错误是否由服务端限流引起
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == 429 {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, kw := range rateLimitKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

var jsonFenceOpenRe = regexp.MustCompile("^```(json)?\n")
var jsonFenceCloseRe = regexp.MustCompile("\n```$")

// CleanJSONResponse 去掉模型输出中常见的 markdown 代码围栏
func CleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = jsonFenceOpenRe.ReplaceAllString(content, "")
	content = jsonFenceCloseRe.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}
