// Package llm 封装生成服务的调用
// 本文件实现 OpenAI 兼容 chat-completions 接口的 HTTP 客户端
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"soullink_server/internal/config"
	"soullink_server/pkg/errorx"
)

// Client OpenAI 兼容接口的生成服务客户端
type Client struct {
	BaseURL    string
	APIKey     string
	Model      string
	MaxRetries int
	HTTPClient *http.Client
}

// NewClient 从配置创建生成服务客户端
func NewClient(cfg *config.LLMConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		BaseURL:    baseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		MaxRetries: retries,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type chatReq struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type chatResp struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// chat 执行一次 chat-completions 调用
func (c *Client) chat(ctx context.Context, messages []Message) (string, Usage, error) {
	if c.HTTPClient == nil {
		return "", Usage{}, errors.New("llm: http client is nil")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return "", Usage{}, errors.New("llm: api key is required")
	}
	model := strings.TrimSpace(c.Model)
	if model == "" {
		return "", Usage{}, errors.New("llm: model is required")
	}

	b, err := json.Marshal(chatReq{Model: model, Messages: messages, Stream: false})
	if err != nil {
		return "", Usage{}, err
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(c.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", Usage{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", Usage{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", Usage{}, fmt.Errorf("llm: %s", msg)
	}

	var decoded chatResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", Usage{}, err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", Usage{}, errors.New(decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", Usage{}, errors.New("llm: empty response")
	}
	usedModel := decoded.Model
	if usedModel == "" {
		usedModel = model
	}
	return decoded.Choices[0].Message.Content, Usage{Model: usedModel, TotalTokens: decoded.Usage.TotalTokens}, nil
}

// chatWithRetry 失败后按配置重试，全部失败时返回生成失败错误
func (c *Client) chatWithRetry(ctx context.Context, messages []Message) (string, Usage, error) {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		text, usage, err := c.chat(ctx, messages)
		if err == nil {
			return text, usage, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		zap.L().Warn("llm call failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return "", Usage{}, errorx.Wrap(lastErr, errorx.CodeGenerationFailure, "生成服务调用失败")
}

// Generate 以指定人格生成下一条发言
func (c *Client) Generate(ctx context.Context, systemPrompt string, history []Message, scenarioContext string) (string, Usage, error) {
	system := systemPrompt
	if scenarioContext != "" {
		system = system + "\n\n当前场景：" + scenarioContext
	}
	messages := make([]Message, 0, len(history)+2)
	messages = append(messages, Message{Role: "system", Content: system})
	messages = append(messages, history...)
	if len(history) == 0 {
		// 首轮没有历史，提示模型按场景开场
		messages = append(messages, Message{Role: "user", Content: "请根据场景自然地开启对话。"})
	}
	text, usage, err := c.chatWithRetry(ctx, messages)
	if err != nil {
		return "", Usage{}, err
	}
	return strings.TrimSpace(text), usage, nil
}

// evaluationPrompt 评估提示，要求模型输出 JSON
const evaluationPrompt = `你是匹配契合度评估员。根据下面这条发言以及双方的人格简介，
评估这条发言对双方"爱情"与"友情"契合度的影响。
以 JSON 输出：{"love_delta": 数值, "friendship_delta": 数值, "reason": "一句话理由"}
数值范围 -10 到 10，不要输出其他内容。`

// EvaluateCompatibility 评估一条发言对双方契合度的影响
// 模型输出无法解析时返回零增量而不是错误，评估失败不应中断回合
func (c *Client) EvaluateCompatibility(ctx context.Context, content string, senderProfile, receiverProfile string, history []Message) (Evaluation, error) {
	var sb strings.Builder
	sb.WriteString("发言者简介：" + senderProfile + "\n")
	sb.WriteString("接收者简介：" + receiverProfile + "\n")
	if len(history) > 0 {
		sb.WriteString("最近对话：\n")
		for _, m := range history {
			sb.WriteString(m.Role + ": " + m.Content + "\n")
		}
	}
	sb.WriteString("待评估发言：" + content)

	messages := []Message{
		{Role: "system", Content: evaluationPrompt},
		{Role: "user", Content: sb.String()},
	}
	text, usage, err := c.chatWithRetry(ctx, messages)
	if err != nil {
		return Evaluation{}, err
	}

	var eval Evaluation
	if jsonErr := json.Unmarshal([]byte(extractJSON(text)), &eval); jsonErr != nil {
		zap.L().Warn("evaluation output is not valid json", zap.String("raw", text))
		return Evaluation{Reason: "评估输出解析失败", Model: usage.Model}, nil
	}
	eval.Model = usage.Model
	return eval, nil
}

// ShouldEnd 判断对话是否应自然结束
// 出错时返回 false，让回合继续到轮数上限
func (c *Client) ShouldEnd(ctx context.Context, history []Message, scenarioContext string) (bool, error) {
	var sb strings.Builder
	if scenarioContext != "" {
		sb.WriteString("场景：" + scenarioContext + "\n")
	}
	sb.WriteString("对话记录：\n")
	for _, m := range history {
		sb.WriteString(m.Role + ": " + m.Content + "\n")
	}
	sb.WriteString("这段对话是否已经到了自然收尾的时机？只回答 yes 或 no。")

	messages := []Message{
		{Role: "system", Content: "你是对话节奏判断器，判断对话是否应当自然结束。"},
		{Role: "user", Content: sb.String()},
	}
	text, _, err := c.chatWithRetry(ctx, messages)
	if err != nil {
		return false, err
	}
	answer := strings.ToLower(strings.TrimSpace(text))
	return strings.HasPrefix(answer, "yes") || strings.HasPrefix(answer, "是"), nil
}

// extractJSON 从模型输出中截取第一个 JSON 对象
// 模型偶尔会在 JSON 前后加解释文字或代码块围栏
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// 确保 Client 实现了 Generator 接口
var _ Generator = (*Client)(nil)
