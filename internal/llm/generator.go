// Package llm 封装生成服务（大模型）的调用
// 对话生成、契合度评估、自然结束判定三类调用都经由 Generator 接口，
// 便于在测试中用桩实现替换真实 HTTP 客户端
package llm

import (
	"context"
)

// Message 对话上下文中的一条消息
type Message struct {
	Role    string `json:"role"`    // system / user / assistant
	Content string `json:"content"` // 消息内容
}

// Usage 单次生成的 token 消耗
type Usage struct {
	Model       string // 实际使用的模型名
	TotalTokens int    // 消耗的 token 总数
}

// Evaluation 契合度评估结果
// 增量由调用方限幅，这里保留模型原始输出
type Evaluation struct {
	LoveDelta       float64 `json:"love_delta"`
	FriendshipDelta float64 `json:"friendship_delta"`
	Reason          string  `json:"reason"`
	Model           string  `json:"-"`
}

// Generator 生成服务接口
// 三个方法都要求调用方传入可取消的 context，实现方必须设置请求超时
type Generator interface {
	// Generate 以指定人格生成下一条发言
	// systemPrompt 为人格设定，history 为最近若干轮对话，scenarioContext 为场景背景
	Generate(ctx context.Context, systemPrompt string, history []Message, scenarioContext string) (string, Usage, error)
	// EvaluateCompatibility 评估一条发言对双方契合度的影响
	EvaluateCompatibility(ctx context.Context, content string, senderProfile, receiverProfile string, history []Message) (Evaluation, error)
	// ShouldEnd 判断对话是否应自然结束
	ShouldEnd(ctx context.Context, history []Message, scenarioContext string) (bool, error)
}
