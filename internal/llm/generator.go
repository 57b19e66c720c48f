package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/almazgeobur/sales-analyzer/internal/config"
)

// Generator produces analytical reports through a chat-completion endpoint.
// The endpoint, model and credential are fixed at construction so the
// generator carries no hidden global state.
type Generator struct {
	chatModel model.ChatModel
	limiter   *rate.Limiter
}

// NewGenerator builds a generator from the configured LLM endpoint and the
// qps/rpm throttling settings.
func NewGenerator(ctx context.Context, llmCfg config.LLMConfig, ccCfg config.ConcurrencyConfig) (*Generator, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: llmCfg.BaseURL,
		APIKey:  llmCfg.APIKey,
		Model:   llmCfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}

	limit := rate.Limit(float64(ccCfg.RPM) / 60.0)
	limiter := rate.NewLimiter(limit, ccCfg.QPS)

	return &Generator{chatModel: chatModel, limiter: limiter}, nil
}

// NewGeneratorWithModel wires an existing chat model. Used by tests.
func NewGeneratorWithModel(cm model.ChatModel, limiter *rate.Limiter) *Generator {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Generator{chatModel: cm, limiter: limiter}
}

// Generate sends the prompt as a single user message and returns the first
// choice's content. It performs no retries of its own.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	messages := []*schema.Message{
		{Role: schema.User, Content: prompt},
	}

	resp, err := g.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("chat completion: empty response content")
	}

	return resp.Content, nil
}
