package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dharmasatrya/flightassist/internal/models"
	"github.com/dharmasatrya/flightassist/internal/ratelimit"
	"github.com/dharmasatrya/flightassist/pkg/logger"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string // empty means api.openai.com; DeepSeek and proxies go here
	Model   string
}

// OpenAIParser talks to any OpenAI-compatible chat completion endpoint.
type OpenAIParser struct {
	client  *openai.Client
	model   string
	spec    *PromptSpec
	limiter *ratelimit.BackendLimiter
	log     *logger.Logger
	now     func() time.Time
}

func NewOpenAIParser(cfg OpenAIConfig, spec *PromptSpec, limiter *ratelimit.BackendLimiter, log *logger.Logger) *OpenAIParser {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if log == nil {
		log = logger.Discard()
	}
	return &OpenAIParser{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		spec:    spec,
		limiter: limiter,
		log:     log,
		now:     time.Now,
	}
}

func (p *OpenAIParser) Parse(ctx context.Context, message string, history []models.Message, current *models.TripInfo) (*Result, error) {
	messages, err := p.buildMessages(message, history, current)
	if err != nil {
		return nil, err
	}

	if err := p.limiter.Wait(ctx, ratelimit.BackendLLM); err != nil {
		return nil, models.NewBackendError(ratelimit.BackendLLM, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.spec.Style.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   p.spec.Style.MaxTokens,
		Temperature: p.spec.Style.Temperature,
	})
	if err != nil {
		return nil, models.NewBackendError(ratelimit.BackendLLM, err)
	}
	if len(resp.Choices) == 0 {
		return nil, models.NewBackendError(ratelimit.BackendLLM, errors.New("no choices"))
	}

	raw := resp.Choices[0].Message.Content
	p.log.Debug("intent parsed",
		"model", p.model,
		"took_ms", time.Since(start).Milliseconds(),
		"tokens", resp.Usage.TotalTokens,
	)

	var out reply
	if err := extractJSON(raw, &out); err != nil {
		p.log.Warn("unparseable model output", "content", raw)
		return nil, err
	}
	return out.toResult(), nil
}

func (p *OpenAIParser) buildMessages(message string, history []models.Message, current *models.TripInfo) ([]openai.ChatCompletionMessage, error) {
	system, err := p.spec.SystemPrompt(p.now())
	if err != nil {
		return nil, fmt.Errorf("render system prompt: %w", err)
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: system},
	}

	if n := p.spec.Style.History; len(history) > n {
		history = history[len(history)-n:]
	}
	for _, m := range history {
		switch m.Role {
		case models.RoleUser:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: m.Content})
		case models.RoleAssistant:
			messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: m.Content})
		}
	}

	var currentJSON string
	if fields := fromTripInfo(current); fields != nil {
		b, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		currentJSON = string(b)
	}
	content, err := p.spec.UserContent(message, currentJSON)
	if err != nil {
		return nil, fmt.Errorf("render context: %w", err)
	}

	return append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: content}), nil
}
