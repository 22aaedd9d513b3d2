package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/atelierline/concierge/agent/contract"
	openrouterx "github.com/atelierline/concierge/pkg/openrouter"
)

// Completer implements contract.Completer over the OpenRouter-compatible
// chat completions API.
type Completer struct {
	client   *openaisdk.Client
	defaults contractx.CompleteOptions
}

var _ contractx.Completer = (*Completer)(nil)

func NewCompleter(cfg Config) (*Completer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client := openrouterx.NewClient(cfg.Config)
	if client == nil {
		return nil, errors.New("llm: failed to initialize openrouter client")
	}
	return &Completer{
		client:   client,
		defaults: cfg.Defaults(),
	}, nil
}

func (c *Completer) Complete(ctx context.Context, systemPrompt string, turns []contractx.Turn, opts contractx.CompleteOptions) (string, error) {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = c.defaults.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.defaults.MaxTokens
	}

	messages := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, openaisdk.SystemMessage(systemPrompt))
	}
	for _, turn := range turns {
		switch turn.Role {
		case contractx.RoleAssistant:
			messages = append(messages, openaisdk.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openaisdk.UserMessage(turn.Content))
		}
	}

	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(model),
		Messages: messages,
	}
	if opts.Temperature >= 0 {
		params.Temperature = openaisdk.Float(float64(opts.Temperature))
	}
	if maxTokens > 0 {
		params.MaxTokens = openaisdk.Int(int64(maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", contractx.ErrCompletion, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", contractx.ErrEmptyCompletion
	}
	return resp.Choices[0].Message.Content, nil
}
