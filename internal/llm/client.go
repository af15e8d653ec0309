// Package llm wraps the language-model service behind a narrow client
// interface and an analyzer that enforces the retry, circuit-breaker and
// token-budget policies. The service is assumed unreliable; every call
// path ends in a typed outcome the orchestrator can act on.
package llm

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/andes-group/invest-cli/internal/model"
	"github.com/andes-group/invest-cli/internal/resilience"
)

// Client defines the model operations used by the analyzer.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

// MessageRequest is the provider-agnostic request shape.
type MessageRequest struct {
	Model     string
	MaxTokens int64
	System    string
	Messages  []Message
}

// Message is a single conversational message.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// MessageResponse is the provider-agnostic response shape.
type MessageResponse struct {
	Text       string
	StopReason string
	Usage      model.TokenUsage
}

// sdkClient implements Client with the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates an Anthropic-backed model client.
func NewClient(apiKey string) Client {
	return &sdkClient{client: sdk.NewClient(option.WithAPIKey(apiKey))}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages:  toSDKMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifySDKError(err)
	}

	var text string
	for _, b := range msg.Content {
		if b.Type == "text" {
			text += b.Text
		}
	}

	return &MessageResponse{
		Text:       text,
		StopReason: string(msg.StopReason),
		Usage: model.TokenUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}, nil
}

func toSDKMessages(msgs []Message) []sdk.MessageParam {
	out := make([]sdk.MessageParam, len(msgs))
	for i, m := range msgs {
		block := sdk.NewTextBlock(m.Content)
		switch m.Role {
		case "assistant":
			out[i] = sdk.NewAssistantMessage(block)
		default:
			out[i] = sdk.NewUserMessage(block)
		}
	}
	return out
}

// classifySDKError maps SDK errors onto the retry taxonomy: rate limits
// and 5xx are transient, auth and bad-request are permanent, everything
// else (network-level) passes through for IsTransient heuristics.
func classifySDKError(err error) error {
	var apierr *sdk.Error
	if errors.As(err, &apierr) {
		wrapped := eris.Wrap(err, "llm: create message")
		return resilience.ClassifyStatus(wrapped, apierr.StatusCode)
	}
	return eris.Wrap(err, "llm: create message")
}
