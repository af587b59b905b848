package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// DefaultModel is used when a request does not name one.
	DefaultModel = "claude-sonnet-4-5"

	// DefaultMaxTokens bounds the assistant turn when a request does not.
	DefaultMaxTokens = 4096

	providerAnthropic = "anthropic"
)

// AnthropicProvider implements Provider against the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
}

// NewAnthropicProvider creates a provider authenticated with the given API
// key. SDK-level retries are disabled so that Client owns retry behavior.
func NewAnthropicProvider(apiKey string, opts ...option.RequestOption) *AnthropicProvider {
	merged := append([]option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}, opts...)
	return &AnthropicProvider{client: anthropic.NewClient(merged...)}
}

func (p *AnthropicProvider) Name() string {
	return providerAnthropic
}

// Complete submits one Messages API call and maps the result back into the
// provider-neutral Response.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	msg, err := p.client.Messages.New(ctx, buildParams(req))
	if err != nil {
		return nil, mapAnthropicError(err)
	}
	return responseFromMessage(msg), nil
}

func buildParams(req Request) anthropic.MessageNewParams {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  anthropicMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}
	if len(req.Tools) > 0 {
		params.Tools = anthropicTools(req.Tools)
	}
	return params
}

func anthropicMessages(messages []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			switch b.Kind {
			case BlockText:
				blocks = append(blocks, anthropic.NewTextBlock(b.Text))
			case BlockThinking:
				// Thinking blocks without a signature cannot be replayed.
				if b.Thinking == nil || b.Thinking.Signature == "" {
					continue
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfThinking: &anthropic.ThinkingBlockParam{
						Signature: b.Thinking.Signature,
						Thinking:  b.Thinking.Text,
					},
				})
			case BlockToolUse:
				if b.ToolUse == nil {
					continue
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    b.ToolUse.ID,
						Name:  b.ToolUse.Name,
						Input: b.ToolUse.Input,
					},
				})
			case BlockToolResult:
				if b.ToolResult == nil {
					continue
				}
				blocks = append(blocks, anthropic.NewToolResultBlock(
					b.ToolResult.ToolUseID, b.ToolResult.Content, b.ToolResult.IsError))
			}
		}
		if len(blocks) == 0 {
			continue
		}
		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

func anthropicTools(tools []ToolSchema) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        t.Name,
				Description: anthropic.String(t.Description),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: t.Properties,
					Required:   t.Required,
				},
			},
		})
	}
	return out
}

func responseFromMessage(msg *anthropic.Message) *Response {
	blocks := make([]Block, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			blocks = append(blocks, TextBlock(variant.Text))
		case anthropic.ThinkingBlock:
			blocks = append(blocks, ThinkingBlock(variant.Thinking, variant.Signature))
		case anthropic.ToolUseBlock:
			blocks = append(blocks, ToolUseBlock(variant.ID, variant.Name, json.RawMessage(variant.JSON.Input.Raw())))
		}
	}
	return &Response{
		ID:      msg.ID,
		Model:   string(msg.Model),
		Message: Message{Role: RoleAssistant, Content: blocks},
		Stop:    stopSignal(msg.StopReason),
		Usage: Usage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
		},
	}
}

func stopSignal(reason anthropic.StopReason) StopSignal {
	switch reason {
	case anthropic.StopReasonEndTurn:
		return StopSignal{Reason: StopEndOfTurn}
	case anthropic.StopReasonToolUse:
		return StopSignal{Reason: StopToolRequested}
	default:
		return StopSignal{Reason: StopOther, Raw: string(reason)}
	}
}

func mapAnthropicError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &AbortError{ModelError{Message: "request aborted", Cause: err}}
	}
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		mapped := ErrorFromStatusCode(providerAnthropic, apierr.StatusCode, "anthropic api error", err)
		var rateLimit *RateLimitError
		if errors.As(mapped, &rateLimit) && apierr.Response != nil {
			if after, perr := strconv.ParseFloat(apierr.Response.Header.Get("Retry-After"), 64); perr == nil {
				rateLimit.RetryAfter = after
			}
		}
		return mapped
	}
	return &NetworkError{ModelError{Message: "anthropic request failed", Cause: err}}
}
