package llm

import (
	"context"

	"github.com/rs/zerolog"
)

// Provider is implemented by model backends. Complete submits one request
// and returns the assistant turn, blocking until the provider responds.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Client wraps a Provider with retry handling and logging. It is safe for
// concurrent use when the underlying provider is.
type Client struct {
	provider Provider
	policy   RetryPolicy
	logger   zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(policy RetryPolicy) ClientOption {
	return func(c *Client) {
		c.policy = policy
	}
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a Client backed by the given provider.
func NewClient(provider Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider: provider,
		policy:   DefaultRetryPolicy(),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the name of the backing provider.
func (c *Client) Provider() string {
	return c.provider.Name()
}

// Complete submits the request, retrying transient failures per the
// client's policy.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	resp, err := Retry(ctx, c.policy, func() (*Response, error) {
		resp, err := c.provider.Complete(ctx, req)
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("provider", c.provider.Name()).
				Str("model", req.Model).
				Bool("retryable", IsRetryable(err)).
				Msg("model call failed")
		}
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("provider", c.provider.Name()).
		Str("model", resp.Model).
		Str("stop_reason", string(resp.Stop.Reason)).
		Int("input_tokens", resp.Usage.InputTokens).
		Int("output_tokens", resp.Usage.OutputTokens).
		Msg("model call completed")
	return resp, nil
}
