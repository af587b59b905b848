// Package webhook delivers terminal task outcomes to caller-provided
// callback URLs, and hosts a standalone sink server for testing deliveries
// end to end.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

const (
	// DefaultTimeout bounds one delivery attempt.
	DefaultTimeout = 30 * time.Second

	// DefaultRetries is how many times a failed delivery is retried.
	DefaultRetries = 3
)

// Payload is the terminal report POSTed to the caller's webhook. Cookies is
// set on success, Error on failure; empty fields are omitted from the JSON.
type Payload struct {
	Success    bool   `json:"success"`
	Cookies    string `json:"cookies,omitempty"`
	Error      string `json:"error,omitempty"`
	Iterations int    `json:"iterations,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
}

// Sender POSTs payloads as JSON with exponential backoff on failure.
type Sender struct {
	client    *http.Client
	retries   uint64
	baseDelay time.Duration
	logger    zerolog.Logger
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) SenderOption {
	return func(s *Sender) {
		s.client.Timeout = d
	}
}

// WithRetries sets how many failed attempts are retried.
func WithRetries(n uint64) SenderOption {
	return func(s *Sender) {
		s.retries = n
	}
}

// WithBaseDelay sets the first backoff interval.
func WithBaseDelay(d time.Duration) SenderOption {
	return func(s *Sender) {
		s.baseDelay = d
	}
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger zerolog.Logger) SenderOption {
	return func(s *Sender) {
		s.logger = logger
	}
}

// NewSender creates a Sender with the default timeout and retry budget.
func NewSender(opts ...SenderOption) *Sender {
	s := &Sender{
		client:    &http.Client{Timeout: DefaultTimeout},
		retries:   DefaultRetries,
		baseDelay: time.Second,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send delivers the payload to callbackURL. Transport errors and non-2xx
// responses are retried; the error returned after the budget is spent wraps
// the last attempt's failure.
func (s *Sender) Send(ctx context.Context, callbackURL string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	s.logger.Info().
		Str("url", callbackURL).
		Str("request_id", payload.RequestID).
		Bool("success", payload.Success).
		Msg("sending webhook")

	backoff := retry.WithMaxRetries(s.retries, retry.NewExponential(s.baseDelay))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return retry.RetryableError(fmt.Errorf("webhook returned status %d", resp.StatusCode))
		}
		return nil
	})
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("url", callbackURL).
			Str("request_id", payload.RequestID).
			Msg("webhook delivery failed")
		return fmt.Errorf("deliver webhook: %w", err)
	}

	s.logger.Info().Str("request_id", payload.RequestID).Msg("webhook delivered")
	return nil
}
