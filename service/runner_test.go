package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/magpie/config"
	"github.com/martinemde/magpie/llm"
	"github.com/martinemde/magpie/toolserver"
	"github.com/martinemde/magpie/webhook"
)

// scriptedModel returns its responses in order.
type scriptedModel struct {
	mu        sync.Mutex
	responses []*llm.Response
	err       error
	calls     int
}

func (m *scriptedModel) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.calls >= len(m.responses) {
		return nil, fmt.Errorf("no scripted response for call %d", m.calls+1)
	}
	resp := m.responses[m.calls]
	m.calls++
	return resp, nil
}

// runnerSession is a browser session double whose Close hook lets tests
// drop a trace file the way a real browser does on shutdown.
type runnerSession struct {
	onClose func()
	once    sync.Once
}

func (s *runnerSession) ListTools(ctx context.Context) ([]toolserver.ToolDescriptor, error) {
	return []toolserver.ToolDescriptor{{Name: "browser_click", Description: "Click an element"}}, nil
}

func (s *runnerSession) CallTool(ctx context.Context, name string, args map[string]any) (string, bool, error) {
	return "ok", false, nil
}

func (s *runnerSession) Close() error {
	if s.onClose != nil {
		s.once.Do(s.onClose)
	}
	return nil
}

type fakeConnector struct {
	session toolserver.Session
	err     error
}

func (f *fakeConnector) Connect(ctx context.Context) (toolserver.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

type delivery struct {
	url     string
	payload webhook.Payload
}

type recordingDeliverer struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (d *recordingDeliverer) Send(ctx context.Context, callbackURL string, payload webhook.Payload) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deliveries = append(d.deliveries, delivery{url: callbackURL, payload: payload})
	return nil
}

func (d *recordingDeliverer) all() []delivery {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]delivery(nil), d.deliveries...)
}

func runnerConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Model:              "test-model",
		MaxTokens:          512,
		MaxIterations:      5,
		ProfileDir:         t.TempDir(),
		MaxConcurrentTasks: 2,
	}
}

func runnerRequest() CookieRequest {
	return CookieRequest{
		LoginURL:      "https://example.com/login",
		SvcUsername:   "svc-user",
		SvcEmail:      "agent@proton.me",
		SvcPassword:   "svc-pass",
		EmailPassword: "mailbox-pass",
		CallbackURL:   "https://caller.example.com/webhook",
	}
}

func clickResponse() *llm.Response {
	return &llm.Response{
		Message: llm.AssistantMessage(
			llm.ToolUseBlock("toolu_01", "browser_click", json.RawMessage(`{"ref":"e5"}`)),
		),
		Stop: llm.StopSignal{Reason: llm.StopToolRequested, Raw: "tool_use"},
	}
}

func doneResponse(text string) *llm.Response {
	return &llm.Response{
		Message: llm.AssistantMessage(llm.TextBlock(text)),
		Stop:    llm.StopSignal{Reason: llm.StopEndOfTurn, Raw: "end_turn"},
	}
}

// traceWriter returns a Close hook that drops a network trace recording one
// request to the login URL carrying the given Cookie header.
func traceWriter(profileDir, loginURL, cookieHeader, fileName string) func() {
	return func() {
		record := map[string]any{
			"snapshot": map[string]any{
				"request": map[string]any{
					"url": loginURL + "/api/session",
					"headers": []map[string]string{
						{"name": "Cookie", "value": cookieHeader},
					},
				},
			},
		}
		line, _ := json.Marshal(record)
		dir := filepath.Join(profileDir, "traces")
		os.MkdirAll(dir, 0o755)
		os.WriteFile(filepath.Join(dir, fileName), append(line, '\n'), 0o644)
	}
}

func TestRunnerDeliversCookiesOnSuccess(t *testing.T) {
	cfg := runnerConfig(t)
	model := &scriptedModel{responses: []*llm.Response{
		clickResponse(),
		doneResponse("Login complete"),
	}}
	session := &runnerSession{
		onClose: traceWriter(cfg.ProfileDir, "https://example.com/login", "ct0=def; auth_token=abc", "trace1.network"),
	}
	deliverer := &recordingDeliverer{}
	runner := NewRunner(cfg, model, &fakeConnector{session: session}, deliverer, zerolog.Nop())

	runner.Submit(runnerRequest(), "req_success")
	runner.Wait()

	deliveries := deliverer.all()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "https://caller.example.com/webhook", deliveries[0].url)

	payload := deliveries[0].payload
	assert.True(t, payload.Success)
	assert.Equal(t, "auth_token=abc; ct0=def", payload.Cookies, "cookies are serialized sorted by name")
	assert.Equal(t, 2, payload.Iterations)
	assert.Equal(t, "req_success", payload.RequestID)
	assert.Empty(t, payload.Error)
}

func TestRunnerDeliversFailureWhenModelGivesUp(t *testing.T) {
	cfg := runnerConfig(t)
	model := &scriptedModel{responses: []*llm.Response{
		doneResponse("TASK_FAILED: credentials were rejected"),
	}}
	deliverer := &recordingDeliverer{}
	runner := NewRunner(cfg, model, &fakeConnector{session: &runnerSession{}}, deliverer, zerolog.Nop())

	runner.Submit(runnerRequest(), "req_failed")
	runner.Wait()

	deliveries := deliverer.all()
	require.Len(t, deliveries, 1)
	payload := deliveries[0].payload
	assert.False(t, payload.Success)
	assert.Equal(t, "credentials were rejected", payload.Error)
	assert.Equal(t, 1, payload.Iterations)
	assert.Empty(t, payload.Cookies)
}

func TestRunnerDeliversErrorWhenConnectFails(t *testing.T) {
	cfg := runnerConfig(t)
	deliverer := &recordingDeliverer{}
	connector := &fakeConnector{err: errors.New("npx not found")}
	runner := NewRunner(cfg, &scriptedModel{}, connector, deliverer, zerolog.Nop())

	runner.Submit(runnerRequest(), "req_connect")
	runner.Wait()

	deliveries := deliverer.all()
	require.Len(t, deliveries, 1)
	payload := deliveries[0].payload
	assert.False(t, payload.Success)
	assert.Contains(t, payload.Error, "browser session failed")
	assert.Contains(t, payload.Error, "npx not found")
}

func TestRunnerDeliversErrorWhenNoTraceWritten(t *testing.T) {
	cfg := runnerConfig(t)
	model := &scriptedModel{responses: []*llm.Response{doneResponse("Login complete")}}
	deliverer := &recordingDeliverer{}
	runner := NewRunner(cfg, model, &fakeConnector{session: &runnerSession{}}, deliverer, zerolog.Nop())

	runner.Submit(runnerRequest(), "req_notrace")
	runner.Wait()

	deliveries := deliverer.all()
	require.Len(t, deliveries, 1)
	payload := deliveries[0].payload
	assert.False(t, payload.Success)
	assert.Contains(t, payload.Error, "no trace files found")
	assert.Equal(t, 1, payload.Iterations)
}

func TestRunnerDeliversErrorOnModelTransportFailure(t *testing.T) {
	cfg := runnerConfig(t)
	model := &scriptedModel{err: errors.New("connection refused")}
	deliverer := &recordingDeliverer{}
	runner := NewRunner(cfg, model, &fakeConnector{session: &runnerSession{}}, deliverer, zerolog.Nop())

	runner.Submit(runnerRequest(), "req_transport")
	runner.Wait()

	deliveries := deliverer.all()
	require.Len(t, deliveries, 1)
	assert.False(t, deliveries[0].payload.Success)
	assert.Contains(t, deliveries[0].payload.Error, "model call")
}

func TestRunnerRemovesStaleTracesBeforeRunning(t *testing.T) {
	cfg := runnerConfig(t)

	// A stale trace from a previous run of the same login URL carries old
	// cookies. Give it a future mtime so it would beat the fresh trace in
	// newest-first selection if cleanup missed it.
	traceWriter(cfg.ProfileDir, "https://example.com/login", "auth_token=stale", "stale.network")()
	stalePath := filepath.Join(cfg.ProfileDir, "traces", "stale.network")
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(stalePath, future, future))

	model := &scriptedModel{responses: []*llm.Response{doneResponse("Login complete")}}
	session := &runnerSession{
		onClose: traceWriter(cfg.ProfileDir, "https://example.com/login", "auth_token=fresh", "trace1.network"),
	}
	deliverer := &recordingDeliverer{}
	runner := NewRunner(cfg, model, &fakeConnector{session: session}, deliverer, zerolog.Nop())

	runner.Submit(runnerRequest(), "req_stale")
	runner.Wait()

	deliveries := deliverer.all()
	require.Len(t, deliveries, 1)
	require.True(t, deliveries[0].payload.Success)
	assert.Equal(t, "auth_token=fresh", deliveries[0].payload.Cookies)
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	cfg := runnerConfig(t)
	cfg.MaxConcurrentTasks = 1

	slowModel := &slowFailingModel{delay: 20 * time.Millisecond}
	connector := &fakeConnector{session: &runnerSession{}}
	deliverer := &recordingDeliverer{}
	runner := NewRunner(cfg, slowModel, connector, deliverer, zerolog.Nop())

	for i := 0; i < 3; i++ {
		runner.Submit(runnerRequest(), fmt.Sprintf("req_%d", i))
	}
	runner.Wait()

	require.Len(t, deliverer.all(), 3)
	assert.LessOrEqual(t, slowModel.peak.Load(), int32(1), "pool of 1 must serialize tasks")
}

// slowFailingModel holds each call open briefly, then fails, keeping tasks
// in flight long enough to observe overlap.
type slowFailingModel struct {
	delay  time.Duration
	active atomic.Int32
	peak   atomic.Int32
}

func (m *slowFailingModel) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	n := m.active.Add(1)
	for {
		peak := m.peak.Load()
		if n <= peak || m.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	time.Sleep(m.delay)
	m.active.Add(-1)
	return nil, errors.New("slow failure")
}
