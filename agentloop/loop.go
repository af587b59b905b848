package agentloop

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/martinemde/magpie/llm"
	"github.com/martinemde/magpie/toolserver"
	"github.com/rs/zerolog"
)

const (
	// FailureMarker is the in-band prefix the model uses to declare an
	// unrecoverable failure in its final text.
	FailureMarker = "TASK_FAILED:"

	// DiagnosticConsoleTool is queried after every executed action to
	// surface newly logged browser errors.
	DiagnosticConsoleTool = "browser_console_messages"

	// DefaultMaxIterations bounds a task when neither the task nor the
	// config sets a ceiling.
	DefaultMaxIterations = 30
)

// Task is one immutable instruction for the loop. MaxIterations of zero
// falls back to the config ceiling, then to DefaultMaxIterations.
type Task struct {
	Instructions  string
	MaxIterations int
}

// Outcome is the terminal result of a task. Exactly one of FinalText
// (success) or Reason (failure) is meaningful.
type Outcome struct {
	Success    bool
	FinalText  string
	Reason     string
	Iterations int
	Usage      llm.Usage
}

// Validator inspects the model's final text before the loop accepts it.
// Returning an error feeds the message back to the model for another
// attempt instead of terminating the task.
type Validator func(finalText string) error

// Config controls one loop instance.
type Config struct {
	Model            string
	MaxTokens        int
	MaxIterations    int
	DiagnosticTool   string // "" disables the post-action diagnostic query
	RepeatLimit      int    // consecutive identical actions before a warning; 0 disables
	ToolOutputLimits map[string]int
	Validator        Validator
}

// DefaultConfig returns the configuration used in production.
func DefaultConfig() Config {
	return Config{
		Model:          llm.DefaultModel,
		MaxTokens:      llm.DefaultMaxTokens,
		MaxIterations:  DefaultMaxIterations,
		DiagnosticTool: DiagnosticConsoleTool,
		RepeatLimit:    3,
	}
}

// ModelClient is the decision-model surface the loop needs. *llm.Client
// satisfies it.
type ModelClient interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Loop owns one task's conversation and drives it to a terminal outcome.
// A Loop is single-use: conversation state is discarded when Run returns.
type Loop struct {
	client  ModelClient
	session toolserver.Session
	config  Config
	taskID  string
	emitter *EventEmitter
	logger  zerolog.Logger
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithTaskID sets the identifier stamped on emitted events. Defaults to a
// random UUID.
func WithTaskID(id string) Option {
	return func(l *Loop) {
		l.taskID = id
	}
}

// New creates a Loop over the given model client and tool session.
func New(client ModelClient, session toolserver.Session, config Config, opts ...Option) *Loop {
	l := &Loop{
		client:  client,
		session: session,
		config:  config,
		taskID:  uuid.New().String(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.emitter = NewEventEmitter(l.taskID, 256)
	return l
}

// TaskID returns the identifier stamped on emitted events.
func (l *Loop) TaskID() string {
	return l.taskID
}

// Events returns the event channel for the host application.
func (l *Loop) Events() <-chan Event {
	return l.emitter.Events()
}

// Close closes the event channel. Safe to call multiple times.
func (l *Loop) Close() {
	l.emitter.Close()
}

// Run executes the task to a terminal outcome. A non-nil error reports a
// transport-level failure (tool catalog fetch or a model call that failed
// after retries); protocol-level failures, the failure marker, and budget
// exhaustion are returned inside the Outcome.
func (l *Loop) Run(ctx context.Context, task Task) (*Outcome, error) {
	outcome, err := l.run(ctx, task)
	if err != nil {
		l.emitter.Emit(EventTaskEnd, map[string]any{"error": err.Error()})
		return nil, err
	}
	l.emitter.Emit(EventTaskEnd, map[string]any{
		"success":    outcome.Success,
		"iterations": outcome.Iterations,
	})
	return outcome, nil
}

func (l *Loop) run(ctx context.Context, task Task) (*Outcome, error) {
	maxIterations := task.MaxIterations
	if maxIterations <= 0 {
		maxIterations = l.config.MaxIterations
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	l.emitter.Emit(EventTaskStart, map[string]any{"max_iterations": maxIterations})

	// Fetch the tool catalog exactly once, before the first iteration.
	descriptors, err := l.session.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch tool catalog: %w", err)
	}
	tools := ToolSchemas(descriptors)
	l.logger.Info().Int("tools", len(tools)).Msg("tool catalog fetched")

	conversation := []llm.Message{llm.UserMessage(task.Instructions)}
	guard := newRepeatGuard(l.config.RepeatLimit)
	var usage llm.Usage

	iteration := 0
	for iteration < maxIterations {
		iteration++
		l.logger.Info().
			Int("iteration", iteration).
			Int("max_iterations", maxIterations).
			Msg("loop iteration")

		resp, err := l.client.Complete(ctx, llm.Request{
			Model:     l.config.Model,
			MaxTokens: l.config.MaxTokens,
			Messages:  conversation,
			Tools:     tools,
		})
		if err != nil {
			return nil, fmt.Errorf("model call: %w", err)
		}
		usage = usage.Add(resp.Usage)

		// Appended unconditionally, terminal paths included, so context
		// stays consistent whenever the loop continues.
		conversation = append(conversation, resp.Message)

		switch resp.Stop.Reason {
		case llm.StopEndOfTurn:
			finalText := resp.Text()
			trimmed := strings.TrimSpace(finalText)
			if reason, failed := strings.CutPrefix(trimmed, FailureMarker); failed {
				reason = strings.TrimSpace(reason)
				l.logger.Error().
					Str("reason", reason).
					Int("iterations", iteration).
					Msg("model declared failure")
				return &Outcome{Reason: reason, Iterations: iteration, Usage: usage}, nil
			}
			if l.config.Validator != nil {
				if verr := l.config.Validator(trimmed); verr != nil {
					l.logger.Warn().Err(verr).Msg("final response rejected, asking the model to fix it")
					l.emitter.Emit(EventValidationRejected, map[string]any{"error": verr.Error()})
					conversation = append(conversation, llm.UserMessage(
						fmt.Sprintf("ERROR: %s\n\nPlease fix your response and try again.", verr)))
					continue
				}
			}
			l.logger.Info().Int("iterations", iteration).Msg("task completed")
			return &Outcome{Success: true, FinalText: finalText, Iterations: iteration, Usage: usage}, nil

		case llm.StopToolRequested:
			use := resp.Message.FirstToolUse()
			if use == nil {
				// Protocol anomaly: a tool was requested but no tool_use
				// block arrived. Waste the iteration; the model may still
				// converge.
				l.logger.Warn().Msg("tool requested without a tool_use block")
				continue
			}

			// Single action per cycle: later tool_use blocks in the same
			// turn are ignored.
			result := l.executeAction(ctx, use)

			blocks := []llm.Block{result}
			if guard.Observe(use.Name, use.Input) {
				l.logger.Warn().Str("tool", use.Name).Msg("repeated action detected")
				l.emitter.Emit(EventRepeatedAction, map[string]any{"tool": use.Name})
				// The warning rides in the same user turn as the tool
				// result; turns must keep strict user/assistant alternation.
				blocks = append(blocks, llm.TextBlock(repeatWarning(use.Name, l.config.RepeatLimit)))
			}
			conversation = append(conversation, llm.Message{Role: llm.RoleUser, Content: blocks})

			l.checkDiagnostics(ctx, use.Name)

		default:
			reason := "unexpected stop reason"
			if resp.Stop.Raw != "" {
				reason = fmt.Sprintf("unexpected stop reason: %s", resp.Stop.Raw)
			}
			l.logger.Error().
				Str("stop_reason", resp.Stop.Raw).
				Int("iterations", iteration).
				Msg("aborting on unrecognized stop reason")
			return &Outcome{Reason: reason, Iterations: iteration, Usage: usage}, nil
		}
	}

	l.logger.Error().Int("max_iterations", maxIterations).Msg("iteration budget exhausted")
	return &Outcome{Reason: "max iterations exceeded", Iterations: maxIterations, Usage: usage}, nil
}

// executeAction runs one tool call and converts whatever happens into a
// tool_result block. A single tool failure never escapes the loop; it is
// fed back as an error observation for the model to react to.
func (l *Loop) executeAction(ctx context.Context, use *llm.ToolUseData) llm.Block {
	l.emitter.Emit(EventActionStart, map[string]any{"tool": use.Name, "tool_use_id": use.ID})
	l.logger.Info().Str("tool", use.Name).Msg("executing tool")

	args, err := ParseToolArguments(use.Input)
	if err != nil {
		l.logger.Error().Err(err).Str("tool", use.Name).Msg("malformed tool arguments")
		l.emitter.Emit(EventActionEnd, map[string]any{"tool": use.Name, "is_error": true})
		return llm.ToolResultBlock(use.ID, fmt.Sprintf("Error: invalid tool arguments: %v", err), true)
	}

	content, isError, err := l.session.CallTool(ctx, use.Name, args)
	if err != nil {
		l.logger.Error().Err(err).Str("tool", use.Name).Msg("tool execution failed")
		l.emitter.Emit(EventActionEnd, map[string]any{"tool": use.Name, "is_error": true})
		return llm.ToolResultBlock(use.ID, "Error: "+err.Error(), true)
	}

	content = TruncateToolOutput(content, use.Name, l.config.ToolOutputLimits)
	l.logger.Info().Str("tool", use.Name).Bool("is_error", isError).Msg("tool executed")
	l.emitter.Emit(EventActionEnd, map[string]any{"tool": use.Name, "is_error": isError})
	return llm.ToolResultBlock(use.ID, content, isError)
}

// checkDiagnostics queries the diagnostic tool for newly surfaced browser
// errors after an executed action. Strictly best-effort: failures here are
// swallowed and never alter the loop's outcome.
func (l *Loop) checkDiagnostics(ctx context.Context, afterTool string) {
	if l.config.DiagnosticTool == "" {
		return
	}
	content, _, err := l.session.CallTool(ctx, l.config.DiagnosticTool, map[string]any{"onlyErrors": true})
	if err != nil {
		return
	}
	if text := strings.TrimSpace(content); text != "" {
		l.logger.Error().
			Str("after_tool", afterTool).
			Str("console", text).
			Msg("browser console errors")
		l.emitter.Emit(EventDiagnostic, map[string]any{"after_tool": afterTool})
	}
}
