// Package llm provides a small client for conversational decision models,
// currently backed by the Anthropic Messages API.
//
// # Conversation Model
//
// A conversation is a slice of Message values, each an ordered sequence of
// tagged Blocks (text, thinking, tool_use, tool_result). Responses carry a
// StopSignal classifying why the model stopped:
//
//   - StopEndOfTurn: the model finished and produced its final text
//   - StopToolRequested: the model wants a tool executed before continuing
//   - StopOther: anything else, with the provider's raw reason attached
//
// # Quick Start
//
//	provider := llm.NewAnthropicProvider(os.Getenv("ANTHROPIC_API_KEY"))
//	client := llm.NewClient(provider)
//
//	resp, err := client.Complete(ctx, llm.Request{
//	    Model:    llm.DefaultModel,
//	    Messages: []llm.Message{llm.UserMessage("Hello")},
//	})
//	fmt.Println(resp.Text())
//
// # Retries
//
// Client retries transient failures (rate limits, 5xx, timeouts, network
// errors) with exponential backoff. A provider-supplied Retry-After on a
// rate limit overrides the computed delay. Non-retryable failures such as
// authentication and validation errors return immediately as typed errors
// from this package.
package llm
