// Package agentloop drives the decide/act/observe cycle that turns a
// natural-language task into a bounded sequence of tool invocations.
//
// Each iteration submits the conversation and tool catalog to the decision
// model, executes at most one requested tool through the capability
// provider session, and feeds the observation back. The loop ends when the
// model finishes its turn, declares failure through the failure marker,
// returns a stop reason the loop does not recognize, or exhausts the
// iteration budget.
//
// # Architecture
//
//   - Loop: the state machine owning one task's conversation.
//   - Task: the instruction text plus its iteration ceiling.
//   - Outcome: the terminal result, success or failure, with the iteration
//     count and accumulated token usage.
//   - EventEmitter: typed event stream for host integration (metrics,
//     progress reporting).
//
// # Quick Start
//
//	provider := llm.NewAnthropicProvider(os.Getenv("ANTHROPIC_API_KEY"))
//	client := llm.NewClient(provider)
//
//	session, err := toolserver.PlaywrightServer{ProfileDir: dir}.Connect(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	loop := agentloop.New(client, session, agentloop.DefaultConfig())
//	defer loop.Close()
//
//	outcome, err := loop.Run(ctx, agentloop.Task{Instructions: task})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(outcome.Success, outcome.Iterations)
package agentloop
