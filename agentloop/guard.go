package agentloop

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// actionSignature computes a deterministic signature for one action
// (name plus a hash of its arguments).
func actionSignature(name string, input json.RawMessage) string {
	h := sha256.Sum256(input)
	return fmt.Sprintf("%s:%x", name, h[:8])
}

// repeatGuard watches for the model re-issuing the same action with the
// same arguments. Login pages tend to lock accounts when an agent hammers
// a failing submit, so the loop warns the model before that happens.
type repeatGuard struct {
	limit int
	last  string
	count int
}

func newRepeatGuard(limit int) *repeatGuard {
	return &repeatGuard{limit: limit}
}

// Observe records one executed action and reports whether the repetition
// warning should fire. The counter resets when the action changes, and
// after each warning so the model is not nagged on every iteration.
func (g *repeatGuard) Observe(name string, input json.RawMessage) bool {
	if g.limit <= 0 {
		return false
	}
	sig := actionSignature(name, input)
	if sig == g.last {
		g.count++
	} else {
		g.last = sig
		g.count = 1
	}
	if g.count >= g.limit {
		g.count = 0
		return true
	}
	return false
}

// repeatWarning is appended as an extra text block inside the tool-result
// turn when the guard fires.
func repeatWarning(name string, limit int) string {
	return fmt.Sprintf(
		"You have invoked %s with identical arguments %d times in a row and the result is not changing. "+
			"Take a fresh snapshot, reassess the page state, and try a different approach instead of repeating the same action.",
		name, limit)
}
