package agentloop

import "fmt"

// TruncationMode specifies how oversized tool output is cut down.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// DefaultOutputLimit is the character ceiling for tools without a specific
// limit.
const DefaultOutputLimit = 50000

// Default character limits per tool. Accessibility snapshots dominate
// context consumption, so they get the largest budget.
var defaultToolCharLimits = map[string]int{
	"browser_snapshot":         50000,
	"browser_evaluate":         20000,
	"browser_console_messages": 20000,
	"browser_network_requests": 20000,
}

// Default truncation modes per tool. Console and network listings are most
// useful at their tail, where the newest entries are.
var defaultTruncationModes = map[string]TruncationMode{
	"browser_snapshot":         TruncateHeadTail,
	"browser_evaluate":         TruncateHeadTail,
	"browser_console_messages": TruncateTail,
	"browser_network_requests": TruncateTail,
}

// TruncateOutput applies character-based truncation to tool output.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	if maxChars <= 0 || len(output) <= maxChars {
		return output
	}

	removed := len(output) - maxChars
	switch mode {
	case TruncateTail:
		return fmt.Sprintf("[WARNING: Tool output was truncated. First %d characters were removed. "+
			"Re-run the tool with more targeted parameters if you need them.]\n\n", removed) +
			output[len(output)-maxChars:]
	default:
		half := maxChars / 2
		return output[:half] +
			fmt.Sprintf("\n\n[WARNING: Tool output was truncated. %d characters were removed from the middle. "+
				"Re-run the tool with more targeted parameters if you need them.]\n\n", removed) +
			output[len(output)-half:]
	}
}

// TruncateToolOutput resolves the limit and mode for toolName and applies
// them. Caller overrides take precedence over the per-tool defaults.
func TruncateToolOutput(output, toolName string, overrides map[string]int) string {
	maxChars, ok := overrides[toolName]
	if !ok {
		maxChars, ok = defaultToolCharLimits[toolName]
		if !ok {
			maxChars = DefaultOutputLimit
		}
	}

	mode, ok := defaultTruncationModes[toolName]
	if !ok {
		mode = TruncateHeadTail
	}

	return TruncateOutput(output, maxChars, mode)
}
