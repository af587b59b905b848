package llm

import (
	"encoding/json"
	"strings"
)

// Role identifies who produced a message in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// BlockKind is the discriminator tag for Block.
type BlockKind string

const (
	BlockText       BlockKind = "text"
	BlockThinking   BlockKind = "thinking"
	BlockToolUse    BlockKind = "tool_use"
	BlockToolResult BlockKind = "tool_result"
)

// ToolUseData represents a model-initiated tool invocation.
type ToolUseData struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ThinkingData represents model-internal reasoning. It is carried through
// the conversation and logged, but never executed.
type ThinkingData struct {
	Text      string `json:"text"`
	Signature string `json:"signature,omitempty"`
}

// ToolResultData holds the observation produced by executing a tool,
// correlated back to the ToolUseData.ID that requested it.
type ToolResultData struct {
	ToolUseID string `json:"tool_use_id"`
	Content   string `json:"content"`
	IsError   bool   `json:"is_error"`
}

// Block is a tagged union representing one part of a message. Block order
// within a message is significant: the first tool_use block is the one the
// loop executes.
type Block struct {
	Kind       BlockKind       `json:"kind"`
	Text       string          `json:"text,omitempty"`
	Thinking   *ThinkingData   `json:"thinking,omitempty"`
	ToolUse    *ToolUseData    `json:"tool_use,omitempty"`
	ToolResult *ToolResultData `json:"tool_result,omitempty"`
}

// TextBlock creates a text Block.
func TextBlock(text string) Block {
	return Block{Kind: BlockText, Text: text}
}

// ThinkingBlock creates a thinking Block.
func ThinkingBlock(text, signature string) Block {
	return Block{Kind: BlockThinking, Thinking: &ThinkingData{Text: text, Signature: signature}}
}

// ToolUseBlock creates a tool use Block.
func ToolUseBlock(id, name string, input json.RawMessage) Block {
	return Block{Kind: BlockToolUse, ToolUse: &ToolUseData{ID: id, Name: name, Input: input}}
}

// ToolResultBlock creates a tool result Block.
func ToolResultBlock(toolUseID, content string, isError bool) Block {
	return Block{
		Kind:       BlockToolResult,
		ToolResult: &ToolResultData{ToolUseID: toolUseID, Content: content, IsError: isError},
	}
}

// Message is one turn of a conversation: an ordered sequence of blocks
// produced by a single role.
type Message struct {
	Role    Role    `json:"role"`
	Content []Block `json:"content"`
}

// Text returns all text blocks joined with newlines, in block order.
func (m Message) Text() string {
	var parts []string
	for _, b := range m.Content {
		if b.Kind == BlockText {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// FirstToolUse returns the first tool_use block in content order, or nil if
// the message contains none.
func (m Message) FirstToolUse() *ToolUseData {
	for _, b := range m.Content {
		if b.Kind == BlockToolUse && b.ToolUse != nil {
			return b.ToolUse
		}
	}
	return nil
}

// ToolUses returns every tool_use block in content order.
func (m Message) ToolUses() []ToolUseData {
	var uses []ToolUseData
	for _, b := range m.Content {
		if b.Kind == BlockToolUse && b.ToolUse != nil {
			uses = append(uses, *b.ToolUse)
		}
	}
	return uses
}

// UserMessage creates a user Message with text content.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: []Block{TextBlock(text)}}
}

// AssistantMessage creates an assistant Message from the given blocks.
func AssistantMessage(blocks ...Block) Message {
	return Message{Role: RoleAssistant, Content: blocks}
}

// ToolResultMessage creates a user Message carrying one tool result.
func ToolResultMessage(toolUseID, content string, isError bool) Message {
	return Message{Role: RoleUser, Content: []Block{ToolResultBlock(toolUseID, content, isError)}}
}

// ToolSchema describes a tool the model may request, in the schema format
// the decision model expects.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Properties  map[string]any `json:"properties"`
	Required    []string       `json:"required,omitempty"`
}

// StopReason classifies why the model stopped producing a turn.
type StopReason string

const (
	StopEndOfTurn     StopReason = "end_of_turn"
	StopToolRequested StopReason = "tool_requested"
	StopOther         StopReason = "other"
)

// StopSignal carries the classified stop reason plus the provider's raw
// value for diagnostics when the reason is StopOther.
type StopSignal struct {
	Reason StopReason `json:"reason"`
	Raw    string     `json:"raw,omitempty"`
}

// Usage tracks token consumption for one model call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add returns a new Usage that is the sum of u and other.
func (u Usage) Add(other Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
	}
}

// Request is the input to a single decision-model call: the full
// conversation so far plus the tool catalog.
type Request struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system,omitempty"`
	Messages  []Message    `json:"messages"`
	Tools     []ToolSchema `json:"tools,omitempty"`
}

// Response is one assistant turn plus the stop signal that ended it.
type Response struct {
	ID      string     `json:"id"`
	Model   string     `json:"model"`
	Message Message    `json:"message"`
	Stop    StopSignal `json:"stop"`
	Usage   Usage      `json:"usage"`
}

// Text returns the text blocks of the response message joined with newlines.
func (r *Response) Text() string {
	return r.Message.Text()
}
