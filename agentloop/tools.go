package agentloop

import (
	"encoding/json"

	"github.com/martinemde/magpie/llm"
	"github.com/martinemde/magpie/toolserver"
)

// ToolSchemas converts the capability provider's tool descriptors into the
// schema format the decision model expects. The catalog is fetched once per
// task and never mutated afterwards.
func ToolSchemas(descriptors []toolserver.ToolDescriptor) []llm.ToolSchema {
	schemas := make([]llm.ToolSchema, 0, len(descriptors))
	for _, d := range descriptors {
		schemas = append(schemas, llm.ToolSchema{
			Name:        d.Name,
			Description: d.Description,
			Properties:  d.InputSchema.Properties,
			Required:    d.InputSchema.Required,
		})
	}
	return schemas
}

// ParseToolArguments decodes a tool_use input payload into the argument map
// the capability provider expects. Empty or null input yields an empty map.
func ParseToolArguments(input json.RawMessage) (map[string]any, error) {
	if len(input) == 0 {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(input, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
