package agentloop

import (
	"encoding/json"
	"testing"

	"github.com/martinemde/magpie/toolserver"
)

func TestToolSchemas(t *testing.T) {
	descriptors := []toolserver.ToolDescriptor{
		{
			Name:        "browser_click",
			Description: "Click an element",
			InputSchema: toolserver.Schema{
				Type:       "object",
				Properties: map[string]any{"ref": map[string]any{"type": "string"}},
				Required:   []string{"ref"},
			},
		},
		{Name: "browser_snapshot", Description: "Capture the page"},
	}

	schemas := ToolSchemas(descriptors)
	if len(schemas) != 2 {
		t.Fatalf("expected 2 schemas, got %d", len(schemas))
	}
	if schemas[0].Name != "browser_click" {
		t.Errorf("expected name %q, got %q", "browser_click", schemas[0].Name)
	}
	if len(schemas[0].Required) != 1 || schemas[0].Required[0] != "ref" {
		t.Errorf("expected required [ref], got %v", schemas[0].Required)
	}
	if _, ok := schemas[0].Properties["ref"]; !ok {
		t.Error("expected ref property carried over")
	}
	if schemas[1].Properties != nil {
		t.Errorf("expected empty properties, got %v", schemas[1].Properties)
	}
}

func TestParseToolArguments(t *testing.T) {
	t.Run("object", func(t *testing.T) {
		args, err := ParseToolArguments(json.RawMessage(`{"ref":"e5","doubleClick":true}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if args["ref"] != "e5" {
			t.Errorf("expected ref %q, got %v", "e5", args["ref"])
		}
		if args["doubleClick"] != true {
			t.Errorf("expected doubleClick true, got %v", args["doubleClick"])
		}
	})

	t.Run("empty input", func(t *testing.T) {
		args, err := ParseToolArguments(nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if args == nil || len(args) != 0 {
			t.Errorf("expected empty map, got %v", args)
		}
	})

	t.Run("null input", func(t *testing.T) {
		args, err := ParseToolArguments(json.RawMessage(`null`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if args == nil || len(args) != 0 {
			t.Errorf("expected empty map, got %v", args)
		}
	})

	t.Run("malformed input", func(t *testing.T) {
		if _, err := ParseToolArguments(json.RawMessage(`{broken`)); err == nil {
			t.Error("expected error for malformed input")
		}
	})
}
