// Package toolset holds the tool surface the recovery engine validates
// corrected actions against. A correction that names an unknown tool or
// violates its argument schema is worthless to the executor and is downgraded
// before it ever leaves the engine.
package toolset

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/JuanCS-Dev/vertice-code-sub006/internal/llm"
)

type registered struct {
	def    llm.ToolDefinition
	schema *jsonschema.Schema
}

type Registry struct {
	mu    sync.RWMutex
	tools map[string]registered
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]registered{}}
}

func (r *Registry) Register(def llm.ToolDefinition) error {
	if err := llm.ValidateToolName(def.Name); err != nil {
		return err
	}
	var schema *jsonschema.Schema
	if len(def.Parameters) > 0 {
		s, err := compileSchema(def.Parameters)
		if err != nil {
			return fmt.Errorf("tool %s schema: %w", def.Name, err)
		}
		schema = s
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tools == nil {
		r.tools = map[string]registered{}
	}
	r.tools[def.Name] = registered{def: def, schema: schema}
	return nil
}

// Definitions returns the registered tool definitions.
func (r *Registry) Definitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]llm.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.def)
	}
	return out
}

// Validate checks a proposed tool invocation: the tool must be registered and
// args must satisfy its parameter schema. Tools registered without a schema
// accept any arguments.
func (r *Registry) Validate(name string, args map[string]any) error {
	r.mu.RLock()
	t, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown tool: %s", name)
	}
	if t.schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := t.schema.Validate(normalize(args)); err != nil {
		return fmt.Errorf("arguments for %s: %w", name, err)
	}
	return nil
}

func compileSchema(params []byte) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("tool.schema.json", bytes.NewReader(params)); err != nil {
		return nil, err
	}
	return c.Compile("tool.schema.json")
}

// normalize converts values the relaxed tool-call decoder may produce (ints,
// nested maps) into the shapes the schema validator expects for JSON data.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}
