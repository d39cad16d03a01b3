package recovery

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// CorrectedAction is the structured operation+arguments payload of a
// TOOL_CALL section.
type CorrectedAction struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// ParsedResponse is the result of parsing a diagnostic model response.
// Exactly one of Action / ActionErr is set when a TOOL_CALL marker was
// present; both are unset for a pure diagnosis.
type ParsedResponse struct {
	Diagnosis  string
	Correction string
	Action     *CorrectedAction
	// ActionErr is non-nil when a TOOL_CALL section was present but its
	// payload could not be decoded. The engine treats this as "no correction
	// available" and a failed round-trip.
	ActionErr error
}

var sectionMarkers = []string{"DIAGNOSIS:", "CORRECTION:", "TOOL_CALL:"}

// ParseDiagnostic extracts the tagged sections from a free-text model
// response. Sections may appear in any order or be omitted; a section runs
// until the next marker or end of text.
func ParseDiagnostic(text string) ParsedResponse {
	var out ParsedResponse
	sections := splitSections(text)
	out.Diagnosis = strings.TrimSpace(sections["DIAGNOSIS:"])
	out.Correction = strings.TrimSpace(sections["CORRECTION:"])

	raw, ok := sections["TOOL_CALL:"]
	if !ok {
		return out
	}
	action, err := decodeToolCall(raw)
	if err != nil {
		out.ActionErr = err
		return out
	}
	out.Action = action
	return out
}

func splitSections(text string) map[string]string {
	type mark struct {
		name  string
		start int // content start, past the marker
		pos   int // marker position
	}
	var marks []mark
	for _, name := range sectionMarkers {
		idx := strings.Index(text, name)
		if idx >= 0 {
			marks = append(marks, mark{name: name, start: idx + len(name), pos: idx})
		}
	}
	out := map[string]string{}
	for _, m := range marks {
		end := len(text)
		for _, other := range marks {
			if other.pos > m.pos && other.pos < end {
				end = other.pos
			}
		}
		out[m.name] = text[m.start:end]
	}
	return out
}

// decodeToolCall decodes the TOOL_CALL payload. Strict JSON is tried first;
// YAML flow mapping second, which tolerates the relaxed unquoted form models
// frequently emit ({tool: http_get, args: {timeout: 60}}).
func decodeToolCall(raw string) (*CorrectedAction, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("tool call payload is empty")
	}

	var action CorrectedAction
	if err := json.Unmarshal([]byte(raw), &action); err != nil {
		if yerr := yaml.Unmarshal([]byte(raw), &action); yerr != nil {
			return nil, fmt.Errorf("tool call payload is not valid JSON or YAML: %w", err)
		}
	}
	if strings.TrimSpace(action.Tool) == "" {
		return nil, fmt.Errorf("tool call payload has no tool name")
	}
	if action.Args == nil {
		action.Args = map[string]any{}
	}
	return &action, nil
}
