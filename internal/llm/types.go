package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func System(content string) Message { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message   { return Message{Role: RoleUser, Content: content} }

// Request is the provider-independent completion request.
type Request struct {
	Provider  string
	Model     string
	Messages  []Message
	MaxTokens int
}

func (r Request) Validate() error {
	if len(r.Messages) == 0 {
		return &ConfigurationError{Message: "request has no messages"}
	}
	for i, m := range r.Messages {
		if strings.TrimSpace(string(m.Role)) == "" {
			return &ConfigurationError{Message: fmt.Sprintf("message %d has no role", i)}
		}
	}
	return nil
}

type Response struct {
	Message Message
	Model   string
}

// Text returns the assistant text of the response.
func (r Response) Text() string { return r.Message.Content }

// ToolDefinition describes a tool the agent may invoke. Parameters is a JSON
// Schema document for the tool's arguments.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

var toolNameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

func ValidateToolName(name string) error {
	if !toolNameRe.MatchString(name) {
		return fmt.Errorf("invalid tool name: %q", name)
	}
	return nil
}
