// Package openaicompat implements a provider adapter for OpenAI-compatible
// chat-completion endpoints (OpenAI, local gateways, most hosted proxies).
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/JuanCS-Dev/vertice-code-sub006/internal/llm"
)

type Config struct {
	// ProviderName defaults to "openai".
	ProviderName string
	BaseURL      string
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string
	Model     string
	HTTP      *http.Client
}

type Adapter struct {
	cfg Config
}

func New(cfg Config) (*Adapter, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, &llm.ConfigurationError{Message: "openaicompat: base URL is required"}
	}
	if strings.TrimSpace(cfg.ProviderName) == "" {
		cfg.ProviderName = "openai"
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 120 * time.Second}
	}
	return &Adapter{cfg: cfg}, nil
}

func (a *Adapter) Name() string { return a.cfg.ProviderName }

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model     string        `json:"model"`
	Messages  []wireMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type wireResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Adapter) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	model := req.Model
	if model == "" {
		model = a.cfg.Model
	}
	body := wireRequest{Model: model, MaxTokens: req.MaxTokens}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, wireMessage{Role: string(m.Role), Content: m.Content})
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return llm.Response{}, fmt.Errorf("openaicompat: encode request: %w", err)
	}

	url := strings.TrimRight(a.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return llm.Response{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.cfg.APIKeyEnv != "" {
		if key := strings.TrimSpace(os.Getenv(a.cfg.APIKeyEnv)); key != "" {
			httpReq.Header.Set("Authorization", "Bearer "+key)
		}
	}

	resp, err := a.cfg.HTTP.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return llm.Response{}, llm.NewRequestTimeoutError(a.Name(), err.Error())
		}
		return llm.Response{}, fmt.Errorf("openaicompat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return llm.Response{}, fmt.Errorf("openaicompat: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(raw)
		ra := llm.ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return llm.Response{}, llm.ErrorFromHTTPStatus(a.Name(), resp.StatusCode, msg, ra)
	}

	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return llm.Response{}, fmt.Errorf("openaicompat: decode response: %w", err)
	}
	if len(wire.Choices) == 0 {
		return llm.Response{}, fmt.Errorf("openaicompat: response has no choices")
	}
	return llm.Response{
		Model: wire.Model,
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: wire.Choices[0].Message.Content,
		},
	}, nil
}

func errorMessage(raw []byte) string {
	var wire wireResponse
	if err := json.Unmarshal(raw, &wire); err == nil && wire.Error != nil && wire.Error.Message != "" {
		return wire.Error.Message
	}
	s := strings.TrimSpace(string(raw))
	if len(s) > 512 {
		s = s[:512]
	}
	return s
}
