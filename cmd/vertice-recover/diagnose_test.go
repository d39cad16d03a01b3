package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JuanCS-Dev/vertice-code-sub006/internal/llm"
	"github.com/JuanCS-Dev/vertice-code-sub006/internal/recovery"
)

func stubCompletionServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"model": "test-model",
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode: %v", err)
		}
	}))
}

func writeDiagnoseConfig(t *testing.T, baseURL string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recovery.yaml")
	data := fmt.Sprintf("version: 1\nllm:\n  provider: openai\n  model: test-model\n  base_url: %s\n", baseURL)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDiagnoseWiring_ConfigToCorrectedAction(t *testing.T) {
	srv := stubCompletionServer(t, "DIAGNOSIS: timeout too low.\nCORRECTION: raise it\nTOOL_CALL: {\"tool\": \"http_get\", \"args\": {\"timeout\": 60}}")
	defer srv.Close()

	cfg, err := recovery.LoadConfigFile(writeDiagnoseConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	mc, err := newModelClient(cfg)
	if err != nil {
		t.Fatalf("newModelClient: %v", err)
	}
	engine, err := recovery.NewEngine(mc, cfg.EngineConfig())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	res := engine.Attempt(context.Background(), recovery.RecoveryContext{
		Attempt:     1,
		MaxAttempts: 3,
		RawError:    "Connection timeout after 30s",
		Operation:   "http_get",
		UserIntent:  "fetch the release notes",
	})
	if res.Outcome != recovery.OutcomeCorrected {
		t.Fatalf("outcome: got %s (reason=%q)", res.Outcome, res.EscalationReason)
	}
	if res.Action == nil || res.Action.Tool != "http_get" {
		t.Fatalf("action: %+v", res.Action)
	}
	if res.Category != recovery.CategoryNetwork {
		t.Fatalf("category: got %s", res.Category)
	}
}

func TestModelClient_RetriesTransientStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		resp := map[string]any{
			"model": "test-model",
			"choices": []any{
				map[string]any{"message": map[string]any{"role": "assistant", "content": "ok"}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	cfg, err := recovery.LoadConfigFile(writeDiagnoseConfig(t, srv.URL))
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	mc, err := newModelClient(cfg)
	if err != nil {
		t.Fatalf("newModelClient: %v", err)
	}
	mc.policy = llm.RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}
	mc.sleep = func(ctx context.Context, d time.Duration) error { return nil }

	text, err := mc.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "ok" || calls != 2 {
		t.Fatalf("text=%q calls=%d", text, calls)
	}
}
