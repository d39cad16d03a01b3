package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/JuanCS-Dev/vertice-code-sub006/internal/llm"
	"github.com/JuanCS-Dev/vertice-code-sub006/internal/llm/providers/openaicompat"
	"github.com/JuanCS-Dev/vertice-code-sub006/internal/recovery"
)

// modelClient adapts the unified llm client to the recovery engine. Each
// diagnostic round-trip is shielded by transport-level retries of retryable
// statuses (429, 5xx, Retry-After honored) before the engine ever sees a
// failure.
type modelClient struct {
	client *llm.Client
	model  string
	policy llm.RetryPolicy
	sleep  llm.SleepFunc
}

func (m *modelClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := llm.Retry(ctx, m.policy, m.sleep, nil, func() (llm.Response, error) {
		return m.client.Complete(ctx, llm.Request{
			Model:    m.model,
			Messages: []llm.Message{llm.User(prompt)},
		})
	})
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

// newModelClient builds the provider stack from the config file's llm section.
func newModelClient(cfg recovery.ConfigFile) (*modelClient, error) {
	adapter, err := openaicompat.New(openaicompat.Config{
		ProviderName: cfg.LLM.Provider,
		BaseURL:      cfg.LLM.BaseURL,
		APIKeyEnv:    cfg.LLM.APIKeyEnv,
		Model:        cfg.LLM.Model,
	})
	if err != nil {
		return nil, err
	}
	client := llm.NewClient()
	client.Register(adapter)
	return &modelClient{
		client: client,
		model:  cfg.LLM.Model,
		policy: llm.DefaultRetryPolicy(),
	}, nil
}

func diagnose(args []string) {
	var configPath, operation, intent string
	var rest []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--config requires a value")
				os.Exit(1)
			}
			configPath = args[i]
		case "--operation":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--operation requires a value")
				os.Exit(1)
			}
			operation = args[i]
		case "--intent":
			i++
			if i >= len(args) {
				fmt.Fprintln(os.Stderr, "--intent requires a value")
				os.Exit(1)
			}
			intent = args[i]
		default:
			rest = append(rest, args[i])
		}
	}
	if configPath == "" || operation == "" || len(rest) == 0 {
		usage()
		os.Exit(1)
	}

	cfg, err := recovery.LoadConfigFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diagnose: %v\n", err)
		os.Exit(1)
	}
	mc, err := newModelClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "diagnose: %v\n", err)
		os.Exit(1)
	}
	engine, err := recovery.NewEngine(mc, cfg.EngineConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "diagnose: %v\n", err)
		os.Exit(1)
	}

	res := engine.Attempt(context.Background(), recovery.RecoveryContext{
		Attempt:     1,
		MaxAttempts: 3,
		RawError:    strings.Join(rest, " "),
		Operation:   operation,
		UserIntent:  intent,
	})

	fmt.Printf("outcome=%s category=%s id=%s\n", res.Outcome, res.Category, res.AttemptID)
	if res.Diagnosis != "" {
		fmt.Println("diagnosis:", res.Diagnosis)
	}
	if res.Correction != "" {
		fmt.Println("correction:", res.Correction)
	}
	if res.Action != nil {
		b, _ := json.Marshal(res.Action)
		fmt.Println("corrected:", string(b))
	}
	if res.EscalationReason != "" {
		fmt.Println("escalation:", res.EscalationReason)
	}
	if res.Outcome != recovery.OutcomeCorrected {
		os.Exit(2)
	}
}
