package providers

import (
	"context"
	"encoding/json"
	"testing"

	"litrag/internal/config"
)

func managerConfig(llm, embed string) config.Config {
	cfg := config.Load()
	cfg.LLMProviders = llm
	cfg.EmbedProviders = embed
	cfg.EmbedDim = 64
	return cfg
}

func TestNewManagerDefaultsToMock(t *testing.T) {
	m, err := NewManager(managerConfig("", ""))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if m.EmbedCount() != 1 || m.LLMCount() != 1 {
		t.Fatalf("expected single mock provider, got embed=%d llm=%d", m.EmbedCount(), m.LLMCount())
	}
	_, ref := m.EmbedProviderByIndex(0)
	if ref.Name != "mock" {
		t.Fatalf("expected mock fallback, got %q", ref.Name)
	}
}

func TestNewManagerRejectsUnknownProvider(t *testing.T) {
	if _, err := NewManager(managerConfig("nosuch", "mock")); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestPreferredOrderPutsMockLast(t *testing.T) {
	m, err := NewManager(managerConfig("mock|groq:a", "mock|openai:b"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	embedOrder := m.PreferredEmbedOrder()
	if len(embedOrder) != 2 || embedOrder[0] != 1 || embedOrder[1] != 0 {
		t.Fatalf("unexpected embed order: %v", embedOrder)
	}
	llmOrder := m.PreferredLLMOrder()
	if len(llmOrder) != 2 || llmOrder[0] != 1 || llmOrder[1] != 0 {
		t.Fatalf("unexpected llm order: %v", llmOrder)
	}
}

func TestMockEmbedDeterministic(t *testing.T) {
	p := NewMockProvider(64)
	a, _, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"transformer attention"}, Dimension: 64})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	b, _, err := p.Embed(context.Background(), EmbedRequest{Inputs: []string{"transformer attention"}, Dimension: 64})
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(a) != 1 || len(a[0]) != 64 {
		t.Fatalf("unexpected shape: %d vectors", len(a))
	}
	for i := range a[0] {
		if a[0][i] != b[0][i] {
			t.Fatalf("vector not deterministic at %d", i)
		}
	}
}

func TestMockGenerateReturnsParseableJSON(t *testing.T) {
	p := NewMockProvider(64)
	for _, op := range []string{"ask_synthesize", "insights_synthesize", "gaps_synthesize"} {
		resp, _, err := p.Generate(context.Background(), GenerateRequest{Operation: op, Prompt: "q"})
		if err != nil {
			t.Fatalf("generate %s: %v", op, err)
		}
		var payload map[string]any
		if err := json.Unmarshal([]byte(resp.Text), &payload); err != nil {
			t.Fatalf("mock %s output is not valid JSON: %v", op, err)
		}
		if len(payload) == 0 {
			t.Fatalf("mock %s output is empty", op)
		}
	}
}
