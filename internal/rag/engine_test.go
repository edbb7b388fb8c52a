package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"litrag/internal/config"
	"litrag/internal/models"
	"litrag/internal/providers"
	"litrag/internal/util"
	"litrag/internal/vector"
)

type stubProviders struct {
	embed providers.EmbeddingProvider
	llm   providers.LLMProvider
}

func (s stubProviders) PreferredEmbedOrder() []int { return []int{0} }
func (s stubProviders) EmbedProviderByIndex(int) (providers.EmbeddingProvider, providers.ProviderRef) {
	return s.embed, providers.ProviderRef{Name: "stub"}
}
func (s stubProviders) PreferredLLMOrder() []int { return []int{0} }
func (s stubProviders) LLMProviderByIndex(int) (providers.LLMProvider, providers.ProviderRef) {
	return s.llm, providers.ProviderRef{Name: "stub"}
}

type failingLLM struct{}

func (failingLLM) Generate(context.Context, providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	return providers.GenerateResponse{}, providers.ProviderInfo{Name: "failing"}, fmt.Errorf("completion backend down")
}

type failingEmbed struct{}

func (failingEmbed) Embed(context.Context, providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	return nil, providers.ProviderInfo{Name: "failing"}, fmt.Errorf("rate limit exceeded")
}

func engineConfig() config.Config {
	cfg := config.Load()
	cfg.EmbedDim = 16
	return cfg
}

func seedCorpus(t *testing.T, idx *vector.MemoryIndex, namespace string) {
	t.Helper()
	embed := providers.NewMockProvider(16)
	papers := []struct {
		id, title, text string
		year, citations int
		profile         models.PaperProfile
	}{
		{
			id: "p1", title: "Caching Strategies for Retrieval Systems", year: 2020, citations: 800,
			text: "We evaluate caching strategies for retrieval systems across workloads.",
			profile: models.PaperProfile{
				Methodology:     "randomized controlled trial",
				LimitationsText: "Results are limited by a small sample of workloads.",
				FutureWork:      "Future work should cover adversarial workloads.",
			},
		},
		{
			id: "p2", title: "Vector Indexes at Scale", year: 2022, citations: 120,
			text: "Vector indexes at scale trade recall against latency in retrieval systems.",
			profile: models.PaperProfile{
				Methodology:     "randomized controlled trial",
				LimitationsText: "Evaluation uses a small sample of corpora.",
			},
		},
		{
			id: "p3", title: "Survey of Hybrid Retrieval", year: 2021, citations: 40,
			text: "A survey of hybrid retrieval methods combining lexical and semantic signals.",
			profile: models.PaperProfile{Methodology: "survey"},
		},
	}
	for _, p := range papers {
		vectors, _, err := embed.Embed(context.Background(), providers.EmbedRequest{
			Operation: "test_seed", Inputs: []string{p.text}, Dimension: 16,
		})
		require.NoError(t, err)
		rec := vector.Record{
			ID:     p.id + "::chunk::0",
			Vector: vectors[0],
			Meta: models.ChunkMeta{
				PaperID:       p.id,
				Title:         p.title,
				Authors:       "Jordan Example",
				Year:          p.year,
				CitationCount: p.citations,
				ChunkText:     p.text,
				PaperProfile:  p.profile,
			},
		}
		require.NoError(t, idx.Upsert(context.Background(), namespace, []vector.Record{rec}))
	}
}

func mockEngine(idx vector.Index) *Engine {
	mock := providers.NewMockProvider(16)
	return NewEngine(engineConfig(), stubProviders{embed: mock, llm: mock}, idx, zap.NewNop())
}

func TestAskReturnsStructuredAnswer(t *testing.T) {
	idx := vector.NewMemoryIndex()
	seedCorpus(t, idx, "lit")
	e := mockEngine(idx)

	artifact, err := e.Ask(context.Background(), models.AskRequest{
		Namespace:      "lit",
		Question:       "How do caching strategies affect retrieval systems?",
		ReturnContexts: true,
	})
	require.NoError(t, err)
	require.Equal(t, "json", artifact.ParseMode)
	require.NotEmpty(t, artifact.Answer)
	require.Equal(t, "qa", artifact.Task)
	require.NotEmpty(t, artifact.References)
	require.Equal(t, 1, artifact.References[0].CitationNumber)
	require.NotEmpty(t, artifact.Contexts)
	require.Equal(t, "hybrid", artifact.Retrieval.Mode)
	require.Equal(t, "mock-embed-16", artifact.Retrieval.EmbeddingModel)
	require.Equal(t, "mock-llm-v1", artifact.Retrieval.ChatModel)
	require.Equal(t, 3, artifact.Retrieval.Returned)
}

func TestAskEmptyRetrievalIsNotAnError(t *testing.T) {
	e := mockEngine(vector.NewMemoryIndex())

	artifact, err := e.Ask(context.Background(), models.AskRequest{Question: "anything?"})
	require.NoError(t, err)
	require.Equal(t, "No relevant documents were retrieved from the corpus.", artifact.Answer)
	require.Equal(t, "low", artifact.Confidence)
	require.Zero(t, artifact.Retrieval.Returned)
	require.Empty(t, artifact.References)
}

func TestAskRequiresQuestion(t *testing.T) {
	e := mockEngine(vector.NewMemoryIndex())
	_, err := e.Ask(context.Background(), models.AskRequest{Question: "   "})
	require.ErrorIs(t, err, util.ErrInvalidRequest)
}

func TestAskTopKClamped(t *testing.T) {
	e := mockEngine(vector.NewMemoryIndex())
	artifact, err := e.Ask(context.Background(), models.AskRequest{Question: "q?", TopK: 500})
	require.NoError(t, err)
	require.Equal(t, 30, artifact.Retrieval.TopK)
}

func TestAskFallsBackWhenSynthesisUnavailable(t *testing.T) {
	idx := vector.NewMemoryIndex()
	seedCorpus(t, idx, "lit")
	e := NewEngine(engineConfig(), stubProviders{embed: providers.NewMockProvider(16), llm: failingLLM{}}, idx, zap.NewNop())

	artifact, err := e.Ask(context.Background(), models.AskRequest{
		Namespace: "lit",
		Question:  "How do caching strategies affect retrieval systems?",
	})
	require.NoError(t, err)
	require.Equal(t, "fallback", artifact.ParseMode)
	require.Equal(t, "low", artifact.Confidence)
	require.Contains(t, artifact.Answer, "extractive")
	require.NotEmpty(t, artifact.CrossPaperSynthesis)
	require.Contains(t, artifact.Limitations, "completion backend down")
}

func TestAskEmbedOutageIsHardFailure(t *testing.T) {
	e := NewEngine(engineConfig(), stubProviders{embed: failingEmbed{}, llm: providers.NewMockProvider(16)}, vector.NewMemoryIndex(), zap.NewNop())
	_, err := e.Ask(context.Background(), models.AskRequest{Question: "q?"})
	require.Error(t, err)
	require.True(t, errors.Is(err, util.ErrUpstreamUnavailable))
}

func TestInsightsFromStructuredOutput(t *testing.T) {
	idx := vector.NewMemoryIndex()
	seedCorpus(t, idx, "lit")
	e := mockEngine(idx)

	artifact, err := e.Insights(context.Background(), models.AskRequest{
		Namespace: "lit",
		Question:  "Map retrieval systems research.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, artifact.Insights.AgreementClusters)
	require.NotEmpty(t, artifact.Insights.PaperProfiles)
	require.NotEmpty(t, artifact.References)
	require.Equal(t, 12, artifact.Retrieval.TopK)
}

func TestInsightsHeuristicFallback(t *testing.T) {
	idx := vector.NewMemoryIndex()
	seedCorpus(t, idx, "lit")
	e := NewEngine(engineConfig(), stubProviders{embed: providers.NewMockProvider(16), llm: failingLLM{}}, idx, zap.NewNop())

	artifact, err := e.Insights(context.Background(), models.AskRequest{
		Namespace: "lit",
		Question:  "Map retrieval systems research.",
	})
	require.NoError(t, err)
	require.NotEmpty(t, artifact.Insights.AgreementClusters)
	require.Contains(t, artifact.Insights.AgreementClusters[0], "randomized controlled trial")
	require.NotEmpty(t, artifact.Insights.TimelineEvolution)
	require.NotEmpty(t, artifact.Insights.ResearchGaps)
}

func TestInsightsEmptyRetrieval(t *testing.T) {
	e := mockEngine(vector.NewMemoryIndex())
	artifact, err := e.Insights(context.Background(), models.AskRequest{Question: "anything"})
	require.NoError(t, err)
	require.Empty(t, artifact.Insights.PaperProfiles)
	require.Empty(t, artifact.References)
	require.Zero(t, artifact.Retrieval.Returned)
}

func TestGapsFromStructuredOutput(t *testing.T) {
	idx := vector.NewMemoryIndex()
	seedCorpus(t, idx, "lit")
	e := mockEngine(idx)

	artifact, err := e.Gaps(context.Background(), models.AskRequest{Namespace: "lit"})
	require.NoError(t, err)
	require.Equal(t, []string{"Mock evidence gap [1]"}, artifact.Gaps)
	require.NotEmpty(t, artifact.SupportingEvidence)
	require.Equal(t, "What are the major research gaps?", artifact.Question)
}

func TestGapsHeuristicFallback(t *testing.T) {
	idx := vector.NewMemoryIndex()
	seedCorpus(t, idx, "lit")
	e := NewEngine(engineConfig(), stubProviders{embed: providers.NewMockProvider(16), llm: failingLLM{}}, idx, zap.NewNop())

	artifact, err := e.Gaps(context.Background(), models.AskRequest{
		Namespace: "lit",
		Question:  "Where is evidence thin?",
	})
	require.NoError(t, err)
	require.NotEmpty(t, artifact.Gaps)
	found := false
	for _, g := range artifact.Gaps {
		if strings.Contains(g, "small sample") {
			found = true
		}
	}
	require.True(t, found, "expected recurring small-sample gap: %v", artifact.Gaps)
	require.NotEmpty(t, artifact.SupportingEvidence)
}
