package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"litrag/internal/config"
	"litrag/internal/discovery"
	"litrag/internal/models"
	"litrag/internal/pdftext"
	"litrag/internal/providers"
	"litrag/internal/util"
	"litrag/internal/vector"
)

type singleEmbedSet struct {
	provider providers.EmbeddingProvider
}

func (s *singleEmbedSet) PreferredEmbedOrder() []int { return []int{0} }

func (s *singleEmbedSet) EmbedProviderByIndex(i int) (providers.EmbeddingProvider, providers.ProviderRef) {
	return s.provider, providers.ProviderRef{Raw: "test", Name: "test"}
}

type failingEmbed struct {
	message string
}

func (f *failingEmbed) Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	return nil, providers.ProviderInfo{Name: "failing"}, fmt.Errorf("%s", f.message)
}

func testConfig() config.Config {
	cfg := config.Load()
	cfg.EmbedDim = 16
	return cfg
}

func testPipeline(idx vector.Index) *Pipeline {
	return NewPipeline(testConfig(), &singleEmbedSet{provider: providers.NewMockProvider(16)}, idx, nil, nil, zap.NewNop())
}

func directPaper(id, title, abstract string) models.PaperMetadata {
	return models.PaperMetadata{PaperID: id, Title: title, Abstract: abstract, Year: 2022, Source: "custom"}
}

func TestIngestDirectPapers(t *testing.T) {
	idx := vector.NewMemoryIndex()
	p := testPipeline(idx)

	out, err := p.Ingest(context.Background(), models.IngestRequest{
		Papers: []models.PaperMetadata{
			directPaper("p1", "Paper One", "We study caching strategies in distributed systems."),
			directPaper("p2", "Paper Two", "We analyze consensus protocols under churn."),
		},
	})
	require.NoError(t, err)
	require.Equal(t, "default", out.Namespace)
	require.Equal(t, 2, out.CandidateCount)
	require.Equal(t, 2, out.SelectedCandidateCount)
	require.Equal(t, 2, out.IngestedPapers)
	require.GreaterOrEqual(t, out.IngestedChunks, 2)
	require.Empty(t, out.FailedPapers)
	require.False(t, out.TimedOut)
	require.Equal(t, "memory", out.VectorProvider)
	require.NotEmpty(t, out.EmbeddingModel)
	require.Equal(t, out.IngestedChunks, idx.Count("default"))
}

func TestIngestMetadataOnlyPaperGetsFallbackChunk(t *testing.T) {
	idx := vector.NewMemoryIndex()
	p := testPipeline(idx)

	out, err := p.Ingest(context.Background(), models.IngestRequest{
		Namespace: "corpus",
		Papers: []models.PaperMetadata{
			{PaperID: "meta1", Title: "Metadata Only Paper", Venue: "ICML", Year: 2019},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, out.IngestedPapers)
	require.Equal(t, 1, out.IngestedChunks)

	matches, err := idx.Query(context.Background(), "corpus", make([]float32, 16), 5, models.MetadataFilter{})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Contains(t, matches[0].Meta.ChunkText, "metadata-level evidence")
}

func TestIngestIdempotentChunkCount(t *testing.T) {
	idx := vector.NewMemoryIndex()
	p := testPipeline(idx)
	req := models.IngestRequest{
		Papers: []models.PaperMetadata{
			directPaper("p1", "Stable Paper", strings.Repeat("steady state analysis of queueing systems ", 80)),
		},
	}

	first, err := p.Ingest(context.Background(), req)
	require.NoError(t, err)
	second, err := p.Ingest(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, first.IngestedChunks, second.IngestedChunks)
	require.Equal(t, first.IngestedChunks, idx.Count("default"))
}

func TestIngestBudgetExhaustedDefersPapers(t *testing.T) {
	idx := vector.NewMemoryIndex()
	p := testPipeline(idx)

	calls := 0
	base := time.Unix(5000, 0)
	p.now = func() time.Time {
		calls++
		if calls == 1 {
			return base
		}
		return base.Add(time.Minute)
	}

	out, err := p.Ingest(context.Background(), models.IngestRequest{
		Papers: []models.PaperMetadata{
			directPaper("p1", "One", "abstract one"),
			directPaper("p2", "Two", "abstract two"),
		},
	})
	require.NoError(t, err)
	require.True(t, out.TimedOut)
	require.Zero(t, out.IngestedPapers)
	require.Len(t, out.SkippedPapers, 2)
	for _, s := range out.SkippedPapers {
		require.Contains(t, s.Reason, "time budget")
	}
}

func TestIngestRejectsBadChunkConfig(t *testing.T) {
	p := testPipeline(vector.NewMemoryIndex())
	overlap := 120
	_, err := p.Ingest(context.Background(), models.IngestRequest{
		ChunkSizeWords:    80,
		ChunkOverlapWords: &overlap,
		Papers:            []models.PaperMetadata{directPaper("p1", "T", "a")},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, util.ErrChunkConfig))
}

func TestIngestUpstreamOutage(t *testing.T) {
	idx := vector.NewMemoryIndex()
	p := NewPipeline(testConfig(), &singleEmbedSet{provider: &failingEmbed{message: "service temporarily unavailable"}}, idx, nil, nil, zap.NewNop())

	out, err := p.Ingest(context.Background(), models.IngestRequest{
		Papers: []models.PaperMetadata{directPaper("p1", "One", "abstract one")},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, util.ErrUpstreamUnavailable))
	require.Len(t, out.FailedPapers, 1)
	require.Zero(t, out.IngestedPapers)
}

func TestIngestNoCandidates(t *testing.T) {
	p := testPipeline(vector.NewMemoryIndex())
	out, err := p.Ingest(context.Background(), models.IngestRequest{})
	require.NoError(t, err)
	require.Zero(t, out.CandidateCount)
	require.Contains(t, out.Message, "No papers to ingest")
}

func TestIngestQueryModeDiscoversAndCaps(t *testing.T) {
	idx := vector.NewMemoryIndex()
	agg := discovery.NewAggregator(zap.NewNop(), discovery.NewMockSource("mock"))
	p := NewPipeline(testConfig(), &singleEmbedSet{provider: providers.NewMockProvider(16)}, idx, agg, nil, zap.NewNop())

	out, err := p.Ingest(context.Background(), models.IngestRequest{
		Query: "graph neural networks",
		Limit: 3,
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, out.DiscoveredCount, out.CandidateCount)
	require.LessOrEqual(t, out.SelectedCandidateCount, 3)
	require.Positive(t, out.IngestedPapers)
	require.Positive(t, out.DiscoveryBudgetSeconds)
}

func TestIngestDirectPaperFetchesPDF(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "not a pdf")
	}))
	defer srv.Close()

	idx := vector.NewMemoryIndex()
	extractor := pdftext.New("litrag-test/1.0", 2*time.Second, 4, 4096)
	p := NewPipeline(testConfig(), &singleEmbedSet{provider: providers.NewMockProvider(16)}, idx, nil, extractor, zap.NewNop())

	on := true
	paper := directPaper("p1", "Paper One", "We study caching strategies in distributed systems at scale.")
	paper.PDFURL = srv.URL + "/doc"
	out, err := p.Ingest(context.Background(), models.IngestRequest{
		Namespace:      "ns-pdf",
		Papers:         []models.PaperMetadata{paper},
		ExtractPDFText: &on,
	})
	require.NoError(t, err)
	require.True(t, out.EffectivePDFExtraction)
	require.Equal(t, 1, hits, "caller-supplied paper with a pdf url should be fetched")
	require.Equal(t, 1, out.IngestedPapers)
}

func TestIngestDirectPaperPDFOptOut(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	idx := vector.NewMemoryIndex()
	extractor := pdftext.New("litrag-test/1.0", 2*time.Second, 4, 4096)
	p := NewPipeline(testConfig(), &singleEmbedSet{provider: providers.NewMockProvider(16)}, idx, nil, extractor, zap.NewNop())

	on := true
	off := false
	paper := directPaper("p1", "Paper One", "We study caching strategies in distributed systems at scale.")
	paper.PDFURL = srv.URL + "/doc"
	paper.AllowPDFExtract = &off
	out, err := p.Ingest(context.Background(), models.IngestRequest{
		Namespace:      "ns-pdf-optout",
		Papers:         []models.PaperMetadata{paper},
		ExtractPDFText: &on,
	})
	require.NoError(t, err)
	require.Zero(t, hits, "explicit opt-out must suppress the pdf fetch")
	require.Equal(t, 1, out.IngestedPapers)
}

// markerEmbed refuses batch calls and any single input containing the
// marker token, leaving that chunk's vector slot empty.
type markerEmbed struct {
	inner  providers.EmbeddingProvider
	marker string
}

func (m *markerEmbed) Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	if len(req.Inputs) != 1 {
		return nil, providers.ProviderInfo{Name: "marker"}, fmt.Errorf("batch embedding unavailable")
	}
	if strings.Contains(req.Inputs[0], m.marker) {
		return nil, providers.ProviderInfo{Name: "marker"}, fmt.Errorf("input rejected")
	}
	return m.inner.Embed(ctx, req)
}

func TestIngestReportsSkippedChunks(t *testing.T) {
	idx := vector.NewMemoryIndex()
	embed := &markerEmbed{inner: providers.NewMockProvider(16), marker: "zzfail"}
	p := NewPipeline(testConfig(), &singleEmbedSet{provider: embed}, idx, nil, nil, zap.NewNop())

	overlap := 0
	paper := models.PaperMetadata{
		PaperID: "p1",
		Title:   "Paper One",
		FullText: strings.Repeat("alpha beta gamma delta ", 20) +
			strings.Repeat("zzfail metric outage sample ", 10),
		Year:   2022,
		Source: "custom",
	}
	out, err := p.Ingest(context.Background(), models.IngestRequest{
		Namespace:         "ns-skip",
		Papers:            []models.PaperMetadata{paper},
		ChunkSizeWords:    80,
		ChunkOverlapWords: &overlap,
		MinChunkWords:     20,
	})
	require.NoError(t, err)
	require.Equal(t, 1, out.IngestedPapers)
	require.Equal(t, 1, out.IngestedChunks)
	require.Equal(t, 1, out.SkippedChunks)
}
