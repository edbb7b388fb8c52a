package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"litrag/internal/config"
	"litrag/internal/discovery"
	"litrag/internal/models"
	"litrag/internal/pdftext"
	"litrag/internal/providers"
	"litrag/internal/util"
	"litrag/internal/vector"
)

// EmbedProviders is the slice of the provider manager the pipeline needs:
// an ordered set of embedding backends to try.
type EmbedProviders interface {
	PreferredEmbedOrder() []int
	EmbedProviderByIndex(i int) (providers.EmbeddingProvider, providers.ProviderRef)
}

// Pipeline runs one synchronous ingest: discover, select, chunk, embed,
// upsert, all under a single wall-clock budget with partial success as a
// first-class outcome.
type Pipeline struct {
	cfg       config.Config
	providers EmbedProviders
	index     vector.Index
	agg       *discovery.Aggregator
	pdf       *pdftext.Extractor
	logger    *zap.Logger
	now       func() time.Time
}

func NewPipeline(cfg config.Config, pm EmbedProviders, index vector.Index, agg *discovery.Aggregator, pdf *pdftext.Extractor, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:       cfg,
		providers: pm,
		index:     index,
		agg:       agg,
		pdf:       pdf,
		logger:    logger,
		now:       time.Now,
	}
}

type runParams struct {
	namespace     string
	query         string
	sources       []string
	limit         int
	maxCandidates int
	extractPDF    bool
	pdfPaperLimit int
	chunkSize     int
	chunkOverlap  int
	minChunkWords int
	budgetSeconds int
}

func (p *Pipeline) resolveParams(req models.IngestRequest) (runParams, error) {
	rp := runParams{
		namespace:     strings.TrimSpace(req.Namespace),
		query:         util.NormalizeSpace(req.Query),
		sources:       req.Sources,
		limit:         util.ClampInt(req.Limit, 8, 1, 50),
		maxCandidates: util.ClampInt(req.MaxCandidates, p.cfg.MaxCandidates, 1, 40),
		extractPDF:    true,
		chunkSize:     util.ClampInt(req.ChunkSizeWords, p.cfg.ChunkSizeWords, 80, 800),
		minChunkWords: util.ClampInt(req.MinChunkWords, p.cfg.MinChunkWords, 20, 200),
		budgetSeconds: util.ClampInt(req.TimeBudgetSeconds, p.cfg.TimeBudgetSeconds, 8, 28),
	}
	if rp.namespace == "" {
		rp.namespace = "default"
	}
	if req.ExtractPDFText != nil {
		rp.extractPDF = *req.ExtractPDFText
	}
	// Zero is a meaningful value for these two, so nil means "default"
	// rather than falling back on zero.
	rp.pdfPaperLimit = p.cfg.QueryPDFPaperLimit
	if req.QueryPDFPaperLimit != nil {
		rp.pdfPaperLimit = util.ClampInt(*req.QueryPDFPaperLimit, 0, 0, 8)
	}
	rp.chunkOverlap = p.cfg.ChunkOverlapWords
	if req.ChunkOverlapWords != nil {
		rp.chunkOverlap = util.ClampInt(*req.ChunkOverlapWords, 0, 0, 200)
	}
	if rp.chunkOverlap >= rp.chunkSize {
		return rp, fmt.Errorf("chunk overlap %d must be less than chunk size %d: %w",
			rp.chunkOverlap, rp.chunkSize, util.ErrChunkConfig)
	}
	if len(rp.sources) == 0 && p.agg != nil {
		rp.sources = p.agg.RegisteredTags()
	}
	return rp, nil
}

// Ingest runs the full pipeline for one request. The returned error is
// non-nil only for fatal conditions: an invalid chunking configuration, or
// an upstream capability outage that failed every selected paper.
func (p *Pipeline) Ingest(ctx context.Context, req models.IngestRequest) (models.IngestOutcome, error) {
	rp, err := p.resolveParams(req)
	if err != nil {
		return models.IngestOutcome{}, err
	}

	outcome := models.IngestOutcome{
		Namespace:              rp.namespace,
		TimeBudgetSeconds:      rp.budgetSeconds,
		RequestedPDFExtraction: rp.extractPDF,
		EffectivePDFExtraction: rp.extractPDF,
		VectorProvider:         p.index.Provider(),
		SkippedPapers:          []models.SkippedPaper{},
		FailedPapers:           []models.FailedPaper{},
	}

	queryMode := rp.query != ""
	discoveryBudget := 0
	var discovered []models.PaperMetadata
	if queryMode {
		discoveryBudget = rp.budgetSeconds / 2
		if discoveryBudget < 5 {
			discoveryBudget = 5
		}
		if discoveryBudget > 14 {
			discoveryBudget = 14
		}
		outcome.DiscoveryBudgetSeconds = discoveryBudget
		if p.agg != nil {
			res := p.agg.Discover(ctx, rp.query, rp.sources, rp.limit,
				time.Duration(discoveryBudget)*time.Second)
			discovered = res.Papers
			outcome.DiscoveredCount = res.DiscoveredCount
			outcome.DiscoveryBudgetHit = res.BudgetHit
		}
	}

	candidates := discovery.MergePapers(append(append([]models.PaperMetadata{}, req.Papers...), discovered...))
	outcome.CandidateCount = len(candidates)
	if len(candidates) == 0 {
		outcome.Message = "No papers to ingest. Provide papers[] or query."
		return outcome, nil
	}

	sel := discovery.SelectCandidates(candidates, rp.maxCandidates, queryMode, rp.limit, rp.extractPDF, rp.pdfPaperLimit)
	outcome.SelectedCandidateCount = len(sel.Selected)
	outcome.TruncatedCandidates = len(sel.Deferred)
	outcome.EffectivePDFExtraction = sel.EffectivePDFExtraction
	outcome.PDFExtractionDisabledReason = sel.PDFExtractionDisabledReason
	if queryMode {
		outcome.QueryPDFPaperLimit = rp.pdfPaperLimit
		outcome.QueryPDFExtractionSelected = sel.QueryPDFExtractionSelected
	}
	outcome.SkippedPapers = append(outcome.SkippedPapers, sel.DeferredSkips(len(candidates))...)

	ingestSeconds := rp.budgetSeconds - discoveryBudget
	if ingestSeconds < 6 {
		ingestSeconds = 6
	}
	budget := NewBudget(time.Duration(ingestSeconds)*time.Second, p.now)

	attempted := 0
	outageErrors := 0
	for _, paper := range sel.Selected {
		if budget.Exhausted() {
			outcome.TimedOut = true
			outcome.SkippedPapers = append(outcome.SkippedPapers, models.SkippedPaper{
				PaperID: paper.PaperID,
				Title:   paper.Title,
				Reason:  "Deferred due to ingest time budget. Retry with a lower limit or without PDF extraction.",
			})
			continue
		}
		attempted++
		chunks, info, err := p.ingestPaper(ctx, rp, budget, sel.EffectivePDFExtraction, paper, &outcome)
		if err != nil {
			p.logger.Warn("paper ingest failed",
				zap.String("paperId", paper.PaperID),
				zap.Error(err))
			outcome.FailedPapers = append(outcome.FailedPapers, models.FailedPaper{
				PaperID: paper.PaperID,
				Title:   paper.Title,
				Error:   err.Error(),
			})
			switch providers.ClassifyError(err) {
			case providers.ErrorQuota, providers.ErrorRate, providers.ErrorTransient:
				outageErrors++
			}
			continue
		}
		if chunks > 0 {
			outcome.IngestedPapers++
			outcome.IngestedChunks += chunks
			if outcome.EmbeddingModel == "" {
				outcome.EmbeddingModel = info.Model
			}
		}
	}

	if outcome.IngestedPapers == 0 && attempted > 0 && outageErrors == attempted {
		return outcome, fmt.Errorf("every paper failed on upstream capabilities: %w", util.ErrUpstreamUnavailable)
	}
	return outcome, nil
}

// ingestPaper runs chunk+embed+upsert for one paper. A zero chunk count
// with nil error means the paper was skipped and already recorded.
func (p *Pipeline) ingestPaper(ctx context.Context, rp runParams, budget *Budget, extractPDF bool, paper models.PaperMetadata, outcome *models.IngestOutcome) (int, providers.ProviderInfo, error) {
	var none providers.ProviderInfo
	if paper.Title == "" {
		outcome.SkippedPapers = append(outcome.SkippedPapers, models.SkippedPaper{
			PaperID: paper.PaperID,
			Reason:  "Missing title, record is not ingestable.",
		})
		return 0, none, nil
	}

	var textParts []string
	textParts = append(textParts, paper.Title)
	if paper.FullText != "" {
		textParts = append(textParts, paper.FullText)
	}
	if paper.Abstract != "" {
		textParts = append(textParts, paper.Abstract)
	}

	if extractPDF && paper.PDFExtractAllowed() && paper.PDFURL != "" && p.pdf != nil {
		if !budget.CanStartPDF() {
			outcome.SkippedPapers = append(outcome.SkippedPapers, models.SkippedPaper{
				PaperID: paper.PaperID,
				Title:   paper.Title,
				Reason:  "Skipped PDF extraction due to remaining time budget.",
			})
		} else {
			pdfText, err := p.pdf.ExtractFromURL(ctx, paper.PDFURL)
			if err != nil {
				p.logger.Warn("pdf extraction failed",
					zap.String("paperId", paper.PaperID),
					zap.Error(err))
			} else if pdfText != "" {
				textParts = append(textParts, pdfText)
			}
		}
	}

	mergedText := util.NormalizeSpace(strings.Join(textParts, "\n\n"))
	if len(textParts) == 1 {
		// Title alone is not enough; fall back to a synthetic metadata chunk.
		mergedText = MetadataFallbackText(paper)
		if mergedText == "" {
			outcome.SkippedPapers = append(outcome.SkippedPapers, models.SkippedPaper{
				PaperID: paper.PaperID,
				Title:   paper.Title,
				Reason:  "No abstract/fullText/PDF text available",
			})
			return 0, none, nil
		}
	}

	chunks, err := BuildChunks(paper.PaperID, mergedText, rp.chunkSize, rp.chunkOverlap, rp.minChunkWords)
	if err != nil {
		return 0, none, err
	}
	if len(chunks) == 0 {
		outcome.SkippedPapers = append(outcome.SkippedPapers, models.SkippedPaper{
			PaperID: paper.PaperID,
			Title:   paper.Title,
			Reason:  "Text too short after chunking",
		})
		return 0, none, nil
	}
	if len(chunks) > p.cfg.MaxChunksPerPaper {
		chunks = chunks[:p.cfg.MaxChunksPerPaper]
	}

	if !budget.CanStartEmbed() {
		outcome.TimedOut = true
		outcome.SkippedPapers = append(outcome.SkippedPapers, models.SkippedPaper{
			PaperID: paper.PaperID,
			Title:   paper.Title,
			Reason:  "Deferred due to remaining ingest time budget before embedding/upsert.",
		})
		return 0, none, nil
	}

	profile := ExtractProfile(mergedText)
	vectors, info, err := p.embedChunks(ctx, chunks)
	if err != nil {
		return 0, none, fmt.Errorf("embed chunks: %w", err)
	}

	records := make([]vector.Record, 0, len(chunks))
	for i, chunk := range chunks {
		if vectors[i] == nil {
			outcome.SkippedChunks++
			continue
		}
		meta := chunkMeta(paper, chunk, profile)
		records = append(records, vector.Record{
			ID:     fmt.Sprintf("%s::chunk::%d", paper.PaperID, chunk.ChunkIndex),
			Vector: vectors[i],
			Meta:   meta,
		})
	}
	if len(records) == 0 {
		return 0, none, fmt.Errorf("no chunks could be embedded")
	}

	// Overwrite semantics: re-ingesting replaces the paper's prior chunk
	// set instead of merging with it.
	if err := p.index.DeletePaper(ctx, rp.namespace, paper.PaperID); err != nil {
		return 0, none, fmt.Errorf("replace prior chunks: %w", err)
	}
	if err := p.index.Upsert(ctx, rp.namespace, records); err != nil {
		return 0, none, fmt.Errorf("upsert vectors: %w", err)
	}
	return len(records), info, nil
}

// embedChunks embeds all chunk texts, batch first. If the batch call fails,
// each chunk is retried individually so one bad input cannot sink its
// siblings; failed slots come back nil.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []models.Chunk) ([][]float32, providers.ProviderInfo, error) {
	inputs := make([]string, len(chunks))
	for i, c := range chunks {
		inputs[i] = c.Text
	}

	var lastErr error
	var info providers.ProviderInfo
	for _, idx := range p.providers.PreferredEmbedOrder() {
		provider, _ := p.providers.EmbedProviderByIndex(idx)
		vectors, pinfo, err := provider.Embed(ctx, providers.EmbedRequest{
			Operation: "ingest_embed",
			Inputs:    inputs,
			Dimension: p.cfg.EmbedDim,
		})
		if err == nil && len(vectors) == len(inputs) {
			return vectors, pinfo, nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("embedding count mismatch: got %d for %d inputs", len(vectors), len(inputs))
		}
		info = pinfo

		out := make([][]float32, len(inputs))
		succeeded := 0
		for i, input := range inputs {
			single, sinfo, serr := provider.Embed(ctx, providers.EmbedRequest{
				Operation: "ingest_embed",
				Inputs:    []string{input},
				Dimension: p.cfg.EmbedDim,
			})
			if serr != nil || len(single) != 1 {
				continue
			}
			out[i] = single[0]
			info = sinfo
			succeeded++
		}
		if succeeded > 0 {
			return out, info, nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no embedding provider configured")
	}
	return nil, info, lastErr
}

func chunkMeta(paper models.PaperMetadata, chunk models.Chunk, profile models.PaperProfile) models.ChunkMeta {
	authors := paper.Authors
	if len(authors) > 10 {
		authors = authors[:10]
	}
	text := chunk.Text
	if len(text) > 4000 {
		text = text[:4000]
	}
	return models.ChunkMeta{
		PaperID:       paper.PaperID,
		Title:         paper.Title,
		Authors:       strings.Join(authors, ", "),
		Year:          paper.Year,
		CitationCount: paper.CitationCount,
		Venue:         paper.Venue,
		DOI:           paper.DOI,
		URL:           paper.URL,
		PDFURL:        paper.PDFURL,
		Source:        paper.Source,
		ChunkIndex:    chunk.ChunkIndex,
		Section:       chunk.Section,
		SectionIndex:  chunk.SectionIndex,
		ChunkText:     text,
		PaperProfile:  profile,
	}
}
