package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"litrag/internal/config"
	"litrag/internal/models"
	"litrag/internal/providers"
	"litrag/internal/util"
	"litrag/internal/vector"
)

// Providers is the slice of the provider manager the query path needs.
type Providers interface {
	PreferredEmbedOrder() []int
	EmbedProviderByIndex(i int) (providers.EmbeddingProvider, providers.ProviderRef)
	PreferredLLMOrder() []int
	LLMProviderByIndex(i int) (providers.LLMProvider, providers.ProviderRef)
}

// Engine answers questions against an ingested namespace: retrieve, rerank,
// number citations, synthesize. Empty retrieval and parse failures are
// reported results, not errors; only an upstream capability outage during
// retrieval is a hard failure.
type Engine struct {
	cfg       config.Config
	providers Providers
	index     vector.Index
	logger    *zap.Logger
}

func NewEngine(cfg config.Config, pm Providers, index vector.Index, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, providers: pm, index: index, logger: logger}
}

func (e *Engine) retrieve(ctx context.Context, question, namespace string, topK int, filter models.MetadataFilter) ([]vector.Match, providers.ProviderInfo, error) {
	var embedInfo providers.ProviderInfo
	var qvec []float32
	var lastErr error
	for _, idx := range e.providers.PreferredEmbedOrder() {
		provider, _ := e.providers.EmbedProviderByIndex(idx)
		vectors, info, err := provider.Embed(ctx, providers.EmbedRequest{
			Operation: "query_embed",
			Inputs:    []string{question},
			Dimension: e.cfg.EmbedDim,
		})
		if err == nil && len(vectors) == 1 {
			qvec = vectors[0]
			embedInfo = info
			break
		}
		if err != nil {
			lastErr = err
		}
	}
	if qvec == nil {
		if lastErr == nil {
			lastErr = fmt.Errorf("no embedding provider configured")
		}
		return nil, embedInfo, fmt.Errorf("embed question: %v: %w", lastErr, util.ErrUpstreamUnavailable)
	}

	overFetch := topK * e.cfg.HybridRerankMultiplier
	if overFetch > 100 {
		overFetch = 100
	}
	if overFetch < topK {
		overFetch = topK
	}
	matches, err := e.index.Query(ctx, namespace, qvec, overFetch, filter)
	if err != nil {
		return nil, embedInfo, fmt.Errorf("vector query: %v: %w", err, util.ErrUpstreamUnavailable)
	}
	return matches, embedInfo, nil
}

func (e *Engine) generate(ctx context.Context, operation, system, prompt string) (string, providers.ProviderInfo, error) {
	var lastErr error
	var info providers.ProviderInfo
	for _, idx := range e.providers.PreferredLLMOrder() {
		provider, _ := e.providers.LLMProviderByIndex(idx)
		resp, pinfo, err := provider.Generate(ctx, providers.GenerateRequest{
			Operation: operation,
			System:    system,
			Prompt:    prompt,
			ForceJSON: true,
		})
		if err == nil && strings.TrimSpace(resp.Text) != "" {
			return resp.Text, pinfo, nil
		}
		if err != nil {
			lastErr = err
		}
		info = pinfo
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no completion provider configured")
	}
	return "", info, lastErr
}

func filterOf(req *models.MetadataFilter) models.MetadataFilter {
	if req == nil {
		return models.MetadataFilter{}
	}
	return *req
}

// Ask runs one grounded question for the qa, synthesis, comparison or
// outline tasks.
func (e *Engine) Ask(ctx context.Context, req models.AskRequest) (models.AnswerArtifact, error) {
	question := util.NormalizeSpace(req.Question)
	if question == "" {
		return models.AnswerArtifact{}, fmt.Errorf("question is required: %w", util.ErrInvalidRequest)
	}
	namespace := namespaceOf(req.Namespace)
	task := NormalizeTask(req.Task)
	style := NormalizeCitationStyle(req.CitationStyle)
	topK := util.ClampInt(req.TopK, 8, 1, 30)

	artifact := models.AnswerArtifact{
		Question:            question,
		Task:                task,
		CrossPaperSynthesis: []string{},
		Limitations:         []string{},
		NextQuestions:       []string{},
		References:          []models.Reference{},
		Retrieval:           models.RetrievalInfo{TopK: topK, Namespace: namespace, Mode: "hybrid"},
	}

	raw, embedInfo, err := e.retrieve(ctx, question, namespace, topK, filterOf(req.MetadataFilter))
	if err != nil {
		return artifact, err
	}
	artifact.Retrieval.EmbeddingModel = embedInfo.Model

	matches := HybridRerank(question, raw, topK)
	artifact.Retrieval.Returned = len(matches)
	if len(matches) == 0 {
		artifact.Answer = "No relevant documents were retrieved from the corpus."
		artifact.Limitations = []string{"No context retrieved from vector database."}
		artifact.Confidence = "low"
		return artifact, nil
	}

	references, paperToCitation := BuildReferences(matches, style)
	contextText, used := BuildContext(matches, paperToCitation, e.cfg.MaxContextChars)
	artifact.References = references
	if req.ReturnContexts {
		artifact.Contexts = used
	}

	rawText, llmInfo, genErr := e.generate(ctx, "ask_synthesize",
		answerSystemPrompt, buildAnswerPrompt(question, task, contextText, references))
	artifact.Retrieval.ChatModel = llmInfo.Model
	if genErr != nil {
		e.logger.Warn("answer synthesis unavailable", zap.Error(genErr))
		payload := extractiveFallback(question, used)
		payload.Limitations = append(payload.Limitations, genErr.Error())
		applyAnswerPayload(&artifact, payload, "fallback")
		return artifact, nil
	}

	if payload, ok := parseAnswer(rawText); ok {
		applyAnswerPayload(&artifact, payload, "json")
		return artifact, nil
	}
	// Unparseable model output: the raw text stands in as the answer body.
	artifact.Answer = strings.TrimSpace(rawText)
	artifact.Confidence = "low"
	artifact.ParseMode = "fallback"
	return artifact, nil
}

func applyAnswerPayload(artifact *models.AnswerArtifact, payload answerPayload, mode string) {
	artifact.Answer = payload.Answer
	artifact.CrossPaperSynthesis = orEmpty(payload.CrossPaperSynthesis)
	artifact.Limitations = orEmpty(payload.Limitations)
	artifact.NextQuestions = orEmpty(payload.NextQuestions)
	artifact.Confidence = payload.Confidence
	if artifact.Confidence == "" {
		artifact.Confidence = "medium"
	}
	artifact.ParseMode = mode
}

// extractiveFallback builds an answer straight from the top retrieved
// chunks when no completion capability responded.
func extractiveFallback(question string, used []models.ContextChunk) answerPayload {
	if len(used) == 0 {
		return answerPayload{
			Answer:      "No relevant context was retrieved from the corpus.",
			Limitations: []string{"No retrieved chunks available."},
			Confidence:  "low",
		}
	}
	top := used
	if len(top) > 3 {
		top = top[:3]
	}
	evidence := make([]string, 0, len(top))
	for _, item := range top {
		tag := "[?]"
		if item.CitationNumber > 0 {
			tag = fmt.Sprintf("[%d]", item.CitationNumber)
		}
		snippet := util.DisplayEvidenceSnippet(item.Snippet, question, 240)
		if snippet == "" {
			snippet = item.Snippet
		}
		evidence = append(evidence, fmt.Sprintf("%s %s: %s", tag, item.Title, snippet))
	}
	return answerPayload{
		Answer: fmt.Sprintf("Retrieved %d relevant chunks for: %q. Generative synthesis is unavailable, so this is an extractive answer.",
			len(used), question),
		CrossPaperSynthesis: evidence,
		Limitations:         []string{"Generative synthesis unavailable; extractive evidence only."},
		Confidence:          "low",
	}
}

// Insights maps agreement, contradictions, methodology spread, timeline and
// gaps across the retrieved corpus slice.
func (e *Engine) Insights(ctx context.Context, req models.AskRequest) (models.InsightsArtifact, error) {
	question := util.NormalizeSpace(req.Question)
	if question == "" {
		question = "Map this research area."
	}
	namespace := namespaceOf(req.Namespace)
	style := NormalizeCitationStyle(req.CitationStyle)
	topK := util.ClampInt(req.TopK, 12, 3, 40)

	artifact := models.InsightsArtifact{
		Question:   question,
		Insights:   emptyInsights(),
		References: []models.Reference{},
		Retrieval:  models.RetrievalInfo{TopK: topK, Namespace: namespace, Mode: "hybrid"},
	}

	raw, embedInfo, err := e.retrieve(ctx, question, namespace, topK, filterOf(req.MetadataFilter))
	if err != nil {
		return artifact, err
	}
	artifact.Retrieval.EmbeddingModel = embedInfo.Model

	matches := HybridRerank(question, raw, topK)
	artifact.Retrieval.Returned = len(matches)
	if len(matches) == 0 {
		return artifact, nil
	}

	references, paperToCitation := BuildReferences(matches, style)
	contextText, used := BuildContext(matches, paperToCitation, e.cfg.MaxContextChars)
	profiles := RankedPapersFromMatches(matches, paperToCitation, e.cfg.InsightsMaxPapers)
	artifact.References = references
	if req.ReturnContexts {
		artifact.Contexts = used
	}

	payload := heuristicInsights(profiles)
	rawText, llmInfo, genErr := e.generate(ctx, "insights_synthesize",
		insightsSystemPrompt, buildInsightsPrompt(question, contextText, references, profiles))
	artifact.Retrieval.ChatModel = llmInfo.Model
	if genErr != nil {
		e.logger.Warn("insights synthesis unavailable", zap.Error(genErr))
	} else if parsed, ok := parseInsights(rawText); ok {
		payload = parsed
	}

	artifact.Insights = models.Insights{
		AgreementClusters:         orEmpty(payload.AgreementClusters),
		Contradictions:            orEmpty(payload.Contradictions),
		MethodologicalDifferences: orEmpty(payload.MethodologicalDifferences),
		TimelineEvolution:         orEmpty(payload.TimelineEvolution),
		ResearchGaps:              orEmpty(payload.ResearchGaps),
		PaperProfiles:             profiles,
	}
	return artifact, nil
}

// Gaps surfaces under-covered evidence across the retrieved corpus slice.
func (e *Engine) Gaps(ctx context.Context, req models.AskRequest) (models.GapsArtifact, error) {
	question := util.NormalizeSpace(req.Question)
	if question == "" {
		question = "What are the major research gaps?"
	}
	namespace := namespaceOf(req.Namespace)
	style := NormalizeCitationStyle(req.CitationStyle)
	topK := util.ClampInt(req.TopK, 12, 3, 40)

	artifact := models.GapsArtifact{
		Question:           question,
		Gaps:               []string{},
		SupportingEvidence: []string{},
		References:         []models.Reference{},
		Retrieval:          models.RetrievalInfo{TopK: topK, Namespace: namespace, Mode: "hybrid"},
	}

	raw, embedInfo, err := e.retrieve(ctx, question, namespace, topK, filterOf(req.MetadataFilter))
	if err != nil {
		return artifact, err
	}
	artifact.Retrieval.EmbeddingModel = embedInfo.Model

	matches := HybridRerank(question, raw, topK)
	artifact.Retrieval.Returned = len(matches)
	if len(matches) == 0 {
		return artifact, nil
	}

	references, paperToCitation := BuildReferences(matches, style)
	contextText, _ := BuildContext(matches, paperToCitation, e.cfg.MaxContextChars)
	profiles := RankedPapersFromMatches(matches, paperToCitation, e.cfg.InsightsMaxPapers)
	artifact.References = references

	artifact.Gaps = heuristicResearchGaps(profiles)
	for _, p := range profiles {
		if p.Limitations != "" && len(artifact.SupportingEvidence) < 8 {
			artifact.SupportingEvidence = append(artifact.SupportingEvidence, p.Limitations)
		}
	}

	rawText, llmInfo, genErr := e.generate(ctx, "gaps_synthesize",
		gapsSystemPrompt, buildGapsPrompt(question, contextText, references))
	artifact.Retrieval.ChatModel = llmInfo.Model
	if genErr != nil {
		e.logger.Warn("gaps synthesis unavailable", zap.Error(genErr))
		return artifact, nil
	}
	if parsed, ok := parseGaps(rawText); ok {
		artifact.Gaps = parsed.Gaps
		artifact.SupportingEvidence = orEmpty(parsed.SupportingEvidence)
	}
	return artifact, nil
}

func namespaceOf(raw string) string {
	if ns := strings.TrimSpace(raw); ns != "" {
		return ns
	}
	return "default"
}

func emptyInsights() models.Insights {
	return models.Insights{
		AgreementClusters:         []string{},
		Contradictions:            []string{},
		MethodologicalDifferences: []string{},
		TimelineEvolution:         []string{},
		ResearchGaps:              []string{},
		PaperProfiles:             []models.RankedPaper{},
	}
}

func orEmpty(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
