package rag

import (
	"regexp"
	"sort"
	"strings"

	"litrag/internal/util"
	"litrag/internal/vector"
)

// ScoredMatch is a retrieval match enriched with a hybrid score combining
// semantic similarity, lexical overlap with the question, and a citation
// count boost.
type ScoredMatch struct {
	vector.Match
	Hybrid float64
}

const (
	semanticWeight = 0.70
	lexicalWeight  = 0.25
	citationWeight = 0.05

	// citationBoostCap saturates the citation boost so celebrity papers do
	// not drown out relevance.
	citationBoostCap = 5000
)

var overlapTokenRe = regexp.MustCompile(`[a-z0-9]{3,}`)

func tokenizeForOverlap(text string) map[string]struct{} {
	tokens := overlapTokenRe.FindAllString(strings.ToLower(util.NormalizeSpace(text)), -1)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

func lexicalOverlapScore(query, candidate string) float64 {
	qTokens := tokenizeForOverlap(query)
	if len(qTokens) == 0 {
		return 0
	}
	cTokens := tokenizeForOverlap(candidate)
	if len(cTokens) == 0 {
		return 0
	}
	shared := 0
	for t := range qTokens {
		if _, ok := cTokens[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(qTokens))
}

// HybridRerank rescores over-fetched matches and keeps the top topK.
// Semantic scores are min-max normalized within the batch before weighting.
func HybridRerank(question string, matches []vector.Match, topK int) []ScoredMatch {
	if len(matches) == 0 {
		return nil
	}
	minScore, maxScore := matches[0].Score, matches[0].Score
	for _, m := range matches[1:] {
		if m.Score < minScore {
			minScore = m.Score
		}
		if m.Score > maxScore {
			maxScore = m.Score
		}
	}
	span := maxScore - minScore
	if span < 1e-8 {
		span = 1e-8
	}

	scored := make([]ScoredMatch, 0, len(matches))
	for _, m := range matches {
		semantic := (m.Score - minScore) / span
		lexical := lexicalOverlapScore(question, m.Meta.ChunkText)
		citations := m.Meta.CitationCount
		if citations > citationBoostCap {
			citations = citationBoostCap
		}
		boost := float64(citations) / citationBoostCap
		scored = append(scored, ScoredMatch{
			Match:  m,
			Hybrid: semanticWeight*semantic + lexicalWeight*lexical + citationWeight*boost,
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Hybrid > scored[j].Hybrid })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
