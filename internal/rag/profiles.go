package rag

import (
	"sort"

	"litrag/internal/models"
)

// RankedPapersFromMatches collapses chunk matches to one profile per
// distinct paper, keeping the best-scoring chunk's hybrid score, ordered by
// score descending.
func RankedPapersFromMatches(matches []ScoredMatch, paperToCitation map[string]int, maxPapers int) []models.RankedPaper {
	byPaper := make(map[string]models.RankedPaper)
	order := make([]string, 0, len(matches))

	limit := len(matches)
	if maxPapers > 0 && limit > maxPapers {
		limit = maxPapers
	}
	for _, match := range matches[:limit] {
		key := paperKey(match.Meta)
		score := match.Hybrid
		if score == 0 {
			score = match.Score
		}
		if existing, ok := byPaper[key]; ok && existing.Score >= score {
			continue
		} else if !ok {
			order = append(order, key)
		}
		byPaper[key] = models.RankedPaper{
			CitationNumber: paperToCitation[key],
			PaperID:        match.Meta.PaperID,
			Title:          match.Meta.Title,
			Year:           match.Meta.Year,
			Source:         match.Meta.Source,
			Methodology:    match.Meta.Methodology,
			DatasetSize:    match.Meta.DatasetSize,
			ModelType:      match.Meta.ModelType,
			KeyFindings:    match.Meta.KeyFindings,
			Limitations:    match.Meta.LimitationsText,
			FutureWork:     match.Meta.FutureWork,
			Score:          score,
		}
	}

	out := make([]models.RankedPaper, 0, len(order))
	for _, key := range order {
		out = append(out, byPaper[key])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
