package rag

import (
	"fmt"
	"strings"

	"litrag/internal/models"
	"litrag/internal/util"
)

// snippetChars bounds the snippet echoed back per used chunk.
const snippetChars = 400

// BuildContext assembles the citation-tagged context window from ranked
// matches, highest rank first, stopping at maxChars. It returns the prompt
// text and the chunks that actually made it in.
func BuildContext(matches []ScoredMatch, paperToCitation map[string]int, maxChars int) (string, []models.ContextChunk) {
	if maxChars <= 0 {
		maxChars = 16000
	}
	var blocks []string
	var used []models.ContextChunk
	total := 0

	for i, match := range matches {
		chunkText := util.NormalizeSpace(match.Meta.ChunkText)
		if chunkText == "" {
			continue
		}
		rank := i + 1
		citation := paperToCitation[paperKey(match.Meta)]
		tag := "[?]"
		if citation > 0 {
			tag = fmt.Sprintf("[%d]", citation)
		}
		title := util.NormalizeSpace(match.Meta.Title)
		if title == "" {
			title = "Untitled"
		}
		year := "n.d."
		if match.Meta.Year > 0 {
			year = fmt.Sprintf("%d", match.Meta.Year)
		}
		section := match.Meta.Section
		if section == "" {
			section = "body"
		}

		block := fmt.Sprintf(
			"Chunk %d | Citation %s | Title: %s | Year: %s | Section: %s | Score: %.4f | Hybrid: %.4f\n%s\n",
			rank, tag, title, year, section, match.Score, match.Hybrid, chunkText)
		if total+len(block) > maxChars {
			break
		}
		blocks = append(blocks, block)
		total += len(block)

		snippet := util.DisplaySnippet(chunkText, snippetChars)
		used = append(used, models.ContextChunk{
			Rank:           rank,
			CitationNumber: citation,
			PaperID:        match.Meta.PaperID,
			Title:          title,
			Score:          match.Score,
			HybridScore:    match.Hybrid,
			Section:        section,
			ChunkIndex:     match.Meta.ChunkIndex,
			Snippet:        snippet,
		})
	}
	return strings.Join(blocks, "\n"), used
}
