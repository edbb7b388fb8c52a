package rag

import (
	"fmt"
	"strings"

	"litrag/internal/models"
	"litrag/internal/util"
)

// paperKey identifies a paper across chunks for citation numbering.
func paperKey(meta models.ChunkMeta) string {
	if meta.PaperID != "" {
		return "id:" + meta.PaperID
	}
	if meta.DOI != "" {
		return "doi:" + strings.ToLower(meta.DOI)
	}
	return "title:" + strings.ToLower(util.NormalizeSpace(meta.Title))
}

func splitNameTokens(fullName string) (last, given string) {
	tokens := strings.Fields(util.NormalizeSpace(fullName))
	if len(tokens) == 0 {
		return "", ""
	}
	if len(tokens) == 1 {
		return tokens[0], ""
	}
	return tokens[len(tokens)-1], strings.Join(tokens[:len(tokens)-1], " ")
}

func initialsOf(given string) string {
	parts := strings.Fields(given)
	out := make([]string, 0, len(parts))
	for _, g := range parts {
		out = append(out, string([]rune(g)[0])+".")
	}
	return strings.Join(out, " ")
}

func coerceAuthorList(raw string) []string {
	var out []string
	for _, a := range strings.Split(raw, ",") {
		if a = util.NormalizeSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

// formatAuthors renders an author list per citation style with graceful
// degradation: missing names collapse instead of failing.
func formatAuthors(authors []string, style string) string {
	if len(authors) == 0 {
		return "Unknown author"
	}
	switch strings.ToLower(style) {
	case "mla":
		last, given := splitNameTokens(authors[0])
		first := last
		if given != "" {
			first = last + ", " + given
		}
		if len(authors) == 1 {
			return first
		}
		if len(authors) > 2 {
			return first + ", et al."
		}
		return first + ", and " + authors[1]
	case "ieee":
		limit := len(authors)
		if limit > 6 {
			limit = 6
		}
		parts := make([]string, 0, limit+1)
		for _, full := range authors[:limit] {
			last, given := splitNameTokens(full)
			initials := initialsOf(given)
			if initials != "" && last != "" {
				parts = append(parts, initials+" "+last)
			} else if last != "" {
				parts = append(parts, last)
			} else {
				parts = append(parts, full)
			}
		}
		if len(authors) > 6 {
			parts = append(parts, "et al.")
		}
		joined := strings.Join(parts, ", ")
		if joined == "" {
			return "Unknown author"
		}
		return joined
	default: // apa
		limit := len(authors)
		if limit > 7 {
			limit = 7
		}
		parts := make([]string, 0, limit)
		for _, full := range authors[:limit] {
			last, given := splitNameTokens(full)
			initials := initialsOf(given)
			switch {
			case last != "" && initials != "":
				parts = append(parts, last+", "+initials)
			case last != "":
				parts = append(parts, last)
			}
		}
		switch len(parts) {
		case 0:
			return "Unknown author"
		case 1:
			return parts[0]
		default:
			return strings.Join(parts[:len(parts)-1], ", ") + ", & " + parts[len(parts)-1]
		}
	}
}

func referenceLink(meta models.ChunkMeta) string {
	if meta.DOI != "" {
		return "https://doi.org/" + meta.DOI
	}
	return strings.TrimSpace(meta.URL)
}

// FormatReference renders one numbered reference line in the requested
// style (apa, mla or ieee; anything else falls back to apa).
func FormatReference(meta models.ChunkMeta, citationNumber int, style string) string {
	style = strings.ToLower(strings.TrimSpace(style))
	authors := formatAuthors(coerceAuthorList(meta.Authors), style)
	title := util.NormalizeSpace(meta.Title)
	if title == "" {
		title = "Untitled"
	}
	year := "n.d."
	if meta.Year > 0 {
		year = fmt.Sprintf("%d", meta.Year)
	}
	link := referenceLink(meta)

	switch style {
	case "ieee":
		line := fmt.Sprintf("[%d] %s, %q,", citationNumber, authors, title)
		if meta.Venue != "" {
			line += " " + meta.Venue + ","
		}
		line += " " + year + "."
		if link != "" {
			line += " " + link
		}
		return line
	case "mla":
		line := fmt.Sprintf("%s. %q", authors, title+".")
		if meta.Venue != "" {
			line += " " + meta.Venue + ","
		}
		line += " " + year + "."
		if link != "" {
			line += " " + link
		}
		return line
	default:
		line := fmt.Sprintf("%s (%s). %s.", authors, year, title)
		if meta.Venue != "" {
			line += " " + meta.Venue + "."
		}
		if link != "" {
			line += " " + link
		}
		return line
	}
}

// BuildReferences walks matches in rank order and assigns each distinct
// paper the next citation number on first appearance. Chunks of an already
// numbered paper reuse its number.
func BuildReferences(matches []ScoredMatch, style string) ([]models.Reference, map[string]int) {
	var references []models.Reference
	paperToCitation := make(map[string]int)

	for _, match := range matches {
		key := paperKey(match.Meta)
		if _, seen := paperToCitation[key]; seen {
			continue
		}
		n := len(references) + 1
		paperToCitation[key] = n
		references = append(references, models.Reference{
			CitationNumber: n,
			PaperID:        match.Meta.PaperID,
			Title:          match.Meta.Title,
			Year:           match.Meta.Year,
			Venue:          match.Meta.Venue,
			Source:         match.Meta.Source,
			DOI:            match.Meta.DOI,
			URL:            match.Meta.URL,
			Formatted:      FormatReference(match.Meta, n, style),
		})
	}
	return references, paperToCitation
}

// NormalizeCitationStyle narrows free-form style input to apa, mla or ieee.
func NormalizeCitationStyle(style string) string {
	switch strings.ToLower(util.NormalizeSpace(style)) {
	case "mla":
		return "mla"
	case "ieee":
		return "ieee"
	default:
		return "apa"
	}
}
