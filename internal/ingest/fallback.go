package ingest

import (
	"fmt"
	"strings"

	"litrag/internal/models"
	"litrag/internal/util"
)

// MetadataFallbackText renders a synthetic one-chunk text for papers with
// neither abstract nor full text, so they stay retrievable at the
// metadata level.
func MetadataFallbackText(p models.PaperMetadata) string {
	var parts []string
	if p.Title != "" {
		parts = append(parts, fmt.Sprintf("Title: %s.", p.Title))
	}
	authors := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		if a = util.NormalizeSpace(a); a != "" {
			authors = append(authors, a)
		}
	}
	if len(authors) > 6 {
		authors = authors[:6]
	}
	if len(authors) > 0 {
		parts = append(parts, fmt.Sprintf("Authors: %s.", strings.Join(authors, ", ")))
	}
	if p.Year > 0 {
		parts = append(parts, fmt.Sprintf("Year: %d.", p.Year))
	}
	if p.Venue != "" {
		parts = append(parts, fmt.Sprintf("Venue: %s.", p.Venue))
	}
	if p.Source != "" {
		parts = append(parts, fmt.Sprintf("Source: %s.", p.Source))
	}
	if p.DOI != "" {
		parts = append(parts, fmt.Sprintf("DOI: %s.", p.DOI))
	}
	if p.URL != "" {
		parts = append(parts, fmt.Sprintf("URL: %s.", p.URL))
	}
	if len(parts) == 0 {
		return ""
	}
	parts = append(parts, "This record has limited full text, so retrieval should be treated as metadata-level evidence.")
	return util.NormalizeSpace(strings.Join(parts, " "))
}
