package ingest

import (
	"strings"
	"testing"

	"litrag/internal/models"
)

func TestMetadataFallbackText(t *testing.T) {
	text := MetadataFallbackText(models.PaperMetadata{
		Title:   "Edge Caching at Scale",
		Authors: []string{"Doe, J.", "Roe, A."},
		Year:    2021,
		Venue:   "SOSP",
		Source:  "openalex",
		DOI:     "10.1/edge",
	})
	for _, want := range []string{
		"Title: Edge Caching at Scale.",
		"Authors: Doe, J., Roe, A.",
		"Year: 2021.",
		"Venue: SOSP.",
		"Source: openalex.",
		"DOI: 10.1/edge.",
		"metadata-level evidence",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("fallback text missing %q: %q", want, text)
		}
	}
}

func TestMetadataFallbackTextCapsAuthors(t *testing.T) {
	authors := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	text := MetadataFallbackText(models.PaperMetadata{Title: "T", Authors: authors})
	if strings.Contains(text, "G") || strings.Contains(text, "H") {
		t.Fatalf("author list not capped at 6: %q", text)
	}
}

func TestMetadataFallbackTextEmptyRecord(t *testing.T) {
	if got := MetadataFallbackText(models.PaperMetadata{}); got != "" {
		t.Fatalf("expected empty text for empty record, got %q", got)
	}
}
