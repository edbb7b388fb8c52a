package ingest

import "testing"

func TestExtractProfile(t *testing.T) {
	text := "We investigate whether retrieval improves grounding. " +
		"We use a transformer model trained on n = 12,000 samples. " +
		"Results show a significant gain over the baseline. " +
		"A limitation is the single-domain corpus. " +
		"Future work should cover multilingual settings."
	p := ExtractProfile(text)
	if p.ResearchQuestion == "" || p.ResearchQuestion[:16] != "We investigate w" {
		t.Fatalf("research question not extracted: %q", p.ResearchQuestion)
	}
	if p.DatasetSize != "n = 12,000" {
		t.Fatalf("dataset size not extracted: %q", p.DatasetSize)
	}
	if p.ModelType != "transformer" {
		t.Fatalf("model type not extracted: %q", p.ModelType)
	}
	if p.KeyFindings == "" {
		t.Fatalf("key findings not extracted")
	}
	if p.LimitationsText == "" || p.FutureWork == "" {
		t.Fatalf("limitations/future work not extracted: %q / %q", p.LimitationsText, p.FutureWork)
	}
}

func TestExtractProfileEmptyText(t *testing.T) {
	p := ExtractProfile("   ")
	if p != (ExtractProfile("")) {
		t.Fatalf("expected zero profile for empty text")
	}
	if p.Methodology != "" {
		t.Fatalf("expected empty methodology, got %q", p.Methodology)
	}
}

func TestKeywordSentenceFallsBackToFirst(t *testing.T) {
	sentences := []string{"Plain opening sentence.", "Another one."}
	got := keywordSentence(sentences, "nomatch")
	if got != "Plain opening sentence." {
		t.Fatalf("expected first-sentence fallback, got %q", got)
	}
}
