package discovery

import (
	"testing"

	"litrag/internal/models"
)

func TestSelectCandidatesCapAndDeferred(t *testing.T) {
	papers := []models.PaperMetadata{
		{PaperID: "p1", Title: "One"},
		{PaperID: "p2", Title: "Two"},
		{PaperID: "p3", Title: "Three"},
	}
	sel := SelectCandidates(papers, 2, false, 0, false, 0)
	if len(sel.Selected) != 2 || len(sel.Deferred) != 1 {
		t.Fatalf("cap not applied: selected=%d deferred=%d", len(sel.Selected), len(sel.Deferred))
	}
	skips := sel.DeferredSkips(len(papers))
	if len(skips) != 1 || skips[0].PaperID != "p3" {
		t.Fatalf("deferred skip not reported: %+v", skips)
	}
}

func TestSelectCandidatesQueryModeHonorsLimit(t *testing.T) {
	papers := []models.PaperMetadata{
		{PaperID: "p1", Title: "One", Abstract: "a"},
		{PaperID: "p2", Title: "Two", Abstract: "a"},
		{PaperID: "p3", Title: "Three", Abstract: "a"},
	}
	sel := SelectCandidates(papers, 10, true, 2, false, 0)
	if len(sel.Selected) != 2 {
		t.Fatalf("discovery limit not applied: %d", len(sel.Selected))
	}
}

func TestSelectCandidatesQueryPDFMarking(t *testing.T) {
	papers := []models.PaperMetadata{
		{PaperID: "p1", Title: "One", Abstract: "a", PDFURL: "https://x/1.pdf"},
		{PaperID: "p2", Title: "Two", Abstract: "a"},
		{PaperID: "p3", Title: "Three", Abstract: "a", PDFURL: "https://x/3.pdf"},
		{PaperID: "p4", Title: "Four", Abstract: "a", PDFURL: "https://x/4.pdf"},
	}
	sel := SelectCandidates(papers, 10, true, 0, true, 2)
	if sel.QueryPDFExtractionSelected != 2 {
		t.Fatalf("expected 2 pdf-eligible papers, got %d", sel.QueryPDFExtractionSelected)
	}
	marked := 0
	for _, p := range sel.Selected {
		if p.AllowPDFExtract != nil && *p.AllowPDFExtract {
			marked++
		}
	}
	if marked != 2 {
		t.Fatalf("expected 2 marked papers, got %d", marked)
	}
	if !sel.EffectivePDFExtraction {
		t.Fatalf("expected effective pdf extraction")
	}
	if sel.PDFExtractionDisabledReason == "" {
		t.Fatalf("expected partial-limit reason")
	}
}

func TestSelectCandidatesQueryPDFNoneEligible(t *testing.T) {
	papers := []models.PaperMetadata{{PaperID: "p1", Title: "One", Abstract: "a"}}
	sel := SelectCandidates(papers, 10, true, 0, true, 2)
	if sel.EffectivePDFExtraction {
		t.Fatalf("expected pdf extraction disabled with no eligible urls")
	}
	if sel.PDFExtractionDisabledReason == "" {
		t.Fatalf("expected disabled reason")
	}
}

func TestSelectCandidatesDirectVolumeDisablesPDF(t *testing.T) {
	papers := make([]models.PaperMetadata, 8)
	for i := range papers {
		papers[i] = models.PaperMetadata{PaperID: "p", Title: "T"}
	}
	sel := SelectCandidates(papers, 10, false, 0, true, 0)
	if sel.EffectivePDFExtraction {
		t.Fatalf("expected pdf extraction disabled at high candidate volume")
	}
}

func TestSelectCandidatesDirectDefaultsPDFAllowed(t *testing.T) {
	optOut := false
	papers := []models.PaperMetadata{
		{PaperID: "p1", Title: "One", PDFURL: "https://x/1.pdf"},
		{PaperID: "p2", Title: "Two", PDFURL: "https://x/2.pdf", AllowPDFExtract: &optOut},
	}
	sel := SelectCandidates(papers, 10, false, 0, true, 0)
	if !sel.EffectivePDFExtraction {
		t.Fatalf("expected effective pdf extraction in direct mode")
	}
	if !sel.Selected[0].PDFExtractAllowed() {
		t.Fatalf("caller paper without a flag should default to pdf-allowed")
	}
	if sel.Selected[1].PDFExtractAllowed() {
		t.Fatalf("explicit caller opt-out should stand")
	}
}
