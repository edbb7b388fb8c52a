package discovery

import (
	"fmt"

	"litrag/internal/models"
)

// Selection is the capped candidate set for one ingest run plus the PDF
// extraction decisions made for it.
type Selection struct {
	Selected []models.PaperMetadata
	Deferred []models.PaperMetadata

	RequestedPDFExtraction      bool
	EffectivePDFExtraction      bool
	PDFExtractionDisabledReason string
	QueryPDFExtractionSelected  int
}

// maxDirectPDFCandidates bounds how many caller-supplied papers may carry
// PDF extraction before it is disabled wholesale to stay synchronous.
const maxDirectPDFCandidates = 6

// SelectCandidates caps the merged candidate list and decides PDF
// extraction eligibility. queryMode is true when candidates came from
// discovery; it re-ranks by ingest priority, also honors the discovery
// limit, and restricts PDF extraction to the first pdfPaperLimit
// candidates that actually have a PDF URL.
func SelectCandidates(candidates []models.PaperMetadata, maxCandidates int, queryMode bool, discoveryLimit int, extractPDF bool, pdfPaperLimit int) Selection {
	pool := make([]models.PaperMetadata, len(candidates))
	copy(pool, candidates)
	if queryMode {
		SortByIngestPriority(pool)
	}

	keep := maxCandidates
	if keep > len(pool) {
		keep = len(pool)
	}
	if queryMode && discoveryLimit > 0 && discoveryLimit < keep {
		keep = discoveryLimit
	}
	if keep < 0 {
		keep = 0
	}

	sel := Selection{
		Selected:               pool[:keep],
		Deferred:               pool[keep:],
		RequestedPDFExtraction: extractPDF,
		EffectivePDFExtraction: extractPDF,
	}

	switch {
	case queryMode && extractPDF:
		// Discovered papers opt in explicitly; only the first pdfPaperLimit
		// candidates with a PDF URL get marked.
		for i := range sel.Selected {
			sel.Selected[i].AllowPDFExtract = boolPtr(false)
		}
		if pdfPaperLimit > 0 {
			for i := range sel.Selected {
				if sel.QueryPDFExtractionSelected >= pdfPaperLimit {
					break
				}
				if sel.Selected[i].PDFURL != "" {
					sel.Selected[i].AllowPDFExtract = boolPtr(true)
					sel.QueryPDFExtractionSelected++
				}
			}
		}
		sel.EffectivePDFExtraction = sel.QueryPDFExtractionSelected > 0
		if sel.QueryPDFExtractionSelected == 0 {
			sel.PDFExtractionDisabledReason = "PDF extraction requested, but no eligible PDF URLs were selected in this query batch."
		} else if sel.QueryPDFExtractionSelected < len(sel.Selected) {
			sel.PDFExtractionDisabledReason = fmt.Sprintf(
				"PDF extraction limited to top %d query candidates to stay within the synchronous time budget.",
				sel.QueryPDFExtractionSelected)
		}
	case extractPDF && len(sel.Selected) > maxDirectPDFCandidates:
		sel.EffectivePDFExtraction = false
		sel.PDFExtractionDisabledReason = "PDF extraction was disabled because candidate volume is too high for synchronous ingestion."
	case extractPDF:
		// Caller-supplied papers default to allowed; an explicit false from
		// the caller stands.
		for i := range sel.Selected {
			if sel.Selected[i].AllowPDFExtract == nil {
				sel.Selected[i].AllowPDFExtract = boolPtr(true)
			}
		}
	}

	return sel
}

func boolPtr(b bool) *bool { return &b }

// DeferredSkips renders the deferred candidates as skip entries for the
// ingest outcome so papers over the cap are reported, never silently lost.
func (s Selection) DeferredSkips(totalCandidates int) []models.SkippedPaper {
	if len(s.Deferred) == 0 {
		return nil
	}
	out := make([]models.SkippedPaper, 0, len(s.Deferred))
	for _, p := range s.Deferred {
		out = append(out, models.SkippedPaper{
			PaperID: p.PaperID,
			Title:   p.Title,
			Reason: fmt.Sprintf("Deferred due to ingest candidate cap (%d/%d). Retry in smaller batches.",
				len(s.Selected), totalCandidates),
		})
	}
	return out
}
