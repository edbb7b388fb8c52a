package discovery

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"litrag/internal/models"
	"litrag/internal/util"
)

var titleKeyRe = regexp.MustCompile(`[^a-z0-9 ]`)

// NormalizePaper canonicalizes an incoming record: whitespace-cleaned
// fields, lowercased DOI without the resolver prefix, and a stable
// synthetic paper id when the source supplied none.
func NormalizePaper(raw models.PaperMetadata) models.PaperMetadata {
	p := raw
	p.Title = util.NormalizeSpace(util.SanitizeText(raw.Title))
	p.Abstract = util.NormalizeSpace(util.SanitizeText(raw.Abstract))
	p.FullText = util.SanitizeText(raw.FullText)
	p.Venue = util.NormalizeSpace(raw.Venue)
	p.URL = strings.TrimSpace(raw.URL)
	p.PDFURL = strings.TrimSpace(raw.PDFURL)
	p.PublicationDate = strings.TrimSpace(raw.PublicationDate)
	p.Source = util.NormalizeSpace(raw.Source)
	if p.Source == "" {
		p.Source = "custom"
	}

	doi := strings.ToLower(util.NormalizeSpace(raw.DOI))
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	p.DOI = doi

	p.Authors = normalizeAuthors(raw.Authors)

	p.PaperID = util.NormalizeSpace(raw.PaperID)
	if p.PaperID == "" {
		seed := fmt.Sprintf("%s|%s|%d", p.Title, p.DOI, p.Year)
		p.PaperID = "paper_" + util.SHA256Hex([]byte(seed))[:16]
	}
	if p.CitationCount < 0 {
		p.CitationCount = 0
	}
	return p
}

func normalizeAuthors(authors []string) []string {
	out := make([]string, 0, len(authors))
	for _, a := range authors {
		a = util.NormalizeSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// dedupKey prefers DOI, then a punctuation-stripped lowercase title, then
// the paper id. Records sharing a key are the same paper.
func dedupKey(p models.PaperMetadata) string {
	if p.DOI != "" {
		return "doi:" + p.DOI
	}
	title := strings.ToLower(p.Title)
	title = titleKeyRe.ReplaceAllString(title, "")
	title = util.NormalizeSpace(title)
	if title != "" {
		return "title:" + title
	}
	return "id:" + p.PaperID
}

func qualityScore(p models.PaperMetadata) [3]int {
	var s [3]int
	if p.Abstract != "" {
		s[0] = 1
	}
	if p.PDFURL != "" {
		s[1] = 1
	}
	s[2] = p.CitationCount
	return s
}

func scoreLess(a, b [3]int) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// MergePapers deduplicates normalized papers in input order. The first
// occurrence of a key wins its slot; a later higher-quality duplicate
// replaces the record in place, and either way missing fields are
// backfilled from the other copy.
func MergePapers(papers []models.PaperMetadata) []models.PaperMetadata {
	order := make([]string, 0, len(papers))
	selected := make(map[string]models.PaperMetadata, len(papers))
	for _, raw := range papers {
		p := NormalizePaper(raw)
		k := dedupKey(p)
		existing, ok := selected[k]
		if !ok {
			selected[k] = p
			order = append(order, k)
			continue
		}
		if scoreLess(qualityScore(existing), qualityScore(p)) {
			selected[k] = backfill(p, existing)
		} else {
			selected[k] = backfill(existing, p)
		}
	}
	out := make([]models.PaperMetadata, 0, len(order))
	for _, k := range order {
		out = append(out, selected[k])
	}
	return out
}

func backfill(winner, loser models.PaperMetadata) models.PaperMetadata {
	if winner.Abstract == "" {
		winner.Abstract = loser.Abstract
	}
	if winner.FullText == "" {
		winner.FullText = loser.FullText
	}
	if winner.PDFURL == "" {
		winner.PDFURL = loser.PDFURL
	}
	if winner.DOI == "" {
		winner.DOI = loser.DOI
	}
	if winner.URL == "" {
		winner.URL = loser.URL
	}
	if winner.Venue == "" {
		winner.Venue = loser.Venue
	}
	if winner.Year == 0 {
		winner.Year = loser.Year
	}
	if len(loser.Authors) > len(winner.Authors) {
		winner.Authors = loser.Authors
	}
	if loser.CitationCount > winner.CitationCount {
		winner.CitationCount = loser.CitationCount
	}
	return winner
}

// IngestPriority orders candidates so text-rich, well-cited, recent papers
// are ingested first when a cap or budget would cut the list short.
func IngestPriority(p models.PaperMetadata) [5]int {
	var s [5]int
	if p.Abstract != "" || p.FullText != "" {
		s[0] = 1
	}
	if p.Abstract != "" {
		s[1] = 1
	}
	if p.PDFURL != "" {
		s[2] = 1
	}
	s[3] = p.CitationCount
	s[4] = p.Year
	return s
}

// SortByIngestPriority is a stable descending sort on IngestPriority.
func SortByIngestPriority(papers []models.PaperMetadata) {
	sort.SliceStable(papers, func(i, j int) bool {
		a, b := IngestPriority(papers[i]), IngestPriority(papers[j])
		for k := 0; k < 5; k++ {
			if a[k] != b[k] {
				return a[k] > b[k]
			}
		}
		return false
	})
}
