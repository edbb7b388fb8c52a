package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"litrag/internal/util"
)

// maxDownloadBytes caps the PDF body we are willing to buffer.
const maxDownloadBytes = 32 << 20

// Extractor fetches a PDF over HTTP and extracts bounded plain text from
// it. Page and character caps keep extraction time predictable inside a
// synchronous ingest call.
type Extractor struct {
	client    *http.Client
	userAgent string
	maxPages  int
	maxChars  int
}

func New(userAgent string, fetchTimeout time.Duration, maxPages, maxChars int) *Extractor {
	if fetchTimeout <= 0 {
		fetchTimeout = 12 * time.Second
	}
	if maxPages <= 0 {
		maxPages = 8
	}
	if maxChars <= 0 {
		maxChars = 120000
	}
	return &Extractor{
		client:    &http.Client{Timeout: fetchTimeout},
		userAgent: userAgent,
		maxPages:  maxPages,
		maxChars:  maxChars,
	}
}

// ExtractFromURL returns "" without error when the URL does not serve a
// PDF; a paper with no extractable text falls back to its abstract or
// metadata chunk instead of failing ingestion.
func (e *Extractor) ExtractFromURL(ctx context.Context, pdfURL string) (string, error) {
	if strings.TrimSpace(pdfURL) == "" {
		return "", nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return "", fmt.Errorf("build pdf request: %w", err)
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch pdf: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch pdf: unexpected status %d", resp.StatusCode)
	}

	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(contentType, "pdf") && !strings.HasSuffix(strings.ToLower(pdfURL), ".pdf") {
		return "", nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return "", fmt.Errorf("read pdf body: %w", err)
	}
	if len(data) == 0 {
		return "", nil
	}
	return e.ExtractFromBytes(data)
}

func (e *Extractor) ExtractFromBytes(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var parts []string
	total := 0
	pages := reader.NumPage()
	if pages > e.maxPages {
		pages = e.maxPages
	}
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page does not sink the document.
			continue
		}
		pageText = util.NormalizeSpace(util.SanitizeText(pageText))
		if pageText == "" {
			continue
		}
		parts = append(parts, pageText)
		total += len(pageText)
		if total >= e.maxChars {
			break
		}
	}

	joined := strings.Join(parts, "\n")
	if len(joined) > e.maxChars {
		joined = joined[:e.maxChars]
	}
	if strings.TrimSpace(joined) == "" {
		return "", util.ErrNoExtractableText
	}
	return joined, nil
}
