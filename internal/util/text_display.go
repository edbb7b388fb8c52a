package util

import (
	"strings"
	"unicode"
)

// DisplaySnippet cleans chunk text for an API payload: control bytes and
// unprintable runes dropped, whitespace collapsed, rune-safe truncation
// with a trailing ellipsis.
func DisplaySnippet(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 420
	}
	s = NormalizeSpace(SanitizeText(s))
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if !unicode.IsPrint(r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) || unicode.IsPunct(r) {
			out = append(out, r)
		}
	}
	runes := []rune(strings.TrimSpace(string(out)))
	if len(runes) > maxRunes {
		return strings.TrimSpace(string(runes[:maxRunes])) + "..."
	}
	return string(runes)
}

// DisplayEvidenceSnippet picks the sentence of a chunk that best matches
// the question. Chunks lead with title and abstract text, so a tie goes to
// the earlier sentence, and when the next sentence also matches it rides
// along so the evidence reads in document order.
func DisplayEvidenceSnippet(chunkText, query string, maxRunes int) string {
	text := DisplaySnippet(chunkText, 4000)
	if text == "" {
		return ""
	}
	terms := queryTerms(query)
	if len(terms) == 0 {
		return DisplaySnippet(text, maxRunes)
	}
	sentences := splitSentences(text)

	best, bestHits := -1, 0
	for i, s := range sentences {
		if hits := termHits(s, terms); hits > bestHits {
			best, bestHits = i, hits
		}
	}
	if best < 0 {
		return DisplaySnippet(text, maxRunes)
	}
	picked := sentences[best]
	if best+1 < len(sentences) && termHits(sentences[best+1], terms) > 0 {
		picked += " " + sentences[best+1]
	}
	return DisplaySnippet(picked, maxRunes)
}

func termHits(sentence string, terms []string) int {
	low := strings.ToLower(sentence)
	hits := 0
	for _, t := range terms {
		if strings.Contains(low, t) {
			hits++
		}
	}
	return hits
}

func splitSentences(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if r == '.' || r == '!' || r == '?' {
			if sent := strings.TrimSpace(s[start : i+1]); sent != "" {
				out = append(out, sent)
			}
			start = i + 1
		}
	}
	if sent := strings.TrimSpace(s[start:]); sent != "" {
		out = append(out, sent)
	}
	return out
}

var snippetStopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "to": {}, "of": {}, "in": {}, "on": {},
	"for": {}, "is": {}, "are": {}, "was": {}, "were": {}, "what": {}, "how": {}, "why": {},
	"which": {}, "that": {}, "this": {}, "these": {}, "those": {}, "with": {}, "from": {}, "across": {},
}

func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(DisplaySnippet(query, 2000)))
	seen := map[string]struct{}{}
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ",.;:!?()[]{}\"'`")
		if len(f) < 3 {
			continue
		}
		if _, ok := snippetStopwords[f]; ok {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}
