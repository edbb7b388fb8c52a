package util

import (
	"regexp"
	"sort"
	"strings"
)

// ChunkWords splits text into chunks of at most size words, with overlap
// words shared between consecutive chunks. A final chunk shorter than
// minWords is merged into the previous chunk rather than emitted as a
// fragment; a lone short chunk is kept so every non-empty text yields at
// least one chunk.
func ChunkWords(text string, size, overlap, minWords int) ([]string, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, ErrChunkConfig
	}
	words := strings.Fields(SanitizeText(text))
	if len(words) == 0 {
		return nil, nil
	}
	if len(words) <= size {
		return []string{strings.Join(words, " ")}, nil
	}

	step := size - overlap
	starts := make([]int, 0, (len(words)-overlap)/step+1)
	chunks := make([]string, 0, cap(starts))
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		starts = append(starts, start)
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}

	tail := len(words) - starts[len(starts)-1]
	if len(chunks) > 1 && tail < minWords {
		prev := starts[len(starts)-2]
		chunks[len(chunks)-2] = strings.Join(words[prev:], " ")
		chunks = chunks[:len(chunks)-1]
	}
	return chunks, nil
}

// Section is a labeled segment of a paper's text, located by heading
// keywords. Chunking runs per section so chunk metadata can say where in the
// paper a span came from.
type Section struct {
	Name string
	Text string
}

var sectionPatterns = []struct {
	re    *regexp.Regexp
	label string
}{
	{regexp.MustCompile(`(?i)\babstract\b`), "abstract"},
	{regexp.MustCompile(`(?i)\bintroduction\b`), "introduction"},
	{regexp.MustCompile(`(?i)\bbackground\b`), "background"},
	{regexp.MustCompile(`(?i)\brelated work\b`), "related_work"},
	{regexp.MustCompile(`(?i)\bmethods?\b`), "methods"},
	{regexp.MustCompile(`(?i)\bmaterials and methods\b`), "methods"},
	{regexp.MustCompile(`(?i)\bexperimental setup\b`), "methods"},
	{regexp.MustCompile(`(?i)\bdatasets?\b`), "dataset"},
	{regexp.MustCompile(`(?i)\bresults?\b`), "results"},
	{regexp.MustCompile(`(?i)\banalysis\b`), "analysis"},
	{regexp.MustCompile(`(?i)\bdiscussion\b`), "discussion"},
	{regexp.MustCompile(`(?i)\blimitations?\b`), "limitations"},
	{regexp.MustCompile(`(?i)\bfuture work\b`), "future_work"},
	{regexp.MustCompile(`(?i)\bconclusions?\b`), "conclusion"},
}

// SplitSections segments text at recognized heading keywords. Text before
// the first heading (or all of it, when no heading matches) lands in a
// "body" section.
func SplitSections(text string) []Section {
	clean := NormalizeSpace(text)
	if clean == "" {
		return nil
	}

	type marker struct {
		pos   int
		label string
	}
	markers := []marker{{0, "body"}}
	for _, p := range sectionPatterns {
		for _, loc := range p.re.FindAllStringIndex(clean, -1) {
			if loc[0] > 0 {
				markers = append(markers, marker{loc[0], p.label})
			}
		}
	}
	sort.SliceStable(markers, func(i, j int) bool { return markers[i].pos < markers[j].pos })

	seen := make(map[int]struct{}, len(markers))
	dedup := markers[:0]
	for _, m := range markers {
		if _, ok := seen[m.pos]; ok {
			continue
		}
		seen[m.pos] = struct{}{}
		dedup = append(dedup, m)
	}

	sections := make([]Section, 0, len(dedup))
	for i, m := range dedup {
		end := len(clean)
		if i+1 < len(dedup) {
			end = dedup[i+1].pos
		}
		segment := strings.TrimSpace(clean[m.pos:end])
		if segment == "" {
			continue
		}
		sections = append(sections, Section{Name: m.label, Text: segment})
	}
	if len(sections) == 0 {
		return []Section{{Name: "body", Text: clean}}
	}
	return sections
}

// NormalizeSpace sanitizes text and collapses all whitespace runs to single
// spaces.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(SanitizeText(s)), " ")
}
