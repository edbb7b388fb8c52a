package rag

import (
	"encoding/json"
	"strings"
)

// answerPayload mirrors the JSON shape requested from the completion
// capability for qa/synthesis/comparison/outline tasks.
type answerPayload struct {
	Answer              string   `json:"answer"`
	CrossPaperSynthesis []string `json:"cross_paper_synthesis"`
	Limitations         []string `json:"limitations"`
	NextQuestions       []string `json:"next_questions"`
	Confidence          string   `json:"confidence"`
}

type insightsPayload struct {
	AgreementClusters         []string `json:"agreement_clusters"`
	Contradictions            []string `json:"contradictions"`
	MethodologicalDifferences []string `json:"methodological_differences"`
	TimelineEvolution         []string `json:"timeline_evolution"`
	ResearchGaps              []string `json:"research_gaps"`
}

type gapsPayload struct {
	Gaps               []string `json:"gaps"`
	SupportingEvidence []string `json:"supporting_evidence"`
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// extractJSONObject pulls the outermost {...} span out of model text that
// wraps its JSON in prose.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func decodeStrict(raw string, target any) bool {
	raw = stripCodeFence(raw)
	if raw == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), target); err == nil {
		return true
	}
	if obj := extractJSONObject(raw); obj != "" {
		if err := json.Unmarshal([]byte(obj), target); err == nil {
			return true
		}
	}
	return false
}

// parseAnswer decodes a structured answer. The second return is false when
// the text was unparseable and the caller must fall back to raw-text mode.
func parseAnswer(raw string) (answerPayload, bool) {
	var p answerPayload
	if !decodeStrict(raw, &p) || strings.TrimSpace(p.Answer) == "" {
		return answerPayload{}, false
	}
	return p, true
}

func parseInsights(raw string) (insightsPayload, bool) {
	var p insightsPayload
	if !decodeStrict(raw, &p) {
		return insightsPayload{}, false
	}
	return p, true
}

func parseGaps(raw string) (gapsPayload, bool) {
	var p gapsPayload
	if !decodeStrict(raw, &p) || len(p.Gaps) == 0 {
		return gapsPayload{}, false
	}
	return p, true
}
