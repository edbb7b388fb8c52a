package ingest

import (
	"regexp"
	"strings"

	"litrag/internal/models"
	"litrag/internal/util"
)

// maxProfileSentenceChars caps each extracted profile sentence.
const maxProfileSentenceChars = 450

var (
	sentenceBoundaryRe = regexp.MustCompile(`(?:[.!?])\s+`)

	datasetSizeRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(n\s*=\s*\d[\d,]*)\b`),
		regexp.MustCompile(`(?i)\b(\d[\d,]*\s+(?:participants|patients|subjects|samples|records|observations))\b`),
		regexp.MustCompile(`(?i)\b(dataset\s+of\s+\d[\d,]*)\b`),
	}

	modelTypeLabels = []string{
		"randomized controlled trial",
		"meta-analysis",
		"systematic review",
		"transformer",
		"bert",
		"gpt",
		"cnn",
		"rnn",
		"xgboost",
		"random forest",
		"bayesian",
		"difference-in-differences",
		"regression",
	}
)

// ExtractProfile pulls structured fields out of a paper's merged text with
// keyword-sentence heuristics. All fields are best effort and may be empty.
func ExtractProfile(text string) models.PaperProfile {
	clean := util.NormalizeSpace(text)
	if clean == "" {
		return models.PaperProfile{}
	}
	sentences := splitSentences(clean)
	return models.PaperProfile{
		ResearchQuestion: keywordSentence(sentences,
			"we investigate", "this paper studies", "research question", "we ask whether", "aim of this"),
		Methodology: keywordSentence(sentences,
			"method", "we use", "we propose", "experiment", "trial", "survey", "model", "approach"),
		DatasetSize: extractDatasetSize(clean),
		ModelType:   extractModelType(clean),
		KeyFindings: keywordSentence(sentences,
			"we find", "results show", "our results", "we observe", "conclude", "significant"),
		LimitationsText: keywordSentence(sentences,
			"limitation", "limited by", "constraint", "threat to validity", "caution"),
		FutureWork: keywordSentence(sentences,
			"future work", "further research", "next steps", "remain unknown"),
	}
}

func splitSentences(text string) []string {
	raw := sentenceBoundaryRe.Split(text, -1)
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// keywordSentence returns the first sentence containing any keyword, or the
// first sentence at all when nothing matches.
func keywordSentence(sentences []string, keywords ...string) string {
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				return truncateChars(sentence, maxProfileSentenceChars)
			}
		}
	}
	if len(sentences) > 0 {
		return truncateChars(sentences[0], maxProfileSentenceChars)
	}
	return ""
}

func extractDatasetSize(text string) string {
	for _, re := range datasetSizeRes {
		if m := re.FindStringSubmatch(text); len(m) > 1 {
			return util.NormalizeSpace(m[1])
		}
	}
	return ""
}

func extractModelType(text string) string {
	lower := strings.ToLower(text)
	for _, label := range modelTypeLabels {
		if strings.Contains(lower, label) {
			return label
		}
	}
	return ""
}

func truncateChars(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
