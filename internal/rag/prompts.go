package rag

import (
	"encoding/json"
	"fmt"
	"strings"

	"litrag/internal/models"
)

const answerSystemPrompt = "You are a rigorous research assistant. " +
	"Only use supplied context, and never invent sources. " +
	"If evidence is weak or missing, state uncertainty."

const insightsSystemPrompt = "You are a literature intelligence engine. " +
	"Only use provided context and structured rows. " +
	"Every factual statement must be source-grounded. Prefer concise bullets."

const gapsSystemPrompt = "Identify evidence-grounded research gaps only from provided material. " +
	"Every gap must include citation tags [n]."

var taskInstructions = map[string]string{
	"qa": "Answer the user question with grounded, source-aware reasoning. " +
		"Use citation tags like [1], [2] inline for each factual claim.",
	"synthesis": "Synthesize cross-paper consensus, disagreements, and evidence quality. " +
		"Use inline citations [n] and explicitly compare studies.",
	"comparison": "Provide a paper-to-paper comparison across methods, datasets, assumptions, and outcomes. " +
		"Use inline citations [n].",
	"outline": "Generate a structured literature review outline with section headings and key points. " +
		"Attach inline citations [n] to each key point.",
}

// NormalizeTask narrows a task string to a known answer task.
func NormalizeTask(task string) string {
	task = strings.ToLower(strings.TrimSpace(task))
	if _, ok := taskInstructions[task]; ok {
		return task
	}
	return "qa"
}

func shortReferences(references []models.Reference) string {
	lines := make([]string, 0, len(references))
	for _, r := range references {
		year := "n.d."
		if r.Year > 0 {
			year = fmt.Sprintf("%d", r.Year)
		}
		lines = append(lines, fmt.Sprintf("[%d] %s (%s)", r.CitationNumber, r.Title, year))
	}
	return strings.Join(lines, "\n")
}

func buildAnswerPrompt(question, task, contextText string, references []models.Reference) string {
	return fmt.Sprintf(`Task: %s
Question: %s

Instruction: %s

Allowed citations:
%s

Context chunks:
%s

Return valid JSON with:
{
  "answer": "Main answer with inline [n] citations.",
  "cross_paper_synthesis": ["cross-paper point 1", "cross-paper point 2"],
  "limitations": ["limitation 1", "limitation 2"],
  "next_questions": ["next query 1", "next query 2"],
  "confidence": "high|medium|low"
}
`, task, question, taskInstructions[task], shortReferences(references), contextText)
}

func buildInsightsPrompt(question, contextText string, references []models.Reference, profiles []models.RankedPaper) string {
	if len(profiles) > 16 {
		profiles = profiles[:16]
	}
	rows, _ := json.Marshal(profiles)
	return fmt.Sprintf(`Question: %s

Allowed citations:
%s

Structured paper rows:
%s

Retrieved context:
%s

Return JSON:
{
  "agreement_clusters": ["... [n]"],
  "contradictions": ["... [n][m]"],
  "methodological_differences": ["... [n]"],
  "timeline_evolution": ["YYYY: ... [n]"],
  "research_gaps": ["... [n]"]
}`, question, shortReferences(references), string(rows), contextText)
}

func buildGapsPrompt(question, contextText string, references []models.Reference) string {
	return fmt.Sprintf(`Question: %s

Allowed citations:
%s

Context:
%s

Return JSON with:
{
  "gaps": ["gap statement [n]"],
  "supporting_evidence": ["evidence statement [n]"]
}`, question, shortReferences(references), contextText)
}
