package rag

import (
	"fmt"
	"sort"
	"strings"

	"litrag/internal/models"
	"litrag/internal/util"
)

var recurringLimitationTokens = []string{
	"small sample",
	"single center",
	"generalizability",
	"demographic",
	"short follow-up",
	"observational",
}

// heuristicResearchGaps derives gap statements from recurring limitation
// tokens and future-work signals when no completion capability is
// available.
func heuristicResearchGaps(profiles []models.RankedPaper) []string {
	var gaps []string
	var limitations, futureWork []string
	for _, p := range profiles {
		if p.Limitations != "" {
			limitations = append(limitations, p.Limitations)
		}
		if p.FutureWork != "" {
			futureWork = append(futureWork, p.FutureWork)
		}
	}
	for _, token := range recurringLimitationTokens {
		count := 0
		for _, sentence := range limitations {
			if strings.Contains(strings.ToLower(sentence), token) {
				count++
			}
		}
		if count >= 2 {
			gaps = append(gaps, fmt.Sprintf(
				"Multiple studies report '%s' as a recurring limitation, suggesting under-covered evidence in that dimension.", token))
		}
	}
	if len(futureWork) > 0 {
		gaps = append(gaps, "Future-work statements across papers indicate unresolved questions that need controlled validation.")
	}
	if len(gaps) == 0 && len(limitations) > 0 {
		gaps = append(gaps, "The corpus repeatedly flags methodological constraints; targeted replication studies are needed.")
	}
	if len(gaps) > 6 {
		gaps = gaps[:6]
	}
	return gaps
}

// heuristicInsights builds an extractive insights payload: methodology
// frequency clusters, a publication timeline, and heuristic gaps.
func heuristicInsights(profiles []models.RankedPaper) insightsPayload {
	byYear := make([]models.RankedPaper, len(profiles))
	copy(byYear, profiles)
	sort.SliceStable(byYear, func(i, j int) bool { return byYear[i].Year < byYear[j].Year })

	var timeline []string
	for _, p := range byYear {
		if p.Year == 0 {
			continue
		}
		entry := fmt.Sprintf("%d: %s", p.Year, p.Title)
		if p.CitationNumber > 0 {
			entry += fmt.Sprintf(" [%d]", p.CitationNumber)
		}
		timeline = append(timeline, entry)
	}
	if len(timeline) > 8 {
		timeline = timeline[:8]
	}

	methodCounts := make(map[string]int)
	var methodOrder []string
	var methodologies []string
	for _, p := range profiles {
		label := strings.ToLower(util.NormalizeSpace(p.Methodology))
		if label == "" {
			continue
		}
		if _, seen := methodCounts[label]; !seen {
			methodOrder = append(methodOrder, label)
		}
		methodCounts[label]++
		methodologies = append(methodologies, p.Methodology)
	}
	sort.SliceStable(methodOrder, func(i, j int) bool {
		return methodCounts[methodOrder[i]] > methodCounts[methodOrder[j]]
	})
	if len(methodOrder) > 4 {
		methodOrder = methodOrder[:4]
	}
	clusters := make([]string, 0, len(methodOrder))
	for _, label := range methodOrder {
		clusters = append(clusters, fmt.Sprintf("%s appears in %d high-ranked papers.", label, methodCounts[label]))
	}
	if len(methodologies) > 6 {
		methodologies = methodologies[:6]
	}

	return insightsPayload{
		AgreementClusters:         clusters,
		Contradictions:            []string{},
		MethodologicalDifferences: methodologies,
		TimelineEvolution:         timeline,
		ResearchGaps:              heuristicResearchGaps(profiles),
	}
}
