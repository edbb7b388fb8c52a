package discovery

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"litrag/internal/models"
)

// Result is what one discovery round produces: the deduplicated candidate
// list plus the raw pre-dedup count and whether the shared deadline cut
// discovery short.
type Result struct {
	Papers          []models.PaperMetadata
	DiscoveredCount int
	BudgetHit       bool
	SourceErrors    map[string]string
}

// Aggregator fans a query out to every requested registered source under a
// shared deadline. A source that errors or times out contributes zero
// results without failing the round.
type Aggregator struct {
	sources map[string]Source
	logger  *zap.Logger
}

func NewAggregator(logger *zap.Logger, sources ...Source) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := make(map[string]Source, len(sources))
	for _, s := range sources {
		m[canonicalSourceTag(s.Name())] = s
	}
	return &Aggregator{sources: m, logger: logger}
}

// RegisteredTags lists the canonical tags of every registered source, in
// sorted order.
func (a *Aggregator) RegisteredTags() []string {
	tags := make([]string, 0, len(a.sources))
	for tag := range a.sources {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func canonicalSourceTag(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(name, "_", "")
}

// Discover runs one round against the requested source tags. Unknown tags
// are skipped silently so callers can pass a superset of what this
// deployment has registered. Results are interleaved round-robin by source
// in request order, with stable intra-source order, then deduplicated.
func (a *Aggregator) Discover(ctx context.Context, query string, sourceTags []string, limit int, budget time.Duration) Result {
	type sourceSlot struct {
		tag    string
		source Source
	}
	slots := make([]sourceSlot, 0, len(sourceTags))
	seen := make(map[string]bool, len(sourceTags))
	for _, tag := range sourceTags {
		key := canonicalSourceTag(tag)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		if s, ok := a.sources[key]; ok {
			slots = append(slots, sourceSlot{tag: key, source: s})
		}
	}
	if len(slots) == 0 {
		return Result{SourceErrors: map[string]string{}}
	}

	if budget <= 0 {
		budget = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	perSource := make([][]models.PaperMetadata, len(slots))
	errsBySource := make([]error, len(slots))
	g, gctx := errgroup.WithContext(ctx)
	for i := range slots {
		i := i
		g.Go(func() error {
			papers, err := slots[i].source.Discover(gctx, query, limit)
			if err != nil {
				errsBySource[i] = err
				return nil
			}
			perSource[i] = papers
			return nil
		})
	}
	_ = g.Wait()

	res := Result{SourceErrors: map[string]string{}}
	res.BudgetHit = ctx.Err() != nil
	for i, err := range errsBySource {
		if err != nil {
			res.SourceErrors[slots[i].tag] = err.Error()
			a.logger.Warn("discovery source failed",
				zap.String("source", slots[i].tag),
				zap.Error(err))
		}
	}

	merged := interleave(perSource)
	res.DiscoveredCount = len(merged)
	res.Papers = MergePapers(merged)
	return res
}

func interleave(perSource [][]models.PaperMetadata) []models.PaperMetadata {
	total := 0
	for _, list := range perSource {
		total += len(list)
	}
	out := make([]models.PaperMetadata, 0, total)
	for round := 0; len(out) < total; round++ {
		for _, list := range perSource {
			if round < len(list) {
				out = append(out, list[round])
			}
		}
	}
	return out
}
