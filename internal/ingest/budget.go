package ingest

import "time"

// Budget is the single wall-clock supervisor for one ingest run. It is
// consulted at paper-start boundaries and before expensive stages; work
// already in flight is allowed to finish so no paper ends up with a
// partially written chunk set.
type Budget struct {
	start time.Time
	total time.Duration
	now   func() time.Time
}

// pdfReserve and embedReserve are how much of the budget must remain before
// starting PDF extraction or the embed+upsert stage for a paper.
const (
	pdfReserve   = 4 * time.Second
	embedReserve = 3 * time.Second
)

func NewBudget(total time.Duration, now func() time.Time) *Budget {
	if now == nil {
		now = time.Now
	}
	return &Budget{start: now(), total: total, now: now}
}

func (b *Budget) Elapsed() time.Duration {
	return b.now().Sub(b.start)
}

func (b *Budget) Remaining() time.Duration {
	return b.total - b.Elapsed()
}

// Exhausted reports whether no time remains to start a new paper.
func (b *Budget) Exhausted() bool {
	return b.total > 0 && b.Elapsed() >= b.total
}

// exhaustedWithin reports whether less than reserve remains, with at least
// one second of headroom always counted as spendable.
func (b *Budget) exhaustedWithin(reserve time.Duration) bool {
	if b.total <= 0 {
		return false
	}
	limit := b.total - reserve
	if limit < time.Second {
		limit = time.Second
	}
	return b.Elapsed() >= limit
}

// CanStartPDF reports whether enough budget remains to fetch and extract a
// PDF for the current paper.
func (b *Budget) CanStartPDF() bool {
	return !b.exhaustedWithin(pdfReserve)
}

// CanStartEmbed reports whether enough budget remains to embed and upsert
// the current paper's chunks.
func (b *Budget) CanStartEmbed() bool {
	return !b.exhaustedWithin(embedReserve)
}
