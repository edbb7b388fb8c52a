package ingest

import (
	"testing"
	"time"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestBudgetPaperStartBoundary(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := NewBudget(10*time.Second, clock.now)

	if b.Exhausted() {
		t.Fatalf("fresh budget should not be exhausted")
	}
	clock.advance(9 * time.Second)
	if b.Exhausted() {
		t.Fatalf("budget with time left should not be exhausted")
	}
	clock.advance(time.Second)
	if !b.Exhausted() {
		t.Fatalf("expected exhaustion at the full budget")
	}
}

func TestBudgetStageReserves(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := NewBudget(10*time.Second, clock.now)

	clock.advance(5 * time.Second)
	if !b.CanStartPDF() {
		t.Fatalf("pdf stage should start with 5s of 10s left")
	}
	clock.advance(time.Second)
	if b.CanStartPDF() {
		t.Fatalf("pdf stage needs more than 4s of headroom, exactly 4s left is short")
	}
	if !b.CanStartEmbed() {
		t.Fatalf("embed stage should still start with 4s left")
	}
	clock.advance(time.Second)
	if b.CanStartEmbed() {
		t.Fatalf("embed stage should be blocked with 3s left")
	}
}

func TestBudgetTinyTotalKeepsOneSecond(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := NewBudget(2*time.Second, clock.now)
	if !b.CanStartPDF() {
		t.Fatalf("at least one second should always be spendable")
	}
	clock.advance(time.Second)
	if b.CanStartPDF() {
		t.Fatalf("one second elapsed on a tiny budget blocks pdf extraction")
	}
}
