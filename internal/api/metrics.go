package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the pipeline outcomes that matter operationally: how much
// was ingested, how often the time budget cut a run short, and how many
// questions each task family served.
type Metrics struct {
	PapersIngested    prometheus.Counter
	ChunksIngested    prometheus.Counter
	PapersFailed      prometheus.Counter
	BudgetExhaustions prometheus.Counter
	IngestRequests    prometheus.Counter
	AsksServed        *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PapersIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "litrag_papers_ingested_total",
			Help: "Papers fully embedded and upserted.",
		}),
		ChunksIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "litrag_chunks_ingested_total",
			Help: "Chunks embedded and upserted.",
		}),
		PapersFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "litrag_papers_failed_total",
			Help: "Papers that failed during ingest.",
		}),
		BudgetExhaustions: factory.NewCounter(prometheus.CounterOpts{
			Name: "litrag_ingest_budget_exhaustions_total",
			Help: "Ingest runs cut short by the time budget.",
		}),
		IngestRequests: factory.NewCounter(prometheus.CounterOpts{
			Name: "litrag_ingest_requests_total",
			Help: "Ingest requests received.",
		}),
		AsksServed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "litrag_asks_served_total",
			Help: "Questions served, by task family.",
		}, []string{"task"}),
	}
}
