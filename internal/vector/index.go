package vector

import (
	"context"

	"litrag/internal/models"
)

// Record is one embedded chunk ready for the index. IDs are
// "<paperID>::chunk::<index>" so a paper's records can be replaced as a
// group.
type Record struct {
	ID     string
	Vector []float32
	Meta   models.ChunkMeta
}

// Match is a scored record returned by a query, highest similarity first.
type Match struct {
	ID    string
	Score float64
	Meta  models.ChunkMeta
}

// Index is the vector store capability. Namespaces are logical partitions
// created implicitly on first write and never auto-deleted.
type Index interface {
	Upsert(ctx context.Context, namespace string, records []Record) error
	Query(ctx context.Context, namespace string, vec []float32, topK int, filter models.MetadataFilter) ([]Match, error)
	DeletePaper(ctx context.Context, namespace, paperID string) error
	Provider() string
}
