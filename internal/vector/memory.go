package vector

import (
	"context"
	"math"
	"sort"
	"sync"

	"litrag/internal/models"
)

// MemoryIndex is an in-process Index used for tests and backend-free local
// runs. Query order matches the pgvector adapter: descending cosine
// similarity with stable insertion-order tie-breaks.
type MemoryIndex struct {
	mu         sync.RWMutex
	namespaces map[string][]Record
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{namespaces: make(map[string][]Record)}
}

func (m *MemoryIndex) Provider() string { return "memory" }

func (m *MemoryIndex) Upsert(ctx context.Context, namespace string, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.namespaces[namespace]
	for _, rec := range records {
		replaced := false
		for i := range existing {
			if existing[i].ID == rec.ID {
				existing[i] = rec
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, rec)
		}
	}
	m.namespaces[namespace] = existing
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, namespace string, vec []float32, topK int, filter models.MetadataFilter) ([]Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 8
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []Match
	for _, rec := range m.namespaces[namespace] {
		if filter.MinYear > 0 && rec.Meta.Year < filter.MinYear {
			continue
		}
		if filter.Source != "" && rec.Meta.Source != filter.Source {
			continue
		}
		matches = append(matches, Match{
			ID:    rec.ID,
			Score: cosineSimilarity(vec, rec.Vector),
			Meta:  rec.Meta,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) DeletePaper(ctx context.Context, namespace, paperID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	existing := m.namespaces[namespace]
	kept := existing[:0]
	for _, rec := range existing {
		if rec.Meta.PaperID != paperID {
			kept = append(kept, rec)
		}
	}
	m.namespaces[namespace] = kept
	return nil
}

// Count reports how many records a namespace holds.
func (m *MemoryIndex) Count(namespace string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.namespaces[namespace])
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
