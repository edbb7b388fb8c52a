package discovery

import (
	"context"
	"fmt"
	"strings"

	"litrag/internal/models"
)

// Source is the bibliographic discovery capability. Concrete HTTP clients
// live outside this module; callers register whatever sources they have.
type Source interface {
	Name() string
	Discover(ctx context.Context, query string, limit int) ([]models.PaperMetadata, error)
}

// MockSource returns deterministic synthetic papers for local runs and
// tests. Titles and identifiers are derived from the query so repeated
// discoveries dedupe against each other.
type MockSource struct {
	name string
}

func NewMockSource(name string) *MockSource {
	if strings.TrimSpace(name) == "" {
		name = "mock"
	}
	return &MockSource{name: name}
}

func (m *MockSource) Name() string { return m.name }

func (m *MockSource) Discover(ctx context.Context, query string, limit int) ([]models.PaperMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 8
	}
	topic := strings.TrimSpace(query)
	if topic == "" {
		topic = "untitled topic"
	}
	out := make([]models.PaperMetadata, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, models.PaperMetadata{
			Title:         fmt.Sprintf("A Study of %s, Part %d", topic, i+1),
			Abstract:      fmt.Sprintf("We study %s and report reproducible findings in part %d of a synthetic series.", topic, i+1),
			Authors:       []string{"Doe, J.", "Roe, A."},
			Year:          2020 + (i % 5),
			CitationCount: (limit - i) * 10,
			Venue:         "Synthetic Review",
			Source:        m.name,
		})
	}
	return out, nil
}
