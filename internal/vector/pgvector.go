package vector

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"litrag/internal/models"
)

// PGVectorIndex stores chunk embeddings in Postgres with the pgvector
// extension. Year and source are kept as real columns so metadata filters
// run in SQL; everything else rides in a jsonb blob.
type PGVectorIndex struct {
	pool  *pgxpool.Pool
	table string
	dim   int
}

func NewPGVectorIndex(ctx context.Context, connString, table string, dim int) (*PGVectorIndex, error) {
	if table == "" {
		table = "chunk_vectors"
	}
	if dim <= 0 {
		dim = 1536
	}
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	idx := &PGVectorIndex{pool: pool, table: table, dim: dim}
	if err := idx.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (x *PGVectorIndex) initialize(ctx context.Context) error {
	if _, err := x.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			namespace TEXT NOT NULL,
			id TEXT NOT NULL,
			paper_id TEXT NOT NULL,
			year INTEGER NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT '',
			embedding vector(%d),
			metadata JSONB,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (namespace, id)
		)`, x.table, x.dim)
	if _, err := x.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("create table %s: %w", x.table, err)
	}
	embIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`, x.table, x.table)
	if _, err := x.pool.Exec(ctx, embIndex); err != nil {
		return fmt.Errorf("create embedding index: %w", err)
	}
	paperIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_paper_idx
		ON %s (namespace, paper_id)`, x.table, x.table)
	if _, err := x.pool.Exec(ctx, paperIndex); err != nil {
		return fmt.Errorf("create paper index: %w", err)
	}
	return nil
}

func (x *PGVectorIndex) Provider() string { return "pgvector" }

func (x *PGVectorIndex) Upsert(ctx context.Context, namespace string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := x.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (namespace, id, paper_id, year, source, embedding, metadata, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (namespace, id) DO UPDATE SET
			paper_id = EXCLUDED.paper_id,
			year = EXCLUDED.year,
			source = EXCLUDED.source,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_at = now()`, x.table)

	for _, rec := range records {
		metaJSON, err := json.Marshal(rec.Meta)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}
		_, err = tx.Exec(ctx, stmt,
			namespace,
			rec.ID,
			rec.Meta.PaperID,
			rec.Meta.Year,
			rec.Meta.Source,
			pgvector.NewVector(rec.Vector),
			metaJSON,
		)
		if err != nil {
			return fmt.Errorf("upsert record %s: %w", rec.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

func (x *PGVectorIndex) Query(ctx context.Context, namespace string, vec []float32, topK int, filter models.MetadataFilter) ([]Match, error) {
	if topK <= 0 {
		topK = 8
	}
	query := fmt.Sprintf(`
		SELECT id, metadata, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE namespace = $2
		  AND ($3 <= 0 OR year >= $3)
		  AND ($4 = '' OR source = $4)
		ORDER BY embedding <=> $1
		LIMIT $5`, x.table)

	rows, err := x.pool.Query(ctx, query,
		pgvector.NewVector(vec), namespace, filter.MinYear, filter.Source, topK)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var metaJSON []byte
		if err := rows.Scan(&m.ID, &metaJSON, &m.Score); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &m.Meta); err != nil {
				return nil, fmt.Errorf("decode chunk metadata: %w", err)
			}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}

func (x *PGVectorIndex) DeletePaper(ctx context.Context, namespace, paperID string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE namespace = $1 AND paper_id = $2", x.table)
	if _, err := x.pool.Exec(ctx, stmt, namespace, paperID); err != nil {
		return fmt.Errorf("delete paper vectors: %w", err)
	}
	return nil
}

func (x *PGVectorIndex) Close() {
	x.pool.Close()
}
