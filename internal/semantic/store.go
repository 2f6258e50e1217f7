// Package semantic provides a sqlite-backed nearest-neighbor store over
// text embeddings. Vectors live as float32 blobs and queries scan the
// collection with a cosine-distance comparison, which is plenty for the
// corpus sizes a single world pack produces.
package semantic

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"

	_ "modernc.org/sqlite"

	"github.com/hollowmoor/tableside/internal/lore"
	"github.com/hollowmoor/tableside/internal/platform/storage/sqlitemigrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ErrEmptyVector indicates an embedder returned a zero-length vector.
var ErrEmptyVector = errors.New("embedding vector is empty")

// Embedder turns texts into embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Document is one indexable text with its source entry's uid.
type Document struct {
	UID  int64
	Lang string
	Text string
}

// Store is a sqlite-backed vector index. It implements lore.SemanticLookup.
type Store struct {
	db       *sql.DB
	embedder Embedder
}

// Open opens (creating if needed) the vector database at path and applies
// pending migrations. Use ":memory:" for an ephemeral index.
func Open(path string, embedder Embedder) (*Store, error) {
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open vector database: %w", err)
	}

	migrations, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	if err := sqlitemigrate.Apply(context.Background(), db, migrations); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate vector database: %w", err)
	}

	return &Store{db: db, embedder: embedder}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Index embeds the documents and upserts them into the collection.
func (s *Store) Index(ctx context.Context, collection string, documents []Document) error {
	if len(documents) == 0 {
		return nil
	}

	texts := make([]string, len(documents))
	for i, document := range documents {
		texts[i] = document.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(documents) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(documents))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin index: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, document := range documents {
		if len(vectors[i]) == 0 {
			return ErrEmptyVector
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO embeddings (collection, uid, lang, text, vector) VALUES (?, ?, ?, ?, ?)",
			collection, document.UID, document.Lang, document.Text, encodeVector(vectors[i]),
		); err != nil {
			return fmt.Errorf("index document %d: %w", document.UID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit index: %w", err)
	}
	return nil
}

// Query embeds the query and returns the k nearest documents in the
// collection. languageFilter narrows to one language when non-empty.
func (s *Store) Query(ctx context.Context, collection, query string, k int, languageFilter string) ([]lore.SemanticHit, error) {
	if k <= 0 {
		return nil, nil
	}

	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, ErrEmptyVector
	}
	queryVector := vectors[0]

	rows, err := s.queryRows(ctx, collection, languageFilter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []lore.SemanticHit
	for rows.Next() {
		var uid int64
		var text string
		var blob []byte
		if err := rows.Scan(&uid, &text, &blob); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		vector := decodeVector(blob)
		if len(vector) != len(queryVector) {
			continue
		}
		hits = append(hits, lore.SemanticHit{
			UID:      uid,
			Text:     text,
			Distance: cosineDistance(queryVector, vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate embeddings: %w", err)
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *Store) queryRows(ctx context.Context, collection, languageFilter string) (*sql.Rows, error) {
	if languageFilter == "" {
		return s.db.QueryContext(ctx,
			"SELECT uid, text, vector FROM embeddings WHERE collection = ?", collection)
	}
	return s.db.QueryContext(ctx,
		"SELECT uid, text, vector FROM embeddings WHERE collection = ? AND lang = ?",
		collection, languageFilter)
}

// cosineDistance is 1 - cosine similarity, clamped to [0, 2]. Degenerate
// zero vectors count as maximally distant.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func encodeVector(vector []float32) []byte {
	blob := make([]byte, 4*len(vector))
	for i, value := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(value))
	}
	return blob
}

func decodeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}
