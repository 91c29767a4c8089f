// Package sqlite provides a SQLite-backed embedding store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kioku/internal/models"
)

// Store persists embedding records in a SQLite database. Vectors are stored
// as little-endian float32 blobs. Search is brute force over all records;
// the memory sizes this store targets keep that acceptable.
type Store struct {
	db         *sql.DB
	dimensions int
}

// NewStore opens or creates a database at dbPath with the given fixed
// dimensionality. Parent directories are created if they do not exist.
func NewStore(dbPath string, dimensions int) (*Store, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return &Store{db: db, dimensions: dimensions}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tag TEXT NOT NULL,
		text TEXT NOT NULL,
		vector BLOB NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_records_tag ON records(tag, id);
	`
	_, err := db.Exec(schema)
	return err
}

// Insert appends a record and returns its insertion index.
func (s *Store) Insert(ctx context.Context, tag, text string, vector []float32) (uint32, error) {
	if len(vector) != s.dimensions {
		return 0, fmt.Errorf("insert: got %d, expected %d: %w", len(vector), s.dimensions, models.ErrDimensionMismatch)
	}
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO records (tag, text, vector) VALUES (?, ?, ?)`,
		tag, text, vectorToBytes(vector),
	)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert record id: %w", err)
	}
	return uint32(id), nil
}

// SearchNearest returns the top-k records by dot product, ties broken by
// insertion index (rows are scanned in id order and sorted stably).
func (s *Store) SearchNearest(ctx context.Context, vector []float32, k int) ([]models.Hit, error) {
	if len(vector) != s.dimensions {
		return nil, fmt.Errorf("search: got %d, expected %d: %w", len(vector), s.dimensions, models.ErrDimensionMismatch)
	}
	if k <= 0 {
		return []models.Hit{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT text, vector FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var hits []models.Hit
	for rows.Next() {
		var text string
		var blob []byte
		if err := rows.Scan(&text, &blob); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec := bytesToVector(blob)
		var dot float64
		for j := 0; j < s.dimensions && j < len(rec); j++ {
			dot += float64(vector[j] * rec[j])
		}
		hits = append(hits, models.Hit{Score: dot, Text: text})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	if hits == nil {
		return []models.Hit{}, nil
	}
	return hits[:k], nil
}

// FetchByTag returns the tag's vectors in insertion order.
func (s *Store) FetchByTag(ctx context.Context, tag string) ([][]float32, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT vector FROM records WHERE tag = ? ORDER BY id`, tag)
	if err != nil {
		return nil, fmt.Errorf("query tag %q: %w", tag, err)
	}
	defer rows.Close()

	bag := make([][]float32, 0)
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan vector: %w", err)
		}
		bag = append(bag, bytesToVector(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vectors: %w", err)
	}
	return bag, nil
}

// Count returns the number of records in the store.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func vectorToBytes(v []float32) []byte {
	const size = 4
	out := make([]byte, len(v)*size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(f))
	}
	return out
}

func bytesToVector(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
