// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Complyd Contributors

package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/complyd-dev/complyd/internal/store"
	comperr "github.com/complyd-dev/complyd/pkg/errors"
)

func init() {
	sqlite_vec.Auto()

	store.RegisterBackend("sqlite", func(cfg store.StorageConfig) (store.VectorStore, error) {
		return NewVectorStore(cfg.Path, cfg.Dimensions)
	})
}

// Compile-time interface check.
var _ store.VectorStore = (*VectorStore)(nil)

// VectorStore implements store.VectorStore backed by SQLite with sqlite-vec.
// The chunks table is the source of truth for dedup and insertion order; the
// vec0 virtual table serves cosine k-NN queries.
type VectorStore struct {
	db         *sql.DB
	dimensions int
}

// NewVectorStore opens (or creates) a SQLite database at dbPath and
// initialises the vec0 virtual table and companion chunks table.
func NewVectorStore(dbPath string, dimensions int) (*VectorStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, comperr.Wrapf(err, comperr.CodeStoreDatabaseFailure, "opening sqlite db")
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, comperr.Wrapf(err, comperr.CodeStoreDatabaseFailure, "pinging sqlite db")
	}

	if err := migrate(db, dimensions); err != nil {
		_ = db.Close()
		return nil, comperr.Wrapf(err, comperr.CodeStoreDatabaseFailure, "migrating index tables")
	}

	return &VectorStore{db: db, dimensions: dimensions}, nil
}

func migrate(db *sql.DB, dimensions int) error {
	vecDDL := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS chunk_vectors USING vec0(key TEXT PRIMARY KEY, embedding float[%d] distance_metric=cosine)`,
		dimensions,
	)
	if _, err := db.Exec(vecDDL); err != nil {
		return fmt.Errorf("creating chunk_vectors virtual table: %w", err)
	}

	const chunksDDL = `
CREATE TABLE IF NOT EXISTS chunks (
	seq      INTEGER PRIMARY KEY AUTOINCREMENT,
	key      TEXT NOT NULL UNIQUE,
	text     TEXT NOT NULL,
	source   TEXT NOT NULL,
	position INTEGER NOT NULL
)`
	if _, err := db.Exec(chunksDDL); err != nil {
		return fmt.Errorf("creating chunks table: %w", err)
	}

	return nil
}

// Insert stores the entry unless its key is already present. The UNIQUE
// constraint on chunks.key is what makes concurrent inserts of the same
// content at-most-one-wins.
func (v *VectorStore) Insert(ctx context.Context, entry store.Entry) (bool, error) {
	if entry.Key == "" {
		return false, comperr.New(comperr.CodeStoreInvalidInput, "entry key is empty")
	}
	if len(entry.Embedding) != v.dimensions {
		return false, comperr.Errorf(comperr.CodeStoreInvalidInput,
			"embedding dimension mismatch: got %d, want %d", len(entry.Embedding), v.dimensions)
	}

	blob, err := sqlite_vec.SerializeFloat32(entry.Embedding)
	if err != nil {
		return false, comperr.Wrapf(err, comperr.CodeStoreInvalidInput, "serializing embedding")
	}

	tx, err := v.db.BeginTx(ctx, nil)
	if err != nil {
		return false, comperr.Wrapf(err, comperr.CodeStoreDatabaseFailure, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO chunks(key, text, source, position) VALUES (?, ?, ?, ?)`,
		entry.Key, entry.Text, entry.Source, entry.Position,
	)
	if err != nil {
		return false, comperr.Wrapf(err, comperr.CodeStoreDatabaseFailure, "inserting chunk %s", entry.Key)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, comperr.Wrapf(err, comperr.CodeStoreDatabaseFailure, "reading insert result")
	}
	if affected == 0 {
		// Already present; nothing to do.
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO chunk_vectors(key, embedding) VALUES (?, ?)`, entry.Key, blob); err != nil {
		return false, comperr.Wrapf(err, comperr.CodeStoreDatabaseFailure, "inserting vector %s", entry.Key)
	}

	if err := tx.Commit(); err != nil {
		return false, comperr.Wrapf(err, comperr.CodeStoreDatabaseFailure, "committing insert")
	}
	return true, nil
}

func (v *VectorStore) Contains(ctx context.Context, key string) (bool, error) {
	var one int
	err := v.db.QueryRowContext(ctx, `SELECT 1 FROM chunks WHERE key = ?`, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, comperr.Wrapf(err, comperr.CodeStoreDatabaseFailure, "looking up key %s", key)
	}
	return true, nil
}

// Search performs a k-nearest-neighbor query. Ties on distance fall back to
// insertion order via chunks.seq.
func (v *VectorStore) Search(ctx context.Context, query []float32, k int) ([]store.Result, error) {
	if k <= 0 {
		return nil, comperr.Errorf(comperr.CodeStoreInvalidInput, "k must be positive, got %d", k)
	}

	blob, err := sqlite_vec.SerializeFloat32(query)
	if err != nil {
		return nil, comperr.Wrapf(err, comperr.CodeStoreInvalidInput, "serializing query vector")
	}

	const q = `SELECT v.key, c.text, c.source, c.position, v.distance
FROM chunk_vectors v
JOIN chunks c ON c.key = v.key
WHERE v.embedding MATCH ? AND k = ?
ORDER BY v.distance, c.seq`

	rows, err := v.db.QueryContext(ctx, q, blob, k)
	if err != nil {
		return nil, comperr.Wrapf(err, comperr.CodeStoreDatabaseFailure, "searching vectors")
	}
	defer func() { _ = rows.Close() }()

	results := []store.Result{}
	for rows.Next() {
		var r store.Result
		if err := rows.Scan(&r.Key, &r.Text, &r.Source, &r.Position, &r.Distance); err != nil {
			return nil, comperr.Wrapf(err, comperr.CodeStoreDatabaseFailure, "scanning search result")
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, comperr.Wrapf(err, comperr.CodeStoreDatabaseFailure, "iterating search results")
	}

	return results, nil
}

func (v *VectorStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := v.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, comperr.Wrapf(err, comperr.CodeStoreDatabaseFailure, "counting chunks")
	}
	return count, nil
}

// Close closes the underlying database connection.
func (v *VectorStore) Close() error {
	return v.db.Close()
}
