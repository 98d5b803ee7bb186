package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	_ "modernc.org/sqlite" // Register the pure-Go sqlite driver

	"github.com/jmylchreest/mosaicer/internal/colour"
)

const schema = `
CREATE TABLE IF NOT EXISTS colour_index (
	position INTEGER PRIMARY KEY,
	label    TEXT NOT NULL UNIQUE,
	colour   BLOB NOT NULL
)`

// SQLiteStore keeps the index in a single SQLite database, one row per entry
// ordered by position. Colours are little-endian float64 blobs.
type SQLiteStore struct {
	Path string
}

// NewSQLiteStore creates a store backed by the database at path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{Path: path}
}

func (s *SQLiteStore) String() string {
	return fmt.Sprintf("sqlite(%s)", s.Path)
}

func (s *SQLiteStore) open() (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", s.Path, err)
	}
	return db, nil
}

// Exists reports whether the database holds a colour index table.
func (s *SQLiteStore) Exists(ctx context.Context) (bool, error) {
	if _, err := os.Stat(s.Path); errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	db, err := s.open()
	if err != nil {
		return false, err
	}
	defer db.Close()

	var n int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'colour_index'`).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to inspect database: %w", err)
	}
	return n > 0, nil
}

// Save replaces the stored index in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, idx *Index) error {
	if err := idx.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid index: %w", err)
	}

	db, err := s.open()
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM colour_index`); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO colour_index(position, label, colour) VALUES(?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, label := range idx.Labels {
		if _, err := stmt.ExecContext(ctx, i, label, encodeColour(idx.Colours[i])); err != nil {
			return fmt.Errorf("failed to insert %q: %w", label, err)
		}
	}

	return tx.Commit()
}

// Load reads all rows ordered by position.
func (s *SQLiteStore) Load(ctx context.Context) (*Index, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT label, colour FROM colour_index ORDER BY position`)
	if err != nil {
		return nil, &CorruptIndexError{Source: s.String(), Err: err}
	}
	defer rows.Close()

	var labels []string
	var colours []colour.Colour
	for rows.Next() {
		var label string
		var blob []byte
		if err := rows.Scan(&label, &blob); err != nil {
			return nil, &CorruptIndexError{Source: s.String(), Err: err}
		}
		c, err := decodeColour(blob)
		if err != nil {
			return nil, &CorruptIndexError{Source: s.String(), Err: fmt.Errorf("label %q: %w", label, err)}
		}
		labels = append(labels, label)
		colours = append(colours, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &CorruptIndexError{Source: s.String(), Err: err}
	}

	idx, err := New(labels, colours)
	if err != nil {
		return nil, &CorruptIndexError{Source: s.String(), Err: err}
	}
	return idx, nil
}

func encodeColour(c colour.Colour) []byte {
	out := make([]byte, 8*len(c))
	for i, v := range c {
		binary.LittleEndian.PutUint64(out[i*8:], math.Float64bits(v))
	}
	return out
}

func decodeColour(blob []byte) (colour.Colour, error) {
	if len(blob) == 0 || len(blob)%8 != 0 {
		return nil, fmt.Errorf("invalid colour blob length %d", len(blob))
	}
	out := make(colour.Colour, len(blob)/8)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return out, nil
}
