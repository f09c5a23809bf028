package corpus

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS corpus_entries (
	id INTEGER PRIMARY KEY,
	text TEXT NOT NULL,
	vector BLOB NOT NULL,
	metadata TEXT
);`

func openDB(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open corpus database %s: %w", path, err)
	}
	return db, nil
}

// LoadSQLite reads every row of corpus_entries in id order.
func LoadSQLite(ctx context.Context, path string, dimension int) (*Store, LoadReport, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, LoadReport{}, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, text, vector, metadata FROM corpus_entries ORDER BY id`)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("query corpus %s: %w", path, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			id       int64
			text     string
			blob     []byte
			metadata sql.NullString
		)
		if err := rows.Scan(&id, &text, &blob, &metadata); err != nil {
			return nil, LoadReport{}, fmt.Errorf("scan corpus row: %w", err)
		}
		e := Entry{Text: text, Vector: decodeVector(blob)}
		if metadata.Valid && metadata.String != "" {
			var raw map[string]any
			dec := json.NewDecoder(strings.NewReader(metadata.String))
			dec.UseNumber()
			if err := dec.Decode(&raw); err != nil {
				return nil, LoadReport{}, fmt.Errorf("corpus row %d metadata: %w", id, err)
			}
			e.Metadata = flattenMetadata(raw, len(entries))
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, LoadReport{}, fmt.Errorf("iterate corpus rows: %w", err)
	}

	store, report := NewStore(entries, dimension)
	report.Source = path
	return store, report, nil
}

// WriteSQLite replaces the contents of corpus_entries with entries in one
// transaction and returns the number of rows written.
func WriteSQLite(ctx context.Context, path string, entries []Entry) (int, error) {
	db, err := openDB(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return 0, fmt.Errorf("create corpus table: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM corpus_entries`); err != nil {
		return 0, fmt.Errorf("clear corpus table: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO corpus_entries (id, text, vector, metadata) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		var metadata any
		if len(e.Metadata) > 0 {
			b, err := json.Marshal(e.Metadata)
			if err != nil {
				return 0, fmt.Errorf("encode metadata of entry %d: %w", i, err)
			}
			metadata = string(b)
		}
		if _, err := stmt.ExecContext(ctx, i+1, e.Text, encodeVector(e.Vector), metadata); err != nil {
			return 0, fmt.Errorf("insert entry %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit corpus: %w", err)
	}
	return len(entries), nil
}

// encodeVector packs v as little-endian float32.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector ignores a trailing partial value; the dimension check rejects it.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
