package rag

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver

	"github.com/54b3r/newsrag-go/internal/similarity"
)

// sqliteFile is the database file created inside the index directory.
const sqliteFile = "index.db"

// SQLiteStore is a VectorStore persisted in a single SQLite file inside an
// index directory. Search is an exact scan over the stored vectors, which is
// adequate for the tens of thousands of articles a daily collector produces.
type SQLiteStore struct {
	// db is the underlying database handle, limited to one connection so
	// writes are serialised.
	db *sql.DB
	// dir is the index directory the store was opened from.
	dir string
}

// OpenSQLite opens (or creates) the index stored under dir and runs the
// schema migration. Reopening the same dir resumes the existing index.
func OpenSQLite(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create index dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, sqliteFile)

	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, dir: dir}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Dir returns the index directory.
func (s *SQLiteStore) Dir() string { return s.dir }

// migrate creates the schema if it does not already exist.
func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT    PRIMARY KEY,
	text       TEXT    NOT NULL,
	date       TEXT    NOT NULL DEFAULT '',
	journal    TEXT    NOT NULL DEFAULT '',
	link       TEXT    NOT NULL DEFAULT '',
	embedding  BLOB    NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_journal ON documents (journal);`

	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Upsert inserts the documents in one transaction, replacing rows that
// share an ID.
func (s *SQLiteStore) Upsert(ctx context.Context, docs []Document, embeddings [][]float32) error {
	if len(docs) != len(embeddings) {
		return fmt.Errorf("sqlite: %d documents but %d embeddings", len(docs), len(embeddings))
	}
	if len(docs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO documents (id, text, date, journal, link, embedding, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	text = excluded.text,
	date = excluded.date,
	journal = excluded.journal,
	link = excluded.link,
	embedding = excluded.embedding`)
	if err != nil {
		return fmt.Errorf("sqlite: prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Unix()
	for i, doc := range docs {
		_, err := stmt.ExecContext(ctx,
			doc.ID,
			doc.Text,
			doc.Metadata[MetaDate],
			doc.Metadata[MetaJournal],
			doc.Metadata[MetaLink],
			encodeVector(embeddings[i]),
			now,
		)
		if err != nil {
			return fmt.Errorf("sqlite: upsert %s: %w", doc.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// Search scores every candidate row against queryEmbedding and returns the
// best topK. Rows with equal scores keep insertion order.
func (s *SQLiteStore) Search(ctx context.Context, queryEmbedding []float32, topK int, filter Filter) ([]Document, error) {
	if topK <= 0 {
		return []Document{}, nil
	}

	query := `SELECT id, text, date, journal, link, embedding FROM documents`
	var args []any
	if filter.Journal != "" {
		query += ` WHERE journal = ?`
		args = append(args, filter.Journal)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search: %w", err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var (
			id, text, date, journal, link string
			blob                          []byte
		)
		if err := rows.Scan(&id, &text, &date, &journal, &link, &blob); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		docs = append(docs, Document{
			ID:   id,
			Text: text,
			Metadata: map[string]string{
				MetaDate:    date,
				MetaJournal: journal,
				MetaLink:    link,
			},
			Score: float32(similarity.Cosine(queryEmbedding, decodeVector(blob))),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}

	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	if len(docs) > topK {
		docs = docs[:topK]
	}
	return docs, nil
}

// Count returns the number of stored documents.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: count: %w", err)
	}
	return n, nil
}

// Ping checks that the database file is still usable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// encodeVector serialises v as little-endian float32s.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

// decodeVector is the inverse of encodeVector. Trailing partial words are
// ignored.
func decodeVector(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
