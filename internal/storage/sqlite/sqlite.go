// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mpetrov/cardtidy/internal/models"
	"github.com/mpetrov/cardtidy/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using SQLite. Contacts are stored
// as a JSON payload plus a few extracted columns (session, file, name); the
// matching engines work on fully decoded records, so the database never
// needs to query into the payload.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PutContact inserts or replaces a contact. The original insertion time is
// kept on replace so listing order stays stable.
func (s *SQLiteStore) PutContact(ctx context.Context, sessionID string, c *models.Contact) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode contact: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO contacts (id, session_id, file_id, name, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET file_id = excluded.file_id,
		     name = excluded.name, payload = excluded.payload`,
		c.ID, sessionID, nullable(c.SourceFile), c.Name, string(payload), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert contact: %w", err)
	}
	return nil
}

// GetContact retrieves a contact by id.
func (s *SQLiteStore) GetContact(ctx context.Context, sessionID, id string) (*models.Contact, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, file_id, payload FROM contacts WHERE session_id = ? AND id = ?",
		sessionID, id,
	)
	c, err := scanContact(row)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}
	return c, nil
}

// ListContacts returns the session's contacts in insertion order.
func (s *SQLiteStore) ListContacts(ctx context.Context, sessionID string) ([]*models.Contact, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, file_id, payload FROM contacts WHERE session_id = ? ORDER BY created_at, rowid",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []*models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}
	return contacts, nil
}

// UpdateContact replaces an existing contact in place.
func (s *SQLiteStore) UpdateContact(ctx context.Context, sessionID string, c *models.Contact) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode contact: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE contacts SET file_id = ?, name = ?, payload = ? WHERE session_id = ? AND id = ?",
		nullable(c.SourceFile), c.Name, string(payload), sessionID, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update contact: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count updated rows: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteContacts removes the given ids, returning how many existed.
func (s *SQLiteStore) DeleteContacts(ctx context.Context, sessionID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(
		"DELETE FROM contacts WHERE session_id = ? AND id IN (%s)",
		placeholders(len(ids)),
	)
	res, err := s.db.ExecContext(ctx, query, args(sessionID, ids)...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete contacts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted rows: %w", err)
	}
	return int(n), nil
}

// MoveContacts reassigns contacts to another source file.
func (s *SQLiteStore) MoveContacts(ctx context.Context, sessionID string, ids []string, targetFileID string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		"SELECT 1 FROM files WHERE session_id = ? AND id = ?",
		sessionID, targetFileID,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to check target file: %w", err)
	}

	query := fmt.Sprintf(
		"UPDATE contacts SET file_id = ? WHERE session_id = ? AND id IN (%s)",
		placeholders(len(ids)),
	)
	res, err := tx.ExecContext(ctx, query, append([]any{targetFileID, sessionID}, toAny(ids)...)...)
	if err != nil {
		return 0, fmt.Errorf("failed to move contacts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count moved rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return int(n), nil
}

// ApplyMerge removes the merge inputs and stores the merged contact in one
// transaction, so a crash never leaves both the originals and the result.
func (s *SQLiteStore) ApplyMerge(ctx context.Context, sessionID string, removedIDs []string, merged *models.Contact) error {
	payload, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode merged contact: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if len(removedIDs) > 0 {
		query := fmt.Sprintf(
			"DELETE FROM contacts WHERE session_id = ? AND id IN (%s)",
			placeholders(len(removedIDs)),
		)
		if _, err := tx.ExecContext(ctx, query, args(sessionID, removedIDs)...); err != nil {
			return fmt.Errorf("failed to delete merged contacts: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO contacts (id, session_id, file_id, name, payload, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		merged.ID, sessionID, nullable(merged.SourceFile), merged.Name, string(payload), time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert merged contact: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateFile registers an imported source file.
func (s *SQLiteStore) CreateFile(ctx context.Context, sessionID string, f *models.SourceFile) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.AddedAt == 0 {
		f.AddedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO files (id, session_id, name, added_at) VALUES (?, ?, ?, ?)",
		f.ID, sessionID, f.Name, f.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}
	return nil
}

// GetFile retrieves file metadata by id.
func (s *SQLiteStore) GetFile(ctx context.Context, sessionID, id string) (*models.SourceFile, error) {
	f := &models.SourceFile{}
	err := s.db.QueryRowContext(ctx,
		`SELECT f.id, f.name, f.added_at,
		        (SELECT COUNT(*) FROM contacts c WHERE c.file_id = f.id) AS contact_count
		 FROM files f WHERE f.session_id = ? AND f.id = ?`,
		sessionID, id,
	).Scan(&f.ID, &f.Name, &f.AddedAt, &f.ContactCount)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	return f, nil
}

// ListFiles returns the session's files with live contact counts, oldest
// import first.
func (s *SQLiteStore) ListFiles(ctx context.Context, sessionID string) ([]*models.SourceFile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.name, f.added_at,
		        (SELECT COUNT(*) FROM contacts c WHERE c.file_id = f.id) AS contact_count
		 FROM files f WHERE f.session_id = ? ORDER BY f.added_at, f.rowid`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []*models.SourceFile
	for rows.Next() {
		f := &models.SourceFile{}
		if err := rows.Scan(&f.ID, &f.Name, &f.AddedAt, &f.ContactCount); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate files: %w", err)
	}
	return files, nil
}

// RenameFile updates a file's display name.
func (s *SQLiteStore) RenameFile(ctx context.Context, sessionID, id, name string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE files SET name = ? WHERE session_id = ? AND id = ?",
		name, sessionID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count renamed rows: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteFile removes a file; the foreign key cascade removes its contacts.
func (s *SQLiteStore) DeleteFile(ctx context.Context, sessionID, id string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM files WHERE session_id = ? AND id = ?",
		sessionID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to count deleted rows: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// AppendHistory records a mutating action and trims the log to the most
// recent storage.HistoryLimit entries.
func (s *SQLiteStore) AppendHistory(ctx context.Context, sessionID string, e *models.HistoryEntry) error {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to encode history data: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO history (session_id, action, data, ts) VALUES (?, ?, ?, ?)",
		sessionID, e.Action, string(data), e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM history WHERE session_id = ? AND seq NOT IN (
		     SELECT seq FROM history WHERE session_id = ? ORDER BY seq DESC LIMIT ?
		 )`,
		sessionID, sessionID, storage.HistoryLimit,
	)
	if err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListHistory returns the session's history, oldest first.
func (s *SQLiteStore) ListHistory(ctx context.Context, sessionID string) ([]*models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT action, data, ts FROM history WHERE session_id = ? ORDER BY seq",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var entries []*models.HistoryEntry
	for rows.Next() {
		e := &models.HistoryEntry{}
		var data string
		if err := rows.Scan(&e.Action, &data, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
			return nil, fmt.Errorf("failed to decode history data: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return entries, nil
}

// ClearSession wipes the session's files, contacts and history.
func (s *SQLiteStore) ClearSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"contacts", "files", "history"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE session_id = ?", table), sessionID,
		); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanContact.
type scanner interface {
	Scan(dest ...any) error
}

// scanContact decodes one contacts row. The id and file columns win over
// the payload, since MoveContacts updates the column without rewriting the
// payload.
func scanContact(row scanner) (*models.Contact, error) {
	var (
		id      string
		fileID  sql.NullString
		payload string
	)
	if err := row.Scan(&id, &fileID, &payload); err != nil {
		return nil, err
	}
	c := &models.Contact{}
	if err := json.Unmarshal([]byte(payload), c); err != nil {
		return nil, fmt.Errorf("failed to decode contact payload: %w", err)
	}
	c.ID = id
	c.SourceFile = fileID.String
	return c, nil
}

// nullable maps an empty string to SQL NULL for optional foreign keys.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// placeholders builds a "?, ?, ?" list for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toAny(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

// args prepends the session id to an id list for IN-clause queries.
func args(sessionID string, ids []string) []any {
	return append([]any{sessionID}, toAny(ids)...)
}
