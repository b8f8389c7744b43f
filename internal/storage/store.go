// Package storage provides abstractions for persistent contact storage.
package storage

import (
	"context"
	"errors"

	"github.com/mpetrov/cardtidy/internal/models"
)

// ErrNotFound is returned when a contact or file id does not resolve.
var ErrNotFound = errors.New("not found")

// HistoryLimit caps the per-session history log.
const HistoryLimit = 100

// Store defines the persistence interface for session-scoped contact data.
// Every operation is keyed by a session id: one browser session owns its
// own record set and never sees another's. This abstraction allows swapping
// storage backends (SQLite, PostgreSQL, etc.) without changing the service
// layer, and keeps the core engines free of ambient state.
type Store interface {
	// PutContact inserts or replaces a contact in the session's set.
	PutContact(ctx context.Context, sessionID string, c *models.Contact) error

	// GetContact retrieves a contact by id.
	// Returns ErrNotFound if the id is not live.
	GetContact(ctx context.Context, sessionID, id string) (*models.Contact, error)

	// ListContacts returns the session's live contacts in insertion order.
	ListContacts(ctx context.Context, sessionID string) ([]*models.Contact, error)

	// UpdateContact replaces an existing contact.
	// Returns ErrNotFound if the id is not live.
	UpdateContact(ctx context.Context, sessionID string, c *models.Contact) error

	// DeleteContacts removes the given ids, returning how many existed.
	DeleteContacts(ctx context.Context, sessionID string, ids []string) (int, error)

	// MoveContacts reassigns contacts to another source file, returning how
	// many moved. Returns ErrNotFound if the target file does not exist.
	MoveContacts(ctx context.Context, sessionID string, ids []string, targetFileID string) (int, error)

	// ApplyMerge removes the merge inputs and stores the merged contact as
	// one atomic unit.
	ApplyMerge(ctx context.Context, sessionID string, removedIDs []string, merged *models.Contact) error

	// CreateFile registers an imported source file.
	CreateFile(ctx context.Context, sessionID string, f *models.SourceFile) error

	// GetFile retrieves file metadata by id.
	// Returns ErrNotFound if the id is not live.
	GetFile(ctx context.Context, sessionID, id string) (*models.SourceFile, error)

	// ListFiles returns the session's files with live contact counts.
	ListFiles(ctx context.Context, sessionID string) ([]*models.SourceFile, error)

	// RenameFile updates a file's display name.
	// Returns ErrNotFound if the id is not live.
	RenameFile(ctx context.Context, sessionID, id, name string) error

	// DeleteFile removes a file and all contacts referencing it.
	DeleteFile(ctx context.Context, sessionID, id string) error

	// AppendHistory records a mutating action, keeping only the most recent
	// HistoryLimit entries per session.
	AppendHistory(ctx context.Context, sessionID string, e *models.HistoryEntry) error

	// ListHistory returns the session's history, oldest first.
	ListHistory(ctx context.Context, sessionID string) ([]*models.HistoryEntry, error)

	// ClearSession wipes the session's files, contacts and history.
	ClearSession(ctx context.Context, sessionID string) error

	// Close releases any resources held by the store.
	Close() error
}
