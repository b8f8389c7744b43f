package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mpetrov/cardtidy/internal/models"
)

// ListFiles returns the session's source files with live contact counts.
func (s *ContactService) ListFiles(ctx context.Context, sessionID string) ([]*models.SourceFile, error) {
	return s.store.ListFiles(ctx, sessionID)
}

// RenameFile updates a source file's display name.
func (s *ContactService) RenameFile(ctx context.Context, sessionID, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if err := s.store.RenameFile(ctx, sessionID, id, name); err != nil {
		return err
	}
	s.recordHistory(ctx, sessionID, "rename_file", map[string]any{"fileId": id, "name": name})
	return nil
}

// DeleteFile removes a source file and every contact imported from it.
func (s *ContactService) DeleteFile(ctx context.Context, sessionID, id string) error {
	f, err := s.store.GetFile(ctx, sessionID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteFile(ctx, sessionID, id); err != nil {
		slog.Error("DeleteFile failed", "file_id", id, "error", err)
		return err
	}
	s.recordHistory(ctx, sessionID, "delete_file", map[string]any{
		"fileName":     f.Name,
		"contactCount": f.ContactCount,
	})
	return nil
}

// History returns the session's action log, oldest first.
func (s *ContactService) History(ctx context.Context, sessionID string) ([]*models.HistoryEntry, error) {
	return s.store.ListHistory(ctx, sessionID)
}

// ClearAll wipes the session's files, contacts and history.
func (s *ContactService) ClearAll(ctx context.Context, sessionID string) error {
	if err := s.store.ClearSession(ctx, sessionID); err != nil {
		slog.Error("ClearAll failed", "error", err)
		return err
	}
	slog.Info("Cleared session data", "session_id", sessionID)
	return nil
}
