package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mpetrov/cardtidy/internal/models"
)

// ImportResult summarizes one imported file or pasted batch.
type ImportResult struct {
	File         *models.SourceFile `json:"file"`
	ContactCount int                `json:"contactCount"`
}

// ImportText decodes the VCF text, registers it as a source file and stores
// every parsed contact under it. filename may be empty for pasted text, in
// which case a timestamped name is generated.
func (s *ContactService) ImportText(ctx context.Context, sessionID, filename, content string) (*ImportResult, error) {
	contacts := s.decoder.Decode(content)
	if len(contacts) == 0 {
		return nil, ErrNoContacts
	}

	if filename == "" {
		filename = fmt.Sprintf("Pasted Contacts %s", time.Now().Format("2006-01-02 15:04"))
	}

	file := &models.SourceFile{Name: filename}
	if err := s.store.CreateFile(ctx, sessionID, file); err != nil {
		slog.Error("ImportText: failed to create file", "error", err)
		return nil, err
	}

	for _, c := range contacts {
		c.SourceFile = file.ID
		if err := s.store.PutContact(ctx, sessionID, c); err != nil {
			slog.Error("ImportText: failed to store contact", "contact_id", c.ID, "error", err)
			return nil, err
		}
	}

	s.recordHistory(ctx, sessionID, "add_file", map[string]any{
		"fileName":     file.Name,
		"contactCount": len(contacts),
	})

	slog.Info("Imported contacts", "file", file.Name, "count", len(contacts))
	file.ContactCount = len(contacts)
	return &ImportResult{File: file, ContactCount: len(contacts)}, nil
}

// recordHistory appends a history entry, logging but not propagating
// failures. A lost history line must not fail the operation it describes.
func (s *ContactService) recordHistory(ctx context.Context, sessionID, action string, data map[string]any) {
	e := &models.HistoryEntry{Action: action, Data: data}
	if err := s.store.AppendHistory(ctx, sessionID, e); err != nil {
		slog.Warn("failed to record history", "action", action, "error", err)
	}
}
