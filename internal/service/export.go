package service

import (
	"context"
	"log/slog"

	"github.com/mpetrov/cardtidy/internal/models"
	"github.com/mpetrov/cardtidy/internal/vcard"
)

// Export renders the selected contacts back to VCF text. The id and file
// filters combine: a contact is exported only if it is among the requested
// ids (when any are given) and belongs to fileID (when one is given). With
// neither set the whole session is exported. Returns the VCF text and the
// number of contacts in it.
func (s *ContactService) Export(ctx context.Context, sessionID string, ids []string, fileID string) (string, int, error) {
	contacts, err := s.store.ListContacts(ctx, sessionID)
	if err != nil {
		slog.Error("Export: failed to list contacts", "error", err)
		return "", 0, err
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var selected []*models.Contact
	for _, c := range contacts {
		if fileID != "" && c.SourceFile != fileID {
			continue
		}
		if len(wanted) > 0 && !wanted[c.ID] {
			continue
		}
		selected = append(selected, c)
	}

	if len(selected) == 0 {
		return "", 0, ErrNoContacts
	}

	slog.Info("Exported contacts", "count", len(selected))
	return vcard.EncodeAll(selected), len(selected), nil
}
