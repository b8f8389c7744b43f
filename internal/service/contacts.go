package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/mpetrov/cardtidy/internal/models"
	"github.com/mpetrov/cardtidy/internal/normalize"
)

// ContactUpdate carries the editable contact fields. Nil pointers leave the
// stored value untouched; the editable set deliberately excludes ids,
// source file references and decoded-only fields like the photo.
type ContactUpdate struct {
	Name         *string         `json:"name"`
	FirstName    *string         `json:"firstName"`
	LastName     *string         `json:"lastName"`
	Phones       *[]models.Phone `json:"phones"`
	Emails       *[]models.Email `json:"emails"`
	Organization *string         `json:"organization"`
	Title        *string         `json:"title"`
	Notes        *string         `json:"notes"`
	Tags         *[]string       `json:"tags"`
}

// ListContacts returns the session's contacts, optionally restricted to one
// source file and filtered by a case-insensitive search term. Each returned
// contact carries its source file's display name.
func (s *ContactService) ListContacts(ctx context.Context, sessionID, fileID, search string) ([]*models.Contact, error) {
	contacts, err := s.store.ListContacts(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	fileNames, err := s.fileNames(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(strings.TrimSpace(search))
	out := make([]*models.Contact, 0, len(contacts))
	for _, c := range contacts {
		if fileID != "" && c.SourceFile != fileID {
			continue
		}
		if term != "" && !matchesSearch(c, term) {
			continue
		}
		c.SourceFileName = fileNames[c.SourceFile]
		out = append(out, c)
	}
	return out, nil
}

// GetContact retrieves one contact with its source file name filled in.
func (s *ContactService) GetContact(ctx context.Context, sessionID, id string) (*models.Contact, error) {
	c, err := s.store.GetContact(ctx, sessionID, id)
	if err != nil {
		return nil, err
	}
	if c.SourceFile != "" {
		if f, err := s.store.GetFile(ctx, sessionID, c.SourceFile); err == nil {
			c.SourceFileName = f.Name
		}
	}
	return c, nil
}

// CreateContact stores a manually entered contact. The contact must carry
// at least a name or a phone number, and must reference an existing file.
func (s *ContactService) CreateContact(ctx context.Context, sessionID string, c *models.Contact) (*models.Contact, error) {
	sanitizeContact(c)
	if !c.HasIdentity() {
		return nil, ErrMissingIdentity
	}
	if c.SourceFile == "" {
		return nil, ErrMissingSourceFile
	}
	if _, err := s.store.GetFile(ctx, sessionID, c.SourceFile); err != nil {
		return nil, err
	}
	c.ID = uuid.NewString()

	if err := s.store.PutContact(ctx, sessionID, c); err != nil {
		slog.Error("CreateContact failed", "error", err)
		return nil, err
	}

	s.recordHistory(ctx, sessionID, "add", map[string]any{"name": c.Name})
	return c, nil
}

// UpdateContact applies the non-nil fields of upd to an existing contact.
func (s *ContactService) UpdateContact(ctx context.Context, sessionID, id string, upd *ContactUpdate) (*models.Contact, error) {
	c, err := s.store.GetContact(ctx, sessionID, id)
	if err != nil {
		return nil, err
	}

	applyUpdate(c, upd)
	sanitizeContact(c)
	if !c.HasIdentity() {
		return nil, ErrMissingIdentity
	}

	if err := s.store.UpdateContact(ctx, sessionID, c); err != nil {
		slog.Error("UpdateContact failed", "contact_id", id, "error", err)
		return nil, err
	}

	s.recordHistory(ctx, sessionID, "update", map[string]any{"id": id, "name": c.Name})
	return c, nil
}

// DeleteContacts removes the given contacts, returning how many existed.
func (s *ContactService) DeleteContacts(ctx context.Context, sessionID string, ids []string) (int, error) {
	n, err := s.store.DeleteContacts(ctx, sessionID, ids)
	if err != nil {
		slog.Error("DeleteContacts failed", "error", err)
		return 0, err
	}
	if n > 0 {
		s.recordHistory(ctx, sessionID, "delete", map[string]any{"count": n})
	}
	return n, nil
}

// MoveContacts reassigns contacts to another source file.
func (s *ContactService) MoveContacts(ctx context.Context, sessionID string, ids []string, targetFileID string) (int, error) {
	n, err := s.store.MoveContacts(ctx, sessionID, ids, targetFileID)
	if err != nil {
		slog.Error("MoveContacts failed", "target", targetFileID, "error", err)
		return 0, err
	}
	if n > 0 {
		s.recordHistory(ctx, sessionID, "move", map[string]any{"count": n, "targetFileId": targetFileID})
	}
	return n, nil
}

// fileNames maps file ids to display names for the session.
func (s *ContactService) fileNames(ctx context.Context, sessionID string) (map[string]string, error) {
	files, err := s.store.ListFiles(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(files))
	for _, f := range files {
		names[f.ID] = f.Name
	}
	return names, nil
}

// matchesSearch reports whether the term occurs in the contact's name,
// phone numbers, email addresses or organization.
func matchesSearch(c *models.Contact, term string) bool {
	if strings.Contains(strings.ToLower(c.Name), term) {
		return true
	}
	for _, p := range c.Phones {
		if strings.Contains(strings.ToLower(p.Value), term) || strings.Contains(p.Normalized, term) {
			return true
		}
	}
	for _, e := range c.Emails {
		if strings.Contains(strings.ToLower(e.Value), term) {
			return true
		}
	}
	return strings.Contains(strings.ToLower(c.Organization), term)
}

// sanitizeContact trims control characters from free-text fields and fills
// in missing normalized phone forms.
func sanitizeContact(c *models.Contact) {
	c.Name = normalize.SanitizeString(c.Name)
	c.FirstName = normalize.SanitizeString(c.FirstName)
	c.LastName = normalize.SanitizeString(c.LastName)
	c.Organization = normalize.SanitizeString(c.Organization)
	c.Title = normalize.SanitizeString(c.Title)
	c.Notes = normalize.SanitizeString(c.Notes)

	phones := c.Phones[:0]
	for _, p := range c.Phones {
		p.Value = normalize.SanitizePhone(p.Value)
		if p.Value == "" {
			continue
		}
		if p.Normalized == "" {
			p.Normalized = normalize.Phone(p.Value)
		}
		phones = append(phones, p)
	}
	c.Phones = phones

	emails := c.Emails[:0]
	for _, e := range c.Emails {
		e.Value = normalize.Email(normalize.SanitizeString(e.Value))
		if e.Value == "" {
			continue
		}
		emails = append(emails, e)
	}
	c.Emails = emails
}

func applyUpdate(c *models.Contact, upd *ContactUpdate) {
	if upd == nil {
		return
	}
	if upd.Name != nil {
		c.Name = *upd.Name
	}
	if upd.FirstName != nil {
		c.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		c.LastName = *upd.LastName
	}
	if upd.Phones != nil {
		c.Phones = *upd.Phones
		for i := range c.Phones {
			c.Phones[i].Normalized = ""
		}
	}
	if upd.Emails != nil {
		c.Emails = *upd.Emails
	}
	if upd.Organization != nil {
		c.Organization = *upd.Organization
	}
	if upd.Title != nil {
		c.Title = *upd.Title
	}
	if upd.Notes != nil {
		c.Notes = *upd.Notes
	}
	if upd.Tags != nil {
		c.Tags = *upd.Tags
	}
}
