// Package service orchestrates the codec, matching engines and store into
// the operations the HTTP layer exposes.
package service

import (
	"errors"

	"github.com/mpetrov/cardtidy/internal/storage"
	"github.com/mpetrov/cardtidy/internal/vcard"
)

var (
	// ErrNoContacts means no parseable vCards were found in the input.
	ErrNoContacts = errors.New("no contacts found in the provided data")

	// ErrMissingIdentity means a contact has neither a name nor a phone.
	ErrMissingIdentity = errors.New("contact needs at least a name or a phone number")

	// ErrMissingSourceFile rejects contact creation without a source file.
	ErrMissingSourceFile = errors.New("source file is required")

	// ErrEmptyName rejects blank display names on create and rename.
	ErrEmptyName = errors.New("name must not be empty")
)

// ContactService implements the application operations on top of a
// storage.Store. All methods are session-scoped.
type ContactService struct {
	store   storage.Store
	decoder *vcard.Decoder
}

// NewContactService creates a ContactService with the given storage backend.
func NewContactService(store storage.Store) *ContactService {
	return &ContactService{
		store:   store,
		decoder: &vcard.Decoder{},
	}
}
