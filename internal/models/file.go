package models

// SourceFile represents one imported VCF file (or pasted text batch).
// Contacts keep a reference to the file they came from, so a file can be
// listed, renamed or deleted together with its contacts.
type SourceFile struct {
	// ID is the unique identifier for the file (UUID format).
	ID string `json:"id"`

	// Name is the display name, usually the uploaded filename.
	Name string `json:"name"`

	// ContactCount is the number of live contacts referencing this file.
	// Recomputed on listing; merges and deletes change it over time.
	ContactCount int `json:"contactCount"`

	// AddedAt is the Unix timestamp when the file was imported.
	AddedAt int64 `json:"addedAt"`
}
