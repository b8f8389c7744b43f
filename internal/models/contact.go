package models

import (
	"github.com/mpetrov/cardtidy/internal/normalize"
)

// Contact represents one imported contact card.
// It is created by the vCard decoder or by direct construction through the API.
type Contact struct {
	// ID is the unique identifier for the contact (UUID format).
	// Assigned at creation and never reused; a merge produces a fresh ID.
	ID string `json:"id"`

	// Name is the display name (vCard FN). A contact must have a non-empty
	// Name or at least one phone entry; records violating this are rejected.
	Name string `json:"name"`

	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	MiddleName string `json:"middleName"`
	Prefix     string `json:"prefix"`
	Suffix     string `json:"suffix"`
	Nickname   string `json:"nickname"`

	// Phones are ordered; Normalized is derived from Value and defines
	// phone identity for duplicate detection.
	Phones []Phone `json:"phones"`

	// Emails are ordered; Value is always stored lowercased.
	Emails []Email `json:"emails"`

	Addresses []Address `json:"addresses"`

	Organization string `json:"organization"`
	Department   string `json:"department"`
	Title        string `json:"title"`
	Notes        string `json:"notes"`

	// Tags is a set of category labels; order is not significant.
	Tags []string `json:"tags"`

	URLs []URL `json:"urls"`

	Birthday    string `json:"birthday"`
	Anniversary string `json:"anniversary"`

	// Photo holds the raw (usually base64) photo value; PhotoType is the
	// declared media type, defaulting to JPEG.
	Photo     string `json:"photo"`
	PhotoType string `json:"photoType"`

	SocialProfiles []SocialProfile `json:"socialProfiles"`
	IMHandles      []IMHandle      `json:"imHandles"`

	Geo      string `json:"geo"`
	Timezone string `json:"timezone"`
	Gender   string `json:"gender"`

	Related []Related `json:"related"`

	// SourceFile references the import the contact came from.
	SourceFile string `json:"sourceFile"`

	// SourceFileName is filled in for display when listing; not persisted.
	SourceFileName string `json:"sourceFileName,omitempty"`

	// Raw is the original card text the contact was decoded from, if any.
	Raw string `json:"-"`
}

// Phone is a single phone entry on a contact.
type Phone struct {
	// Value is the sanitized display form (digits, +, spaces, dashes, parens).
	Value string `json:"value"`

	// Type is one of: mobile, home, work, fax, other.
	Type string `json:"type"`

	// Normalized is the canonical comparison form: digits only, with a
	// leading + preserved when the source had one.
	Normalized string `json:"normalized"`
}

// Email is a single email entry on a contact.
type Email struct {
	// Value is stored lowercased and trimmed.
	Value string `json:"value"`

	// Type is one of: home, work, other.
	Type string `json:"type"`
}

// Address is a structured postal address (vCard ADR components).
type Address struct {
	Type       string `json:"type"`
	POBox      string `json:"poBox"`
	Extended   string `json:"extended"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// URL is a website entry.
type URL struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

// SocialProfile is a social network handle (X-SOCIALPROFILE and friends).
type SocialProfile struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

// IMHandle is an instant-messaging handle (IMPP or legacy X- properties).
type IMHandle struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

// Related is a related-contact entry (vCard RELATED).
type Related struct {
	Value string `json:"value"`
	Type  string `json:"type"`
}

// NormalizedName returns the canonical comparison form of the display name.
// Honorifics are deliberately kept: "mrs jane doe" and "mr jane doe" are
// distinct identities.
func (c *Contact) NormalizedName() string {
	return normalize.Name(c.Name)
}

// NormalizedPhones returns the canonical forms of all phone entries,
// deriving them from Value where a stored Normalized is missing.
func (c *Contact) NormalizedPhones() []string {
	out := make([]string, len(c.Phones))
	for i, p := range c.Phones {
		if p.Normalized != "" {
			out[i] = p.Normalized
		} else {
			out[i] = normalize.Phone(p.Value)
		}
	}
	return out
}

// NormalizedEmails returns the canonical forms of all email entries.
func (c *Contact) NormalizedEmails() []string {
	out := make([]string, len(c.Emails))
	for i, e := range c.Emails {
		out[i] = normalize.Email(e.Value)
	}
	return out
}

// HasIdentity reports whether the contact satisfies the identity invariant:
// a non-empty name or at least one phone entry.
func (c *Contact) HasIdentity() bool {
	return c.Name != "" || len(c.Phones) > 0
}

// Clone returns a deep copy of the contact. The dedup engines operate on
// snapshots so callers never see their stored records mutated.
func (c *Contact) Clone() *Contact {
	cp := *c
	cp.Phones = append([]Phone(nil), c.Phones...)
	cp.Emails = append([]Email(nil), c.Emails...)
	cp.Addresses = append([]Address(nil), c.Addresses...)
	cp.Tags = append([]string(nil), c.Tags...)
	cp.URLs = append([]URL(nil), c.URLs...)
	cp.SocialProfiles = append([]SocialProfile(nil), c.SocialProfiles...)
	cp.IMHandles = append([]IMHandle(nil), c.IMHandles...)
	cp.Related = append([]Related(nil), c.Related...)
	return &cp
}
