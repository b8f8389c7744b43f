package dedup

import (
	"errors"

	"github.com/google/uuid"

	"github.com/mpetrov/cardtidy/internal/models"
	"github.com/mpetrov/cardtidy/internal/normalize"
)

// ErrInsufficientMembers is returned when fewer than two of the requested
// ids resolve to live records.
var ErrInsufficientMembers = errors.New("merge requires at least 2 resolvable contacts")

// Preferred carries caller-chosen winning values for a merge. Only the
// fields representable here are settable; anything else a caller names is
// dropped before it reaches the engine. Nil fields keep the base value.
type Preferred struct {
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

func (p *Preferred) apply(c *models.Contact) {
	if p == nil {
		return
	}
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.FirstName != nil {
		c.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		c.LastName = *p.LastName
	}
	if p.Phones != nil {
		c.Phones = append([]models.Phone(nil), (*p.Phones)...)
	}
	if p.Emails != nil {
		c.Emails = append([]models.Email(nil), (*p.Emails)...)
	}
	if p.Organization != nil {
		c.Organization = *p.Organization
	}
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Notes != nil {
		c.Notes = *p.Notes
	}
	if p.Tags != nil {
		c.Tags = append([]string(nil), (*p.Tags)...)
	}
}

// Merge combines the contacts identified by ids into one record. Missing
// ids are dropped; if fewer than two remain the merge fails with
// ErrInsufficientMembers. The first resolved contact is the base, preferred
// values overwrite it, then every other contact folds in sequentially.
//
// The inputs are never mutated and removal of the originals is the
// caller's responsibility; the result carries a fresh id.
func Merge(snapshot map[string]*models.Contact, ids []string, preferred *Preferred) (*models.Contact, error) {
	resolved := make([]*models.Contact, 0, len(ids))
	for _, id := range ids {
		if c, ok := snapshot[id]; ok {
			resolved = append(resolved, c)
		}
	}
	if len(resolved) < 2 {
		return nil, ErrInsufficientMembers
	}

	merged := resolved[0].Clone()
	preferred.apply(merged)

	// Seed the dedup sets so later sources cannot re-add what the base
	// (or an earlier source) already holds.
	phoneSet := map[string]bool{}
	for _, p := range merged.NormalizedPhones() {
		phoneSet[p] = true
	}
	emailSet := map[string]bool{}
	for _, e := range merged.NormalizedEmails() {
		emailSet[e] = true
	}
	tagSet := map[string]bool{}
	for _, t := range merged.Tags {
		tagSet[t] = true
	}

	for _, other := range resolved[1:] {
		foldInto(merged, other, phoneSet, emailSet, tagSet)
	}

	merged.ID = uuid.NewString()
	return merged, nil
}

// foldInto merges one source contact into the accumulating result.
// Scalars prefer non-empty, notes concatenate, lists deduplicate by
// normalized value. Addresses, urls, social profiles, IM handles, related
// entries and dates are intentionally left to the base record; widening the
// merge policy is a product decision, not a gap.
func foldInto(base, other *models.Contact, phoneSet, emailSet, tagSet map[string]bool) {
	if base.Name == "" && other.Name != "" {
		base.Name = other.Name
	}
	if base.FirstName == "" && other.FirstName != "" {
		base.FirstName = other.FirstName
	}
	if base.LastName == "" && other.LastName != "" {
		base.LastName = other.LastName
	}
	if base.Organization == "" && other.Organization != "" {
		base.Organization = other.Organization
	}
	if base.Title == "" && other.Title != "" {
		base.Title = other.Title
	}

	if base.Notes == "" {
		base.Notes = other.Notes
	} else if other.Notes != "" && base.Notes != other.Notes {
		base.Notes += "\n" + other.Notes
	}

	for _, p := range other.Phones {
		n := p.Normalized
		if n == "" {
			n = normalize.Phone(p.Value)
		}
		if !phoneSet[n] {
			phoneSet[n] = true
			base.Phones = append(base.Phones, p)
		}
	}
	for _, e := range other.Emails {
		n := normalize.Email(e.Value)
		if !emailSet[n] {
			emailSet[n] = true
			base.Emails = append(base.Emails, e)
		}
	}
	for _, t := range other.Tags {
		if !tagSet[t] {
			tagSet[t] = true
			base.Tags = append(base.Tags, t)
		}
	}
}
