// Package dedup detects duplicate contacts and merges them. The engines are
// pure: they take a snapshot of the record set and return derived results,
// never touching caller-owned storage.
package dedup

import (
	"sort"
	"strings"

	"github.com/mpetrov/cardtidy/internal/models"
)

// Group is a set of two or more contacts judged to be the same person under
// one matching rule.
type Group struct {
	// ID is assigned for groups produced by the pairwise finder; the
	// categorization passes leave it empty.
	ID string `json:"id,omitempty"`

	// Contacts are snapshots of the matched records, not live references.
	Contacts []*models.Contact `json:"contacts"`

	// MatchType labels the rule that formed the group: exact, samePhone,
	// sameName, sameEmail, or for the pairwise finder phone/email/fuzzy.
	MatchType string `json:"matchType"`

	// MatchedOn names the field that triggered the match.
	MatchedOn string `json:"matchedOn,omitempty"`

	// Similarity is 0-100.
	Similarity int `json:"similarity,omitempty"`

	// ConflictFields lists fields whose values disagree across members and
	// need resolving before a merge.
	ConflictFields []string `json:"conflictFields,omitempty"`
}

// Categories is the result of one categorization run.
type Categories struct {
	ExactMatch []*Group `json:"exactMatch"`
	SameNumber []*Group `json:"sameNumber"`
	SameName   []*Group `json:"sameName"`

	// SimilarPhone is declared but never populated: no fuzzy phone
	// equivalence rule is defined, and inventing one (trailing-digit or
	// country-code matching) is a product decision.
	SimilarPhone []*Group `json:"similarPhone"`

	SameEmail []*Group `json:"sameEmail"`
}

// TotalGroups returns the number of groups across all categories.
func (c *Categories) TotalGroups() int {
	return len(c.ExactMatch) + len(c.SameNumber) + len(c.SameName) +
		len(c.SimilarPhone) + len(c.SameEmail)
}

// index is a string-keyed multimap that remembers key insertion order, so a
// categorization run is reproducible for a given input order.
type index struct {
	keys []string
	ids  map[string][]string
}

func newIndex() *index {
	return &index{ids: map[string][]string{}}
}

func (ix *index) add(key, id string) {
	if _, ok := ix.ids[key]; !ok {
		ix.keys = append(ix.keys, key)
	}
	ix.ids[key] = append(ix.ids[key], id)
}

// Categorize partitions contacts into duplicate categories using three
// index passes: normalized phone, normalized name, normalized email.
//
// A contact id lands in at most one of exactMatch/sameNumber/sameName per
// run. The email pass deliberately does not exclude already-grouped ids;
// that asymmetry is preserved from the reference categorization policy.
func Categorize(contacts []*models.Contact) *Categories {
	cats := &Categories{}
	byID := make(map[string]*models.Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}

	processedPairs := map[string]bool{}
	grouped := map[string]bool{}

	// Pass 1: phone. Contacts sharing a normalized number are exact
	// duplicates when their normalized names also agree, otherwise the
	// name is a conflict to resolve.
	phones := newIndex()
	for _, c := range contacts {
		for _, p := range c.NormalizedPhones() {
			if p != "" {
				phones.add(p, c.ID)
			}
		}
	}
	for _, key := range phones.keys {
		members := resolve(byID, uniqueIDs(phones.ids[key]))
		if len(members) < 2 {
			continue
		}
		gk := groupKey(members)
		if processedPairs[gk] {
			continue
		}
		processedPairs[gk] = true

		group := &Group{Contacts: snapshots(members), MatchedOn: "phone", Similarity: 100}
		if allSameName(members) {
			group.MatchType = "exact"
			cats.ExactMatch = append(cats.ExactMatch, group)
		} else {
			group.MatchType = "samePhone"
			group.ConflictFields = []string{"name"}
			cats.SameNumber = append(cats.SameNumber, group)
		}
		for _, m := range members {
			grouped[m.ID] = true
		}
	}

	// Pass 2: name, over contacts not already grouped by phone.
	names := newIndex()
	for _, c := range contacts {
		if grouped[c.ID] {
			continue
		}
		if n := c.NormalizedName(); n != "" {
			names.add(n, c.ID)
		}
	}
	for _, key := range names.keys {
		members := resolve(byID, uniqueIDs(names.ids[key]))
		if len(members) < 2 {
			continue
		}
		gk := groupKey(members)
		if processedPairs[gk] {
			continue
		}
		processedPairs[gk] = true

		cats.SameName = append(cats.SameName, &Group{
			Contacts:       snapshots(members),
			MatchType:      "sameName",
			MatchedOn:      "name",
			Similarity:     90,
			ConflictFields: []string{"phone"},
		})
		for _, m := range members {
			grouped[m.ID] = true
		}
	}

	// Pass 3: email. No exclusion of grouped ids here.
	emails := newIndex()
	for _, c := range contacts {
		for _, e := range c.NormalizedEmails() {
			if e != "" {
				emails.add(e, c.ID)
			}
		}
	}
	for _, key := range emails.keys {
		members := resolve(byID, uniqueIDs(emails.ids[key]))
		if len(members) < 2 {
			continue
		}
		gk := groupKey(members)
		if processedPairs[gk] {
			continue
		}
		processedPairs[gk] = true

		cats.SameEmail = append(cats.SameEmail, &Group{
			Contacts:   snapshots(members),
			MatchType:  "sameEmail",
			MatchedOn:  "email",
			Similarity: 100,
		})
	}

	return cats
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func resolve(byID map[string]*models.Contact, ids []string) []*models.Contact {
	out := make([]*models.Contact, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// groupKey identifies a member set independent of discovery order.
func groupKey(members []*models.Contact) string {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, "-")
}

func snapshots(members []*models.Contact) []*models.Contact {
	out := make([]*models.Contact, len(members))
	for i, m := range members {
		out[i] = m.Clone()
	}
	return out
}

func allSameName(members []*models.Contact) bool {
	first := members[0].NormalizedName()
	for _, m := range members[1:] {
		if m.NormalizedName() != first {
			return false
		}
	}
	return true
}
