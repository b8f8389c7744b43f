package dedup

import (
	"math"

	"github.com/google/uuid"

	"github.com/mpetrov/cardtidy/internal/models"
	"github.com/mpetrov/cardtidy/internal/normalize"
)

// Scores is the similarity breakdown between two contacts, each component
// 0-100.
type Scores struct {
	Phone   int `json:"phone"`
	Email   int `json:"email"`
	Name    int `json:"name"`
	Overall int `json:"overall"`
}

// Score weights; components scoring zero are excluded from the average.
const (
	weightPhone = 50
	weightEmail = 30
	weightName  = 20
)

// DefaultThreshold is the overall score at or above which the pairwise
// finder considers two contacts duplicates.
const DefaultThreshold = 80

// Score computes the similarity breakdown between two contacts. Phone and
// email are all-or-nothing on exact normalized match; name uses the
// similar-text percentage. Overall is the weighted average over the
// non-zero components only.
func Score(a, b *models.Contact) Scores {
	s := Scores{
		Phone: anyMatch(a.NormalizedPhones(), b.NormalizedPhones()),
		Email: anyMatch(a.NormalizedEmails(), b.NormalizedEmails()),
		Name:  nameScore(a.NormalizedName(), b.NormalizedName()),
	}

	weightedSum, totalWeight := 0, 0
	for _, part := range []struct{ score, weight int }{
		{s.Phone, weightPhone},
		{s.Email, weightEmail},
		{s.Name, weightName},
	} {
		if part.score > 0 {
			weightedSum += part.score * part.weight
			totalWeight += part.weight
		}
	}
	if totalWeight > 0 {
		s.Overall = int(math.Round(float64(weightedSum) / float64(totalWeight)))
	}
	return s
}

func anyMatch(a, b []string) int {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		if v != "" {
			set[v] = true
		}
	}
	for _, v := range a {
		if v != "" && set[v] {
			return 100
		}
	}
	return 0
}

func nameScore(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	return normalize.SimilarText(a, b)
}

// ClampThreshold bounds a requested finder threshold to [50, 100]; zero
// selects the default.
func ClampThreshold(threshold int) int {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return max(50, min(100, threshold))
}

// FindDuplicates is the O(n²) whole-population fallback finder: every
// contact is scored against every other, and greedy first-wins grouping
// collects pairs whose phones match, whose emails match, or whose overall
// score reaches the threshold. Acceptable only for small record sets.
func FindDuplicates(contacts []*models.Contact, threshold int) []*Group {
	threshold = ClampThreshold(threshold)

	var groups []*Group
	processed := map[string]bool{}

	for _, a := range contacts {
		if processed[a.ID] {
			continue
		}

		group := &Group{Contacts: []*models.Contact{a.Clone()}, MatchType: "none"}
		for _, b := range contacts {
			if a.ID == b.ID || processed[b.ID] {
				continue
			}

			s := Score(a, b)
			switch {
			case s.Phone == 100:
				group.Contacts = append(group.Contacts, b.Clone())
				group.MatchType = "phone"
				processed[b.ID] = true
			case s.Email == 100:
				group.Contacts = append(group.Contacts, b.Clone())
				if group.MatchType == "none" {
					group.MatchType = "email"
				}
				processed[b.ID] = true
			case s.Overall >= threshold:
				group.Contacts = append(group.Contacts, b.Clone())
				if group.MatchType == "none" {
					group.MatchType = "fuzzy"
				}
				processed[b.ID] = true
			}
		}

		if len(group.Contacts) > 1 {
			group.ID = uuid.NewString()
			groups = append(groups, group)
		}
		processed[a.ID] = true
	}

	return groups
}
