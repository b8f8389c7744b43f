package service

import (
	"context"
	"log/slog"

	"github.com/mpetrov/cardtidy/internal/dedup"
)

// AnalyzeStats counts duplicate groups per category.
type AnalyzeStats struct {
	ExactMatch   int `json:"exactMatch"`
	SameNumber   int `json:"sameNumber"`
	SameName     int `json:"sameName"`
	SimilarPhone int `json:"similarPhone"`
	SameEmail    int `json:"sameEmail"`
	Total        int `json:"total"`
}

// AnalyzeResult is the full duplicate report for a session. FuzzyMatches
// comes from the weighted scorer and may overlap the categorized groups;
// the client treats it as a second opinion.
type AnalyzeResult struct {
	TotalContacts int               `json:"totalContacts"`
	Duplicates    *dedup.Categories `json:"duplicates"`
	FuzzyMatches  []*dedup.Group    `json:"fuzzyMatches"`
	Stats         AnalyzeStats      `json:"stats"`
}

// Analyze runs duplicate detection over the session's full contact set.
// threshold tunes the fuzzy scorer; zero means the default, out-of-range
// values are clamped.
func (s *ContactService) Analyze(ctx context.Context, sessionID string, threshold int) (*AnalyzeResult, error) {
	contacts, err := s.store.ListContacts(ctx, sessionID)
	if err != nil {
		slog.Error("Analyze: failed to list contacts", "error", err)
		return nil, err
	}

	cats := dedup.Categorize(contacts)
	res := &AnalyzeResult{
		TotalContacts: len(contacts),
		Duplicates:    cats,
		FuzzyMatches:  dedup.FindDuplicates(contacts, dedup.ClampThreshold(threshold)),
		Stats: AnalyzeStats{
			ExactMatch:   len(cats.ExactMatch),
			SameNumber:   len(cats.SameNumber),
			SameName:     len(cats.SameName),
			SimilarPhone: len(cats.SimilarPhone),
			SameEmail:    len(cats.SameEmail),
			Total:        cats.TotalGroups(),
		},
	}

	slog.Info("Analyzed contacts",
		"total", res.TotalContacts,
		"duplicate_groups", res.Stats.Total,
	)
	return res, nil
}
