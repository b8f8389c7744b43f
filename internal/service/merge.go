package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mpetrov/cardtidy/internal/dedup"
	"github.com/mpetrov/cardtidy/internal/models"
)

// MergeResult reports one completed merge.
type MergeResult struct {
	Merged     *models.Contact `json:"merged"`
	RemovedIDs []string        `json:"removedIds"`
}

// AutoMergeResult summarizes a batch merge.
type AutoMergeResult struct {
	MergedGroups int `json:"mergedGroups"`
	Skipped      int `json:"skipped"`
}

// Merge combines the identified contacts into one, honoring any preferred
// field values, and applies the result to the store atomically.
func (s *ContactService) Merge(ctx context.Context, sessionID string, ids []string, preferred *dedup.Preferred) (*MergeResult, error) {
	snapshot, err := s.snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	merged, err := dedup.Merge(snapshot, ids, preferred)
	if err != nil {
		return nil, err
	}

	removed := resolvable(snapshot, ids)
	if err := s.store.ApplyMerge(ctx, sessionID, removed, merged); err != nil {
		slog.Error("Merge: failed to apply", "error", err)
		return nil, err
	}

	s.recordHistory(ctx, sessionID, "merge", map[string]any{
		"mergedCount": len(removed),
		"resultId":    merged.ID,
		"name":        merged.Name,
	})

	slog.Info("Merged contacts", "count", len(removed), "result_id", merged.ID)
	return &MergeResult{Merged: merged, RemovedIDs: removed}, nil
}

// AutoMerge merges each group in turn. Groups whose members have already
// been consumed by an earlier merge are skipped rather than failing the
// whole batch.
func (s *ContactService) AutoMerge(ctx context.Context, sessionID string, groups [][]string) (*AutoMergeResult, error) {
	res := &AutoMergeResult{}
	for _, ids := range groups {
		snapshot, err := s.snapshot(ctx, sessionID)
		if err != nil {
			return nil, err
		}

		merged, err := dedup.Merge(snapshot, ids, nil)
		if errors.Is(err, dedup.ErrInsufficientMembers) {
			res.Skipped++
			continue
		}
		if err != nil {
			return nil, err
		}

		removed := resolvable(snapshot, ids)
		if err := s.store.ApplyMerge(ctx, sessionID, removed, merged); err != nil {
			slog.Error("AutoMerge: failed to apply", "error", err)
			return nil, err
		}
		res.MergedGroups++
	}

	if res.MergedGroups > 0 {
		s.recordHistory(ctx, sessionID, "auto_merge", map[string]any{
			"mergedGroups": res.MergedGroups,
			"skipped":      res.Skipped,
		})
	}

	slog.Info("Auto-merged groups", "merged", res.MergedGroups, "skipped", res.Skipped)
	return res, nil
}

// snapshot loads the session's contacts keyed by id.
func (s *ContactService) snapshot(ctx context.Context, sessionID string) (map[string]*models.Contact, error) {
	contacts, err := s.store.ListContacts(ctx, sessionID)
	if err != nil {
		slog.Error("failed to snapshot contacts", "error", err)
		return nil, err
	}
	byID := make(map[string]*models.Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}
	return byID, nil
}

// resolvable returns the distinct ids that exist in the snapshot, in input
// order.
func resolvable(snapshot map[string]*models.Contact, ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := snapshot[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
