package models

// HistoryEntry records one mutating action on a session's contact set
// (add_file, update, delete, merge). The store keeps only the most recent
// entries per session.
type HistoryEntry struct {
	// Action is the short action name, e.g. "merge".
	Action string `json:"action"`

	// Data carries action-specific details (ids, counts, filenames).
	Data map[string]any `json:"data"`

	// Timestamp is the Unix time the action happened.
	Timestamp int64 `json:"timestamp"`
}
