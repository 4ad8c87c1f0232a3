package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"vaichover/internal/types"
)

// HistoryLimit caps the number of saved locations.
const HistoryLimit = 5

// HistoryStore keeps the most recently used locations, newest first, with at
// most one entry per label.
type HistoryStore struct {
	kv     KV
	logger types.Logger

	mu      sync.RWMutex
	entries []types.SavedLocation
}

// NewHistoryStore loads the stored history. Malformed entries are dropped;
// an unreadable slot yields an empty history.
func NewHistoryStore(ctx context.Context, kv KV, logger types.Logger) *HistoryStore {
	if logger == nil {
		logger = types.NopLogger{}
	}
	s := &HistoryStore{kv: kv, logger: logger.With("slot", KeyHistory)}

	raw, ok, err := kv.Get(ctx, KeyHistory)
	if !(types.Result{Op: "history_read", Err: err}).Log(s.logger).OK() || !ok {
		return s
	}
	entries, err := decodeHistory(raw)
	types.Result{Op: "history_decode", Err: err}.Log(s.logger)
	s.entries = entries
	return s
}

// List returns a copy of the history, newest first.
func (s *HistoryStore) List() []types.SavedLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.SavedLocation, len(s.entries))
	copy(out, s.entries)
	return out
}

// Add moves entry to the front, replacing any entry with the same label, and
// trims the list to HistoryLimit. Entries with a blank label are ignored.
func (s *HistoryStore) Add(ctx context.Context, entry types.SavedLocation) []types.SavedLocation {
	entry.Label = strings.TrimSpace(entry.Label)
	if entry.Label == "" {
		return s.List()
	}

	s.mu.Lock()
	next := make([]types.SavedLocation, 0, HistoryLimit)
	next = append(next, entry)
	for _, e := range s.entries {
		if len(next) == HistoryLimit {
			break
		}
		if e.Label != entry.Label {
			next = append(next, e)
		}
	}
	s.entries = next
	s.mu.Unlock()

	types.Attempt("history_write", func() error {
		raw, err := json.Marshal(next)
		if err != nil {
			return err
		}
		return s.kv.Put(ctx, KeyHistory, raw)
	}).Log(s.logger)

	out := make([]types.SavedLocation, len(next))
	copy(out, next)
	return out
}

// storedLocation detects missing fields, which SavedLocation cannot.
type storedLocation struct {
	Label     *string  `json:"label"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func decodeHistory(raw []byte) ([]types.SavedLocation, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}

	out := make([]types.SavedLocation, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		var loc storedLocation
		if err := json.Unmarshal(item, &loc); err != nil {
			continue
		}
		if loc.Label == nil || loc.Latitude == nil || loc.Longitude == nil {
			continue
		}
		label := strings.TrimSpace(*loc.Label)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, types.SavedLocation{Label: label, Latitude: *loc.Latitude, Longitude: *loc.Longitude})
		if len(out) == HistoryLimit {
			break
		}
	}
	return out, nil
}
