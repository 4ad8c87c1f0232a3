package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"vaichover/internal/types"
)

// PreferenceStore owns AlertPreferences. Every change replaces the snapshot
// as a whole and is then written through to the KV slot.
type PreferenceStore struct {
	kv       KV
	validate *validator.Validate
	logger   types.Logger

	mu      sync.RWMutex
	current types.AlertPreferences
}

// NewPreferenceStore loads the stored preferences, falling back to defaults
// when the slot is empty, unreadable or corrupt.
func NewPreferenceStore(ctx context.Context, kv KV, logger types.Logger) *PreferenceStore {
	if logger == nil {
		logger = types.NopLogger{}
	}
	s := &PreferenceStore{
		kv:       kv,
		validate: types.NewStructValidator(),
		logger:   logger.With("slot", KeyPreferences),
		current:  types.DefaultAlertPreferences(),
	}

	raw, ok, err := kv.Get(ctx, KeyPreferences)
	if !(types.Result{Op: "preferences_read", Err: err}).Log(s.logger).OK() || !ok {
		return s
	}
	prefs, err := types.DecodeAlertPreferences(raw)
	types.Result{Op: "preferences_decode", Err: err}.Log(s.logger)
	s.current = prefs
	return s
}

// Get returns the current snapshot.
func (s *PreferenceStore) Get() types.AlertPreferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Update validates and merges patch, then persists the result.
func (s *PreferenceStore) Update(ctx context.Context, patch types.PreferencesPatch) (types.AlertPreferences, error) {
	if err := s.validate.Struct(patch); err != nil {
		return s.Get(), validationError(err)
	}

	s.mu.Lock()
	next := patch.Apply(s.current).Normalize()
	s.current = next
	s.mu.Unlock()

	s.persist(ctx, next)
	return next, nil
}

// StampNotified moves the cooldown watermark to t. An older t is ignored, so
// the watermark never goes backwards.
func (s *PreferenceStore) StampNotified(ctx context.Context, t time.Time) types.AlertPreferences {
	s.mu.Lock()
	if last := s.current.LastNotifiedAt; last != nil && !t.After(*last) {
		snapshot := s.current
		s.mu.Unlock()
		return snapshot
	}
	stamped := t.UTC()
	next := s.current
	next.LastNotifiedAt = &stamped
	s.current = next
	s.mu.Unlock()

	s.persist(ctx, next)
	return next
}

func (s *PreferenceStore) persist(ctx context.Context, prefs types.AlertPreferences) {
	types.Attempt("preferences_write", func() error {
		raw, err := json.Marshal(prefs)
		if err != nil {
			return err
		}
		return s.kv.Put(ctx, KeyPreferences, raw)
	}).Log(s.logger)
}

// validationError maps the first failing field to an AppError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return types.NewAppError(types.ErrCodeValidationInvalidField, "invalid preferences", err)
	}
	fe := verrs[0]
	details := map[string]any{"field": fe.Field(), "value": fe.Value()}
	switch fe.Field() {
	case "Threshold":
		return types.NewAppErrorWithDetails(types.ErrCodeValidationThresholdRange,
			"threshold must be between 20 and 100", err, details)
	case "QuietHoursStart", "QuietHoursEnd":
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidTime,
			"quiet hours must be HH:MM", err, details)
	default:
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidField,
			"invalid preference value", err, details)
	}
}
