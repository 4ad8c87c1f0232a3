package store

import (
	"context"
	"encoding/json"
	"sync"

	"vaichover/internal/types"
)

// DeviceStore keeps the device's push record: the last permission answer and
// the token it currently holds. It satisfies push.PermissionLedger and
// push.TokenLedger.
type DeviceStore struct {
	kv     KV
	logger types.Logger

	mu      sync.RWMutex
	current types.DeviceRecord
}

// NewDeviceStore loads the stored record. An empty, unreadable or corrupt
// slot yields an empty record: permission default and no token.
func NewDeviceStore(ctx context.Context, kv KV, logger types.Logger) *DeviceStore {
	if logger == nil {
		logger = types.NopLogger{}
	}
	s := &DeviceStore{kv: kv, logger: logger.With("slot", KeyDevice)}

	raw, ok, err := kv.Get(ctx, KeyDevice)
	if !(types.Result{Op: "device_read", Err: err}).Log(s.logger).OK() || !ok {
		return s
	}
	var rec types.DeviceRecord
	if !(types.Result{Op: "device_decode", Err: json.Unmarshal(raw, &rec)}).Log(s.logger).OK() {
		return s
	}
	switch rec.Permission {
	case types.PermissionGranted, types.PermissionDenied:
	default:
		rec.Permission = ""
	}
	s.current = rec
	return s
}

// Record returns the current snapshot.
func (s *DeviceStore) Record() types.DeviceRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Permission returns the recorded answer, default when none is on record.
func (s *DeviceStore) Permission() types.NotificationPermission {
	if p := s.Record().Permission; p != "" {
		return p
	}
	return types.PermissionDefault
}

// SetPermission records a granted or denied answer.
func (s *DeviceStore) SetPermission(ctx context.Context, p types.NotificationPermission) {
	if p != types.PermissionGranted && p != types.PermissionDenied {
		return
	}
	s.update(ctx, func(rec *types.DeviceRecord) { rec.Permission = p })
}

// Token returns the live token on record, if any.
func (s *DeviceStore) Token() string {
	return s.Record().Token
}

// SetToken records token as live. An empty token marks the device
// unsubscribed.
func (s *DeviceStore) SetToken(ctx context.Context, token string) {
	s.update(ctx, func(rec *types.DeviceRecord) { rec.Token = token })
}

func (s *DeviceStore) update(ctx context.Context, fn func(*types.DeviceRecord)) {
	s.mu.Lock()
	next := s.current
	fn(&next)
	if next == s.current {
		s.mu.Unlock()
		return
	}
	s.current = next
	s.mu.Unlock()

	types.Attempt("device_write", func() error {
		raw, err := json.Marshal(next)
		if err != nil {
			return err
		}
		return s.kv.Put(ctx, KeyDevice, raw)
	}).Log(s.logger)
}
