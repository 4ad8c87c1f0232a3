package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaichover/internal/types"
)

// failingKV fails every operation.
type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("disk unavailable")
}

func (failingKV) Put(context.Context, string, []byte) error {
	return errors.New("quota exceeded")
}

type warnCounter struct {
	mu    sync.Mutex
	warns []string
}

func (w *warnCounter) Info(string, ...any)  {}
func (w *warnCounter) Error(string, ...any) {}
func (w *warnCounter) Warn(msg string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warns = append(w.warns, fmt.Sprint(args...))
}
func (w *warnCounter) With(...any) types.Logger { return w }

func (w *warnCounter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.warns)
}

func ptr[T any](v T) *T { return &v }

// --- KV ---

func TestSQLiteKV_RoundTripAndUpsert(t *testing.T) {
	ctx := context.Background()
	kv, err := OpenSQLiteKV(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	_, ok, err := kv.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Put(ctx, "k", []byte("one")))
	require.NoError(t, kv.Put(ctx, "k", []byte("two")))

	v, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "two", string(v))
}

func TestSQLiteKV_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	kv, err := OpenSQLiteKV(ctx, path)
	require.NoError(t, err)
	prefs := NewPreferenceStore(ctx, kv, nil)
	_, err = prefs.Update(ctx, types.PreferencesPatch{Threshold: ptr(80), Enabled: ptr(true)})
	require.NoError(t, err)
	require.NoError(t, kv.Close())

	kv, err = OpenSQLiteKV(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	reloaded := NewPreferenceStore(ctx, kv, nil).Get()
	assert.Equal(t, 80, reloaded.Threshold)
	assert.True(t, reloaded.Enabled)
}

func TestMemoryKV_CopiesValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	buf := []byte("abc")
	require.NoError(t, kv.Put(ctx, "k", buf))
	buf[0] = 'z'

	v, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(v))
}

// --- PreferenceStore ---

func TestPreferenceStore_DefaultsWhenEmpty(t *testing.T) {
	s := NewPreferenceStore(context.Background(), NewMemoryKV(), nil)
	assert.Equal(t, types.DefaultAlertPreferences(), s.Get())
}

func TestPreferenceStore_DefaultsWhenCorrupt(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Put(ctx, KeyPreferences, []byte("{not json")))
	logger := &warnCounter{}

	s := NewPreferenceStore(ctx, kv, logger)

	assert.Equal(t, types.DefaultAlertPreferences(), s.Get())
	assert.Equal(t, 1, logger.count())
}

func TestPreferenceStore_UpdateMergesAndPersists(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := NewPreferenceStore(ctx, kv, nil)

	got, err := s.Update(ctx, types.PreferencesPatch{
		Threshold:       ptr(70),
		QuietHoursStart: ptr("23:30"),
	})
	require.NoError(t, err)
	assert.Equal(t, 70, got.Threshold)
	assert.Equal(t, "23:30", got.QuietHoursStart)
	assert.Equal(t, "06:00", got.QuietHoursEnd)
	assert.False(t, got.Enabled)

	raw, ok, err := kv.Get(ctx, KeyPreferences)
	require.NoError(t, err)
	require.True(t, ok)
	var stored map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.EqualValues(t, 70, stored["threshold"])
	assert.Equal(t, "23:30", stored["quietHoursStart"])
}

func TestPreferenceStore_UpdateRejectsInvalidPatch(t *testing.T) {
	tests := []struct {
		name  string
		patch types.PreferencesPatch
		code  types.ErrorCode
	}{
		{"threshold too low", types.PreferencesPatch{Threshold: ptr(10)}, types.ErrCodeValidationThresholdRange},
		{"threshold too high", types.PreferencesPatch{Threshold: ptr(101)}, types.ErrCodeValidationThresholdRange},
		{"bad start", types.PreferencesPatch{QuietHoursStart: ptr("25:00")}, types.ErrCodeValidationInvalidTime},
		{"bad end", types.PreferencesPatch{QuietHoursEnd: ptr("noon")}, types.ErrCodeValidationInvalidTime},
		{"bad unit", types.PreferencesPatch{Unit: ptr(types.TemperatureUnit("kelvin"))}, types.ErrCodeValidationInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := NewPreferenceStore(ctx, NewMemoryKV(), nil)

			got, err := s.Update(ctx, tt.patch)
			require.Error(t, err)
			assert.Equal(t, tt.code, types.CodeOf(err))
			assert.Equal(t, types.DefaultAlertPreferences(), got)
			assert.Equal(t, types.DefaultAlertPreferences(), s.Get())
		})
	}
}

func TestPreferenceStore_WriteFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	logger := &warnCounter{}
	s := NewPreferenceStore(ctx, failingKV{}, logger)

	got, err := s.Update(ctx, types.PreferencesPatch{Enabled: ptr(true)})
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.True(t, s.Get().Enabled)
	// One warning for the failed read, one for the failed write.
	assert.Equal(t, 2, logger.count())
}

func TestPreferenceStore_StampNotifiedIsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := NewPreferenceStore(ctx, NewMemoryKV(), nil)
	t1 := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	got := s.StampNotified(ctx, t1)
	require.NotNil(t, got.LastNotifiedAt)
	assert.True(t, got.LastNotifiedAt.Equal(t1))

	got = s.StampNotified(ctx, t1.Add(-time.Minute))
	assert.True(t, got.LastNotifiedAt.Equal(t1))

	got = s.StampNotified(ctx, t1.Add(2*time.Hour))
	assert.True(t, got.LastNotifiedAt.Equal(t1.Add(2*time.Hour)))
}

func TestPreferenceStore_UpdateKeepsWatermark(t *testing.T) {
	ctx := context.Background()
	s := NewPreferenceStore(ctx, NewMemoryKV(), nil)
	stamp := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	s.StampNotified(ctx, stamp)

	got, err := s.Update(ctx, types.PreferencesPatch{Threshold: ptr(90)})
	require.NoError(t, err)
	require.NotNil(t, got.LastNotifiedAt)
	assert.True(t, got.LastNotifiedAt.Equal(stamp))
}

// --- HistoryStore ---

func TestHistoryStore_AddDedupsAndCaps(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	h := NewHistoryStore(ctx, kv, nil)

	for i := 1; i <= 6; i++ {
		h.Add(ctx, types.SavedLocation{Label: fmt.Sprintf("City %d", i), Latitude: float64(i), Longitude: float64(-i)})
	}
	got := h.List()
	require.Len(t, got, HistoryLimit)
	assert.Equal(t, "City 6", got[0].Label)
	assert.Equal(t, "City 2", got[4].Label)

	got = h.Add(ctx, types.SavedLocation{Label: "City 3", Latitude: 33, Longitude: -33})
	require.Len(t, got, HistoryLimit)
	assert.Equal(t, "City 3", got[0].Label)
	assert.Equal(t, 33.0, got[0].Latitude)
	labels := map[string]int{}
	for _, e := range got {
		labels[e.Label]++
	}
	assert.Equal(t, 1, labels["City 3"])

	reloaded := NewHistoryStore(ctx, kv, nil).List()
	assert.Equal(t, got, reloaded)
}

func TestHistoryStore_IgnoresBlankLabel(t *testing.T) {
	ctx := context.Background()
	h := NewHistoryStore(ctx, NewMemoryKV(), nil)
	got := h.Add(ctx, types.SavedLocation{Label: "   ", Latitude: 1, Longitude: 1})
	assert.Empty(t, got)
}

func TestHistoryStore_LoadFiltersMalformedEntries(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	raw := `[
		{"label":"São Paulo, SP, Brasil","latitude":-23.55,"longitude":-46.63},
		{"label":"","latitude":1,"longitude":1},
		{"latitude":2,"longitude":2},
		{"label":"Recife","latitude":"x","longitude":3},
		"garbage",
		{"label":"Recife","latitude":-8.05,"longitude":-34.9}
	]`
	require.NoError(t, kv.Put(ctx, KeyHistory, []byte(raw)))

	got := NewHistoryStore(ctx, kv, nil).List()
	require.Len(t, got, 2)
	assert.Equal(t, "São Paulo, SP, Brasil", got[0].Label)
	assert.Equal(t, "Recife", got[1].Label)
	assert.Equal(t, -8.05, got[1].Latitude)
}

func TestHistoryStore_CorruptSlotYieldsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Put(ctx, KeyHistory, []byte(`{"label":"not a list"}`)))

	assert.Empty(t, NewHistoryStore(ctx, kv, nil).List())
}

func TestHistoryStore_WriteFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	logger := &warnCounter{}
	h := NewHistoryStore(ctx, failingKV{}, logger)

	got := h.Add(ctx, types.SavedLocation{Label: "Curitiba", Latitude: -25.4, Longitude: -49.3})
	require.Len(t, got, 1)
	assert.Len(t, h.List(), 1)
	assert.Equal(t, 2, logger.count())
}

func TestHistoryStore_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	h := NewHistoryStore(ctx, NewMemoryKV(), nil)
	h.Add(ctx, types.SavedLocation{Label: "Natal", Latitude: -5.8, Longitude: -35.2})

	list := h.List()
	list[0].Label = "mutated"
	assert.Equal(t, "Natal", h.List()[0].Label)
}

// --- DeviceStore ---

func TestDeviceStore_EmptySlot(t *testing.T) {
	s := NewDeviceStore(context.Background(), NewMemoryKV(), nil)
	assert.Equal(t, types.PermissionDefault, s.Permission())
	assert.Empty(t, s.Token())
}

func TestDeviceStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	s := NewDeviceStore(ctx, kv, nil)
	s.SetPermission(ctx, types.PermissionGranted)
	s.SetToken(ctx, "tok-1")

	next := NewDeviceStore(ctx, kv, nil)
	assert.Equal(t, types.DeviceRecord{Permission: types.PermissionGranted, Token: "tok-1"}, next.Record())

	next.SetToken(ctx, "")
	assert.Empty(t, NewDeviceStore(ctx, kv, nil).Token(), "unsubscribe is on record")
	assert.Equal(t, types.PermissionGranted, NewDeviceStore(ctx, kv, nil).Permission())
}

func TestDeviceStore_IgnoresDefaultPermission(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := NewDeviceStore(ctx, kv, nil)
	s.SetPermission(ctx, types.PermissionDefault)

	_, ok, err := kv.Get(ctx, KeyDevice)
	require.NoError(t, err)
	assert.False(t, ok, "nothing to write")
}

func TestDeviceStore_CorruptOrUnknownValues(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Put(ctx, KeyDevice, []byte("{not json")))
	logger := &warnCounter{}

	s := NewDeviceStore(ctx, kv, logger)
	assert.Equal(t, types.DeviceRecord{}, s.Record())
	assert.Equal(t, 1, logger.count())

	require.NoError(t, kv.Put(ctx, KeyDevice, []byte(`{"permission":"maybe","token":"tok"}`)))
	s = NewDeviceStore(ctx, kv, nil)
	assert.Equal(t, types.PermissionDefault, s.Permission())
	assert.Equal(t, "tok", s.Token())
}

func TestDeviceStore_WriteFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	logger := &warnCounter{}
	s := NewDeviceStore(ctx, failingKV{}, logger)

	s.SetPermission(ctx, types.PermissionDenied)
	assert.Equal(t, types.PermissionDenied, s.Permission())
	assert.Equal(t, 2, logger.count())
}
