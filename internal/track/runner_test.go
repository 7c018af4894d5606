package track

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicx17/hytrack/internal/metrics"
	"github.com/nicx17/hytrack/internal/model"
	"github.com/nicx17/hytrack/internal/store"
)

type fakeFeed struct {
	waybills []string
	err      error
}

func (f *fakeFeed) Waybills(context.Context) ([]string, error) {
	return f.waybills, f.err
}

func newTestRunner(t *testing.T, statePath string, feed Feed, l *fakeLookup, n *fakeNotifier) *Runner {
	t.Helper()
	m := metrics.NewSet()
	engine := NewEngine(l, n, testRender, 0, m, zerolog.Nop())
	return NewRunner(store.NewFile(statePath, zerolog.Nop()), feed, engine, m, zerolog.Nop())
}

func readState(t *testing.T, path string) map[string]*store.Entry {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	ids := make(map[string]*store.Entry)
	require.NoError(t, json.Unmarshal(b, &ids))
	return ids
}

func TestRunSavesDiscoveriesEvenWhenEveryLookupFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_ids.json")
	feed := &fakeFeed{waybills: []string{"11111111111", "22222222222"}}
	l := &fakeLookup{errs: map[string]error{
		"11111111111": errors.New("timeout"),
		"22222222222": errors.New("timeout"),
	}}

	r := newTestRunner(t, path, feed, l, &fakeNotifier{})
	require.NoError(t, r.Run(context.Background()))

	ids := readState(t, path)
	require.Len(t, ids, 2)
	assert.Nil(t, ids["11111111111"].LastEvent)
	assert.False(t, ids["11111111111"].Delivered)
}

func TestRunKeepsExistingStateOnFeedFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_ids.json")
	ev := model.Event{Location: "Mumbai", Details: "In Transit", Date: "2024-01-01", Time: "10:00"}
	seed := map[string]*store.Entry{"12345678901": {LastEvent: &ev}}
	require.NoError(t, store.NewFile(path, zerolog.Nop()).Save(seed))

	feed := &fakeFeed{err: errors.New("imap: connection refused")}
	l := &fakeLookup{events: map[string]model.Event{"12345678901": ev}}

	r := newTestRunner(t, path, feed, l, &fakeNotifier{})
	require.NoError(t, r.Run(context.Background()))

	// Zero discoveries this run, but the known waybill was still polled
	// and the state survived.
	assert.Equal(t, []string{"12345678901"}, l.calls)
	assert.Contains(t, readState(t, path), "12345678901")
}

func TestRunNeverDropsKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_ids.json")
	final := model.Event{Location: "Mumbai", Details: "Delivered", Date: "2024-01-01", Time: "10:00"}
	seed := map[string]*store.Entry{"11111111111": {LastEvent: &final, Delivered: true}}
	require.NoError(t, store.NewFile(path, zerolog.Nop()).Save(seed))

	feed := &fakeFeed{waybills: []string{"22222222222"}}
	l := &fakeLookup{events: map[string]model.Event{
		"22222222222": {Location: "Delhi", Details: "In Transit", Date: "2024-01-02", Time: "09:00"},
	}}

	r := newTestRunner(t, path, feed, l, &fakeNotifier{})
	require.NoError(t, r.Run(context.Background()))

	ids := readState(t, path)
	assert.Len(t, ids, 2)
	assert.True(t, ids["11111111111"].Delivered)
	// The delivered waybill was skipped entirely.
	assert.Equal(t, []string{"22222222222"}, l.calls)
}

func TestRunSurvivesNullStateEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_ids.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"12345678901": null}`), 0o644))

	ev := model.Event{Location: "Mumbai", Details: "In Transit", Date: "2024-01-01", Time: "10:00"}
	l := &fakeLookup{events: map[string]model.Event{"12345678901": ev}}

	r := newTestRunner(t, path, &fakeFeed{}, l, &fakeNotifier{})
	require.NoError(t, r.Run(context.Background()))

	// The degenerate entry was reset and tracked like a fresh discovery.
	ids := readState(t, path)
	require.NotNil(t, ids["12345678901"])
	require.NotNil(t, ids["12345678901"].LastEvent)
	assert.Equal(t, ev, *ids["12345678901"].LastEvent)
}

func TestRunPropagatesSaveFailure(t *testing.T) {
	// State path in a directory that does not exist: Load soft-fails to an
	// empty set but Save must error out loudly.
	path := filepath.Join(t.TempDir(), "missing", "active_ids.json")
	r := newTestRunner(t, path, &fakeFeed{}, &fakeLookup{}, &fakeNotifier{})

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save state")
}

func TestRunWithoutFeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_ids.json")
	r := newTestRunner(t, path, nil, &fakeLookup{}, &fakeNotifier{})

	require.NoError(t, r.Run(context.Background()))
	assert.Empty(t, readState(t, path))
}
