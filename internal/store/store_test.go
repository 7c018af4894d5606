package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicx17/hytrack/internal/model"
)

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "active_ids.json"), zerolog.Nop())
	ids := f.Load()
	require.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestLoadCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_ids.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	ids := NewFile(path, zerolog.Nop()).Load()
	require.NotNil(t, ids)
	assert.Empty(t, ids)
}

func TestLoadNullEntryStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_ids.json")
	state := `{"12345678901": null, "22222222222": {"last_event": null, "delivered": true}}`
	require.NoError(t, os.WriteFile(path, []byte(state), 0o644))

	ids := NewFile(path, zerolog.Nop()).Load()
	require.Len(t, ids, 2)
	// The null entry becomes a fresh non-delivered one instead of a nil
	// pointer waiting to blow up the sweep.
	require.NotNil(t, ids["12345678901"])
	assert.Nil(t, ids["12345678901"].LastEvent)
	assert.False(t, ids["12345678901"].Delivered)
	// Intact entries are untouched.
	require.NotNil(t, ids["22222222222"])
	assert.True(t, ids["22222222222"].Delivered)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_ids.json")
	f := NewFile(path, zerolog.Nop())

	ev := model.Event{Location: "Mumbai", Details: "Delivered to consignee", Date: "2024-01-03", Time: "12:30"}
	in := map[string]*Entry{
		"11111111111": {LastEvent: &ev, Delivered: true},
		"22222222222": {}, // freshly discovered, no event yet
	}
	require.NoError(t, f.Save(in))

	out := f.Load()
	require.Len(t, out, 2)
	require.NotNil(t, out["11111111111"].LastEvent)
	assert.Equal(t, ev, *out["11111111111"].LastEvent)
	assert.True(t, out["11111111111"].Delivered)
	assert.Nil(t, out["22222222222"].LastEvent)
	assert.False(t, out["22222222222"].Delivered)
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f := NewFile(filepath.Join(dir, "active_ids.json"), zerolog.Nop())
	require.NoError(t, f.Save(map[string]*Entry{"12345678901": {}}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "active_ids.json", entries[0].Name())
}

func TestSaveOverwritesPreviousState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "active_ids.json")
	f := NewFile(path, zerolog.Nop())

	require.NoError(t, f.Save(map[string]*Entry{"11111111111": {}}))
	ev := model.Event{Location: "Pune", Details: "In Transit", Date: "2024-01-02", Time: "08:15"}
	require.NoError(t, f.Save(map[string]*Entry{"11111111111": {LastEvent: &ev}}))

	out := f.Load()
	require.NotNil(t, out["11111111111"].LastEvent)
	assert.Equal(t, ev, *out["11111111111"].LastEvent)
}

func TestSaveFailsWhenDirectoryMissing(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "nope", "active_ids.json"), zerolog.Nop())
	assert.Error(t, f.Save(map[string]*Entry{}))
}
