package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/nicx17/hytrack/internal/model"
)

// Entry is the persisted record for one waybill: the most recent event we
// have seen and whether tracking has reached its terminal state. Once
// Delivered is set the entry is never mutated again.
type Entry struct {
	LastEvent *model.Event `json:"last_event"`
	Delivered bool         `json:"delivered"`
}

// File owns the on-disk waybill state: a JSON object keyed by waybill
// number. The file grows monotonically; delivered waybills stay in it and
// are simply skipped on later runs.
type File struct {
	path string
	log  zerolog.Logger
}

func NewFile(path string, log zerolog.Logger) *File {
	return &File{path: path, log: log.With().Str("component", "store").Logger()}
}

// Load reads the state file. A missing, unreadable or corrupt file is not an
// error: tracking starts over from an empty set and the next Save rewrites
// the file. Newly discovered waybills must never be blocked by bad state.
func (f *File) Load() map[string]*Entry {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			f.log.Info().Str("path", f.path).Msg("no state file, starting with an empty set")
		} else {
			f.log.Warn().Err(err).Str("path", f.path).Msg("cannot read state file, starting fresh")
		}
		return make(map[string]*Entry)
	}
	ids := make(map[string]*Entry)
	if err := json.Unmarshal(b, &ids); err != nil {
		f.log.Warn().Err(err).Str("path", f.path).Msg("cannot decode state file, starting fresh")
		return make(map[string]*Entry)
	}
	// A JSON null entry decodes to a nil pointer. Reset it to a fresh entry
	// so callers can rely on every value being non-nil.
	for wb, e := range ids {
		if e == nil {
			f.log.Warn().Str("waybill", wb).Msg("null entry in state file, resetting")
			ids[wb] = &Entry{}
		}
	}
	return ids
}

// Save rewrites the whole state file. The bytes go to a temp file in the
// same directory which is then renamed over the old file, so a crash
// mid-write never leaves a truncated file for the next Load.
func (f *File) Save(ids map[string]*Entry) error {
	b, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace state file: %w", err)
	}
	f.log.Debug().Str("path", f.path).Int("waybills", len(ids)).Msg("state saved")
	return nil
}
