// Package metadata records what the last ingestion run produced.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Info is the persisted run metadata.
type Info struct {
	LastParse time.Time `json:"lastParse"`
	RunID     uuid.UUID `json:"runId"`
	AllLangs  []string  `json:"allLangs"`
}

// Update describes one finished ingestion run.
type Update struct {
	At    time.Time
	RunID uuid.UUID
	// Langs is the set of languages discovered in link tables.
	Langs []string
	// LinksParsed is false for pages-only runs, which keep the previous language list.
	LinksParsed bool
	// Partial marks a run restricted to some languages; its discoveries are
	// added to the previous list instead of replacing it.
	Partial bool
}

// Load reads Info from path. A missing or unreadable file yields an empty Info.
func Load(path string) Info {
	data, err := os.ReadFile(path)
	if err != nil {
		return Info{}
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}
	}
	return info
}

// Merge applies u to info.
func (info Info) Merge(u Update) Info {
	info.LastParse = u.At
	info.RunID = u.RunID
	if u.LinksParsed {
		langs := slices.Clone(u.Langs)
		if u.Partial {
			langs = append(langs, info.AllLangs...)
		}
		slices.Sort(langs)
		info.AllLangs = slices.Compact(langs)
	}
	return info
}

// Has reports whether lang was discovered by the last full run that parsed
// links, or by any partial run since.
func (info Info) Has(lang string) bool {
	return slices.Contains(info.AllLangs, lang)
}

// Save writes info to path atomically.
func Save(path string, info Info) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("metadata: marshal: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("metadata: mkdir: %w", err)
	}
	f, err := os.CreateTemp(dir, ".info.*.tmp")
	if err != nil {
		return fmt.Errorf("metadata: create temp: %w", err)
	}
	_, werr := f.Write(data)
	if err := errors.Join(werr, f.Close()); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("metadata: write: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("metadata: rename: %w", err)
	}
	return nil
}
