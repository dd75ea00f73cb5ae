// Package store reads and updates the persisted key event store shared with
// the frontend.
package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"keyviz/internal/atomicfile"
)

const (
	// FileName is the store file written by the frontend persistence layer.
	FileName = "store.json"
	// Key holds the key event store inside FileName.
	Key = "key_event_store"

	shortcutPath      = "state.toggleShortcut"
	maxStoreFileBytes = 1 << 20
)

var (
	// ErrNotFound is returned when the store file does not exist.
	ErrNotFound = errors.New("key event store not found")
	// ErrMalformed is returned when the store exists but the toggle shortcut
	// cannot be read from it.
	ErrMalformed = errors.New("key event store malformed")
)

// LoadToggleShortcut reads key_event_store.state.toggleShortcut from path.
// The store value may be an object or a JSON-encoded string of one.
func LoadToggleShortcut(path string) ([]string, error) {
	raw, err := atomicfile.ReadLimited(path, maxStoreFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read key event store: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}

	entry := gjson.GetBytes(raw, gjson.Escape(Key))
	if !entry.Exists() {
		return nil, fmt.Errorf("%w: %s missing", ErrMalformed, Key)
	}
	doc, err := entryDocument(entry)
	if err != nil {
		return nil, err
	}

	value := gjson.Get(doc, shortcutPath)
	if !value.IsArray() {
		return nil, fmt.Errorf("%w: %s.%s is not an array", ErrMalformed, Key, shortcutPath)
	}
	var out []string
	var elemErr error
	value.ForEach(func(_, item gjson.Result) bool {
		if item.Type != gjson.String {
			elemErr = fmt.Errorf("%w: toggle shortcut element %s is not a string", ErrMalformed, item.Raw)
			return false
		}
		out = append(out, item.Str)
		return true
	})
	if elemErr != nil {
		return nil, elemErr
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// SaveToggleShortcut rewrites key_event_store.state.toggleShortcut in place,
// keeping every other key. A string-encoded store stays string-encoded. A
// missing file is created.
func SaveToggleShortcut(path string, seq []string) error {
	if seq == nil {
		seq = []string{}
	}

	raw, err := atomicfile.ReadLimited(path, maxStoreFileBytes)
	switch {
	case errors.Is(err, os.ErrNotExist):
		raw = []byte("{}")
	case err != nil:
		return fmt.Errorf("read key event store: %w", err)
	case len(raw) == 0:
		raw = []byte("{}")
	case !gjson.ValidBytes(raw):
		return fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}

	escapedKey := gjson.Escape(Key)
	entry := gjson.GetBytes(raw, escapedKey)

	var updated []byte
	if entry.Type == gjson.String {
		inner, err := sjson.Set(entry.Str, shortcutPath, seq)
		if err != nil {
			return fmt.Errorf("update key event store: %w", err)
		}
		updated, err = sjson.SetBytes(raw, escapedKey, inner)
		if err != nil {
			return fmt.Errorf("update key event store: %w", err)
		}
	} else {
		if entry.Exists() && !entry.IsObject() {
			return fmt.Errorf("%w: %s is neither a string nor an object", ErrMalformed, Key)
		}
		updated, err = sjson.SetBytes(raw, escapedKey+"."+shortcutPath, seq)
		if err != nil {
			return fmt.Errorf("update key event store: %w", err)
		}
	}

	if err := atomicfile.Write(path, updated, 0o600); err != nil {
		return fmt.Errorf("save key event store: %w", err)
	}
	slog.Debug("[store] toggle shortcut saved", "path", path, "shortcut", seq)
	return nil
}

// DefaultPath returns the store location inside dir.
func DefaultPath(dir string) string {
	return filepath.Join(dir, FileName)
}

func entryDocument(entry gjson.Result) (string, error) {
	switch {
	case entry.Type == gjson.String:
		if !gjson.Valid(entry.Str) {
			return "", fmt.Errorf("%w: %s holds invalid JSON text", ErrMalformed, Key)
		}
		return entry.Str, nil
	case entry.IsObject():
		return entry.Raw, nil
	default:
		return "", fmt.Errorf("%w: %s is neither a string nor an object", ErrMalformed, Key)
	}
}
