// Package jsonfile keeps each collection in a flat JSON document on disk, the
// same layout the web frontend has always read: {"<key>": {...}, ...}.
package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// document is a mutex-guarded JSON file. Every operation re-reads the file so
// external edits are picked up; writes go through a temp file and rename.
type document[T any] struct {
	path string
	mu   sync.Mutex
}

func newDocument[T any](path string) (*document[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create dir for %s: %w", path, err)
	}
	return &document[T]{path: path}, nil
}

func (d *document[T]) load() (T, error) {
	var v T
	raw, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(raw) == 0) {
		return v, nil
	}
	if err != nil {
		return v, fmt.Errorf("read %s: %w", d.path, err)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", d.path, err)
	}
	return v, nil
}

func (d *document[T]) save(v T) error {
	raw, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(d.path), filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", d.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", d.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", d.path, err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("replace %s: %w", d.path, err)
	}
	return nil
}

func (d *document[T]) view(fn func(T) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.load()
	if err != nil {
		return err
	}
	return fn(v)
}

// update runs fn on the current contents and persists the returned value.
// An fn error leaves the file untouched.
func (d *document[T]) update(fn func(T) (T, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.load()
	if err != nil {
		return err
	}
	next, err := fn(v)
	if err != nil {
		return err
	}
	return d.save(next)
}
