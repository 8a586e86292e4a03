package contentstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
)

const tempPrefix = "temp_"

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,5}$`)

// Stored describes the outcome of a Store call.
type Stored struct {
	Fingerprint string
	Filename    string
	Path        string
	IsNew       bool
}

// Mirror receives newly stored files. Mirror failures never fail a store.
type Mirror interface {
	Put(ctx context.Context, filename, path string) error
}

// Store is a content-addressed directory: every file is named by the md5 of
// its bytes plus the extension of the first upload.
type Store struct {
	dir    string
	mirror Mirror
	logger *slog.Logger

	// promoteMu serializes lookup and promotion so one fingerprint maps to one file.
	promoteMu sync.Mutex
}

type Option func(*Store)

func WithMirror(m Mirror) Option {
	return func(s *Store) { s.mirror = m }
}

func New(dir string, logger *slog.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	s := &Store{dir: dir, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

func (s *Store) Dir() string { return s.dir }

// Store streams r into a temp file while hashing it, then promotes the temp
// file to its canonical name. An already present canonical file wins and the
// temp copy is discarded.
func (s *Store) Store(ctx context.Context, r io.Reader, originalName string) (Stored, error) {
	tmpPath := filepath.Join(s.dir, tempPrefix+uuid.NewString())
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return Stored{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmpPath)

	h := md5.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), r); err != nil {
		_ = tmp.Close()
		return Stored{}, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Stored{}, fmt.Errorf("close temp file: %w", err)
	}
	fp := hex.EncodeToString(h.Sum(nil))

	s.promoteMu.Lock()
	existing, found := s.Lookup(fp)
	var (
		filename = fp + canonicalExt(originalName)
		isNew    bool
	)
	if !found {
		isNew, err = promote(tmpPath, s.Path(filename))
	}
	s.promoteMu.Unlock()

	if found {
		s.logger.Debug("contentstore.dedupe", "md5", fp, "filename", existing)
		return Stored{Fingerprint: fp, Filename: existing, Path: s.Path(existing)}, nil
	}

	if err != nil {
		return Stored{}, fmt.Errorf("promote %s: %w", filename, err)
	}
	final := s.Path(filename)
	out := Stored{Fingerprint: fp, Filename: filename, Path: final, IsNew: isNew}
	if !isNew {
		s.logger.Debug("contentstore.dedupe", "md5", fp, "filename", filename)
		return out, nil
	}

	s.logger.Info("contentstore.store.ok", "md5", fp, "filename", filename, "original", originalName)
	if s.mirror != nil {
		if err := s.mirror.Put(ctx, filename, final); err != nil {
			s.logger.Warn("contentstore.mirror.failed", "filename", filename, "error", err)
		}
	}
	return out, nil
}

// promote links tmp to final without ever replacing an existing final file.
// Two racing stores of the same bytes both succeed; only one reports isNew.
func promote(tmp, final string) (bool, error) {
	err := os.Link(tmp, final)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrExist):
		return false, nil
	}
	// Hard links are unavailable on some filesystems.
	if _, statErr := os.Stat(final); statErr == nil {
		return false, nil
	}
	if err := os.Rename(tmp, final); err != nil {
		return false, err
	}
	return true, nil
}

// Lookup finds the stored file for a fingerprint whatever its extension.
func (s *Store) Lookup(fingerprint string) (string, bool) {
	if fingerprint == "" || strings.ContainsAny(fingerprint, `/\*?[`) {
		return "", false
	}
	matches, err := filepath.Glob(filepath.Join(s.dir, fingerprint+".*"))
	if err != nil {
		return "", false
	}
	for _, m := range matches {
		name := filepath.Base(m)
		if strings.HasPrefix(name, tempPrefix) {
			continue
		}
		if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
			return name, true
		}
	}
	return "", false
}

// Path returns the on-disk location of a stored filename.
func (s *Store) Path(filename string) string {
	return filepath.Join(s.dir, filepath.Base(filename))
}

// Exists reports whether a stored filename is still on disk.
func (s *Store) Exists(filename string) bool {
	if filename == "" {
		return false
	}
	info, err := os.Stat(s.Path(filename))
	return err == nil && info.Mode().IsRegular()
}

// Open returns a reader for a stored file or common.ErrNotFound.
func (s *Store) Open(filename string) (*os.File, error) {
	f, err := os.Open(s.Path(filename))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.NotFoundf("file %s not found", filename)
	}
	return f, err
}

func canonicalExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if !extPattern.MatchString(ext) {
		return constants.DefaultImageExt
	}
	return ext
}
