// Package cardbacks lists the card-back images served under /static/card_backs.
package cardbacks

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
)

// URLPrefix is where the server exposes the card-back directory.
const URLPrefix = "/static/card_backs/"

type Library struct {
	dir    string
	rnd    *common.Rand
	logger *slog.Logger
}

func NewLibrary(dir string, rnd *common.Rand, logger *slog.Logger) *Library {
	if rnd == nil {
		rnd = common.NewTimeSeededRand()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{dir: dir, rnd: rnd, logger: logger}
}

// List returns the URL of every card-back image, sorted by filename. A missing
// directory yields an empty list.
func (l *Library) List() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := constants.CardBackExtensions[constants.NormalizeExt(filepath.Ext(e.Name()))]; !ok {
			continue
		}
		out = append(out, URLPrefix+e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// Random picks one card-back URL, or "" when the library is empty.
func (l *Library) Random() string {
	backs, err := l.List()
	if err != nil {
		l.logger.Warn("cardbacks.list_failed", "dir", l.dir, "error", err)
		return ""
	}
	return common.Pick(l.rnd, backs)
}
