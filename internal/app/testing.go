package app

import (
	"path/filepath"
	"time"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
)

// TestConfig returns a stub-analyzer configuration rooted at dir, for tests
// and local experiments.
func TestConfig(dir string) *common.Config {
	cfg := common.DefaultConfig()
	cfg.Server.StaticDir = filepath.Join(dir, "static")
	cfg.Server.CardBacksDir = filepath.Join(dir, "static", "card_backs")
	cfg.Storage.UploadDir = filepath.Join(dir, "uploads")
	cfg.Storage.DataDir = dir
	cfg.Analyzer.UseStub = true
	cfg.Analyzer.StubDelay = 0
	cfg.GodDraw.Timeout = 5 * time.Second
	return cfg
}
