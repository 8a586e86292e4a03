package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/ingest"
)

func TestNew_Backends(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		dsn     string
	}{
		{"json", common.BackendJSON, ""},
		{"bolt", common.BackendBolt, ""},
		{"sqlite", common.BackendSQLite, "cards.sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cfg := TestConfig(t.TempDir())
			cfg.Storage.Backend = tt.backend
			cfg.Storage.DSN = tt.dsn

			a, err := New(ctx, cfg, nil, WithRand(common.NewRand(11)))
			require.NoError(t, err)
			t.Cleanup(func() { require.NoError(t, a.Close(context.Background())) })

			assert.Equal(t, "stub", a.Analyzer.Name())
			assert.Nil(t, a.Inbox())

			card, outcome, err := a.Pipeline.Ingest(ctx, ingest.Request{
				Data:     bytes.NewBufferString("image-bytes"),
				Filename: "cat.png",
			})
			require.NoError(t, err)
			assert.Equal(t, ingest.OutcomeCreated, outcome)

			visible, err := a.Catalog.ListVisible(ctx)
			require.NoError(t, err)
			require.Len(t, visible, 1)
			assert.Equal(t, card.MD5, visible[0].MD5)
		})
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := TestConfig(t.TempDir())
	cfg.Storage.Backend = "mongo"
	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestNewAnalyzer_SelectsTransport(t *testing.T) {
	cfg := TestConfig(t.TempDir())
	cfg.Analyzer.UseStub = false
	cfg.Analyzer.Kind = common.AnalyzerOpenAI
	cfg.Analyzer.Model = "qwen2-vl"

	svc, err := NewAnalyzer(context.Background(), cfg, common.NewRand(1), nil)
	require.NoError(t, err)
	assert.Equal(t, "vision:qwen2-vl", svc.Name())
}

func TestInbox_IngestsDroppedFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := TestConfig(dir)
	cfg.Inbox.Dir = filepath.Join(dir, "inbox")
	cfg.Inbox.Debounce = 10 * time.Millisecond

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close(context.Background())

	inbox := a.Inbox()
	require.NotNil(t, inbox)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- inbox.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := os.Stat(cfg.Inbox.Dir)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	// give the watcher a moment to register the directory
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Inbox.Dir, "drop.jpg"), []byte("dropped"), 0o644))

	require.Eventually(t, func() bool {
		cards, err := a.Catalog.ListVisible(context.Background())
		return err == nil && len(cards) == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
