package godraw

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/common"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/entity"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/ingest"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository"
	"github.com/goxtopia/PaiCard-Trade-card-generator/internal/repository/jsonfile"
)

type recordingIngestor struct {
	mu   sync.Mutex
	reqs []ingest.Request
	data []string
}

func (r *recordingIngestor) Ingest(_ context.Context, req ingest.Request) (entity.Card, ingest.Outcome, error) {
	b, err := io.ReadAll(req.Data)
	if err != nil {
		return entity.Card{}, "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	r.data = append(r.data, string(b))
	return entity.Card{MD5: string(b), Filename: req.Filename, CardBack: req.CardBack}, ingest.OutcomeCreated, nil
}

func (r *recordingIngestor) Regenerate(context.Context, string, string) (entity.Card, error) {
	return entity.Card{}, errors.New("unused")
}

type oneBack struct{}

func (oneBack) Random() string { return "/static/card_backs/gold.png" }

func newSettings(t *testing.T) repository.SettingsRepository {
	t.Helper()
	s, err := jsonfile.NewSettingsRepository(filepath.Join(t.TempDir(), "settings.json"))
	require.NoError(t, err)
	return s
}

func imageServer(t *testing.T, failEvery int) *httptest.Server {
	t.Helper()
	var n atomic.Int32
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("GET /api", func(w http.ResponseWriter, r *http.Request) {
		i := n.Add(1)
		if failEvery > 0 && int(i)%failEvery == 0 {
			http.Error(w, "nope", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"code":200,"image_url":"%s/img/%d.png"}`, srv.URL, i)
	})
	mux.HandleFunc("GET /img/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		fmt.Fprint(w, "bytes-"+r.PathValue("name"))
	})
	mux.HandleFunc("GET /direct", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/webp")
		fmt.Fprint(w, "direct")
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetcher_FollowsImageURL(t *testing.T) {
	srv := imageServer(t, 0)
	f := NewFetcher(srv.Client(), nil)

	img, err := f.Fetch(context.Background(), srv.URL+"/api")
	require.NoError(t, err)
	assert.Equal(t, "1.png", img.Filename)
	assert.Equal(t, "bytes-1.png", string(img.Data))
}

func TestFetcher_DirectImage(t *testing.T) {
	srv := imageServer(t, 0)
	f := NewFetcher(srv.Client(), nil)

	img, err := f.Fetch(context.Background(), srv.URL+"/direct")
	require.NoError(t, err)
	assert.Equal(t, "god_draw.webp", img.Filename)
	assert.Equal(t, "direct", string(img.Data))
}

func TestFetcher_Errors(t *testing.T) {
	srv := imageServer(t, 1)
	f := NewFetcher(srv.Client(), nil)
	_, err := f.Fetch(context.Background(), srv.URL+"/api")
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

func TestService_DrawSkipsFailures(t *testing.T) {
	srv := imageServer(t, 3)
	ing := &recordingIngestor{}
	svc := NewService(NewFetcher(srv.Client(), nil), ing, newSettings(t), oneBack{}, common.NewRand(7),
		Config{URL: srv.URL + "/api", Min: 6, Max: 6}, nil)

	cards, err := svc.Draw(context.Background())
	require.NoError(t, err)
	assert.Len(t, cards, 4)
	for _, c := range cards {
		assert.Equal(t, "/static/card_backs/gold.png", c.CardBack)
	}
	for _, req := range ing.reqs {
		assert.False(t, req.Hidden)
		assert.False(t, req.Regenerate)
	}
}

func TestService_CountWithinBounds(t *testing.T) {
	srv := imageServer(t, 0)
	svc := NewService(NewFetcher(srv.Client(), nil), &recordingIngestor{}, newSettings(t), oneBack{}, common.NewRand(3),
		Config{URL: srv.URL + "/api", Min: 5, Max: 10}, nil)

	for range 5 {
		cards, err := svc.Draw(context.Background())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(cards), 5)
		assert.LessOrEqual(t, len(cards), 10)
	}
}

func TestService_SettingsOverrideEndpoint(t *testing.T) {
	srv := imageServer(t, 0)
	settings := newSettings(t)
	_, err := settings.Merge(context.Background(), entity.Settings{entity.SettingsGodDrawURL: srv.URL + "/direct"})
	require.NoError(t, err)

	ing := &recordingIngestor{}
	svc := NewService(NewFetcher(srv.Client(), nil), ing, settings, oneBack{}, nil,
		Config{URL: "http://127.0.0.1:1/unused", Min: 2, Max: 2}, nil)

	assert.Equal(t, srv.URL+"/direct", svc.Endpoint(context.Background()))
	cards, err := svc.Draw(context.Background())
	require.NoError(t, err)
	assert.Len(t, cards, 2)
	assert.Equal(t, []string{"direct", "direct"}, ing.data)
}
