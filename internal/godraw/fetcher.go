// Package godraw pulls random images from an external endpoint and turns them
// into cards.
package godraw

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/goxtopia/PaiCard-Trade-card-generator/constants"
)

// maxImageBytes caps a single downloaded image.
const maxImageBytes = 20 << 20

// Image is one downloaded picture.
type Image struct {
	Filename string
	Data     []byte
	Source   string
}

// Fetcher resolves an endpoint to image bytes. The endpoint may answer with an
// image directly or with {"image_url": "..."} pointing at one.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
}

func NewFetcher(client *http.Client, logger *slog.Logger) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{client: client, logger: logger}
}

type endpointResponse struct {
	ImageURL string `json:"image_url"`
	URL      string `json:"url"`
}

func (f *Fetcher) Fetch(ctx context.Context, endpoint string) (Image, error) {
	body, ctype, err := f.get(ctx, endpoint)
	if err != nil {
		return Image{}, err
	}
	if isImage(ctype) {
		return Image{Filename: filenameFor(endpoint, ctype), Data: body, Source: endpoint}, nil
	}

	var ep endpointResponse
	if err := json.Unmarshal(body, &ep); err != nil {
		return Image{}, fmt.Errorf("decode %s: %w", endpoint, err)
	}
	target := strings.TrimSpace(ep.ImageURL)
	if target == "" {
		target = strings.TrimSpace(ep.URL)
	}
	if target == "" {
		return Image{}, fmt.Errorf("endpoint %s returned no image_url", endpoint)
	}

	data, ctype, err := f.get(ctx, target)
	if err != nil {
		return Image{}, err
	}
	f.logger.Debug("godraw.fetch.ok", "image_url", target, "bytes", len(data), "content_type", ctype)
	return Image{Filename: filenameFor(target, ctype), Data: data, Source: target}, nil
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, "", fmt.Errorf("get %s: status %d", target, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", target, err)
	}
	if len(data) > maxImageBytes {
		return nil, "", fmt.Errorf("get %s: body exceeds %d bytes", target, maxImageBytes)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func isImage(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && strings.HasPrefix(mt, "image/")
}

// filenameFor keeps the URL's basename when it carries an image extension,
// otherwise derives one from the content type.
func filenameFor(raw, contentType string) string {
	name := "god_draw"
	if u, err := url.Parse(raw); err == nil {
		if base := path.Base(u.Path); base != "" && base != "/" && base != "." {
			if constants.IsAllowedImage(path.Ext(base)) {
				return base
			}
		}
	}
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if ext := strings.TrimPrefix(mt, "image/"); ext != mt && constants.IsAllowedImage(ext) {
			return name + "." + ext
		}
	}
	return name + constants.DefaultImageExt
}
