package contentstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSMirror copies stored images into a bucket. Objects are written with a
// DoesNotExist precondition, so a second copy of the same fingerprint is a no-op.
type GCSMirror struct {
	bucket *storage.BucketHandle
	prefix string
	logger *slog.Logger
}

func NewGCSMirror(client *storage.Client, bucket, prefix string, logger *slog.Logger) *GCSMirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &GCSMirror{bucket: client.Bucket(bucket), prefix: prefix, logger: logger}
}

func (m *GCSMirror) Put(ctx context.Context, filename, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	objectName := path.Join(m.prefix, filename)
	writer := m.bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if _, err := io.Copy(writer, f); err != nil {
		_ = writer.Close()
		return m.classify(objectName, err)
	}
	if err := writer.Close(); err != nil {
		return m.classify(objectName, err)
	}
	m.logger.Info("contentstore.mirror.ok", "object", objectName)
	return nil
}

func (m *GCSMirror) classify(objectName string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
		m.logger.Debug("contentstore.mirror.exists", "object", objectName)
		return nil
	}
	return fmt.Errorf("write gs object %s: %w", objectName, err)
}
