package async

import (
	"context"
	"errors"
	"time"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has begun.
var ErrQueueClosed = errors.New("queue is shutting down")

// Upload is one buffered file waiting for background ingestion.
type Upload struct {
	Filename string
	Data     []byte
}

// Job asks the worker pool to process one pack.
type Job struct {
	PackID      string
	Files       []Upload
	CardBack    string
	SubmittedAt time.Time
	TraceID     string
}

// Handler processes a single job. Its error is logged and counted.
type Handler func(ctx context.Context, job Job) error

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Stats() Stats
	Shutdown(ctx context.Context) error
}

// Stats is a snapshot of the queue counters.
type Stats struct {
	Queued    int64 `json:"queued"`
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
	Rejected  int64 `json:"rejected"`
	Pending   int   `json:"pending"`
}
