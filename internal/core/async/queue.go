package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/graceskyliz/ocr3/internal/core"
)

// ErrQueueClosed is returned by Enqueue after Shutdown started.
var ErrQueueClosed = errors.New("queue is shutting down")

// Job is one document to process.
type Job struct {
	DocumentID  uuid.UUID
	SubmittedAt time.Time
	TraceID     string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// DocumentProcessor is the single-document operation the workers run.
type DocumentProcessor interface {
	Process(ctx context.Context, documentID uuid.UUID) (core.Result, error)
}

// ResultHandler observes every finished job. It is called from worker goroutines.
type ResultHandler func(job Job, res core.Result, err error)
