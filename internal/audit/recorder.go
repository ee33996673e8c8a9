// Package audit writes Activity records on a best-effort side channel.
// Handlers enqueue and move on; a slow or failing activity store can never
// fail the request that triggered the record.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/snapshare/inferno/internal/models"
	"github.com/snapshare/inferno/pkg/logger"
	"go.uber.org/zap"
)

const defaultQueueSize = 1024

// Writer is the subset of the activity repository the recorder needs.
type Writer interface {
	CreateActivity(ctx context.Context, activity *models.Activity) error
}

// Recorder drains a buffered channel of activities into the Writer on a
// single worker goroutine. Safe on a nil receiver.
type Recorder struct {
	writer Writer
	ch     chan models.Activity
	wg     sync.WaitGroup
}

// NewRecorder starts the worker. queueSize <= 0 selects the default.
func NewRecorder(writer Writer, queueSize int) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	r := &Recorder{
		writer: writer,
		ch:     make(chan models.Activity, queueSize),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for a := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.writer.CreateActivity(ctx, &a); err != nil {
			logger.L.Warn("activity write failed",
				zap.String("type", a.Type),
				zap.Uint("user_id", a.UserID),
				zap.Error(err))
		}
		cancel()
	}
}

// Record enqueues an activity. When the queue is full the record is dropped
// with a warning rather than blocking the caller.
func (r *Recorder) Record(activity models.Activity) {
	if r == nil {
		return
	}
	select {
	case r.ch <- activity:
	default:
		logger.L.Warn("activity queue full, dropping record",
			zap.String("type", activity.Type),
			zap.Uint("user_id", activity.UserID))
	}
}

// Close stops accepting records and waits for the queue to drain.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	close(r.ch)
	r.wg.Wait()
}
