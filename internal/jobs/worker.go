package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor drains one batch of pending reindex jobs per call.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls the reindex queue on a fixed interval. A single worker per
// process is enough; the claim query uses SKIP LOCKED so running several
// replicas is also safe.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stop         chan struct{}
	done         chan struct{}
}

func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Start runs the polling loop until the context is cancelled or Stop is
// called. Jobs enqueued before startup are picked up on the first drain
// rather than waiting a full interval.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.done)

	log.Printf("Reindex worker started with poll interval: %v", w.pollInterval)

	w.drain(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("Reindex worker stopped: context cancelled")
			return
		case <-w.stop:
			log.Println("Reindex worker stopped: stop signal received")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("Error processing reindex jobs: %v", err)
	}
}

// Stop signals the loop to exit and blocks until the in-flight drain, if
// any, has finished.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
	log.Println("Reindex worker shutdown complete")
}
