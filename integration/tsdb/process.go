package tsdb

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
)

const (
	StateLoaded              = "LOADED"
	StateRunning             = "RUNNING"
	StateCompleted           = "COMPLETED"
	StateCompletedWithErrors = "COMPLETED_WITH_ERRORS"
	StateCanceled            = "CANCELED"
)

// BatchResult is outcome of one request of a batch.
type BatchResult struct {
	Response *Response
	Err      error
}

// Process transforms a batch of requests using a pool of workers.
// Results keep order of requests.
type Process struct {
	pipeline  *Pipeline
	workers   int
	mutex     sync.Mutex
	state     string
	lastError string
}

// NewProcess is a constructor
func NewProcess(pipeline *Pipeline) *Process {
	return &Process{pipeline: pipeline, workers: pipeline.Workers(), state: StateLoaded}
}

func (pr *Process) State() string {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()
	return pr.state
}

// LastError returns error of the last failed request of the latest batch.
func (pr *Process) LastError() string {
	pr.mutex.Lock()
	defer pr.mutex.Unlock()
	return pr.lastError
}

func (pr *Process) setState(state, lastError string) {
	pr.mutex.Lock()
	pr.state = state
	pr.lastError = lastError
	pr.mutex.Unlock()
}

// Run blocks until all requests are transformed or context is canceled.
// Requests which were not started before cancellation get context error.
func (pr *Process) Run(ctx context.Context, requests []*Request) []BatchResult {
	pr.setState(StateRunning, "")
	results := make([]BatchResult, len(requests))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := pr.workers
	if workers > len(requests) {
		workers = len(requests)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				resp, err := pr.pipeline.Run(requests[i])
				results[i] = BatchResult{Response: resp, Err: err}
			}
		}()
	}

	next := 0
feed:
	for ; next < len(requests); next++ {
		if ctx.Err() != nil {
			break
		}
		select {
		case jobs <- next:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	for i := next; i < len(requests); i++ {
		results[i] = BatchResult{Err: ctx.Err()}
	}
	state, lastError := StateCompleted, ""
	for _, r := range results {
		if r.Err != nil {
			state, lastError = StateCompletedWithErrors, r.Err.Error()
		}
	}
	if next < len(requests) {
		state = StateCanceled
	}
	pr.setState(state, lastError)
	log.Infof("<tsdb> Batch of %d requests processed by %d workers. State = %s", len(requests), workers, state)
	return results
}
