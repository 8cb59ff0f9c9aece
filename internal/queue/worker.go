package queue

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/protokollmine/protokollmine/internal/pipeline"
	"github.com/protokollmine/protokollmine/internal/types"
)

// Runner executes one import run; satisfied by *pipeline.Pipeline
type Runner interface {
	Run(ctx context.Context, opts pipeline.Options) (int, error)
}

// EventSink receives progress events tagged with the owning job ID
type EventSink func(jobID string, event pipeline.Event)

// WorkerPool manages a pool of workers processing import jobs
type WorkerPool struct {
	jobQueue    chan string
	workerCount int
	runner      Runner
	sink        EventSink

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	jobs map[string]*Job
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workerCount int, runner Runner, sink EventSink) *WorkerPool {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobQueue:    make(chan string, 100),
		workerCount: workerCount,
		runner:      runner,
		sink:        sink,
		ctx:         ctx,
		cancel:      cancel,
		jobs:        make(map[string]*Job),
	}
}

// Start initializes all workers
func (wp *WorkerPool) Start() {
	log.Printf("Starting worker pool with %d workers", wp.workerCount)
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop cancels running jobs and waits for the workers to drain
func (wp *WorkerPool) Stop() {
	wp.cancel()
	close(wp.jobQueue)
	wp.wg.Wait()
	log.Println("Worker pool stopped")
}

// Enqueue registers a new import job and hands it to the workers
func (wp *WorkerPool) Enqueue(trigger, updatedSince string, limit int) (Job, error) {
	job := newJob(uuid.New().String(), trigger, updatedSince, limit)

	wp.mu.Lock()
	wp.jobs[job.ID] = job
	wp.mu.Unlock()

	select {
	case wp.jobQueue <- job.ID:
	default:
		wp.mu.Lock()
		delete(wp.jobs, job.ID)
		wp.mu.Unlock()
		return Job{}, fmt.Errorf("job queue is full")
	}

	log.Printf("Job %s enqueued (trigger: %s)", job.ID, trigger)
	return *job, nil
}

// Job returns a snapshot of one job's state
func (wp *WorkerPool) Job(id string) (Job, bool) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	job, ok := wp.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Busy reports whether any job is queued or running
func (wp *WorkerPool) Busy() bool {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	for _, job := range wp.jobs {
		if job.Status == types.StatusQueued || job.Status == types.StatusProcessing {
			return true
		}
	}
	return false
}

// worker processes jobs from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log.Printf("Worker %d started", id)

	for jobID := range wp.jobQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("Worker %d: PANIC processing job %s: %v\n%s", id, jobID, r, string(debug.Stack()))
					wp.update(jobID, func(job *Job) {
						job.Status = types.StatusFailed
						job.Error = fmt.Sprintf("worker panic: %v", r)
						job.FinishedAt = timePtr(time.Now())
					})
				}
			}()
			wp.processJob(id, jobID)
		}()
	}
}

// processJob runs the full import pipeline for one job
func (wp *WorkerPool) processJob(workerID int, jobID string) {
	log.Printf("Worker %d: Processing job %s", workerID, jobID)

	var updatedSince string
	var limit int
	wp.update(jobID, func(job *Job) {
		job.Status = types.StatusProcessing
		job.StartedAt = timePtr(time.Now())
		updatedSince = job.UpdatedSince
		limit = job.Limit
	})

	processed, err := wp.runner.Run(wp.ctx, pipeline.Options{
		UpdatedSince: updatedSince,
		Limit:        limit,
		OnEvent: func(event pipeline.Event) {
			wp.update(jobID, func(job *Job) {
				job.Processed = event.Processed
				if event.Kind == pipeline.EventStored {
					job.SpeechCount += event.SpeechCount
				}
				if event.Kind == pipeline.EventSummaries {
					job.SummaryCount += event.SummaryCount
				}
			})
			if wp.sink != nil {
				wp.sink(jobID, event)
			}
		},
	})

	wp.update(jobID, func(job *Job) {
		job.Processed = processed
		job.FinishedAt = timePtr(time.Now())
		if err != nil {
			job.Status = types.StatusFailed
			job.Error = err.Error()
		} else {
			job.Status = types.StatusCompleted
		}
	})

	if err != nil {
		log.Printf("Worker %d: Job %s failed: %v", workerID, jobID, err)
		return
	}
	log.Printf("Worker %d: Job %s completed (%d protocols)", workerID, jobID, processed)
}

func (wp *WorkerPool) update(jobID string, fn func(job *Job)) {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if job, ok := wp.jobs[jobID]; ok {
		fn(job)
	}
}

func timePtr(value time.Time) *time.Time {
	return &value
}
