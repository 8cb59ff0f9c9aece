package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/protokollmine/protokollmine/internal/queue"
	"github.com/protokollmine/protokollmine/internal/types"
)

// Enqueuer is the slice of the worker pool the scheduler needs
type Enqueuer interface {
	Enqueue(trigger, updatedSince string, limit int) (queue.Job, error)
	Busy() bool
}

// Scheduler triggers periodic imports of recently updated protocols
type Scheduler struct {
	cron             *cron.Cron
	spec             string
	updatedSinceDays int
	pool             Enqueuer
}

// New creates a scheduler for the given cron spec
func New(pool Enqueuer, spec string, updatedSinceDays int) *Scheduler {
	return &Scheduler{
		cron:             cron.New(),
		spec:             spec,
		updatedSinceDays: updatedSinceDays,
		pool:             pool,
	}
}

// Start registers the cron entry and begins scheduling
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.trigger); err != nil {
		return fmt.Errorf("invalid schedule %q: %v", s.spec, err)
	}
	s.cron.Start()
	log.Printf("Import scheduler started (spec: %s, window: %dd)", s.spec, s.updatedSinceDays)
	return nil
}

// Stop stops the scheduler without interrupting a running import
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("Import scheduler stopped")
}

// trigger enqueues a scheduled import unless one is already in flight
func (s *Scheduler) trigger() {
	if s.pool.Busy() {
		log.Println("Skipping scheduled import: a job is already running")
		return
	}
	updatedSince := time.Now().AddDate(0, 0, -s.updatedSinceDays).Format("2006-01-02T15:04:05")
	job, err := s.pool.Enqueue(types.TriggerSchedule, updatedSince, 0)
	if err != nil {
		log.Printf("Failed to enqueue scheduled import: %v", err)
		return
	}
	log.Printf("Scheduled import enqueued as job %s (since %s)", job.ID, updatedSince)
}
