package queue

import (
	"time"

	"github.com/protokollmine/protokollmine/internal/types"
)

// Job represents one import run through the pipeline
type Job struct {
	ID           string     `json:"id"`
	Trigger      string     `json:"trigger"`
	UpdatedSince string     `json:"updated_since,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	Status       string     `json:"status"`
	Processed    int        `json:"processed"`
	SpeechCount  int        `json:"speech_count"`
	SummaryCount int        `json:"summary_count"`
	Error        string     `json:"error,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

func newJob(id, trigger, updatedSince string, limit int) *Job {
	return &Job{
		ID:           id,
		Trigger:      trigger,
		UpdatedSince: updatedSince,
		Limit:        limit,
		Status:       types.StatusQueued,
		CreatedAt:    time.Now(),
	}
}
