package types

import "time"

// Job status constants
const (
	StatusQueued     = "QUEUED"
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusFailed     = "FAILED"
)

// Import trigger constants
const (
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
)

// ProtocolMetadata describes one plenary protocol as reported by the archive.
// Source keeps the raw API payload for provenance.
type ProtocolMetadata struct {
	Identifier        string
	LegislativePeriod *int
	SessionNumber     *int
	Date              *time.Time
	Title             *string
	Source            map[string]any
}

// ProtocolDocument is a protocol including its full transcript text.
type ProtocolDocument struct {
	Metadata ProtocolMetadata
	FullText string
}

// Speech is a single attributed contribution within a protocol.
// Summary, Sentiment and Topics stay nil until the summarizer fills them in.
type Speech struct {
	ID             int64   `json:"id"`
	ProtocolID     string  `json:"protocol_id"`
	SequenceNumber int     `json:"sequence_number"`
	SpeakerName    string  `json:"speaker_name"`
	Party          *string `json:"party"`
	Role           *string `json:"role"`
	Text           string  `json:"text"`
	Summary        *string `json:"summary"`
	Sentiment      *string `json:"sentiment"`
	Topics         *string `json:"topics"`
}

// ProtocolOverview is the listing projection served by the browse endpoints.
type ProtocolOverview struct {
	Identifier        string     `json:"identifier"`
	LegislativePeriod *int       `json:"legislative_period"`
	SessionNumber     *int       `json:"session_number"`
	Date              *time.Time `json:"date"`
	Title             *string    `json:"title"`
	SpeechCount       int        `json:"speech_count"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
