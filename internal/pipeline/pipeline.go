// Package pipeline orchestrates one import run: list protocols from the
// archive, fetch each transcript, segment it into speeches, persist the
// result and optionally annotate pending speeches with summaries.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/protokollmine/protokollmine/internal/parsing"
	"github.com/protokollmine/protokollmine/internal/types"
)

// ProtocolIterator walks a paginated protocol listing
type ProtocolIterator interface {
	Next() bool
	Metadata() types.ProtocolMetadata
	Err() error
}

// ProtocolSource supplies protocol metadata and full transcript texts
type ProtocolSource interface {
	Protocols(ctx context.Context, updatedSince string) ProtocolIterator
	FetchProtocolText(ctx context.Context, identifier string) (types.ProtocolDocument, error)
}

// Store persists protocols and their speeches
type Store interface {
	UpsertProtocol(metadata types.ProtocolMetadata) error
	ReplaceSpeeches(protocolID string, speeches []types.Speech) (int, error)
	PendingSummaries(limit int) ([]types.Speech, error)
	UpdateSummary(speechID int64, summary string, sentiment, topics *string) error
}

// Summarizer produces a short synopsis for one speech body
type Summarizer interface {
	Summarize(ctx context.Context, speechText string) (string, error)
}

// EventKind labels a progress notification
type EventKind string

const (
	EventStart     EventKind = "start"
	EventMetadata  EventKind = "metadata"
	EventFetched   EventKind = "fetched"
	EventParsed    EventKind = "parsed"
	EventStored    EventKind = "stored"
	EventSummaries EventKind = "summaries"
	EventProgress  EventKind = "progress"
	EventFinished  EventKind = "finished"
	EventCancelled EventKind = "cancelled"
	EventError     EventKind = "error"
)

// Event is a fine grained progress notification emitted during a run
type Event struct {
	Kind         EventKind `json:"kind"`
	Processed    int       `json:"processed"`
	ProtocolID   string    `json:"protocol_id,omitempty"`
	Title        string    `json:"title,omitempty"`
	Message      string    `json:"message,omitempty"`
	SpeechCount  int       `json:"speech_count,omitempty"`
	SummaryCount int       `json:"summary_count,omitempty"`
}

// Options controls a single pipeline run
type Options struct {
	UpdatedSince string
	Limit        int // 0 means no limit
	OnEvent      func(Event)
}

const summaryBatchSize = 25

// Pipeline is the complete workflow for fetching, parsing and storing protocols
type Pipeline struct {
	source     ProtocolSource
	store      Store
	summarizer Summarizer // nil skips summarization
}

// New assembles a pipeline from its collaborators
func New(source ProtocolSource, store Store, summarizer Summarizer) *Pipeline {
	return &Pipeline{source: source, store: store, summarizer: summarizer}
}

// Run executes the pipeline end-to-end and returns the number of protocols
// processed. Cancellation is honored between protocol-level steps only.
func (p *Pipeline) Run(ctx context.Context, opts Options) (int, error) {
	processed := 0
	notify := func(event Event) {
		if opts.OnEvent != nil {
			opts.OnEvent(event)
		}
	}
	notify(Event{Kind: EventStart, Message: "Pipeline run started"})

	it := p.source.Protocols(ctx, opts.UpdatedSince)
	for it.Next() {
		if opts.Limit > 0 && processed >= opts.Limit {
			break
		}
		if ctx.Err() != nil {
			notify(Event{Kind: EventCancelled, Processed: processed, Message: "Pipeline run cancelled"})
			return processed, ctx.Err()
		}
		metadata := it.Metadata()
		log.Printf("Processing protocol %s", metadata.Identifier)
		notify(progressEvent(EventMetadata, processed, metadata, fmt.Sprintf("Processing protocol %s", metadata.Identifier)))

		document, err := p.source.FetchProtocolText(ctx, metadata.Identifier)
		if err != nil {
			return p.fail(notify, processed, metadata, err)
		}
		notify(progressEvent(EventFetched, processed, document.Metadata, "Fetched protocol text"))

		if err := p.store.UpsertProtocol(document.Metadata); err != nil {
			return p.fail(notify, processed, document.Metadata, err)
		}

		speeches := parsing.ParseSpeeches(document.FullText, document.Metadata.Identifier)
		event := progressEvent(EventParsed, processed, document.Metadata, fmt.Sprintf("Parsed %d speeches", len(speeches)))
		event.SpeechCount = len(speeches)
		notify(event)

		stored, err := p.store.ReplaceSpeeches(document.Metadata.Identifier, speeches)
		if err != nil {
			return p.fail(notify, processed, document.Metadata, err)
		}
		event = progressEvent(EventStored, processed, document.Metadata, fmt.Sprintf("Persisted %d speeches", stored))
		event.SpeechCount = stored
		notify(event)

		if p.summarizer != nil {
			summaryCount, err := p.summarizePending(ctx)
			if err != nil {
				return p.fail(notify, processed, document.Metadata, err)
			}
			if summaryCount > 0 {
				event = progressEvent(EventSummaries, processed, document.Metadata, fmt.Sprintf("Updated %d summaries", summaryCount))
				event.SummaryCount = summaryCount
				notify(event)
			}
			if ctx.Err() != nil {
				notify(Event{Kind: EventCancelled, Processed: processed, Message: "Pipeline run cancelled"})
				return processed, ctx.Err()
			}
		}

		processed++
		event = progressEvent(EventProgress, processed, document.Metadata, fmt.Sprintf("Completed protocol %s", metadata.Identifier))
		event.SpeechCount = stored
		notify(event)
	}
	if err := it.Err(); err != nil {
		log.Printf("Import pipeline failed: %v", err)
		notify(Event{Kind: EventError, Processed: processed, Message: err.Error()})
		return processed, err
	}
	if ctx.Err() != nil {
		notify(Event{Kind: EventCancelled, Processed: processed, Message: "Pipeline run cancelled"})
		return processed, ctx.Err()
	}

	notify(Event{Kind: EventFinished, Processed: processed, Message: "Pipeline run finished"})
	return processed, nil
}

// summarizePending annotates one batch of unsummarized speeches. Cancellation
// stops between speeches without failing the run.
func (p *Pipeline) summarizePending(ctx context.Context) (int, error) {
	pending, err := p.store.PendingSummaries(summaryBatchSize)
	if err != nil {
		return 0, err
	}
	generated := 0
	for _, speech := range pending {
		if ctx.Err() != nil {
			break
		}
		summary, err := p.summarizer.Summarize(ctx, speech.Text)
		if err != nil {
			return generated, err
		}
		if err := p.store.UpdateSummary(speech.ID, summary, nil, nil); err != nil {
			return generated, err
		}
		generated++
	}
	return generated, nil
}

func (p *Pipeline) fail(notify func(Event), processed int, metadata types.ProtocolMetadata, err error) (int, error) {
	log.Printf("Import pipeline failed: %v", err)
	event := progressEvent(EventError, processed, metadata, err.Error())
	notify(event)
	return processed, err
}

func progressEvent(kind EventKind, processed int, metadata types.ProtocolMetadata, message string) Event {
	event := Event{
		Kind:       kind,
		Processed:  processed,
		ProtocolID: metadata.Identifier,
		Message:    message,
	}
	if metadata.Title != nil {
		event.Title = *metadata.Title
	}
	return event
}
