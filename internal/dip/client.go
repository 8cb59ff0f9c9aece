// Package dip talks to the Bundestag DIP archive, which serves plenary
// protocol metadata and full transcript texts as paginated JSON.
package dip

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/protokollmine/protokollmine/internal/types"
)

var (
	ErrUnauthorized = errors.New("dip: API key rejected (status 401)")
	ErrForbidden    = errors.New("dip: access denied (status 403)")
	ErrRateLimited  = errors.New("dip: request limit reached (status 429)")
)

// Client is a minimal client for fetching plenary protocols from DIP
type Client struct {
	rest *resty.Client
}

// NewClient creates a DIP client. Transient failures (network errors, 5xx,
// 429) are retried up to maxRetries attempts; auth failures are not.
func NewClient(baseURL, apiKey string, timeout time.Duration, maxRetries int) *Client {
	rest := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(maxRetries-1).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == 429 || resp.StatusCode() >= 500
		})
	if apiKey != "" {
		rest.SetHeader("Authorization", "ApiKey "+apiKey)
	}
	return &Client{rest: rest}
}

// Protocols returns an iterator over the archive's protocol metadata,
// optionally restricted to entries updated since the given ISO timestamp.
func (c *Client) Protocols(ctx context.Context, updatedSince string) *ProtocolIterator {
	return &ProtocolIterator{client: c, ctx: ctx, updatedSince: updatedSince}
}

// FetchProtocolText downloads one protocol including its full transcript
func (c *Client) FetchProtocolText(ctx context.Context, identifier string) (types.ProtocolDocument, error) {
	var data map[string]any
	if err := c.getJSON(ctx, "/plenarprotokoll-text/"+identifier, nil, &data); err != nil {
		return types.ProtocolDocument{}, err
	}
	metadata, err := parseProtocolMetadata(data)
	if err != nil {
		return types.ProtocolDocument{}, err
	}
	fullText := stringField(data, "text", "inhalt")
	if fullText == "" {
		return types.ProtocolDocument{}, fmt.Errorf("dip: protocol %s does not contain text data", identifier)
	}
	return types.ProtocolDocument{Metadata: metadata, FullText: fullText}, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params map[string]string, out any) error {
	resp, err := c.rest.R().SetContext(ctx).SetQueryParams(params).Get(path)
	if err != nil {
		return fmt.Errorf("dip: request %s failed: %w", path, err)
	}
	if resp.IsError() {
		switch resp.StatusCode() {
		case 401:
			return ErrUnauthorized
		case 403:
			return ErrForbidden
		case 429:
			return ErrRateLimited
		default:
			return fmt.Errorf("dip: request %s rejected with status %d", path, resp.StatusCode())
		}
	}
	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("dip: invalid response for %s: %w", path, err)
	}
	return nil
}

// ProtocolIterator pages through the protocol listing cursor by cursor
type ProtocolIterator struct {
	client       *Client
	ctx          context.Context
	updatedSince string

	cursor  string
	buffer  []types.ProtocolMetadata
	current types.ProtocolMetadata
	done    bool
	err     error
}

// Next advances to the next protocol, fetching further pages as needed.
// It returns false when the listing is exhausted or an error occurred.
func (it *ProtocolIterator) Next() bool {
	for len(it.buffer) == 0 {
		if it.done || it.err != nil {
			return false
		}
		it.fetchPage()
	}
	it.current = it.buffer[0]
	it.buffer = it.buffer[1:]
	return true
}

// Metadata returns the protocol produced by the last call to Next
func (it *ProtocolIterator) Metadata() types.ProtocolMetadata {
	return it.current
}

// Err reports the first error encountered while paging
func (it *ProtocolIterator) Err() error {
	return it.err
}

func (it *ProtocolIterator) fetchPage() {
	params := map[string]string{}
	if it.updatedSince != "" {
		params["f.aktualisiertStart"] = it.updatedSince
	}
	if it.cursor != "" {
		params["cursor"] = it.cursor
	}

	var page struct {
		Documents []map[string]any `json:"documents"`
		Dokuments []map[string]any `json:"dokuments"`
		Cursor    any              `json:"cursor"`
	}
	if err := it.client.getJSON(it.ctx, "/plenarprotokoll", params, &page); err != nil {
		it.err = err
		return
	}

	documents := page.Documents
	if len(documents) == 0 {
		documents = page.Dokuments
	}
	if len(documents) == 0 {
		it.done = true
		return
	}
	for _, entry := range documents {
		metadata, err := parseProtocolMetadata(entry)
		if err != nil {
			it.err = err
			return
		}
		it.buffer = append(it.buffer, metadata)
	}

	nextCursor := anyToString(page.Cursor)
	if nextCursor == "" || nextCursor == it.cursor {
		it.done = true
		return
	}
	it.cursor = nextCursor
}

func parseProtocolMetadata(data map[string]any) (types.ProtocolMetadata, error) {
	identifier := stringField(data, "id", "vorgangId", "dipId", "plenarprotokollId")
	if identifier == "" {
		return types.ProtocolMetadata{}, errors.New("dip: protocol metadata did not contain an identifier")
	}

	metadata := types.ProtocolMetadata{
		Identifier:        identifier,
		LegislativePeriod: intField(data, "wahlperiode", "wahlperiodeNummer"),
		SessionNumber:     intField(data, "sitzungsnummer", "nummer"),
		Date:              dateField(data, "datum", "sitzungsdatum"),
		Source:            data,
	}
	if title := stringField(data, "titel", "sitzungstitel"); title != "" {
		metadata.Title = &title
	}
	return metadata, nil
}

func stringField(data map[string]any, keys ...string) string {
	for _, key := range keys {
		if value := anyToString(data[key]); value != "" {
			return value
		}
	}
	return ""
}

func intField(data map[string]any, keys ...string) *int {
	for _, key := range keys {
		switch value := data[key].(type) {
		case float64:
			result := int(value)
			return &result
		case string:
			if parsed, err := strconv.Atoi(value); err == nil {
				return &parsed
			}
		}
	}
	return nil
}

// dateField accepts the archive's ISO and German date spellings
func dateField(data map[string]any, keys ...string) *time.Time {
	layouts := []string{"2006-01-02", time.RFC3339, "02.01.2006"}
	for _, key := range keys {
		raw := anyToString(data[key])
		if raw == "" {
			continue
		}
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				date := parsed.UTC().Truncate(24 * time.Hour)
				return &date
			}
		}
	}
	return nil
}

func anyToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}
