package dip

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return NewClient(url, "test-key", 5*time.Second, 1)
}

func TestProtocolsPagination(t *testing.T) {
	var seenAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/plenarprotokoll", r.URL.Path)
		seenAuth = r.Header.Get("Authorization")
		switch r.URL.Query().Get("cursor") {
		case "":
			assert.Equal(t, "2024-01-01T00:00:00", r.URL.Query().Get("f.aktualisiertStart"))
			json.NewEncoder(w).Encode(map[string]any{
				"documents": []map[string]any{
					{"id": "1001", "wahlperiode": "20", "nummer": "150", "datum": "2024-03-15", "titel": "150. Sitzung"},
					{"id": 1002, "wahlperiode": 20, "nummer": 151},
				},
				"cursor": "page-2",
			})
		case "page-2":
			json.NewEncoder(w).Encode(map[string]any{
				"documents": []map[string]any{
					{"dipId": "1003", "sitzungsdatum": "16.03.2024"},
				},
				// Repeated cursor signals the final page.
				"cursor": "page-2",
			})
		default:
			t.Fatalf("unexpected cursor %q", r.URL.Query().Get("cursor"))
		}
	}))
	defer server.Close()

	it := newTestClient(server.URL).Protocols(context.Background(), "2024-01-01T00:00:00")

	var ids []string
	for it.Next() {
		ids = append(ids, it.Metadata().Identifier)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"1001", "1002", "1003"}, ids)
	assert.Equal(t, "ApiKey test-key", seenAuth)
}

func TestProtocolsMetadataParsing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"documents": []map[string]any{
				{"id": "1001", "wahlperiode": "20", "nummer": 150, "datum": "2024-03-15", "titel": "150. Sitzung"},
			},
		})
	}))
	defer server.Close()

	it := newTestClient(server.URL).Protocols(context.Background(), "")
	require.True(t, it.Next())
	metadata := it.Metadata()
	assert.Equal(t, "1001", metadata.Identifier)
	require.NotNil(t, metadata.LegislativePeriod)
	assert.Equal(t, 20, *metadata.LegislativePeriod)
	require.NotNil(t, metadata.SessionNumber)
	assert.Equal(t, 150, *metadata.SessionNumber)
	require.NotNil(t, metadata.Date)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), *metadata.Date)
	require.NotNil(t, metadata.Title)
	assert.Equal(t, "150. Sitzung", *metadata.Title)
	assert.Equal(t, "20", metadata.Source["wahlperiode"])
	require.False(t, it.Next())
	require.NoError(t, it.Err())
}

func TestProtocolsUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	it := newTestClient(server.URL).Protocols(context.Background(), "")
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), ErrUnauthorized)
}

func TestFetchProtocolText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/plenarprotokoll-text/1001", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"id":   "1001",
			"text": "Präsidentin Bärbel Bas:\nIch eröffne die Sitzung.\n",
		})
	}))
	defer server.Close()

	document, err := newTestClient(server.URL).FetchProtocolText(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, "1001", document.Metadata.Identifier)
	assert.Contains(t, document.FullText, "Ich eröffne die Sitzung.")
}

func TestFetchProtocolTextMissingText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "1001"})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchProtocolText(context.Background(), "1001")
	assert.ErrorContains(t, err, "does not contain text data")
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":   "1001",
			"text": "Erster Redner:\nText.\n",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second, 3)
	_, err := client.FetchProtocolText(context.Background(), "1001")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
