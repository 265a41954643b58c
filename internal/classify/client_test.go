package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/importer/internal/importer"
)

func sampleTxs() []*importer.CanonicalTransaction {
	return []*importer.CanonicalTransaction{
		{
			SequenceID:   1,
			Date:         time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC),
			Type:         importer.TypeExpense,
			Amount:       decimal.RequireFromString("25.50"),
			Description:  "Lunch",
			Counterparty: "Cafe",
		},
		{
			SequenceID:  2,
			Date:        time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC),
			Type:        importer.TypeExpense,
			Amount:      decimal.RequireFromString("4.00"),
			Description: "Metro",
		},
	}
}

// writeFrame sends one SSE data frame carrying a delta content fragment.
func writeFrame(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	chunk := map[string]any{
		"choices": []map[string]any{{"delta": map[string]string{"content": content}}},
	}
	payload, err := json.Marshal(chunk)
	require.NoError(t, err)
	fmt.Fprintf(w, "data: %s\n\n", payload)
	w.(http.Flusher).Flush()
}

func newTestClient(endpoint string) *Client {
	return New(Config{
		Endpoint: endpoint,
		Model:    "test-model",
		APIKey:   "test-key",
	}, zerolog.Nop())
}

func TestCategorize_StreamsPartialResults(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "text/event-stream")
		// The JSON splits across frames at awkward boundaries.
		writeFrame(t, w, `{"transacti`)
		writeFrame(t, w, `ons": [{"id": 1, "category": "Dining"}`)
		writeFrame(t, w, `, {"id": 2, "categ`)
		writeFrame(t, w, `ory": "Transport"}]}`)
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	var partials []map[int]string
	result, err := client.Categorize(context.Background(), sampleTxs(), func(partial map[int]string) {
		partials = append(partials, partial)
	})
	require.NoError(t, err)

	assert.Equal(t, map[int]string{1: "Dining", 2: "Transport"}, result)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.True(t, gotReq.Stream)
	assert.Equal(t, "test-model", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[1].Content, "Lunch")

	// Partial assignments surfaced before the stream finished, and only ever
	// grew.
	require.NotEmpty(t, partials)
	assert.Equal(t, map[int]string{1: "Dining"}, partials[0])
	last := partials[len(partials)-1]
	assert.Equal(t, map[int]string{1: "Dining", 2: "Transport"}, last)
}

func TestCategorize_EmptyCategoryBecomesHardToTell(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFrame(t, w, `{"transactions": [{"id": 1, "category": ""}, {"id": 2, "category": "Transport"}]}`)
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Categorize(context.Background(), sampleTxs(), nil)
	require.NoError(t, err)
	assert.Equal(t, CategoryHardToTell, result[1])
	assert.Equal(t, "Transport", result[2])
}

func TestCategorize_IgnoresUnmatchedIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFrame(t, w, `{"transactions": [{"id": 1, "category": "Dining"}, {"id": 99, "category": "Ghost"}]}`)
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Categorize(context.Background(), sampleTxs(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[int]string{1: "Dining"}, result)
}

func TestCategorize_MarkdownFencedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFrame(t, w, "```json\n")
		writeFrame(t, w, `{"transactions": [{"id": 1, "category": "Dining"}]}`)
		writeFrame(t, w, "\n```")
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Categorize(context.Background(), sampleTxs(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Dining", result[1])
}

func TestCategorize_Cancellation(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFrame(t, w, `{"transactions": [{"id": 1, "category": "Dining"}`)
		close(started)
		// Hold the stream open until the client gives up.
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := newTestClient(server.URL).Categorize(ctx, sampleTxs(), nil)
	require.ErrorIs(t, err, ErrCancelled)
	require.ErrorIs(t, err, context.Canceled)
}

func TestCategorize_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Categorize(context.Background(), sampleTxs(), nil)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, http.StatusServiceUnavailable, transportErr.Status)
}

func TestCategorize_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := newTestClient(server.URL).Categorize(context.Background(), sampleTxs(), nil)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Zero(t, transportErr.Status)
}

func TestCategorize_UnparseableFinalResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFrame(t, w, `I am sorry, I cannot help with that.`)
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Categorize(context.Background(), sampleTxs(), nil)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Content, "sorry")
}

func TestCategorize_SkipsMalformedFrames(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ": keepalive comment\n\n")
		fmt.Fprint(w, "data: {not json}\n\n")
		writeFrame(t, w, `{"transactions": [{"id": 1, "category": "Dining"}]}`)
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).Categorize(context.Background(), sampleTxs(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Dining", result[1])
}

func TestRenderCSV(t *testing.T) {
	out := renderCSV(sampleTxs())

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Id,Date,Description,Amount,Counterparty", lines[0])
	assert.Contains(t, lines[1], `"Lunch"`)
	assert.Contains(t, lines[1], `"25.50"`)
	assert.True(t, strings.HasPrefix(lines[1], "1,"))
	assert.True(t, strings.HasPrefix(lines[2], "2,"))
}
