// Package classify enriches canonical transactions with categories from an
// external chat-completions endpoint, decoding the streamed response
// incrementally so callers can surface partial results as they arrive.
package classify

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ledgerline/importer/internal/importer"
)

const ssePrefix = "data: "

// Config wires a Client to its endpoint.
type Config struct {
	Endpoint     string
	Model        string
	APIKey       string
	SystemPrompt string // empty means DefaultSystemPrompt
	HTTPClient   *http.Client
}

// Client streams classification requests. Safe for concurrent use.
type Client struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
	log          zerolog.Logger
}

// New builds a client from config.
func New(cfg Config, log zerolog.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	return &Client{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: prompt,
		httpClient:   httpClient,
		log:          log,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
}

// streamChunk is one SSE payload; only the delta content is of interest.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Categorize streams a classification request for the given transactions and
// returns the final sequence-ID-to-category map. While the response streams,
// onPartial (optional) is invoked with the currently resolvable assignments;
// fragments that do not yet parse are silently retried on the next increment.
//
// Cancelling ctx aborts the in-flight stream and returns ErrCancelled.
// Network failures and non-2xx statuses return a *TransportError; a final
// response that fails schema validation returns a *ParseError.
func (c *Client) Categorize(ctx context.Context, txs []*importer.CanonicalTransaction, onPartial func(map[int]string)) (map[int]string, error) {
	known := make(map[int]struct{}, len(txs))
	for _, tx := range txs {
		known[tx.SequenceID] = struct{}{}
	}

	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: defaultUserMessage + "\n\nCSV Data:\n" + renderCSV(txs)},
		},
		Model:  c.model,
		Stream: true,
	})
	if err != nil {
		return nil, fmt.Errorf("Categorize: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("Categorize: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ErrCancelled
		}
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{Status: resp.StatusCode}
	}

	content, err := c.readStream(ctx, resp, known, onPartial)
	if err != nil {
		return nil, err
	}

	pairs, ok := parseAccumulated(content)
	if !ok {
		return nil, &ParseError{Content: content, Err: errBadSchema}
	}

	result := make(map[int]string, len(pairs))
	for _, p := range pairs {
		if _, matched := known[p.ID]; !matched {
			// Unmatched response ids are ignored.
			continue
		}
		category := p.Category
		if category == "" {
			category = CategoryHardToTell
		}
		result[p.ID] = category
	}

	c.log.Info().
		Int("transactions", len(txs)).
		Int("assigned", len(result)).
		Dur("duration", time.Since(start)).
		Msg("Classification stream completed")

	return result, nil
}

// readStream consumes SSE lines, accumulating delta content and publishing
// partial assignments after each increment.
func (c *Client) readStream(ctx context.Context, resp *http.Response, known map[int]struct{}, onPartial func(map[int]string)) (string, error) {
	var content strings.Builder

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ErrCancelled
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if !strings.HasPrefix(line, ssePrefix) {
			continue
		}
		payload := strings.TrimSpace(line[len(ssePrefix):])
		if payload == "[DONE]" {
			continue
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			// Malformed stream frames are skipped, not fatal.
			c.log.Debug().Str("payload", payload).Msg("Skipping unparseable stream frame")
			continue
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		content.WriteString(chunk.Choices[0].Delta.Content)

		if onPartial == nil {
			continue
		}
		pairs, ok := parseAccumulated(content.String())
		if !ok {
			// Not yet resolvable; retried on the next increment.
			continue
		}
		partial := make(map[int]string, len(pairs))
		for _, p := range pairs {
			if _, matched := known[p.ID]; matched && p.Category != "" {
				partial[p.ID] = p.Category
			}
		}
		if len(partial) > 0 {
			onPartial(partial)
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return "", ErrCancelled
		}
		return "", &TransportError{Err: err}
	}
	if ctx.Err() != nil {
		return "", ErrCancelled
	}
	return content.String(), nil
}
