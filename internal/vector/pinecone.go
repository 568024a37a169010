package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	pineconeDefaultTimeout = 30 * time.Second
	pineconeDefaultRetries = 3
	pineconeRetryBackoff   = 500 * time.Millisecond
)

// Pinecone talks to a Pinecone serverless index over its data-plane HTTP
// API. The host is the index-specific endpoint, e.g.
// https://engram-xxxxx.svc.us-east-1-aws.pinecone.io.
type Pinecone struct {
	apiKey     string
	host       string
	client     *http.Client
	maxRetries int
}

// NewPinecone creates a Pinecone-backed index.
func NewPinecone(apiKey, host string) *Pinecone {
	return &Pinecone{
		apiKey:     apiKey,
		host:       host,
		client:     &http.Client{Timeout: pineconeDefaultTimeout},
		maxRetries: pineconeDefaultRetries,
	}
}

type pineconeVector struct {
	ID       string    `json:"id"`
	Values   []float32 `json:"values"`
	Metadata Metadata  `json:"metadata"`
}

type pineconeUpsertRequest struct {
	Vectors []pineconeVector `json:"vectors"`
}

type pineconeQueryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type pineconeQueryResponse struct {
	Matches []struct {
		ID       string   `json:"id"`
		Score    float64  `json:"score"`
		Metadata Metadata `json:"metadata"`
	} `json:"matches"`
}

type pineconeDeleteRequest struct {
	IDs []string `json:"ids"`
}

// Upsert registers a vector with its metadata.
func (p *Pinecone) Upsert(ctx context.Context, id string, vec []float32, meta Metadata) error {
	req := pineconeUpsertRequest{
		Vectors: []pineconeVector{{ID: id, Values: vec, Metadata: meta}},
	}
	return p.post(ctx, "/vectors/upsert", req, nil)
}

// Query returns the topK nearest entries with metadata.
func (p *Pinecone) Query(ctx context.Context, vec []float32, topK int) ([]Match, error) {
	req := pineconeQueryRequest{Vector: vec, TopK: topK, IncludeMetadata: true}

	var resp pineconeQueryResponse
	if err := p.post(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, Match{ID: m.ID, Score: clampScore(m.Score), Metadata: m.Metadata})
	}
	return matches, nil
}

// Delete removes a vector by identifier.
func (p *Pinecone) Delete(ctx context.Context, id string) error {
	return p.post(ctx, "/vectors/delete", pineconeDeleteRequest{IDs: []string{id}}, nil)
}

// post sends a JSON request with retry on transient failures.
func (p *Pinecone) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("pinecone: marshal request: %w", err)
	}

	var lastErr error
	for attempt := range p.maxRetries {
		lastErr = p.doPost(ctx, path, payload, out)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		backoff := pineconeRetryBackoff * time.Duration(1<<attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return lastErr
}

func (p *Pinecone) doPost(ctx context.Context, path string, payload []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("pinecone: create request: %w", err)
	}
	req.Header.Set("Api-Key", p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("pinecone: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("pinecone: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &pineconeError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("pinecone: unmarshal response: %w", err)
		}
	}
	return nil
}

type pineconeError struct {
	StatusCode int
	Body       string
}

func (e *pineconeError) Error() string {
	return fmt.Sprintf("pinecone: (%d): %s", e.StatusCode, e.Body)
}

func isRetryable(err error) bool {
	var pErr *pineconeError
	if errors.As(err, &pErr) {
		return pErr.StatusCode == http.StatusTooManyRequests ||
			pErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}
