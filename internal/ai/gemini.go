package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/engramdev/engram/internal/capsule"
	"github.com/engramdev/engram/internal/config"
)

// Default Gemini models.
const (
	geminiDefaultModel      = "gemini-2.0-flash"
	geminiDefaultEmbedModel = "text-embedding-004"
)

// Gemini implements Provider on top of the Gemini API.
type Gemini struct {
	client     *genai.Client
	model      string
	embedModel string
	dims       int
}

// NewGemini creates a Gemini-backed provider.
func NewGemini(ctx context.Context, apiKey string, cfg *config.Config) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := cfg.AIModel
	if model == "" {
		model = geminiDefaultModel
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = geminiDefaultEmbedModel
	}

	return &Gemini{
		client:     client,
		model:      model,
		embedModel: embedModel,
		dims:       cfg.EmbedDims,
	}, nil
}

// Summarize submits the event log and parses the structured response.
func (g *Gemini) Summarize(ctx context.Context, events []capsule.RawEvent) (capsule.Summary, error) {
	prompt := BuildSummaryPrompt(events)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return capsule.Summary{}, fmt.Errorf("gemini generate: %w", err)
	}
	return ParseSummary(resp.Text())
}

// Answer produces a natural-language answer over the ranked context.
func (g *Gemini) Answer(ctx context.Context, query string, results []capsule.SearchResult) (string, error) {
	prompt := BuildAnswerPrompt(query, results)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini answer: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini answer: empty response")
	}
	return text, nil
}

// Embed converts text to a vector of the configured dimensionality.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.embedModel, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: genai.Ptr(int32(g.dims)),
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("gemini embed: empty response")
	}
	return resp.Embeddings[0].Values, nil
}

// Dims returns the embedding dimensionality.
func (g *Gemini) Dims() int { return g.dims }
