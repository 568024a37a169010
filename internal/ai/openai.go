package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/engramdev/engram/internal/capsule"
	"github.com/engramdev/engram/internal/config"
)

// Default OpenAI models.
const (
	openaiDefaultModel      = openai.ChatModelGPT4oMini
	openaiDefaultEmbedModel = openai.EmbeddingModelTextEmbedding3Small
)

// OpenAI implements Provider on top of the OpenAI API.
type OpenAI struct {
	client     *openai.Client
	model      string
	embedModel string
	dims       int
}

// NewOpenAI creates an OpenAI-backed provider.
func NewOpenAI(apiKey string, cfg *config.Config) *OpenAI {
	client := openai.NewClient(option.WithAPIKey(apiKey))

	model := cfg.AIModel
	if model == "" {
		model = openaiDefaultModel
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = openaiDefaultEmbedModel
	}

	return &OpenAI{
		client:     &client,
		model:      model,
		embedModel: embedModel,
		dims:       cfg.EmbedDims,
	}
}

// Summarize submits the event log and parses the structured response.
func (o *OpenAI) Summarize(ctx context.Context, events []capsule.RawEvent) (capsule.Summary, error) {
	text, err := o.complete(ctx, BuildSummaryPrompt(events))
	if err != nil {
		return capsule.Summary{}, err
	}
	return ParseSummary(text)
}

// Answer produces a natural-language answer over the ranked context.
func (o *OpenAI) Answer(ctx context.Context, query string, results []capsule.SearchResult) (string, error) {
	return o.complete(ctx, BuildAnswerPrompt(query, results))
}

func (o *OpenAI) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("openai chat: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed converts text to a vector of the configured dimensionality.
func (o *OpenAI) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: o.embedModel,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Dimensions: openai.Int(int64(o.dims)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("openai embed: empty response")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Dims returns the embedding dimensionality.
func (o *OpenAI) Dims() int { return o.dims }
