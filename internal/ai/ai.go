// Package ai abstracts the generative capabilities Engram depends on:
// session summarization, answer synthesis, and text embedding. Every
// capability fails open: callers receive a deterministic fallback value,
// labeled as such, instead of an error that could abort a pipeline.
package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/engramdev/engram/internal/capsule"
	"github.com/engramdev/engram/internal/config"
)

// ErrUnavailable signals that a capability is not configured.
var ErrUnavailable = errors.New("capability not configured")

// Summarizer turns an ordered event group into a structured session summary.
type Summarizer interface {
	Summarize(ctx context.Context, events []capsule.RawEvent) (capsule.Summary, error)
}

// Answerer produces a short natural-language answer from ranked context.
type Answerer interface {
	Answer(ctx context.Context, query string, results []capsule.SearchResult) (string, error)
}

// Embedder converts text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dims() int
}

// Provider bundles the three capabilities behind one implementation,
// selected once at process start.
type Provider interface {
	Summarizer
	Answerer
	Embedder
}

// Outcome is the result of a fail-open capability call: either a live value
// or a labeled fallback. Propagating the label lets callers keep degraded
// responses distinguishable end-to-end.
type Outcome[T any] struct {
	Value    T
	Fallback bool
	Note     string
}

// Live wraps a value produced by the live capability.
func Live[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v}
}

// Degraded wraps a deterministic fallback value with a reason.
func Degraded[T any](v T, note string) Outcome[T] {
	return Outcome[T]{Value: v, Fallback: true, Note: note}
}

// Deterministic fallback content used when the summarizer or answerer is
// unavailable or misbehaves.
const (
	FallbackTitle  = "Focus Session"
	FallbackGoal   = "Working on project tasks"
	FallbackAnswer = "AI not configured. Set GEMINI_API_KEY or OPENAI_API_KEY to enable context-aware answers."
)

// FallbackSummary builds the deterministic summary template from raw events:
// key actions are taken directly from the first few events.
func FallbackSummary(events []capsule.RawEvent) capsule.Summary {
	actions := make([]string, 0, 3)
	for _, e := range events {
		if len(actions) == 3 {
			break
		}
		actions = append(actions, fmt.Sprintf("%s: %s", e.Source, e.Object))
	}
	return capsule.Summary{
		Title:      FallbackTitle,
		Goal:       FallbackGoal,
		KeyActions: actions,
	}
}

// Summarize calls the summarizer and degrades to the deterministic template
// on any failure. It never returns an error.
func Summarize(ctx context.Context, s Summarizer, events []capsule.RawEvent) Outcome[capsule.Summary] {
	summary, err := s.Summarize(ctx, events)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			log.Printf("summarizer degraded: %v", err)
		}
		return Degraded(FallbackSummary(events), err.Error())
	}
	return Live(summary)
}

// Answer calls the answerer and degrades to a fixed explanatory string on
// any failure. It never returns an error.
func Answer(ctx context.Context, a Answerer, query string, results []capsule.SearchResult) Outcome[string] {
	text, err := a.Answer(ctx, query, results)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			log.Printf("answerer degraded: %v", err)
		}
		return Degraded(FallbackAnswer, err.Error())
	}
	return Live(text)
}

// Embed calls the embedder and degrades to the all-zero sentinel vector of
// the embedder's dimensionality on any failure. Callers must check IsZero
// before treating the vector as usable.
func Embed(ctx context.Context, e Embedder, text string) Outcome[[]float32] {
	vec, err := e.Embed(ctx, text)
	if err != nil {
		if !errors.Is(err, ErrUnavailable) {
			log.Printf("embedder degraded: %v", err)
		}
		return Degraded(make([]float32, e.Dims()), err.Error())
	}
	return Live(vec)
}

// IsZero reports whether a vector is the degenerate "no usable embedding"
// sentinel: empty, or without a single non-zero component.
func IsZero(vec []float32) bool {
	for _, v := range vec {
		if v != 0 {
			return false
		}
	}
	return true
}

// Disabled is the no-op provider used when no AI backend is configured.
// Every call reports ErrUnavailable so the fail-open helpers produce their
// deterministic fallbacks.
type Disabled struct {
	EmbedDims int
}

func (d Disabled) Summarize(context.Context, []capsule.RawEvent) (capsule.Summary, error) {
	return capsule.Summary{}, ErrUnavailable
}

func (d Disabled) Answer(context.Context, string, []capsule.SearchResult) (string, error) {
	return "", ErrUnavailable
}

func (d Disabled) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrUnavailable
}

func (d Disabled) Dims() int { return d.EmbedDims }

// New selects a provider from configuration: "gemini" or "openai" with the
// corresponding API key in the environment, anything else the Disabled
// provider. The selection happens once at startup; call sites never branch
// on capability presence.
func New(ctx context.Context, cfg *config.Config) Provider {
	switch cfg.AIProvider {
	case "gemini":
		key := os.Getenv("GEMINI_API_KEY")
		if key == "" {
			log.Printf("ai provider gemini selected but GEMINI_API_KEY is empty; running with fallbacks")
			break
		}
		p, err := NewGemini(ctx, key, cfg)
		if err != nil {
			log.Printf("gemini init failed: %v; running with fallbacks", err)
			break
		}
		return p
	case "openai":
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			log.Printf("ai provider openai selected but OPENAI_API_KEY is empty; running with fallbacks")
			break
		}
		return NewOpenAI(key, cfg)
	case "":
		// Auto-detect from the environment, Gemini first.
		if key := os.Getenv("GEMINI_API_KEY"); key != "" {
			p, err := NewGemini(ctx, key, cfg)
			if err != nil {
				log.Printf("gemini init failed: %v; running with fallbacks", err)
				break
			}
			return p
		}
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return NewOpenAI(key, cfg)
		}
	}
	return Disabled{EmbedDims: cfg.EmbedDims}
}
