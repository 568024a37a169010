// Package vector provides the session vector index: upsert and top-K
// similarity query keyed by session identifier. Two backends exist, a
// Pinecone serverless index and a local sqlite-backed brute-force index;
// one is selected at process start.
package vector

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/engramdev/engram/internal/config"
)

// Metadata is the partial session record carried alongside each vector.
// It is enough to reconstruct a minimal result when the persisted session
// is missing at hydration time.
type Metadata struct {
	Title     string `json:"title"`
	Goal      string `json:"goal"`
	TimeStart int64  `json:"time_start"`
	TimeEnd   int64  `json:"time_end"`
	Subsystem string `json:"subsystem,omitempty"`
}

// Match is a single query result.
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// Index is the vector index contract.
type Index interface {
	Upsert(ctx context.Context, id string, vec []float32, meta Metadata) error
	Query(ctx context.Context, vec []float32, topK int) ([]Match, error)
	Delete(ctx context.Context, id string) error
}

// New selects an index backend: Pinecone when configured with credentials,
// otherwise the local sqlite index.
func New(database *sql.DB, cfg *config.Config) Index {
	if cfg.VectorIndex == "pinecone" {
		apiKey := os.Getenv("PINECONE_API_KEY")
		host := os.Getenv("PINECONE_HOST")
		if apiKey != "" && host != "" {
			return NewPinecone(apiKey, host)
		}
		log.Printf("pinecone selected but PINECONE_API_KEY/PINECONE_HOST missing; using local index")
	}
	return NewLocal(database)
}
