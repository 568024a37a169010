// Package ops implements the operations behind every surface (web, MCP,
// CLI): event ingest, session clustering, semantic search, decisions, and
// the timeline. Each operation takes an Env with the shared dependencies
// and a typed input, and returns a typed output.
package ops

import (
	"crypto/rand"
	"database/sql"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/engramdev/engram/internal/ai"
	"github.com/engramdev/engram/internal/config"
	"github.com/engramdev/engram/internal/vector"
)

// Operation limits
const (
	DefaultEventListLimit = 50
	MaxEventListLimit     = 500
	DefaultSessionLimit   = 30
	MaxSessionLimit       = 100
	MaxHoursBack          = 24 * 365
	MaxDecisionLimit      = 100
)

// Env bundles the dependencies the operations draw on. The AI provider and
// vector index are always non-nil; when no API key is configured they are
// the disabled provider and the local index.
type Env struct {
	DB     *sql.DB
	Config *config.Config
	AI     ai.Provider
	Index  vector.Index
}

func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func unixTime(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
