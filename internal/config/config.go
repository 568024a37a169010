package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds application configuration.
type Config struct {
	// GapMinutes is the idle-gap threshold for session clustering.
	GapMinutes int `json:"gap_minutes"`

	// TopK is the default number of search results.
	TopK int `json:"top_k"`

	// LexicalScanLimit is how many recent sessions the lexical fallback scans.
	LexicalScanLimit int `json:"lexical_scan_limit"`

	// EmbedDims is the embedding dimensionality. The all-zero vector of this
	// length is the sentinel for "no usable embedding".
	EmbedDims int `json:"embed_dims"`

	// AIProvider selects the generative capability: "gemini", "openai", or ""
	// to run with deterministic fallbacks only.
	AIProvider string `json:"ai_provider,omitempty"`

	// AIModel overrides the provider's default generation model.
	AIModel string `json:"ai_model,omitempty"`

	// EmbedModel overrides the provider's default embedding model.
	EmbedModel string `json:"embed_model,omitempty"`

	// VectorIndex selects the vector index backend: "pinecone" or "local"
	// (sqlite-backed brute-force cosine). Defaults to local.
	VectorIndex string `json:"vector_index,omitempty"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized. 0 means sql.DB default.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		GapMinutes:       30,
		TopK:             5,
		LexicalScanLimit: 20,
		EmbedDims:        1536,
		VectorIndex:      "local",
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.engram.
func Load(baseDir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(baseDir, "config.json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return Merge(DefaultConfig(), cfg), nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for non-zero scalars.
func Merge(base, overlay *Config) *Config {
	result := *overlay

	if result.GapMinutes == 0 {
		result.GapMinutes = base.GapMinutes
	}
	if result.TopK == 0 {
		result.TopK = base.TopK
	}
	if result.LexicalScanLimit == 0 {
		result.LexicalScanLimit = base.LexicalScanLimit
	}
	if result.EmbedDims == 0 {
		result.EmbedDims = base.EmbedDims
	}
	if result.AIProvider == "" {
		result.AIProvider = base.AIProvider
	}
	if result.AIModel == "" {
		result.AIModel = base.AIModel
	}
	if result.EmbedModel == "" {
		result.EmbedModel = base.EmbedModel
	}
	if result.VectorIndex == "" {
		result.VectorIndex = base.VectorIndex
	}
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}
	if len(result.DisabledTools) == 0 {
		result.DisabledTools = base.DisabledTools
	}

	return &result
}

// BaseDir returns the Engram data directory, honoring ENGRAM_HOME.
func BaseDir() string {
	if dir := os.Getenv("ENGRAM_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".engram"
	}
	return filepath.Join(home, ".engram")
}
