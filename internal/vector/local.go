package vector

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/viterin/vek/vek32"
)

// Local is a sqlite-backed brute-force cosine index. Vectors live in the
// session_vectors table next to the session records; queries scan all
// stored vectors. Fine for a personal corpus of a few thousand sessions.
type Local struct {
	db *sql.DB
}

// NewLocal creates a local index over the given database.
func NewLocal(db *sql.DB) *Local {
	return &Local{db: db}
}

// Upsert stores or replaces the vector for a session.
func (l *Local) Upsert(ctx context.Context, id string, vec []float32, _ Metadata) error {
	// Metadata is not duplicated locally; queries join focus_sessions.
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO session_vectors (session_id, dims, embedding)
		VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET dims = excluded.dims, embedding = excluded.embedding
	`, id, len(vec), encodeVector(vec))
	if err != nil {
		return fmt.Errorf("local upsert: %w", err)
	}
	return nil
}

// Query scans all stored vectors and returns the topK most similar by
// cosine similarity, highest first. Scores are clamped to [0, 1].
func (l *Local) Query(ctx context.Context, vec []float32, topK int) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT sv.session_id, sv.embedding, fs.title, fs.goal, fs.time_start, fs.time_end, fs.subsystem
		FROM session_vectors sv
		JOIN focus_sessions fs ON fs.id = sv.session_id
	`)
	if err != nil {
		return nil, fmt.Errorf("local query: %w", err)
	}
	defer rows.Close()

	matches := make([]Match, 0)
	for rows.Next() {
		var (
			m         Match
			blob      []byte
			subsystem sql.NullString
		)
		if err := rows.Scan(&m.ID, &blob, &m.Metadata.Title, &m.Metadata.Goal,
			&m.Metadata.TimeStart, &m.Metadata.TimeEnd, &subsystem); err != nil {
			return nil, fmt.Errorf("local query: %w", err)
		}
		m.Metadata.Subsystem = subsystem.String

		stored := decodeVector(blob)
		if len(stored) != len(vec) {
			continue
		}
		m.Score = clampScore(float64(vek32.CosineSimilarity(vec, stored)))
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("local query: %w", err)
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Delete removes the vector for a session.
func (l *Local) Delete(ctx context.Context, id string) error {
	_, err := l.db.ExecContext(ctx, `DELETE FROM session_vectors WHERE session_id = ?`, id)
	if err != nil {
		return fmt.Errorf("local delete: %w", err)
	}
	return nil
}

func clampScore(s float64) float64 {
	if math.IsNaN(s) || s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// encodeVector packs a float32 slice as a little-endian blob.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks a little-endian blob into a float32 slice.
func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
