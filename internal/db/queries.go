package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/engramdev/engram/internal/capsule"
	"github.com/engramdev/engram/internal/errors"
)

// InsertEvent stores a single raw event.
func InsertEvent(db *sql.DB, e *capsule.RawEvent) error {
	var metadataJSON sql.NullString
	if len(e.Metadata) > 0 {
		data, err := json.Marshal(e.Metadata)
		if err != nil {
			return errors.NewInternal(err)
		}
		metadataJSON = sql.NullString{String: string(data), Valid: true}
	}

	intent := sql.NullString{String: e.InferredIntent, Valid: e.InferredIntent != ""}

	_, err := db.Exec(`
		INSERT INTO raw_events (id, time, source, object, inferred_intent, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Time.Unix(), string(e.Source), e.Object, intent, metadataJSON, e.CreatedAt.Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// EventsBetween returns raw events within [start, end], ordered by ascending time.
func EventsBetween(ctx context.Context, db *sql.DB, start, end time.Time) ([]capsule.RawEvent, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, time, source, object, inferred_intent, metadata_json, created_at
		FROM raw_events
		WHERE time >= ? AND time <= ?
		ORDER BY time ASC
	`, start.Unix(), end.Unix())
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// RecentEvents returns the most recent raw events, newest first.
func RecentEvents(ctx context.Context, db *sql.DB, limit int) ([]capsule.RawEvent, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, time, source, object, inferred_intent, metadata_json, created_at
		FROM raw_events
		ORDER BY time DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]capsule.RawEvent, error) {
	events := make([]capsule.RawEvent, 0)
	for rows.Next() {
		var (
			e            capsule.RawEvent
			t, createdAt int64
			source       string
			intent       sql.NullString
			metadataJSON sql.NullString
		)
		if err := rows.Scan(&e.ID, &t, &source, &e.Object, &intent, &metadataJSON, &createdAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		e.Time = time.Unix(t, 0).UTC()
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		e.Source = capsule.Source(source)
		e.InferredIntent = intent.String
		if metadataJSON.Valid {
			if err := json.Unmarshal([]byte(metadataJSON.String), &e.Metadata); err != nil {
				return nil, errors.NewInternal(err)
			}
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return events, nil
}

// InsertSession stores a new focus session.
func InsertSession(db *sql.DB, c *capsule.Capsule) error {
	actionsJSON, err := json.Marshal(c.KeyActions)
	if err != nil {
		return errors.NewInternal(err)
	}
	artifactsJSON, err := json.Marshal(c.Artifacts)
	if err != nil {
		return errors.NewInternal(err)
	}

	_, err = db.Exec(`
		INSERT INTO focus_sessions (
			id, time_start, time_end, title, goal,
			key_actions_json, artifacts_json, subsystem, vector_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.TimeStart.Unix(), c.TimeEnd.Unix(), c.Title, c.Goal,
		string(actionsJSON), string(artifactsJSON), toNullString(c.Subsystem),
		toNullString(c.VectorID), c.CreatedAt.Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// AttachVectorRef records the vector index reference on a stored session.
// This is the only mutation focus sessions allow.
func AttachVectorRef(db *sql.DB, sessionID, vectorID string) error {
	res, err := db.Exec(`UPDATE focus_sessions SET vector_id = ? WHERE id = ?`, vectorID, sessionID)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(sessionID)
	}
	return nil
}

// SessionsByIDs resolves session identifiers to full records.
// Missing identifiers are silently absent from the result.
func SessionsByIDs(ctx context.Context, db *sql.DB, ids []string) ([]*capsule.Capsule, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, time_start, time_end, title, goal,
			key_actions_json, artifacts_json, subsystem, vector_id, created_at
		FROM focus_sessions
		WHERE id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// RecentSessions returns the most recent sessions ordered by start time,
// most recent first.
func RecentSessions(ctx context.Context, db *sql.DB, limit int) ([]*capsule.Capsule, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, time_start, time_end, title, goal,
			key_actions_json, artifacts_json, subsystem, vector_id, created_at
		FROM focus_sessions
		ORDER BY time_start DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

func scanSessions(rows *sql.Rows) ([]*capsule.Capsule, error) {
	sessions := make([]*capsule.Capsule, 0)
	for rows.Next() {
		var (
			c                          capsule.Capsule
			start, end, createdAt      int64
			actionsJSON, artifactsJSON string
			subsystem, vectorID        sql.NullString
		)
		if err := rows.Scan(&c.ID, &start, &end, &c.Title, &c.Goal,
			&actionsJSON, &artifactsJSON, &subsystem, &vectorID, &createdAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		c.TimeStart = time.Unix(start, 0).UTC()
		c.TimeEnd = time.Unix(end, 0).UTC()
		c.CreatedAt = time.Unix(createdAt, 0).UTC()
		if err := json.Unmarshal([]byte(actionsJSON), &c.KeyActions); err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := json.Unmarshal([]byte(artifactsJSON), &c.Artifacts); err != nil {
			return nil, errors.NewInternal(err)
		}
		c.Subsystem = fromNullString(subsystem)
		c.VectorID = fromNullString(vectorID)
		sessions = append(sessions, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return sessions, nil
}

// SessionExists reports whether a focus session with the given ID exists.
func SessionExists(ctx context.Context, db *sql.DB, id string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM focus_sessions WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return true, nil
}

// InsertDecision stores a new decision record.
func InsertDecision(db *sql.DB, d *capsule.Decision) error {
	_, err := db.Exec(`
		INSERT INTO decisions (id, session_id, content, kind, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, d.ID, d.SessionID, d.Content, string(d.Kind), d.CreatedAt.Unix())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// DecisionsForSessions returns decisions for the given session IDs, grouped
// by session, newest first within each session.
func DecisionsForSessions(ctx context.Context, db *sql.DB, sessionIDs []string) (map[string][]capsule.Decision, error) {
	bysession := make(map[string][]capsule.Decision)
	if len(sessionIDs) == 0 {
		return bysession, nil
	}

	placeholders := strings.Repeat("?,", len(sessionIDs)-1) + "?"
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, session_id, content, kind, created_at
		FROM decisions
		WHERE session_id IN (`+placeholders+`)
		ORDER BY created_at DESC
	`, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		bysession[d.SessionID] = append(bysession[d.SessionID], d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return bysession, nil
}

// RecentDecisions returns recent decisions, newest first, optionally filtered
// to a single session.
func RecentDecisions(ctx context.Context, db *sql.DB, sessionID string, limit int) ([]capsule.Decision, error) {
	query := `
		SELECT id, session_id, content, kind, created_at
		FROM decisions
	`
	args := make([]any, 0, 2)
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	decisions := make([]capsule.Decision, 0)
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return decisions, nil
}

func scanDecision(rows *sql.Rows) (capsule.Decision, error) {
	var (
		d         capsule.Decision
		kind      string
		createdAt int64
	)
	if err := rows.Scan(&d.ID, &d.SessionID, &d.Content, &kind, &createdAt); err != nil {
		return d, errors.NewInternal(err)
	}
	d.Kind = capsule.DecisionKind(kind)
	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	return d, nil
}

// DeleteDecision permanently removes a decision.
func DeleteDecision(db *sql.DB, id string) error {
	res, err := db.Exec(`DELETE FROM decisions WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound(id)
	}
	return nil
}

// toNullString converts a *string to sql.NullString.
func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
