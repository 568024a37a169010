package web

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"

	"github.com/engramdev/engram/internal/capsule"
	"github.com/engramdev/engram/internal/errors"
	"github.com/engramdev/engram/internal/ops"
)

// maxRequestBody caps request bodies at 1 MiB.
const maxRequestBody = 1 << 20

// Handlers contains HTTP route handlers for the JSON API.
type Handlers struct {
	env *ops.Env
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleIngest handles POST /api/events: record one or many raw events.
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	events, err := decodeEvents(r)
	if err != nil {
		renderError(w, err)
		return
	}

	result, err := ops.Ingest(r.Context(), h.env, ops.IngestInput{Events: events})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusCreated, result)
}

// decodeEvents accepts {"events": [...]}, a bare array, or a single event
// object.
func decodeEvents(r *http.Request) ([]capsule.RawEvent, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBody)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, errors.NewInvalidRequest("could not read request body: " + err.Error())
	}

	var wrapped struct {
		Events []capsule.RawEvent `json:"events"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Events != nil {
		return wrapped.Events, nil
	}
	var list []capsule.RawEvent
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}
	var single capsule.RawEvent
	if err := json.Unmarshal(raw, &single); err == nil && single.Object != "" {
		return []capsule.RawEvent{single}, nil
	}
	return nil, errors.NewInvalidRequest(`invalid JSON body: expected an event, an array of events, or {"events": [...]}`)
}

// HandleListEvents handles GET /api/events: recent raw events.
func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListEvents(r.Context(), h.env, ops.ListEventsInput{
		Limit: parseIntParam(r, "limit", 0),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleCluster handles POST /api/cluster: group recent events into sessions.
func (h *Handlers) HandleCluster(w http.ResponseWriter, r *http.Request) {
	var body struct {
		HoursBack  int `json:"hours_back"`
		GapMinutes int `json:"gap_minutes"`
	}
	if err := decodeBody(r, &body); err != nil {
		renderError(w, err)
		return
	}

	result, err := ops.Cluster(r.Context(), h.env, ops.ClusterInput{
		HoursBack:  body.HoursBack,
		GapMinutes: body.GapMinutes,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleListSessions handles GET /api/sessions: recent focus sessions.
func (h *Handlers) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListSessions(r.Context(), h.env, ops.ListSessionsInput{
		Limit: parseIntParam(r, "limit", 0),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// searchResponse is the search payload plus the answer rendered as HTML.
type searchResponse struct {
	*ops.SearchOutput
	AnswerHTML string `json:"answer_html"`
}

// HandleSearch handles POST /api/search: ask a question over sessions.
// A degraded pipeline still answers with 200; only a bad request fails.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Query string `json:"query"`
		TopK  int    `json:"top_k"`
	}
	if err := decodeBody(r, &body); err != nil {
		renderError(w, err)
		return
	}

	result, err := ops.Search(r.Context(), h.env, ops.SearchInput{
		Query: body.Query,
		TopK:  body.TopK,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, searchResponse{
		SearchOutput: result,
		AnswerHTML:   renderMarkdown(result.Answer),
	})
}

// HandleRecordDecision handles POST /api/decisions.
func (h *Handlers) HandleRecordDecision(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
		Content   string `json:"content"`
		Kind      string `json:"decision_type"`
	}
	if err := decodeBody(r, &body); err != nil {
		renderError(w, err)
		return
	}

	result, err := ops.RecordDecision(r.Context(), h.env, ops.RecordDecisionInput{
		SessionID: body.SessionID,
		Content:   body.Content,
		Kind:      capsule.DecisionKind(body.Kind),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusCreated, result)
}

// HandleListDecisions handles GET /api/decisions. Without a session_id
// parameter it lists recent decisions across all sessions.
func (h *Handlers) HandleListDecisions(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListDecisions(r.Context(), h.env, ops.ListDecisionsInput{
		SessionID: r.URL.Query().Get("session_id"),
		Limit:     parseIntParam(r, "limit", 0),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleDeleteDecision handles DELETE /api/decisions/{id}.
func (h *Handlers) HandleDeleteDecision(w http.ResponseWriter, r *http.Request) {
	result, err := ops.DeleteDecision(r.Context(), h.env, ops.DeleteDecisionInput{
		ID: r.PathValue("id"),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleTimeline handles GET /api/timeline: recent sessions and events.
func (h *Handlers) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Timeline(r.Context(), h.env, ops.TimelineInput{
		SessionLimit: parseIntParam(r, "sessions", 0),
		EventLimit:   parseIntParam(r, "events", 0),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// decodeBody parses a JSON request body with a size cap. An empty body is
// allowed and leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxRequestBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		return errors.NewInvalidRequest("invalid JSON body: " + err.Error())
	}
	return nil
}

// parseIntParam parses a query parameter as an int, with a default.
func parseIntParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}
