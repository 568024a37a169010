package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"html/template"
	"log"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/engramdev/engram/internal/errors"
)

// renderJSON writes v as a JSON response. Encoding happens into a buffer
// first so an encoding failure can still produce a clean 500.
func renderJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Printf("web: encode response: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError maps an operation error onto its HTTP status. Errors that
// are not domain errors become opaque 500s.
func renderError(w http.ResponseWriter, err error) {
	var domErr *errors.Error
	if !stderrors.As(err, &domErr) {
		domErr = errors.NewInternal(err)
	}
	if domErr.Status >= http.StatusInternalServerError {
		log.Printf("web: %v", err)
	}

	renderJSON(w, domErr.Status, map[string]any{
		"error":   domErr.Message,
		"code":    domErr.Code,
		"details": domErr.Details,
	})
}

// renderMarkdown converts markdown text to HTML using goldmark.
func renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTMLEscapeString(md)
	}
	return buf.String()
}
