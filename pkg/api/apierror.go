// Package api — RFC 7807 Problem Detail error responses for the retouch API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Mindburn-Labs/retouch/pkg/auth"
	"github.com/Mindburn-Labs/retouch/pkg/editor"
)

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
// All API error responses use this format.
type ProblemDetail struct {
	// Type is a URI reference that identifies the problem type.
	Type string `json:"type"`
	// Title is a short, human-readable summary of the problem type.
	Title string `json:"title"`
	// Status is the HTTP status code.
	Status int `json:"status"`
	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`
	// Kind is the stable machine-readable failure classification.
	Kind string `json:"kind,omitempty"`
	// TraceID links the response to server logs via X-Request-ID.
	TraceID string `json:"trace_id,omitempty"`
}

func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// WriteError writes an RFC 7807 Problem Detail JSON response.
func WriteError(w http.ResponseWriter, status int, title, detail string) {
	writeProblem(w, &ProblemDetail{
		Type:   fmt.Sprintf("https://retouch.mindburn.dev/errors/%d", status),
		Title:  title,
		Status: status,
		Detail: detail,
	})
}

func writeProblem(w http.ResponseWriter, problem *ProblemDetail) {
	if problem.TraceID == "" {
		problem.TraceID = w.Header().Get(auth.RequestIDHeader)
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

// requestTrace resolves the correlation id for a problem response. The request
// context is authoritative; the response header covers writers invoked before
// the id middleware ran.
func requestTrace(w http.ResponseWriter, r *http.Request) string {
	if id := auth.GetRequestID(r.Context()); id != "" {
		return id
	}
	return w.Header().Get(auth.RequestIDHeader)
}

// WriteWorkflowError maps an edit-workflow error onto an HTTP problem
// response. Internal causes are logged, never exposed.
func WriteWorkflowError(w http.ResponseWriter, r *http.Request, err error) {
	kind := editor.KindOf(err)
	status, title := kindStatus(kind)

	trace := requestTrace(w, r)
	detail := ""
	var e *editor.Error
	if errors.As(err, &e) {
		detail = e.Message
	}
	if kind == editor.KindInternalError {
		slog.Error("internal server error", "error", err, "trace_id", trace)
		detail = "An unexpected error occurred. Please try again later."
	}

	writeProblem(w, &ProblemDetail{
		Type:    fmt.Sprintf("https://retouch.mindburn.dev/errors/%s", kind),
		Title:   title,
		Status:  status,
		Detail:  detail,
		Kind:    string(kind),
		TraceID: trace,
	})
}

func kindStatus(kind editor.Kind) (int, string) {
	switch kind {
	case editor.KindInvalidArgument:
		return http.StatusBadRequest, "Bad Request"
	case editor.KindUnauthenticated:
		return http.StatusUnauthorized, "Unauthorized"
	case editor.KindNotFound:
		return http.StatusNotFound, "Not Found"
	case editor.KindInsufficientFunds:
		return http.StatusPaymentRequired, "Payment Required"
	case editor.KindProviderError:
		return http.StatusBadGateway, "Bad Gateway"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// WriteBadRequest writes a 400 error response.
func WriteBadRequest(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusBadRequest, "Bad Request", detail)
}

// WriteUnauthorized writes a 401 error response.
func WriteUnauthorized(w http.ResponseWriter, detail string) {
	if detail == "" {
		detail = "Authentication required"
	}
	WriteError(w, http.StatusUnauthorized, "Unauthorized", detail)
}

// WriteNotFound writes a 404 error response.
func WriteNotFound(w http.ResponseWriter, detail string) {
	WriteError(w, http.StatusNotFound, "Not Found", detail)
}

// WriteMethodNotAllowed writes a 405 error response.
func WriteMethodNotAllowed(w http.ResponseWriter) {
	WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "The HTTP method is not supported for this endpoint")
}

// WriteInternal writes a 500 error response.
// The err parameter is logged but NEVER exposed to the client.
func WriteInternal(w http.ResponseWriter, err error) {
	slog.Error("internal server error", "error", err)
	WriteError(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred. Please try again later.")
}
