package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"programhub/internal/core"
	"programhub/pkg/domain"
)

type errorBody struct {
	Error      domain.ErrorKind   `json:"error"`
	Message    string             `json:"message"`
	Violations []domain.Violation `json:"violations,omitempty"`
}

type envelope struct {
	Data     any                `json:"data"`
	Count    *int               `json:"count,omitempty"`
	Warnings []domain.Violation `json:"warnings,omitempty"`
}

var errMethodNotAllowed = errors.New("method not allowed")

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindReference:
		return http.StatusUnprocessableEntity
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindInfrastructure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeData(w http.ResponseWriter, status int, data any, res core.Result) {
	writeJSON(w, status, envelope{Data: data, Warnings: res.Violations})
}

func writeList(w http.ResponseWriter, records []core.Record) {
	n := len(records)
	writeJSON(w, http.StatusOK, envelope{Data: records, Count: &n})
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, errMethodNotAllowed) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method_not_allowed", Message: err.Error()})
		return
	}
	kind := domain.KindOf(err)
	body := errorBody{Error: kind, Message: err.Error(), Violations: domain.ViolationsOf(err)}
	switch kind {
	case domain.KindInfrastructure:
		body.Message = "service temporarily unavailable"
	case domain.KindUnknown:
		body.Message = "internal error"
	}
	writeJSON(w, statusFor(kind), body)
}
