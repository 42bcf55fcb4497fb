package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"programhub/internal/core"
	"programhub/internal/schema"
	"programhub/pkg/domain"
)

const maxJSONBody = 1 << 20

// reserved query keys; every other key is a filter.
var reserved = map[string]bool{"expand": true, "sort": true, "include_inactive": true}

func kindParam(r *http.Request) (core.EntityType, error) {
	raw := chi.URLParam(r, "kind")
	kind, ok := domain.ParseEntityType(raw)
	if !ok {
		return "", domain.NotFoundError{Entity: "collection", ID: raw}
	}
	return kind, nil
}

func expandParam(r *http.Request) []string {
	var out []string
	for _, raw := range r.URL.Query()["expand"] {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func decodeJSON(r *http.Request, kind core.EntityType) (schema.Payload, error) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		media, _, err := mime.ParseMediaType(ct)
		if err != nil || media != "application/json" {
			return nil, requestError(kind, "body", "content type must be application/json")
		}
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	dec.UseNumber()
	var payload schema.Payload
	if err := dec.Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return schema.Payload{}, nil
		}
		return nil, requestError(kind, "body", "malformed JSON: %v", err)
	}
	return payload, nil
}

func requestError(kind core.EntityType, field, format string, args ...any) error {
	return domain.ValidationError{Entity: kind, Violations: []domain.Violation{{
		Rule:     "request",
		Severity: domain.SeverityBlock,
		Code:     domain.CodeInvalid,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Entity:   kind,
	}}}
}

func (s *server) list(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	values := r.URL.Query()
	q := core.ListQuery{Sort: values.Get("sort"), Expand: expandParam(r)}
	if raw := values.Get("include_inactive"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, requestError(kind, "include_inactive", "must be a boolean"))
			return
		}
		q.IncludeInactive = include
	}
	for key, vals := range values {
		if reserved[key] || len(vals) == 0 {
			continue
		}
		if q.Filters == nil {
			q.Filters = map[string]string{}
		}
		q.Filters[key] = vals[0]
	}
	records, err := s.svc.ListEntities(r.Context(), principal(r), kind, q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeList(w, records)
}

func (s *server) get(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rec, err := s.svc.GetEntity(r.Context(), principal(r), kind, chi.URLParam(r, "id"), expandParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, rec, core.Result{})
}

func (s *server) create(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	switch kind {
	case domain.EntityUser:
		writeError(w, fmt.Errorf("%w: users are registered through the identity provider", errMethodNotAllowed))
		return
	case domain.EntityDocument:
		if isMultipart(r) {
			s.upload(w, r)
			return
		}
	}
	payload, err := decodeJSON(r, kind)
	if err != nil {
		writeError(w, err)
		return
	}
	entity, res, err := s.svc.CreateEntity(r.Context(), principal(r), kind, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Location", "/api/"+kind.Plural()+"/"+entity.EntityID())
	writeData(w, http.StatusCreated, core.RecordOf(entity), res)
}

func (s *server) update(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	patch, err := decodeJSON(r, kind)
	if err != nil {
		writeError(w, err)
		return
	}
	entity, res, err := s.svc.UpdateEntity(r.Context(), principal(r), kind, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, core.RecordOf(entity), res)
}

func (s *server) delete(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.svc.DeleteEntity(r.Context(), principal(r), kind, chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type commentRequest struct {
	Text string `json:"text"`
}

func (s *server) addComment(w http.ResponseWriter, r *http.Request) {
	var body commentRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(&body); err != nil {
		writeError(w, requestError(domain.EntityTask, "body", "malformed JSON: %v", err))
		return
	}
	task, res, err := s.svc.AddTaskComment(r.Context(), principal(r), chi.URLParam(r, "id"), body.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, core.RecordOf(task), res)
}

func (s *server) budgetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.BudgetReport(r.Context(), principal(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, report, core.Result{})
}

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 500
)

func (s *server) activity(w http.ResponseWriter, r *http.Request) {
	if !principal(r).Authenticated() {
		writeError(w, domain.ErrUnauthenticated)
		return
	}
	if s.feed == nil {
		writeError(w, domain.InfrastructureError{Op: "activity feed", Err: errors.New("not configured")})
		return
	}
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxActivityLimit {
			writeError(w, requestError("activity", "limit", "must be between 1 and %d", maxActivityLimit))
			return
		}
		limit = n
	}
	entries, err := s.feed.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, domain.InfrastructureError{Op: "activity feed", Err: err})
		return
	}
	n := len(entries)
	writeJSON(w, http.StatusOK, envelope{Data: entries, Count: &n})
}
