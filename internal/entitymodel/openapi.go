// Package entitymodel renders the entity field tables as OpenAPI 3 schema
// components and serves them for client generation.
package entitymodel

import (
	"net/http"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"programhub/internal/schema"
	"programhub/pkg/domain"
)

var (
	specOnce sync.Once
	specYAML []byte
	specErr  error
)

// Components returns the `components.schemas` object: one entry per entity
// kind, named after the kind in title case (Program, Task, ...).
func Components() map[string]any {
	out := make(map[string]any, len(domain.EntityTypes())+1)
	for _, kind := range domain.EntityTypes() {
		out[typeName(kind)] = entitySchema(kind)
	}
	out["Violation"] = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"rule":      map[string]any{"type": "string"},
			"severity":  map[string]any{"type": "string"},
			"code":      map[string]any{"type": "string"},
			"field":     map[string]any{"type": "string"},
			"message":   map[string]any{"type": "string"},
			"entity":    map[string]any{"type": "string"},
			"entity_id": map[string]any{"type": "string"},
		},
	}
	return out
}

func entitySchema(kind domain.EntityType) map[string]any {
	props := map[string]any{
		"id":         map[string]any{"type": "string", "readOnly": true},
		"created_at": map[string]any{"type": "string", "format": "date-time", "readOnly": true},
		"updated_at": map[string]any{"type": "string", "format": "date-time", "readOnly": true},
		"revision":   map[string]any{"type": "integer", "readOnly": true},
		"created_by": map[string]any{"type": "string", "readOnly": true},
	}
	var required []string
	for _, f := range schema.Fields(kind) {
		props[f.Name] = property(f)
		if f.Required {
			required = append(required, f.Name)
		}
	}
	out := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		out["required"] = required
	}
	return out
}

func property(f schema.Field) map[string]any {
	p := map[string]any{}
	switch f.Kind {
	case schema.KindEmail:
		p["type"], p["format"] = "string", "email"
	case schema.KindEnum:
		p["type"], p["enum"] = "string", f.Enum
	case schema.KindNumber:
		p["type"] = "number"
		if f.Integer {
			p["type"] = "integer"
		}
	case schema.KindDate:
		p["type"], p["format"] = "string", "date"
	case schema.KindRef:
		p["type"] = "string"
		p["x-references"] = string(f.Ref)
	case schema.KindRefList:
		p["type"], p["items"] = "array", map[string]any{"type": "string"}
		p["x-references"] = string(f.Ref)
	case schema.KindStringList:
		p["type"], p["items"] = "array", map[string]any{"type": "string"}
	case schema.KindBool:
		p["type"] = "boolean"
	default:
		p["type"] = "string"
	}
	if f.ReadOnly {
		// Task comments are appended through their own endpoint.
		p["type"], p["readOnly"] = "array", true
		p["items"] = map[string]any{"type": "object"}
	}
	if f.MaxLen > 0 {
		p["maxLength"] = f.MaxLen
	}
	if f.Min != nil {
		p["minimum"] = *f.Min
	}
	if f.Max != nil {
		p["maximum"] = *f.Max
	}
	if f.Default != nil {
		p["default"] = f.Default
	}
	return p
}

func typeName(kind domain.EntityType) string {
	s := string(kind)
	return strings.ToUpper(s[:1]) + s[1:]
}

// OpenAPISpec returns a copy of the rendered components document.
func OpenAPISpec() ([]byte, error) {
	specOnce.Do(func() {
		doc := map[string]any{
			"openapi": "3.0.3",
			"info":    map[string]any{"title": "programhub entity model", "version": Version()},
			"paths":   map[string]any{},
			"components": map[string]any{
				"schemas": Components(),
			},
		}
		specYAML, specErr = yaml.Marshal(doc)
	})
	if specErr != nil {
		return nil, specErr
	}
	return append([]byte(nil), specYAML...), nil
}

// NewOpenAPIHandler serves the rendered document as YAML.
func NewOpenAPIHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		spec, err := OpenAPISpec()
		if err != nil {
			http.Error(w, "openapi document unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(spec)
	})
}
