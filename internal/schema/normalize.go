package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"programhub/pkg/domain"
)

// Payload is a raw attribute map keyed by external field names.
type Payload map[string]any

// Rule name attached to schema violations.
const RuleName = "schema"

const dateOnly = "2006-01-02"

// values holds normalized attribute values keyed by field name: string,
// float64, time.Time, []string or bool.
type values map[string]any

func (v values) str(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v values) num(name string) float64 {
	f, _ := v[name].(float64)
	return f
}

func (v values) date(name string) time.Time {
	t, _ := v[name].(time.Time)
	return t
}

func (v values) list(name string) []string {
	l, _ := v[name].([]string)
	return l
}

func (v values) boolean(name string) bool {
	b, _ := v[name].(bool)
	return b
}

func (v values) optional(name string) *string {
	s := v.str(name)
	if s == "" {
		return nil
	}
	return &s
}

type collector struct {
	kind       domain.EntityType
	violations []domain.Violation
}

func (c *collector) add(field, code, format string, args ...any) {
	c.violations = append(c.violations, domain.Violation{
		Rule:     RuleName,
		Severity: domain.SeverityBlock,
		Code:     code,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Entity:   c.kind,
	})
}

// normalize validates payload against the field table of kind. Absent
// optional fields take their defaults when applyDefaults is set.
func normalize(kind domain.EntityType, payload Payload, applyDefaults bool) (values, []domain.Violation) {
	c := &collector{kind: kind}
	table := tables[kind]
	known := make(map[string]struct{}, len(table))
	for _, f := range table {
		known[f.Name] = struct{}{}
	}
	var unknown []string
	for key := range payload {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		if isSystemField(key) {
			c.add(key, domain.CodeUnknownPath, "is managed by the system and cannot be set")
			continue
		}
		c.add(key, domain.CodeUnknownPath, "is not a recognised %s field", kind)
	}

	out := make(values, len(table))
	for _, f := range table {
		raw, present := payload[f.Name]
		if f.ReadOnly {
			if present {
				c.add(f.Name, domain.CodeUnknownPath, "is read-only")
			}
			continue
		}
		if !present || raw == nil {
			if f.Required {
				c.add(f.Name, domain.CodeRequired, "is required")
				continue
			}
			if applyDefaults && f.Default != nil {
				out[f.Name] = f.Default
			}
			continue
		}
		if val, ok := parseField(c, f, raw); ok {
			out[f.Name] = val
		}
	}
	return out, c.violations
}

func isSystemField(name string) bool {
	for _, s := range SystemFields {
		if s == name {
			return true
		}
	}
	return false
}

func parseField(c *collector, f Field, raw any) (any, bool) {
	switch f.Kind {
	case KindString, KindEmail, KindEnum, KindRef:
		s, ok := raw.(string)
		if !ok {
			c.add(f.Name, domain.CodeInvalid, "must be a string")
			return nil, false
		}
		s = strings.TrimSpace(s)
		if s == "" {
			if f.Required {
				c.add(f.Name, domain.CodeRequired, "is required")
				return nil, false
			}
			return "", true
		}
		if f.MaxLen > 0 && utf8.RuneCountInString(s) > f.MaxLen {
			c.add(f.Name, domain.CodeInvalid, "must be at most %d characters", f.MaxLen)
			return nil, false
		}
		switch f.Kind {
		case KindEmail:
			addr, err := mail.ParseAddress(s)
			if err != nil || addr.Address != s {
				c.add(f.Name, domain.CodeInvalid, "must be a valid email address")
				return nil, false
			}
			s = strings.ToLower(s)
		case KindEnum:
			if !contains(f.Enum, s) {
				c.add(f.Name, domain.CodeInvalid, "must be one of %s", strings.Join(f.Enum, ", "))
				return nil, false
			}
		}
		return s, true
	case KindNumber:
		n, ok := toFloat(raw)
		if !ok {
			c.add(f.Name, domain.CodeInvalid, "must be a number")
			return nil, false
		}
		if f.Integer && n != math.Trunc(n) {
			c.add(f.Name, domain.CodeInvalid, "must be a whole number")
			return nil, false
		}
		if f.Min != nil && n < *f.Min {
			c.add(f.Name, domain.CodeInvalid, "must be >= %s", formatBound(*f.Min))
			return nil, false
		}
		if f.Max != nil && n > *f.Max {
			c.add(f.Name, domain.CodeInvalid, "must be <= %s", formatBound(*f.Max))
			return nil, false
		}
		return n, true
	case KindDate:
		t, ok := toTime(raw)
		if !ok {
			c.add(f.Name, domain.CodeInvalid, "must be an RFC 3339 timestamp or YYYY-MM-DD date")
			return nil, false
		}
		return t, true
	case KindRefList, KindStringList:
		items, ok := toStrings(raw, f.Kind == KindStringList)
		if !ok {
			c.add(f.Name, domain.CodeInvalid, "must be a list of strings")
			return nil, false
		}
		if f.Kind == KindRefList {
			for _, id := range items {
				if id == "" {
					c.add(f.Name, domain.CodeInvalid, "must not contain empty identifiers")
					return nil, false
				}
			}
		}
		return items, true
	case KindBool:
		switch b := raw.(type) {
		case bool:
			return b, true
		case string:
			parsed, err := strconv.ParseBool(strings.TrimSpace(b))
			if err == nil {
				return parsed, true
			}
		}
		c.add(f.Name, domain.CodeInvalid, "must be a boolean")
		return nil, false
	}
	c.add(f.Name, domain.CodeInvalid, "has an unsupported type")
	return nil, false
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func toFloat(raw any) (float64, bool) {
	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case int32:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func toTime(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v.UTC(), true
	case string:
		s := strings.TrimSpace(v)
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC(), true
		}
		if t, err := time.Parse(dateOnly, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// toStrings accepts []string, []any of strings, or (for free-form lists) a
// comma separated string. Entries are trimmed; empty tags are dropped.
func toStrings(raw any, splitCommas bool) ([]string, bool) {
	var items []string
	switch v := raw.(type) {
	case []string:
		items = append(items, v...)
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			items = append(items, s)
		}
	case string:
		if !splitCommas {
			return nil, false
		}
		items = strings.Split(v, ",")
	default:
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" && splitCommas {
			continue
		}
		out = append(out, item)
	}
	return out, true
}

// dateOrderViolations checks the date pair of kind on values that already
// failed elsewhere, so a rejected payload still reports an inverted range.
// Valid payloads leave the check to the date order rule.
func dateOrderViolations(kind domain.EntityType, v values) []domain.Violation {
	pair, ok := datePairs[kind]
	if !ok {
		return nil
	}
	start, okStart := v[pair.start].(time.Time)
	end, okEnd := v[pair.end].(time.Time)
	if !okStart || !okEnd || end.After(start) {
		return nil
	}
	return []domain.Violation{{
		Rule:     DateOrderRule,
		Severity: domain.SeverityBlock,
		Code:     domain.CodeDateOrder,
		Field:    pair.end,
		Message:  pair.message,
		Entity:   kind,
	}}
}
