package core

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"programhub/internal/access"
	"programhub/internal/schema"
	"programhub/pkg/domain"
)

// ListQuery narrows and orders a listing.
type ListQuery struct {
	// Filters are equality matches on attribute names. List attributes
	// match when they contain the value.
	Filters map[string]string
	// IncludeInactive lists deactivated users too.
	IncludeInactive bool
	// Sort names an attribute, prefixed with "-" for descending order.
	// Defaults to newest first.
	Sort   string
	Expand []string
}

// DefaultSort orders listings newest first.
const DefaultSort = "-created_at"

var sortable = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"title":      true,
	"status":     true,
	"priority":   true,
	"start_date": true,
	"end_date":   true,
	"due_date":   true,
	"budget":     true,
	"spent":      true,
	"progress":   true,
	"risk_score": true,
}

// GetEntity returns one record with the requested relations expanded.
func (s *Service) GetEntity(ctx context.Context, principal Principal, kind EntityType, id string, expand []string) (Record, error) {
	var rec Record
	op := operation{name: opName("get", kind), kind: kind, actor: principal.ID}
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		if !knownKind(kind) {
			return id, unknownKind(kind)
		}
		if err := s.policy.Authorize(principal, access.OpRead, kind, id); err != nil {
			return id, err
		}
		names, err := resolveExpansions(kind, expand)
		if err != nil {
			return id, err
		}
		err = s.store.View(ctx, func(view TransactionView) error {
			entity, ok := domain.Find(view, kind, id)
			if !ok {
				return domain.NotFoundError{Entity: kind, ID: id}
			}
			rec = expandRecord(view, entity, names)
			return nil
		})
		return id, translateError(kind, "get "+string(kind), err)
	})
	return rec, err
}

// ListEntities returns the records of kind matching q. Deactivated users are
// omitted unless q asks for them or filters on "active".
func (s *Service) ListEntities(ctx context.Context, principal Principal, kind EntityType, q ListQuery) ([]Record, error) {
	var out []Record
	op := operation{name: "list_" + kind.Plural(), kind: kind, actor: principal.ID}
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		if !knownKind(kind) {
			return "", unknownKind(kind)
		}
		if err := s.policy.Authorize(principal, access.OpRead, kind, ""); err != nil {
			return "", err
		}
		names, err := resolveExpansions(kind, q.Expand)
		if err != nil {
			return "", err
		}
		if err := validateFilters(kind, q.Filters); err != nil {
			return "", err
		}
		key, desc, err := parseSort(kind, q.Sort)
		if err != nil {
			return "", err
		}
		_, filtersActive := q.Filters["active"]
		activeOnly := kind == EntityUser && !q.IncludeInactive && !filtersActive
		err = s.store.View(ctx, func(view TransactionView) error {
			var matched []Entity
			for _, entity := range domain.List(view, kind) {
				if activeOnly && !entity.(User).Active {
					continue
				}
				if matches(entity, q.Filters) {
					matched = append(matched, entity)
				}
			}
			sortEntities(matched, key, desc)
			out = make([]Record, 0, len(matched))
			for _, entity := range matched {
				out = append(out, expandRecord(view, entity, names))
			}
			return nil
		})
		return "", translateError(kind, "list "+kind.Plural(), err)
	})
	return out, err
}

func filterable(kind EntityType, name string) bool {
	switch name {
	case "id", "created_by":
		return kind != EntityUser || name == "id"
	}
	f, ok := schema.Lookup(kind, name)
	return ok && !f.ReadOnly
}

func validateFilters(kind EntityType, filters map[string]string) error {
	var unknown []string
	for name := range filters {
		if !filterable(kind, name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return invalid(kind, "filter", domain.CodeUnknownPath, "cannot filter %s on %s", kind.Plural(), strings.Join(unknown, ", "))
}

func matches(entity Entity, filters map[string]string) bool {
	for name, want := range filters {
		got, ok := schema.Attribute(entity, name)
		if !ok {
			// Unset optional references only match an empty filter value.
			if want != "" {
				return false
			}
			continue
		}
		if !matchValue(got, want) {
			return false
		}
	}
	return true
}

func matchValue(got any, want string) bool {
	want = strings.TrimSpace(want)
	switch v := got.(type) {
	case string:
		return strings.EqualFold(v, want)
	case []string:
		for _, item := range v {
			if strings.EqualFold(item, want) {
				return true
			}
		}
		return false
	case bool:
		b, err := strconv.ParseBool(want)
		return err == nil && b == v
	case float64:
		f, err := strconv.ParseFloat(want, 64)
		return err == nil && f == v
	case time.Time:
		if len(want) == len("2006-01-02") {
			return v.UTC().Format("2006-01-02") == want
		}
		t, err := time.Parse(time.RFC3339Nano, want)
		return err == nil && t.Equal(v)
	}
	return fmt.Sprint(got) == want
}

func parseSort(kind EntityType, raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = DefaultSort
	}
	desc := strings.HasPrefix(raw, "-")
	key := strings.TrimPrefix(strings.TrimPrefix(raw, "-"), "+")
	if !sortable[key] || !hasSortKey(kind, key) {
		return "", false, invalid(kind, "sort", domain.CodeUnknownPath, "cannot sort %s by %q", kind.Plural(), key)
	}
	return key, desc, nil
}

func hasSortKey(kind EntityType, key string) bool {
	switch key {
	case "created_at", "updated_at":
		return true
	case "risk_score":
		return kind == EntityRisk
	}
	_, ok := schema.Lookup(kind, key)
	return ok
}

// sortEntities orders in place; ties fall back to ID so results are stable
// across stores.
func sortEntities(entities []Entity, key string, desc bool) {
	slices.SortStableFunc(entities, func(a, b Entity) int {
		c := compareAttribute(sortValue(a, key), sortValue(b, key))
		if c == 0 {
			c = cmp.Compare(a.EntityID(), b.EntityID())
		}
		if desc {
			return -c
		}
		return c
	})
}

func sortValue(entity Entity, key string) any {
	if key == "risk_score" {
		if r, ok := entity.(Risk); ok {
			return float64(r.Score())
		}
	}
	v, _ := schema.Attribute(entity, key)
	if key == "priority" {
		if p, ok := v.(string); ok {
			return float64(priorityRank[domain.Priority(p)])
		}
	}
	return v
}

var priorityRank = map[domain.Priority]int{
	domain.PriorityLow:      1,
	domain.PriorityMedium:   2,
	domain.PriorityHigh:     3,
	domain.PriorityCritical: 4,
}

func compareAttribute(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		bv, _ := b.(time.Time)
		return av.Compare(bv)
	case float64:
		bv, _ := b.(float64)
		return cmp.Compare(av, bv)
	case string:
		bv, _ := b.(string)
		return cmp.Compare(strings.ToLower(av), strings.ToLower(bv))
	}
	return 0
}
