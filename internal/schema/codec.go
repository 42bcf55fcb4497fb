package schema

import (
	"fmt"
	"time"

	"programhub/pkg/domain"
)

// Decode validates a create payload for kind and builds the normalized record.
// Defaults are applied to absent optional fields. System managed attributes
// (ID, timestamps, revision, creator, comments) are left zero.
func Decode(kind domain.EntityType, payload Payload) (domain.Entity, error) {
	return decode(kind, payload, true)
}

// Merge overlays patch onto the editable attributes of current and re-runs
// the full schema against the merged record.
func Merge(current domain.Entity, patch Payload) (domain.Entity, error) {
	kind := current.EntityType()
	merged := Encode(current)
	for key, value := range patch {
		merged[key] = value
	}
	return decode(kind, merged, false)
}

func decode(kind domain.EntityType, payload Payload, applyDefaults bool) (domain.Entity, error) {
	if _, ok := tables[kind]; !ok {
		return nil, fmt.Errorf("schema: unknown entity kind %q", kind)
	}
	v, violations := normalize(kind, payload, applyDefaults)
	if len(violations) > 0 {
		violations = append(violations, dateOrderViolations(kind, v)...)
		return nil, domain.ValidationError{Entity: kind, Violations: violations}
	}
	return build(kind, v), nil
}

func build(kind domain.EntityType, v values) domain.Entity {
	switch kind {
	case domain.EntityUser:
		return domain.User{
			Name:       v.str("name"),
			Email:      v.str("email"),
			Role:       domain.Role(v.str("role")),
			Avatar:     v.str("avatar"),
			Department: v.str("department"),
			Active:     v.boolean("active"),
		}
	case domain.EntityProgram:
		return domain.Program{
			Name:        v.str("name"),
			Description: v.str("description"),
			Status:      domain.ProgramStatus(v.str("status")),
			StartDate:   v.date("start_date"),
			EndDate:     v.date("end_date"),
			Budget:      v.num("budget"),
			Spent:       v.num("spent"),
			ManagerID:   v.str("manager_id"),
		}
	case domain.EntityProject:
		return domain.Project{
			Name:        v.str("name"),
			Description: v.str("description"),
			Status:      domain.ProjectStatus(v.str("status")),
			Priority:    domain.Priority(v.str("priority")),
			StartDate:   v.date("start_date"),
			EndDate:     v.date("end_date"),
			Budget:      v.num("budget"),
			Spent:       v.num("spent"),
			Progress:    v.num("progress"),
			ManagerID:   v.str("manager_id"),
			TeamIDs:     v.list("team_ids"),
			ProgramID:   v.optional("program_id"),
		}
	case domain.EntityTask:
		return domain.Task{
			Title:          v.str("title"),
			Description:    v.str("description"),
			Status:         domain.TaskStatus(v.str("status")),
			Priority:       domain.Priority(v.str("priority")),
			AssigneeID:     v.str("assignee_id"),
			ReporterID:     v.str("reporter_id"),
			ProjectID:      v.str("project_id"),
			StartDate:      v.date("start_date"),
			DueDate:        v.date("due_date"),
			EstimatedHours: v.num("estimated_hours"),
			ActualHours:    v.num("actual_hours"),
			DependencyIDs:  v.list("dependency_ids"),
			Tags:           v.list("tags"),
		}
	case domain.EntityRisk:
		return domain.Risk{
			Title:       v.str("title"),
			Description: v.str("description"),
			Category:    domain.RiskCategory(v.str("category")),
			Probability: domain.Level(v.str("probability")),
			Impact:      domain.Level(v.str("impact")),
			Status:      domain.RiskStatus(v.str("status")),
			OwnerID:     v.str("owner_id"),
			Mitigation:  v.str("mitigation"),
			ProjectID:   v.optional("project_id"),
			ProgramID:   v.optional("program_id"),
			DueDate:     v.date("due_date"),
		}
	case domain.EntityDocument:
		return domain.Document{
			Name:         v.str("name"),
			Type:         domain.DocumentType(v.str("type")),
			Version:      v.str("version"),
			Description:  v.str("description"),
			UploadedByID: v.str("uploaded_by_id"),
			ProjectID:    v.str("project_id"),
			URL:          v.str("url"),
			Size:         int64(v.num("size")),
			MimeType:     v.str("mime_type"),
			Status:       domain.DocumentStatus(v.str("status")),
			Tags:         v.list("tags"),
		}
	}
	return nil
}

// Encode renders the editable attributes of entity as a payload keyed by
// external field names. Optional references that are unset are omitted.
func Encode(entity domain.Entity) Payload {
	switch e := entity.(type) {
	case domain.User:
		return Payload{
			"name":       e.Name,
			"email":      e.Email,
			"role":       string(e.Role),
			"avatar":     e.Avatar,
			"department": e.Department,
			"active":     e.Active,
		}
	case domain.Program:
		return Payload{
			"name":        e.Name,
			"description": e.Description,
			"status":      string(e.Status),
			"start_date":  e.StartDate,
			"end_date":    e.EndDate,
			"budget":      e.Budget,
			"spent":       e.Spent,
			"manager_id":  e.ManagerID,
		}
	case domain.Project:
		p := Payload{
			"name":        e.Name,
			"description": e.Description,
			"status":      string(e.Status),
			"priority":    string(e.Priority),
			"start_date":  e.StartDate,
			"end_date":    e.EndDate,
			"budget":      e.Budget,
			"spent":       e.Spent,
			"progress":    e.Progress,
			"manager_id":  e.ManagerID,
			"team_ids":    cloneStrings(e.TeamIDs),
		}
		putOptional(p, "program_id", e.ProgramID)
		return p
	case domain.Task:
		return Payload{
			"title":           e.Title,
			"description":     e.Description,
			"status":          string(e.Status),
			"priority":        string(e.Priority),
			"assignee_id":     e.AssigneeID,
			"reporter_id":     e.ReporterID,
			"project_id":      e.ProjectID,
			"start_date":      e.StartDate,
			"due_date":        e.DueDate,
			"estimated_hours": e.EstimatedHours,
			"actual_hours":    e.ActualHours,
			"dependency_ids":  cloneStrings(e.DependencyIDs),
			"tags":            cloneStrings(e.Tags),
		}
	case domain.Risk:
		p := Payload{
			"title":       e.Title,
			"description": e.Description,
			"category":    string(e.Category),
			"probability": string(e.Probability),
			"impact":      string(e.Impact),
			"status":      string(e.Status),
			"owner_id":    e.OwnerID,
			"mitigation":  e.Mitigation,
			"due_date":    e.DueDate,
		}
		putOptional(p, "project_id", e.ProjectID)
		putOptional(p, "program_id", e.ProgramID)
		return p
	case domain.Document:
		return Payload{
			"name":           e.Name,
			"type":           string(e.Type),
			"version":        e.Version,
			"description":    e.Description,
			"uploaded_by_id": e.UploadedByID,
			"project_id":     e.ProjectID,
			"url":            e.URL,
			"size":           float64(e.Size),
			"mime_type":      e.MimeType,
			"status":         string(e.Status),
			"tags":           cloneStrings(e.Tags),
		}
	}
	return Payload{}
}

// Attribute returns the comparable value of a named attribute, including the
// system fields, for filtering and sorting.
func Attribute(entity domain.Entity, name string) (any, bool) {
	switch name {
	case "id":
		return entity.EntityID(), true
	case "created_at":
		return baseOf(entity).CreatedAt, true
	case "updated_at":
		return baseOf(entity).UpdatedAt, true
	case "created_by":
		return createdBy(entity), true
	}
	v, ok := Encode(entity)[name]
	return v, ok
}

func baseOf(entity domain.Entity) domain.Base {
	switch e := entity.(type) {
	case domain.User:
		return e.Base
	case domain.Program:
		return e.Base
	case domain.Project:
		return e.Base
	case domain.Task:
		return e.Base
	case domain.Risk:
		return e.Base
	case domain.Document:
		return e.Base
	}
	return domain.Base{}
}

// CreatedAt exposes the creation timestamp of any entity.
func CreatedAt(entity domain.Entity) time.Time {
	return baseOf(entity).CreatedAt
}

// Revision exposes the revision counter of any entity.
func Revision(entity domain.Entity) int64 {
	return baseOf(entity).Revision
}

func createdBy(entity domain.Entity) string {
	switch e := entity.(type) {
	case domain.Program:
		return e.CreatedBy
	case domain.Project:
		return e.CreatedBy
	case domain.Task:
		return e.CreatedBy
	case domain.Risk:
		return e.CreatedBy
	case domain.Document:
		return e.CreatedBy
	}
	return ""
}

func putOptional(p Payload, key string, value *string) {
	if value != nil && *value != "" {
		p[key] = *value
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}
