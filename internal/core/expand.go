package core

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"programhub/pkg/domain"
)

// Record is an entity as returned by reads: the stored attributes, the
// derived values of its kind and any requested expansions.
type Record struct {
	Entity    Entity
	Expanded  map[string]any
	riskScore *int
	budget    *float64
}

// MarshalJSON flattens the entity, its derived values and its expansions into
// one object. Expansions are keyed by relation name (manager, tasks, ...) and
// sit next to the raw ID fields.
func (r Record) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(r.Entity)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	out["kind"] = r.Entity.EntityType()
	if r.riskScore != nil {
		out["risk_score"] = *r.riskScore
	}
	if r.budget != nil {
		out["budget_utilization"] = *r.budget
	}
	for k, v := range r.Expanded {
		out[k] = v
	}
	return json.Marshal(out)
}

// RecordOf wraps an entity returned by a write with its derived values.
func RecordOf(entity Entity) Record { return newRecord(entity) }

func newRecord(entity Entity) Record {
	rec := Record{Entity: entity}
	switch e := entity.(type) {
	case Risk:
		score := e.Score()
		rec.riskScore = &score
	case Program:
		u := domain.BudgetUtilization(e.Spent, e.Budget)
		rec.budget = &u
	case Project:
		u := domain.BudgetUtilization(e.Spent, e.Budget)
		rec.budget = &u
	}
	return rec
}

// RiskScore returns the derived score when the record is a risk.
func (r Record) RiskScore() (int, bool) {
	if r.riskScore == nil {
		return 0, false
	}
	return *r.riskScore, true
}

// BudgetUtilization returns spent/budget when the record is a program or project.
func (r Record) BudgetUtilization() (float64, bool) {
	if r.budget == nil {
		return 0, false
	}
	return *r.budget, true
}

// UserSummary is the projection of an expanded user reference.
type UserSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

// NamedSummary projects programs and projects referenced by ID.
type NamedSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectSummary is the projection used when listing the projects of a program.
type ProjectSummary struct {
	ID       string               `json:"id"`
	Name     string               `json:"name"`
	Status   domain.ProjectStatus `json:"status"`
	Progress float64              `json:"progress"`
}

// CommentView is a task comment with its author expanded.
type CommentView struct {
	User      UserSummary `json:"user"`
	Text      string      `json:"text"`
	CreatedAt time.Time   `json:"created_at"`
}

// TaskSummary is the projection used when listing the tasks of a project.
type TaskSummary struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Status   domain.TaskStatus `json:"status"`
	Priority domain.Priority   `json:"priority"`
	Comments []CommentView     `json:"comments"`
}

// DependencySummary projects the tasks a task depends on.
type DependencySummary struct {
	ID     string            `json:"id"`
	Title  string            `json:"title"`
	Status domain.TaskStatus `json:"status"`
}

// RiskSummary is the projection used when listing risks.
type RiskSummary struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Status    domain.RiskStatus   `json:"status"`
	Category  domain.RiskCategory `json:"category"`
	RiskScore int                 `json:"risk_score"`
}

// DocumentSummary is the projection used when listing documents.
type DocumentSummary struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	Type    domain.DocumentType `json:"type"`
	Version string              `json:"version"`
}

type expander func(view TransactionView, entity Entity) any

// relations lists the expandable relation names per kind. Forward relations
// resolve an ID field; inverse ones query the owning collection.
var relations = map[EntityType]map[string]expander{
	EntityProgram: {
		"manager":  func(v TransactionView, e Entity) any { return userRef(v, e.(Program).ManagerID) },
		"projects": func(v TransactionView, e Entity) any { return programProjects(v, e.EntityID()) },
		"risks":    func(v TransactionView, e Entity) any { return risksOf(v, func(r Risk) bool { return optionalIs(r.ProgramID, e.EntityID()) }) },
	},
	EntityProject: {
		"manager": func(v TransactionView, e Entity) any { return userRef(v, e.(Project).ManagerID) },
		"team":    func(v TransactionView, e Entity) any { return userRefs(v, e.(Project).TeamIDs) },
		"program": func(v TransactionView, e Entity) any {
			if id := e.(Project).ProgramID; id != nil {
				return programRef(v, *id)
			}
			return nil
		},
		"tasks":     func(v TransactionView, e Entity) any { return projectTasks(v, e.EntityID()) },
		"risks":     func(v TransactionView, e Entity) any { return risksOf(v, func(r Risk) bool { return optionalIs(r.ProjectID, e.EntityID()) }) },
		"documents": func(v TransactionView, e Entity) any { return projectDocuments(v, e.EntityID()) },
	},
	EntityTask: {
		"assignee":      func(v TransactionView, e Entity) any { return userRef(v, e.(Task).AssigneeID) },
		"reporter":      func(v TransactionView, e Entity) any { return userRef(v, e.(Task).ReporterID) },
		"project":       func(v TransactionView, e Entity) any { return projectRef(v, e.(Task).ProjectID) },
		"dependencies":  func(v TransactionView, e Entity) any { return dependencies(v, e.(Task).DependencyIDs) },
		"comments.user": func(v TransactionView, e Entity) any { return commentViews(v, e.(Task).Comments) },
	},
	EntityRisk: {
		"owner": func(v TransactionView, e Entity) any { return userRef(v, e.(Risk).OwnerID) },
		"project": func(v TransactionView, e Entity) any {
			if id := e.(Risk).ProjectID; id != nil {
				return projectRef(v, *id)
			}
			return nil
		},
		"program": func(v TransactionView, e Entity) any {
			if id := e.(Risk).ProgramID; id != nil {
				return programRef(v, *id)
			}
			return nil
		},
	},
	EntityDocument: {
		"uploaded_by": func(v TransactionView, e Entity) any { return userRef(v, e.(Document).UploadedByID) },
		"project":     func(v TransactionView, e Entity) any { return projectRef(v, e.(Document).ProjectID) },
	},
	EntityUser: {},
}

// aliases accept the ID field names as relation names.
var aliases = map[string]string{
	"manager_id":     "manager",
	"team_ids":       "team",
	"program_id":     "program",
	"project_id":     "project",
	"assignee_id":    "assignee",
	"reporter_id":    "reporter",
	"dependency_ids": "dependencies",
	"owner_id":       "owner",
	"uploaded_by_id": "uploaded_by",
	"comments":       "comments.user",
}

// ExpandableRelations lists the relation names accepted for kind, sorted.
func ExpandableRelations(kind EntityType) []string {
	names := make([]string, 0, len(relations[kind]))
	for name := range relations[kind] {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// resolveExpansions validates the requested relation names for kind.
func resolveExpansions(kind EntityType, expand []string) ([]string, error) {
	var out []string
	var unknown []string
	for _, raw := range expand {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if alias, ok := aliases[name]; ok {
			name = alias
		}
		if _, ok := relations[kind][name]; !ok {
			unknown = append(unknown, raw)
			continue
		}
		if !slices.Contains(out, name) {
			out = append(out, name)
		}
	}
	if len(unknown) > 0 {
		return nil, invalid(kind, "expand", domain.CodeUnknownPath, "cannot expand %s on %s; expandable: %s",
			strings.Join(unknown, ", "), kind, strings.Join(ExpandableRelations(kind), ", "))
	}
	return out, nil
}

func expandRecord(view TransactionView, entity Entity, names []string) Record {
	rec := newRecord(entity)
	if len(names) == 0 {
		return rec
	}
	rec.Expanded = make(map[string]any, len(names))
	for _, name := range names {
		key := name
		if name == "comments.user" {
			key = "comments"
		}
		rec.Expanded[key] = relations[entity.EntityType()][name](view, entity)
	}
	return rec
}

func userSummary(u User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

// userRef returns nil for dangling references.
func userRef(view TransactionView, id string) any {
	u, ok := view.FindUser(id)
	if !ok {
		return nil
	}
	return userSummary(u)
}

func userRefs(view TransactionView, ids []string) []UserSummary {
	out := make([]UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := view.FindUser(id); ok {
			out = append(out, userSummary(u))
		}
	}
	return out
}

func programRef(view TransactionView, id string) any {
	p, ok := view.FindProgram(id)
	if !ok {
		return nil
	}
	return NamedSummary{ID: p.ID, Name: p.Name}
}

func projectRef(view TransactionView, id string) any {
	p, ok := view.FindProject(id)
	if !ok {
		return nil
	}
	return NamedSummary{ID: p.ID, Name: p.Name}
}

func programProjects(view TransactionView, programID string) []ProjectSummary {
	out := []ProjectSummary{}
	for _, p := range view.ListProjects() {
		if optionalIs(p.ProgramID, programID) {
			out = append(out, ProjectSummary{ID: p.ID, Name: p.Name, Status: p.Status, Progress: p.Progress})
		}
	}
	return out
}

func projectTasks(view TransactionView, projectID string) []TaskSummary {
	out := []TaskSummary{}
	for _, t := range view.ListTasks() {
		if t.ProjectID != projectID {
			continue
		}
		out = append(out, TaskSummary{
			ID:       t.ID,
			Title:    t.Title,
			Status:   t.Status,
			Priority: t.Priority,
			Comments: commentViews(view, t.Comments),
		})
	}
	return out
}

func commentViews(view TransactionView, comments []domain.Comment) []CommentView {
	out := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		author := UserSummary{ID: c.UserID}
		if u, ok := view.FindUser(c.UserID); ok {
			author.Name = u.Name
		}
		out = append(out, CommentView{User: author, Text: c.Text, CreatedAt: c.CreatedAt})
	}
	return out
}

func dependencies(view TransactionView, ids []string) []DependencySummary {
	out := make([]DependencySummary, 0, len(ids))
	for _, id := range ids {
		if t, ok := view.FindTask(id); ok {
			out = append(out, DependencySummary{ID: t.ID, Title: t.Title, Status: t.Status})
		}
	}
	return out
}

func risksOf(view TransactionView, match func(Risk) bool) []RiskSummary {
	out := []RiskSummary{}
	for _, r := range view.ListRisks() {
		if match(r) {
			out = append(out, RiskSummary{ID: r.ID, Title: r.Title, Status: r.Status, Category: r.Category, RiskScore: r.Score()})
		}
	}
	return out
}

func projectDocuments(view TransactionView, projectID string) []DocumentSummary {
	out := []DocumentSummary{}
	for _, d := range view.ListDocuments() {
		if d.ProjectID == projectID {
			out = append(out, DocumentSummary{ID: d.ID, Name: d.Name, Type: d.Type, Version: d.Version})
		}
	}
	return out
}

func optionalIs(ref *string, id string) bool {
	return ref != nil && *ref == id
}
