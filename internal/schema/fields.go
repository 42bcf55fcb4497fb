// Package schema holds the per-entity field tables and turns raw payloads
// into normalized domain records, reporting every field violation at once.
package schema

import "programhub/pkg/domain"

// Kind describes how a payload value is parsed.
type Kind int

// Field kinds.
const (
	KindString Kind = iota
	KindEmail
	KindEnum
	KindNumber
	KindDate
	KindRef
	KindRefList
	KindStringList
	KindBool
)

// Field declares the constraints of one external attribute.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	MaxLen   int
	Min      *float64
	Max      *float64
	// Integer numbers reject fractional values.
	Integer bool
	Enum     []string
	Default  any
	// Ref names the entity kind an ID field must resolve to.
	Ref domain.EntityType
	// ReadOnly fields are rendered but never accepted from payloads.
	ReadOnly bool
}

func bound(v float64) *float64 { return &v }

var zero = bound(0)

const (
	nameMax        = 200
	descriptionMax = 1000
	shortTextMax   = 500
	userNameMax    = 100
)

// DateOrderRule names the violation reported when an end date does not fall
// after its start date.
const DateOrderRule = "date_order"

type datePair struct {
	start, end, message string
}

var datePairs = map[domain.EntityType]datePair{
	domain.EntityProgram: {"start_date", "end_date", "end date must be after start date"},
	domain.EntityProject: {"start_date", "end_date", "end date must be after start date"},
	domain.EntityTask:    {"start_date", "due_date", "due date must be after start date"},
}

// SystemFields are maintained by the store and may never be written by callers.
var SystemFields = []string{"id", "created_at", "updated_at", "revision", "created_by"}

var tables = map[domain.EntityType][]Field{
	domain.EntityUser: {
		{Name: "name", Kind: KindString, Required: true, MaxLen: userNameMax},
		{Name: "email", Kind: KindEmail, Required: true, MaxLen: nameMax},
		{Name: "role", Kind: KindEnum, Enum: roles, Default: string(domain.RoleMember)},
		{Name: "avatar", Kind: KindString, MaxLen: shortTextMax},
		{Name: "department", Kind: KindString, MaxLen: userNameMax},
		{Name: "active", Kind: KindBool, Default: true},
	},
	domain.EntityProgram: {
		{Name: "name", Kind: KindString, Required: true, MaxLen: nameMax},
		{Name: "description", Kind: KindString, Required: true, MaxLen: descriptionMax},
		{Name: "status", Kind: KindEnum, Enum: programStatuses, Default: string(domain.ProgramPlanning)},
		{Name: "start_date", Kind: KindDate, Required: true},
		{Name: "end_date", Kind: KindDate, Required: true},
		{Name: "budget", Kind: KindNumber, Required: true, Min: zero},
		{Name: "spent", Kind: KindNumber, Min: zero, Default: 0.0},
		{Name: "manager_id", Kind: KindRef, Required: true, Ref: domain.EntityUser},
	},
	domain.EntityProject: {
		{Name: "name", Kind: KindString, Required: true, MaxLen: nameMax},
		{Name: "description", Kind: KindString, Required: true, MaxLen: descriptionMax},
		{Name: "status", Kind: KindEnum, Enum: projectStatuses, Default: string(domain.ProjectNotStarted)},
		{Name: "priority", Kind: KindEnum, Enum: priorities, Default: string(domain.PriorityMedium)},
		{Name: "start_date", Kind: KindDate, Required: true},
		{Name: "end_date", Kind: KindDate, Required: true},
		{Name: "budget", Kind: KindNumber, Required: true, Min: zero},
		{Name: "spent", Kind: KindNumber, Min: zero, Default: 0.0},
		{Name: "progress", Kind: KindNumber, Min: zero, Max: bound(100), Default: 0.0},
		{Name: "manager_id", Kind: KindRef, Required: true, Ref: domain.EntityUser},
		{Name: "team_ids", Kind: KindRefList, Ref: domain.EntityUser},
		{Name: "program_id", Kind: KindRef, Ref: domain.EntityProgram},
	},
	domain.EntityTask: {
		{Name: "title", Kind: KindString, Required: true, MaxLen: nameMax},
		{Name: "description", Kind: KindString, Required: true, MaxLen: descriptionMax},
		{Name: "status", Kind: KindEnum, Enum: taskStatuses, Default: string(domain.TaskTodo)},
		{Name: "priority", Kind: KindEnum, Enum: priorities, Default: string(domain.PriorityMedium)},
		{Name: "assignee_id", Kind: KindRef, Required: true, Ref: domain.EntityUser},
		{Name: "reporter_id", Kind: KindRef, Required: true, Ref: domain.EntityUser},
		{Name: "project_id", Kind: KindRef, Required: true, Ref: domain.EntityProject},
		{Name: "start_date", Kind: KindDate, Required: true},
		{Name: "due_date", Kind: KindDate, Required: true},
		{Name: "estimated_hours", Kind: KindNumber, Required: true, Min: zero},
		{Name: "actual_hours", Kind: KindNumber, Min: zero, Default: 0.0},
		{Name: "dependency_ids", Kind: KindRefList, Ref: domain.EntityTask},
		{Name: "tags", Kind: KindStringList},
		{Name: "comments", ReadOnly: true},
	},
	domain.EntityRisk: {
		{Name: "title", Kind: KindString, Required: true, MaxLen: nameMax},
		{Name: "description", Kind: KindString, Required: true, MaxLen: descriptionMax},
		{Name: "category", Kind: KindEnum, Required: true, Enum: riskCategories},
		{Name: "probability", Kind: KindEnum, Required: true, Enum: levels},
		{Name: "impact", Kind: KindEnum, Required: true, Enum: levels},
		{Name: "status", Kind: KindEnum, Enum: riskStatuses, Default: string(domain.RiskIdentified)},
		{Name: "owner_id", Kind: KindRef, Required: true, Ref: domain.EntityUser},
		{Name: "mitigation", Kind: KindString, Required: true, MaxLen: descriptionMax},
		{Name: "project_id", Kind: KindRef, Ref: domain.EntityProject},
		{Name: "program_id", Kind: KindRef, Ref: domain.EntityProgram},
		{Name: "due_date", Kind: KindDate, Required: true},
	},
	domain.EntityDocument: {
		{Name: "name", Kind: KindString, Required: true, MaxLen: nameMax},
		{Name: "type", Kind: KindEnum, Required: true, Enum: documentTypes},
		{Name: "version", Kind: KindString, Required: true, MaxLen: userNameMax},
		{Name: "description", Kind: KindString, MaxLen: shortTextMax},
		{Name: "uploaded_by_id", Kind: KindRef, Required: true, Ref: domain.EntityUser},
		{Name: "project_id", Kind: KindRef, Required: true, Ref: domain.EntityProject},
		{Name: "url", Kind: KindString, Required: true, MaxLen: 2048},
		{Name: "size", Kind: KindNumber, Required: true, Min: zero, Integer: true},
		{Name: "mime_type", Kind: KindString, Required: true, MaxLen: nameMax},
		{Name: "status", Kind: KindEnum, Enum: documentStatuses, Default: string(domain.DocumentDraft)},
		{Name: "tags", Kind: KindStringList},
	},
}

var (
	roles            = []string{string(domain.RoleAdmin), string(domain.RoleManager), string(domain.RoleMember)}
	programStatuses  = []string{"planning", "active", "on-hold", "completed", "cancelled"}
	projectStatuses  = []string{"not-started", "in-progress", "on-hold", "completed", "cancelled"}
	priorities       = []string{"low", "medium", "high", "critical"}
	taskStatuses     = []string{"todo", "in-progress", "review", "completed"}
	riskCategories   = []string{"technical", "financial", "operational", "strategic"}
	levels           = []string{"low", "medium", "high"}
	riskStatuses     = []string{"identified", "assessed", "mitigated", "closed"}
	documentTypes    = []string{"requirement", "design", "test", "report", "other"}
	documentStatuses = []string{"draft", "review", "approved", "archived"}
)

// Fields returns the field table of kind. The slice must not be mutated.
func Fields(kind domain.EntityType) []Field {
	return tables[kind]
}

// Lookup returns the named field of kind.
func Lookup(kind domain.EntityType, name string) (Field, bool) {
	for _, f := range tables[kind] {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// References lists the ID fields of kind together with their target kinds.
func References(kind domain.EntityType) []Field {
	var out []Field
	for _, f := range tables[kind] {
		if f.Kind == KindRef || f.Kind == KindRefList {
			out = append(out, f)
		}
	}
	return out
}
