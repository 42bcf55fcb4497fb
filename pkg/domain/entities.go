// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by programhub.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityUser identifies a user account record.
	EntityUser EntityType = "user"
	// EntityProgram identifies a program grouping several projects.
	EntityProgram EntityType = "program"
	// EntityProject identifies a project record.
	EntityProject EntityType = "project"
	// EntityTask identifies a task belonging to a project.
	EntityTask EntityType = "task"
	// EntityRisk identifies a risk register entry.
	EntityRisk EntityType = "risk"
	// EntityDocument identifies an uploaded document.
	EntityDocument EntityType = "document"
)

// EntityTypes lists every managed kind in a stable order.
func EntityTypes() []EntityType {
	return []EntityType{EntityUser, EntityProgram, EntityProject, EntityTask, EntityRisk, EntityDocument}
}

// ParseEntityType resolves singular or plural kind names ("task", "tasks").
func ParseEntityType(raw string) (EntityType, bool) {
	for _, kind := range EntityTypes() {
		if raw == string(kind) || raw == kind.Plural() {
			return kind, true
		}
	}
	return "", false
}

// Plural returns the collection name used by transports and storage buckets.
func (t EntityType) Plural() string {
	return string(t) + "s"
}

// Role is the coarse grained permission level attached to a user.
type Role string

// Roles recognised by the access policy.
const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember:
		return true
	}
	return false
}

// CanManage reports whether the role may be assigned as a program or project manager.
func (r Role) CanManage() bool {
	return r == RoleAdmin || r == RoleManager
}

// ProgramStatus enumerates program lifecycle states.
type ProgramStatus string

// Program lifecycle states.
const (
	ProgramPlanning  ProgramStatus = "planning"
	ProgramActive    ProgramStatus = "active"
	ProgramOnHold    ProgramStatus = "on-hold"
	ProgramCompleted ProgramStatus = "completed"
	ProgramCancelled ProgramStatus = "cancelled"
)

// ProjectStatus enumerates project lifecycle states.
type ProjectStatus string

// Project lifecycle states.
const (
	ProjectNotStarted ProjectStatus = "not-started"
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectOnHold     ProjectStatus = "on-hold"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectCancelled  ProjectStatus = "cancelled"
)

// Priority is shared by projects and tasks.
type Priority string

// Priorities ordered from least to most urgent.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// TaskStatus enumerates task workflow states.
type TaskStatus string

// Task workflow states.
const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in-progress"
	TaskReview     TaskStatus = "review"
	TaskCompleted  TaskStatus = "completed"
)

// RiskCategory classifies a risk.
type RiskCategory string

// Risk categories.
const (
	RiskTechnical   RiskCategory = "technical"
	RiskFinancial   RiskCategory = "financial"
	RiskOperational RiskCategory = "operational"
	RiskStrategic   RiskCategory = "strategic"
)

// Level is the three-step scale used for risk probability and impact.
type Level string

// Risk levels.
const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// RiskStatus enumerates risk handling states.
type RiskStatus string

// Risk handling states.
const (
	RiskIdentified RiskStatus = "identified"
	RiskAssessed   RiskStatus = "assessed"
	RiskMitigated  RiskStatus = "mitigated"
	RiskClosed     RiskStatus = "closed"
)

// DocumentType classifies uploaded documents.
type DocumentType string

// Document types.
const (
	DocumentRequirement DocumentType = "requirement"
	DocumentDesign      DocumentType = "design"
	DocumentTest        DocumentType = "test"
	DocumentReport      DocumentType = "report"
	DocumentOther       DocumentType = "other"
)

// DocumentStatus enumerates document review states.
type DocumentStatus string

// Document review states.
const (
	DocumentDraft    DocumentStatus = "draft"
	DocumentInReview DocumentStatus = "review"
	DocumentApproved DocumentStatus = "approved"
	DocumentArchived DocumentStatus = "archived"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records. Revision increases on
// every committed write and backs optimistic concurrency checks.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Revision  int64     `json:"revision"`
}

// EntityID returns the record identifier.
func (b Base) EntityID() string { return b.ID }

// Entity is implemented by every persisted record.
type Entity interface {
	EntityType() EntityType
	EntityID() string
}

// Principal is the authenticated caller on whose behalf an operation runs.
type Principal struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Authenticated reports whether the principal carries an identity.
func (p Principal) Authenticated() bool {
	return p.ID != ""
}

// User represents an account. Users are deactivated, never hard-deleted.
type User struct {
	Base
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       Role   `json:"role"`
	Avatar     string `json:"avatar,omitempty"`
	Department string `json:"department,omitempty"`
	Active     bool   `json:"active"`
}

// Program groups related projects under a shared budget and manager.
type Program struct {
	Base
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProgramStatus `json:"status"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `json:"end_date"`
	Budget      float64       `json:"budget"`
	Spent       float64       `json:"spent"`
	ManagerID   string        `json:"manager_id"`
	CreatedBy   string        `json:"created_by"`
}

// Project is a unit of delivery optionally attached to a program.
type Project struct {
	Base
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status"`
	Priority    Priority      `json:"priority"`
	StartDate   time.Time     `json:"start_date"`
	EndDate     time.Time     `json:"end_date"`
	Budget      float64       `json:"budget"`
	Spent       float64       `json:"spent"`
	Progress    float64       `json:"progress"`
	ManagerID   string        `json:"manager_id"`
	TeamIDs     []string      `json:"team_ids"`
	ProgramID   *string       `json:"program_id"`
	CreatedBy   string        `json:"created_by"`
}

// Comment is an append-only note attached to a task.
type Comment struct {
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Task is a schedulable item of work within a project.
type Task struct {
	Base
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Status         TaskStatus `json:"status"`
	Priority       Priority   `json:"priority"`
	AssigneeID     string     `json:"assignee_id"`
	ReporterID     string     `json:"reporter_id"`
	ProjectID      string     `json:"project_id"`
	StartDate      time.Time  `json:"start_date"`
	DueDate        time.Time  `json:"due_date"`
	EstimatedHours float64    `json:"estimated_hours"`
	ActualHours    float64    `json:"actual_hours"`
	DependencyIDs  []string   `json:"dependency_ids"`
	Tags           []string   `json:"tags"`
	Comments       []Comment  `json:"comments"`
	CreatedBy      string     `json:"created_by"`
}

// Risk is an entry in the risk register of a project and/or program.
type Risk struct {
	Base
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    RiskCategory `json:"category"`
	Probability Level        `json:"probability"`
	Impact      Level        `json:"impact"`
	Status      RiskStatus   `json:"status"`
	OwnerID     string       `json:"owner_id"`
	Mitigation  string       `json:"mitigation"`
	ProjectID   *string      `json:"project_id"`
	ProgramID   *string      `json:"program_id"`
	DueDate     time.Time    `json:"due_date"`
	CreatedBy   string       `json:"created_by"`
}

// Score returns the derived risk score. It is never persisted.
func (r Risk) Score() int {
	return RiskScore(r.Probability, r.Impact)
}

// Document describes an uploaded file. URL, Size and MimeType come from the
// file store commit that precedes document creation.
type Document struct {
	Base
	Name         string         `json:"name"`
	Type         DocumentType   `json:"type"`
	Version      string         `json:"version"`
	Description  string         `json:"description"`
	UploadedByID string         `json:"uploaded_by_id"`
	ProjectID    string         `json:"project_id"`
	URL          string         `json:"url"`
	Size         int64          `json:"size"`
	MimeType     string         `json:"mime_type"`
	Status       DocumentStatus `json:"status"`
	Tags         []string       `json:"tags"`
	CreatedBy    string         `json:"created_by"`
}

// EntityType implements Entity.
func (User) EntityType() EntityType { return EntityUser }

// EntityType implements Entity.
func (Program) EntityType() EntityType { return EntityProgram }

// EntityType implements Entity.
func (Project) EntityType() EntityType { return EntityProject }

// EntityType implements Entity.
func (Task) EntityType() EntityType { return EntityTask }

// EntityType implements Entity.
func (Risk) EntityType() EntityType { return EntityRisk }

// EntityType implements Entity.
func (Document) EntityType() EntityType { return EntityDocument }
