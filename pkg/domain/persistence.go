package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope. Users have no delete: deactivation is an
// update of the active flag.
type Transaction interface {
	Snapshot() TransactionView
	CreateUser(User) (User, error)
	UpdateUser(id string, mutator func(*User) error) (User, error)
	CreateProgram(Program) (Program, error)
	UpdateProgram(id string, mutator func(*Program) error) (Program, error)
	DeleteProgram(id string) error
	CreateProject(Project) (Project, error)
	UpdateProject(id string, mutator func(*Project) error) (Project, error)
	DeleteProject(id string) error
	CreateTask(Task) (Task, error)
	UpdateTask(id string, mutator func(*Task) error) (Task, error)
	DeleteTask(id string) error
	CreateRisk(Risk) (Risk, error)
	UpdateRisk(id string, mutator func(*Risk) error) (Risk, error)
	DeleteRisk(id string) error
	CreateDocument(Document) (Document, error)
	UpdateDocument(id string, mutator func(*Document) error) (Document, error)
	DeleteDocument(id string) error
}

// TransactionView provides read-only access to snapshot data for rules and queries.
type TransactionView interface {
	ListUsers() []User
	ListPrograms() []Program
	ListProjects() []Project
	ListTasks() []Task
	ListRisks() []Risk
	ListDocuments() []Document
	FindUser(id string) (User, bool)
	FindProgram(id string) (Program, bool)
	FindProject(id string) (Project, bool)
	FindTask(id string) (Task, bool)
	FindRisk(id string) (Risk, bool)
	FindDocument(id string) (Document, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}

// Find resolves an entity of any kind from a view.
func Find(view TransactionView, kind EntityType, id string) (Entity, bool) {
	switch kind {
	case EntityUser:
		if v, ok := view.FindUser(id); ok {
			return v, true
		}
	case EntityProgram:
		if v, ok := view.FindProgram(id); ok {
			return v, true
		}
	case EntityProject:
		if v, ok := view.FindProject(id); ok {
			return v, true
		}
	case EntityTask:
		if v, ok := view.FindTask(id); ok {
			return v, true
		}
	case EntityRisk:
		if v, ok := view.FindRisk(id); ok {
			return v, true
		}
	case EntityDocument:
		if v, ok := view.FindDocument(id); ok {
			return v, true
		}
	}
	return nil, false
}

// List returns every entity of kind from a view.
func List(view TransactionView, kind EntityType) []Entity {
	var out []Entity
	switch kind {
	case EntityUser:
		for _, v := range view.ListUsers() {
			out = append(out, v)
		}
	case EntityProgram:
		for _, v := range view.ListPrograms() {
			out = append(out, v)
		}
	case EntityProject:
		for _, v := range view.ListProjects() {
			out = append(out, v)
		}
	case EntityTask:
		for _, v := range view.ListTasks() {
			out = append(out, v)
		}
	case EntityRisk:
		for _, v := range view.ListRisks() {
			out = append(out, v)
		}
	case EntityDocument:
		for _, v := range view.ListDocuments() {
			out = append(out, v)
		}
	}
	return out
}
