// Package memory provides an in-memory implementation of the core persistence
// store used for tests, ephemeral environments and as the transactional
// engine behind the snapshotting durable stores.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"programhub/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// User aliases domain.User for in-memory persistence operations.
	User = domain.User
	// Program aliases domain.Program.
	Program = domain.Program
	// Project aliases domain.Project.
	Project = domain.Project
	// Task aliases domain.Task.
	Task = domain.Task
	// Risk aliases domain.Risk.
	Risk = domain.Risk
	// Document aliases domain.Document.
	Document = domain.Document
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	users     map[string]User
	programs  map[string]Program
	projects  map[string]Project
	tasks     map[string]Task
	risks     map[string]Risk
	documents map[string]Document
}

func newMemoryState() memoryState {
	return memoryState{
		users:     make(map[string]User),
		programs:  make(map[string]Program),
		projects:  make(map[string]Project),
		tasks:     make(map[string]Task),
		risks:     make(map[string]Risk),
		documents: make(map[string]Document),
	}
}

func cloneMap[T any](in map[string]T, clone func(T) T) map[string]T {
	out := make(map[string]T, len(in))
	for k, v := range in {
		out[k] = clone(v)
	}
	return out
}

func (s memoryState) clone() memoryState {
	return memoryState{
		users:     cloneMap(s.users, cloneUser),
		programs:  cloneMap(s.programs, cloneProgram),
		projects:  cloneMap(s.projects, cloneProject),
		tasks:     cloneMap(s.tasks, cloneTask),
		risks:     cloneMap(s.risks, cloneRisk),
		documents: cloneMap(s.documents, cloneDocument),
	}
}

func cloneUser(u User) User          { return u }
func cloneProgram(p Program) Program { return p }

func cloneProject(p Project) Project {
	cp := p
	cp.TeamIDs = cloneStrings(p.TeamIDs)
	cp.ProgramID = cloneOptional(p.ProgramID)
	return cp
}

func cloneTask(t Task) Task {
	cp := t
	cp.DependencyIDs = cloneStrings(t.DependencyIDs)
	cp.Tags = cloneStrings(t.Tags)
	if t.Comments != nil {
		cp.Comments = append([]domain.Comment(nil), t.Comments...)
	}
	return cp
}

func cloneRisk(r Risk) Risk {
	cp := r
	cp.ProjectID = cloneOptional(r.ProjectID)
	cp.ProgramID = cloneOptional(r.ProgramID)
	return cp
}

func cloneDocument(d Document) Document {
	cp := d
	cp.Tags = cloneStrings(d.Tags)
	return cp
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneOptional(in *string) *string {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}

func containsString(values []string, id string) bool {
	for _, v := range values {
		if v == id {
			return true
		}
	}
	return false
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func optionalEquals(ref *string, id string) bool {
	return ref != nil && *ref == id
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.nowFn = now
		}
	}
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine, opts ...Option) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	s := &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// transaction represents a mutation set applied to a cloned store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// CommitFunc persists the state a transaction is about to commit. It runs
// under the store lock. An error aborts the commit and leaves the committed
// state untouched.
type CommitFunc func(ctx context.Context, next Snapshot) error

// RunInTransaction executes fn within a transactional copy of the store state.
// The rules engine evaluates the recorded changes before the copy replaces
// the committed state; any blocking violation discards every mutation.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	return s.RunInTransactionWithCommit(ctx, fn, nil)
}

// RunInTransactionWithCommit is RunInTransaction with a durable commit step.
// When commit is set it receives the transaction state after the rules pass
// and the copy replaces the committed state only if commit succeeds.
func (s *Store) RunInTransactionWithCommit(ctx context.Context, fn func(tx Transaction) error, commit CommitFunc) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil && len(tx.changes) > 0 {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if commit != nil && len(tx.changes) > 0 {
		if err := commit(ctx, snapshotFromMemoryState(tx.state)); err != nil {
			return result, err
		}
	}
	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func (tx *transaction) stamp(base *domain.Base) {
	if base.ID == "" {
		base.ID = tx.store.newID()
	}
	base.CreatedAt = tx.now
	base.UpdatedAt = tx.now
	base.Revision = 1
}

func (tx *transaction) touch(base *domain.Base, before domain.Base) {
	base.ID = before.ID
	base.CreatedAt = before.CreatedAt
	base.UpdatedAt = tx.now
	base.Revision = before.Revision + 1
}

func alreadyExists(kind domain.EntityType, id string) error {
	return domain.ConflictError{Entity: kind, ID: id, Reason: "already exists"}
}

func notFound(kind domain.EntityType, id string) error {
	return domain.NotFoundError{Entity: kind, ID: id}
}

func stillReferenced(kind domain.EntityType, id string, by domain.EntityType, byID string) error {
	return domain.ConflictError{Entity: kind, ID: id, Reason: fmt.Sprintf("still referenced by %s %q", by, byID)}
}

// CreateUser stores a new user record.
func (tx *transaction) CreateUser(u User) (User, error) {
	tx.stamp(&u.Base)
	if _, exists := tx.state.users[u.ID]; exists {
		return User{}, alreadyExists(domain.EntityUser, u.ID)
	}
	tx.state.users[u.ID] = cloneUser(u)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: cloneUser(u)})
	return cloneUser(u), nil
}

// UpdateUser mutates an existing user record.
func (tx *transaction) UpdateUser(id string, mutator func(*User) error) (User, error) {
	current, ok := tx.state.users[id]
	if !ok {
		return User{}, notFound(domain.EntityUser, id)
	}
	before := cloneUser(current)
	if err := mutator(&current); err != nil {
		return User{}, err
	}
	tx.touch(&current.Base, before.Base)
	tx.state.users[id] = cloneUser(current)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionUpdate, Before: before, After: cloneUser(current)})
	return cloneUser(current), nil
}

// CreateProgram stores a new program record.
func (tx *transaction) CreateProgram(p Program) (Program, error) {
	tx.stamp(&p.Base)
	if _, exists := tx.state.programs[p.ID]; exists {
		return Program{}, alreadyExists(domain.EntityProgram, p.ID)
	}
	tx.state.programs[p.ID] = cloneProgram(p)
	tx.recordChange(Change{Entity: domain.EntityProgram, Action: domain.ActionCreate, After: cloneProgram(p)})
	return cloneProgram(p), nil
}

// UpdateProgram mutates an existing program record.
func (tx *transaction) UpdateProgram(id string, mutator func(*Program) error) (Program, error) {
	current, ok := tx.state.programs[id]
	if !ok {
		return Program{}, notFound(domain.EntityProgram, id)
	}
	before := cloneProgram(current)
	if err := mutator(&current); err != nil {
		return Program{}, err
	}
	tx.touch(&current.Base, before.Base)
	tx.state.programs[id] = cloneProgram(current)
	tx.recordChange(Change{Entity: domain.EntityProgram, Action: domain.ActionUpdate, Before: before, After: cloneProgram(current)})
	return cloneProgram(current), nil
}

// DeleteProgram removes a program that no project or risk references.
func (tx *transaction) DeleteProgram(id string) error {
	current, ok := tx.state.programs[id]
	if !ok {
		return notFound(domain.EntityProgram, id)
	}
	for _, project := range sortedValues(tx.state.projects, cloneProject) {
		if optionalEquals(project.ProgramID, id) {
			return stillReferenced(domain.EntityProgram, id, domain.EntityProject, project.ID)
		}
	}
	for _, risk := range sortedValues(tx.state.risks, cloneRisk) {
		if optionalEquals(risk.ProgramID, id) {
			return stillReferenced(domain.EntityProgram, id, domain.EntityRisk, risk.ID)
		}
	}
	delete(tx.state.programs, id)
	tx.recordChange(Change{Entity: domain.EntityProgram, Action: domain.ActionDelete, Before: cloneProgram(current)})
	return nil
}

// CreateProject stores a new project record.
func (tx *transaction) CreateProject(p Project) (Project, error) {
	tx.stamp(&p.Base)
	if _, exists := tx.state.projects[p.ID]; exists {
		return Project{}, alreadyExists(domain.EntityProject, p.ID)
	}
	p.TeamIDs = dedupeStrings(p.TeamIDs)
	tx.state.projects[p.ID] = cloneProject(p)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionCreate, After: cloneProject(p)})
	return cloneProject(p), nil
}

// UpdateProject mutates an existing project record.
func (tx *transaction) UpdateProject(id string, mutator func(*Project) error) (Project, error) {
	current, ok := tx.state.projects[id]
	if !ok {
		return Project{}, notFound(domain.EntityProject, id)
	}
	before := cloneProject(current)
	if err := mutator(&current); err != nil {
		return Project{}, err
	}
	current.TeamIDs = dedupeStrings(current.TeamIDs)
	tx.touch(&current.Base, before.Base)
	tx.state.projects[id] = cloneProject(current)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionUpdate, Before: before, After: cloneProject(current)})
	return cloneProject(current), nil
}

// DeleteProject removes a project that owns no tasks, risks or documents.
func (tx *transaction) DeleteProject(id string) error {
	current, ok := tx.state.projects[id]
	if !ok {
		return notFound(domain.EntityProject, id)
	}
	for _, task := range sortedValues(tx.state.tasks, cloneTask) {
		if task.ProjectID == id {
			return stillReferenced(domain.EntityProject, id, domain.EntityTask, task.ID)
		}
	}
	for _, risk := range sortedValues(tx.state.risks, cloneRisk) {
		if optionalEquals(risk.ProjectID, id) {
			return stillReferenced(domain.EntityProject, id, domain.EntityRisk, risk.ID)
		}
	}
	for _, doc := range sortedValues(tx.state.documents, cloneDocument) {
		if doc.ProjectID == id {
			return stillReferenced(domain.EntityProject, id, domain.EntityDocument, doc.ID)
		}
	}
	delete(tx.state.projects, id)
	tx.recordChange(Change{Entity: domain.EntityProject, Action: domain.ActionDelete, Before: cloneProject(current)})
	return nil
}

// CreateTask stores a new task record.
func (tx *transaction) CreateTask(t Task) (Task, error) {
	tx.stamp(&t.Base)
	if _, exists := tx.state.tasks[t.ID]; exists {
		return Task{}, alreadyExists(domain.EntityTask, t.ID)
	}
	t.DependencyIDs = dedupeStrings(t.DependencyIDs)
	tx.state.tasks[t.ID] = cloneTask(t)
	tx.recordChange(Change{Entity: domain.EntityTask, Action: domain.ActionCreate, After: cloneTask(t)})
	return cloneTask(t), nil
}

// UpdateTask mutates an existing task record.
func (tx *transaction) UpdateTask(id string, mutator func(*Task) error) (Task, error) {
	current, ok := tx.state.tasks[id]
	if !ok {
		return Task{}, notFound(domain.EntityTask, id)
	}
	before := cloneTask(current)
	if err := mutator(&current); err != nil {
		return Task{}, err
	}
	current.DependencyIDs = dedupeStrings(current.DependencyIDs)
	tx.touch(&current.Base, before.Base)
	tx.state.tasks[id] = cloneTask(current)
	tx.recordChange(Change{Entity: domain.EntityTask, Action: domain.ActionUpdate, Before: before, After: cloneTask(current)})
	return cloneTask(current), nil
}

// DeleteTask removes a task no other task depends on.
func (tx *transaction) DeleteTask(id string) error {
	current, ok := tx.state.tasks[id]
	if !ok {
		return notFound(domain.EntityTask, id)
	}
	for _, task := range sortedValues(tx.state.tasks, cloneTask) {
		if task.ID != id && containsString(task.DependencyIDs, id) {
			return stillReferenced(domain.EntityTask, id, domain.EntityTask, task.ID)
		}
	}
	delete(tx.state.tasks, id)
	tx.recordChange(Change{Entity: domain.EntityTask, Action: domain.ActionDelete, Before: cloneTask(current)})
	return nil
}

// CreateRisk stores a new risk record.
func (tx *transaction) CreateRisk(r Risk) (Risk, error) {
	tx.stamp(&r.Base)
	if _, exists := tx.state.risks[r.ID]; exists {
		return Risk{}, alreadyExists(domain.EntityRisk, r.ID)
	}
	tx.state.risks[r.ID] = cloneRisk(r)
	tx.recordChange(Change{Entity: domain.EntityRisk, Action: domain.ActionCreate, After: cloneRisk(r)})
	return cloneRisk(r), nil
}

// UpdateRisk mutates an existing risk record.
func (tx *transaction) UpdateRisk(id string, mutator func(*Risk) error) (Risk, error) {
	current, ok := tx.state.risks[id]
	if !ok {
		return Risk{}, notFound(domain.EntityRisk, id)
	}
	before := cloneRisk(current)
	if err := mutator(&current); err != nil {
		return Risk{}, err
	}
	tx.touch(&current.Base, before.Base)
	tx.state.risks[id] = cloneRisk(current)
	tx.recordChange(Change{Entity: domain.EntityRisk, Action: domain.ActionUpdate, Before: before, After: cloneRisk(current)})
	return cloneRisk(current), nil
}

// DeleteRisk removes a risk record.
func (tx *transaction) DeleteRisk(id string) error {
	current, ok := tx.state.risks[id]
	if !ok {
		return notFound(domain.EntityRisk, id)
	}
	delete(tx.state.risks, id)
	tx.recordChange(Change{Entity: domain.EntityRisk, Action: domain.ActionDelete, Before: cloneRisk(current)})
	return nil
}

// CreateDocument stores a new document record.
func (tx *transaction) CreateDocument(d Document) (Document, error) {
	tx.stamp(&d.Base)
	if _, exists := tx.state.documents[d.ID]; exists {
		return Document{}, alreadyExists(domain.EntityDocument, d.ID)
	}
	tx.state.documents[d.ID] = cloneDocument(d)
	tx.recordChange(Change{Entity: domain.EntityDocument, Action: domain.ActionCreate, After: cloneDocument(d)})
	return cloneDocument(d), nil
}

// UpdateDocument mutates an existing document record.
func (tx *transaction) UpdateDocument(id string, mutator func(*Document) error) (Document, error) {
	current, ok := tx.state.documents[id]
	if !ok {
		return Document{}, notFound(domain.EntityDocument, id)
	}
	before := cloneDocument(current)
	if err := mutator(&current); err != nil {
		return Document{}, err
	}
	tx.touch(&current.Base, before.Base)
	tx.state.documents[id] = cloneDocument(current)
	tx.recordChange(Change{Entity: domain.EntityDocument, Action: domain.ActionUpdate, Before: before, After: cloneDocument(current)})
	return cloneDocument(current), nil
}

// DeleteDocument removes a document record. The stored file is left to the file store.
func (tx *transaction) DeleteDocument(id string) error {
	current, ok := tx.state.documents[id]
	if !ok {
		return notFound(domain.EntityDocument, id)
	}
	delete(tx.state.documents, id)
	tx.recordChange(Change{Entity: domain.EntityDocument, Action: domain.ActionDelete, Before: cloneDocument(current)})
	return nil
}

// sortedValues returns cloned map values ordered by ID for deterministic scans.
func sortedValues[T any](in map[string]T, clone func(T) T) []T {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, clone(in[k]))
	}
	return out
}
