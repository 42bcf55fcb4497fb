package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"programhub/internal/infra/persistence/memory"
	"programhub/internal/schema"
	"programhub/pkg/domain"
)

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	store   *memory.Store
	admin   Principal
	manager Principal
	member  Principal
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	store := memory.NewStore(NewDefaultRulesEngine(), memory.WithClock(clock))
	opts = append([]Option{WithClock(ClockFunc(clock))}, opts...)
	svc := NewService(store, opts...)
	f := fixture{svc: svc, store: store}
	f.admin = f.register(t, "Ada", "ada@example.com", domain.RoleAdmin)
	f.manager = f.register(t, "Avery", "avery@example.com", domain.RoleManager)
	f.member = f.register(t, "Bea", "bea@example.com", domain.RoleMember)
	return f
}

func (f fixture) register(t *testing.T, name, email string, role domain.Role) Principal {
	t.Helper()
	user, _, err := f.svc.RegisterUser(context.Background(), schema.Payload{"name": name, "email": email, "role": string(role)})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return Principal{ID: user.ID, Role: user.Role}
}

func programPayload(managerID string) schema.Payload {
	return schema.Payload{
		"name":        "Apollo",
		"description": "Lunar programme",
		"start_date":  "2024-01-01",
		"end_date":    "2024-12-31",
		"budget":      100000,
		"manager_id":  managerID,
	}
}

func projectPayload(managerID, programID string) schema.Payload {
	p := schema.Payload{
		"name":        "Lander",
		"description": "Descent stage",
		"start_date":  "2024-01-15",
		"end_date":    "2024-09-30",
		"budget":      40000,
		"manager_id":  managerID,
	}
	if programID != "" {
		p["program_id"] = programID
	}
	return p
}

func taskPayload(projectID, assigneeID, reporterID string) schema.Payload {
	return schema.Payload{
		"title":           "Wire harness",
		"description":     "Route the main harness",
		"assignee_id":     assigneeID,
		"reporter_id":     reporterID,
		"project_id":      projectID,
		"start_date":      "2024-02-01",
		"due_date":        "2024-02-10",
		"estimated_hours": 16,
	}
}

func (f fixture) createProgram(t *testing.T) Program {
	t.Helper()
	e, _, err := f.svc.CreateEntity(context.Background(), f.manager, EntityProgram, programPayload(f.manager.ID))
	if err != nil {
		t.Fatalf("create program: %v", err)
	}
	return e.(Program)
}

func (f fixture) createProject(t *testing.T, programID string) Project {
	t.Helper()
	e, _, err := f.svc.CreateEntity(context.Background(), f.manager, EntityProject, projectPayload(f.manager.ID, programID))
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return e.(Project)
}

func (f fixture) createTask(t *testing.T, projectID string) Task {
	t.Helper()
	e, _, err := f.svc.CreateEntity(context.Background(), f.member, EntityTask, taskPayload(projectID, f.member.ID, f.manager.ID))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return e.(Task)
}

func (f fixture) count(t *testing.T, kind EntityType) int {
	t.Helper()
	var n int
	if err := f.store.View(context.Background(), func(v TransactionView) error {
		n = len(domain.List(v, kind))
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	return n
}

func requireKind(t *testing.T, err error, want domain.ErrorKind) {
	t.Helper()
	if got := domain.KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}

func violationCodes(err error) map[string]string {
	out := map[string]string{}
	for _, v := range domain.ViolationsOf(err) {
		out[v.Field] = v.Code
	}
	return out
}

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

type captureTracer struct {
	ended map[string]error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	return ctx, spanFunc(func(err error) {
		if c.ended == nil {
			c.ended = map[string]error{}
		}
		c.ended[op] = err
	})
}

type spanFunc func(error)

func (f spanFunc) End(err error) { f(err) }

type failingStore struct{ err error }

func (f failingStore) RunInTransaction(context.Context, func(Transaction) error) (Result, error) {
	return Result{}, f.err
}

func (f failingStore) View(context.Context, func(TransactionView) error) error { return f.err }

var errDiskFull = errors.New("disk full")
