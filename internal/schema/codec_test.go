package schema

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"programhub/pkg/domain"
)

func violationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T: %v", err, err)
	}
	out := make(map[string]string, len(verr.Violations))
	for _, v := range verr.Violations {
		out[v.Field] = v.Code
	}
	return out
}

func validTaskPayload() Payload {
	return Payload{
		"title":           "  Wire the gateway  ",
		"description":     "Hook the gateway to storage",
		"assignee_id":     "user-1",
		"reporter_id":     "user-2",
		"project_id":      "project-1",
		"start_date":      "2025-03-01",
		"due_date":        "2025-03-10T12:00:00Z",
		"estimated_hours": json.Number("12.5"),
		"tags":            "backend, storage, ,",
	}
}

func TestDecodeTaskAppliesDefaultsAndTrims(t *testing.T) {
	entity, err := Decode(domain.EntityTask, validTaskPayload())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	task, ok := entity.(domain.Task)
	if !ok {
		t.Fatalf("expected domain.Task, got %T", entity)
	}
	if task.Title != "Wire the gateway" {
		t.Fatalf("expected trimmed title, got %q", task.Title)
	}
	if task.Status != domain.TaskTodo || task.Priority != domain.PriorityMedium {
		t.Fatalf("expected defaults, got status=%s priority=%s", task.Status, task.Priority)
	}
	if task.EstimatedHours != 12.5 || task.ActualHours != 0 {
		t.Fatalf("unexpected hours %+v", task)
	}
	if len(task.Tags) != 2 || task.Tags[0] != "backend" || task.Tags[1] != "storage" {
		t.Fatalf("unexpected tags %v", task.Tags)
	}
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !task.StartDate.Equal(want) {
		t.Fatalf("expected start %v, got %v", want, task.StartDate)
	}
}

func TestDecodeReportsEveryViolation(t *testing.T) {
	payload := Payload{
		"name":        strings.Repeat("x", 201),
		"description": "",
		"status":      "paused",
		"start_date":  "yesterday",
		"end_date":    "2025-01-01",
		"budget":      -1,
		"progress":    140,
		"manager_id":  42,
		"colour":      "blue",
	}
	_, err := Decode(domain.EntityProject, payload)
	fields := violationFields(t, err)
	expected := map[string]string{
		"name":        domain.CodeInvalid,
		"description": domain.CodeRequired,
		"status":      domain.CodeInvalid,
		"start_date":  domain.CodeInvalid,
		"budget":      domain.CodeInvalid,
		"progress":    domain.CodeInvalid,
		"manager_id":  domain.CodeInvalid,
		"colour":      domain.CodeUnknownPath,
	}
	for field, code := range expected {
		if fields[field] != code {
			t.Fatalf("expected %s violation on %s, got %q (all: %v)", code, field, fields[field], fields)
		}
	}
}

func TestDecodeRejectsSystemAndReadOnlyFields(t *testing.T) {
	payload := validTaskPayload()
	payload["id"] = "forged"
	payload["created_by"] = "someone"
	payload["comments"] = []any{}
	fields := violationFields(t, func() error { _, err := Decode(domain.EntityTask, payload); return err }())
	for _, f := range []string{"id", "created_by", "comments"} {
		if fields[f] != domain.CodeUnknownPath {
			t.Fatalf("expected %s rejected, got %v", f, fields)
		}
	}
}

func TestDecodeUserNormalizesEmail(t *testing.T) {
	entity, err := Decode(domain.EntityUser, Payload{"name": "Ada", "email": "Ada@Example.COM"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	user := entity.(domain.User)
	if user.Email != "ada@example.com" || user.Role != domain.RoleMember || !user.Active {
		t.Fatalf("unexpected user %+v", user)
	}
	_, err = Decode(domain.EntityUser, Payload{"name": "Ada", "email": "Ada <ada@example.com>"})
	if violationFields(t, err)["email"] != domain.CodeInvalid {
		t.Fatalf("expected display-name address to be rejected")
	}
}

func TestDecodeRiskOptionalReferences(t *testing.T) {
	entity, err := Decode(domain.EntityRisk, Payload{
		"title":       "Vendor lock-in",
		"description": "Single supplier",
		"category":    "strategic",
		"probability": "medium",
		"impact":      "high",
		"owner_id":    "user-1",
		"mitigation":  "Dual source",
		"program_id":  "program-1",
		"due_date":    "2025-06-01",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	risk := entity.(domain.Risk)
	if risk.ProjectID != nil {
		t.Fatalf("expected nil project, got %v", *risk.ProjectID)
	}
	if risk.ProgramID == nil || *risk.ProgramID != "program-1" {
		t.Fatalf("expected program reference")
	}
	if risk.Status != domain.RiskIdentified {
		t.Fatalf("expected default status, got %s", risk.Status)
	}
}

func TestMergeRevalidatesWholeRecord(t *testing.T) {
	entity, err := Decode(domain.EntityTask, validTaskPayload())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	merged, err := Merge(entity, Payload{"status": "review", "actual_hours": 3})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	task := merged.(domain.Task)
	if task.Status != domain.TaskReview || task.ActualHours != 3 || task.Title != "Wire the gateway" {
		t.Fatalf("unexpected merged task %+v", task)
	}

	_, err = Merge(entity, Payload{"title": nil, "estimated_hours": -2})
	fields := violationFields(t, err)
	if fields["title"] != domain.CodeRequired || fields["estimated_hours"] != domain.CodeInvalid {
		t.Fatalf("unexpected violations %v", fields)
	}
}

func TestMergeClearsOptionalReference(t *testing.T) {
	program := "program-1"
	project := domain.Project{
		Name: "Apollo", Description: "Moonshot", Status: domain.ProjectNotStarted, Priority: domain.PriorityHigh,
		StartDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), EndDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Budget: 10, ManagerID: "user-1", ProgramID: &program,
	}
	merged, err := Merge(project, Payload{"program_id": nil})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.(domain.Project).ProgramID != nil {
		t.Fatalf("expected program reference cleared")
	}
}

func TestAttributeExposesSystemFields(t *testing.T) {
	created := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	doc := domain.Document{Base: domain.Base{ID: "doc-1", CreatedAt: created, Revision: 3}, Name: "Plan", CreatedBy: "user-1"}
	if v, _ := Attribute(doc, "id"); v != "doc-1" {
		t.Fatalf("unexpected id %v", v)
	}
	if v, _ := Attribute(doc, "created_by"); v != "user-1" {
		t.Fatalf("unexpected creator %v", v)
	}
	if v, _ := Attribute(doc, "name"); v != "Plan" {
		t.Fatalf("unexpected name %v", v)
	}
	if _, ok := Attribute(doc, "nope"); ok {
		t.Fatalf("expected unknown attribute to be missing")
	}
	if !CreatedAt(doc).Equal(created) || Revision(doc) != 3 {
		t.Fatalf("unexpected base accessors")
	}
}

func TestReferencesListsIDFields(t *testing.T) {
	refs := References(domain.EntityProject)
	names := make([]string, 0, len(refs))
	for _, f := range refs {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "manager_id,team_ids,program_id" {
		t.Fatalf("unexpected references %v", names)
	}
	if f, ok := Lookup(domain.EntityProject, "team_ids"); !ok || f.Ref != domain.EntityUser {
		t.Fatalf("expected team_ids to reference users")
	}
}

func TestDecodeDocumentSizeMustBeWhole(t *testing.T) {
	payload := Payload{
		"name":           "Thermal model",
		"type":           "design",
		"version":        "1.0",
		"uploaded_by_id": "user-1",
		"project_id":     "project-1",
		"url":            "/files/thermal.txt",
		"size":           json.Number("10.7"),
		"mime_type":      "text/plain",
	}
	_, err := Decode(domain.EntityDocument, payload)
	if got := violationFields(t, err); got["size"] != domain.CodeInvalid || len(got) != 1 {
		t.Fatalf("expected a single size violation, got %v", got)
	}

	payload["size"] = json.Number("10")
	entity, err := Decode(domain.EntityDocument, payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc := entity.(domain.Document); doc.Size != 10 {
		t.Fatalf("expected size 10, got %d", doc.Size)
	}
}

func TestDecodeReportsDateOrderAlongsideFieldErrors(t *testing.T) {
	_, err := Decode(domain.EntityProgram, Payload{
		"name":        strings.Repeat("x", 201),
		"description": "Lunar programme",
		"start_date":  "2025-06-01",
		"end_date":    "2025-01-01",
		"budget":      1000,
		"manager_id":  "user-1",
	})
	fields := violationFields(t, err)
	if fields["name"] != domain.CodeInvalid || fields["end_date"] != domain.CodeDateOrder {
		t.Fatalf("expected name and date order violations, got %v", fields)
	}

	_, err = Decode(domain.EntityProgram, Payload{
		"name":        strings.Repeat("x", 201),
		"description": "Lunar programme",
		"start_date":  "2025-01-01",
		"end_date":    "2025-06-01",
		"budget":      1000,
		"manager_id":  "user-1",
	})
	if fields := violationFields(t, err); len(fields) != 1 {
		t.Fatalf("expected only the name violation, got %v", fields)
	}
}

func TestMergeReportsDateOrderAlongsideFieldErrors(t *testing.T) {
	current, err := Decode(domain.EntityTask, validTaskPayload())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	_, err = Merge(current, Payload{"title": "", "due_date": "2025-02-01"})
	fields := violationFields(t, err)
	if fields["title"] != domain.CodeRequired || fields["due_date"] != domain.CodeDateOrder {
		t.Fatalf("expected title and due date violations, got %v", fields)
	}
}
