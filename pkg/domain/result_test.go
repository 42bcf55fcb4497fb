package domain

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestResultMergeAndBlocking(t *testing.T) {
	var result Result
	result.Merge(Result{Violations: []Violation{{Rule: "warn", Severity: SeverityWarn}}})
	if result.HasBlocking() {
		t.Fatalf("expected no blocking violations")
	}
	result.Merge(Result{Violations: []Violation{{Rule: "block", Severity: SeverityBlock, Message: "end date must be after start date"}}})
	if !result.HasBlocking() {
		t.Fatalf("expected blocking violation")
	}
	if got := len(result.Blocking()); got != 1 {
		t.Fatalf("expected 1 blocking violation, got %d", got)
	}
	err := RuleViolationError{Result: result}
	if !strings.Contains(err.Error(), "end date must be after start date") {
		t.Fatalf("expected message in error string, got %q", err.Error())
	}
}

func TestResultMergeEmptyInput(t *testing.T) {
	original := Result{Violations: []Violation{{Rule: "existing", Severity: SeverityWarn}}}
	original.Merge(Result{})
	if len(original.Violations) != 1 || original.Violations[0].Rule != "existing" {
		t.Fatalf("expected original violations to remain, got %+v", original.Violations)
	}
}

func TestRulesEngineEvaluate(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(staticRule{"warn"})
	res, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Violations) != 1 {
		t.Fatalf("expected violation")
	}
	if names := engine.Rules(); len(names) != 1 || names[0] != "warn" {
		t.Fatalf("unexpected rule names %v", names)
	}
}

type staticRule struct{ name string }

func (r staticRule) Name() string { return r.name }

func (r staticRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{Violations: []Violation{{Rule: r.name, Severity: SeverityWarn}}}, nil
}

type emptyView struct{}

func (emptyView) ListUsers() []User                      { return nil }
func (emptyView) ListPrograms() []Program                { return nil }
func (emptyView) ListProjects() []Project                { return nil }
func (emptyView) ListTasks() []Task                      { return nil }
func (emptyView) ListRisks() []Risk                      { return nil }
func (emptyView) ListDocuments() []Document              { return nil }
func (emptyView) FindUser(string) (User, bool)           { return User{}, false }
func (emptyView) FindProgram(string) (Program, bool)     { return Program{}, false }
func (emptyView) FindProject(string) (Project, bool)     { return Project{}, false }
func (emptyView) FindTask(string) (Task, bool)           { return Task{}, false }
func (emptyView) FindRisk(string) (Risk, bool)           { return Risk{}, false }
func (emptyView) FindDocument(string) (Document, bool)   { return Document{}, false }

func TestRulesEngineEvaluateError(t *testing.T) {
	engine := NewRulesEngine()
	engine.Register(errorRule{})
	_, err := engine.Evaluate(context.Background(), emptyView{}, nil)
	if err == nil {
		t.Fatalf("expected evaluation error")
	}
	if !strings.Contains(err.Error(), "rule error") {
		t.Fatalf("expected rule name in error, got %v", err)
	}
}

type errorRule struct{}

func (errorRule) Name() string { return "error" }

func (errorRule) Evaluate(context.Context, RuleView, []Change) (Result, error) {
	return Result{}, fmt.Errorf("boom")
}

func TestFindAndListDispatchOnKind(t *testing.T) {
	if _, ok := Find(emptyView{}, EntityTask, "missing"); ok {
		t.Fatalf("expected missing task")
	}
	if got := List(emptyView{}, EntityRisk); len(got) != 0 {
		t.Fatalf("expected no risks, got %d", len(got))
	}
}
