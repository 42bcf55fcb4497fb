package core

import (
	"programhub/pkg/domain"
)

// NewDefaultRulesEngine builds a rules engine with the built-in integrity rule set.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(NewDateOrderRule())
	engine.Register(NewReferenceIntegrityRule())
	engine.Register(NewManagerRoleRule())
	engine.Register(NewTaskDependencyRule())
	engine.Register(NewUniqueEmailRule())
	return engine
}

// changedEntities yields the post-change state of every created or updated
// record. Deletes carry no After value and are skipped.
func changedEntities(changes []Change) []changed {
	out := make([]changed, 0, len(changes))
	for _, change := range changes {
		if change.Action == ActionDelete {
			continue
		}
		after, ok := change.After.(Entity)
		if !ok {
			continue
		}
		var before Entity
		if b, ok := change.Before.(Entity); ok {
			before = b
		}
		out = append(out, changed{action: change.Action, before: before, after: after})
	}
	return out
}

type changed struct {
	action Action
	before Entity
	after  Entity
}

func blocking(rule, code, field string, entity Entity, message string) Violation {
	return Violation{
		Rule:     rule,
		Severity: domain.SeverityBlock,
		Code:     code,
		Field:    field,
		Message:  message,
		Entity:   entity.EntityType(),
		EntityID: entity.EntityID(),
	}
}
