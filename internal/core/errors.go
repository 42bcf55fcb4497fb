package core

import (
	"errors"
	"fmt"

	"programhub/pkg/domain"
)

// translateError maps store and rule failures onto the caller facing error
// taxonomy. Blocking rule violations become a ReferenceError when any of them
// concerns an unresolved reference and a ValidationError otherwise; both carry
// every violation found. Unclassified failures are infrastructure errors.
func translateError(kind EntityType, op string, err error) error {
	if err == nil {
		return nil
	}
	var rv domain.RuleViolationError
	if errors.As(err, &rv) {
		violations := rv.Result.Blocking()
		for _, v := range violations {
			if v.Code == domain.CodeReference {
				return domain.ReferenceError{Entity: kind, Violations: violations}
			}
		}
		return domain.ValidationError{Entity: kind, Violations: violations}
	}
	switch domain.KindOf(err) {
	case domain.KindUnknown:
		return domain.InfrastructureError{Op: op, Err: err}
	default:
		return err
	}
}

func invalid(kind EntityType, field, code, format string, args ...any) error {
	return domain.ValidationError{Entity: kind, Violations: []Violation{{
		Rule:     "request",
		Severity: domain.SeverityBlock,
		Code:     code,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
		Entity:   kind,
	}}}
}

func unknownKind(kind EntityType) error {
	return invalid(kind, "kind", domain.CodeInvalid, "unknown entity kind %q", kind)
}

func knownKind(kind EntityType) bool {
	for _, k := range domain.EntityTypes() {
		if k == kind {
			return true
		}
	}
	return false
}
