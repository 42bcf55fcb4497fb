package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnauthenticated is returned when an operation runs without a principal.
var ErrUnauthenticated = errors.New("authentication required")

// ValidationError reports field level schema violations, date order failures
// and role incompatibilities. Every violation found is carried, not just the first.
type ValidationError struct {
	Entity     EntityType
	Violations []Violation
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Entity, joinViolations(e.Violations))
}

// ReferenceError reports identifiers that do not resolve to a record of the
// expected kind. Field scoped violations found alongside are carried too.
type ReferenceError struct {
	Entity     EntityType
	Violations []Violation
}

func (e ReferenceError) Error() string {
	return fmt.Sprintf("unresolved %s references: %s", e.Entity, joinViolations(e.Violations))
}

// ForbiddenError reports a role gate denial. It never discloses whether the
// target record exists.
type ForbiddenError struct {
	Operation string
	Entity    EntityType
	Role      Role
}

func (e ForbiddenError) Error() string {
	role := string(e.Role)
	if role == "" {
		role = "unknown"
	}
	return fmt.Sprintf("role %s may not %s %s", role, e.Operation, e.Entity)
}

// NotFoundError is returned when a record is missing. For users it also
// covers accounts that are already deactivated when a deactivation is requested.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError reports a stale revision or a delete blocked by dependents.
type ConflictError struct {
	Entity EntityType
	ID     string
	Reason string
}

func (e ConflictError) Error() string {
	return fmt.Sprintf("%s %s conflict: %s", e.Entity, e.ID, e.Reason)
}

// InfrastructureError wraps storage or collaborator failures. Callers may retry.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e InfrastructureError) Unwrap() error { return e.Err }

// ErrorKind classifies errors for transports.
type ErrorKind string

// Error kinds surfaced to callers.
const (
	KindValidation      ErrorKind = "validation"
	KindReference       ErrorKind = "reference"
	KindForbidden       ErrorKind = "forbidden"
	KindNotFound        ErrorKind = "not_found"
	KindConflict        ErrorKind = "conflict"
	KindUnauthenticated ErrorKind = "unauthenticated"
	KindInfrastructure  ErrorKind = "infrastructure"
	KindUnknown         ErrorKind = "unknown"
)

// KindOf maps an error onto its taxonomy kind. Nil maps to the empty kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var (
		validation ValidationError
		reference  ReferenceError
		forbidden  ForbiddenError
		notFound   NotFoundError
		conflict   ConflictError
		infra      InfrastructureError
	)
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.As(err, &validation):
		return KindValidation
	case errors.As(err, &reference):
		return KindReference
	case errors.As(err, &forbidden):
		return KindForbidden
	case errors.As(err, &notFound):
		return KindNotFound
	case errors.As(err, &conflict):
		return KindConflict
	case errors.As(err, &infra):
		return KindInfrastructure
	}
	return KindUnknown
}

// ViolationsOf extracts the violation list from validation and reference errors.
func ViolationsOf(err error) []Violation {
	var (
		validation ValidationError
		reference  ReferenceError
	)
	switch {
	case errors.As(err, &validation):
		return validation.Violations
	case errors.As(err, &reference):
		return reference.Violations
	}
	return nil
}

func joinViolations(vs []Violation) string {
	parts := make([]string, 0, len(vs))
	for _, v := range vs {
		if v.Field != "" {
			parts = append(parts, v.Field+": "+v.Message)
			continue
		}
		parts = append(parts, v.Message)
	}
	return strings.Join(parts, "; ")
}
