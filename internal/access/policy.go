// Package access evaluates the role gate applied before every operation.
package access

import (
	"programhub/pkg/domain"
)

// Operation names a gated action.
type Operation string

// Gated operations.
const (
	OpCreate  Operation = "create"
	OpRead    Operation = "read"
	OpUpdate  Operation = "update"
	OpDelete  Operation = "delete"
	OpComment Operation = "comment"
)

type roleSet map[domain.Role]struct{}

func setOf(roles ...domain.Role) roleSet {
	s := make(roleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

var (
	anyRole      = setOf(domain.RoleAdmin, domain.RoleManager, domain.RoleMember)
	managers     = setOf(domain.RoleAdmin, domain.RoleManager)
	adminsOnly   = setOf(domain.RoleAdmin)
	nobody       = setOf()
	selfOrAdmin  = adminsOnly // plus the user themself
	defaultTable = map[domain.EntityType]map[Operation]roleSet{
		domain.EntityProgram:  {OpCreate: managers, OpUpdate: managers, OpDelete: adminsOnly},
		domain.EntityProject:  {OpCreate: managers, OpUpdate: managers, OpDelete: adminsOnly},
		domain.EntityTask:     {OpCreate: anyRole, OpUpdate: anyRole, OpDelete: managers, OpComment: anyRole},
		domain.EntityRisk:     {OpCreate: anyRole, OpUpdate: anyRole, OpDelete: managers},
		domain.EntityDocument: {OpCreate: anyRole, OpUpdate: anyRole, OpDelete: managers},
		domain.EntityUser:     {OpCreate: nobody, OpUpdate: selfOrAdmin, OpDelete: adminsOnly},
	}
)

// Policy is the role table consulted by Authorize.
type Policy struct {
	table map[domain.EntityType]map[Operation]roleSet
}

// NewPolicy returns the standard programhub policy.
func NewPolicy() *Policy {
	return &Policy{table: defaultTable}
}

// Authorize returns nil when principal may perform op on kind. targetID is
// only consulted for user updates, where users may always edit themselves.
// Reads require authentication only.
func (p *Policy) Authorize(principal domain.Principal, op Operation, kind domain.EntityType, targetID string) error {
	if !principal.Authenticated() {
		return domain.ErrUnauthenticated
	}
	if op == OpRead {
		return nil
	}
	if kind == domain.EntityUser && op == OpUpdate && targetID != "" && targetID == principal.ID {
		return nil
	}
	ops, ok := p.table[kind]
	if !ok {
		return denied(principal, op, kind)
	}
	allowed, ok := ops[op]
	if !ok {
		return denied(principal, op, kind)
	}
	if _, ok := allowed[principal.Role]; !ok {
		return denied(principal, op, kind)
	}
	return nil
}

// AuthorizeUserFields enforces the field level user policy: only admins may
// change a role or the active flag, including their own.
func (p *Policy) AuthorizeUserFields(principal domain.Principal, before, after domain.User) error {
	if principal.Role == domain.RoleAdmin {
		return nil
	}
	if before.Role != after.Role || before.Active != after.Active {
		return domain.ForbiddenError{Operation: "change role or status of", Entity: domain.EntityUser, Role: principal.Role}
	}
	return nil
}

func denied(principal domain.Principal, op Operation, kind domain.EntityType) error {
	return domain.ForbiddenError{Operation: string(op), Entity: kind, Role: principal.Role}
}
