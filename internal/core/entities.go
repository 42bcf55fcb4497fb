package core

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"programhub/internal/access"
	"programhub/internal/schema"
	"programhub/pkg/domain"
)

// CreateEntity validates payload against the schema of kind, stamps the
// principal as creator and persists the record. Users are registered through
// RegisterUser instead.
func (s *Service) CreateEntity(ctx context.Context, principal Principal, kind EntityType, payload schema.Payload) (Entity, Result, error) {
	var (
		created Entity
		res     Result
	)
	op := operation{name: opName("create", kind), kind: kind, action: ActionCreate, actor: principal.ID}
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		if !knownKind(kind) {
			return "", unknownKind(kind)
		}
		if err := s.policy.Authorize(principal, access.OpCreate, kind, ""); err != nil {
			return "", err
		}
		var err error
		created, res, err = s.create(ctx, principal, kind, payload)
		if err != nil {
			return "", err
		}
		return created.EntityID(), nil
	})
	return created, res, err
}

func (s *Service) create(ctx context.Context, principal Principal, kind EntityType, payload schema.Payload) (Entity, Result, error) {
	entity, err := schema.Decode(kind, payload)
	if err != nil {
		return nil, Result{}, err
	}
	entity = withCreator(entity, principal.ID)
	var created Entity
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = createIn(tx, entity)
		return err
	})
	if err != nil {
		return nil, res, translateError(kind, "create "+string(kind), err)
	}
	return created, res, nil
}

// UpdateEntity merges patch into the stored record and re-validates the whole
// result. A "revision" key in patch is compared against the stored revision
// and a mismatch fails with a ConflictError.
func (s *Service) UpdateEntity(ctx context.Context, principal Principal, kind EntityType, id string, patch schema.Payload) (Entity, Result, error) {
	var (
		updated Entity
		res     Result
	)
	op := operation{name: opName("update", kind), kind: kind, action: ActionUpdate, actor: principal.ID}
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		if !knownKind(kind) {
			return id, unknownKind(kind)
		}
		if err := s.policy.Authorize(principal, access.OpUpdate, kind, id); err != nil {
			return id, err
		}
		fields, expected, err := splitRevision(kind, patch)
		if err != nil {
			return id, err
		}
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			current, ok := domain.Find(tx.Snapshot(), kind, id)
			if !ok {
				return domain.NotFoundError{Entity: kind, ID: id}
			}
			if expected > 0 && schema.Revision(current) != expected {
				return domain.ConflictError{Entity: kind, ID: id, Reason: "stale revision " + strconv.FormatInt(expected, 10) +
					", current is " + strconv.FormatInt(schema.Revision(current), 10)}
			}
			merged, err := schema.Merge(current, fields)
			if err != nil {
				return err
			}
			if kind == EntityUser {
				if err := s.policy.AuthorizeUserFields(principal, current.(User), merged.(User)); err != nil {
					return err
				}
			}
			updated, err = updateIn(tx, id, merged)
			return err
		})
		if err != nil {
			return id, translateError(kind, "update "+string(kind), err)
		}
		return id, nil
	})
	return updated, res, err
}

// DeleteEntity hard deletes programs, projects, tasks, risks and documents,
// and deactivates users. Deactivating an inactive user is reported as not found.
func (s *Service) DeleteEntity(ctx context.Context, principal Principal, kind EntityType, id string) (Result, error) {
	var res Result
	op := operation{name: opName("delete", kind), kind: kind, action: ActionDelete, actor: principal.ID}
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		if !knownKind(kind) {
			return id, unknownKind(kind)
		}
		if err := s.policy.Authorize(principal, access.OpDelete, kind, id); err != nil {
			return id, err
		}
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			if kind == EntityUser {
				return deactivateUser(tx, id)
			}
			return deleteIn(tx, kind, id)
		})
		return id, translateError(kind, "delete "+string(kind), err)
	})
	return res, err
}

// RegisterUser creates an account. It is the registration hook for the
// external identity flow and the CLI, so no principal is involved.
func (s *Service) RegisterUser(ctx context.Context, payload schema.Payload) (User, Result, error) {
	var (
		created User
		res     Result
	)
	op := operation{name: "register_user", kind: EntityUser, action: ActionCreate}
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		entity, err := schema.Decode(EntityUser, payload)
		if err != nil {
			return "", err
		}
		user := entity.(User)
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			created, err = tx.CreateUser(user)
			return err
		})
		if err != nil {
			return "", translateError(EntityUser, "register user", err)
		}
		return created.ID, nil
	})
	return created, res, err
}

const commentMax = 1000

// AddTaskComment appends a comment authored by principal. The append runs as
// a single transaction, so concurrent comments are never lost.
func (s *Service) AddTaskComment(ctx context.Context, principal Principal, taskID, text string) (Task, Result, error) {
	var (
		updated Task
		res     Result
	)
	op := operation{name: "comment_task", kind: EntityTask, action: ActionUpdate, actor: principal.ID}
	err := s.run(ctx, op, func(ctx context.Context) (string, error) {
		if err := s.policy.Authorize(principal, access.OpComment, EntityTask, taskID); err != nil {
			return taskID, err
		}
		text = strings.TrimSpace(text)
		switch {
		case text == "":
			return taskID, invalid(EntityTask, "text", domain.CodeRequired, "is required")
		case len([]rune(text)) > commentMax:
			return taskID, invalid(EntityTask, "text", domain.CodeInvalid, "must be at most %d characters", commentMax)
		}
		now := s.now()
		var err error
		res, err = s.store.RunInTransaction(ctx, func(tx Transaction) error {
			var err error
			updated, err = tx.UpdateTask(taskID, func(t *Task) error {
				t.Comments = append(t.Comments, domain.Comment{UserID: principal.ID, Text: text, CreatedAt: now})
				return nil
			})
			return err
		})
		return taskID, translateError(EntityTask, "comment task", err)
	})
	return updated, res, err
}

func deactivateUser(tx Transaction, id string) error {
	user, ok := tx.Snapshot().FindUser(id)
	if !ok || !user.Active {
		return domain.NotFoundError{Entity: EntityUser, ID: id}
	}
	_, err := tx.UpdateUser(id, func(u *User) error {
		u.Active = false
		return nil
	})
	return err
}

// splitRevision removes the optimistic concurrency token from patch.
func splitRevision(kind EntityType, patch schema.Payload) (schema.Payload, int64, error) {
	raw, ok := patch["revision"]
	if !ok {
		return patch, 0, nil
	}
	fields := make(schema.Payload, len(patch))
	for k, v := range patch {
		if k != "revision" {
			fields[k] = v
		}
	}
	rev, valid := parseRevision(raw)
	if !valid {
		return nil, 0, invalid(kind, "revision", domain.CodeInvalid, "must be a positive integer")
	}
	return fields, rev, nil
}

func parseRevision(raw any) (int64, bool) {
	var f float64
	switch v := raw.(type) {
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		f = float64(n)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		f = float64(n)
	default:
		return 0, false
	}
	if f < 1 || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func withCreator(entity Entity, principalID string) Entity {
	switch e := entity.(type) {
	case Program:
		e.CreatedBy = principalID
		return e
	case Project:
		e.CreatedBy = principalID
		return e
	case Task:
		e.CreatedBy = principalID
		return e
	case Risk:
		e.CreatedBy = principalID
		return e
	case Document:
		e.CreatedBy = principalID
		return e
	}
	return entity
}

func createIn(tx Transaction, entity Entity) (Entity, error) {
	switch e := entity.(type) {
	case User:
		return result(tx.CreateUser(e))
	case Program:
		return result(tx.CreateProgram(e))
	case Project:
		return result(tx.CreateProject(e))
	case Task:
		return result(tx.CreateTask(e))
	case Risk:
		return result(tx.CreateRisk(e))
	case Document:
		return result(tx.CreateDocument(e))
	}
	return nil, unknownKind(entity.EntityType())
}

// updateIn replaces the editable attributes of the stored record with merged.
// Identity, timestamps, creator and comments are owned by the store.
func updateIn(tx Transaction, id string, merged Entity) (Entity, error) {
	switch e := merged.(type) {
	case User:
		return result(tx.UpdateUser(id, func(u *User) error {
			e.Base = u.Base
			*u = e
			return nil
		}))
	case Program:
		return result(tx.UpdateProgram(id, func(p *Program) error {
			e.Base, e.CreatedBy = p.Base, p.CreatedBy
			*p = e
			return nil
		}))
	case Project:
		return result(tx.UpdateProject(id, func(p *Project) error {
			e.Base, e.CreatedBy = p.Base, p.CreatedBy
			*p = e
			return nil
		}))
	case Task:
		return result(tx.UpdateTask(id, func(t *Task) error {
			e.Base, e.CreatedBy, e.Comments = t.Base, t.CreatedBy, t.Comments
			*t = e
			return nil
		}))
	case Risk:
		return result(tx.UpdateRisk(id, func(r *Risk) error {
			e.Base, e.CreatedBy = r.Base, r.CreatedBy
			*r = e
			return nil
		}))
	case Document:
		return result(tx.UpdateDocument(id, func(d *Document) error {
			e.Base, e.CreatedBy = d.Base, d.CreatedBy
			*d = e
			return nil
		}))
	}
	return nil, unknownKind(merged.EntityType())
}

func deleteIn(tx Transaction, kind EntityType, id string) error {
	switch kind {
	case EntityProgram:
		return tx.DeleteProgram(id)
	case EntityProject:
		return tx.DeleteProject(id)
	case EntityTask:
		return tx.DeleteTask(id)
	case EntityRisk:
		return tx.DeleteRisk(id)
	case EntityDocument:
		return tx.DeleteDocument(id)
	}
	return unknownKind(kind)
}

func result[T Entity](v T, err error) (Entity, error) {
	if err != nil {
		return nil, err
	}
	return v, nil
}
