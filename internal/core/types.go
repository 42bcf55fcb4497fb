package core

import "programhub/pkg/domain"

type (
	EntityType         = domain.EntityType
	Entity             = domain.Entity
	Principal          = domain.Principal
	User               = domain.User
	Program            = domain.Program
	Project            = domain.Project
	Task               = domain.Task
	Risk               = domain.Risk
	Document           = domain.Document
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RulesEngine        = domain.RulesEngine
	RuleViolationError = domain.RuleViolationError
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EntityUser     = domain.EntityUser
	EntityProgram  = domain.EntityProgram
	EntityProject  = domain.EntityProject
	EntityTask     = domain.EntityTask
	EntityRisk     = domain.EntityRisk
	EntityDocument = domain.EntityDocument
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
