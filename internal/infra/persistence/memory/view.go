package memory

// transactionView exposes a read-only snapshot of the transactional state to rules.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

func find[T any](in map[string]T, id string, clone func(T) T) (T, bool) {
	v, ok := in[id]
	if !ok {
		var zero T
		return zero, false
	}
	return clone(v), true
}

// ListUsers returns all users, active or not, ordered by ID.
func (v transactionView) ListUsers() []User { return sortedValues(v.state.users, cloneUser) }

// ListPrograms returns all programs ordered by ID.
func (v transactionView) ListPrograms() []Program { return sortedValues(v.state.programs, cloneProgram) }

// ListProjects returns all projects ordered by ID.
func (v transactionView) ListProjects() []Project { return sortedValues(v.state.projects, cloneProject) }

// ListTasks returns all tasks ordered by ID.
func (v transactionView) ListTasks() []Task { return sortedValues(v.state.tasks, cloneTask) }

// ListRisks returns all risks ordered by ID.
func (v transactionView) ListRisks() []Risk { return sortedValues(v.state.risks, cloneRisk) }

// ListDocuments returns all documents ordered by ID.
func (v transactionView) ListDocuments() []Document {
	return sortedValues(v.state.documents, cloneDocument)
}

// FindUser resolves a user by ID, including deactivated users.
func (v transactionView) FindUser(id string) (User, bool) { return find(v.state.users, id, cloneUser) }

// FindProgram resolves a program by ID.
func (v transactionView) FindProgram(id string) (Program, bool) {
	return find(v.state.programs, id, cloneProgram)
}

// FindProject resolves a project by ID.
func (v transactionView) FindProject(id string) (Project, bool) {
	return find(v.state.projects, id, cloneProject)
}

// FindTask resolves a task by ID.
func (v transactionView) FindTask(id string) (Task, bool) { return find(v.state.tasks, id, cloneTask) }

// FindRisk resolves a risk by ID.
func (v transactionView) FindRisk(id string) (Risk, bool) { return find(v.state.risks, id, cloneRisk) }

// FindDocument resolves a document by ID.
func (v transactionView) FindDocument(id string) (Document, bool) {
	return find(v.state.documents, id, cloneDocument)
}
