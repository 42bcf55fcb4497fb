package memory

import (
	"encoding/json"
	"fmt"
)

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Users     map[string]User     `json:"users"`
	Programs  map[string]Program  `json:"programs"`
	Projects  map[string]Project  `json:"projects"`
	Tasks     map[string]Task     `json:"tasks"`
	Risks     map[string]Risk     `json:"risks"`
	Documents map[string]Document `json:"documents"`
}

// Buckets lists the persisted bucket names in a stable order. Durable stores
// write one payload per bucket.
var Buckets = []string{"users", "programs", "projects", "tasks", "risks", "documents"}

// MarshalBucket encodes one bucket of the snapshot as JSON.
func (s Snapshot) MarshalBucket(bucket string) ([]byte, error) {
	switch bucket {
	case "users":
		return json.Marshal(s.Users)
	case "programs":
		return json.Marshal(s.Programs)
	case "projects":
		return json.Marshal(s.Projects)
	case "tasks":
		return json.Marshal(s.Tasks)
	case "risks":
		return json.Marshal(s.Risks)
	case "documents":
		return json.Marshal(s.Documents)
	}
	return nil, fmt.Errorf("unknown bucket %q", bucket)
}

// UnmarshalBucket decodes a JSON payload into one bucket. Unknown buckets are
// ignored so older databases with retired buckets still load.
func (s *Snapshot) UnmarshalBucket(bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	var target any
	switch bucket {
	case "users":
		target = &s.Users
	case "programs":
		target = &s.Programs
	case "projects":
		target = &s.Projects
	case "tasks":
		target = &s.Tasks
	case "risks":
		target = &s.Risks
	case "documents":
		target = &s.Documents
	default:
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	return Snapshot{
		Users:     cloneMap(state.users, cloneUser),
		Programs:  cloneMap(state.programs, cloneProgram),
		Projects:  cloneMap(state.projects, cloneProject),
		Tasks:     cloneMap(state.tasks, cloneTask),
		Risks:     cloneMap(state.risks, cloneRisk),
		Documents: cloneMap(state.documents, cloneDocument),
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	return memoryState{
		users:     cloneMap(s.Users, cloneUser),
		programs:  cloneMap(s.Programs, cloneProgram),
		projects:  cloneMap(s.Projects, cloneProject),
		tasks:     cloneMap(s.Tasks, cloneTask),
		risks:     cloneMap(s.Risks, cloneRisk),
		documents: cloneMap(s.Documents, cloneDocument),
	}
}

// migrateSnapshot normalizes snapshots written by older builds: map keys win
// over embedded IDs, duplicate reference lists collapse, records written
// before revisions existed start at revision 1, and empty optional
// references become nil.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	migrated := snapshotFromMemoryState(memoryStateFromSnapshot(snapshot))
	for id, u := range migrated.Users {
		u.ID = id
		u.Revision = max(u.Revision, 1)
		migrated.Users[id] = u
	}
	for id, p := range migrated.Programs {
		p.ID = id
		p.Revision = max(p.Revision, 1)
		migrated.Programs[id] = p
	}
	for id, p := range migrated.Projects {
		p.ID = id
		p.Revision = max(p.Revision, 1)
		p.TeamIDs = dedupeStrings(p.TeamIDs)
		p.ProgramID = normalizeOptional(p.ProgramID)
		migrated.Projects[id] = p
	}
	for id, t := range migrated.Tasks {
		t.ID = id
		t.Revision = max(t.Revision, 1)
		t.DependencyIDs = dedupeStrings(t.DependencyIDs)
		migrated.Tasks[id] = t
	}
	for id, r := range migrated.Risks {
		r.ID = id
		r.Revision = max(r.Revision, 1)
		r.ProjectID = normalizeOptional(r.ProjectID)
		r.ProgramID = normalizeOptional(r.ProgramID)
		migrated.Risks[id] = r
	}
	for id, d := range migrated.Documents {
		d.ID = id
		d.Revision = max(d.Revision, 1)
		migrated.Documents[id] = d
	}
	return migrated
}

func normalizeOptional(ref *string) *string {
	if ref == nil || *ref == "" {
		return nil
	}
	return ref
}
