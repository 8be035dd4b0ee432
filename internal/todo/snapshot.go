package todo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/google/uuid"
)

// SnapshotVersion is the only snapshot schema_version understood.
const SnapshotVersion = 1

// Snapshot is the file form of a store.
type Snapshot struct {
	SchemaVersion int            `json:"schema_version"`
	SessionID     string         `json:"session_id,omitempty"`
	NextID        int            `json:"next_id"`
	Tasks         []SnapshotTask `json:"tasks"`
}

// SnapshotTask is one stored task inside a Snapshot.
type SnapshotTask struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
	Done        bool   `json:"done"`
	DependsOn   []int  `json:"dependsOn"`
}

// EmptySnapshot returns a snapshot with no tasks.
func EmptySnapshot() Snapshot {
	return Snapshot{
		SchemaVersion: SnapshotVersion,
		NextID:        DefaultInitialID,
		Tasks:         []SnapshotTask{},
	}
}

// SeedSnapshot returns the demo data used by "todos init --seed".
func SeedSnapshot() Snapshot {
	return Snapshot{
		SchemaVersion: SnapshotVersion,
		SessionID:     uuid.NewString(),
		NextID:        4,
		Tasks: []SnapshotTask{
			{ID: 1, Description: "do the laundry", Done: true, DependsOn: []int{}},
			{ID: 2, Description: "make a todo app", DependsOn: []int{}},
			{ID: 3, Description: "show todo app to santi", DependsOn: []int{2}},
		},
	}
}

// LoadSnapshot reads a snapshot from path. A missing file yields an empty
// snapshot.
func LoadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return EmptySnapshot(), nil
		}
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}

	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("parse snapshot: %w", err)
	}
	if s.Tasks == nil {
		s.Tasks = []SnapshotTask{}
	}
	return s, nil
}

// Save writes the snapshot to path with 2-space indentation.
func (s Snapshot) Save(path string) error {
	if s.Tasks == nil {
		s.Tasks = []SnapshotTask{}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Validate checks the snapshot structure. It returns nil or a
// *ValidationError listing every problem found.
func (s Snapshot) Validate() error {
	var violations []Violation

	if s.SchemaVersion != SnapshotVersion {
		violations = append(violations, Violation{
			Field:   "schema_version",
			Rule:    RuleType,
			Message: fmt.Sprintf("unsupported version %d", s.SchemaVersion),
		})
	}
	if s.NextID < 0 {
		violations = append(violations, Violation{
			Field:   "next_id",
			Rule:    RuleMinimum,
			Message: fmt.Sprintf("must be non-negative, got %d", s.NextID),
		})
	}

	seen := make(map[int]struct{}, len(s.Tasks))
	for i, t := range s.Tasks {
		prefix := fmt.Sprintf("tasks[%d]", i)
		if t.ID < DefaultInitialID {
			violations = append(violations, Violation{
				Field:   prefix + ".id",
				Rule:    RuleMinimum,
				Message: fmt.Sprintf("must be at least %d, got %d", DefaultInitialID, t.ID),
			})
		}
		if _, dup := seen[t.ID]; dup {
			violations = append(violations, Violation{
				Field:   prefix + ".id",
				Rule:    RuleType,
				Message: fmt.Sprintf("duplicate id %d", t.ID),
			})
		}
		seen[t.ID] = struct{}{}

		if s.NextID != 0 && t.ID >= s.NextID {
			violations = append(violations, Violation{
				Field:   "next_id",
				Rule:    RuleMinimum,
				Message: fmt.Sprintf("must be greater than id %d", t.ID),
			})
		}

		if err := ValidateInput(Input{Description: t.Description, DependsOn: t.DependsOn, Done: t.Done}); err != nil {
			var ve *ValidationError
			if errors.As(err, &ve) {
				for _, v := range ve.Violations {
					v.Field = prefix + "." + v.Field
					violations = append(violations, v)
				}
			}
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

// Snapshot captures the current store contents in insertion order.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		SchemaVersion: SnapshotVersion,
		SessionID:     s.sessionID,
		NextID:        s.alloc.Peek(),
		Tasks:         make([]SnapshotTask, 0, len(s.order)),
	}
	for _, id := range s.order {
		t := s.tasks[id]
		snap.Tasks = append(snap.Tasks, SnapshotTask{
			ID:          t.ID,
			Description: t.Description,
			Done:        t.Done,
			DependsOn:   sortedIDs(t.DependsOn),
		})
	}
	return snap
}

// Restore replaces the store contents with snap. Prerequisites naming ids
// that are not in the snapshot, or the task itself, are dropped. The store
// is left untouched if snap does not validate.
func (s *Store) Restore(snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}

	ids := make(map[int]struct{}, len(snap.Tasks))
	maxID := 0
	for _, t := range snap.Tasks {
		ids[t.ID] = struct{}{}
		if t.ID > maxID {
			maxID = t.ID
		}
	}

	tasks := make(map[int]*Task, len(snap.Tasks))
	order := make([]int, 0, len(snap.Tasks))
	dropped := 0
	for _, t := range snap.Tasks {
		deps := make(map[int]struct{}, len(t.DependsOn))
		for _, dep := range t.DependsOn {
			if _, ok := ids[dep]; !ok || dep == t.ID {
				dropped++
				continue
			}
			deps[dep] = struct{}{}
		}
		tasks[t.ID] = &Task{
			ID:          t.ID,
			Description: t.Description,
			DependsOn:   deps,
			Done:        t.Done,
		}
		order = append(order, t.ID)
	}

	next := snap.NextID
	if next <= maxID {
		next = maxID + 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = tasks
	s.order = order
	s.alloc.Restore(next)
	if snap.SessionID != "" {
		s.sessionID = snap.SessionID
	} else {
		s.sessionID = uuid.NewString()
	}

	s.log.Debug("store: restored", "tasks", len(order), "next_id", s.alloc.Peek(), "dropped", dropped)
	return nil
}
