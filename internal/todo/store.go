package todo

import (
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nibzard/todos-go/internal/logging"
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for mutation tracing.
func WithLogger(logger *log.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.log = logger
		}
	}
}

// WithAllocator injects the id allocator.
func WithAllocator(alloc *IDAllocator) StoreOption {
	return func(s *Store) {
		if alloc != nil {
			s.alloc = alloc
		}
	}
}

// WithResetWhenEmpty makes Delete reset the id counter once the last task
// is gone. Off by default, so ids are never reused within a session.
func WithResetWhenEmpty(enabled bool) StoreOption {
	return func(s *Store) {
		s.resetWhenEmpty = enabled
	}
}

// Store is the authoritative task collection.
// Mutations are serialized behind one lock; reads return copies.
type Store struct {
	mu             sync.RWMutex
	tasks          map[int]*Task
	order          []int
	alloc          *IDAllocator
	resetWhenEmpty bool
	sessionID      string
	log            *log.Logger
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		tasks:     make(map[int]*Task),
		order:     make([]int, 0),
		alloc:     NewIDAllocator(DefaultInitialID),
		sessionID: uuid.NewString(),
		log:       logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create validates in, drops prerequisites that do not exist and stores a
// new task. It returns the new id or a *ValidationError.
func (s *Store) Create(in Input) (int, error) {
	return s.create(in, false)
}

// CreateGated is Create, but refuses with ErrBlocked to store a done task
// whose prerequisites are not all done.
func (s *Store) CreateGated(in Input) (int, error) {
	return s.create(in, true)
}

func (s *Store) create(in Input, gated bool) (int, error) {
	if err := ValidateInput(in); err != nil {
		s.log.Debug("store: create rejected", "error", err)
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	deps, dropped := s.filterDeps(in.DependsOn, 0)
	if gated && in.Done && s.hasOpen(deps) {
		s.log.Debug("store: create blocked", "depends_on", sortedIDs(deps))
		return 0, ErrBlocked
	}
	id := s.alloc.Next()
	s.tasks[id] = &Task{
		ID:          id,
		Description: in.Description,
		DependsOn:   deps,
		Done:        in.Done,
	}
	s.order = append(s.order, id)

	s.log.Debug("store: task created", "id", id, "depends_on", sortedIDs(deps), "dropped", dropped)
	return id, nil
}

// Get returns the view of one task. The bool is false if id is absent.
func (s *Store) Get(id int) (TaskView, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return TaskView{}, false
	}
	return s.view(t), true
}

// List returns every task in insertion order.
func (s *Store) List() []TaskView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	views := make([]TaskView, 0, len(s.order))
	for _, id := range s.order {
		views = append(views, s.view(s.tasks[id]))
	}
	return views
}

// Update replaces all fields of an existing task. It returns false if id is
// absent. Invalid input leaves the task untouched.
func (s *Store) Update(id int, in Input) (bool, error) {
	return s.update(id, in, false)
}

// UpdateGated is Update, but refuses with ErrBlocked to mark an undone task
// done while any of its new prerequisites is open.
func (s *Store) UpdateGated(id int, in Input) (bool, error) {
	return s.update(id, in, true)
}

func (s *Store) update(id int, in Input, gated bool) (bool, error) {
	if !s.Exists(id) {
		return false, nil
	}
	if err := ValidateInput(in); err != nil {
		s.log.Debug("store: update rejected", "id", id, "error", err)
		return true, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		// deleted between the existence check and the lock
		return false, nil
	}
	deps, dropped := s.filterDeps(in.DependsOn, id)
	if gated && in.Done && !t.Done && s.hasOpen(deps) {
		s.log.Debug("store: update blocked", "id", id, "depends_on", sortedIDs(deps))
		return true, ErrBlocked
	}
	*t = Task{
		ID:          id,
		Description: in.Description,
		DependsOn:   deps,
		Done:        in.Done,
	}

	s.log.Debug("store: task updated", "id", id, "depends_on", sortedIDs(deps), "dropped", dropped)
	return true, nil
}

// ToggleDone flips the done flag. It does not consult the blocked state;
// see ToggleGated. It returns false if id is absent.
func (s *Store) ToggleDone(id int) bool {
	found, _ := s.toggle(id, false)
	return found
}

// ToggleGated flips the done flag unless that would complete a blocked
// task, in which case it returns ErrBlocked. The check and the flip happen
// under one lock. It returns false if id is absent.
func (s *Store) ToggleGated(id int) (bool, error) {
	return s.toggle(id, true)
}

func (s *Store) toggle(id int, gated bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return false, nil
	}
	if gated {
		if err := CheckToggle(s.view(t)); err != nil {
			s.log.Debug("store: toggle blocked", "id", id)
			return true, err
		}
	}
	t.Done = !t.Done
	s.log.Debug("store: task toggled", "id", id, "done", t.Done)
	return true, nil
}

// Delete removes a task and strips its id from every other task's
// prerequisites. It returns false if id is absent.
func (s *Store) Delete(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	dependents := 0
	for _, t := range s.tasks {
		if _, ok := t.DependsOn[id]; ok {
			delete(t.DependsOn, id)
			dependents++
		}
	}

	if len(s.tasks) == 0 && s.resetWhenEmpty {
		s.alloc.Reset()
	}

	s.log.Debug("store: task deleted", "id", id, "dependents", dependents)
	return true
}

// Exists reports whether id is present.
func (s *Store) Exists(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.tasks[id]
	return ok
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// SessionID identifies the current session. It changes on Reset.
func (s *Store) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Reset empties the store and rewinds the id counter. It exists for test
// harnesses and explicit re-initialisation only.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[int]*Task)
	s.order = s.order[:0]
	s.alloc.Reset()
	s.sessionID = uuid.NewString()
	s.log.Debug("store: reset", "session", s.sessionID)
}

// filterDeps keeps the ids that exist and are not self. Caller holds s.mu.
func (s *Store) filterDeps(ids []int, self int) (map[int]struct{}, []int) {
	deps := make(map[int]struct{}, len(ids))
	var dropped []int
	for _, id := range ids {
		if _, ok := s.tasks[id]; !ok || id == self {
			dropped = append(dropped, id)
			continue
		}
		deps[id] = struct{}{}
	}
	return deps, dropped
}

// view builds a TaskView. Caller holds s.mu.
func (s *Store) view(t *Task) TaskView {
	return TaskView{
		ID:          t.ID,
		Description: t.Description,
		Done:        t.Done,
		DependsOn:   sortedIDs(t.DependsOn),
		IsBlocked:   s.isBlocked(t),
	}
}

// isBlocked reports whether any prerequisite is missing or not done.
// Caller holds s.mu.
func (s *Store) isBlocked(t *Task) bool {
	return s.hasOpen(t.DependsOn)
}

// hasOpen reports whether any id in deps is missing or not done.
// Caller holds s.mu.
func (s *Store) hasOpen(deps map[int]struct{}) bool {
	for id := range deps {
		dep, ok := s.tasks[id]
		if !ok || !dep.Done {
			return true
		}
	}
	return false
}
