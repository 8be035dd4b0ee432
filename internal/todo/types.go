package todo

import (
	"errors"
	"sort"
)

// MaxDescriptionLength is the longest accepted description, in characters.
const MaxDescriptionLength = 80

// ErrBlocked is returned when completing a task that still has open
// prerequisites.
var ErrBlocked = errors.New("task is blocked by unfinished dependencies")

// Task is a stored task. DependsOn has set semantics.
type Task struct {
	ID          int
	Description string
	DependsOn   map[int]struct{}
	Done        bool
}

// TaskView is the read-only form of a task handed to callers.
type TaskView struct {
	ID          int    `json:"id" yaml:"id"`
	Description string `json:"description" yaml:"description"`
	Done        bool   `json:"done" yaml:"done"`
	DependsOn   []int  `json:"dependsOn" yaml:"dependsOn"`
	IsBlocked   bool   `json:"isBlocked" yaml:"isBlocked"`
}

// Input is the payload of Store.Create and Store.Update.
type Input struct {
	Description string `json:"description"`
	DependsOn   []int  `json:"dependsOn"`
	Done        bool   `json:"done"`
}

// Draft is the unsaved result of ParseDraft.
type Draft struct {
	Description string `json:"description"`
	DependsOn   []int  `json:"dependsOn"`
}

// Input converts the draft into a create payload for an undone task.
func (d Draft) Input() Input {
	deps := make([]int, len(d.DependsOn))
	copy(deps, d.DependsOn)
	return Input{Description: d.Description, DependsOn: deps}
}

// Lookup reports whether a task id currently exists.
type Lookup interface {
	Exists(id int) bool
}

// CheckToggle reports whether flipping the done flag of v is allowed.
// Marking an undone task done requires every prerequisite to be done;
// reopening a done task is always allowed.
func CheckToggle(v TaskView) error {
	if !v.Done && v.IsBlocked {
		return ErrBlocked
	}
	return nil
}

// sortedIDs returns the members of set in ascending order.
func sortedIDs(set map[int]struct{}) []int {
	ids := make([]int, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
