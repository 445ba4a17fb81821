package curriculum

import (
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/shared"
)

// New modules start from these values.
const (
	newModuleTitle       = "New Module"
	newModuleDescription = "Module description"
	newModuleMinutes     = 30
)

// Editor holds a curriculum while the learner restructures it.
// It is safe for concurrent use.
type Editor struct {
	mu sync.Mutex
	c  models.GeneratedCurriculum
}

// NewEditor copies c into an editor. A curriculum without modules is rejected.
func NewEditor(c models.GeneratedCurriculum) (*Editor, error) {
	if len(c.Modules) == 0 {
		return nil, shared.ErrEmptyCurriculum
	}
	return &Editor{c: c.Clone()}, nil
}

// Curriculum returns a copy of the current state.
func (e *Editor) Curriculum() models.GeneratedCurriculum {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.c.Clone()
}

// TotalHours is the summed module estimate in hours, one decimal.
func (e *Editor) TotalHours() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.c.TotalHours()
}

func (e *Editor) index(id string) int {
	for i, m := range e.c.Modules {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// nextID returns module_<len+1>, advancing past ids already taken after removals or reorders.
func (e *Editor) nextID() string {
	for n := len(e.c.Modules) + 1; ; n++ {
		id := fmt.Sprintf("module_%d", n)
		if e.index(id) < 0 {
			return id
		}
	}
}

// Add appends a placeholder module and returns it.
func (e *Editor) Add() models.CurriculumModule {
	e.mu.Lock()
	defer e.mu.Unlock()

	m := models.CurriculumModule{
		ID:               e.nextID(),
		Title:            newModuleTitle,
		Description:      newModuleDescription,
		EstimatedMinutes: models.Ptr(newModuleMinutes),
		Subtopics:        []string{"Subtopic 1", "Subtopic 2"},
	}
	e.c.Modules = append(e.c.Modules, m)
	return m.Clone()
}

// Remove deletes the module with id.
func (e *Editor) Remove(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", shared.ErrModuleNotFound, id)
	}
	e.c.Modules = append(e.c.Modules[:i], e.c.Modules[i+1:]...)
	return nil
}

// Move places the module with id at position to (0-based, clamped).
func (e *Editor) Move(id string, to int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", shared.ErrModuleNotFound, id)
	}
	to = max(0, min(to, len(e.c.Modules)-1))

	m := e.c.Modules[i]
	e.c.Modules = append(e.c.Modules[:i], e.c.Modules[i+1:]...)
	e.c.Modules = append(e.c.Modules[:to], append([]models.CurriculumModule{m}, e.c.Modules[to:]...)...)
	return nil
}

// Update edits the module's text fields. Blank title is rejected; the id never changes.
func (e *Editor) Update(id, title, description string, subtopics []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", shared.ErrModuleNotFound, id)
	}
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: module title is required", shared.ErrInvalidInput)
	}

	e.c.Modules[i].Title = strings.TrimSpace(title)
	e.c.Modules[i].Description = description
	if subtopics != nil {
		e.c.Modules[i].Subtopics = append([]string(nil), subtopics...)
	}
	return nil
}

// Replace swaps in a refined module. The refined module keeps the slot's id so ids stay unique.
func (e *Editor) Replace(id string, refined models.CurriculumModule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", shared.ErrModuleNotFound, id)
	}
	refined = refined.Clone()
	refined.ID = id
	e.c.Modules[i] = refined
	return nil
}

// Finalize freezes the curriculum for the learning view.
func (e *Editor) Finalize() (models.GeneratedCurriculum, error) {
	c := e.Curriculum()
	if len(c.Modules) == 0 {
		return c, shared.ErrEmptyCurriculum
	}
	return c, nil
}

// EditOp is one structure edit, as sent by the HTTP API and the CLI.
type EditOp struct {
	Op          string   `json:"op" validate:"required,oneof=add remove move update"`
	ID          string   `json:"id,omitempty"`
	To          int      `json:"to,omitempty"`
	Title       string   `json:"title,omitempty"`
	Description string   `json:"description,omitempty"`
	Subtopics   []string `json:"subtopics,omitempty"`
}

// Apply runs op against the editor.
func (e *Editor) Apply(op EditOp) error {
	switch op.Op {
	case "add":
		e.Add()
		return nil
	case "remove":
		return e.Remove(op.ID)
	case "move":
		return e.Move(op.ID, op.To)
	case "update":
		return e.Update(op.ID, op.Title, op.Description, op.Subtopics)
	default:
		return fmt.Errorf("%w: unknown edit op %q", shared.ErrInvalidInput, op.Op)
	}
}
