package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/modulearn/internal/models"
)

var (
	_ list.Item = moduleItem{}
)

// moduleItem wraps [models.CurriculumModule] to implement [list.Item].
type moduleItem struct {
	module models.CurriculumModule
	done   bool
}

func (i moduleItem) FilterValue() string { return i.module.Title }
func (i moduleItem) Title() string {
	if i.done {
		return "✓ " + i.module.Title
	}
	return i.module.Title
}
func (i moduleItem) Description() string {
	desc := fmt.Sprintf("%d subtopics", len(i.module.Subtopics))
	if i.module.EstimatedMinutes != nil {
		desc = fmt.Sprintf("%d min • %s", *i.module.EstimatedMinutes, desc)
	}
	return desc
}
