package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/modulearn/internal/curriculum"
	"github.com/desertthunder/modulearn/internal/models"
	"github.com/desertthunder/modulearn/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgPathCreated
	MsgVideosFetched
	MsgExplained
	MsgProfileSaved
)

type pathCreated struct {
	result *tasks.CreateResult
	err    error
}

type videosFetched struct {
	moduleID string
	result   curriculum.VideoResult
}

type explained struct {
	explanation curriculum.Explanation
	err         error
}

type profileSaved struct {
	route models.Route
	err   error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// pathCreatedMsg is the constructor for [MsgPathCreated]
func pathCreatedMsg(result *tasks.CreateResult, err error) Msg {
	return Msg{kind: MsgPathCreated, data: pathCreated{result, err}}
}

// videosFetchedMsg is the constructor for [MsgVideosFetched]
func videosFetchedMsg(moduleID string, result curriculum.VideoResult) Msg {
	return Msg{kind: MsgVideosFetched, data: videosFetched{moduleID, result}}
}

// explainedMsg is the constructor for [MsgExplained]
func explainedMsg(e curriculum.Explanation, err error) Msg {
	return Msg{kind: MsgExplained, data: explained{e, err}}
}

// profileSavedMsg is the constructor for [MsgProfileSaved]
func profileSavedMsg(route models.Route, err error) Msg {
	return Msg{kind: MsgProfileSaved, data: profileSaved{route, err}}
}
