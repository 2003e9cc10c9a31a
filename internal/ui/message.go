package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/djq/internal/models"
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
	MsgSynced MsgKind = iota
	MsgStatusChanged
	MsgMoved
)

type syncResult struct {
	err error
}

type statusResult struct {
	id     string
	status models.Status
	err    error
}

type moveResult struct {
	id        string
	direction models.Direction
	moved     bool
	err       error
}

// syncedMsg is the constructor for [MsgSynced]
func syncedMsg(err error) Msg {
	return Msg{kind: MsgSynced, data: syncResult{err: err}}
}

// statusChangedMsg is the constructor for [MsgStatusChanged]
func statusChangedMsg(id string, status models.Status, err error) Msg {
	return Msg{kind: MsgStatusChanged, data: statusResult{id: id, status: status, err: err}}
}

// movedMsg is the constructor for [MsgMoved]
func movedMsg(id string, direction models.Direction, moved bool, err error) Msg {
	return Msg{kind: MsgMoved, data: moveResult{id: id, direction: direction, moved: moved, err: err}}
}
