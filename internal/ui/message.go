package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tidalbridge/internal/models"
)

// MsgKind enumerates all message types in the login screen.
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
	MsgLoginStarted MsgKind = iota
	MsgPollTick
	MsgPollResult
	MsgBrowserOpened
)

type loginStarted struct {
	login *models.DeviceLogin
	err   error
}

type pollOutcome struct {
	result models.PollResult
	err    error
}

// loginStartedMsg is the constructor for [MsgLoginStarted]
func loginStartedMsg(login *models.DeviceLogin, err error) Msg {
	return Msg{kind: MsgLoginStarted, data: loginStarted{login, err}}
}

// pollTickMsg is the constructor for [MsgPollTick]
func pollTickMsg() Msg {
	return Msg{kind: MsgPollTick}
}

// pollResultMsg is the constructor for [MsgPollResult]
func pollResultMsg(result models.PollResult, err error) Msg {
	return Msg{kind: MsgPollResult, data: pollOutcome{result, err}}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(err error) Msg {
	return Msg{kind: MsgBrowserOpened, data: err}
}
