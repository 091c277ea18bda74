package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tidalbridge/internal/models"
	"github.com/desertthunder/tidalbridge/internal/shared"
)

type stubFlow struct {
	login   *models.DeviceLogin
	results []models.PollResult
	polls   int
}

func (s *stubFlow) Start(context.Context) (*models.DeviceLogin, error) {
	return s.login, nil
}

func (s *stubFlow) Poll(context.Context, string) (models.PollResult, error) {
	r := s.results[min(s.polls, len(s.results)-1)]
	s.polls++
	return r, nil
}

func testLogin() *models.DeviceLogin {
	return &models.DeviceLogin{
		VerificationURI:         "link.tidal.com",
		VerificationURIComplete: "link.tidal.com/ABCDE",
		UserCode:                "ABCDE",
		DeviceCode:              "dev",
		ExpiresIn:               300,
		Interval:                2,
	}
}

func update(t *testing.T, m *Model, msg tea.Msg) tea.Cmd {
	t.Helper()
	_, cmd := m.Update(msg)
	return cmd
}

func TestLoginModel(t *testing.T) {
	t.Run("Shows Code After Start", func(t *testing.T) {
		m := NewModel(context.Background(), &stubFlow{}, nil)
		if !strings.Contains(m.View(), "Requesting device code") {
			t.Errorf("expected requesting view, got %q", m.View())
		}

		cmd := update(t, m, loginStartedMsg(testLogin(), nil))
		if cmd == nil {
			t.Error("expected a poll to be scheduled")
		}
		if m.view != WaitingView {
			t.Fatalf("expected waiting view, got %d", m.view)
		}

		view := m.View()
		if !strings.Contains(view, "ABCDE") || !strings.Contains(view, "https://link.tidal.com/ABCDE") {
			t.Errorf("expected code and URL in view, got %q", view)
		}
	})

	t.Run("Start Failure", func(t *testing.T) {
		m := NewModel(context.Background(), &stubFlow{}, nil)
		update(t, m, loginStartedMsg(nil, errors.New("offline")))

		if m.view != FailedView || !errors.Is(m.Err(), shared.ErrAuthFailed) {
			t.Errorf("expected failed view with ErrAuthFailed, got %d %v", m.view, m.Err())
		}
	})

	t.Run("Pending Then Authenticated", func(t *testing.T) {
		m := NewModel(context.Background(), &stubFlow{}, nil)
		update(t, m, loginStartedMsg(testLogin(), nil))

		if cmd := update(t, m, pollResultMsg(models.PollResult{Status: models.PollPending}, nil)); cmd == nil {
			t.Error("expected next poll to be scheduled")
		}
		if m.view != WaitingView {
			t.Fatalf("expected to keep waiting, got %d", m.view)
		}

		update(t, m, pollResultMsg(models.PollResult{Status: models.PollAuthenticated}, nil))
		if m.view != SuccessView || m.Err() != nil {
			t.Errorf("expected success, got %d %v", m.view, m.Err())
		}
		if m.polls != 2 {
			t.Errorf("expected 2 polls, got %d", m.polls)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		m := NewModel(context.Background(), &stubFlow{}, nil)
		update(t, m, loginStartedMsg(testLogin(), nil))
		update(t, m, pollResultMsg(models.PollResult{Status: models.PollExpired}, nil))

		if !errors.Is(m.Err(), shared.ErrDeviceCodeExpired) {
			t.Errorf("expected ErrDeviceCodeExpired, got %v", m.Err())
		}
	})

	t.Run("Denied", func(t *testing.T) {
		m := NewModel(context.Background(), &stubFlow{}, nil)
		update(t, m, loginStartedMsg(testLogin(), nil))
		update(t, m, pollResultMsg(models.PollResult{Status: models.PollError, Message: "denied"}, nil))

		if !errors.Is(m.Err(), shared.ErrAuthFailed) || !strings.Contains(m.Err().Error(), "denied") {
			t.Errorf("expected ErrAuthFailed with message, got %v", m.Err())
		}
		if !strings.Contains(m.View(), "Login failed") {
			t.Errorf("expected failure view, got %q", m.View())
		}
	})

	t.Run("Deadline Passed", func(t *testing.T) {
		m := NewModel(context.Background(), &stubFlow{}, nil)
		update(t, m, loginStartedMsg(testLogin(), nil))

		m.now = func() time.Time { return time.Now().Add(time.Hour) }
		update(t, m, pollTickMsg())

		if !errors.Is(m.Err(), shared.ErrDeviceCodeExpired) {
			t.Errorf("expected ErrDeviceCodeExpired, got %v", m.Err())
		}
	})

	t.Run("Tick Polls The Flow", func(t *testing.T) {
		flow := &stubFlow{results: []models.PollResult{{Status: models.PollAuthenticated}}}
		m := NewModel(context.Background(), flow, nil)
		update(t, m, loginStartedMsg(testLogin(), nil))

		cmd := update(t, m, pollTickMsg())
		if cmd == nil {
			t.Fatal("expected poll command")
		}

		update(t, m, cmd())
		if flow.polls != 1 || m.view != SuccessView {
			t.Errorf("expected one poll and success, got %d polls, view %d", flow.polls, m.view)
		}
	})

	t.Run("Quit Cancels", func(t *testing.T) {
		m := NewModel(context.Background(), &stubFlow{}, nil)
		update(t, m, loginStartedMsg(testLogin(), nil))
		update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})

		if !errors.Is(m.Err(), context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", m.Err())
		}
	})

	t.Run("Open Browser", func(t *testing.T) {
		var opened string
		m := NewModel(context.Background(), &stubFlow{}, func(u string) error { opened = u; return nil })
		update(t, m, loginStartedMsg(testLogin(), nil))

		cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'o'}})
		if cmd == nil {
			t.Fatal("expected open command")
		}
		update(t, m, cmd())

		if opened != "link.tidal.com/ABCDE" {
			t.Errorf("expected complete URL to be opened, got %q", opened)
		}
		if !strings.Contains(m.View(), "Opened browser") {
			t.Errorf("expected notice in view, got %q", m.View())
		}
	})
}
