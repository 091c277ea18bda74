package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tidalbridge/internal/models"
	"github.com/desertthunder/tidalbridge/internal/shared"
)

// LoginFlow is the device login the screen drives; [session.Manager] implements it.
type LoginFlow interface {
	Start(ctx context.Context) (*models.DeviceLogin, error)
	Poll(ctx context.Context, deviceCode string) (models.PollResult, error)
}

// ViewState represents the current phase of the login screen.
type ViewState int

const (
	RequestingView ViewState = iota
	WaitingView
	SuccessView
	FailedView
)

// Model represents the login screen state.
type Model struct {
	ctx      context.Context
	flow     LoginFlow
	open     func(string) error
	now      func() time.Time
	view     ViewState
	login    *models.DeviceLogin
	deadline time.Time
	polls    int
	err      error
	notice   string
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
}

// NewModel creates a login screen. open launches the verification URL; nil disables the o key.
func NewModel(ctx context.Context, flow LoginFlow, open func(string) error) *Model {
	return &Model{
		ctx:     ctx,
		flow:    flow,
		open:    open,
		now:     time.Now,
		view:    RequestingView,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.spinner)),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Err returns why the login did not complete, or nil after success.
func (m *Model) Err() error {
	if m.view == SuccessView {
		return nil
	}
	if m.err != nil {
		return m.err
	}
	return context.Canceled
}

// Init requests a device code and starts the spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startLogin())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgLoginStarted:
			data := msg.data.(loginStarted)
			if data.err != nil {
				return m.fail(fmt.Errorf("%w: %w", shared.ErrAuthFailed, data.err))
			}
			m.login = data.login
			if data.login.ExpiresIn > 0 {
				m.deadline = m.now().Add(time.Duration(data.login.ExpiresIn) * time.Second)
			}
			m.view = WaitingView
			return m, m.schedulePoll()

		case MsgPollTick:
			if m.view != WaitingView {
				return m, nil
			}
			if !m.deadline.IsZero() && m.now().After(m.deadline) {
				return m.fail(shared.ErrDeviceCodeExpired)
			}
			return m, m.poll()

		case MsgPollResult:
			return m.handlePoll(msg.data.(pollOutcome))

		case MsgBrowserOpened:
			if err, _ := msg.data.(error); err != nil {
				m.notice = fmt.Sprintf("Could not open browser: %v", err)
			} else {
				m.notice = "Opened browser"
			}
			return m, nil
		}
	}

	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		if m.view == RequestingView || m.view == WaitingView {
			m.err = context.Canceled
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.open):
		if m.view == WaitingView && m.open != nil {
			return m, m.openBrowser()
		}
	}
	return m, nil
}

func (m *Model) handlePoll(out pollOutcome) (tea.Model, tea.Cmd) {
	if m.view != WaitingView {
		return m, nil
	}
	m.polls++

	if out.err != nil {
		return m.fail(out.err)
	}

	if !out.result.Done() {
		return m, m.schedulePoll()
	}

	switch out.result.Status {
	case models.PollAuthenticated:
		m.view = SuccessView
		return m, tea.Quit
	case models.PollExpired:
		return m.fail(shared.ErrDeviceCodeExpired)
	default:
		return m.fail(fmt.Errorf("%w: %s", shared.ErrAuthFailed, out.result.Message))
	}
}

func (m *Model) fail(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.view = FailedView
	return m, tea.Quit
}

func (m *Model) startLogin() tea.Cmd {
	return func() tea.Msg {
		login, err := m.flow.Start(m.ctx)
		return loginStartedMsg(login, err)
	}
}

func (m *Model) schedulePoll() tea.Cmd {
	return tea.Tick(m.login.PollInterval(), func(time.Time) tea.Msg {
		return pollTickMsg()
	})
}

func (m *Model) poll() tea.Cmd {
	code := m.login.DeviceCode
	return func() tea.Msg {
		result, err := m.flow.Poll(m.ctx, code)
		return pollResultMsg(result, err)
	}
}

func (m *Model) openBrowser() tea.Cmd {
	url := m.login.VerificationURIComplete
	if url == "" {
		url = m.login.VerificationURI
	}
	return func() tea.Msg {
		return browserOpenedMsg(m.open(url))
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("TIDAL Login"))
	b.WriteString("\n")

	switch m.view {
	case RequestingView:
		fmt.Fprintf(&b, "%s Requesting device code...\n", m.spinner.View())
	case WaitingView:
		m.renderWaiting(&b)
	case SuccessView:
		b.WriteString(styles.ok.Render("✓ Logged in"))
		b.WriteString("\n")
	case FailedView:
		b.WriteString(styles.err.Render(fmt.Sprintf("✗ Login failed: %v", m.err)))
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) renderWaiting(b *strings.Builder) {
	url := m.login.VerificationURIComplete
	if url == "" {
		url = m.login.VerificationURI
	}

	fmt.Fprintf(b, "Visit %s\n", styles.link.Render(shared.BrowserURL(url)))
	b.WriteString("and enter the code:\n\n")
	b.WriteString(styles.code.Render(m.login.UserCode))
	b.WriteString("\n\n")

	status := "Waiting for approval..."
	if !m.deadline.IsZero() {
		remaining := m.deadline.Sub(m.now()).Round(time.Second)
		status = fmt.Sprintf("Waiting for approval... (%s left)", max(remaining, 0))
	}
	fmt.Fprintf(b, "%s %s\n", m.spinner.View(), status)

	if m.notice != "" {
		b.WriteString(styles.warn.Render(m.notice))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.help.Render(m.help.View(m.keys)))
	b.WriteString("\n")
}

// RunLogin runs the login screen on stderr until the flow finishes or the user cancels.
func RunLogin(ctx context.Context, flow LoginFlow, open func(string) error) error {
	m := NewModel(ctx, flow, open)
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithOutput(os.Stderr))

	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("login screen failed: %w", err)
	}
	return m.Err()
}
