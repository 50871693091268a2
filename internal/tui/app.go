package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/waabox/autolog/internal/auth"
	"github.com/waabox/autolog/internal/domain"
)

// RevealMsg carries the greeting prefix currently visible.
// It is exported so that tests can inject it directly into AppModel.Update.
type RevealMsg struct {
	Text string
}

// PopupPromptMsg is sent when the provider has a code for the user to enter.
type PopupPromptMsg struct {
	Code auth.DeviceCodeResponse
}

// SignInFailedMsg is sent after a failed sign-in has been reported.
type SignInFailedMsg struct {
	Err error
}

// LoggedInMsg is sent when the provider returned an identity.
type LoggedInMsg struct {
	Identity domain.Identity
}

// Animator is the greeting animation hosted by the screen. The screen only
// starts it; Run stops it on teardown.
type Animator interface {
	Start()
}

// SignInAction starts a sign-in attempt without blocking.
type SignInAction interface {
	InitiateSignIn() (string, error)
}

// PopupCloser dismisses the provider's popup.
type PopupCloser interface {
	ClosePopup()
}

// viewState indicates which panel is on screen.
type viewState int

const (
	viewLogin viewState = iota
	viewPopup
)

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(1, 4).
			Align(lipgloss.Center)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	buttonStyle = lipgloss.NewStyle().Bold(true).Border(lipgloss.NormalBorder()).Padding(0, 2)
	codeStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	hintStyle   = lipgloss.NewStyle().Faint(true)
)

// AppModel is the root Bubbletea model for the sign-in screen.
type AppModel struct {
	animator Animator
	signIn   SignInAction
	popup    PopupCloser

	view      viewState
	greeting  string
	signingIn bool
	status    string
	code      auth.DeviceCodeResponse
	identity  domain.Identity
	signedIn  bool
	width     int
	height    int
}

// NewAppModel creates the sign-in screen. popup may be nil when the provider
// offers no way to dismiss its popup.
func NewAppModel(animator Animator, signIn SignInAction, popup PopupCloser) AppModel {
	return AppModel{
		animator: animator,
		signIn:   signIn,
		popup:    popup,
	}
}

// Init starts the greeting animation.
func (m AppModel) Init() tea.Cmd {
	animator := m.animator
	return func() tea.Msg {
		animator.Start()
		return nil
	}
}

// Identity returns the signed-in identity, if any.
func (m AppModel) Identity() (domain.Identity, bool) {
	return m.identity, m.signedIn
}

// Update handles all incoming messages and key events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case RevealMsg:
		m.greeting = msg.Text

	case PopupPromptMsg:
		if !m.signingIn {
			return m, nil
		}
		m.view = viewPopup
		m.code = msg.Code
		m.status = ""

	case SignInFailedMsg:
		m.signingIn = false
		m.view = viewLogin
		m.code = auth.DeviceCodeResponse{}
		m.status = failureStatus(msg.Err)

	case LoggedInMsg:
		m.signingIn = false
		m.identity = msg.Identity
		m.signedIn = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		switch m.view {
		case viewLogin:
			if msg.String() == "enter" {
				return m.startSignIn(), nil
			}
		case viewPopup:
			if msg.String() == "esc" && m.popup != nil {
				m.popup.ClosePopup()
				m.status = "Closing sign-in..."
			}
		}
	}
	return m, nil
}

func (m AppModel) startSignIn() AppModel {
	_, err := m.signIn.InitiateSignIn()
	switch {
	case err == nil:
		m.signingIn = true
		m.status = "Opening Google sign-in..."
	case errors.Is(err, domain.ErrSignInPending):
		m.status = "Sign-in already in progress."
	default:
		m.status = fmt.Sprintf("Cannot sign in: %v", err)
	}
	return m
}

func failureStatus(err error) string {
	switch {
	case errors.Is(err, domain.ErrPopupClosed):
		return "Sign-in cancelled. Press enter to try again."
	case errors.Is(err, domain.ErrPopupExpired):
		return "The sign-in code expired. Press enter to try again."
	case errors.Is(err, domain.ErrAccessDenied):
		return "Access was denied. Press enter to try again."
	default:
		return "Sign-in failed. Press enter to try again."
	}
}

// View renders the full TUI.
func (m AppModel) View() string {
	var body string
	if m.view == viewPopup {
		body = m.renderPopup()
	} else {
		body = m.renderLogin()
	}
	card := cardStyle.Render(body)
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, card)
	}
	return card + "\n"
}

func (m AppModel) renderGreeting() string {
	// keep the line even before the first character so the card does not jump
	greeting := m.greeting
	if greeting == "" {
		greeting = " "
	}
	return titleStyle.Render(greeting)
}

func (m AppModel) renderLogin() string {
	lines := []string{
		"🚗",
		"",
		m.renderGreeting(),
		"",
		buttonStyle.Render("Sign in with Google"),
	}
	if m.status != "" {
		lines = append(lines, "", m.status)
	}
	lines = append(lines, "", hintStyle.Render("enter: sign in   q: quit"))
	return strings.Join(lines, "\n")
}

func (m AppModel) renderPopup() string {
	lines := []string{
		m.renderGreeting(),
		"",
		"Sign in with Google",
		"",
		fmt.Sprintf("Visit:  %s", m.code.VerificationURI),
		fmt.Sprintf("Code:   %s", codeStyle.Render(m.code.UserCode)),
		"",
		"Waiting for authorization...",
	}
	if m.status != "" {
		lines = append(lines, "", m.status)
	}
	lines = append(lines, "", hintStyle.Render("esc: close   q: quit"))
	return strings.Join(lines, "\n")
}
