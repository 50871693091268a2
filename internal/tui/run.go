package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/waabox/autolog/internal/auth"
	"github.com/waabox/autolog/internal/clock"
	"github.com/waabox/autolog/internal/domain"
	"github.com/waabox/autolog/internal/reveal"
	"github.com/waabox/autolog/internal/signin"
)

// ErrNotSignedIn is returned by Run when the user quits before signing in.
var ErrNotSignedIn = errors.New("quit without signing in")

// popupHost is implemented by providers whose popup is drawn by the TUI.
type popupHost interface {
	SetPrompt(func(auth.DeviceCodeResponse))
	ClosePopup()
}

// RunOptions configures one sign-in screen.
type RunOptions struct {
	Greeting string
	Timing   reveal.Timing
	Provider domain.IdentityProvider
	Reporter signin.Reporter
	Logger   zerolog.Logger
	// OnLogin is the host's completion callback; it runs at most once.
	OnLogin func(domain.Identity)
	// ProgramOptions are appended to the defaults (alt screen, ctx).
	ProgramOptions []tea.ProgramOption
}

// Run shows the sign-in screen until the user signs in or quits.
// The greeting animation and the sign-in action live exactly as long as the
// screen: both are torn down before Run returns, whichever way it exits.
func Run(ctx context.Context, opts RunOptions) (domain.Identity, error) {
	var program *tea.Program
	send := func(msg tea.Msg) { program.Send(msg) }

	engine := reveal.New(opts.Greeting, opts.Timing, clock.Real())
	engine.OnReveal = func(text string) { send(RevealMsg{Text: text}) }
	defer engine.Stop()

	var closer PopupCloser
	if host, ok := opts.Provider.(popupHost); ok {
		host.SetPrompt(func(code auth.DeviceCodeResponse) { send(PopupPromptMsg{Code: code}) })
		closer = host
	}

	onLogin := func(identity domain.Identity) {
		send(LoggedInMsg{Identity: identity})
		if opts.OnLogin != nil {
			opts.OnLogin(identity)
		}
	}
	orchestrator := signin.New(opts.Provider, opts.Reporter, onLogin, opts.Logger)
	orchestrator.OnFailure = func(err error) { send(SignInFailedMsg{Err: err}) }
	defer orchestrator.Close()

	programOpts := append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts.ProgramOptions...)
	program = tea.NewProgram(NewAppModel(engine, orchestrator, closer), programOpts...)

	final, err := program.Run()
	if err != nil && !isInterrupt(err) {
		return domain.Identity{}, fmt.Errorf("running sign-in screen: %w", err)
	}
	app, ok := final.(AppModel)
	if !ok {
		return domain.Identity{}, ErrNotSignedIn
	}
	identity, signedIn := app.Identity()
	if !signedIn {
		return domain.Identity{}, ErrNotSignedIn
	}
	return identity, nil
}

// isInterrupt reports whether the program ended because ctx was cancelled or
// SIGINT arrived, which counts as quitting. Panics are still errors.
func isInterrupt(err error) bool {
	if errors.Is(err, tea.ErrProgramPanic) {
		return false
	}
	return errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted)
}
