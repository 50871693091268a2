// Package signin runs the "Sign in with Google" action: one popup per attempt,
// one outcome per popup, and the identity handed to the host at most once.
package signin

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/waabox/autolog/internal/domain"
)

// Reporter receives failed sign-in attempts.
type Reporter interface {
	ReportFailure(ctx context.Context, provider string, attemptID string, err error)
}

// Orchestrator owns the sign-in action of one sign-in screen.
//
// InitiateSignIn never blocks; the provider is awaited on a goroutine and its
// outcome settles the attempt. After Close, settlements are dropped.
type Orchestrator struct {
	provider domain.IdentityProvider
	reporter Reporter
	onLogin  func(domain.Identity)
	logger   zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// settleMu is held from the closed check through the host callbacks, so
	// Close cannot return while an outcome is being delivered.
	settleMu sync.Mutex
	mu       sync.Mutex
	pending  string
	signedIn bool
	closed   bool

	// OnFailure, if set, is called after a failed attempt has been reported,
	// so the host can return to its pre-sign-in view. Set it before the first
	// InitiateSignIn.
	OnFailure func(err error)
}

// New creates an idle Orchestrator. onLogin is the host's completion callback.
func New(provider domain.IdentityProvider, reporter Reporter, onLogin func(domain.Identity), logger zerolog.Logger) *Orchestrator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		provider: provider,
		reporter: reporter,
		onLogin:  onLogin,
		logger:   logger.With().Str("component", "signin").Str("provider", provider.Name()).Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// InitiateSignIn opens the provider popup and returns the id of the new attempt.
// Only one attempt may be in flight: a second call returns domain.ErrSignInPending.
// After a successful sign-in it returns domain.ErrAlreadySignedIn, and after Close domain.ErrClosed.
func (o *Orchestrator) InitiateSignIn() (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch {
	case o.closed:
		return "", domain.ErrClosed
	case o.signedIn:
		return "", domain.ErrAlreadySignedIn
	case o.pending != "":
		return "", domain.ErrSignInPending
	}

	attemptID := uuid.NewString()
	o.pending = attemptID
	o.wg.Add(1)
	go o.run(attemptID)

	o.logger.Info().Str("attempt_id", attemptID).Msg("Sign-in started")
	return attemptID, nil
}

func (o *Orchestrator) run(attemptID string) {
	defer o.wg.Done()
	identity, err := o.provider.SignInWithPopup(o.ctx)
	o.settle(attemptID, domain.OutcomeOf(identity, err))
}

func (o *Orchestrator) settle(attemptID string, outcome domain.AuthOutcome) {
	o.settleMu.Lock()
	defer o.settleMu.Unlock()

	o.mu.Lock()
	if o.pending == attemptID {
		o.pending = ""
	}
	if o.closed {
		o.mu.Unlock()
		o.logger.Debug().Str("attempt_id", attemptID).Bool("succeeded", outcome.Succeeded()).
			Msg("Sign-in settled after teardown, ignoring")
		return
	}
	identity, ok := outcome.Identity()
	if ok {
		if o.signedIn {
			o.mu.Unlock()
			return
		}
		o.signedIn = true
	}
	onFailure := o.OnFailure
	o.mu.Unlock()

	if ok {
		o.logger.Info().Str("attempt_id", attemptID).Msg("Sign-in succeeded")
		o.onLogin(identity)
		return
	}

	err := &domain.SignInError{Provider: o.provider.Name(), Err: outcome.Err()}
	o.reporter.ReportFailure(o.ctx, o.provider.Name(), attemptID, err)
	if onFailure != nil {
		onFailure(err)
	}
}

// Pending reports whether a sign-in attempt is in flight.
func (o *Orchestrator) Pending() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pending != ""
}

// SignedIn reports whether a sign-in has succeeded.
func (o *Orchestrator) SignedIn() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.signedIn
}

// Close tears the orchestrator down. The context handed to the provider is
// cancelled and any outcome that arrives afterwards is ignored. An outcome
// already being delivered finishes first, and once Close returns no callback
// runs again. Close must not be called from onLogin, the reporter or OnFailure. It does not wait for the provider; use Wait for
// that. Calling Close twice is a no-op.
func (o *Orchestrator) Close() {
	o.settleMu.Lock()
	o.mu.Lock()
	alreadyClosed := o.closed
	o.closed = true
	o.mu.Unlock()
	o.settleMu.Unlock()

	if !alreadyClosed {
		o.cancel()
	}
}

// Wait blocks until every attempt goroutine has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
