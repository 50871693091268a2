package signin_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/goleak"

	"github.com/waabox/autolog/internal/domain"
	"github.com/waabox/autolog/internal/signin"
)

// fakeProvider answers each SignInWithPopup call with the next value sent on results.
// It honours ctx like a real provider.
type fakeProvider struct {
	results chan result
	mu      sync.Mutex
	calls   int
	started chan struct{}
}

type result struct {
	identity domain.Identity
	err      error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{results: make(chan result), started: make(chan struct{}, 10)}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) SignInWithPopup(ctx context.Context) (domain.Identity, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	f.started <- struct{}{}
	select {
	case r := <-f.results:
		return r.identity, r.err
	case <-ctx.Done():
		return domain.Identity{}, ctx.Err()
	}
}

func (f *fakeProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type report struct {
	provider  string
	attemptID string
	err       error
}

type fakeReporter struct {
	mu      sync.Mutex
	reports []report
}

func (r *fakeReporter) ReportFailure(_ context.Context, provider, attemptID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report{provider, attemptID, err})
}

func (r *fakeReporter) Reports() []report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]report(nil), r.reports...)
}

type loginRecorder struct {
	mu    sync.Mutex
	calls []domain.Identity
}

func (l *loginRecorder) OnLogin(id domain.Identity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, id)
}

func (l *loginRecorder) Calls() []domain.Identity {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Identity(nil), l.calls...)
}

func setup() (*signin.Orchestrator, *fakeProvider, *fakeReporter, *loginRecorder) {
	provider := newFakeProvider()
	reporter := &fakeReporter{}
	logins := &loginRecorder{}
	o := signin.New(provider, reporter, logins.OnLogin, zerolog.Nop())
	return o, provider, reporter, logins
}

func TestOrchestrator_SuccessCallsOnLoginOnceWithIdentity(t *testing.T) {
	defer goleak.VerifyNone(t)

	o, provider, reporter, logins := setup()
	want := domain.Identity{Subject: "42", Email: "ada@example.com", Provider: "fake", IDToken: "tok"}

	attemptID, err := o.InitiateSignIn()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attemptID == "" {
		t.Error("expected an attempt id")
	}
	<-provider.started
	if !o.Pending() {
		t.Error("expected attempt to be pending while the popup is open")
	}
	provider.results <- result{identity: want}
	o.Wait()

	calls := logins.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one onLogin call, got %d", len(calls))
	}
	if calls[0] != want {
		t.Errorf("identity: want %+v, got %+v", want, calls[0])
	}
	if len(reporter.Reports()) != 0 {
		t.Errorf("expected no failure reports, got %v", reporter.Reports())
	}
	if o.Pending() || !o.SignedIn() {
		t.Errorf("expected settled and signed in, pending=%v signedIn=%v", o.Pending(), o.SignedIn())
	}
	o.Close()
}

func TestOrchestrator_FailureReportsOnceAndAllowsRetry(t *testing.T) {
	defer goleak.VerifyNone(t)

	o, provider, reporter, logins := setup()
	var hookErr error
	o.OnFailure = func(err error) { hookErr = err }

	attemptID, err := o.InitiateSignIn()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-provider.started
	cause := errors.New("network unreachable")
	provider.results <- result{err: cause}
	o.Wait()

	if len(logins.Calls()) != 0 {
		t.Fatalf("onLogin must not be called on failure, got %v", logins.Calls())
	}
	reports := reporter.Reports()
	if len(reports) != 1 {
		t.Fatalf("expected exactly one failure report, got %d", len(reports))
	}
	if !errors.Is(reports[0].err, cause) {
		t.Errorf("report should carry the cause, got %v", reports[0].err)
	}
	if reports[0].attemptID != attemptID || reports[0].provider != "fake" {
		t.Errorf("report metadata: got %+v", reports[0])
	}
	if !errors.Is(hookErr, cause) {
		t.Errorf("OnFailure should receive the cause, got %v", hookErr)
	}

	// The screen stays usable: a retry opens a new popup and can succeed.
	if _, err := o.InitiateSignIn(); err != nil {
		t.Fatalf("retry: unexpected error: %v", err)
	}
	<-provider.started
	provider.results <- result{identity: domain.Identity{Subject: "7"}}
	o.Wait()
	if len(logins.Calls()) != 1 {
		t.Errorf("expected retry to sign in, got %d calls", len(logins.Calls()))
	}
	o.Close()
}

func TestOrchestrator_PopupClosedIsReported(t *testing.T) {
	o, provider, reporter, logins := setup()

	o.InitiateSignIn()
	<-provider.started
	provider.results <- result{err: domain.ErrPopupClosed}
	o.Wait()

	if len(logins.Calls()) != 0 {
		t.Error("onLogin must not be called when the popup is closed")
	}
	reports := reporter.Reports()
	if len(reports) != 1 || !errors.Is(reports[0].err, domain.ErrPopupClosed) {
		t.Fatalf("expected one ErrPopupClosed report, got %v", reports)
	}
	o.Close()
}

func TestOrchestrator_SecondCallWhilePendingIsRejected(t *testing.T) {
	defer goleak.VerifyNone(t)

	o, provider, _, logins := setup()

	if _, err := o.InitiateSignIn(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-provider.started
	if _, err := o.InitiateSignIn(); !errors.Is(err, domain.ErrSignInPending) {
		t.Fatalf("expected ErrSignInPending, got %v", err)
	}
	provider.results <- result{identity: domain.Identity{Subject: "1"}}
	o.Wait()

	if provider.Calls() != 1 {
		t.Errorf("expected a single popup, got %d", provider.Calls())
	}
	if len(logins.Calls()) != 1 {
		t.Errorf("expected one onLogin call, got %d", len(logins.Calls()))
	}
	o.Close()
}

func TestOrchestrator_AfterSuccessFurtherSignInsAreRejected(t *testing.T) {
	o, provider, _, logins := setup()

	o.InitiateSignIn()
	<-provider.started
	provider.results <- result{identity: domain.Identity{Subject: "1"}}
	o.Wait()

	if _, err := o.InitiateSignIn(); !errors.Is(err, domain.ErrAlreadySignedIn) {
		t.Fatalf("expected ErrAlreadySignedIn, got %v", err)
	}
	if len(logins.Calls()) != 1 {
		t.Errorf("expected one onLogin call, got %d", len(logins.Calls()))
	}
	o.Close()
}

func TestOrchestrator_SettlementAfterCloseIsIgnored(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := &stubbornProvider{release: make(chan struct{}), started: make(chan struct{})}
	reporter := &fakeReporter{}
	logins := &loginRecorder{}
	o := signin.New(provider, reporter, logins.OnLogin, zerolog.Nop())
	hookCalled := false
	o.OnFailure = func(error) { hookCalled = true }

	o.InitiateSignIn()
	<-provider.started
	o.Close()
	close(provider.release)
	o.Wait()

	if len(logins.Calls()) != 0 {
		t.Errorf("onLogin must not be called after teardown, got %v", logins.Calls())
	}
	if len(reporter.Reports()) != 0 || hookCalled {
		t.Errorf("nothing may be reported after teardown, got %v (hook=%v)", reporter.Reports(), hookCalled)
	}
}

func TestOrchestrator_CloseCancelsProviderContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	o, provider, reporter, logins := setup()
	o.InitiateSignIn()
	<-provider.started

	o.Close()
	o.Close()

	done := make(chan struct{})
	go func() {
		o.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("provider goroutine did not return after Close")
	}
	if len(logins.Calls()) != 0 || len(reporter.Reports()) != 0 {
		t.Error("teardown cancellation must be silent")
	}
	if _, err := o.InitiateSignIn(); !errors.Is(err, domain.ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
}

// stubbornProvider ignores cancellation and succeeds once released, like a
// popup that cannot be aborted.
type stubbornProvider struct {
	release chan struct{}
	started chan struct{}
}

func (s *stubbornProvider) Name() string { return "stubborn" }

func (s *stubbornProvider) SignInWithPopup(_ context.Context) (domain.Identity, error) {
	close(s.started)
	<-s.release
	return domain.Identity{Subject: "late"}, nil
}

// closeDuring starts Close on another goroutine and gives it time to return
// before the current callback continues.
func closeDuring(o *signin.Orchestrator, closeReturned *atomic.Bool, done chan struct{}) {
	go func() {
		o.Close()
		closeReturned.Store(true)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
}

func TestOrchestrator_CloseDuringSuccessWaitsForOnLogin(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := newFakeProvider()
	reporter := &fakeReporter{}
	var (
		o             *signin.Orchestrator
		closeReturned atomic.Bool
		loginAfter    atomic.Bool
		logins        atomic.Int32
	)
	closeDone := make(chan struct{})
	logger := zerolog.New(io.Discard).Hook(zerolog.HookFunc(func(_ *zerolog.Event, _ zerolog.Level, msg string) {
		if msg == "Sign-in succeeded" {
			closeDuring(o, &closeReturned, closeDone)
		}
	}))
	o = signin.New(provider, reporter, func(domain.Identity) {
		logins.Add(1)
		loginAfter.Store(closeReturned.Load())
	}, logger)

	o.InitiateSignIn()
	<-provider.started
	provider.results <- result{identity: domain.Identity{Subject: "1"}}
	<-closeDone
	o.Wait()

	if logins.Load() != 1 {
		t.Fatalf("expected the settling onLogin to complete, got %d calls", logins.Load())
	}
	if loginAfter.Load() {
		t.Error("onLogin ran after Close returned")
	}
}

// closingReporter closes the orchestrator while a failure is being reported.
type closingReporter struct {
	o             *signin.Orchestrator
	closeReturned atomic.Bool
	done          chan struct{}
}

func (r *closingReporter) ReportFailure(context.Context, string, string, error) {
	closeDuring(r.o, &r.closeReturned, r.done)
}

func TestOrchestrator_CloseDuringFailureWaitsForOnFailure(t *testing.T) {
	defer goleak.VerifyNone(t)

	provider := newFakeProvider()
	reporter := &closingReporter{done: make(chan struct{})}
	logins := &loginRecorder{}
	o := signin.New(provider, reporter, logins.OnLogin, zerolog.Nop())
	reporter.o = o
	var hookAfter atomic.Bool
	o.OnFailure = func(error) { hookAfter.Store(reporter.closeReturned.Load()) }

	o.InitiateSignIn()
	<-provider.started
	provider.results <- result{err: errors.New("network unreachable")}
	<-reporter.done
	o.Wait()

	if hookAfter.Load() {
		t.Error("OnFailure ran after Close returned")
	}
	if len(logins.Calls()) != 0 {
		t.Errorf("onLogin must not be called on failure, got %v", logins.Calls())
	}
}
