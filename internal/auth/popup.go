package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/waabox/autolog/internal/domain"
)

// DeviceFlow is the device authorization grant as seen by PopupProvider.
// GoogleDeviceFlow implements it.
type DeviceFlow interface {
	RequestCode(ctx context.Context) (DeviceCodeResponse, error)
	PollToken(ctx context.Context, deviceCode string, interval int) (TokenResponse, error)
}

// PopupProvider is the Google identity provider. Its "popup" is the device
// authorization prompt: the host shows the verification URL and user code,
// the user completes consent in a browser, and the provider polls for the
// ID token.
type PopupProvider struct {
	flow     DeviceFlow
	clientID string
	logger   zerolog.Logger

	mu     sync.Mutex
	prompt func(DeviceCodeResponse)
	nextID int
	open   map[int]context.CancelCauseFunc
}

var _ domain.IdentityProvider = (*PopupProvider)(nil)

// NewPopupProvider creates a PopupProvider. clientID is checked against the ID token audience.
func NewPopupProvider(flow DeviceFlow, clientID string, logger zerolog.Logger) *PopupProvider {
	return &PopupProvider{
		flow:     flow,
		clientID: clientID,
		logger:   logger.With().Str("component", "popup").Logger(),
		open:     make(map[int]context.CancelCauseFunc),
	}
}

// Name identifies the provider in logs and reports.
func (p *PopupProvider) Name() string {
	return googleProviderName
}

// SetPrompt installs the hook that displays the popup. It is called once per
// sign-in, from the sign-in goroutine, as soon as the user code is known.
func (p *PopupProvider) SetPrompt(prompt func(DeviceCodeResponse)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompt = prompt
}

// ClosePopup dismisses every open popup. Pending sign-ins fail with domain.ErrPopupClosed.
func (p *PopupProvider) ClosePopup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, cancel := range p.open {
		cancel(domain.ErrPopupClosed)
		delete(p.open, id)
	}
}

func (p *PopupProvider) openPopup(ctx context.Context) (context.Context, func()) {
	popupCtx, cancel := context.WithCancelCause(ctx)
	p.mu.Lock()
	p.nextID++
	id := p.nextID
	p.open[id] = cancel
	p.mu.Unlock()
	return popupCtx, func() {
		p.mu.Lock()
		delete(p.open, id)
		p.mu.Unlock()
		cancel(nil)
	}
}

// SignInWithPopup runs one device authorization from code request to ID token.
func (p *PopupProvider) SignInWithPopup(ctx context.Context) (domain.Identity, error) {
	popupCtx, closePopup := p.openPopup(ctx)
	defer closePopup()

	code, err := p.flow.RequestCode(popupCtx)
	if err != nil {
		return domain.Identity{}, p.classify(popupCtx, fmt.Errorf("requesting device code: %w", err))
	}

	p.mu.Lock()
	prompt := p.prompt
	p.mu.Unlock()
	if prompt != nil {
		prompt(code)
	}
	p.logger.Debug().
		Str("verification_uri", code.VerificationURI).
		Int("expires_in", code.ExpiresIn).
		Msg("Popup opened")

	pollCtx := popupCtx
	if code.ExpiresIn > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(popupCtx, time.Duration(code.ExpiresIn)*time.Second)
		defer cancel()
	}

	tokens, err := p.flow.PollToken(pollCtx, code.DeviceCode, code.Interval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && popupCtx.Err() == nil {
			return domain.Identity{}, domain.ErrPopupExpired
		}
		return domain.Identity{}, p.classify(popupCtx, err)
	}

	identity, err := IdentityFromIDToken(tokens.IDToken, p.clientID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("reading identity: %w", err)
	}
	return identity, nil
}

// classify turns a cancellation caused by ClosePopup into domain.ErrPopupClosed.
func (p *PopupProvider) classify(popupCtx context.Context, err error) error {
	if cause := context.Cause(popupCtx); errors.Is(cause, domain.ErrPopupClosed) {
		return domain.ErrPopupClosed
	}
	return err
}
