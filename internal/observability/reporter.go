package observability

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/waabox/autolog/internal/domain"
)

// FailureReporter writes one log entry per failed sign-in. Users dismissing
// the popup are logged as warnings; everything else is an error, which the
// production logger forwards to Sentry.
type FailureReporter struct {
	logger zerolog.Logger
}

// NewFailureReporter creates a FailureReporter.
func NewFailureReporter(logger zerolog.Logger) *FailureReporter {
	return &FailureReporter{logger: logger.With().Str("component", "signin-report").Logger()}
}

// ReportFailure records a failed attempt.
func (r *FailureReporter) ReportFailure(_ context.Context, provider string, attemptID string, err error) {
	event := r.logger.Error()
	if domain.IsUserCancellation(err) {
		event = r.logger.Warn()
	}
	event.Err(err).
		Str("provider", provider).
		Str("attempt_id", attemptID).
		Msg("Sign-in failed")
}
