package domain

// AuthOutcome is the result of one sign-in attempt: either Success(identity)
// or Failure(err). The zero value is a failure with ErrUnknownFailure.
type AuthOutcome struct {
	identity Identity
	err      error
	ok       bool
}

// Success wraps an identity issued by the provider.
func Success(identity Identity) AuthOutcome {
	return AuthOutcome{identity: identity, ok: true}
}

// Failure wraps the provider's error. A nil err becomes ErrUnknownFailure.
func Failure(err error) AuthOutcome {
	if err == nil {
		err = ErrUnknownFailure
	}
	return AuthOutcome{err: err}
}

// OutcomeOf builds an outcome from a provider's (identity, error) pair.
func OutcomeOf(identity Identity, err error) AuthOutcome {
	if err != nil {
		return Failure(err)
	}
	return Success(identity)
}

// Succeeded reports whether the outcome carries an identity.
func (o AuthOutcome) Succeeded() bool {
	return o.ok
}

// Identity returns the identity and true for a success.
func (o AuthOutcome) Identity() (Identity, bool) {
	if !o.ok {
		return Identity{}, false
	}
	return o.identity, true
}

// Err returns the failure detail, or nil for a success.
func (o AuthOutcome) Err() error {
	if o.ok {
		return nil
	}
	if o.err == nil {
		return ErrUnknownFailure
	}
	return o.err
}
