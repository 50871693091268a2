package domain

import "context"

// Identity is the user identity issued by an identity provider.
// It is handed to the host unmodified; the sign-in flow never inspects it.
type Identity struct {
	Subject  string
	Email    string
	Name     string
	Provider string
	IDToken  string
}

// DisplayName returns the best human-readable label for the identity.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	if i.Email != "" {
		return i.Email
	}
	return i.Subject
}

// IdentityProvider is the external collaborator that authenticates a user.
// SignInWithPopup blocks until the user finishes (or abandons) the popup flow
// or ctx is done, and yields exactly one result.
type IdentityProvider interface {
	Name() string
	SignInWithPopup(ctx context.Context) (Identity, error)
}
