package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/waabox/autolog/internal/domain"
)

const googleProviderName = "google"

var (
	errMissingSubject = errors.New("id token has no subject")
	errWrongAudience  = errors.New("id token was issued for another client")
	errTokenExpired   = errors.New("id token has expired")
)

type idTokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// IdentityFromIDToken decodes the claims of an OpenID Connect ID token into an identity.
// The signature is not checked: the token is only accepted straight from the
// provider's token endpoint over TLS. When clientID is set the token's audience
// must contain it.
func IdentityFromIDToken(raw string, clientID string) (domain.Identity, error) {
	var claims idTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return domain.Identity{}, fmt.Errorf("parsing id token: %w", err)
	}
	if claims.Subject == "" {
		return domain.Identity{}, errMissingSubject
	}
	if clientID != "" && !audienceContains(claims.Audience, clientID) {
		return domain.Identity{}, errWrongAudience
	}
	if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
		return domain.Identity{}, errTokenExpired
	}
	return domain.Identity{
		Subject:  claims.Subject,
		Email:    claims.Email,
		Name:     claims.Name,
		Provider: googleProviderName,
		IDToken:  raw,
	}, nil
}

func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, a := range aud {
		if a == value {
			return true
		}
	}
	return false
}
