package auth

import (
	"context"
	"strings"

	"google.golang.org/api/idtoken"

	"github.com/mediflow/clinic-platform/internal/identity"
)

// GoogleVerifier validates a Google ID token and extracts the profile
// claims the patient flow needs.
type GoogleVerifier interface {
	Verify(ctx context.Context, rawToken string) (identity.GoogleProfile, error)
}

// IDTokenVerifier verifies tokens against Google's public keys.
type IDTokenVerifier struct {
	audience string
}

// NewIDTokenVerifier builds a verifier bound to the OAuth client id.
func NewIDTokenVerifier(clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{audience: clientID}
}

// Verify validates signature, audience, and expiry, and requires a
// verified email claim.
func (v *IDTokenVerifier) Verify(ctx context.Context, rawToken string) (identity.GoogleProfile, error) {
	payload, err := idtoken.Validate(ctx, rawToken, v.audience)
	if err != nil {
		return identity.GoogleProfile{}, ErrInvalidIDToken
	}

	email, _ := payload.Claims["email"].(string)
	if strings.TrimSpace(email) == "" {
		return identity.GoogleProfile{}, ErrInvalidIDToken
	}
	if verified, _ := payload.Claims["email_verified"].(bool); !verified {
		return identity.GoogleProfile{}, ErrEmailNotVerified
	}

	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	return identity.GoogleProfile{
		Subject:   payload.Subject,
		Email:     email,
		Name:      name,
		AvatarURL: picture,
	}, nil
}
