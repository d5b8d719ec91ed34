package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role identifies which actor type a session belongs to.
type Role string

const (
	RoleDoctor     Role = "doctor"
	RolePatient    Role = "patient"
	RolePharmacist Role = "pharmacist"
)

// Actor is the authenticated identity threaded through request handling.
// Handlers receive it explicitly instead of reading shared request state.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// Cookie names mirror one browser session per role: a patient and a doctor
// can be signed in side by side without clobbering each other.
var cookieNames = map[Role]string{
	RoleDoctor:     "jwt",
	RolePatient:    "jwt_patient",
	RolePharmacist: "jwt_pharmacist",
}

type actorContextKey struct{}

// WithActor stores the authenticated actor on the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the authenticated actor if present.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// SessionManager issues and verifies role-scoped HMAC-signed session cookies.
type SessionManager struct {
	secrets map[Role][]byte
	ttl     time.Duration
	secure  bool
	revoked RevocationStore
}

// SessionConfig carries the per-role secrets and cookie policy.
type SessionConfig struct {
	DoctorSecret     string
	PatientSecret    string
	PharmacistSecret string
	TTL              time.Duration
	Secure           bool
}

// NewSessionManager builds a session manager. revoked may be nil, in which
// case logout clears the cookie but tokens stay valid until expiry.
func NewSessionManager(cfg SessionConfig, revoked RevocationStore) *SessionManager {
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if revoked == nil {
		revoked = NoopRevocationStore{}
	}
	return &SessionManager{
		secrets: map[Role][]byte{
			RoleDoctor:     []byte(cfg.DoctorSecret),
			RolePatient:    []byte(cfg.PatientSecret),
			RolePharmacist: []byte(cfg.PharmacistSecret),
		},
		ttl:     cfg.TTL,
		secure:  cfg.Secure,
		revoked: revoked,
	}
}

// Issue signs a session token for the subject and sets it as a cookie.
func (m *SessionManager) Issue(w http.ResponseWriter, role Role, subject uuid.UUID) (string, error) {
	secret := m.secrets[role]
	if len(secret) == 0 {
		return "", fmt.Errorf("auth: no signing secret configured for role %q", role)
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign session token: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieNames[role],
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

// Verify authenticates the request's cookie for the given role.
func (m *SessionManager) Verify(ctx context.Context, r *http.Request, role Role) (Actor, error) {
	cookie, err := r.Cookie(cookieNames[role])
	if err != nil || cookie.Value == "" {
		return Actor{}, ErrNoSession
	}

	claims, err := m.parse(cookie.Value, role)
	if err != nil {
		return Actor{}, err
	}

	revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return Actor{}, fmt.Errorf("auth: revocation lookup: %w", err)
	}
	if revoked {
		return Actor{}, ErrInvalidSession
	}

	subject, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, ErrInvalidSession
	}
	return Actor{ID: subject, Role: role}, nil
}

// Clear revokes the request's session (if one is present) and expires the cookie.
func (m *SessionManager) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request, role Role) {
	if cookie, err := r.Cookie(cookieNames[role]); err == nil && cookie.Value != "" {
		if claims, err := m.parse(cookie.Value, role); err == nil && claims.ExpiresAt != nil {
			// Best effort: an unreachable revocation store must not block logout.
			_ = m.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieNames[role],
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (m *SessionManager) parse(token string, role Role) (*jwt.RegisteredClaims, error) {
	secret := m.secrets[role]
	if len(secret) == 0 {
		return nil, ErrInvalidSession
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
