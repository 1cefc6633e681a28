package service

import (
	"context"
	"errors"
	"sync"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// ErrMissingCredentials is returned when username or password is empty
var ErrMissingCredentials = errors.New("username and password are required")

const (
	adminUsername = "admin"
	adminPassword = "admin"

	defaultSessionMinutes = 60
)

// AdminUser is the placeholder identity for the local admin login
func AdminUser() *models.User {
	return &models.User{
		ID:        999,
		Username:  "admin",
		FirstName: "Admin",
		LastName:  "User",
		Token:     "fake-jwt-token-for-admin-access",
	}
}

// AuthGate holds the session that gates catalog and checkout access. It is a
// UI gate: tokens are stored as received and never verified or refreshed.
type AuthGate struct {
	mu       sync.Mutex
	session  models.Session
	identity IdentityProvider
	logger   *zap.Logger
}

// NewAuthGate creates an unauthenticated gate
func NewAuthGate(identity IdentityProvider) *AuthGate {
	return &AuthGate{
		identity: identity,
		logger:   util.ComponentLogger("auth"),
	}
}

// Login authenticates creds. admin/admin is settled locally; anything else is
// delegated to the identity provider. A failed login records the provider's
// message and leaves Authenticated untouched.
func (g *AuthGate) Login(ctx context.Context, creds models.Credentials) (models.Session, error) {
	if creds.Username == "" || creds.Password == "" {
		return g.Session(), ErrMissingCredentials
	}
	if creds.ExpiresInMins <= 0 {
		creds.ExpiresInMins = defaultSessionMinutes
	}

	if creds.Username == adminUsername && creds.Password == adminPassword {
		g.mu.Lock()
		g.session = models.Session{Authenticated: true, User: AdminUser()}
		session := copySession(g.session)
		g.mu.Unlock()

		util.LoginAttemptsTotal.WithLabelValues("local", "success").Inc()
		g.logger.Info("Local admin session created")
		return session, nil
	}

	g.mu.Lock()
	g.session.Loading = true
	g.session.Error = ""
	g.mu.Unlock()

	ctx, span := util.StartSpan(ctx, "AuthGate.Login")
	defer span.End()

	user, err := g.identity.Login(ctx, creds)

	g.mu.Lock()
	defer g.mu.Unlock()

	g.session.Loading = false
	if err != nil {
		util.RecordError(span, err)
		util.LoginAttemptsTotal.WithLabelValues("delegated", "failure").Inc()
		g.session.Error = err.Error()
		g.logger.Info("Login rejected", zap.String("username", creds.Username), zap.Error(err))
		return copySession(g.session), err
	}

	g.session = models.Session{Authenticated: true, User: user}
	util.LoginAttemptsTotal.WithLabelValues("delegated", "success").Inc()
	g.logger.Info("User logged in", zap.String("username", user.Username))
	return copySession(g.session), nil
}

// Logout drops the session
func (g *AuthGate) Logout() models.Session {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.session = models.Session{}
	return g.session
}

// ClearError drops the last login error
func (g *AuthGate) ClearError() models.Session {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.session.Error = ""
	return copySession(g.session)
}

// Session returns a copy of the current session
func (g *AuthGate) Session() models.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	return copySession(g.session)
}

// Authenticated reports whether gated views may be shown
func (g *AuthGate) Authenticated() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.session.Authenticated
}

func copySession(s models.Session) models.Session {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}
