// Package auth signs users in against the seeded user table and guards
// echo routes with HS256 bearer tokens and role checks.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mesh-intelligence/minicrm/internal/logger"
	"github.com/mesh-intelligence/minicrm/internal/metrics"
	"github.com/mesh-intelligence/minicrm/pkg/types"
)

// claimsKey is the echo context key holding validated claims.
const claimsKey = "claims"

// Token errors.
var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Claims are the token claims issued at login.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Manager verifies passwords and issues and validates tokens.
type Manager struct {
	users     types.UserTable
	key       []byte
	generated bool
	ttl       time.Duration
	now       func() time.Time
	metrics   *metrics.Metrics
}

// NewManager returns a Manager for users. An empty signingKey is replaced
// by a random key, so tokens do not survive a restart.
func NewManager(users types.UserTable, signingKey string, ttl time.Duration, m *metrics.Metrics) (*Manager, error) {
	mgr := &Manager{users: users, key: []byte(signingKey), ttl: ttl, now: time.Now, metrics: m}
	if signingKey == "" {
		mgr.key = make([]byte, 32)
		if _, err := rand.Read(mgr.key); err != nil {
			return nil, fmt.Errorf("generating signing key: %w", err)
		}
		mgr.generated = true
	}
	return mgr, nil
}

// GeneratedKey reports whether the signing key was generated at start-up.
func (m *Manager) GeneratedKey() bool { return m.generated }

// SetClock replaces the time source used for issuing and validating tokens.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// Login checks username and password and returns a signed token with the
// user. Unknown users and wrong passwords both return
// ErrInvalidCredentials.
func (m *Manager) Login(username, password string) (string, *types.User, error) {
	u, err := m.users.GetByUsername(username)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			m.metrics.LoginAttempt("failure")
			return "", nil, types.ErrInvalidCredentials
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		m.metrics.LoginAttempt("failure")
		return "", nil, types.ErrInvalidCredentials
	}

	token, err := m.Issue(u)
	if err != nil {
		return "", nil, err
	}
	m.metrics.LoginAttempt("success")
	return token, u, nil
}

// Issue signs a token for u.
func (m *Manager) Issue(u *types.User) (string, error) {
	now := m.now()
	claims := Claims{
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns its claims.
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || !types.IsValidRole(claims.Role) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Middleware rejects requests without a valid "Bearer <token>"
// Authorization header and stores the claims for ClaimsFromEcho.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			scheme, token, ok := strings.Cut(c.Request().Header.Get(echo.HeaderAuthorization), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				log.Warn("missing or malformed authorization header")
				return echo.NewHTTPError(http.StatusUnauthorized, ErrMissingToken.Error())
			}

			claims, err := m.Parse(token)
			if err != nil {
				log.Warn("rejected token", zap.Error(err))
				return echo.NewHTTPError(http.StatusUnauthorized, ErrInvalidToken.Error())
			}

			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// RequireRole allows the request only when the caller's role is one of
// roles. It must run after Middleware.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFromEcho(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, ErrMissingToken.Error())
			}
			if !slices.Contains(roles, claims.Role) {
				logger.FromEcho(c).Warn("role not allowed",
					zap.String("username", claims.Username),
					zap.String("role", claims.Role),
				)
				return echo.NewHTTPError(http.StatusForbidden, types.ErrForbidden.Error())
			}
			return next(c)
		}
	}
}

// ClaimsFromEcho returns the claims stored by Middleware.
func ClaimsFromEcho(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(claimsKey).(*Claims)
	return claims, ok
}
