package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketplace-api/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	userIDKey = "user_id"
	roleKey   = "role"

	WebhookSecretHeader = "X-Webhook-Secret"
)

// Claims are the bearer token claims issued to marketplace users.
type Claims struct {
	UserID uint `json:"uid"`
	Role   int  `json:"role"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for the given user.
func IssueToken(secret string, actor model.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: actor.UserID,
		Role:   int(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", actor.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func parseToken(secret, raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// AuthMiddleware validates the Authorization bearer token and stores the caller on the context.
func AuthMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := parseToken(secret, raw)
			if err != nil || claims.UserID == 0 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(userIDKey, claims.UserID)
			c.Set(roleKey, model.Role(claims.Role))
			return next(c)
		}
	}
}

// ActorFrom returns the caller stored by AuthMiddleware.
func ActorFrom(c echo.Context) (model.Actor, bool) {
	id, ok := c.Get(userIDKey).(uint)
	if !ok {
		return model.Actor{}, false
	}
	role, _ := c.Get(roleKey).(model.Role)
	return model.Actor{UserID: id, Role: role}, true
}

func requireRole(allowed func(model.Role) bool, msg string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
			}
			if !allowed(actor.Role) {
				return echo.NewHTTPError(http.StatusForbidden, msg)
			}
			return next(c)
		}
	}
}

func RequireVendor() echo.MiddlewareFunc {
	return requireRole(model.Role.IsVendor, "vendor role required")
}

func RequireAdmin() echo.MiddlewareFunc {
	return requireRole(model.Role.IsAdmin, "admin role required")
}

// WebhookSecret rejects provider callbacks that do not carry the shared secret.
// An empty secret disables the endpoint.
func WebhookSecret(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "webhook not configured")
			}
			got := c.Request().Header.Get(WebhookSecretHeader)
			if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid webhook secret")
			}
			return next(c)
		}
	}
}
