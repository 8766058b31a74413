package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// SessionCookie carries the opaque session token.
const SessionCookie = "session"

// Context keys set by Auth and RBAC.
const (
	AccountKey = "account"
	SessionKey = "session"
)

// Auth resolves the session token and injects the account and session into
// the context. Any signed-in role is accepted.
func Auth(authz ports.Authorizer) echo.MiddlewareFunc {
	return authorize(authz, nil)
}

func authorize(authz ports.Authorizer, allowed []domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := SessionToken(c)
			if token == "" {
				return domain.ErrUnauthenticated
			}

			action := c.Request().Method + " " + c.Path()
			account, session, err := authz.Authorize(c.Request().Context(), token, allowed, Origin(c), action)
			if err != nil {
				return err
			}

			c.Set(AccountKey, account)
			c.Set(SessionKey, session)
			return next(c)
		}
	}
}

// SessionToken reads the session cookie, falling back to a bearer
// Authorization header for non-browser clients.
func SessionToken(c echo.Context) string {
	if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
		return ck.Value
	}

	parts := strings.SplitN(c.Request().Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// Origin describes the caller of the current request.
func Origin(c echo.Context) domain.Origin {
	rid := c.Request().Header.Get(echo.HeaderXRequestID)
	if rid == "" {
		rid = c.Response().Header().Get(echo.HeaderXRequestID)
	}
	return domain.Origin{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		RequestID: rid,
	}
}
