package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/2pbal/account-billing/internal/api/middleware"
	"github.com/2pbal/account-billing/internal/core/domain"
)

// CookieOptions controls the attributes of the session cookie.
type CookieOptions struct {
	// Secure is set in production so the cookie only travels over TLS.
	Secure bool
}

func (o CookieOptions) set(c echo.Context, s *domain.Session) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    s.ID,
		Path:     "/",
		MaxAge:   int(domain.SessionTTL.Seconds()),
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (o CookieOptions) clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
