package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/2pbal/account-billing/internal/api/metrics"
	"github.com/2pbal/account-billing/internal/api/middleware"
	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	cookies     CookieOptions
}

func NewAuthHandler(authService ports.AuthService, cookies CookieOptions) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies}
}

// Signup creates a standard account and signs it in.
//
// @Summary      Sign up
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      signupRequest  true  "Registration details"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Signup(c.Request().Context(), ports.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Profile: domain.Profile{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Company:   req.Company,
		},
	})
	if err != nil {
		return err
	}

	h.cookies.set(c, res.Session)
	return c.JSON(http.StatusCreated, authResponse{
		Account:   toAccountResponse(res.Account),
		ExpiresAt: res.Session.ExpiresAt.UTC(),
	})
}

// Login verifies credentials and sets the session cookie.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		return err
	}
	metrics.LoginsTotal.WithLabelValues("ok").Inc()

	h.cookies.set(c, res.Session)
	return c.JSON(http.StatusOK, authResponse{
		Account:   toAccountResponse(res.Account),
		ExpiresAt: res.Session.ExpiresAt.UTC(),
	})
}

// Logout revokes the current session and clears the cookie. It succeeds
// without a session.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  messageResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if token := middleware.SessionToken(c); token != "" {
		if err := h.authService.Logout(c.Request().Context(), token); err != nil {
			return err
		}
	}
	h.cookies.clear(c)
	return c.JSON(http.StatusOK, messageResponse{Message: "logged out"})
}

// Me returns the signed-in account.
//
// @Summary      Current account
// @Tags         auth
// @Produce      json
// @Security     SessionCookie
// @Success      200  {object}  accountResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// VerifyEmail consumes an email verification token.
//
// @Summary      Verify email
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      verifyEmailRequest  true  "Verification token"
// @Success      200   {object}  accountResponse
// @Failure      400   {object}  errorResponse
// @Router       /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.authService.VerifyEmail(c.Request().Context(), req.Token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}
