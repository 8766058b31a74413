package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// UserHandler serves the self-service account routes.
type UserHandler struct {
	accounts ports.AccountService
	cookies  CookieOptions
}

func NewUserHandler(accounts ports.AccountService, cookies CookieOptions) *UserHandler {
	return &UserHandler{accounts: accounts, cookies: cookies}
}

// UpdateProfile replaces the profile of the signed-in account.
//
// @Summary      Update profile
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        body  body      profileRequest  true  "Profile"
// @Success      200   {object}  accountResponse
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /users/profile [put]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	var req profileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := h.accounts.UpdateProfile(c.Request().Context(), account.ID, toProfile(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(updated))
}

// UpdatePreferences replaces the preferences of the signed-in account.
//
// @Summary      Update preferences
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        body  body      preferencesRequest  true  "Preferences"
// @Success      200   {object}  accountResponse
// @Router       /users/preferences [put]
func (h *UserHandler) UpdatePreferences(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	var req preferencesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := h.accounts.UpdatePreferences(c.Request().Context(), account.ID, toPreferences(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(updated))
}

// UpdateAvatar stores a reference to an already uploaded image.
//
// @Summary      Update avatar
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        body  body      avatarRequest  true  "Stored file reference"
// @Success      200   {object}  accountResponse
// @Router       /users/avatar [post]
func (h *UserHandler) UpdateAvatar(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	var req avatarRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	updated, err := h.accounts.UpdateAvatar(c.Request().Context(), account.ID, domain.Attachment{
		URL:      req.URL,
		PublicID: req.PublicID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(updated))
}

// ChangePassword rotates the password. The calling session survives; every
// other session of the account is revoked.
//
// @Summary      Change password
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      401   {object}  errorResponse
// @Router       /users/change-password [post]
func (h *UserHandler) ChangePassword(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	session, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.accounts.ChangePassword(c.Request().Context(), account.ID, session.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "password changed"})
}

// DeleteAccount removes the signed-in account after re-checking the password.
//
// @Summary      Delete account
// @Tags         users
// @Accept       json
// @Security     SessionCookie
// @Param        body  body  deleteAccountRequest  true  "Password confirmation"
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /users/account [delete]
func (h *UserHandler) DeleteAccount(c echo.Context) error {
	account, err := ctxAccount(c)
	if err != nil {
		return err
	}
	var req deleteAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.accounts.DeleteAccount(c.Request().Context(), account.ID, req.Password); err != nil {
		return err
	}
	h.cookies.clear(c)
	return c.NoContent(http.StatusNoContent)
}
