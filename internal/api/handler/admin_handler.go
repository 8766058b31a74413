package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/2pbal/account-billing/internal/core/domain"
	"github.com/2pbal/account-billing/internal/core/ports"
)

// AdminHandler serves the /admin routes. Mount it behind middleware.AdminOnly.
type AdminHandler struct {
	admin ports.AdminService
}

func NewAdminHandler(admin ports.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// ListUsers returns a page of accounts.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     SessionCookie
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Param        role    query     string  false  "Filter by role"
// @Param        search  query     string  false  "Match email or name"
// @Success      200     {object}  userListResponse
// @Failure      403     {object}  errorResponse
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	res, err := h.admin.ListUsers(c.Request().Context(), ports.ListUsersInput{
		Role:   c.QueryParam("role"),
		Search: c.QueryParam("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserListResponse(res))
}

// GetUser returns one account.
//
// @Summary      Get user
// @Tags         admin
// @Produce      json
// @Security     SessionCookie
// @Param        id   path      string  true  "Account ID"
// @Success      200  {object}  accountResponse
// @Failure      404  {object}  errorResponse
// @Router       /admin/users/{id} [get]
func (h *AdminHandler) GetUser(c echo.Context) error {
	account, err := h.admin.GetUser(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// ChangeRole sets the role of another account.
//
// @Summary      Change role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        id    path      string             true  "Account ID"
// @Param        body  body      changeRoleRequest  true  "New role"
// @Success      200   {object}  accountResponse
// @Failure      409   {object}  errorResponse
// @Router       /admin/users/{id}/role [put]
func (h *AdminHandler) ChangeRole(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req changeRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.admin.ChangeRole(c.Request().Context(), actor, c.Param("id"), domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// SetStatus activates or deactivates another account. Deactivation signs the
// account out everywhere.
//
// @Summary      Set account status
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     SessionCookie
// @Param        id    path      string            true  "Account ID"
// @Param        body  body      setStatusRequest  true  "Active flag"
// @Success      200   {object}  accountResponse
// @Failure      409   {object}  errorResponse
// @Router       /admin/users/{id}/status [put]
func (h *AdminHandler) SetStatus(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	var req setStatusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	account, err := h.admin.SetStatus(c.Request().Context(), actor, c.Param("id"), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(account))
}

// DeleteUser removes another account.
//
// @Summary      Delete user
// @Tags         admin
// @Security     SessionCookie
// @Param        id   path  string  true  "Account ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	actor, err := ctxActor(c)
	if err != nil {
		return err
	}
	if err := h.admin.DeleteUser(c.Request().Context(), actor, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ActivityLogs returns audit entries, newest first.
//
// @Summary      Activity logs
// @Tags         admin
// @Produce      json
// @Security     SessionCookie
// @Param        userId  query     string  false  "Only entries by this actor"
// @Param        limit   query     int     false  "Max entries (default 100, max 500)"
// @Success      200     {array}   activityResponse
// @Router       /admin/activity-logs [get]
func (h *AdminHandler) ActivityLogs(c echo.Context) error {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	entries, err := h.admin.ActivityLogs(c.Request().Context(), c.QueryParam("userId"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toActivityResponses(entries))
}

// queryInt reads an optional integer query parameter; absent means 0.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewValidationError(name, "must be an integer")
	}
	return n, nil
}
