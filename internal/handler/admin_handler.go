package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"marketplace/internal/middleware"
	"marketplace/internal/service"
)

// AdminHandler serves the admin dashboard.
type AdminHandler struct {
	svc service.AdminService
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(svc service.AdminService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// UpdateRoleRequest sets a user's role.
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// BanRequest bans a user. The reason is only logged.
type BanRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// Stats godoc
// @Summary Dashboard counters
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.Stats
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.svc.Stats(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, stats)
}

// ListUsers godoc
// @Summary List users, newest first
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.User
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, users)
}

// UpdateRole godoc
// @Summary Change a user's role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body UpdateRoleRequest true "New role"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id}/role [put]
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req UpdateRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.svc.UpdateRole(c.Request().Context(), middleware.PrincipalFrom(c), id, req.Role)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Ban godoc
// @Summary Ban a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body BanRequest false "Reason"
// @Success 200 {object} model.User
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id}/ban [put]
func (h *AdminHandler) Ban(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req BanRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.svc.Ban(c.Request().Context(), middleware.PrincipalFrom(c), id, req.Reason)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Unban godoc
// @Summary Lift a ban
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} model.User
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /admin/users/{id}/unban [put]
func (h *AdminHandler) Unban(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	user, err := h.svc.Unban(c.Request().Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// ListPosts godoc
// @Summary List posts, newest first
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Post
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/posts [get]
func (h *AdminHandler) ListPosts(c echo.Context) error {
	posts, err := h.svc.ListPosts(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, posts)
}
