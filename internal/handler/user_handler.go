package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"marketplace/internal/middleware"
	"marketplace/internal/model"
	"marketplace/internal/service"
)

// UserHandler exposes profiles, vouches and reputation.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// UpdateProfileRequest holds profile edits. Omitted fields are left as they are.
type UpdateProfileRequest struct {
	Email     string `json:"email" validate:"omitempty,email"`
	Bio       string `json:"bio" validate:"max=500"`
	CustomURL string `json:"customUrl" validate:"omitempty,min=3,max=64"`
	Avatar    string `json:"avatar" validate:"omitempty,url,max=512"`
}

// VouchResponse returns the vouch sets of the target after a toggle.
type VouchResponse struct {
	Vouches model.VouchSet `json:"vouches"`
}

// RepResponse returns the target's reputation after an increment.
type RepResponse struct {
	Reputation int `json:"reputation"`
}

// GetProfile godoc
// @Summary Public profile
// @Tags users
// @Produce json
// @Param username path string true "Username"
// @Success 200 {object} service.PublicProfile
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{username} [get]
func (h *UserHandler) GetProfile(c echo.Context) error {
	profile, err := h.svc.GetProfile(c.Request().Context(), c.Param("username"))
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, profile)
}

// UpdateProfile godoc
// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /users/profile [put]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	var req UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.svc.UpdateProfile(c.Request().Context(), middleware.PrincipalFrom(c), service.UpdateProfileInput{
		Email:     req.Email,
		Bio:       req.Bio,
		CustomURL: req.CustomURL,
		Avatar:    req.Avatar,
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, user)
}

// Vouch godoc
// @Summary Toggle a vouch for a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} VouchResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/vouch [post]
func (h *UserHandler) Vouch(c echo.Context) error {
	target, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	set, err := h.svc.ToggleVouch(c.Request().Context(), middleware.PrincipalFrom(c), target)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, VouchResponse{Vouches: *set})
}

// Rep godoc
// @Summary Give a user one reputation point
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} RepResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /users/{id}/rep [post]
func (h *UserHandler) Rep(c echo.Context) error {
	target, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	reputation, err := h.svc.GiveRep(c.Request().Context(), middleware.PrincipalFrom(c), target)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, RepResponse{Reputation: reputation})
}
