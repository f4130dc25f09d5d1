package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"marketplace/internal/repository"
	"marketplace/internal/seed"
)

// SeedHandler handles seed data endpoints.
type SeedHandler struct {
	store repository.Store
	log   logrus.FieldLogger
}

// NewSeedHandler creates a new seed handler.
func NewSeedHandler(store repository.Store, log logrus.FieldLogger) *SeedHandler {
	return &SeedHandler{store: store, log: log}
}

// SeedResponse represents the seed response.
type SeedResponse struct {
	Message           string `json:"message"`
	CategoriesSeeded  int    `json:"categoriesSeeded"`
	CategoriesUpdated int    `json:"categoriesUpdated"`
	UsersSeeded       int    `json:"usersSeeded"`
	PostsSeeded       int    `json:"postsSeeded"`
}

// Seed godoc
// @Summary Seed default categories, accounts and sample posts
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SeedResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/seed [post]
func (h *SeedHandler) Seed(c echo.Context) error {
	res, err := seed.Run(c.Request().Context(), h.store, h.log)
	if err != nil {
		return respondError(err)
	}

	return c.JSON(http.StatusOK, SeedResponse{
		Message:           "database seeded successfully",
		CategoriesSeeded:  res.CategoriesSeeded,
		CategoriesUpdated: res.CategoriesUpdated,
		UsersSeeded:       res.UsersSeeded,
		PostsSeeded:       res.PostsSeeded,
	})
}
