package router

import (
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	echoSwagger "github.com/swaggo/echo-swagger"

	"marketplace/internal/auth"
	"marketplace/internal/config"
	"marketplace/internal/errors"
	"marketplace/internal/handler"
	"marketplace/internal/logging"
	"marketplace/internal/metrics"
	appmw "marketplace/internal/middleware"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Post     *handler.PostHandler
	Category *handler.CategoryHandler
	Admin    *handler.AdminHandler
	Seed     *handler.SeedHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	log logrus.FieldLogger,
	jwtService *auth.JWTService,
	authn appmw.Authenticator,
	limiter *appmw.RateLimiter,
	h Handlers,
) {
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(logging.RequestLogger(log))
	e.Use(metrics.Middleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	// Add validator
	e.Validator = &CustomValidator{validator: validator.New()}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	requireAuth := appmw.RequireAuth(jwtService, authn)
	rateLimit := limiter.Middleware()

	api := e.Group("/api")

	// Auth routes
	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.Auth.Register, rateLimit)
	authGroup.POST("/login", h.Auth.Login, rateLimit)
	authGroup.POST("/refresh", h.Auth.Refresh, rateLimit)
	authGroup.GET("/me", h.Auth.Me, requireAuth)
	authGroup.POST("/logout", h.Auth.Logout, requireAuth)

	// Post routes
	api.GET("/posts", h.Post.ListPosts)
	api.GET("/posts/:id", h.Post.GetPost)
	api.POST("/posts", h.Post.CreatePost, requireAuth)
	api.PUT("/posts/:id", h.Post.UpdatePost, requireAuth)
	api.DELETE("/posts/:id", h.Post.DeletePost, requireAuth)
	api.POST("/posts/:id/like", h.Post.LikePost, requireAuth)
	api.POST("/posts/:id/replies", h.Post.AddReply, requireAuth)
	api.POST("/posts/:id/replies/:replyId/like", h.Post.LikeReply, requireAuth)

	// Category routes
	api.GET("/categories", h.Category.ListCategories)
	api.GET("/categories/:slug", h.Category.GetCategory)

	// User routes
	api.GET("/users/:username", h.User.GetProfile)
	api.PUT("/users/profile", h.User.UpdateProfile, requireAuth)
	api.POST("/users/:id/vouch", h.User.Vouch, requireAuth)
	api.POST("/users/:id/rep", h.User.Rep, requireAuth)

	// Admin routes. The services check the role again.
	admin := api.Group("/admin", requireAuth, appmw.RequireRoles(auth.RolesFor(auth.PermAdminPanel)...))
	admin.GET("/stats", h.Admin.Stats)
	admin.GET("/users", h.Admin.ListUsers)
	admin.PUT("/users/:id/role", h.Admin.UpdateRole)
	admin.PUT("/users/:id/ban", h.Admin.Ban)
	admin.PUT("/users/:id/unban", h.Admin.Unban)
	admin.GET("/posts", h.Admin.ListPosts)
	admin.GET("/categories", h.Category.ListAllCategories)
	admin.POST("/categories", h.Category.CreateCategory)
	admin.PUT("/categories/:id", h.Category.UpdateCategory)
	admin.DELETE("/categories/:id", h.Category.DeleteCategory)
	admin.POST("/seed", h.Seed.Seed)
}

// NewHTTPErrorHandler renders every error as errors.ErrorResponse and logs
// server faults together with their internal cause.
func NewHTTPErrorHandler(log logrus.FieldLogger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		he, ok := err.(*echo.HTTPError)
		if !ok {
			he = echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
		}

		body, ok := he.Message.(errors.ErrorResponse)
		if !ok {
			msg, _ := he.Message.(string)
			if msg == "" || he.Code >= http.StatusInternalServerError {
				msg = strings.ToLower(http.StatusText(he.Code))
			}
			body = errors.ErrorResponse{Error: msg, Code: statusCode(he.Code)}
		}

		if he.Code >= http.StatusInternalServerError {
			entry := log.WithFields(logrus.Fields{
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
				"method":     c.Request().Method,
				"route":      c.Path(),
				"status":     he.Code,
			})
			if he.Internal != nil {
				entry = entry.WithError(he.Internal)
			}
			entry.Error("server error")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(he.Code)
		} else {
			err = c.JSON(he.Code, body)
		}
		if err != nil {
			log.WithError(err).Warn("failed to write error response")
		}
	}
}

// statusCode derives an UPPER_SNAKE code from an HTTP status.
func statusCode(status int) string {
	if status >= http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
