package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"marketplace/internal/errors"
	"marketplace/internal/middleware"
	"marketplace/internal/repository"
	"marketplace/internal/service"
)

// PostHandler handles posts, replies and likes.
type PostHandler struct {
	svc service.PostService
}

// NewPostHandler creates a new post handler.
func NewPostHandler(svc service.PostService) *PostHandler {
	return &PostHandler{svc: svc}
}

// CreatePostRequest represents a new post.
type CreatePostRequest struct {
	Title    string          `json:"title" validate:"required,max=200"`
	Content  string          `json:"content" validate:"required"`
	Category string          `json:"category" validate:"required,uuid"`
	Tags     []string        `json:"tags" validate:"max=20,dive,max=50"`
	Price    decimal.Decimal `json:"price" swaggertype:"number"`
	IsFree   bool            `json:"isFree"`
}

// UpdatePostRequest represents a partial post edit.
type UpdatePostRequest struct {
	Title    string           `json:"title" validate:"max=200"`
	Content  string           `json:"content"`
	Category *string          `json:"category" validate:"omitempty,uuid"`
	Tags     []string         `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	Price    *decimal.Decimal `json:"price" swaggertype:"number"`
	IsFree   *bool            `json:"isFree"`
	IsSold   *bool            `json:"isSold"`
	IsPinned *bool            `json:"isPinned"`
}

// ReplyRequest represents a new reply.
type ReplyRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// LikesResponse returns the like list after a toggle.
type LikesResponse struct {
	Likes []uuid.UUID `json:"likes"`
}

// ListPosts godoc
// @Summary List posts
// @Tags posts
// @Produce json
// @Param category query string false "Category ID"
// @Param author query string false "Author ID"
// @Param q query string false "Search in title, content and tags"
// @Param sort query string false "latest, popular, price-low or price-high"
// @Success 200 {array} model.Post
// @Failure 400 {object} errors.ErrorResponse
// @Router /posts [get]
func (h *PostHandler) ListPosts(c echo.Context) error {
	filter := repository.PostFilter{
		Query: c.QueryParam("q"),
		Sort:  repository.ParsePostSort(c.QueryParam("sort")),
	}
	var err error
	if filter.CategoryID, err = optionalUUID(c.QueryParam("category")); err != nil {
		return invalidQuery("category")
	}
	if filter.AuthorID, err = optionalUUID(c.QueryParam("author")); err != nil {
		return invalidQuery("author")
	}

	posts, err := h.svc.List(c.Request().Context(), filter)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, posts)
}

func optionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func invalidQuery(name string) error {
	return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
		Error: "invalid " + name,
		Code:  "INVALID_UUID",
	})
}

// GetPost godoc
// @Summary Get a post with its replies
// @Tags posts
// @Produce json
// @Param id path string true "Post ID"
// @Success 200 {object} model.Post
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [get]
func (h *PostHandler) GetPost(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	post, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// CreatePost godoc
// @Summary Create a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreatePostRequest true "Post data"
// @Success 201 {object} model.Post
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts [post]
func (h *PostHandler) CreatePost(c echo.Context) error {
	var req CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	post, err := h.svc.Create(c.Request().Context(), middleware.PrincipalFrom(c), service.CreatePostInput{
		Title:      req.Title,
		Content:    req.Content,
		CategoryID: uuid.MustParse(req.Category),
		Tags:       req.Tags,
		Price:      req.Price,
		IsFree:     req.IsFree,
	})
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, post)
}

// UpdatePost godoc
// @Summary Update a post
// @Description Only the author or a moderator may edit. Pinning is for moderators.
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body UpdatePostRequest true "Fields to change"
// @Success 200 {object} model.Post
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [put]
func (h *PostHandler) UpdatePost(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req UpdatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := service.UpdatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Tags:     req.Tags,
		Price:    req.Price,
		IsFree:   req.IsFree,
		IsSold:   req.IsSold,
		IsPinned: req.IsPinned,
	}
	if req.Category != nil {
		categoryID := uuid.MustParse(*req.Category)
		in.CategoryID = &categoryID
	}

	post, err := h.svc.Update(c.Request().Context(), middleware.PrincipalFrom(c), id, in)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost godoc
// @Summary Delete a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id} [delete]
func (h *PostHandler) DeletePost(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), middleware.PrincipalFrom(c), id); err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "post deleted"})
}

// LikePost godoc
// @Summary Toggle a like on a post
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Success 200 {object} LikesResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id}/like [post]
func (h *PostHandler) LikePost(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	likes, err := h.svc.ToggleLike(c.Request().Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, likesResponse(likes))
}

// AddReply godoc
// @Summary Reply to a post
// @Tags posts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param request body ReplyRequest true "Reply"
// @Success 201 {array} model.Reply
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id}/replies [post]
func (h *PostHandler) AddReply(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req ReplyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	replies, err := h.svc.AddReply(c.Request().Context(), middleware.PrincipalFrom(c), id, req.Content)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusCreated, replies)
}

// LikeReply godoc
// @Summary Toggle a like on a reply
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Post ID"
// @Param replyId path string true "Reply ID"
// @Success 200 {object} LikesResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /posts/{id}/replies/{replyId}/like [post]
func (h *PostHandler) LikeReply(c echo.Context) error {
	postID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	replyID, err := uuidParam(c, "replyId")
	if err != nil {
		return err
	}

	likes, err := h.svc.ToggleReplyLike(c.Request().Context(), middleware.PrincipalFrom(c), postID, replyID)
	if err != nil {
		return respondError(err)
	}
	return c.JSON(http.StatusOK, likesResponse(likes))
}

func likesResponse(likes []uuid.UUID) LikesResponse {
	if likes == nil {
		likes = []uuid.UUID{}
	}
	return LikesResponse{Likes: likes}
}
