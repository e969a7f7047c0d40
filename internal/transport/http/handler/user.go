package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"userapi/internal/app"
	"userapi/internal/model"
	"userapi/internal/transport/http/middleware"
	"userapi/internal/transport/http/response"
)

type UserService interface {
	CreateUser(ctx context.Context, input app.CreateUserInput) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	GetUser(ctx context.Context, id uint) (*model.User, error)
	UpdateUser(ctx context.Context, id uint, input app.UpdateUserInput) (*model.User, error)
	DeleteUser(ctx context.Context, id uint) error
}

type UserHandler struct {
	userService UserService
	log         zerolog.Logger
}

// UserRequest uses pointers so that absent keys can be told apart from
// present ones.
type UserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

func NewUserHandler(userService UserService, log zerolog.Logger) *UserHandler {
	return &UserHandler{userService: userService, log: log}
}

func (h *UserHandler) Create(c *gin.Context) {
	req, ok := bindUserRequest(c)
	if !ok {
		return
	}

	user, err := h.userService.CreateUser(c.Request.Context(), app.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		h.writeError(c, "error creating user", err)
		return
	}

	response.User(c, http.StatusCreated, "user created", user)
}

func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.ListUsers(c.Request.Context())
	if err != nil {
		h.writeError(c, "error getting users", err)
		return
	}

	c.JSON(http.StatusOK, users)
}

func (h *UserHandler) Get(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		response.Message(c, http.StatusNotFound, "user not found")
		return
	}

	user, err := h.userService.GetUser(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "error getting user", err)
		return
	}

	response.User(c, http.StatusOK, "", user)
}

func (h *UserHandler) Update(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		response.Message(c, http.StatusNotFound, "user not found")
		return
	}
	req, ok := bindUserRequest(c)
	if !ok {
		return
	}

	user, err := h.userService.UpdateUser(c.Request.Context(), id, app.UpdateUserInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		h.writeError(c, "error updating user", err)
		return
	}

	response.User(c, http.StatusOK, "user updated", user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := userID(c)
	if !ok {
		response.Message(c, http.StatusNotFound, "user not found")
		return
	}

	if err := h.userService.DeleteUser(c.Request.Context(), id); err != nil {
		h.writeError(c, "error deleting user", err)
		return
	}

	response.Message(c, http.StatusOK, "user deleted")
}

// writeError is the single place service outcomes become HTTP responses.
func (h *UserHandler) writeError(c *gin.Context, failureMessage string, err error) {
	var storeErr *app.StoreError
	switch {
	case errors.Is(err, app.ErrMissingFields):
		response.Message(c, http.StatusBadRequest, "Missing required fields")
	case errors.Is(err, app.ErrNoFieldsToUpdate):
		response.Message(c, http.StatusBadRequest, "No fields to update")
	case errors.Is(err, app.ErrEmptyField):
		response.Message(c, http.StatusBadRequest, "Fields must not be empty")
	case errors.Is(err, app.ErrUserNotFound):
		response.Message(c, http.StatusNotFound, "user not found")
	case errors.As(err, &storeErr):
		h.log.Error().Err(storeErr.Err).Str("op", storeErr.Op).Str("request_id", c.GetString(middleware.ContextRequestIDKey)).Msg(failureMessage)
		response.Error(c, http.StatusInternalServerError, failureMessage, storeErr)
	default:
		h.log.Error().Err(err).Str("request_id", c.GetString(middleware.ContextRequestIDKey)).Msg(failureMessage)
		response.Error(c, http.StatusInternalServerError, failureMessage, err)
	}
}

// bindUserRequest treats an empty body as one without fields. A body that is
// not a JSON object of strings is answered with 400 here.
func bindUserRequest(c *gin.Context) (UserRequest, bool) {
	var req UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return UserRequest{}, true
		}
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return UserRequest{}, false
	}
	return req, true
}

// userID rejects anything that is not a non-negative integer, mirroring a
// route that only matches integer ids.
func userID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, strconv.IntSize)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
