package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"userapi/internal/app"
	"userapi/internal/model"
	"userapi/internal/transport/http/handler"
)

type mockUserService struct{ mock.Mock }

func (m *mockUserService) CreateUser(ctx context.Context, input app.CreateUserInput) (*model.User, error) {
	args := m.Called(ctx, input)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *mockUserService) ListUsers(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]model.User)
	return users, args.Error(1)
}

func (m *mockUserService) GetUser(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *mockUserService) UpdateUser(ctx context.Context, id uint, input app.UpdateUserInput) (*model.User, error) {
	args := m.Called(ctx, id, input)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *mockUserService) DeleteUser(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func newContext(t *testing.T, method, path, body string, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)

	req, err := http.NewRequest(method, path, bytes.NewBufferString(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	ctx.Request = req
	ctx.Params = params
	return ctx, w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func idParam(id string) gin.Params {
	return gin.Params{{Key: "id", Value: id}}
}

func TestCreate(t *testing.T) {
	ctx, w := newContext(t, http.MethodPost, "/users", `{"username":"alice","email":"alice@example.com"}`, nil)

	svc := new(mockUserService)
	svc.On("CreateUser", mock.Anything, mock.MatchedBy(func(in app.CreateUserInput) bool {
		return in.Username != nil && *in.Username == "alice" && in.Email != nil && *in.Email == "alice@example.com"
	})).Return(&model.User{ID: 1, Username: "alice", Email: "alice@example.com"}, nil)

	handler.NewUserHandler(svc, zerolog.Nop()).Create(ctx)

	assert.Equal(t, http.StatusCreated, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "user created", resp["message"])
	assert.Equal(t, map[string]any{"id": float64(1), "username": "alice", "email": "alice@example.com"}, resp["user"])
	svc.AssertExpectations(t)
}

func TestCreate_MissingFields(t *testing.T) {
	for _, body := range []string{`{}`, `{"username":"a"}`, ``, `null`} {
		ctx, w := newContext(t, http.MethodPost, "/users", body, nil)

		svc := new(mockUserService)
		svc.On("CreateUser", mock.Anything, mock.Anything).Return(nil, app.ErrMissingFields)

		handler.NewUserHandler(svc, zerolog.Nop()).Create(ctx)

		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, map[string]any{"message": "Missing required fields"}, decode(t, w))
	}
}

func TestCreate_StoreError(t *testing.T) {
	ctx, w := newContext(t, http.MethodPost, "/users", `{"username":"alice","email":"alice@example.com"}`, nil)

	svc := new(mockUserService)
	svc.On("CreateUser", mock.Anything, mock.Anything).
		Return(nil, &app.StoreError{Op: "create", Err: errors.New("UNIQUE constraint failed: users.username")})

	handler.NewUserHandler(svc, zerolog.Nop()).Create(ctx)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{
		"message": "error creating user",
		"error":   "UNIQUE constraint failed: users.username",
	}, decode(t, w))
}

func TestCreateAndUpdate_InvalidBody(t *testing.T) {
	for _, body := range []string{`not json`, `{"username":123}`, `{"username":"a","email":["b"]}`, `[]`} {
		svc := new(mockUserService)
		h := handler.NewUserHandler(svc, zerolog.Nop())

		ctx, w := newContext(t, http.MethodPost, "/users", body, nil)
		h.Create(ctx)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "invalid request body", decode(t, w)["message"], body)

		ctx, w = newContext(t, http.MethodPut, "/users/3", body, idParam("3"))
		h.Update(ctx)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
		assert.Equal(t, "invalid request body", decode(t, w)["message"], body)

		svc.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
		svc.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestList(t *testing.T) {
	ctx, w := newContext(t, http.MethodGet, "/users", "", nil)

	svc := new(mockUserService)
	svc.On("ListUsers", mock.Anything).Return([]model.User{}, nil)

	handler.NewUserHandler(svc, zerolog.Nop()).List(ctx)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestList_StoreError(t *testing.T) {
	ctx, w := newContext(t, http.MethodGet, "/users", "", nil)

	svc := new(mockUserService)
	svc.On("ListUsers", mock.Anything).Return(nil, &app.StoreError{Op: "list", Err: errors.New("database is closed")})

	handler.NewUserHandler(svc, zerolog.Nop()).List(ctx)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "error getting users", decode(t, w)["message"])
}

func TestGet(t *testing.T) {
	ctx, w := newContext(t, http.MethodGet, "/users/7", "", idParam("7"))

	svc := new(mockUserService)
	svc.On("GetUser", mock.Anything, uint(7)).Return(&model.User{ID: 7, Username: "g", Email: "g@example.com"}, nil)

	handler.NewUserHandler(svc, zerolog.Nop()).Get(ctx)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":{"id":7,"username":"g","email":"g@example.com"}}`, w.Body.String())
}

func TestGet_NotFound(t *testing.T) {
	ctx, w := newContext(t, http.MethodGet, "/users/7", "", idParam("7"))

	svc := new(mockUserService)
	svc.On("GetUser", mock.Anything, uint(7)).Return(nil, app.ErrUserNotFound)

	handler.NewUserHandler(svc, zerolog.Nop()).Get(ctx)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, map[string]any{"message": "user not found"}, decode(t, w))
}

func TestGet_NonIntegerIDIsNotFound(t *testing.T) {
	for _, id := range []string{"abc", "-1", "1.5"} {
		ctx, w := newContext(t, http.MethodGet, "/users/"+id, "", idParam(id))

		svc := new(mockUserService)
		handler.NewUserHandler(svc, zerolog.Nop()).Get(ctx)

		assert.Equal(t, http.StatusNotFound, w.Code, id)
		svc.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	}
}

func TestUpdate(t *testing.T) {
	ctx, w := newContext(t, http.MethodPut, "/users/3", `{"email":"new@x.com"}`, idParam("3"))

	svc := new(mockUserService)
	svc.On("UpdateUser", mock.Anything, uint(3), mock.MatchedBy(func(in app.UpdateUserInput) bool {
		return in.Username == nil && in.Email != nil && *in.Email == "new@x.com"
	})).Return(&model.User{ID: 3, Username: "u", Email: "new@x.com"}, nil)

	handler.NewUserHandler(svc, zerolog.Nop()).Update(ctx)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"user updated","user":{"id":3,"username":"u","email":"new@x.com"}}`, w.Body.String())
	svc.AssertExpectations(t)
}

func TestUpdate_Outcomes(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"no fields", app.ErrNoFieldsToUpdate, http.StatusBadRequest, "No fields to update"},
		{"empty field", app.ErrEmptyField, http.StatusBadRequest, "Fields must not be empty"},
		{"not found", app.ErrUserNotFound, http.StatusNotFound, "user not found"},
		{"store", &app.StoreError{Op: "update", Err: errors.New("locked")}, http.StatusInternalServerError, "error updating user"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, w := newContext(t, http.MethodPut, "/users/3", `{}`, idParam("3"))

			svc := new(mockUserService)
			svc.On("UpdateUser", mock.Anything, uint(3), mock.Anything).Return(nil, tc.err)

			handler.NewUserHandler(svc, zerolog.Nop()).Update(ctx)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.message, decode(t, w)["message"])
		})
	}
}

func TestDelete(t *testing.T) {
	ctx, w := newContext(t, http.MethodDelete, "/users/3", "", idParam("3"))

	svc := new(mockUserService)
	svc.On("DeleteUser", mock.Anything, uint(3)).Return(nil)

	handler.NewUserHandler(svc, zerolog.Nop()).Delete(ctx)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]any{"message": "user deleted"}, decode(t, w))
}

func TestDelete_StoreError(t *testing.T) {
	ctx, w := newContext(t, http.MethodDelete, "/users/3", "", idParam("3"))

	svc := new(mockUserService)
	svc.On("DeleteUser", mock.Anything, uint(3)).Return(&app.StoreError{Op: "delete", Err: errors.New("disk I/O error")})

	handler.NewUserHandler(svc, zerolog.Nop()).Delete(ctx)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, map[string]any{"message": "error deleting user", "error": "disk I/O error"}, decode(t, w))
}
