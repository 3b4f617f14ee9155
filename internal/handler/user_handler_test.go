package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/obe-labs/sheetflow/internal/dto"
	"github.com/obe-labs/sheetflow/internal/handler"
	"github.com/obe-labs/sheetflow/internal/service"
)

type mockUserService struct {
	lastCreate dto.UserCreateRequest
	lastUpdate dto.UserUpdateRequest
	lastID     uint
	response   dto.UserResponse
	list       []dto.UserResponse
	err        error
}

func (m *mockUserService) List(_ context.Context) ([]dto.UserResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.list, nil
}

func (m *mockUserService) Create(_ context.Context, payload dto.UserCreateRequest) (dto.UserResponse, error) {
	m.lastCreate = payload
	if m.err != nil {
		return dto.UserResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockUserService) Update(_ context.Context, id uint, payload dto.UserUpdateRequest) (dto.UserResponse, error) {
	m.lastID = id
	m.lastUpdate = payload
	if m.err != nil {
		return dto.UserResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockUserService) Delete(_ context.Context, id uint) error {
	m.lastID = id
	return m.err
}

func newUserApp(svc *mockUserService) *fiber.App {
	app := fiber.New()
	handler.NewUserHandler(svc, zerolog.New(io.Discard)).Register(app.Group("/api/users"))
	return app
}

func TestUserHandler_List(t *testing.T) {
	svc := &mockUserService{list: []dto.UserResponse{{ID: 1}, {ID: 2}}}
	app := newUserApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data []dto.UserResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Len(t, response.Data, 2)
}

func TestUserHandler_CreateSuccess(t *testing.T) {
	svc := &mockUserService{response: dto.UserResponse{ID: 9, Username: "hod1"}}
	app := newUserApp(svc)

	payload := dto.UserCreateRequest{
		Username:  "hod1",
		Email:     "hod@example.edu",
		Password:  "secret123",
		FirstName: "Henry",
		LastName:  "Head",
		Role:      "hod",
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.Equal(t, "hod1", svc.lastCreate.Username)
}

func TestUserHandler_UpdatePassesID(t *testing.T) {
	svc := &mockUserService{response: dto.UserResponse{ID: 4}}
	app := newUserApp(svc)

	active := false
	payload := dto.UserUpdateRequest{IsActive: &active}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch, "/api/users/4", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(4), svc.lastID)
	require.NotNil(t, svc.lastUpdate.IsActive)
	require.False(t, *svc.lastUpdate.IsActive)
}

func TestUserHandler_DeleteNotFound(t *testing.T) {
	svc := &mockUserService{err: service.ErrUserNotFound}
	app := newUserApp(svc)

	req := httptest.NewRequest(http.MethodDelete, "/api/users/99", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUserHandler_ServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "username taken", err: service.ErrUsernameTaken, statusCode: fiber.StatusConflict},
		{name: "email taken", err: service.ErrEmailTaken, statusCode: fiber.StatusConflict},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newUserApp(&mockUserService{err: tc.err})

			payload := dto.UserCreateRequest{
				Username:  "hod1",
				Email:     "hod@example.edu",
				Password:  "secret123",
				FirstName: "Henry",
				LastName:  "Head",
				Role:      "hod",
			}
			body, err := json.Marshal(payload)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/api/users", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}
