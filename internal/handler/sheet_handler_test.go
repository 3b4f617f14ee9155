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
	"github.com/obe-labs/sheetflow/internal/models"
	"github.com/obe-labs/sheetflow/internal/service"
)

type mockSheetService struct {
	lastActor  service.Actor
	lastStatus string
	lastCreate dto.SheetCreateRequest
	lastUpdate dto.SheetUpdateRequest
	lastID     uint
	response   dto.SheetResponse
	list       []dto.SheetResponse
	err        error
}

func (m *mockSheetService) Create(_ context.Context, actor service.Actor, payload dto.SheetCreateRequest) (dto.SheetResponse, error) {
	m.lastActor = actor
	m.lastCreate = payload
	if m.err != nil {
		return dto.SheetResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockSheetService) List(_ context.Context, actor service.Actor, status string) ([]dto.SheetResponse, error) {
	m.lastActor = actor
	m.lastStatus = status
	if m.err != nil {
		return nil, m.err
	}
	return m.list, nil
}

func (m *mockSheetService) Get(_ context.Context, actor service.Actor, id uint) (dto.SheetResponse, error) {
	m.lastActor = actor
	m.lastID = id
	if m.err != nil {
		return dto.SheetResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockSheetService) Update(_ context.Context, actor service.Actor, id uint, payload dto.SheetUpdateRequest) (dto.SheetResponse, error) {
	m.lastActor = actor
	m.lastID = id
	m.lastUpdate = payload
	if m.err != nil {
		return dto.SheetResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockSheetService) Delete(_ context.Context, actor service.Actor, id uint) error {
	m.lastActor = actor
	m.lastID = id
	return m.err
}

type mockWorkflowService struct {
	lastActor    service.Actor
	lastID       uint
	lastDecision dto.SheetDecisionRequest
	response     dto.SheetResponse
	err          error
}

func (m *mockWorkflowService) Submit(_ context.Context, actor service.Actor, sheetID uint) (dto.SheetResponse, error) {
	m.lastActor = actor
	m.lastID = sheetID
	if m.err != nil {
		return dto.SheetResponse{}, m.err
	}
	return m.response, nil
}

func (m *mockWorkflowService) Decide(_ context.Context, actor service.Actor, sheetID uint, payload dto.SheetDecisionRequest) (dto.SheetResponse, error) {
	m.lastActor = actor
	m.lastID = sheetID
	m.lastDecision = payload
	if m.err != nil {
		return dto.SheetResponse{}, m.err
	}
	return m.response, nil
}

func newSheetApp(sheets *mockSheetService, workflow *mockWorkflowService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/sheets", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(7))
		c.Locals("user_role", models.RoleFaculty)
		c.Locals("user_name", "Fiona Farooq")
		return c.Next()
	})
	handler.NewSheetHandler(sheets, workflow, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestSheetHandler_CreateSuccess(t *testing.T) {
	sheets := &mockSheetService{response: dto.SheetResponse{ID: 1, Name: "CS101 Final", Status: models.SheetStatusDraft}}
	app := newSheetApp(sheets, &mockWorkflowService{})

	payload := dto.SheetCreateRequest{Name: "CS101 Final", TotalPossibleMarks: 100}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/sheets", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var response struct {
		Success bool              `json:"success"`
		Data    dto.SheetResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.Equal(t, uint(1), response.Data.ID)
	require.Equal(t, uint(7), sheets.lastActor.ID)
	require.Equal(t, models.RoleFaculty, sheets.lastActor.Role)
	require.Equal(t, "Fiona Farooq", sheets.lastActor.FullName)
	require.Equal(t, "CS101 Final", sheets.lastCreate.Name)
}

func TestSheetHandler_ListPassesStatusFilter(t *testing.T) {
	sheets := &mockSheetService{list: []dto.SheetResponse{{ID: 1}, {ID: 2}}}
	app := newSheetApp(sheets, &mockWorkflowService{})

	req := httptest.NewRequest(http.MethodGet, "/api/sheets?status=approved", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "approved", sheets.lastStatus)

	var response struct {
		Data []dto.SheetResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Len(t, response.Data, 2)
}

func TestSheetHandler_GetInvalidID(t *testing.T) {
	app := newSheetApp(&mockSheetService{}, &mockWorkflowService{})

	req := httptest.NewRequest(http.MethodGet, "/api/sheets/not-a-number", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSheetHandler_UpdatePassesPayload(t *testing.T) {
	sheets := &mockSheetService{response: dto.SheetResponse{ID: 3, Name: "Renamed"}}
	app := newSheetApp(sheets, &mockWorkflowService{})

	name := "Renamed"
	payload := dto.SheetUpdateRequest{Name: &name}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut, "/api/sheets/3", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(3), sheets.lastID)
	require.NotNil(t, sheets.lastUpdate.Name)
	require.Equal(t, "Renamed", *sheets.lastUpdate.Name)
}

func TestSheetHandler_SubmitRoutesToWorkflow(t *testing.T) {
	workflow := &mockWorkflowService{response: dto.SheetResponse{ID: 5, Status: models.SheetStatusPendingApproval}}
	app := newSheetApp(&mockSheetService{}, workflow)

	req := httptest.NewRequest(http.MethodPost, "/api/sheets/5/submit", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(5), workflow.lastID)
}

func TestSheetHandler_DecidePassesAction(t *testing.T) {
	workflow := &mockWorkflowService{response: dto.SheetResponse{ID: 5, Status: models.SheetStatusRejected}}
	app := newSheetApp(&mockSheetService{}, workflow)

	payload := dto.SheetDecisionRequest{Action: "reject", RejectionReason: "missing CLO mapping"}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/sheets/5/approve", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "reject", workflow.lastDecision.Action)
	require.Equal(t, "missing CLO mapping", workflow.lastDecision.RejectionReason)
}

func TestSheetHandler_ServiceErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "not found", err: service.ErrSheetNotFound, statusCode: fiber.StatusNotFound},
		{name: "forbidden", err: service.ErrSheetForbidden, statusCode: fiber.StatusForbidden},
		{name: "invalid transition", err: service.ErrInvalidTransition, statusCode: fiber.StatusBadRequest},
		{name: "not editable", err: service.ErrSheetNotEditable, statusCode: fiber.StatusBadRequest},
		{name: "owner not faculty", err: service.ErrOwnerNotFaculty, statusCode: fiber.StatusBadRequest},
		{name: "conflict", err: service.ErrSheetConflict, statusCode: fiber.StatusConflict},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sheets := &mockSheetService{err: tc.err}
			app := newSheetApp(sheets, &mockWorkflowService{})

			req := httptest.NewRequest(http.MethodGet, "/api/sheets/1", nil)
			resp, err := app.Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}
