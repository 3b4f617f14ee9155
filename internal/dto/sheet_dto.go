package dto

import (
	"time"

	"github.com/obe-labs/sheetflow/internal/models"
)

// ColumnInput describes one scoring column in a create or update payload.
// The ID is optional: new columns get a synthetic identifier assigned
// server-side, existing columns keep the one they were created with.
type ColumnInput struct {
	ID    string `json:"id"`
	Label string `json:"label" validate:"required"`
}

// StudentInput is one student row in a create or update payload. Marks may
// be keyed by column id or, for convenience, by column label; the service
// re-keys label entries onto the stable column id. TotalMarks is absent on
// purpose: totals are derived server-side and never accepted from a client.
type StudentInput struct {
	RollNumber string             `json:"roll_number" validate:"required"`
	Name       string             `json:"name" validate:"required"`
	Marks      map[string]float64 `json:"marks"`
}

// SheetCreateRequest is the payload for creating an assessment sheet.
type SheetCreateRequest struct {
	Name               string         `json:"name" validate:"required"`
	Questions          []ColumnInput  `json:"questions" validate:"omitempty,dive"`
	CLOs               []ColumnInput  `json:"clos" validate:"omitempty,dive"`
	PLOs               []ColumnInput  `json:"plos" validate:"omitempty,dive"`
	Students           []StudentInput `json:"students" validate:"omitempty,dive"`
	TotalPossibleMarks float64        `json:"total_possible_marks" validate:"gte=0"`
}

// SheetUpdateRequest carries a partial overwrite of the sheet's structural
// fields. Absent fields are left untouched; present array fields replace the
// stored value wholesale rather than merging.
type SheetUpdateRequest struct {
	Name               *string         `json:"name" validate:"omitempty,min=1"`
	Questions          *[]ColumnInput  `json:"questions" validate:"omitempty,dive"`
	CLOs               *[]ColumnInput  `json:"clos" validate:"omitempty,dive"`
	PLOs               *[]ColumnInput  `json:"plos" validate:"omitempty,dive"`
	Students           *[]StudentInput `json:"students" validate:"omitempty,dive"`
	TotalPossibleMarks *float64        `json:"total_possible_marks" validate:"omitempty,gte=0"`
}

// SheetDecisionRequest resolves a pending sheet one way or the other.
type SheetDecisionRequest struct {
	Action          string `json:"action" validate:"required,oneof=approve reject"`
	RejectionReason string `json:"rejection_reason"`
}

// ColumnResponse serializes a scoring column.
type ColumnResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// StudentRowResponse serializes one row of the marks matrix.
type StudentRowResponse struct {
	RollNumber string             `json:"roll_number"`
	Name       string             `json:"name"`
	Marks      map[string]float64 `json:"marks"`
	TotalMarks float64            `json:"total_marks"`
}

// SheetResponse is returned to API clients when viewing sheets.
type SheetResponse struct {
	ID                 uint                 `json:"id"`
	Name               string               `json:"name"`
	TeacherID          uint                 `json:"teacher_id"`
	TeacherName        string               `json:"teacher_name"`
	Questions          []ColumnResponse     `json:"questions"`
	CLOs               []ColumnResponse     `json:"clos"`
	PLOs               []ColumnResponse     `json:"plos"`
	Students           []StudentRowResponse `json:"students"`
	TotalPossibleMarks float64              `json:"total_possible_marks"`
	Status             string               `json:"status"`
	SubmittedAt        *time.Time           `json:"submitted_at"`
	ApprovedAt         *time.Time           `json:"approved_at"`
	ApprovedBy         *uint                `json:"approved_by"`
	ApprovedByName     string               `json:"approved_by_name,omitempty"`
	RejectionReason    string               `json:"rejection_reason,omitempty"`
	Version            int64                `json:"version"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
}

func newColumnResponses(columns models.ColumnList) []ColumnResponse {
	responses := make([]ColumnResponse, 0, len(columns))
	for _, column := range columns {
		responses = append(responses, ColumnResponse{ID: column.ID, Label: column.Label})
	}
	return responses
}

// NewSheetResponse converts a Sheet model into a DTO.
func NewSheetResponse(model models.Sheet) SheetResponse {
	students := make([]StudentRowResponse, 0, len(model.Students))
	for _, student := range model.Students {
		marks := student.Marks
		if marks == nil {
			marks = map[string]float64{}
		}
		students = append(students, StudentRowResponse{
			RollNumber: student.RollNumber,
			Name:       student.Name,
			Marks:      marks,
			TotalMarks: student.TotalMarks,
		})
	}

	return SheetResponse{
		ID:                 model.ID,
		Name:               model.Name,
		TeacherID:          model.TeacherID,
		TeacherName:        model.TeacherName,
		Questions:          newColumnResponses(model.Questions),
		CLOs:               newColumnResponses(model.CLOs),
		PLOs:               newColumnResponses(model.PLOs),
		Students:           students,
		TotalPossibleMarks: model.TotalPossibleMarks,
		Status:             model.Status,
		SubmittedAt:        model.SubmittedAt,
		ApprovedAt:         model.ApprovedAt,
		ApprovedBy:         model.ApprovedBy,
		ApprovedByName:     model.ApprovedByName,
		RejectionReason:    model.RejectionReason,
		Version:            model.Version,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	}
}

// NewSheetResponseSlice converts sheet models into DTOs.
func NewSheetResponseSlice(sheets []models.Sheet) []SheetResponse {
	responses := make([]SheetResponse, 0, len(sheets))
	for _, sheet := range sheets {
		responses = append(responses, NewSheetResponse(sheet))
	}

	return responses
}
