package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/obe-labs/sheetflow/internal/dto"
	"github.com/obe-labs/sheetflow/internal/models"
	"github.com/obe-labs/sheetflow/internal/repository"
)

// ErrSheetNotFound indicates the sheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrSheetForbidden indicates the actor's role or ownership does not permit
// the operation.
var ErrSheetForbidden = errors.New("insufficient permissions")

// ErrSheetNotEditable indicates a structural edit or delete against a sheet
// that is no longer in an editable status.
var ErrSheetNotEditable = errors.New("sheet is not editable in its current status")

// ErrSheetConflict indicates a concurrent write collided with this one.
var ErrSheetConflict = errors.New("sheet was modified concurrently, reload and retry")

// ErrInvalidStatusFilter indicates an unknown status value in a listing query.
var ErrInvalidStatusFilter = errors.New("invalid status filter")

// ErrSheetNameRequired indicates the sheet name was empty after sanitization.
var ErrSheetNameRequired = errors.New("sheet name must not be empty")

const approvedSheetsCacheKey = "sheets:approved"

// SheetService owns sheet CRUD, role visibility and the derived-total
// invariant: every student's total is recomputed before each persisted write.
type SheetService interface {
	Create(ctx context.Context, actor Actor, payload dto.SheetCreateRequest) (dto.SheetResponse, error)
	List(ctx context.Context, actor Actor, status string) ([]dto.SheetResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.SheetResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.SheetUpdateRequest) (dto.SheetResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
}

type sheetService struct {
	sheets    repository.SheetRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	cache     *redis.Client
	cacheTTL  time.Duration
	audit     AuditRecorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSheetService constructs a SheetService instance.
func NewSheetService(sheets repository.SheetRepository, validate *validator.Validate, cache *redis.Client, cacheTTL time.Duration, audit AuditRecorder, logger zerolog.Logger) SheetService {
	return &sheetService{
		sheets:    sheets,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		cache:     cache,
		cacheTTL:  cacheTTL,
		audit:     audit,
		logger:    logger.With().Str("component", "sheet_service").Logger(),
		now:       time.Now,
	}
}

func (s *sheetService) Create(ctx context.Context, actor Actor, payload dto.SheetCreateRequest) (dto.SheetResponse, error) {
	if !CapabilitiesFor(actor.Role).CanCreateSheets {
		return dto.SheetResponse{}, ErrSheetForbidden
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.SheetResponse{}, err
	}

	keys := map[string]string{}
	sheet := models.Sheet{
		Name:               s.clean(payload.Name),
		TeacherID:          actor.ID,
		TeacherName:        actor.FullName,
		Questions:          s.buildColumns(payload.Questions, keys),
		CLOs:               s.buildColumns(payload.CLOs, keys),
		PLOs:               s.buildColumns(payload.PLOs, keys),
		Students:           s.buildStudents(payload.Students, keys),
		TotalPossibleMarks: payload.TotalPossibleMarks,
		Status:             models.SheetStatusDraft,
	}
	if sheet.Name == "" {
		return dto.SheetResponse{}, ErrSheetNameRequired
	}
	sheet.RecomputeTotals()

	if err := s.sheets.Create(ctx, &sheet); err != nil {
		return dto.SheetResponse{}, err
	}

	s.record(ctx, actor, "sheet.created", sheet.ID, map[string]interface{}{"name": sheet.Name})
	s.logger.Info().Uint("sheet_id", sheet.ID).Uint("teacher_id", actor.ID).Msg("sheet created")

	return dto.NewSheetResponse(sheet), nil
}

func (s *sheetService) List(ctx context.Context, actor Actor, status string) ([]dto.SheetResponse, error) {
	if status != "" && !validStatus(status) {
		return nil, ErrInvalidStatusFilter
	}

	capability := CapabilitiesFor(actor.Role)
	filter := repository.SheetFilter{}

	switch capability.Visibility {
	case VisibilityOwn:
		teacherID := actor.ID
		filter.TeacherID = &teacherID
		if status != "" {
			filter.Status = &status
		}
	case VisibilityApproved:
		// Students only ever see approved sheets; a conflicting status
		// filter yields an empty listing rather than a wider one.
		if status != "" && status != models.SheetStatusApproved {
			return []dto.SheetResponse{}, nil
		}
		if cached, ok := s.cachedApproved(ctx); ok {
			return cached, nil
		}
		approved := models.SheetStatusApproved
		filter.Status = &approved
	default:
		if status != "" {
			filter.Status = &status
		}
	}

	sheets, err := s.sheets.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := dto.NewSheetResponseSlice(sheets)
	if capability.Visibility == VisibilityApproved {
		s.storeApproved(ctx, responses)
	}

	return responses, nil
}

func (s *sheetService) Get(ctx context.Context, actor Actor, id uint) (dto.SheetResponse, error) {
	sheet, err := s.sheets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SheetResponse{}, ErrSheetNotFound
		}
		return dto.SheetResponse{}, err
	}

	if actor.Role == models.RoleFaculty && sheet.TeacherID != actor.ID {
		return dto.SheetResponse{}, ErrSheetForbidden
	}

	return dto.NewSheetResponse(sheet), nil
}

func (s *sheetService) Update(ctx context.Context, actor Actor, id uint, payload dto.SheetUpdateRequest) (dto.SheetResponse, error) {
	capability := CapabilitiesFor(actor.Role)
	if actor.Role != models.RoleFaculty && !capability.CanEditAny {
		return dto.SheetResponse{}, ErrSheetForbidden
	}

	if err := s.validator.Struct(payload); err != nil {
		return dto.SheetResponse{}, err
	}

	if payload.Name != nil && s.clean(*payload.Name) == "" {
		return dto.SheetResponse{}, ErrSheetNameRequired
	}

	sheet, err := s.sheets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SheetResponse{}, ErrSheetNotFound
		}
		return dto.SheetResponse{}, err
	}

	if actor.Role == models.RoleFaculty {
		if sheet.TeacherID != actor.ID {
			return dto.SheetResponse{}, ErrSheetForbidden
		}
		if !sheet.IsEditable() {
			return dto.SheetResponse{}, ErrSheetNotEditable
		}
	}

	s.applyUpdate(&sheet, payload)
	sheet.RecomputeTotals()
	sheet.UpdatedAt = s.now()

	if err := s.persist(ctx, &sheet); err != nil {
		return dto.SheetResponse{}, err
	}

	s.invalidateApproved(ctx)
	s.record(ctx, actor, "sheet.updated", sheet.ID, map[string]interface{}{"status": sheet.Status})

	return dto.NewSheetResponse(sheet), nil
}

func (s *sheetService) Delete(ctx context.Context, actor Actor, id uint) error {
	if actor.Role != models.RoleFaculty {
		return ErrSheetForbidden
	}

	sheet, err := s.sheets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSheetNotFound
		}
		return err
	}

	if sheet.TeacherID != actor.ID {
		return ErrSheetForbidden
	}

	if !sheet.IsEditable() {
		return ErrSheetNotEditable
	}

	if err := s.sheets.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSheetNotFound
		}
		return err
	}

	s.invalidateApproved(ctx)
	s.record(ctx, actor, "sheet.deleted", id, map[string]interface{}{"name": sheet.Name})

	return nil
}

// applyUpdate overwrites present fields. Array fields replace the stored
// value wholesale; teacher identity is never touched.
func (s *sheetService) applyUpdate(sheet *models.Sheet, payload dto.SheetUpdateRequest) {
	keys := map[string]string{}
	for _, list := range []models.ColumnList{sheet.Questions, sheet.CLOs, sheet.PLOs} {
		for _, column := range list {
			keys[column.ID] = column.ID
			keys[column.Label] = column.ID
		}
	}

	if payload.Name != nil {
		sheet.Name = s.clean(*payload.Name)
	}
	if payload.Questions != nil {
		sheet.Questions = s.buildColumns(*payload.Questions, keys)
	}
	if payload.CLOs != nil {
		sheet.CLOs = s.buildColumns(*payload.CLOs, keys)
	}
	if payload.PLOs != nil {
		sheet.PLOs = s.buildColumns(*payload.PLOs, keys)
	}
	if payload.Students != nil {
		sheet.Students = s.buildStudents(*payload.Students, keys)
	}
	if payload.TotalPossibleMarks != nil {
		sheet.TotalPossibleMarks = *payload.TotalPossibleMarks
	}
}

// buildColumns assigns a synthetic identifier to every column that arrives
// without one and registers both the id and the label in keys so marks can
// be re-keyed onto the stable id.
func (s *sheetService) buildColumns(inputs []dto.ColumnInput, keys map[string]string) models.ColumnList {
	columns := make(models.ColumnList, 0, len(inputs))
	for _, input := range inputs {
		id := strings.TrimSpace(input.ID)
		if id == "" {
			id = uuid.NewString()
		}
		label := s.clean(input.Label)
		columns = append(columns, models.Column{ID: id, Label: label})
		keys[id] = id
		if label != "" {
			keys[label] = id
		}
	}
	return columns
}

func (s *sheetService) buildStudents(inputs []dto.StudentInput, keys map[string]string) models.StudentRows {
	students := make(models.StudentRows, 0, len(inputs))
	for _, input := range inputs {
		marks := make(map[string]float64, len(input.Marks))
		for key, mark := range input.Marks {
			if id, ok := keys[key]; ok {
				marks[id] = mark
				continue
			}
			// Unknown keys survive until RecomputeTotals garbage-collects
			// them against the current column set.
			marks[key] = mark
		}
		students = append(students, models.StudentRow{
			RollNumber: s.clean(input.RollNumber),
			Name:       s.clean(input.Name),
			Marks:      marks,
		})
	}
	return students
}

func (s *sheetService) persist(ctx context.Context, sheet *models.Sheet) error {
	err := s.sheets.Update(ctx, sheet)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrVersionConflict):
		return ErrSheetConflict
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrSheetNotFound
	default:
		return err
	}
}

func (s *sheetService) cachedApproved(ctx context.Context) ([]dto.SheetResponse, bool) {
	if s.cache == nil {
		return nil, false
	}

	cached, err := s.cache.Get(ctx, approvedSheetsCacheKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read approved sheet cache")
		}
		return nil, false
	}

	var responses []dto.SheetResponse
	if err := json.Unmarshal([]byte(cached), &responses); err != nil {
		return nil, false
	}

	return responses, true
}

func (s *sheetService) storeApproved(ctx context.Context, responses []dto.SheetResponse) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(responses)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, approvedSheetsCacheKey, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store approved sheet cache")
	}
}

func (s *sheetService) invalidateApproved(ctx context.Context) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Del(ctx, approvedSheetsCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate approved sheet cache")
	}
}

func (s *sheetService) record(ctx context.Context, actor Actor, action string, sheetID uint, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}
	id := sheetID
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: action, SheetID: &id, Metadata: metadata})
}

func (s *sheetService) clean(input string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(input))
}

func validStatus(status string) bool {
	switch status {
	case models.SheetStatusDraft, models.SheetStatusPendingApproval, models.SheetStatusApproved, models.SheetStatusRejected:
		return true
	}
	return false
}
