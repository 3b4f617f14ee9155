package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/gorm"

	"github.com/obe-labs/sheetflow/internal/dto"
	"github.com/obe-labs/sheetflow/internal/models"
	"github.com/obe-labs/sheetflow/internal/repository"
)

// ErrInvalidTransition indicates an operation against a sheet whose current
// status does not permit it. Distinct from ErrSheetForbidden so callers can
// tell "wrong state" from "wrong permission".
var ErrInvalidTransition = errors.New("sheet status does not permit this transition")

// ErrOwnerNotFaculty indicates the sheet's owner no longer holds the faculty
// role, so an HOD decision against it would act on stale workflow state.
var ErrOwnerNotFaculty = errors.New("only sheets owned by faculty can be decided")

// DefaultRejectionReason is stored when an HOD rejects without giving one.
const DefaultRejectionReason = "Rejected by HOD"

// Decision actions accepted by Decide.
const (
	DecisionApprove = "approve"
	DecisionReject  = "reject"
)

// WorkflowService enforces the sheet approval state machine: role-gated
// submit by the owning faculty member and approve/reject by an HOD.
type WorkflowService interface {
	Submit(ctx context.Context, actor Actor, sheetID uint) (dto.SheetResponse, error)
	Decide(ctx context.Context, actor Actor, sheetID uint, payload dto.SheetDecisionRequest) (dto.SheetResponse, error)
}

type workflowService struct {
	sheets    repository.SheetRepository
	users     repository.UserRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	cache     *redis.Client
	audit     AuditRecorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewWorkflowService constructs a WorkflowService instance.
func NewWorkflowService(sheets repository.SheetRepository, users repository.UserRepository, validate *validator.Validate, cache *redis.Client, audit AuditRecorder, logger zerolog.Logger) WorkflowService {
	return &workflowService{
		sheets:    sheets,
		users:     users,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		cache:     cache,
		audit:     audit,
		logger:    logger.With().Str("component", "workflow_service").Logger(),
		now:       time.Now,
	}
}

// Submit moves a draft sheet to pending approval. Rejected sheets are
// directly resubmittable without passing back through draft: the owner fixes
// the content in place and submits again.
func (s *workflowService) Submit(ctx context.Context, actor Actor, sheetID uint) (dto.SheetResponse, error) {
	if !CapabilitiesFor(actor.Role).CanSubmitSheets {
		return dto.SheetResponse{}, ErrSheetForbidden
	}

	sheet, err := s.load(ctx, sheetID)
	if err != nil {
		return dto.SheetResponse{}, err
	}

	if sheet.TeacherID != actor.ID {
		return dto.SheetResponse{}, ErrSheetForbidden
	}

	if sheet.Status != models.SheetStatusDraft && sheet.Status != models.SheetStatusRejected {
		return dto.SheetResponse{}, ErrInvalidTransition
	}

	submittedAt := s.now()
	sheet.Status = models.SheetStatusPendingApproval
	sheet.SubmittedAt = &submittedAt
	sheet.RejectionReason = ""
	sheet.UpdatedAt = submittedAt

	if err := s.persist(ctx, &sheet); err != nil {
		return dto.SheetResponse{}, err
	}

	s.record(ctx, actor, "sheet.submitted", sheet.ID, map[string]interface{}{"name": sheet.Name})
	s.logger.Info().Uint("sheet_id", sheet.ID).Uint("teacher_id", actor.ID).Msg("sheet submitted for approval")

	return dto.NewSheetResponse(sheet), nil
}

// Decide resolves a pending sheet to approved or rejected. Only an HOD may
// decide, and only while the owner still holds the faculty role.
func (s *workflowService) Decide(ctx context.Context, actor Actor, sheetID uint, payload dto.SheetDecisionRequest) (dto.SheetResponse, error) {
	tracer := otel.Tracer("github.com/obe-labs/sheetflow/internal/service/workflow")
	ctx, span := tracer.Start(ctx, "workflow.decide")
	span.SetAttributes(
		attribute.Int64("workflow.sheet_id", int64(sheetID)),
		attribute.Int64("workflow.actor_id", int64(actor.ID)),
		attribute.String("workflow.action", payload.Action),
	)
	defer span.End()

	if !CapabilitiesFor(actor.Role).CanDecideSheets {
		span.SetStatus(codes.Error, "actor_not_hod")
		return dto.SheetResponse{}, ErrSheetForbidden
	}

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.SheetResponse{}, err
	}

	sheet, err := s.load(ctx, sheetID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sheet_lookup_failed")
		return dto.SheetResponse{}, err
	}

	if sheet.Status != models.SheetStatusPendingApproval {
		span.SetStatus(codes.Error, "not_pending_approval")
		return dto.SheetResponse{}, ErrInvalidTransition
	}

	owner, err := s.users.GetByID(ctx, sheet.TeacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "owner_missing")
			return dto.SheetResponse{}, ErrOwnerNotFaculty
		}
		span.RecordError(err)
		return dto.SheetResponse{}, err
	}
	if owner.Role != models.RoleFaculty {
		span.SetStatus(codes.Error, "owner_not_faculty")
		return dto.SheetResponse{}, ErrOwnerNotFaculty
	}

	decidedAt := s.now()
	action := "sheet.rejected"
	switch payload.Action {
	case DecisionApprove:
		approvedBy := actor.ID
		sheet.Status = models.SheetStatusApproved
		sheet.ApprovedAt = &decidedAt
		sheet.ApprovedBy = &approvedBy
		sheet.ApprovedByName = actor.FullName
		sheet.RejectionReason = ""
		action = "sheet.approved"
	case DecisionReject:
		reason := strings.TrimSpace(s.sanitizer.Sanitize(payload.RejectionReason))
		if reason == "" {
			reason = DefaultRejectionReason
		}
		sheet.Status = models.SheetStatusRejected
		sheet.RejectionReason = reason
	}
	sheet.UpdatedAt = decidedAt

	if err := s.persist(ctx, &sheet); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "sheet_update_failed")
		return dto.SheetResponse{}, err
	}

	s.invalidateApproved(ctx)
	s.record(ctx, actor, action, sheet.ID, map[string]interface{}{
		"teacher_id": sheet.TeacherID,
		"status":     sheet.Status,
	})

	span.SetAttributes(attribute.String("workflow.status", sheet.Status))
	s.logger.Info().Uint("sheet_id", sheet.ID).Str("status", sheet.Status).Uint("hod_id", actor.ID).Msg("sheet decision recorded")

	return dto.NewSheetResponse(sheet), nil
}

func (s *workflowService) load(ctx context.Context, sheetID uint) (models.Sheet, error) {
	sheet, err := s.sheets.GetByID(ctx, sheetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Sheet{}, ErrSheetNotFound
		}
		return models.Sheet{}, err
	}
	return sheet, nil
}

func (s *workflowService) persist(ctx context.Context, sheet *models.Sheet) error {
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

func (s *workflowService) invalidateApproved(ctx context.Context) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Del(ctx, approvedSheetsCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate approved sheet cache")
	}
}

func (s *workflowService) record(ctx context.Context, actor Actor, action string, sheetID uint, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}
	id := sheetID
	s.audit.Record(ctx, AuditEntry{Actor: actor, Action: action, SheetID: &id, Metadata: metadata})
}
