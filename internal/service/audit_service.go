package service

import (
	"context"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"

	"github.com/obe-labs/sheetflow/internal/models"
	"github.com/obe-labs/sheetflow/internal/repository"
)

// AuditEntry is a workflow event to be recorded.
type AuditEntry struct {
	Actor    Actor
	Action   string
	SheetID  *uint
	Metadata map[string]interface{}
}

// AuditRecorder appends workflow events to the audit trail. Recording is
// best-effort: failures are logged, never propagated to the caller.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditService persists and reads the workflow audit trail.
type AuditService interface {
	AuditRecorder
	ListForSheet(ctx context.Context, sheetID uint) ([]models.AuditLog, error)
}

type auditService struct {
	repo   repository.AuditLogRepository
	logger zerolog.Logger
}

// NewAuditService constructs the audit service.
func NewAuditService(repo repository.AuditLogRepository, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:   repo,
		logger: logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) {
	log := models.AuditLog{
		ActorID:   entry.Actor.ID,
		ActorRole: entry.Actor.Role,
		Action:    entry.Action,
		SheetID:   entry.SheetID,
		Metadata:  datatypes.JSONMap(entry.Metadata),
	}

	if err := s.repo.Create(ctx, &log); err != nil {
		s.logger.Warn().Err(err).Str("action", entry.Action).Msg("failed to persist audit entry")
	}
}

func (s *auditService) ListForSheet(ctx context.Context, sheetID uint) ([]models.AuditLog, error) {
	return s.repo.ListForSheet(ctx, sheetID)
}
