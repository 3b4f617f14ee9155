package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/obe-labs/sheetflow/internal/models"
)

// AuditLogRepository persists workflow audit entries.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListForSheet(ctx context.Context, sheetID uint) ([]models.AuditLog, error)
}

type auditLogRepository struct {
	db *gorm.DB
}

// NewAuditLogRepository instantiates the repository.
func NewAuditLogRepository(db *gorm.DB) AuditLogRepository {
	return &auditLogRepository{db: db}
}

func (r *auditLogRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *auditLogRepository) ListForSheet(ctx context.Context, sheetID uint) ([]models.AuditLog, error) {
	var entries []models.AuditLog
	if err := r.db.WithContext(ctx).
		Where("sheet_id = ?", sheetID).
		Order("created_at DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
