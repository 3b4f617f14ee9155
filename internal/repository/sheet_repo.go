package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/obe-labs/sheetflow/internal/models"
)

// ErrVersionConflict indicates a stale read-modify-write: another writer
// persisted the sheet since it was loaded.
var ErrVersionConflict = errors.New("sheet was modified concurrently")

// SheetFilter narrows sheet queries to an equality match on any subset of
// its fields.
type SheetFilter struct {
	TeacherID *uint
	Status    *string
}

// SheetRepository defines data operations for assessment sheets.
type SheetRepository interface {
	List(ctx context.Context, filter SheetFilter) ([]models.Sheet, error)
	GetByID(ctx context.Context, id uint) (models.Sheet, error)
	Create(ctx context.Context, sheet *models.Sheet) error
	Update(ctx context.Context, sheet *models.Sheet) error
	Delete(ctx context.Context, id uint) error
}

type sheetRepository struct {
	db *gorm.DB
}

// NewSheetRepository instantiates the repository.
func NewSheetRepository(db *gorm.DB) SheetRepository {
	return &sheetRepository{db: db}
}

func (r *sheetRepository) List(ctx context.Context, filter SheetFilter) ([]models.Sheet, error) {
	query := r.db.WithContext(ctx).Model(&models.Sheet{})

	if filter.TeacherID != nil {
		query = query.Where("teacher_id = ?", *filter.TeacherID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var sheets []models.Sheet
	if err := query.Order("created_at DESC").Find(&sheets).Error; err != nil {
		return nil, err
	}

	return sheets, nil
}

func (r *sheetRepository) GetByID(ctx context.Context, id uint) (models.Sheet, error) {
	var sheet models.Sheet
	if err := r.db.WithContext(ctx).First(&sheet, id).Error; err != nil {
		return models.Sheet{}, err
	}

	return sheet, nil
}

func (r *sheetRepository) Create(ctx context.Context, sheet *models.Sheet) error {
	return r.db.WithContext(ctx).Create(sheet).Error
}

// Update persists the whole document guarded by the version counter. A write
// against a version that is no longer current affects zero rows and surfaces
// as ErrVersionConflict so the caller can retry from a fresh read.
func (r *sheetRepository) Update(ctx context.Context, sheet *models.Sheet) error {
	loaded := sheet.Version
	sheet.Version = loaded + 1

	result := r.db.WithContext(ctx).
		Model(&models.Sheet{}).
		Where("id = ? AND version = ?", sheet.ID, loaded).
		Select("*").
		Omit("id", "created_at").
		Updates(sheet)
	if result.Error != nil {
		sheet.Version = loaded
		return result.Error
	}

	if result.RowsAffected == 0 {
		sheet.Version = loaded
		var exists int64
		if err := r.db.WithContext(ctx).Model(&models.Sheet{}).Where("id = ?", sheet.ID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return gorm.ErrRecordNotFound
		}
		return ErrVersionConflict
	}

	return nil
}

func (r *sheetRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Sheet{}, id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
