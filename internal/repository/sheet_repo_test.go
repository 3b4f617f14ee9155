package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/obe-labs/sheetflow/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Sheet{}, &models.AuditLog{}))
	return db
}

func TestSheetRepositoryListFiltersAndSorts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSheetRepository(db)

	older := models.Sheet{Name: "Quiz 1", TeacherID: 1, TeacherName: "Jane Doe", Status: models.SheetStatusDraft, CreatedAt: time.Now().Add(-2 * time.Hour)}
	newer := models.Sheet{Name: "Quiz 2", TeacherID: 2, TeacherName: "John Roe", Status: models.SheetStatusApproved, CreatedAt: time.Now().Add(-1 * time.Hour)}
	require.NoError(t, db.Create(&older).Error)
	require.NoError(t, db.Create(&newer).Error)

	teacherID := uint(1)
	sheets, err := repo.List(context.Background(), SheetFilter{TeacherID: &teacherID})
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	require.Equal(t, "Quiz 1", sheets[0].Name)

	status := models.SheetStatusApproved
	sheets, err = repo.List(context.Background(), SheetFilter{Status: &status})
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	require.Equal(t, "Quiz 2", sheets[0].Name)

	sheets, err = repo.List(context.Background(), SheetFilter{})
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	require.Equal(t, "Quiz 2", sheets[0].Name, "expected newest record first")
}

func TestSheetRepositoryRoundTripsJSONColumns(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSheetRepository(db)

	sheet := models.Sheet{
		Name:        "Midterm",
		TeacherID:   7,
		TeacherName: "Jane Doe",
		Status:      models.SheetStatusDraft,
		Questions:   models.ColumnList{{ID: "q-1", Label: "Q1"}},
		CLOs:        models.ColumnList{{ID: "c-1", Label: "CLO1"}},
		Students: models.StudentRows{
			{RollNumber: "S1", Name: "Alice", Marks: map[string]float64{"q-1": 8}, TotalMarks: 8},
		},
	}
	require.NoError(t, repo.Create(context.Background(), &sheet))

	loaded, err := repo.GetByID(context.Background(), sheet.ID)
	require.NoError(t, err)
	require.Equal(t, "Q1", loaded.Questions[0].Label)
	require.Equal(t, "CLO1", loaded.CLOs[0].Label)
	require.Len(t, loaded.Students, 1)
	require.Equal(t, 8.0, loaded.Students[0].Marks["q-1"])
}

func TestSheetRepositoryUpdateDetectsStaleVersion(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSheetRepository(db)

	sheet := models.Sheet{Name: "Final", TeacherID: 3, TeacherName: "Jane Doe", Status: models.SheetStatusDraft}
	require.NoError(t, repo.Create(context.Background(), &sheet))

	first, err := repo.GetByID(context.Background(), sheet.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(context.Background(), sheet.ID)
	require.NoError(t, err)

	first.Name = "Final (revised)"
	require.NoError(t, repo.Update(context.Background(), &first))

	second.Name = "Final (stale)"
	err = repo.Update(context.Background(), &second)
	require.ErrorIs(t, err, ErrVersionConflict)

	loaded, err := repo.GetByID(context.Background(), sheet.ID)
	require.NoError(t, err)
	require.Equal(t, "Final (revised)", loaded.Name)
}

func TestSheetRepositoryUpdateMissingSheet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSheetRepository(db)

	missing := models.Sheet{ID: 999, Name: "Ghost", TeacherID: 1, TeacherName: "Jane Doe", Status: models.SheetStatusDraft}
	err := repo.Update(context.Background(), &missing)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSheetRepositoryDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSheetRepository(db)

	sheet := models.Sheet{Name: "Quiz", TeacherID: 1, TeacherName: "Jane Doe", Status: models.SheetStatusDraft}
	require.NoError(t, repo.Create(context.Background(), &sheet))
	require.NoError(t, repo.Delete(context.Background(), sheet.ID))

	err := repo.Delete(context.Background(), sheet.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.GetByID(context.Background(), sheet.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
