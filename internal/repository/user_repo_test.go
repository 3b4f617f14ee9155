package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/obe-labs/sheetflow/internal/models"
)

func seedUser(t *testing.T, db *gorm.DB, username, email string) models.User {
	t.Helper()
	user := models.User{
		Username:  username,
		Email:     email,
		Password:  "hash",
		Role:      models.RoleFaculty,
		FirstName: "Test",
		LastName:  "User",
		IsActive:  true,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func TestUserRepositoryGetByLoginMatchesUsernameOrEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	seeded := seedUser(t, db, "fiona", "fiona@example.edu")

	byUsername, err := repo.GetByLogin(context.Background(), "fiona")
	require.NoError(t, err)
	require.Equal(t, seeded.ID, byUsername.ID)

	byEmail, err := repo.GetByLogin(context.Background(), "fiona@example.edu")
	require.NoError(t, err)
	require.Equal(t, seeded.ID, byEmail.ID)

	_, err = repo.GetByLogin(context.Background(), "nobody")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUserRepositoryFindByUsernameOrEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	seeded := seedUser(t, db, "fiona", "fiona@example.edu")

	found, err := repo.FindByUsernameOrEmail(context.Background(), "fiona", "other@example.edu")
	require.NoError(t, err)
	require.Equal(t, seeded.ID, found.ID)

	found, err = repo.FindByUsernameOrEmail(context.Background(), "other", "fiona@example.edu")
	require.NoError(t, err)
	require.Equal(t, seeded.ID, found.ID)

	_, err = repo.FindByUsernameOrEmail(context.Background(), "other", "other@example.edu")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUserRepositoryDeleteMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	err := repo.Delete(context.Background(), 42)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestUserRepositoryUpdatePersistsChanges(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	seeded := seedUser(t, db, "fiona", "fiona@example.edu")

	seeded.IsActive = false
	seeded.Department = "Computer Science"
	require.NoError(t, repo.Update(context.Background(), &seeded))

	stored, err := repo.GetByID(context.Background(), seeded.ID)
	require.NoError(t, err)
	require.False(t, stored.IsActive)
	require.Equal(t, "Computer Science", stored.Department)
}
