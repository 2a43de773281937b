package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumnNames = []string{
	"id", "username", "email", "role", "must_change_password",
	"password_hash", "password_salt", "created_at", "updated_at",
}

func TestGetByIdentifier(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	now := time.Now()

	t.Run("Legacy Account", func(t *testing.T) {
		mock.ExpectQuery(`WHERE LOWER\(username\) = LOWER\(\$1\) OR LOWER\(email\) = LOWER\(\$1\)`).
			WithArgs("admin@example.com").
			WillReturnRows(sqlmock.NewRows(userColumnNames).
				AddRow(int64(1), "admin", "admin@example.com", "admin", false, "abc123", "salt", now, now))

		user, err := repo.GetByIdentifier(ctx, "admin@example.com")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "admin", user.Username)
		assert.True(t, user.HasLegacyPassword())

		client := user.ToClient()
		require.NotNil(t, client.Email)
		assert.Equal(t, "admin@example.com", *client.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`FROM users`).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(userColumnNames))

		user, err := repo.GetByIdentifier(ctx, "ghost")
		assert.NoError(t, err)
		assert.Nil(t, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Database Error", func(t *testing.T) {
		mock.ExpectQuery(`FROM users`).
			WithArgs("admin").
			WillReturnError(fmt.Errorf("database error"))

		user, err := repo.GetByIdentifier(ctx, "admin")
		assert.Error(t, err)
		assert.Nil(t, user)
		assert.Contains(t, err.Error(), "failed to get user by identifier")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUpdatePassword(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`SET password_hash = \$1, password_salt = NULL, must_change_password = FALSE`).
		WithArgs("$2a$12$new", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET password_hash = \$1, password_salt = NULL, updated_at = NOW\(\) WHERE id = \$2`).
		WithArgs("$2a$12$upgraded", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), 1, "$2a$12$new"))
	require.NoError(t, repo.UpgradePasswordHash(context.Background(), 1, "$2a$12$upgraded"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
