package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "0b7c6f1e-6f0e-4f43-9d5c-6a1f2a3b4c5d"

var userCols = []string{"id", "google_id", "email", "name", "created_at", "last_login"}

func TestPgUserRepository_UpsertGoogleUser(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	input := GoogleUserInput{ID: testUserID, GoogleID: "sub-1", Email: "a@example.com", Name: "A", At: now}

	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   error
		errMsg    string
	}{
		{
			name: "creates or touches user",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(userCols).AddRow(testUserID, "sub-1", "a@example.com", "A", now, now)
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs(testUserID, "sub-1", "a@example.com", "A", now).
					WillReturnRows(rows)
			},
		},
		{
			name: "email owned by another subject",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs(testUserID, "sub-1", "a@example.com", "A", now).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_email_key"})
			},
			wantErr: ErrEmailTaken,
		},
		{
			name: "database error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`INSERT INTO users`).
					WithArgs(testUserID, "sub-1", "a@example.com", "A", now).
					WillReturnError(errors.New("connection refused"))
			},
			errMsg: "connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err, "failed to create mock")
			defer mock.Close()

			tt.setupMock(mock)

			repo := NewPgUserRepository(mock)
			got, err := repo.UpsertGoogleUser(context.Background(), input)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.errMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			default:
				require.NoError(t, err)
				assert.Equal(t, testUserID, got.ID)
				assert.Equal(t, "sub-1", got.GoogleID)
				assert.True(t, got.LastLogin.Equal(now))
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPgUserRepository_GetByID(t *testing.T) {
	now := time.Now().UTC()

	t.Run("found", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`SELECT id, google_id, email, name, created_at, last_login FROM users WHERE id`).
			WithArgs(testUserID).
			WillReturnRows(pgxmock.NewRows(userCols).AddRow(testUserID, "sub-1", "a@example.com", "A", now, now))

		got, err := NewPgUserRepository(mock).GetByID(context.Background(), testUserID)
		require.NoError(t, err)
		assert.Equal(t, "a@example.com", got.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectQuery(`FROM users WHERE id`).
			WithArgs(testUserID).
			WillReturnRows(pgxmock.NewRows(userCols))

		_, err = NewPgUserRepository(mock).GetByID(context.Background(), testUserID)
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("malformed id never reaches the database", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		_, err = NewPgUserRepository(mock).GetByID(context.Background(), "not-a-uuid")
		require.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgUserRepository_AppendPasswordHistory(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("appends and trims", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT id FROM users WHERE id = \$1 FOR UPDATE`).
			WithArgs(testUserID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(testUserID))
		mock.ExpectQuery(`INSERT INTO password_history`).
			WithArgs(testUserID, "digest", at).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), at))
		mock.ExpectExec(`DELETE FROM password_history`).
			WithArgs(testUserID, 100).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectCommit()

		entry, err := NewPgUserRepository(mock).AppendPasswordHistory(context.Background(), testUserID, "digest", at, 100)
		require.NoError(t, err)
		assert.Equal(t, int64(7), entry.ID)
		assert.Equal(t, "digest", entry.PasswordHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unbounded skips trim", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(testUserID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(testUserID))
		mock.ExpectQuery(`INSERT INTO password_history`).
			WithArgs(testUserID, "digest", at).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), at))
		mock.ExpectCommit()

		_, err = NewPgUserRepository(mock).AppendPasswordHistory(context.Background(), testUserID, "digest", at, 0)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown user rolls back", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(testUserID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		_, err = NewPgUserRepository(mock).AppendPasswordHistory(context.Background(), testUserID, "digest", at, 10)
		require.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insert failure rolls back", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs(testUserID).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(testUserID))
		mock.ExpectQuery(`INSERT INTO password_history`).
			WithArgs(testUserID, "digest", at).
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, err = NewPgUserRepository(mock).AppendPasswordHistory(context.Background(), testUserID, "digest", at, 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgUserRepository_ListPasswordHistory(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	t2 := time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC)
	t1 := t2.Add(-time.Second)
	mock.ExpectQuery(`SELECT id, user_id, password_hash, created_at\s+FROM password_history`).
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "password_hash", "created_at"}).
			AddRow(int64(2), testUserID, "h2", t2).
			AddRow(int64(1), testUserID, "h1", t1))

	entries, err := NewPgUserRepository(mock).ListPasswordHistory(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].ID)
	assert.True(t, entries[0].CreatedAt.After(entries[1].CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}
