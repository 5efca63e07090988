package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"password-analyzer/internal/domain"
)

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool pgxPool
}

func NewPgUserRepository(pool pgxPool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

const userColumns = `id, google_id, email, name, created_at, last_login`

func (r *PgUserRepository) UpsertGoogleUser(ctx context.Context, input GoogleUserInput) (domain.User, error) {
	const query = `
		INSERT INTO users (id, google_id, email, name, created_at, last_login, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5, $5)
		ON CONFLICT (google_id) DO UPDATE
		SET last_login = EXCLUDED.last_login, updated_at = EXCLUDED.updated_at
		RETURNING ` + userColumns

	u, err := scanUser(r.pool.QueryRow(ctx, query,
		input.ID,
		input.GoogleID,
		input.Email,
		input.Name,
		input.At,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, oops.With("operation", "upsert google user").Wrap(err)
	}
	return u, nil
}

func (r *PgUserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.User{}, ErrNotFound
	}
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, oops.With("operation", "get user by id").Wrap(err)
	}
	return u, nil
}

func (r *PgUserRepository) GetByGoogleID(ctx context.Context, googleID string) (domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE google_id = $1`
	u, err := scanUser(r.pool.QueryRow(ctx, query, googleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, oops.With("operation", "get user by google id").Wrap(err)
	}
	return u, nil
}

func (r *PgUserRepository) AppendPasswordHistory(ctx context.Context, userID, passwordHash string, at time.Time, limit int) (domain.PasswordHistoryEntry, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return domain.PasswordHistoryEntry{}, ErrNotFound
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.PasswordHistoryEntry{}, oops.With("operation", "begin append history").Wrap(err)
	}

	entry, err := appendHistoryTx(ctx, tx, userID, passwordHash, at, limit)
	if err != nil {
		_ = tx.Rollback(ctx)
		return domain.PasswordHistoryEntry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.PasswordHistoryEntry{}, oops.With("operation", "commit append history").Wrap(err)
	}
	return entry, nil
}

func appendHistoryTx(ctx context.Context, tx pgx.Tx, userID, passwordHash string, at time.Time, limit int) (domain.PasswordHistoryEntry, error) {
	// El lock de la fila serializa los appends concurrentes del mismo usuario.
	var locked string
	err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PasswordHistoryEntry{}, ErrNotFound
	}
	if err != nil {
		return domain.PasswordHistoryEntry{}, oops.With("operation", "lock user").With("user_id", userID).Wrap(err)
	}

	const insert = `
		INSERT INTO password_history (user_id, password_hash, created_at)
		SELECT $1, $2, GREATEST($3::timestamptz, COALESCE(MAX(created_at) + INTERVAL '1 microsecond', $3::timestamptz))
		FROM password_history
		WHERE user_id = $1
		RETURNING id, created_at
	`
	entry := domain.PasswordHistoryEntry{UserID: userID, PasswordHash: passwordHash}
	if err := tx.QueryRow(ctx, insert, userID, passwordHash, at).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return domain.PasswordHistoryEntry{}, oops.With("operation", "insert password history").With("user_id", userID).Wrap(err)
	}

	if limit > 0 {
		const trim = `
			DELETE FROM password_history
			WHERE user_id = $1 AND id NOT IN (
				SELECT id FROM password_history
				WHERE user_id = $1
				ORDER BY created_at DESC, id DESC
				LIMIT $2
			)
		`
		if _, err := tx.Exec(ctx, trim, userID, limit); err != nil {
			return domain.PasswordHistoryEntry{}, oops.With("operation", "trim password history").With("user_id", userID).Wrap(err)
		}
	}
	return entry, nil
}

func (r *PgUserRepository) ListPasswordHistory(ctx context.Context, userID string) ([]domain.PasswordHistoryEntry, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, ErrNotFound
	}
	const query = `
		SELECT id, user_id, password_hash, created_at
		FROM password_history
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, oops.With("operation", "list password history").Wrap(err)
	}
	defer rows.Close()

	entries := make([]domain.PasswordHistoryEntry, 0)
	for rows.Next() {
		var e domain.PasswordHistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.PasswordHash, &e.CreatedAt); err != nil {
			return nil, oops.With("operation", "scan password history row").Wrap(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate password history").Wrap(err)
	}
	return entries, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.GoogleID,
		&u.Email,
		&u.Name,
		&u.CreatedAt,
		&u.LastLogin,
	)
	return u, err
}
