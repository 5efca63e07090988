package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"password-analyzer/internal/domain"
)

var (
	ErrNotFound   = errors.New("record not found")
	ErrEmailTaken = errors.New("email already linked to another account")
)

// UserRepository define el contrato de persistencia para usuarios y su historial.
type UserRepository interface {
	// UpsertGoogleUser crea el usuario si no existe y actualiza last_login en todo caso.
	UpsertGoogleUser(ctx context.Context, input GoogleUserInput) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (domain.User, error)
	// AppendPasswordHistory agrega una entrada con timestamp estrictamente creciente
	// y descarta las mas antiguas cuando se supera limit (limit <= 0 no recorta).
	AppendPasswordHistory(ctx context.Context, userID, passwordHash string, at time.Time, limit int) (domain.PasswordHistoryEntry, error)
	ListPasswordHistory(ctx context.Context, userID string) ([]domain.PasswordHistoryEntry, error)
}

type GoogleUserInput struct {
	ID       string
	GoogleID string
	Email    string
	Name     string
	At       time.Time
}

// pgxPool es el subconjunto de pgxpool.Pool usado por los repositorios.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}
