package repository

import (
	"context"
	"slices"
	"sync"
	"time"

	"password-analyzer/internal/domain"
)

// MemoryUserRepository implementa UserRepository en memoria.
// Se usa cuando no hay DATABASE_URL configurada y en tests.
type MemoryUserRepository struct {
	mu         sync.Mutex
	usersByID  map[string]domain.User
	byGoogleID map[string]string
	byEmail    map[string]string
	history    map[string][]domain.PasswordHistoryEntry
	nextID     int64
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		usersByID:  make(map[string]domain.User),
		byGoogleID: make(map[string]string),
		byEmail:    make(map[string]string),
		history:    make(map[string][]domain.PasswordHistoryEntry),
	}
}

func (r *MemoryUserRepository) UpsertGoogleUser(_ context.Context, input GoogleUserInput) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byGoogleID[input.GoogleID]; ok {
		u := r.usersByID[id]
		u.LastLogin = input.At
		r.usersByID[id] = u
		return u, nil
	}
	if _, taken := r.byEmail[input.Email]; taken {
		return domain.User{}, ErrEmailTaken
	}

	u := domain.User{
		ID:        input.ID,
		GoogleID:  input.GoogleID,
		Email:     input.Email,
		Name:      input.Name,
		CreatedAt: input.At,
		LastLogin: input.At,
	}
	r.usersByID[u.ID] = u
	r.byGoogleID[u.GoogleID] = u.ID
	r.byEmail[u.Email] = u.ID
	return u, nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.usersByID[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryUserRepository) GetByGoogleID(_ context.Context, googleID string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byGoogleID[googleID]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return r.usersByID[id], nil
}

func (r *MemoryUserRepository) AppendPasswordHistory(_ context.Context, userID, passwordHash string, at time.Time, limit int) (domain.PasswordHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.usersByID[userID]; !ok {
		return domain.PasswordHistoryEntry{}, ErrNotFound
	}

	entries := r.history[userID]
	if n := len(entries); n > 0 && !at.After(entries[n-1].CreatedAt) {
		at = entries[n-1].CreatedAt.Add(time.Microsecond)
	}
	r.nextID++
	entry := domain.PasswordHistoryEntry{
		ID:           r.nextID,
		UserID:       userID,
		PasswordHash: passwordHash,
		CreatedAt:    at,
	}
	entries = append(entries, entry)
	if limit > 0 && len(entries) > limit {
		entries = slices.Clone(entries[len(entries)-limit:])
	}
	r.history[userID] = entries
	return entry, nil
}

func (r *MemoryUserRepository) ListPasswordHistory(_ context.Context, userID string) ([]domain.PasswordHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := slices.Clone(r.history[userID])
	slices.Reverse(out)
	if out == nil {
		out = []domain.PasswordHistoryEntry{}
	}
	return out, nil
}
