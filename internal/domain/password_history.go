package domain

import "time"

// PasswordHistoryEntry registra un password analizado por el usuario.
// Solo se guarda el digest, nunca el texto plano.
type PasswordHistoryEntry struct {
	ID           int64     `json:"-"`
	UserID       string    `json:"-"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}
