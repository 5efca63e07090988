package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"password-analyzer/internal/domain"
	"password-analyzer/internal/repository"
	"password-analyzer/internal/strength"
)

// AnalysisService puntua passwords y registra el historial del usuario.
type AnalysisService struct {
	logger       *zap.Logger
	scorer       *strength.Scorer
	users        repository.UserRepository
	historyLimit int
	bcryptCost   int
	now          func() time.Time
}

type AnalysisOptions struct {
	// HistoryLimit acota las entradas por usuario; <= 0 no acota.
	HistoryLimit int
	BcryptCost   int
}

func NewAnalysisService(logger *zap.Logger, scorer *strength.Scorer, users repository.UserRepository, opts AnalysisOptions) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scorer == nil {
		scorer = strength.NewScorer()
	}
	cost := opts.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &AnalysisService{
		logger:       logger,
		scorer:       scorer,
		users:        users,
		historyLimit: opts.HistoryLimit,
		bcryptCost:   cost,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

var ErrPasswordRequired = errors.New("password is required")

// Analyze puntua el password y agrega una entrada al historial del usuario.
func (s *AnalysisService) Analyze(ctx context.Context, userID, password string) (strength.Result, error) {
	if s.users == nil {
		return strength.Result{}, errors.New("analysis service not configured")
	}

	result, err := s.scorer.Score(password)
	if err != nil {
		if errors.Is(err, strength.ErrEmptyPassword) {
			return strength.Result{}, ErrPasswordRequired
		}
		return strength.Result{}, err
	}

	digest, err := hashPassword(password, s.bcryptCost)
	if err != nil {
		return strength.Result{}, err
	}
	if _, err := s.users.AppendPasswordHistory(ctx, userID, digest, s.now(), s.historyLimit); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return strength.Result{}, ErrUserNotFound
		}
		return strength.Result{}, err
	}
	return result, nil
}

// History devuelve el historial del usuario, mas reciente primero.
func (s *AnalysisService) History(ctx context.Context, userID string) ([]domain.PasswordHistoryEntry, error) {
	if s.users == nil {
		return nil, errors.New("analysis service not configured")
	}
	entries, err := s.users.ListPasswordHistory(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return entries, nil
}

// hashPassword aplica sha256 antes de bcrypt para no chocar con su limite de 72 bytes.
func hashPassword(password string, cost int) (string, error) {
	sum := sha256.Sum256([]byte(password))
	hash, err := bcrypt.GenerateFromPassword([]byte(base64.StdEncoding.EncodeToString(sum[:])), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
