package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"password-analyzer/internal/domain"
	"password-analyzer/internal/oauth"
	"password-analyzer/internal/repository"
)

// AuthService coordina el login con Google y la verificacion de sesiones.
type AuthService struct {
	logger   *zap.Logger
	users    repository.UserRepository
	jwt      *JWTService
	verifier oauth.Verifier
	now      func() time.Time
}

// NewAuthService crea el servicio. verifier puede ser nil: en ese caso se confia
// en el perfil enviado por el cliente.
func NewAuthService(logger *zap.Logger, users repository.UserRepository, jwtSvc *JWTService, verifier oauth.Verifier) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		logger:   logger,
		users:    users,
		jwt:      jwtSvc,
		verifier: verifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type GoogleLoginInput struct {
	AccessToken string
	Sub         string
	Email       string
	Name        string
}

type LoginResult struct {
	Token SessionToken
	User  domain.User
}

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrOAuthInvalid  = errors.New("oauth data invalid")
	ErrOAuthRejected = errors.New("oauth token rejected")
	ErrEmailTaken    = errors.New("email already linked to another account")
	ErrNotConfigured = errors.New("auth service not configured")
)

// LoginWithGoogle hace find-or-create por subject de Google y emite el session token.
func (s *AuthService) LoginWithGoogle(ctx context.Context, input GoogleLoginInput) (LoginResult, error) {
	if s.users == nil || s.jwt == nil {
		return LoginResult{}, ErrNotConfigured
	}

	accessToken := strings.TrimSpace(input.AccessToken)
	sub := strings.TrimSpace(input.Sub)
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if accessToken == "" || sub == "" || email == "" {
		return LoginResult{}, ErrOAuthInvalid
	}

	if s.verifier != nil {
		info, err := s.verifier.Verify(ctx, accessToken)
		if err != nil {
			if errors.Is(err, oauth.ErrTokenRejected) {
				return LoginResult{}, ErrOAuthRejected
			}
			return LoginResult{}, err
		}
		if info.Sub != sub {
			s.logger.Warn("google subject mismatch", zap.String("claimed_sub", sub))
			return LoginResult{}, ErrOAuthRejected
		}
	}

	user, err := s.users.UpsertGoogleUser(ctx, repository.GoogleUserInput{
		ID:       uuid.NewString(),
		GoogleID: sub,
		Email:    email,
		Name:     name,
		At:       s.now(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return LoginResult{}, ErrEmailTaken
		}
		return LoginResult{}, err
	}

	token, err := s.jwt.Issue(user)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Token: token, User: user}, nil
}

// Verify valida el bearer token y carga el usuario referenciado.
func (s *AuthService) Verify(ctx context.Context, token string) (domain.User, error) {
	if s.users == nil || s.jwt == nil {
		return domain.User{}, ErrNotConfigured
	}
	claims, err := s.jwt.Parse(token)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.User{}, ErrUserNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
