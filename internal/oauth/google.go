package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// ErrTokenRejected indica que Google no acepto el access token.
var ErrTokenRejected = errors.New("access token rejected by provider")

// UserInfo son los claims de perfil que devuelve el endpoint userinfo.
type UserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// Verifier resuelve un access token del proveedor a su perfil.
type Verifier interface {
	Verify(ctx context.Context, accessToken string) (UserInfo, error)
}

// GoogleVerifier consulta el endpoint userinfo de Google con el access token.
type GoogleVerifier struct {
	userInfoURL string
	client      *http.Client
	logger      *zap.Logger
}

func NewGoogleVerifier(userInfoURL string, logger *zap.Logger) *GoogleVerifier {
	if strings.TrimSpace(userInfoURL) == "" {
		userInfoURL = DefaultGoogleUserInfoURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleVerifier{
		userInfoURL: userInfoURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		logger:      logger,
	}
}

func (v *GoogleVerifier) Verify(ctx context.Context, accessToken string) (UserInfo, error) {
	if strings.TrimSpace(accessToken) == "" {
		return UserInfo{}, ErrTokenRejected
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.userInfoURL, nil)
	if err != nil {
		return UserInfo{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return UserInfo{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return UserInfo{}, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return UserInfo{}, ErrTokenRejected
	case resp.StatusCode >= 400:
		v.logger.Warn("google userinfo error", zap.Int("status", resp.StatusCode))
		return UserInfo{}, fmt.Errorf("userinfo http error: status=%d", resp.StatusCode)
	}

	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return UserInfo{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if info.Sub == "" {
		return UserInfo{}, ErrTokenRejected
	}
	return info, nil
}
