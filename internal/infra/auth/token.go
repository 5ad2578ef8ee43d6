package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xela07ax/meetroom-backend/internal/domain"
)

// TokenService подписывает и проверяет access/refresh токены симметричным
// секретом HS256. Состояния, кроме секрета и дефолтных TTL, не держит.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(secret []byte, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// IssueAccessToken выпускает короткоживущий токен с полным набором прав.
func (s *TokenService) IssueAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := &domain.AccessClaims{
		UserID:      user.ID,
		Username:    user.Username,
		Roles:       user.Roles,
		Permissions: user.Permissions,
		Kind:        domain.TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken выпускает долгоживущий токен, несущий только userId.
// Сам по себе он не дает доступа к API — только право на обмен.
func (s *TokenService) IssueRefreshToken(userID int64) (string, error) {
	now := time.Now()
	claims := &domain.RefreshClaims{
		UserID: userID,
		Kind:   domain.TokenKindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, nil
}

// VerifyAccess проверяет подпись и срок access-токена.
func (s *TokenService) VerifyAccess(tokenStr string) (*domain.AccessClaims, error) {
	claims := &domain.AccessClaims{}
	if err := s.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	// Refresh-токен проходит подпись, но доступа к API не дает
	if claims.Kind != domain.TokenKindAccess {
		return nil, fmt.Errorf("invalid token: not an access token")
	}
	return claims, nil
}

// VerifyRefresh проверяет подпись и срок refresh-токена.
func (s *TokenService) VerifyRefresh(tokenStr string) (*domain.RefreshClaims, error) {
	claims := &domain.RefreshClaims{}
	if err := s.parse(tokenStr, claims); err != nil {
		return nil, err
	}
	if claims.Kind != domain.TokenKindRefresh {
		return nil, fmt.Errorf("invalid token: not a refresh token")
	}
	return claims, nil
}

func (s *TokenService) parse(tokenStr string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		// Пиним метод подписи, иначе возможна подмена alg
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}
