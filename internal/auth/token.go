// Package auth выпускает и проверяет токены доступа и хэширует пароли.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mmeshcher/coffeeshop/internal/model"
)

// ErrInvalidToken возвращается для подписанных неверно, просроченных или чужого типа токенов.
var ErrInvalidToken = errors.New("invalid or expired token")

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
	issuer           = "coffeeshop"
)

// Claims описывает полезную нагрузку токена.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair содержит access- и refresh-токены, выданные при входе.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenManager подписывает и проверяет токены HS256.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenManager создаёт TokenManager с раздельными секретами для access- и refresh-токенов.
func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// IssueAccessToken выпускает короткоживущий токен доступа.
func (m *TokenManager) IssueAccessToken(id model.Identity) (string, error) {
	return m.sign(id, tokenTypeAccess, m.accessSecret, m.accessTTL)
}

// IssueRefreshToken выпускает токен обновления.
func (m *TokenManager) IssueRefreshToken(id model.Identity) (string, error) {
	return m.sign(id, tokenTypeRefresh, m.refreshSecret, m.refreshTTL)
}

// IssuePair выпускает пару токенов.
func (m *TokenManager) IssuePair(id model.Identity) (TokenPair, error) {
	access, err := m.IssueAccessToken(id)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := m.IssueRefreshToken(id)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccessToken проверяет токен доступа и возвращает личность пользователя.
func (m *TokenManager) VerifyAccessToken(token string) (model.Identity, error) {
	return m.verify(token, tokenTypeAccess, m.accessSecret)
}

// VerifyRefreshToken проверяет токен обновления.
func (m *TokenManager) VerifyRefreshToken(token string) (model.Identity, error) {
	return m.verify(token, tokenTypeRefresh, m.refreshSecret)
}

func (m *TokenManager) sign(id model.Identity, typ string, secret []byte, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		Email: id.Email,
		Role:  string(id.Role),
		Type:  typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (m *TokenManager) verify(token, typ string, secret []byte) (model.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return model.Identity{}, ErrInvalidToken
	}

	if claims.Type != typ {
		return model.Identity{}, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return model.Identity{}, ErrInvalidToken
	}

	role, ok := model.ParseRole(claims.Role)
	if !ok {
		return model.Identity{}, ErrInvalidToken
	}

	return model.Identity{UserID: userID, Email: claims.Email, Role: role}, nil
}
