package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// IdentityClaims 身份令牌声明，Subject 即玩家身份ID
type IdentityClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// Identity 身份ID
func (c *IdentityClaims) Identity() string {
	return c.Subject
}

// JWTManager JWT管理器
type JWTManager struct {
	secretKey string
	issuer    string
	expiry    time.Duration
	now       func() time.Time
}

// NewJWTManager 创建JWT管理器
func NewJWTManager(secretKey, issuer string, expiry time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: secretKey,
		issuer:    issuer,
		expiry:    expiry,
		now:       time.Now,
	}
}

// NewIdentity 生成新的匿名身份ID
func NewIdentity() string {
	return uuid.NewString()
}

// GenerateIdentityToken 为身份签发令牌
func (j *JWTManager) GenerateIdentityToken(identity string) (string, time.Time, error) {
	if identity == "" {
		return "", time.Time{}, ErrInvalidToken
	}

	now := j.now()
	expiresAt := now.Add(j.expiry)

	claims := &IdentityClaims{
		TokenType: "identity",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    j.issuer,
			Subject:   identity,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken 验证令牌并返回声明
func (j *JWTManager) ValidateToken(tokenString string) (*IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(j.secretKey), nil
	}, jwt.WithTimeFunc(j.now), jwt.WithIssuer(j.issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "identity" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
