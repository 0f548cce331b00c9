package service

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/utils"
	"go.uber.org/zap"
)

// authService 身份服务实现，替代托管身份提供方的匿名登录
type authService struct {
	jwtManager *utils.JWTManager
	log        *zap.Logger
}

// NewAuthService 创建身份服务
func NewAuthService(jwtManager *utils.JWTManager, log *zap.Logger) AuthService {
	return &authService{
		jwtManager: jwtManager,
		log:        log,
	}
}

// IssueAnonymous 生成新身份并签发令牌
func (s *authService) IssueAnonymous(ctx context.Context) (*TokenResponse, error) {
	identity := utils.NewIdentity()
	token, expiresAt, err := s.jwtManager.GenerateIdentityToken(identity)
	if err != nil {
		s.log.Error("签发令牌失败", zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrAuthentication, "签发令牌失败")
	}

	s.log.Debug("签发匿名身份", zap.String("identity", identity))
	return &TokenResponse{
		Identity:    identity,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	}, nil
}

// ValidateToken 校验令牌
func (s *authService) ValidateToken(ctx context.Context, token string) (*utils.IdentityClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		if errors.Is(err, utils.ErrExpiredToken) {
			return nil, apperrors.New(apperrors.ErrTokenExpired)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrTokenInvalid)
	}
	return claims, nil
}
