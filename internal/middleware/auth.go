package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/service"
)

// 上下文键
const (
	ContextIdentity = "identity"
	ContextToken    = "token"
)

// AuthMiddleware 身份令牌中间件
type AuthMiddleware struct {
	authService service.AuthService
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(authService service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		authService: authService,
	}
}

// RequireIdentity 需要有效身份的中间件
func (m *AuthMiddleware) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := m.extractToken(c)
		if token == "" {
			abortWithError(c, apperrors.New(apperrors.ErrAuthentication, "缺少认证令牌"))
			return
		}

		claims, err := m.authService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(ContextIdentity, claims.Identity())
		c.Set(ContextToken, token)
		c.Next()
	}
}

// OptionalIdentity 有令牌时绑定身份，没有时放行
func (m *AuthMiddleware) OptionalIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := m.extractToken(c); token != "" {
			if claims, err := m.authService.ValidateToken(c.Request.Context(), token); err == nil {
				c.Set(ContextIdentity, claims.Identity())
				c.Set(ContextToken, token)
			}
		}
		c.Next()
	}
}

// extractToken 从请求中提取令牌
func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	// 1. Authorization: Bearer <token>
	if bearer := c.GetHeader("Authorization"); bearer != "" {
		parts := strings.SplitN(bearer, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// 2. X-Access-Token
	if token := c.GetHeader("X-Access-Token"); token != "" {
		return token
	}

	// 3. Cookie
	if token, err := c.Cookie("access_token"); err == nil && token != "" {
		return token
	}

	// 4. Query参数，浏览器 WebSocket 无法设置请求头
	if token := c.Query("token"); token != "" {
		return token
	}

	return ""
}

// GetIdentity 从上下文获取当前身份
func GetIdentity(c *gin.Context) (string, bool) {
	if v, exists := c.Get(ContextIdentity); exists {
		if id, ok := v.(string); ok && id != "" {
			return id, true
		}
	}
	return "", false
}

func abortWithError(c *gin.Context, err error) {
	appErr := apperrors.Wrap(err, apperrors.ErrAuthentication)
	c.AbortWithStatusJSON(appErr.HTTPStatus(), apperrors.NewErrorResponse(appErr, c.GetString(ContextRequestID)))
}
