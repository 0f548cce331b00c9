package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/bingo-game/internal/service"
	"go.uber.org/zap"
)

// AuthHandler 身份处理器
type AuthHandler struct {
	authService service.AuthService
	log         *zap.Logger
}

// NewAuthHandler 创建身份处理器
func NewAuthHandler(authService service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log,
	}
}

// Anonymous 匿名登录
// @Summary 匿名登录
// @Description 为新身份签发访问令牌，之后的写操作都以该身份进行
// @Tags Auth
// @Produce json
// @Success 200 {object} service.TokenResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /api/v1/auth/anonymous [post]
func (h *AuthHandler) Anonymous(c *gin.Context) {
	resp, err := h.authService.IssueAnonymous(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me 当前身份
// @Summary 当前身份
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"identity": identity(c)})
}
