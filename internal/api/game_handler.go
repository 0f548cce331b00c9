package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/service"
	"go.uber.org/zap"
)

const (
	defaultQRSize = 320
	maxQRSize     = 1024
)

// GameHandler 游戏处理器
type GameHandler struct {
	games     service.GameService
	lifecycle service.LifecycleService
	publicURL string
	log       *zap.Logger
}

// NewGameHandler 创建游戏处理器
func NewGameHandler(games service.GameService, lifecycle service.LifecycleService, publicURL string, log *zap.Logger) *GameHandler {
	return &GameHandler{
		games:     games,
		lifecycle: lifecycle,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
	}
}

// UpdatePromptsRequest 修改题目请求
type UpdatePromptsRequest struct {
	Prompts []string `json:"prompts" binding:"required"`
}

// GeneratePromptsRequest 生成题目请求
type GeneratePromptsRequest struct {
	Industry string `json:"industry"`
	Count    int    `json:"count" binding:"required,min=1,max=100"`
}

// GeneratePromptsResponse 生成题目响应
type GeneratePromptsResponse struct {
	Prompts  []string `json:"prompts"`
	Warnings []string `json:"warnings,omitempty"`
}

// Create 创建游戏
// @Summary 创建游戏
// @Description 当前身份成为管理员并自动加入；未提供题目时按行业生成
// @Tags Games
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.CreateGameRequest true "游戏设置"
// @Success 201 {object} service.CreateGameResult
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/games [post]
func (h *GameHandler) Create(c *gin.Context) {
	var req service.CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.log, err)
		return
	}
	req.AdminID = identity(c)

	result, err := h.games.CreateGame(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// List 管理员的游戏列表
// @Summary 我创建的游戏
// @Tags Games
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} ListResponse
// @Router /api/v1/games [get]
func (h *GameHandler) List(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 20)

	games, total, err := h.games.ListGamesByAdmin(c.Request.Context(), identity(c), page, pageSize)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, ListResponse{
		Items:    games,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// Get 游戏详情
// @Summary 游戏详情
// @Description 返回游戏记录以及服务器计算的阶段截止时间和剩余秒数
// @Tags Games
// @Produce json
// @Param id path string true "房间号"
// @Success 200 {object} service.GameView
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/games/{id} [get]
func (h *GameHandler) Get(c *gin.Context) {
	view, err := h.games.GetGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// UpdatePrompts 修改题目
// @Summary 修改题目
// @Description 仅管理员，仅等待阶段，数量必须等于格子数
// @Tags Games
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "房间号"
// @Param request body UpdatePromptsRequest true "题目"
// @Success 200 {object} service.GameView
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /api/v1/games/{id}/prompts [put]
func (h *GameHandler) UpdatePrompts(c *gin.Context) {
	var req UpdatePromptsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.log, err)
		return
	}

	view, err := h.games.UpdatePrompts(c.Request.Context(), c.Param("id"), identity(c), req.Prompts)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GeneratePrompts 预览生成的题目
// @Summary 生成题目
// @Description 生成失败时用内置题库补齐，并返回警告
// @Tags Games
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body GeneratePromptsRequest true "行业与数量"
// @Success 200 {object} GeneratePromptsResponse
// @Router /api/v1/prompts/generate [post]
func (h *GameHandler) GeneratePrompts(c *gin.Context) {
	var req GeneratePromptsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.log, err)
		return
	}

	prompts, warnings := h.games.GeneratePrompts(c.Request.Context(), req.Industry, req.Count)
	c.JSON(http.StatusOK, GeneratePromptsResponse{Prompts: prompts, Warnings: warnings})
}

// Start 开始游戏
// @Summary 开始游戏
// @Description 仅管理员；至少需要两名玩家
// @Tags Lifecycle
// @Produce json
// @Security BearerAuth
// @Param id path string true "房间号"
// @Success 200 {object} service.TransitionResult
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/games/{id}/start [post]
func (h *GameHandler) Start(c *gin.Context) {
	h.transition(c, func(gameID string) (*service.TransitionResult, error) {
		return h.lifecycle.StartGame(c.Request.Context(), gameID, identity(c))
	})
}

// Advance 到期推进
// @Summary 到期推进
// @Description 客户端倒计时归零时调用；未到期或已被推进时 applied 为 false
// @Tags Lifecycle
// @Produce json
// @Param id path string true "房间号"
// @Success 200 {object} service.TransitionResult
// @Router /api/v1/games/{id}/advance [post]
func (h *GameHandler) Advance(c *gin.Context) {
	h.transition(c, func(gameID string) (*service.TransitionResult, error) {
		return h.lifecycle.AdvanceIfDue(c.Request.Context(), gameID)
	})
}

// ForceAdvance 管理员手动推进
// @Summary 手动推进
// @Tags Lifecycle
// @Produce json
// @Security BearerAuth
// @Param id path string true "房间号"
// @Success 200 {object} service.TransitionResult
// @Failure 403 {object} errors.ErrorResponse
// @Router /api/v1/games/{id}/force-advance [post]
func (h *GameHandler) ForceAdvance(c *gin.Context) {
	h.transition(c, func(gameID string) (*service.TransitionResult, error) {
		return h.lifecycle.ForceAdvance(c.Request.Context(), gameID, identity(c))
	})
}

// ForceEnd 管理员强制结束
// @Summary 强制结束
// @Tags Lifecycle
// @Produce json
// @Security BearerAuth
// @Param id path string true "房间号"
// @Success 200 {object} service.TransitionResult
// @Failure 403 {object} errors.ErrorResponse
// @Router /api/v1/games/{id}/force-end [post]
func (h *GameHandler) ForceEnd(c *gin.Context) {
	h.transition(c, func(gameID string) (*service.TransitionResult, error) {
		return h.lifecycle.ForceEnd(c.Request.Context(), gameID, identity(c))
	})
}

func (h *GameHandler) transition(c *gin.Context, fn func(gameID string) (*service.TransitionResult, error)) {
	result, err := fn(c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Leaderboard 排行榜
// @Summary 排行榜
// @Tags Games
// @Produce json
// @Param id path string true "房间号"
// @Success 200 {object} service.LeaderboardView
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/games/{id}/leaderboard [get]
func (h *GameHandler) Leaderboard(c *gin.Context) {
	view, err := h.games.Leaderboard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// QRCode 加入链接二维码
// @Summary 加入二维码
// @Tags Games
// @Produce png
// @Param id path string true "房间号"
// @Param size query int false "边长像素"
// @Success 200 {file} binary
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/games/{id}/qr.png [get]
func (h *GameHandler) QRCode(c *gin.Context) {
	view, err := h.games.GetGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	size := queryInt(c, "size", defaultQRSize)
	if size <= 0 || size > maxQRSize {
		size = defaultQRSize
	}

	png, err := qrcode.Encode(h.joinURL(c, view.ID), qrcode.Medium, size)
	if err != nil {
		respondError(c, h.log, apperrors.Wrap(err, apperrors.ErrUnknown, "二维码生成失败"))
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// joinURL 未配置公开地址时按请求推导
func (h *GameHandler) joinURL(c *gin.Context, gameID string) string {
	base := h.publicURL
	if base == "" {
		scheme := "http"
		if c.Request.TLS != nil {
			scheme = "https"
		}
		if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + c.Request.Host
	}
	return base + "/join/" + gameID
}
