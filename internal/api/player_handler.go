package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/service"
	"go.uber.org/zap"
)

// PlayerHandler 玩家处理器
type PlayerHandler struct {
	players service.PlayerService
	log     *zap.Logger
}

// NewPlayerHandler 创建玩家处理器
func NewPlayerHandler(players service.PlayerService, log *zap.Logger) *PlayerHandler {
	return &PlayerHandler{
		players: players,
		log:     log,
	}
}

// QuestionsResponse 追问问题
type QuestionsResponse struct {
	Questions []string `json:"questions"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Join 加入游戏
// @Summary 加入游戏
// @Description 以当前身份加入；已加入时返回原记录，不视为错误
// @Tags Players
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "房间号"
// @Param request body service.JoinRequest true "玩家信息"
// @Success 200 {object} service.JoinResult
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/games/{id}/players [post]
func (h *PlayerHandler) Join(c *gin.Context) {
	var req service.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.log, err)
		return
	}
	req.GameID = c.Param("id")
	req.PlayerID = identity(c)

	result, err := h.players.Join(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	status := http.StatusCreated
	if result.Rejoined {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

// List 玩家列表
// @Summary 玩家列表
// @Tags Players
// @Produce json
// @Param id path string true "房间号"
// @Success 200 {array} models.Player
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/games/{id}/players [get]
func (h *PlayerHandler) List(c *gin.Context) {
	players, err := h.players.ListPlayers(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, players)
}

// Get 玩家详情
// @Summary 玩家详情
// @Tags Players
// @Produce json
// @Param id path string true "房间号"
// @Param pid path string true "玩家ID"
// @Success 200 {object} models.Player
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/games/{id}/players/{pid} [get]
func (h *PlayerHandler) Get(c *gin.Context) {
	player, err := h.players.GetPlayer(c.Request.Context(), c.Param("id"), c.Param("pid"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, player)
}

// SetSquare 写入格子
// @Summary 写入格子
// @Description names 为空表示取消勾选；只能修改自己的记录，提交后锁定
// @Tags Players
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "房间号"
// @Param pid path string true "玩家ID"
// @Param index path int true "格子序号"
// @Param request body service.SetSquareRequest true "名字列表"
// @Success 200 {object} models.Player
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/games/{id}/players/{pid}/squares/{index} [put]
func (h *PlayerHandler) SetSquare(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondError(c, h.log, apperrors.Newf(apperrors.ErrInvalidSquare, "格子序号: %s", c.Param("index")))
		return
	}

	var req service.SetSquareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, h.log, err)
		return
	}
	req.GameID = c.Param("id")
	req.PlayerID = c.Param("pid")
	req.ActingID = identity(c)
	req.SquareIndex = index

	player, err := h.players.SetSquare(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, player)
}

// Submit 提交
// @Summary 提交
// @Description 提交后格子锁定；游戏中或计分阶段可以提交
// @Tags Players
// @Produce json
// @Security BearerAuth
// @Param id path string true "房间号"
// @Param pid path string true "玩家ID"
// @Success 200 {object} models.Player
// @Failure 403 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /api/v1/games/{id}/players/{pid}/submit [post]
func (h *PlayerHandler) Submit(c *gin.Context) {
	player, err := h.players.Submit(c.Request.Context(), c.Param("id"), identity(c), c.Param("pid"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, player)
}

// Questions 追问问题
// @Summary 追问问题
// @Description 根据玩家的破冰语生成追问，失败时返回内置问题
// @Tags Players
// @Produce json
// @Param id path string true "房间号"
// @Param pid path string true "玩家ID"
// @Success 200 {object} QuestionsResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/games/{id}/players/{pid}/questions [get]
func (h *PlayerHandler) Questions(c *gin.Context) {
	questions, warnings, err := h.players.FollowUpQuestions(c.Request.Context(), c.Param("id"), c.Param("pid"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, QuestionsResponse{Questions: questions, Warnings: warnings})
}
