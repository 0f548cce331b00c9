package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/bingo-game/internal/errors"
	"github.com/wfunc/bingo-game/internal/middleware"
	"go.uber.org/zap"
)

// ListResponse 分页列表响应
type ListResponse struct {
	Items    interface{} `json:"items"`
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

// respondError 按错误码映射HTTP状态并返回统一错误结构
func respondError(c *gin.Context, log *zap.Logger, err error) {
	appErr := apperrors.Wrap(err, apperrors.ErrUnknown)
	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		log.Error("请求处理失败",
			zap.String("path", c.Request.URL.Path),
			zap.Int("code", int(appErr.Code)),
			zap.Error(err))
	}
	c.Error(err)
	c.AbortWithStatusJSON(status, apperrors.NewErrorResponse(appErr, c.GetString(middleware.ContextRequestID)))
}

// respondBindError 请求体解析失败
func respondBindError(c *gin.Context, log *zap.Logger, err error) {
	respondError(c, log, apperrors.Wrap(err, apperrors.ErrInvalidParam, "请求参数错误"))
}

// identity 已通过 RequireIdentity 的请求身份
func identity(c *gin.Context) string {
	id, _ := middleware.GetIdentity(c)
	return id
}

// queryInt 读取整数查询参数，缺失或非法时使用默认值
func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
