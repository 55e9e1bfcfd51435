package restaurant

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Handler 将 Service 暴露为 gin 路由。
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// GetPair 返回一对随机餐厅
func (h *Handler) GetPair(c *gin.Context) {
	pair, err := h.service.GetPair(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

// SubmitVote 处理投票，请求体为 {"id": <餐厅ID>}
func (h *Handler) SubmitVote(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body."})
		return
	}

	var req VoteRequest
	// 空请求体按 {} 处理
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be a JSON object."})
			return
		}
	}

	if err := h.service.Vote(c.Request.Context(), req); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetLeaderboard 返回完整排行榜
func (h *Handler) GetLeaderboard(c *gin.Context) {
	ranked, err := h.service.Leaderboard(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ranked)
}

// respondError 按错误类型映射HTTP状态码
func (h *Handler) respondError(c *gin.Context, err error) {
	var validationErr *ValidationError
	var notFoundErr *NotFoundError
	var storeErr *StoreError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Message})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &storeErr):
		// 只返回失败的操作，底层错误只写日志
		h.logger.Error("处理请求失败", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error: " + storeErr.Op + "失败."})
	default:
		h.logger.Error("处理请求失败", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error."})
	}
}
