package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sciencehub/internal/apperr"
	"sciencehub/internal/model"
	"sciencehub/internal/service/chat"
)

type ChatHandler struct {
	chats  *chat.Service
	logger *zap.Logger
}

func NewChatHandler(chats *chat.Service, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, logger: logger}
}

// List handles GET /chats
func (h *ChatHandler) List(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	chats, err := h.chats.ListForCaller(c.Request.Context(), cl)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// Get handles GET /chats/:id
func (h *ChatHandler) Get(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	ch, err := h.chats.Get(c.Request.Context(), cl, c.Param("id"))
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": ch})
}

// Create handles POST /chats
func (h *ChatHandler) Create(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var req struct {
		ApplicationID string `json:"application_id"`
	}
	if !bindJSON(c, h.logger, &req) {
		return
	}
	ch, err := h.chats.CreateForCaller(c.Request.Context(), cl, req.ApplicationID)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"chat": ch})
}

// UpdateStatus handles PUT /chats/:id
func (h *ChatHandler) UpdateStatus(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var req struct {
		Status model.ChatStatus `json:"status"`
	}
	if !bindJSON(c, h.logger, &req) {
		return
	}
	ch, err := h.chats.UpdateStatus(c.Request.Context(), cl, c.Param("id"), req.Status)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chat": ch})
}

// SendMessage handles POST /chats/:id/messages
func (h *ChatHandler) SendMessage(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var req model.NewMessage
	if !bindJSON(c, h.logger, &req) {
		return
	}
	m, err := h.chats.SendMessage(c.Request.Context(), cl, c.Param("id"), req)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": m})
}

// ListMessages handles GET /chats/:id/messages?since=<RFC3339>
func (h *ChatHandler) ListMessages(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var since *time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			WriteError(c, h.logger, apperr.Validation("since must be an RFC 3339 timestamp"))
			return
		}
		since = &t
	}
	messages, err := h.chats.ListMessagesSince(c.Request.Context(), cl, c.Param("id"), since)
	if err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// MarkRead handles POST /chats/:id/read
func (h *ChatHandler) MarkRead(c *gin.Context) {
	cl, ok := requireCaller(c, h.logger)
	if !ok {
		return
	}
	var req struct {
		MessageID string `json:"message_id"`
	}
	if !bindJSON(c, h.logger, &req) {
		return
	}
	if err := h.chats.MarkRead(c.Request.Context(), cl, c.Param("id"), req.MessageID); err != nil {
		WriteError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
