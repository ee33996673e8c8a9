package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/snapshare/inferno/internal/audit"
	"github.com/snapshare/inferno/internal/cache"
	"github.com/snapshare/inferno/internal/models"
	"github.com/snapshare/inferno/internal/repositories"
	"github.com/snapshare/inferno/pkg/logger"
	"go.uber.org/zap"
)

const maxMessageLength = 5000

// MessageHandler handles direct-message requests
type MessageHandler struct {
	messageRepository repositories.MessageRepository
	userRepository    repositories.UserRepository
	unread            *cache.UnreadStorage
	audit             *audit.Recorder
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, unread *cache.UnreadStorage, recorder *audit.Recorder) *MessageHandler {
	return &MessageHandler{
		messageRepository: messageRepo,
		userRepository:    userRepo,
		unread:            unread,
		audit:             recorder,
	}
}

// RegisterMessageRoutes registers messaging routes
func (h *MessageHandler) RegisterMessageRoutes(g *echo.Group) {
	g.GET("/messages/conversations", h.GetConversations)
	g.GET("/messages/unread-count", h.GetUnreadCount)
	g.GET("/messages/:userId", h.GetThread)
	g.POST("/messages/:userId", h.SendMessage)
	g.PUT("/messages/read/:userId", h.MarkRead)
}

// GetConversations lists every user the caller has exchanged messages with,
// newest conversation first. Counterparts with no messages sort last.
func (h *MessageHandler) GetConversations(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	ctx := c.Request().Context()

	counterpartIDs, err := h.messageRepository.GetCounterpartIDs(ctx, userID)
	if err != nil {
		logger.L.Error("failed to list conversation counterparts", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	users, err := h.userRepository.GetUsersByIDs(counterpartIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	conversations := make([]models.Conversation, 0, len(users))
	for i := range users {
		last, err := h.messageRepository.GetLastMessage(ctx, userID, users[i].ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
		}
		unread, err := h.messageRepository.GetUnreadCountFrom(ctx, users[i].ID, userID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
		}
		conversations = append(conversations, models.Conversation{
			User:        users[i].Public(),
			LastMessage: last,
			UnreadCount: unread,
		})
	}

	sort.SliceStable(conversations, func(i, j int) bool {
		a, b := conversations[i].LastMessage, conversations[j].LastMessage
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	return c.JSON(http.StatusOK, conversations)
}

// GetUnreadCount returns the caller's total unread message count. The redis
// hint is used when present; otherwise Mongo is counted and the hint
// backfilled.
func (h *MessageHandler) GetUnreadCount(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	ctx := c.Request().Context()

	if count, ok := h.unread.Get(ctx, userID); ok {
		return c.JSON(http.StatusOK, echo.Map{"count": count})
	}

	count, err := h.messageRepository.GetUnreadCount(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	h.unread.Set(ctx, userID, count)

	return c.JSON(http.StatusOK, echo.Map{"count": count})
}

// GetThread returns the full message history with one user and marks their
// messages to the caller as read.
func (h *MessageHandler) GetThread(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	otherID, ok := parseUserIDParam(c, "userId")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	ctx := c.Request().Context()

	if _, err := h.userRepository.GetUserByID(otherID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	messages, err := h.messageRepository.GetThread(ctx, userID, otherID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	// Opening the thread reads it.
	if err := h.messageRepository.MarkRead(ctx, otherID, userID); err != nil {
		logger.L.Warn("failed to mark thread read", zap.Uint("user_id", uint(userID)), zap.Error(err))
	} else {
		h.refreshUnreadHint(c, userID)
	}

	return c.JSON(http.StatusOK, messages)
}

// SendMessage sends a direct message, optionally carrying a shared-post
// snapshot. Text is trimmed and capped at 5000 characters.
func (h *MessageHandler) SendMessage(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	receiverID, ok := parseUserIDParam(c, "userId")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	if receiverID == userID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot message yourself")
	}
	ctx := c.Request().Context()

	var req models.SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Message text is required")
	}
	if runes := []rune(req.Text); len(runes) > maxMessageLength {
		req.Text = string(runes[:maxMessageLength])
	}

	if _, err := h.userRepository.GetUserByID(receiverID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	message := &models.Message{
		SenderID:   userID,
		ReceiverID: receiverID,
		Text:       req.Text,
		SharedPost: req.SharedPost,
	}
	if err := h.messageRepository.CreateMessage(ctx, message); err != nil {
		logger.L.Error("failed to send message", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	h.unread.Incr(ctx, receiverID)

	username := ""
	if sender, err := h.userRepository.GetUserByID(userID); err == nil {
		username = sender.Username
	}
	h.audit.Record(models.Activity{
		UserID:       userID,
		Username:     username,
		Type:         models.ActivityMessage,
		TargetUserID: receiverID,
	})

	return c.JSON(http.StatusCreated, message)
}

// MarkRead marks every message from the given user as read and returns the
// caller's remaining unread total.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	senderID, ok := parseUserIDParam(c, "userId")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	ctx := c.Request().Context()

	if err := h.messageRepository.MarkRead(ctx, senderID, userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	count, err := h.messageRepository.GetUnreadCount(ctx, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	h.unread.Set(ctx, userID, count)

	return c.JSON(http.StatusOK, echo.Map{"count": count})
}

// refreshUnreadHint recomputes the unread total and rewrites the cache hint.
func (h *MessageHandler) refreshUnreadHint(c echo.Context, userID uint) {
	ctx := c.Request().Context()
	count, err := h.messageRepository.GetUnreadCount(ctx, userID)
	if err != nil {
		h.unread.Del(ctx, userID)
		return
	}
	h.unread.Set(ctx, userID, count)
}
