package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/snapshare/inferno/internal/audit"
	"github.com/snapshare/inferno/internal/cache"
	"github.com/snapshare/inferno/internal/models"
	"github.com/snapshare/inferno/internal/repositories"
	"github.com/snapshare/inferno/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const adminListLimit = 100

// AdminHandler handles the admin dashboard and moderation requests
type AdminHandler struct {
	userRepository     repositories.UserRepository
	postRepository     repositories.PostRepository
	likeRepository     repositories.LikeRepository
	commentRepository  repositories.CommentRepository
	savedRepository    repositories.SavedPostRepository
	followRepository   repositories.FollowRepository
	storyRepository    repositories.StoryRepository
	messageRepository  repositories.MessageRepository
	activityRepository repositories.ActivityRepository
	unread             *cache.UnreadStorage
	audit              *audit.Recorder
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	userRepo repositories.UserRepository,
	postRepo repositories.PostRepository,
	likeRepo repositories.LikeRepository,
	commentRepo repositories.CommentRepository,
	savedRepo repositories.SavedPostRepository,
	followRepo repositories.FollowRepository,
	storyRepo repositories.StoryRepository,
	messageRepo repositories.MessageRepository,
	activityRepo repositories.ActivityRepository,
	unread *cache.UnreadStorage,
	recorder *audit.Recorder,
) *AdminHandler {
	return &AdminHandler{
		userRepository:     userRepo,
		postRepository:     postRepo,
		likeRepository:     likeRepo,
		commentRepository:  commentRepo,
		savedRepository:    savedRepo,
		followRepository:   followRepo,
		storyRepository:    storyRepo,
		messageRepository:  messageRepo,
		activityRepository: activityRepo,
		unread:             unread,
		audit:              recorder,
	}
}

// RegisterAdminRoutes registers the admin dashboard routes. The group is
// expected to carry the admin-only middleware.
func (h *AdminHandler) RegisterAdminRoutes(g *echo.Group) {
	g.GET("/stats", h.GetStats)
	g.GET("/users", h.ListUsers)
	g.GET("/posts", h.ListPosts)
	g.GET("/activities", h.ListActivities)
	g.DELETE("/users/:id", h.DeleteUser)
	g.DELETE("/posts/:id", h.DeletePost)
}

// GetStats returns platform-wide totals and seven-day growth figures for the
// dashboard
func (h *AdminHandler) GetStats(c echo.Context) error {
	ctx := c.Request().Context()
	weekAgo := time.Now().Add(-7 * 24 * time.Hour)

	totalUsers, err := h.userRepository.CountNonAdmins()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	creators, err := h.userRepository.CountByRole(models.RoleCreator)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	consumers, err := h.userRepository.CountByRole(models.RoleConsumer)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	newUsers, err := h.userRepository.CountNonAdminsCreatedSince(weekAgo)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	totalPosts, err := h.postRepository.CountPosts(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	newPosts, err := h.postRepository.CountPostsCreatedSince(ctx, weekAgo)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	totalLikes, err := h.likeRepository.CountAll()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	totalComments, err := h.commentRepository.CountAll()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	totalMessages, err := h.messageRepository.CountMessages(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"totalUsers":       totalUsers,
		"totalCreators":    creators,
		"totalConsumers":   consumers,
		"newUsersThisWeek": newUsers,
		"totalPosts":       totalPosts,
		"newPostsThisWeek": newPosts,
		"totalLikes":       totalLikes,
		"totalComments":    totalComments,
		"totalMessages":    totalMessages,
	})
}

// ListUsers returns up to 100 non-admin accounts with their post counts
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx := c.Request().Context()

	users, err := h.userRepository.ListNonAdmins(adminListLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	type adminUser struct {
		models.UserPublic
		Email     string    `json:"email"`
		PostCount int64     `json:"post_count"`
		CreatedAt time.Time `json:"created_at"`
	}

	out := make([]adminUser, 0, len(users))
	for i := range users {
		postCount, err := h.postRepository.CountPostsByUserID(ctx, users[i].ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
		}
		out = append(out, adminUser{
			UserPublic: users[i].Public(),
			Email:      users[i].Email,
			PostCount:  postCount,
			CreatedAt:  users[i].CreatedAt,
		})
	}

	return c.JSON(http.StatusOK, out)
}

// ListPosts returns the 100 most recent posts with their authors
func (h *AdminHandler) ListPosts(c echo.Context) error {
	posts, err := h.postRepository.GetRecentPosts(c.Request().Context(), adminListLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	authorIDs := make([]uint, 0, len(posts))
	seen := make(map[uint]bool)
	for _, p := range posts {
		if !seen[p.UserID] {
			seen[p.UserID] = true
			authorIDs = append(authorIDs, p.UserID)
		}
	}
	authors, err := h.userRepository.GetUsersByIDs(authorIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	byID := make(map[uint]models.UserPublic, len(authors))
	for i := range authors {
		byID[authors[i].ID] = authors[i].Public()
	}

	out := make([]models.PostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, models.PostResponse{Post: p, Author: byID[p.UserID]})
	}
	return c.JSON(http.StatusOK, out)
}

// ListActivities returns the 100 most recent audit-log entries
func (h *AdminHandler) ListActivities(c echo.Context) error {
	activities, err := h.activityRepository.GetRecentActivities(c.Request().Context(), adminListLimit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	return c.JSON(http.StatusOK, activities)
}

// DeleteUser removes an account and everything attached to it. Admin
// accounts cannot be deleted through this endpoint.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	claims := getClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, ok := parseUserIDParam(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	target, err := h.userRepository.GetUserByID(targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if target.Role == models.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "Cannot delete admin accounts")
	}
	ctx := c.Request().Context()

	// Per-post relational rows first, so no like/comment/save rows outlive
	// their posts.
	posts, err := h.postRepository.GetPostsByUserID(ctx, targetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	for _, p := range posts {
		id := p.ID.Hex()
		if err := h.likeRepository.DeleteByPost(id); err != nil {
			logger.L.Warn("failed to delete likes for post", zap.String("post_id", id), zap.Error(err))
		}
		if err := h.commentRepository.DeleteByPost(id); err != nil {
			logger.L.Warn("failed to delete comments for post", zap.String("post_id", id), zap.Error(err))
		}
		if err := h.savedRepository.DeleteByPost(id); err != nil {
			logger.L.Warn("failed to delete saves for post", zap.String("post_id", id), zap.Error(err))
		}
	}

	if err := h.postRepository.DeletePostsByUserID(ctx, targetID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if err := h.storyRepository.DeleteStoriesByUserID(ctx, targetID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if err := h.messageRepository.DeleteMessagesByUserID(ctx, targetID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if err := h.followRepository.RemoveAllForUser(targetID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if err := h.likeRepository.DeleteByUser(targetID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if err := h.commentRepository.DeleteByUser(targetID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if err := h.savedRepository.DeleteByUser(targetID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if err := h.storyRepository.DeleteViewsByUser(targetID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if err := h.userRepository.DeleteUser(targetID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	h.unread.Del(ctx, targetID)

	username := ""
	if actor, err := h.userRepository.GetUserByID(claims.UserID); err == nil {
		username = actor.Username
	}
	h.audit.Record(models.Activity{
		UserID:         claims.UserID,
		Username:       username,
		Type:           models.ActivityDeleteUser,
		TargetUserID:   targetID,
		TargetUsername: target.Username,
		Details:        "Deleted user account",
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted successfully"})
}

// DeletePost removes any post regardless of owner
func (h *AdminHandler) DeletePost(c echo.Context) error {
	claims := getClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID := c.Param("id")
	ctx := c.Request().Context()

	if _, err := h.postRepository.GetPostByID(ctx, postID); err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	if err := h.postRepository.DeletePost(ctx, postID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if err := h.likeRepository.DeleteByPost(postID); err != nil {
		logger.L.Warn("failed to clean up likes for deleted post", zap.String("post_id", postID), zap.Error(err))
	}
	if err := h.commentRepository.DeleteByPost(postID); err != nil {
		logger.L.Warn("failed to clean up comments for deleted post", zap.String("post_id", postID), zap.Error(err))
	}
	if err := h.savedRepository.DeleteByPost(postID); err != nil {
		logger.L.Warn("failed to clean up saves for deleted post", zap.String("post_id", postID), zap.Error(err))
	}

	username := ""
	if actor, err := h.userRepository.GetUserByID(claims.UserID); err == nil {
		username = actor.Username
	}
	h.audit.Record(models.Activity{
		UserID:       claims.UserID,
		Username:     username,
		Type:         models.ActivityDeletePost,
		TargetPostID: postID,
		Details:      "Removed by moderator",
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "Post deleted successfully"})
}
