package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/snapshare/inferno/internal/audit"
	"github.com/snapshare/inferno/internal/models"
	"github.com/snapshare/inferno/internal/repositories"
	"gorm.io/gorm"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
	audit            *audit.Recorder
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(followRepo repositories.FollowRepository, userRepo repositories.UserRepository, recorder *audit.Recorder) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
		audit:            recorder,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.ToggleFollow)
}

// ToggleFollow follows the target if not yet following, unfollows otherwise.
// The follow edge is a single row, so the two sides of the relationship
// cannot diverge.
func (h *FollowHandler) ToggleFollow(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, ok := parseUserIDParam(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	if currentUserID == targetID {
		return echo.NewHTTPError(http.StatusBadRequest, "Cannot follow yourself")
	}

	target, err := h.userRepository.GetUserByID(targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	isFollowing, err := h.followRepository.IsFollowing(currentUserID, targetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	actor, err := h.userRepository.GetUserByID(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User no longer exists")
	}

	activityType := models.ActivityFollow
	if isFollowing {
		if err := h.followRepository.DeleteFollow(currentUserID, targetID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
		}
		activityType = models.ActivityUnfollow
	} else {
		if err := h.followRepository.CreateFollow(currentUserID, targetID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
		}
	}

	h.audit.Record(models.Activity{
		UserID:         actor.ID,
		Username:       actor.Username,
		Type:           activityType,
		TargetUserID:   target.ID,
		TargetUsername: target.Username,
	})

	followersCount, err := h.followRepository.GetFollowersCount(targetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	message := "Following successfully"
	if isFollowing {
		message = "Unfollowed successfully"
	}

	return c.JSON(http.StatusOK, echo.Map{
		"isFollowing":    !isFollowing,
		"followersCount": followersCount,
		"message":        message,
	})
}
