package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/snapshare/inferno/internal/models"
	"github.com/snapshare/inferno/internal/repositories"
	"gorm.io/gorm"
)

// UserHandler handles user profile, search and discovery requests
type UserHandler struct {
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userRepo repositories.UserRepository, followRepo repositories.FollowRepository) *UserHandler {
	return &UserHandler{
		userRepository:   userRepo,
		followRepository: followRepo,
	}
}

// RegisterUserRoutes registers user-related routes
func (h *UserHandler) RegisterUserRoutes(g *echo.Group) {
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/suggested", h.SuggestedUsers)
	g.GET("/users/:id", h.GetProfile)
	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/following", h.GetFollowing)
	g.PUT("/users/profile", h.UpdateProfile)
}

// SearchUsers matches usernames case-insensitively. Queries under two
// characters return empty without touching the database.
func (h *UserHandler) SearchUsers(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	q := c.QueryParam("q")
	if len(q) < 2 {
		return c.JSON(http.StatusOK, []models.UserPublic{})
	}

	users, err := h.userRepository.SearchUsers(q, userID, 20)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	return c.JSON(http.StatusOK, publicProjections(users))
}

// SuggestedUsers returns up to five creators the user does not follow yet,
// most popular first.
func (h *UserHandler) SuggestedUsers(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	followingIDs, err := h.followRepository.GetFollowingIDs(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	users, err := h.userRepository.SuggestedCreators(userID, followingIDs, 5)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	return c.JSON(http.StatusOK, publicProjections(users))
}

// GetProfile returns a user's public profile with graph counts
func (h *UserHandler) GetProfile(c echo.Context) error {
	targetID, ok := parseUserIDParam(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	user, err := h.userRepository.GetUserByID(targetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	followers, _ := h.followRepository.GetFollowersCount(targetID)
	following, _ := h.followRepository.GetFollowingCount(targetID)

	return c.JSON(http.StatusOK, models.UserProfile{
		UserPublic:     user.Public(),
		FollowersCount: followers,
		FollowingCount: following,
		CreatedAt:      user.CreatedAt,
	})
}

// GetFollowers lists the users following the target
func (h *UserHandler) GetFollowers(c echo.Context) error {
	targetID, ok := parseUserIDParam(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	if _, err := h.userRepository.GetUserByID(targetID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	users, err := h.followRepository.GetFollowers(targetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	return c.JSON(http.StatusOK, publicProjections(users))
}

// GetFollowing lists the users the target follows
func (h *UserHandler) GetFollowing(c echo.Context) error {
	targetID, ok := parseUserIDParam(c, "id")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}
	if _, err := h.userRepository.GetUserByID(targetID); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	users, err := h.followRepository.GetFollowing(targetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	return c.JSON(http.StatusOK, publicProjections(users))
}

// UpdateProfile updates the current user's bio and avatar
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userRepository.GetUserByID(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	user.Bio = req.Bio
	user.Avatar = req.Avatar
	if err := h.userRepository.UpdateUser(user); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	return c.JSON(http.StatusOK, user.Public())
}

func publicProjections(users []models.User) []models.UserPublic {
	out := make([]models.UserPublic, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out
}
