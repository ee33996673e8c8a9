package handlers

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/snapshare/inferno/internal/audit"
	"github.com/snapshare/inferno/internal/models"
	"github.com/snapshare/inferno/internal/repositories"
	"github.com/snapshare/inferno/pkg/logger"
	"go.uber.org/zap"
)

const storyTTL = 24 * time.Hour

// StoryHandler handles ephemeral story requests
type StoryHandler struct {
	storyRepository  repositories.StoryRepository
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
	audit            *audit.Recorder
}

// NewStoryHandler creates a new StoryHandler
func NewStoryHandler(storyRepo repositories.StoryRepository, userRepo repositories.UserRepository, followRepo repositories.FollowRepository, recorder *audit.Recorder) *StoryHandler {
	return &StoryHandler{
		storyRepository:  storyRepo,
		userRepository:   userRepo,
		followRepository: followRepo,
		audit:            recorder,
	}
}

// RegisterStoryRoutes registers story-related routes
func (h *StoryHandler) RegisterStoryRoutes(g *echo.Group) {
	g.GET("/stories", h.GetStoryTray)
	g.GET("/stories/user/:userId", h.GetUserStories)
	g.POST("/stories", h.CreateStory)
	g.POST("/stories/:id/view", h.ViewStory)
	g.DELETE("/stories/:id", h.DeleteStory)
}

// GetStoryTray returns active stories from the caller and everyone they
// follow, grouped by author. The caller's own group sorts first.
func (h *StoryHandler) GetStoryTray(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	followingIDs, err := h.followRepository.GetFollowingIDs(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	stories, err := h.storyRepository.GetActiveStoriesByUserIDs(c.Request().Context(), append(followingIDs, userID))
	if err != nil {
		logger.L.Error("failed to load story tray", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	responses, err := h.buildStoryResponses(userID, stories)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	authorIDs := make([]uint, 0)
	grouped := make(map[uint][]models.StoryResponse)
	for _, sr := range responses {
		if _, ok := grouped[sr.UserID]; !ok {
			authorIDs = append(authorIDs, sr.UserID)
		}
		grouped[sr.UserID] = append(grouped[sr.UserID], sr)
	}

	authors, err := h.userRepository.GetUsersByIDs(authorIDs)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	byID := make(map[uint]models.UserPublic, len(authors))
	for i := range authors {
		byID[authors[i].ID] = authors[i].Public()
	}

	tray := make([]models.StoryGroup, 0, len(grouped))
	for _, id := range authorIDs {
		tray = append(tray, models.StoryGroup{
			User:    byID[id],
			Stories: grouped[id],
		})
	}
	sort.SliceStable(tray, func(i, j int) bool {
		if tray[i].User.ID == userID {
			return true
		}
		if tray[j].User.ID == userID {
			return false
		}
		return tray[i].Stories[0].CreatedAt.After(tray[j].Stories[0].CreatedAt)
	})

	return c.JSON(http.StatusOK, tray)
}

// GetUserStories returns one user's active stories
func (h *StoryHandler) GetUserStories(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, ok := parseUserIDParam(c, "userId")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	stories, err := h.storyRepository.GetActiveStoriesByUserID(c.Request().Context(), targetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	responses, err := h.buildStoryResponses(userID, stories)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	return c.JSON(http.StatusOK, responses)
}

// CreateStory publishes a story that expires 24 hours from creation
func (h *StoryHandler) CreateStory(c echo.Context) error {
	claims := getClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if claims.Role != models.RoleCreator && claims.Role != models.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "Only creators can create stories")
	}

	var req models.CreateStoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	author, err := h.userRepository.GetUserByID(claims.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User no longer exists")
	}

	now := time.Now().UTC()
	story := &models.Story{
		UserID:    claims.UserID,
		Image:     req.Image,
		Caption:   req.Caption,
		ExpiresAt: now.Add(storyTTL),
		CreatedAt: now,
	}
	if err := h.storyRepository.CreateStory(c.Request().Context(), story); err != nil {
		logger.L.Error("failed to create story", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	h.audit.Record(models.Activity{
		UserID:   author.ID,
		Username: author.Username,
		Type:     models.ActivityPost,
		Details:  "Added a story",
	})

	return c.JSON(http.StatusCreated, models.StoryResponse{Story: *story})
}

// ViewStory records that the caller viewed the story. Repeat views by the
// same user count once.
func (h *StoryHandler) ViewStory(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	storyID := c.Param("id")
	if _, err := h.storyRepository.GetStoryByID(c.Request().Context(), storyID); err != nil {
		if errors.Is(err, repositories.ErrStoryNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Story not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	// Every viewer counts once, the author included.
	if err := h.storyRepository.MarkViewed(storyID, userID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	viewersCount, err := h.storyRepository.GetViewersCount(storyID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	return c.JSON(http.StatusOK, echo.Map{"viewersCount": viewersCount})
}

// DeleteStory removes a story before its natural expiry. Owner only.
func (h *StoryHandler) DeleteStory(c echo.Context) error {
	claims := getClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	storyID := c.Param("id")
	story, err := h.storyRepository.GetStoryByID(c.Request().Context(), storyID)
	if err != nil {
		if errors.Is(err, repositories.ErrStoryNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Story not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	if story.UserID != claims.UserID {
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized to delete this story")
	}

	if err := h.storyRepository.DeleteStory(c.Request().Context(), storyID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Story deleted successfully"})
}

func (h *StoryHandler) buildStoryResponses(userID uint, stories []models.Story) ([]models.StoryResponse, error) {
	storyIDs := make([]string, 0, len(stories))
	for _, s := range stories {
		storyIDs = append(storyIDs, s.ID.Hex())
	}

	viewedSet, err := h.storyRepository.GetViewedSet(userID, storyIDs)
	if err != nil {
		return nil, err
	}

	responses := make([]models.StoryResponse, 0, len(stories))
	for _, s := range stories {
		id := s.ID.Hex()
		viewers, err := h.storyRepository.GetViewersCount(id)
		if err != nil {
			return nil, err
		}
		responses = append(responses, models.StoryResponse{
			Story:        s,
			ViewersCount: viewers,
			Viewed:       viewedSet[id],
		})
	}
	return responses, nil
}
