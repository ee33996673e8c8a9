package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/snapshare/inferno/internal/audit"
	"github.com/snapshare/inferno/internal/models"
	"github.com/snapshare/inferno/internal/repositories"
	"github.com/snapshare/inferno/pkg/logger"
	"go.uber.org/zap"
)

// PostHandler handles post CRUD and interaction requests
type PostHandler struct {
	postRepository    repositories.PostRepository
	userRepository    repositories.UserRepository
	likeRepository    repositories.LikeRepository
	commentRepository repositories.CommentRepository
	savedRepository   repositories.SavedPostRepository
	followRepository  repositories.FollowRepository
	audit             *audit.Recorder
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	likeRepo repositories.LikeRepository,
	commentRepo repositories.CommentRepository,
	savedRepo repositories.SavedPostRepository,
	followRepo repositories.FollowRepository,
	recorder *audit.Recorder,
) *PostHandler {
	return &PostHandler{
		postRepository:    postRepo,
		userRepository:    userRepo,
		likeRepository:    likeRepo,
		commentRepository: commentRepo,
		savedRepository:   savedRepo,
		followRepository:  followRepo,
		audit:             recorder,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.GET("/posts", h.GetFeed)
	g.GET("/posts/saved", h.GetSavedPosts)
	g.GET("/posts/user/:userId", h.GetUserPosts)
	g.POST("/posts", h.CreatePost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.POST("/posts/:id/like", h.ToggleLike)
	g.POST("/posts/:id/comment", h.AddComment)
	g.GET("/posts/:id/comments", h.GetComments)
	g.POST("/posts/:id/share", h.SharePost)
	g.POST("/posts/:id/save", h.ToggleSave)
}

const feedLimit = 50

// GetFeed returns the 50 most recent posts, optionally restricted to the
// users the caller follows (plus the caller).
func (h *PostHandler) GetFeed(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var (
		posts []models.Post
		err   error
	)
	if c.QueryParam("type") == "following" {
		followingIDs, ferr := h.followRepository.GetFollowingIDs(userID)
		if ferr != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
		}
		posts, err = h.postRepository.GetPostsByUserIDs(c.Request().Context(), append(followingIDs, userID), feedLimit)
	} else {
		posts, err = h.postRepository.GetRecentPosts(c.Request().Context(), feedLimit)
	}
	if err != nil {
		logger.L.Error("failed to load feed", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	responses, err := h.buildPostResponses(c, userID, posts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	return c.JSON(http.StatusOK, responses)
}

// GetUserPosts returns all posts by one user, newest first
func (h *PostHandler) GetUserPosts(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	targetID, ok := parseUserIDParam(c, "userId")
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid user ID")
	}

	posts, err := h.postRepository.GetPostsByUserID(c.Request().Context(), targetID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	responses, err := h.buildPostResponses(c, userID, posts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	return c.JSON(http.StatusOK, responses)
}

// GetSavedPosts returns the caller's saved posts
func (h *PostHandler) GetSavedPosts(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	ids, err := h.savedRepository.GetSavedPostIDs(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	posts, err := h.postRepository.GetPostsByIDs(c.Request().Context(), ids)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	responses, err := h.buildPostResponses(c, userID, posts)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	return c.JSON(http.StatusOK, responses)
}

// CreatePost creates a post. Creators author posts; admins are allowed
// through as well.
func (h *PostHandler) CreatePost(c echo.Context) error {
	claims := getClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	if claims.Role != models.RoleCreator && claims.Role != models.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "Only creators can create posts")
	}

	var req models.CreatePostRequest
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

	post := &models.Post{
		UserID:  claims.UserID,
		Image:   req.Image,
		Caption: req.Caption,
	}
	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		logger.L.Error("failed to create post", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	h.audit.Record(models.Activity{
		UserID:       author.ID,
		Username:     author.Username,
		Type:         models.ActivityPost,
		TargetPostID: post.ID.Hex(),
	})

	return c.JSON(http.StatusCreated, models.PostResponse{
		Post:   *post,
		Author: author.Public(),
	})
}

// DeletePost hard-deletes a post. Only the owner or an admin may delete;
// the post's like/comment/save rows go with it.
func (h *PostHandler) DeletePost(c echo.Context) error {
	claims := getClaimsFromContext(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID := c.Param("id")
	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	if post.UserID != claims.UserID && claims.Role != models.RoleAdmin {
		return echo.NewHTTPError(http.StatusForbidden, "Not authorized to delete this post")
	}

	if err := h.postRepository.DeletePost(c.Request().Context(), postID); err != nil {
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
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "Post deleted successfully"})
}

// ToggleLike likes the post if the caller has not liked it, unlikes
// otherwise. A like/unlike pair restores the original state.
func (h *PostHandler) ToggleLike(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID := c.Param("id")
	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	isLiked, err := h.likeRepository.HasUserLikedPost(postID, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	if isLiked {
		if err := h.likeRepository.DeleteLike(postID, userID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
		}
		if err := h.postRepository.IncrementLikesCount(c.Request().Context(), postID, -1); err != nil {
			logger.L.Warn("failed to decrement like counter", zap.String("post_id", postID), zap.Error(err))
		}
	} else {
		if err := h.likeRepository.CreateLike(postID, userID); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
		}
		if err := h.postRepository.IncrementLikesCount(c.Request().Context(), postID, 1); err != nil {
			logger.L.Warn("failed to increment like counter", zap.String("post_id", postID), zap.Error(err))
		}

		// Only the like is audited, not the unlike reversal.
		username := ""
		if actor, err := h.userRepository.GetUserByID(userID); err == nil {
			username = actor.Username
		}
		h.audit.Record(models.Activity{
			UserID:       userID,
			Username:     username,
			Type:         models.ActivityLike,
			TargetUserID: post.UserID,
			TargetPostID: postID,
		})
	}

	likesCount, err := h.likeRepository.GetLikesCountByPostID(postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"isLiked":    !isLiked,
		"likesCount": likesCount,
	})
}

// AddComment appends a trimmed comment and returns the post's full comment
// list.
func (h *PostHandler) AddComment(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var req models.AddCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload")
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Comment text is required")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	postID := c.Param("id")
	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	comment := &models.Comment{
		PostID: postID,
		UserID: userID,
		Text:   req.Text,
	}
	if err := h.commentRepository.CreateComment(comment); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}
	if err := h.postRepository.IncrementCommentsCount(c.Request().Context(), postID); err != nil {
		logger.L.Warn("failed to increment comment counter", zap.String("post_id", postID), zap.Error(err))
	}

	username := ""
	if actor, err := h.userRepository.GetUserByID(userID); err == nil {
		username = actor.Username
	}
	h.audit.Record(models.Activity{
		UserID:       userID,
		Username:     username,
		Type:         models.ActivityComment,
		TargetUserID: post.UserID,
		TargetPostID: postID,
	})

	return h.respondWithComments(c, postID)
}

// GetComments returns a post's comment list
func (h *PostHandler) GetComments(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID := c.Param("id")
	if _, err := h.postRepository.GetPostByID(c.Request().Context(), postID); err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	return h.respondWithComments(c, postID)
}

func (h *PostHandler) respondWithComments(c echo.Context, postID string) error {
	comments, err := h.commentRepository.GetCommentsByPostID(postID, 0, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	authorIDs := make([]uint, 0, len(comments))
	seen := make(map[uint]bool)
	for _, cm := range comments {
		if !seen[cm.UserID] {
			seen[cm.UserID] = true
			authorIDs = append(authorIDs, cm.UserID)
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

	responses := make([]models.CommentResponse, 0, len(comments))
	for _, cm := range comments {
		responses = append(responses, models.CommentResponse{
			ID:        cm.ID,
			PostID:    cm.PostID,
			Text:      cm.Text,
			User:      byID[cm.UserID],
			CreatedAt: cm.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, responses)
}

// SharePost increments the post's share counter. Repeated calls keep
// incrementing.
func (h *PostHandler) SharePost(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID := c.Param("id")
	shares, err := h.postRepository.IncrementShares(c.Request().Context(), postID)
	if err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	username := ""
	if actor, err := h.userRepository.GetUserByID(userID); err == nil {
		username = actor.Username
	}
	h.audit.Record(models.Activity{
		UserID:       userID,
		Username:     username,
		Type:         models.ActivityShare,
		TargetPostID: postID,
	})

	return c.JSON(http.StatusOK, echo.Map{"shares": shares})
}

// ToggleSave bookmarks the post for the caller, or removes the bookmark.
// Saving does not require any relationship to the post.
func (h *PostHandler) ToggleSave(c echo.Context) error {
	userID := getUserIDFromContext(c)
	if userID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	postID := c.Param("id")
	if _, err := h.postRepository.GetPostByID(c.Request().Context(), postID); err != nil {
		if errors.Is(err, repositories.ErrPostNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Post not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	isSaved, err := h.savedRepository.HasUserSavedPost(userID, postID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	if isSaved {
		err = h.savedRepository.UnsavePost(userID, postID)
	} else {
		err = h.savedRepository.SavePost(userID, postID)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	savedCount, err := h.savedRepository.GetSavedCount(userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Server error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"isSaved":    !isSaved,
		"savedCount": savedCount,
	})
}

// buildPostResponses joins authors and the caller's like/save state onto a
// page of posts with three batched queries.
func (h *PostHandler) buildPostResponses(c echo.Context, userID uint, posts []models.Post) ([]models.PostResponse, error) {
	authorIDs := make([]uint, 0, len(posts))
	postIDs := make([]string, 0, len(posts))
	seen := make(map[uint]bool)
	for _, p := range posts {
		postIDs = append(postIDs, p.ID.Hex())
		if !seen[p.UserID] {
			seen[p.UserID] = true
			authorIDs = append(authorIDs, p.UserID)
		}
	}

	authors, err := h.userRepository.GetUsersByIDs(authorIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.UserPublic, len(authors))
	for i := range authors {
		byID[authors[i].ID] = authors[i].Public()
	}

	likedSet, err := h.likeRepository.GetLikedSet(userID, postIDs)
	if err != nil {
		return nil, err
	}
	savedSet, err := h.savedRepository.GetSavedSet(userID, postIDs)
	if err != nil {
		return nil, err
	}

	responses := make([]models.PostResponse, 0, len(posts))
	for _, p := range posts {
		id := p.ID.Hex()
		responses = append(responses, models.PostResponse{
			Post:    p,
			Author:  byID[p.UserID],
			IsLiked: likedSet[id],
			IsSaved: savedSet[id],
		})
	}
	return responses, nil
}
