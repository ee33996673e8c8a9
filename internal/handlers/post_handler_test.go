package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/snapshare/inferno/internal/models"
	"github.com/snapshare/inferno/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type postHandlerFixture struct {
	handler  *PostHandler
	postRepo *fakePostRepository
	db       *gorm.DB
}

func newPostHandlerFixture(t *testing.T) *postHandlerFixture {
	t.Helper()
	db := setupTestDB(t)
	postRepo := newFakePostRepository()
	h := NewPostHandler(
		postRepo,
		repositories.NewPostgresUserRepository(db),
		repositories.NewPostgresLikeRepository(db),
		repositories.NewPostgresCommentRepository(db),
		repositories.NewPostgresSavedPostRepository(db),
		repositories.NewPostgresFollowRepository(db),
		nil,
	)
	return &postHandlerFixture{handler: h, postRepo: postRepo, db: db}
}

func (f *postHandlerFixture) seedPost(t *testing.T, author *models.User) *models.Post {
	t.Helper()
	post := &models.Post{UserID: author.ID, Image: "https://img.example/p.jpg", Caption: "hello"}
	require.NoError(t, f.postRepo.CreatePost(context.Background(), post))
	return post
}

func TestCreatePostForbiddenForConsumers(t *testing.T) {
	f := newPostHandlerFixture(t)
	viewer := seedUser(t, f.db, "viewer", models.RoleConsumer)

	body := `{"image":"https://img.example/p.jpg","caption":"hi"}`
	c, _ := newTestContext(t, http.MethodPost, "/api/posts", body, viewer)

	err := f.handler.CreatePost(c)
	requireHTTPError(t, err, http.StatusForbidden)

	count, _ := f.postRepo.CountPosts(context.Background())
	assert.Equal(t, int64(0), count)
}

func TestCreatePostByCreator(t *testing.T) {
	f := newPostHandlerFixture(t)
	creator := seedUser(t, f.db, "creator", models.RoleCreator)

	body := `{"image":"https://img.example/p.jpg","caption":"sunset"}`
	c, rec := newTestContext(t, http.MethodPost, "/api/posts", body, creator)

	require.NoError(t, f.handler.CreatePost(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp models.PostResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, creator.ID, resp.UserID)
	assert.Equal(t, "sunset", resp.Caption)
	assert.Equal(t, creator.Username, resp.Author.Username)
}

func TestToggleLikeRoundTrip(t *testing.T) {
	f := newPostHandlerFixture(t)
	creator := seedUser(t, f.db, "creator", models.RoleCreator)
	viewer := seedUser(t, f.db, "viewer", models.RoleConsumer)
	post := f.seedPost(t, creator)

	like := func() map[string]interface{} {
		c, rec := newTestContext(t, http.MethodPost, "/api/posts/:id/like", "", viewer)
		c.SetParamNames("id")
		c.SetParamValues(post.ID.Hex())
		require.NoError(t, f.handler.ToggleLike(c))
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	resp := like()
	assert.Equal(t, true, resp["isLiked"])
	assert.Equal(t, float64(1), resp["likesCount"])

	// A like/unlike pair restores the original state.
	resp = like()
	assert.Equal(t, false, resp["isLiked"])
	assert.Equal(t, float64(0), resp["likesCount"])
	assert.Equal(t, 0, f.postRepo.posts[post.ID.Hex()].LikesCount)
}

func TestToggleLikeUnknownPost(t *testing.T) {
	f := newPostHandlerFixture(t)
	viewer := seedUser(t, f.db, "viewer", models.RoleConsumer)

	c, _ := newTestContext(t, http.MethodPost, "/api/posts/:id/like", "", viewer)
	c.SetParamNames("id")
	c.SetParamValues("64f0c2a9e4b0a1b2c3d4e5f6")

	err := f.handler.ToggleLike(c)
	requireHTTPError(t, err, http.StatusNotFound)
}

func TestAddCommentRejectsWhitespaceOnly(t *testing.T) {
	f := newPostHandlerFixture(t)
	creator := seedUser(t, f.db, "creator", models.RoleCreator)
	viewer := seedUser(t, f.db, "viewer", models.RoleConsumer)
	post := f.seedPost(t, creator)

	c, _ := newTestContext(t, http.MethodPost, "/api/posts/:id/comment", `{"text":"   "}`, viewer)
	c.SetParamNames("id")
	c.SetParamValues(post.ID.Hex())

	err := f.handler.AddComment(c)
	requireHTTPError(t, err, http.StatusBadRequest)
}

func TestAddCommentReturnsFullList(t *testing.T) {
	f := newPostHandlerFixture(t)
	creator := seedUser(t, f.db, "creator", models.RoleCreator)
	viewer := seedUser(t, f.db, "viewer", models.RoleConsumer)
	post := f.seedPost(t, creator)

	comment := func(text string) []models.CommentResponse {
		c, rec := newTestContext(t, http.MethodPost, "/api/posts/:id/comment", `{"text":"`+text+`"}`, viewer)
		c.SetParamNames("id")
		c.SetParamValues(post.ID.Hex())
		require.NoError(t, f.handler.AddComment(c))
		var resp []models.CommentResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	first := comment("nice shot")
	require.Len(t, first, 1)
	assert.Equal(t, "nice shot", first[0].Text)
	assert.Equal(t, viewer.Username, first[0].User.Username)

	second := comment("still love it")
	require.Len(t, second, 2)
	assert.Equal(t, 2, f.postRepo.posts[post.ID.Hex()].CommentsCount)
}

func TestSharePostIncrementsEveryTime(t *testing.T) {
	f := newPostHandlerFixture(t)
	creator := seedUser(t, f.db, "creator", models.RoleCreator)
	viewer := seedUser(t, f.db, "viewer", models.RoleConsumer)
	post := f.seedPost(t, creator)

	share := func() map[string]interface{} {
		c, rec := newTestContext(t, http.MethodPost, "/api/posts/:id/share", "", viewer)
		c.SetParamNames("id")
		c.SetParamValues(post.ID.Hex())
		require.NoError(t, f.handler.SharePost(c))
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	assert.Equal(t, float64(1), share()["shares"])
	assert.Equal(t, float64(2), share()["shares"])
}

func TestToggleSaveRoundTrip(t *testing.T) {
	f := newPostHandlerFixture(t)
	creator := seedUser(t, f.db, "creator", models.RoleCreator)
	viewer := seedUser(t, f.db, "viewer", models.RoleConsumer)
	post := f.seedPost(t, creator)

	save := func() map[string]interface{} {
		c, rec := newTestContext(t, http.MethodPost, "/api/posts/:id/save", "", viewer)
		c.SetParamNames("id")
		c.SetParamValues(post.ID.Hex())
		require.NoError(t, f.handler.ToggleSave(c))
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	resp := save()
	assert.Equal(t, true, resp["isSaved"])
	assert.Equal(t, float64(1), resp["savedCount"])

	resp = save()
	assert.Equal(t, false, resp["isSaved"])
	assert.Equal(t, float64(0), resp["savedCount"])
}

func TestDeletePostOwnerOnlyUnlessAdmin(t *testing.T) {
	f := newPostHandlerFixture(t)
	creator := seedUser(t, f.db, "creator", models.RoleCreator)
	other := seedUser(t, f.db, "other", models.RoleCreator)
	admin := seedUser(t, f.db, "root", models.RoleAdmin)

	deleteAs := func(user *models.User, postID string) error {
		c, _ := newTestContext(t, http.MethodDelete, "/api/posts/:id", "", user)
		c.SetParamNames("id")
		c.SetParamValues(postID)
		return f.handler.DeletePost(c)
	}

	post := f.seedPost(t, creator)
	err := deleteAs(other, post.ID.Hex())
	requireHTTPError(t, err, http.StatusForbidden)

	require.NoError(t, deleteAs(creator, post.ID.Hex()))

	post = f.seedPost(t, creator)
	require.NoError(t, deleteAs(admin, post.ID.Hex()))

	count, _ := f.postRepo.CountPosts(context.Background())
	assert.Equal(t, int64(0), count)
}

func TestDeletePostRemovesRelationalRows(t *testing.T) {
	f := newPostHandlerFixture(t)
	creator := seedUser(t, f.db, "creator", models.RoleCreator)
	viewer := seedUser(t, f.db, "viewer", models.RoleConsumer)
	post := f.seedPost(t, creator)
	postID := post.ID.Hex()

	likeRepo := repositories.NewPostgresLikeRepository(f.db)
	commentRepo := repositories.NewPostgresCommentRepository(f.db)
	savedRepo := repositories.NewPostgresSavedPostRepository(f.db)
	require.NoError(t, likeRepo.CreateLike(postID, viewer.ID))
	require.NoError(t, commentRepo.CreateComment(&models.Comment{PostID: postID, UserID: viewer.ID, Text: "x"}))
	require.NoError(t, savedRepo.SavePost(viewer.ID, postID))

	c, _ := newTestContext(t, http.MethodDelete, "/api/posts/:id", "", creator)
	c.SetParamNames("id")
	c.SetParamValues(postID)
	require.NoError(t, f.handler.DeletePost(c))

	likes, _ := likeRepo.GetLikesCountByPostID(postID)
	assert.Equal(t, int64(0), likes)
	comments, _ := commentRepo.CountAll()
	assert.Equal(t, int64(0), comments)
	saved, _ := savedRepo.HasUserSavedPost(viewer.ID, postID)
	assert.False(t, saved)
}

func TestFeedFollowingFilter(t *testing.T) {
	f := newPostHandlerFixture(t)
	alice := seedUser(t, f.db, "alice", models.RoleConsumer)
	followedCreator := seedUser(t, f.db, "followed", models.RoleCreator)
	strangerCreator := seedUser(t, f.db, "stranger", models.RoleCreator)

	followRepo := repositories.NewPostgresFollowRepository(f.db)
	require.NoError(t, followRepo.CreateFollow(alice.ID, followedCreator.ID))

	f.seedPost(t, followedCreator)
	f.seedPost(t, strangerCreator)

	c, rec := newTestContext(t, http.MethodGet, "/api/posts?type=following", "", alice)
	require.NoError(t, f.handler.GetFeed(c))

	var resp []models.PostResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, followedCreator.ID, resp[0].UserID)

	c, rec = newTestContext(t, http.MethodGet, "/api/posts", "", alice)
	require.NoError(t, f.handler.GetFeed(c))
	resp = nil
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestSavedPostsEndpoint(t *testing.T) {
	f := newPostHandlerFixture(t)
	creator := seedUser(t, f.db, "creator", models.RoleCreator)
	viewer := seedUser(t, f.db, "viewer", models.RoleConsumer)
	post := f.seedPost(t, creator)

	savedRepo := repositories.NewPostgresSavedPostRepository(f.db)
	require.NoError(t, savedRepo.SavePost(viewer.ID, post.ID.Hex()))

	c, rec := newTestContext(t, http.MethodGet, "/api/posts/saved", "", viewer)
	require.NoError(t, f.handler.GetSavedPosts(c))

	var resp []models.PostResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.True(t, resp[0].IsSaved)
	assert.Equal(t, creator.Username, resp[0].Author.Username)
}
