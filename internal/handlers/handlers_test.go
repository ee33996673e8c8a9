package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/snapshare/inferno/internal/models"
	"github.com/snapshare/inferno/internal/repositories"
	"github.com/snapshare/inferno/internal/validators"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Follow{},
		&models.Like{},
		&models.Comment{},
		&models.SavedPost{},
		&models.StoryView{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hash",
		Role:     role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// newTestContext builds an echo context carrying the given user's claims,
// the way the auth middleware would.
func newTestContext(t *testing.T, method, path, body string, user *models.User) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = validators.NewValidator()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != nil {
		c.Set("user", &models.JwtCustomClaims{UserID: user.ID, Role: user.Role})
	}
	return c, rec
}

func requireHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	require.Equal(t, code, httpErr.Code)
}

// fakePostRepository is an in-memory PostRepository for handler tests.
type fakePostRepository struct {
	posts map[string]*models.Post
}

func newFakePostRepository() *fakePostRepository {
	return &fakePostRepository{posts: make(map[string]*models.Post)}
}

func (f *fakePostRepository) CreatePost(_ context.Context, post *models.Post) error {
	if post.ID.IsZero() {
		post.ID = primitive.NewObjectID()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	f.posts[post.ID.Hex()] = post
	return nil
}

func (f *fakePostRepository) GetPostByID(_ context.Context, id string) (*models.Post, error) {
	post, ok := f.posts[id]
	if !ok {
		return nil, repositories.ErrPostNotFound
	}
	clone := *post
	return &clone, nil
}

func (f *fakePostRepository) GetRecentPosts(_ context.Context, limit int64) ([]models.Post, error) {
	out := make([]models.Post, 0, len(f.posts))
	for _, p := range f.posts {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePostRepository) GetPostsByUserIDs(ctx context.Context, userIDs []uint, limit int64) ([]models.Post, error) {
	allowed := make(map[uint]bool, len(userIDs))
	for _, id := range userIDs {
		allowed[id] = true
	}
	all, _ := f.GetRecentPosts(ctx, 0)
	out := make([]models.Post, 0)
	for _, p := range all {
		if allowed[p.UserID] {
			out = append(out, p)
		}
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePostRepository) GetPostsByUserID(ctx context.Context, userID uint) ([]models.Post, error) {
	return f.GetPostsByUserIDs(ctx, []uint{userID}, 0)
}

func (f *fakePostRepository) GetPostsByIDs(_ context.Context, ids []string) ([]models.Post, error) {
	out := make([]models.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.posts[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePostRepository) DeletePost(_ context.Context, id string) error {
	if _, ok := f.posts[id]; !ok {
		return repositories.ErrPostNotFound
	}
	delete(f.posts, id)
	return nil
}

func (f *fakePostRepository) DeletePostsByUserID(_ context.Context, userID uint) error {
	for id, p := range f.posts {
		if p.UserID == userID {
			delete(f.posts, id)
		}
	}
	return nil
}

func (f *fakePostRepository) IncrementLikesCount(_ context.Context, postID string, delta int) error {
	if p, ok := f.posts[postID]; ok {
		p.LikesCount += delta
	}
	return nil
}

func (f *fakePostRepository) IncrementCommentsCount(_ context.Context, postID string) error {
	if p, ok := f.posts[postID]; ok {
		p.CommentsCount++
	}
	return nil
}

func (f *fakePostRepository) IncrementShares(_ context.Context, postID string) (int, error) {
	p, ok := f.posts[postID]
	if !ok {
		return 0, repositories.ErrPostNotFound
	}
	p.Shares++
	return p.Shares, nil
}

func (f *fakePostRepository) CountPosts(_ context.Context) (int64, error) {
	return int64(len(f.posts)), nil
}

func (f *fakePostRepository) CountPostsByUserID(_ context.Context, userID uint) (int64, error) {
	var n int64
	for _, p := range f.posts {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakePostRepository) CountPostsCreatedSince(_ context.Context, since time.Time) (int64, error) {
	var n int64
	for _, p := range f.posts {
		if p.CreatedAt.After(since) {
			n++
		}
	}
	return n, nil
}

// fakeMessageRepository is an in-memory MessageRepository for handler tests.
type fakeMessageRepository struct {
	messages []*models.Message
}

func (f *fakeMessageRepository) EnsureIndexes(_ context.Context) error { return nil }

func (f *fakeMessageRepository) CreateMessage(_ context.Context, message *models.Message) error {
	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeMessageRepository) GetThread(_ context.Context, userA, userB uint) ([]models.Message, error) {
	out := make([]models.Message, 0)
	for _, m := range f.messages {
		if (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMessageRepository) MarkRead(_ context.Context, senderID, receiverID uint) error {
	for _, m := range f.messages {
		if m.SenderID == senderID && m.ReceiverID == receiverID {
			m.Read = true
		}
	}
	return nil
}

func (f *fakeMessageRepository) GetUnreadCount(_ context.Context, receiverID uint) (int64, error) {
	var n int64
	for _, m := range f.messages {
		if m.ReceiverID == receiverID && !m.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageRepository) GetUnreadCountFrom(_ context.Context, senderID, receiverID uint) (int64, error) {
	var n int64
	for _, m := range f.messages {
		if m.SenderID == senderID && m.ReceiverID == receiverID && !m.Read {
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageRepository) GetLastMessage(_ context.Context, userA, userB uint) (*models.Message, error) {
	var last *models.Message
	for _, m := range f.messages {
		if (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA) {
			if last == nil || m.CreatedAt.After(last.CreatedAt) {
				last = m
			}
		}
	}
	if last == nil {
		return nil, nil
	}
	clone := *last
	return &clone, nil
}

func (f *fakeMessageRepository) GetCounterpartIDs(_ context.Context, userID uint) ([]uint, error) {
	seen := make(map[uint]bool)
	out := make([]uint, 0)
	for _, m := range f.messages {
		var other uint
		switch userID {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}
		if !seen[other] {
			seen[other] = true
			out = append(out, other)
		}
	}
	return out, nil
}

func (f *fakeMessageRepository) CountMessages(_ context.Context) (int64, error) {
	return int64(len(f.messages)), nil
}

func (f *fakeMessageRepository) DeleteMessagesByUserID(_ context.Context, userID uint) error {
	kept := f.messages[:0]
	for _, m := range f.messages {
		if m.SenderID != userID && m.ReceiverID != userID {
			kept = append(kept, m)
		}
	}
	f.messages = kept
	return nil
}
