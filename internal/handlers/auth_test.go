package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/snapshare/inferno/internal/models"
	"github.com/snapshare/inferno/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newAuthHandler(db *gorm.DB) *AuthHandler {
	userRepo := repositories.NewPostgresUserRepository(db)
	followRepo := repositories.NewPostgresFollowRepository(db)
	return NewAuthHandler(userRepo, followRepo, nil, "test-secret")
}

func TestSignupCreatesUserWithRoleBio(t *testing.T) {
	db := setupTestDB(t)
	h := newAuthHandler(db)

	body := `{"username":"newcreator","email":"new@example.com","password":"secret1","role":"creator"}`
	c, rec := newTestContext(t, http.MethodPost, "/api/auth/signup", body, nil)

	require.NoError(t, h.Signup(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Token string            `json:"token"`
		User  models.UserPublic `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "newcreator", resp.User.Username)
	assert.Equal(t, models.RoleCreator, resp.User.Role)
	assert.Equal(t, "Content Creator ✨", resp.User.Bio)
}

func TestSignupRejectsAdminRole(t *testing.T) {
	db := setupTestDB(t)
	h := newAuthHandler(db)

	body := `{"username":"sneaky","email":"sneaky@example.com","password":"secret1","role":"admin"}`
	c, _ := newTestContext(t, http.MethodPost, "/api/auth/signup", body, nil)

	err := h.Signup(c)
	require.Error(t, err)
}

func TestSignupCollisionsAreDistinguishable(t *testing.T) {
	db := setupTestDB(t)
	h := newAuthHandler(db)
	existing := seedUser(t, db, "taken", models.RoleConsumer)

	body := `{"username":"fresh","email":"` + existing.Email + `","password":"secret1","role":"consumer"}`
	c, _ := newTestContext(t, http.MethodPost, "/api/auth/signup", body, nil)
	err := h.Signup(c)
	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	assert.Contains(t, httpErr.Message, "already have an account")

	body = `{"username":"taken","email":"fresh@example.com","password":"secret1","role":"consumer"}`
	c, _ = newTestContext(t, http.MethodPost, "/api/auth/signup", body, nil)
	err = h.Signup(c)
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	assert.Contains(t, httpErr.Message, "Username already taken")
}

func TestLoginErrorsDoNotLeakWhichFieldFailed(t *testing.T) {
	db := setupTestDB(t)
	h := newAuthHandler(db)

	hashed, err := bcrypt.GenerateFromPassword([]byte("correct1"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Username: "alice",
		Email:    "alice@example.com",
		Password: string(hashed),
		Role:     models.RoleConsumer,
	}).Error)

	// Unknown email.
	c, _ := newTestContext(t, http.MethodPost, "/api/auth/login", `{"email":"nobody@example.com","password":"correct1"}`, nil)
	errUnknown := h.Login(c)
	var unknownErr *echo.HTTPError
	require.ErrorAs(t, errUnknown, &unknownErr)

	// Wrong password.
	c, _ = newTestContext(t, http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"wrong99"}`, nil)
	errWrong := h.Login(c)
	var wrongErr *echo.HTTPError
	require.ErrorAs(t, errWrong, &wrongErr)

	assert.Equal(t, unknownErr.Code, wrongErr.Code)
	assert.Equal(t, unknownErr.Message, wrongErr.Message)
}

func TestLoginSuccessReturnsToken(t *testing.T) {
	db := setupTestDB(t)
	h := newAuthHandler(db)

	hashed, err := bcrypt.GenerateFromPassword([]byte("correct1"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.User{
		Username: "alice",
		Email:    "alice@example.com",
		Password: string(hashed),
		Role:     models.RoleCreator,
	}).Error)

	c, rec := newTestContext(t, http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"correct1"}`, nil)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
}

func TestMeIncludesGraphCounts(t *testing.T) {
	db := setupTestDB(t)
	h := newAuthHandler(db)

	alice := seedUser(t, db, "alice", models.RoleCreator)
	bob := seedUser(t, db, "bob", models.RoleConsumer)
	followRepo := repositories.NewPostgresFollowRepository(db)
	require.NoError(t, followRepo.CreateFollow(bob.ID, alice.ID))

	c, rec := newTestContext(t, http.MethodGet, "/api/auth/me", "", alice)
	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp models.UserProfile
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Username)
	assert.Equal(t, "alice@example.com", resp.Email)
	assert.Equal(t, int64(1), resp.FollowersCount)
	assert.Equal(t, int64(0), resp.FollowingCount)
}
