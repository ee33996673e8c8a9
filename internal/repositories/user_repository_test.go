package repositories

import (
	"testing"

	"github.com/snapshare/inferno/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSearchUsersExcludesAdminsAndSelf(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresUserRepository(db)

	alice := seedUser(t, db, "alice_cook", models.RoleConsumer)
	seedUser(t, db, "alicia", models.RoleCreator)
	seedUser(t, db, "ali_admin", models.RoleAdmin)
	seedUser(t, db, "bob", models.RoleConsumer)

	users, err := repo.SearchUsers("ali", alice.ID, 20)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "alicia", users[0].Username)
}

func TestSearchUsersIsCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresUserRepository(db)

	seedUser(t, db, "PhotoQueen", models.RoleCreator)
	searcher := seedUser(t, db, "viewer", models.RoleConsumer)

	users, err := repo.SearchUsers("photoq", searcher.ID, 20)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "PhotoQueen", users[0].Username)
}

func TestSuggestedCreatorsOrderedByPopularity(t *testing.T) {
	db := setupTestDB(t)
	userRepo := NewPostgresUserRepository(db)
	followRepo := NewPostgresFollowRepository(db)

	viewer := seedUser(t, db, "viewer", models.RoleConsumer)
	popular := seedUser(t, db, "popular", models.RoleCreator)
	quiet := seedUser(t, db, "quiet", models.RoleCreator)
	followed := seedUser(t, db, "followed", models.RoleCreator)
	fanA := seedUser(t, db, "fan_a", models.RoleConsumer)
	fanB := seedUser(t, db, "fan_b", models.RoleConsumer)

	require.NoError(t, followRepo.CreateFollow(fanA.ID, popular.ID))
	require.NoError(t, followRepo.CreateFollow(fanB.ID, popular.ID))
	require.NoError(t, followRepo.CreateFollow(viewer.ID, followed.ID))

	suggested, err := userRepo.SuggestedCreators(viewer.ID, []uint{followed.ID}, 5)
	require.NoError(t, err)
	require.Len(t, suggested, 2)
	assert.Equal(t, popular.Username, suggested[0].Username)
	assert.Equal(t, quiet.Username, suggested[1].Username)
}

func TestGetUserByEmailNotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresUserRepository(db)

	_, err := repo.GetUserByEmail("nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRoleCounts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewPostgresUserRepository(db)

	seedUser(t, db, "creator1", models.RoleCreator)
	seedUser(t, db, "creator2", models.RoleCreator)
	seedUser(t, db, "viewer1", models.RoleConsumer)
	seedUser(t, db, "root", models.RoleAdmin)

	total, err := repo.CountNonAdmins()
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	creators, err := repo.CountByRole(models.RoleCreator)
	require.NoError(t, err)
	assert.Equal(t, int64(2), creators)

	listed, err := repo.ListNonAdmins(100)
	require.NoError(t, err)
	assert.Len(t, listed, 3)
	for _, u := range listed {
		assert.NotEqual(t, models.RoleAdmin, u.Role)
	}
}
