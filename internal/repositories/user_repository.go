package repositories

import (
	"time"

	"github.com/snapshare/inferno/internal/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(user *models.User) error
	GetUserByID(id uint) (*models.User, error)
	GetUsersByIDs(ids []uint) ([]models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	UpdateUser(user *models.User) error
	DeleteUser(id uint) error
	SearchUsers(query string, excludeID uint, limit int) ([]models.User, error)
	SuggestedCreators(excludeID uint, excludeIDs []uint, limit int) ([]models.User, error)
	ListNonAdmins(limit int) ([]models.User, error)
	CountNonAdmins() (int64, error)
	CountByRole(role string) (int64, error)
	CountNonAdminsCreatedSince(since time.Time) (int64, error)
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) CreateUser(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *PostgresUserRepository) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUsersByIDs(ids []uint) ([]models.User, error) {
	var users []models.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *PostgresUserRepository) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *PostgresUserRepository) UpdateUser(user *models.User) error {
	return r.db.Save(user).Error
}

func (r *PostgresUserRepository) DeleteUser(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}

// SearchUsers matches usernames case-insensitively, excluding the searcher
// and admin accounts.
func (r *PostgresUserRepository) SearchUsers(query string, excludeID uint, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Where("LOWER(username) LIKE LOWER(?)", "%"+query+"%").
		Where("id <> ?", excludeID).
		Where("role <> ?", models.RoleAdmin).
		Limit(limit).
		Find(&users).Error
	return users, err
}

// SuggestedCreators returns creators the user does not follow yet, most
// followed first.
func (r *PostgresUserRepository) SuggestedCreators(excludeID uint, excludeIDs []uint, limit int) ([]models.User, error) {
	var users []models.User
	q := r.db.Model(&models.User{}).
		Select("users.*, COUNT(follows.id) AS follower_count").
		Joins("LEFT JOIN follows ON follows.following_id = users.id").
		Where("users.role = ?", models.RoleCreator).
		Where("users.id <> ?", excludeID)
	if len(excludeIDs) > 0 {
		q = q.Where("users.id NOT IN ?", excludeIDs)
	}
	err := q.Group("users.id").
		Order("follower_count DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *PostgresUserRepository) ListNonAdmins(limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Where("role <> ?", models.RoleAdmin).
		Order("created_at DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

func (r *PostgresUserRepository) CountNonAdmins() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("role <> ?", models.RoleAdmin).Count(&count).Error
	return count, err
}

func (r *PostgresUserRepository) CountByRole(role string) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}

func (r *PostgresUserRepository) CountNonAdminsCreatedSince(since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).
		Where("role <> ?", models.RoleAdmin).
		Where("created_at >= ?", since).
		Count(&count).Error
	return count, err
}
