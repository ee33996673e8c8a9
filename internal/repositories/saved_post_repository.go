package repositories

import (
	"github.com/snapshare/inferno/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SavedPostRepository defines the interface for saved-post data operations
type SavedPostRepository interface {
	SavePost(userID uint, postID string) error
	UnsavePost(userID uint, postID string) error
	HasUserSavedPost(userID uint, postID string) (bool, error)
	GetSavedCount(userID uint) (int64, error)
	GetSavedPostIDs(userID uint) ([]string, error)
	GetSavedSet(userID uint, postIDs []string) (map[string]bool, error)
	DeleteByUser(userID uint) error
	DeleteByPost(postID string) error
}

// PostgresSavedPostRepository implements SavedPostRepository for PostgreSQL
type PostgresSavedPostRepository struct {
	db *gorm.DB
}

// NewPostgresSavedPostRepository creates a new PostgresSavedPostRepository
func NewPostgresSavedPostRepository(db *gorm.DB) *PostgresSavedPostRepository {
	return &PostgresSavedPostRepository{db: db}
}

func (r *PostgresSavedPostRepository) SavePost(userID uint, postID string) error {
	saved := &models.SavedPost{UserID: userID, PostID: postID}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(saved).Error
}

func (r *PostgresSavedPostRepository) UnsavePost(userID uint, postID string) error {
	return r.db.Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.SavedPost{}).Error
}

func (r *PostgresSavedPostRepository) HasUserSavedPost(userID uint, postID string) (bool, error) {
	var count int64
	if err := r.db.Model(&models.SavedPost{}).Where("user_id = ? AND post_id = ?", userID, postID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresSavedPostRepository) GetSavedCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.SavedPost{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

// GetSavedPostIDs returns the user's saved post ids, most recently saved first.
func (r *PostgresSavedPostRepository) GetSavedPostIDs(userID uint) ([]string, error) {
	var ids []string
	err := r.db.Model(&models.SavedPost{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("post_id", &ids).Error
	return ids, err
}

func (r *PostgresSavedPostRepository) GetSavedSet(userID uint, postIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(postIDs) == 0 {
		return result, nil
	}
	var saved []models.SavedPost
	if err := r.db.Where("user_id = ? AND post_id IN ?", userID, postIDs).Find(&saved).Error; err != nil {
		return nil, err
	}
	for _, s := range saved {
		result[s.PostID] = true
	}
	return result, nil
}

func (r *PostgresSavedPostRepository) DeleteByUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.SavedPost{}).Error
}

func (r *PostgresSavedPostRepository) DeleteByPost(postID string) error {
	return r.db.Where("post_id = ?", postID).Delete(&models.SavedPost{}).Error
}
