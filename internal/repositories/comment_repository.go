package repositories

import (
	"github.com/snapshare/inferno/internal/models"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(comment *models.Comment) error
	GetCommentsByPostID(postID string, limit, offset int) ([]models.Comment, error)
	CountAll() (int64, error)
	DeleteByUser(userID uint) error
	DeleteByPost(postID string) error
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

func (r *PostgresCommentRepository) CreateComment(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// GetCommentsByPostID returns a post's comments oldest first.
func (r *PostgresCommentRepository) GetCommentsByPostID(postID string, limit, offset int) ([]models.Comment, error) {
	var comments []models.Comment
	q := r.db.Where("post_id = ?", postID).Order("created_at ASC, id ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&comments).Error
	return comments, err
}

func (r *PostgresCommentRepository) CountAll() (int64, error) {
	var count int64
	err := r.db.Model(&models.Comment{}).Count(&count).Error
	return count, err
}

func (r *PostgresCommentRepository) DeleteByUser(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.Comment{}).Error
}

func (r *PostgresCommentRepository) DeleteByPost(postID string) error {
	return r.db.Where("post_id = ?", postID).Delete(&models.Comment{}).Error
}
