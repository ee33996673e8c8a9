package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/snapshare/inferno/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const storyTTL = 24 * time.Hour

// ErrStoryNotFound is returned when a story id does not resolve to an active
// story document.
var ErrStoryNotFound = fmt.Errorf("story not found")

// StoryRepository defines the interface for story operations. Story documents
// live in MongoDB; the viewer set lives in PostgreSQL.
type StoryRepository interface {
	EnsureIndexes(ctx context.Context) error
	CreateStory(ctx context.Context, story *models.Story) error
	GetStoryByID(ctx context.Context, id string) (*models.Story, error)
	GetActiveStoriesByUserIDs(ctx context.Context, userIDs []uint) ([]models.Story, error)
	GetActiveStoriesByUserID(ctx context.Context, userID uint) ([]models.Story, error)
	DeleteStory(ctx context.Context, id string) error
	DeleteStoriesByUserID(ctx context.Context, userID uint) error
	MarkViewed(storyID string, userID uint) error
	GetViewersCount(storyID string) (int64, error)
	GetViewedSet(userID uint, storyIDs []string) (map[string]bool, error)
	DeleteViewsByUser(userID uint) error
}

type storyRepository struct {
	mongoCollection *mongo.Collection
	pgDB            *gorm.DB
}

// NewStoryRepository creates a StoryRepository over both stores.
func NewStoryRepository(mongoDB *mongo.Database, pgDB *gorm.DB) StoryRepository {
	return &storyRepository{
		mongoCollection: mongoDB.Collection("stories"),
		pgDB:            pgDB,
	}
}

// EnsureIndexes installs the TTL index. expireAfterSeconds of 0 on expires_at
// means the document is removed once that timestamp passes.
func (r *storyRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.mongoCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *storyRepository) CreateStory(ctx context.Context, story *models.Story) error {
	story.ID = primitive.NewObjectID()
	story.CreatedAt = time.Now()
	story.ExpiresAt = story.CreatedAt.Add(storyTTL)
	_, err := r.mongoCollection.InsertOne(ctx, story)
	return err
}

// GetStoryByID resolves an active story. Expired stories are treated as
// missing even if the TTL monitor has not swept them yet.
func (r *storyRepository) GetStoryByID(ctx context.Context, id string) (*models.Story, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrStoryNotFound
	}
	var story models.Story
	err = r.mongoCollection.FindOne(ctx, bson.M{
		"_id":        objID,
		"expires_at": bson.M{"$gt": time.Now()},
	}).Decode(&story)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrStoryNotFound
		}
		return nil, err
	}
	return &story, nil
}

func (r *storyRepository) GetActiveStoriesByUserIDs(ctx context.Context, userIDs []uint) ([]models.Story, error) {
	if len(userIDs) == 0 {
		return []models.Story{}, nil
	}
	return r.findActive(ctx, bson.M{"user_id": bson.M{"$in": userIDs}})
}

func (r *storyRepository) GetActiveStoriesByUserID(ctx context.Context, userID uint) ([]models.Story, error) {
	return r.findActive(ctx, bson.M{"user_id": userID})
}

func (r *storyRepository) findActive(ctx context.Context, filter bson.M) ([]models.Story, error) {
	filter["expires_at"] = bson.M{"$gt": time.Now()}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.mongoCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	stories := []models.Story{}
	if err = cursor.All(ctx, &stories); err != nil {
		return nil, err
	}
	return stories, nil
}

func (r *storyRepository) DeleteStory(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrStoryNotFound
	}
	res, err := r.mongoCollection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrStoryNotFound
	}
	return nil
}

func (r *storyRepository) DeleteStoriesByUserID(ctx context.Context, userID uint) error {
	_, err := r.mongoCollection.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

func (r *storyRepository) MarkViewed(storyID string, userID uint) error {
	view := &models.StoryView{StoryID: storyID, UserID: userID}
	return r.pgDB.Clauses(clause.OnConflict{DoNothing: true}).Create(view).Error
}

func (r *storyRepository) GetViewersCount(storyID string) (int64, error) {
	var count int64
	err := r.pgDB.Model(&models.StoryView{}).Where("story_id = ?", storyID).Count(&count).Error
	return count, err
}

func (r *storyRepository) GetViewedSet(userID uint, storyIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(storyIDs) == 0 {
		return result, nil
	}
	var views []models.StoryView
	err := r.pgDB.Where("user_id = ? AND story_id IN ?", userID, storyIDs).Find(&views).Error
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		result[v.StoryID] = true
	}
	return result, nil
}

func (r *storyRepository) DeleteViewsByUser(userID uint) error {
	return r.pgDB.Where("user_id = ?", userID).Delete(&models.StoryView{}).Error
}
