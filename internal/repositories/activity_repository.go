package repositories

import (
	"context"
	"time"

	"github.com/snapshare/inferno/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const activityTTL = 30 * 24 * time.Hour

// ActivityRepository defines the interface for the write-only audit log.
// Records are only read back by the admin dashboard.
type ActivityRepository interface {
	EnsureIndexes(ctx context.Context) error
	CreateActivity(ctx context.Context, activity *models.Activity) error
	GetRecentActivities(ctx context.Context, limit int64) ([]models.Activity, error)
}

// MongoActivityRepository implements ActivityRepository for MongoDB
type MongoActivityRepository struct {
	collection *mongo.Collection
}

// NewMongoActivityRepository creates a new MongoActivityRepository
func NewMongoActivityRepository(db *mongo.Database) *MongoActivityRepository {
	return &MongoActivityRepository{collection: db.Collection("activities")}
}

func (r *MongoActivityRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(activityTTL / time.Second)),
	})
	return err
}

func (r *MongoActivityRepository) CreateActivity(ctx context.Context, activity *models.Activity) error {
	activity.ID = primitive.NewObjectID()
	activity.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, activity)
	return err
}

func (r *MongoActivityRepository) GetRecentActivities(ctx context.Context, limit int64) ([]models.Activity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	activities := []models.Activity{}
	if err = cursor.All(ctx, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}
