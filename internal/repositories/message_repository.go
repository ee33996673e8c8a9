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

// MessageRepository defines the interface for direct-message data operations
type MessageRepository interface {
	EnsureIndexes(ctx context.Context) error
	CreateMessage(ctx context.Context, message *models.Message) error
	GetThread(ctx context.Context, userA, userB uint) ([]models.Message, error)
	MarkRead(ctx context.Context, senderID, receiverID uint) error
	GetUnreadCount(ctx context.Context, receiverID uint) (int64, error)
	GetUnreadCountFrom(ctx context.Context, senderID, receiverID uint) (int64, error)
	GetLastMessage(ctx context.Context, userA, userB uint) (*models.Message, error)
	GetCounterpartIDs(ctx context.Context, userID uint) ([]uint, error)
	CountMessages(ctx context.Context) (int64, error)
	DeleteMessagesByUserID(ctx context.Context, userID uint) error
}

// MongoMessageRepository implements MessageRepository for MongoDB
type MongoMessageRepository struct {
	collection *mongo.Collection
}

// NewMongoMessageRepository creates a new MongoMessageRepository
func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{collection: db.Collection("messages")}
}

func (r *MongoMessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "receiver_id", Value: 1}, {Key: "read", Value: 1}}},
	})
	return err
}

func (r *MongoMessageRepository) CreateMessage(ctx context.Context, message *models.Message) error {
	message.ID = primitive.NewObjectID()
	message.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, message)
	return err
}

func pairFilter(userA, userB uint) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"sender_id": userA, "receiver_id": userB},
		bson.M{"sender_id": userB, "receiver_id": userA},
	}}
}

// GetThread returns all messages between two users in chronological order.
func (r *MongoMessageRepository) GetThread(ctx context.Context, userA, userB uint) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, pairFilter(userA, userB), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	messages := []models.Message{}
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead flips the read flag on all unread messages from sender to receiver.
func (r *MongoMessageRepository) MarkRead(ctx context.Context, senderID, receiverID uint) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"sender_id": senderID, "receiver_id": receiverID, "read": false},
		bson.M{"$set": bson.M{"read": true}},
	)
	return err
}

func (r *MongoMessageRepository) GetUnreadCount(ctx context.Context, receiverID uint) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"receiver_id": receiverID, "read": false})
}

func (r *MongoMessageRepository) GetUnreadCountFrom(ctx context.Context, senderID, receiverID uint) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"sender_id": senderID, "receiver_id": receiverID, "read": false})
}

// GetLastMessage returns the most recent message between two users, or nil
// when none exists.
func (r *MongoMessageRepository) GetLastMessage(ctx context.Context, userA, userB uint) (*models.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var message models.Message
	err := r.collection.FindOne(ctx, pairFilter(userA, userB), opts).Decode(&message)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// GetCounterpartIDs returns the distinct set of users the given user has
// exchanged messages with.
func (r *MongoMessageRepository) GetCounterpartIDs(ctx context.Context, userID uint) ([]uint, error) {
	received, err := r.collection.Distinct(ctx, "sender_id", bson.M{"receiver_id": userID})
	if err != nil {
		return nil, err
	}
	sent, err := r.collection.Distinct(ctx, "receiver_id", bson.M{"sender_id": userID})
	if err != nil {
		return nil, err
	}

	seen := make(map[uint]bool)
	ids := []uint{}
	for _, raw := range append(received, sent...) {
		id, ok := toUserID(raw)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// toUserID normalizes the numeric types the driver may hand back from
// Distinct.
func toUserID(raw interface{}) (uint, bool) {
	switch v := raw.(type) {
	case int32:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func (r *MongoMessageRepository) CountMessages(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

// DeleteMessagesByUserID removes every message the user sent or received.
func (r *MongoMessageRepository) DeleteMessagesByUserID(ctx context.Context, userID uint) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"sender_id": userID},
		bson.M{"receiver_id": userID},
	}})
	return err
}
