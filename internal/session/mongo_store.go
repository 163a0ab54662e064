package session

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"healthify/internal/database"
	"healthify/internal/models"
)

// MongoStore keeps active and archived sessions in one collection, told apart by isActive
type MongoStore struct {
	mongodb    *database.MongoDB
	collection *mongo.Collection
}

func NewMongoStore(mongodb *database.MongoDB) *MongoStore {
	return &MongoStore{
		mongodb:    mongodb,
		collection: mongodb.Collection(database.CollectionSessions),
	}
}

func (s *MongoStore) Kind() string { return "mongo" }

func (s *MongoStore) GetActive(ctx context.Context, userCtx string) (*models.Session, error) {
	var sess models.Session
	err := s.collection.FindOne(ctx, bson.M{"userContext": userCtx, "isActive": true}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session: %w", err)
	}
	return &sess, nil
}

func (s *MongoStore) SaveActive(ctx context.Context, sess *models.Session) error {
	doc := sess.Clone()
	doc.IsActive = true
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save active session: %w", err)
	}
	return nil
}

func (s *MongoStore) DeleteActive(ctx context.Context, userCtx string) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{"userContext": userCtx, "isActive": true})
	if err != nil {
		return fmt.Errorf("failed to delete active session: %w", err)
	}
	return nil
}

func (s *MongoStore) ListActive(ctx context.Context) ([]*models.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	return s.find(ctx, bson.M{"isActive": true}, opts)
}

// AppendHistory flips the document to archived. The active copy shares the same _id,
// so the upsert both archives it and frees the active slot.
func (s *MongoStore) AppendHistory(ctx context.Context, sess *models.Session) error {
	doc := sess.Clone()
	doc.IsActive = false
	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to archive session: %w", err)
	}
	return nil
}

func (s *MongoStore) ListHistory(ctx context.Context, userCtx string) ([]*models.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "archivedAt", Value: 1}, {Key: "createdAt", Value: 1}})
	return s.find(ctx, bson.M{"userContext": userCtx, "isActive": false}, opts)
}

func (s *MongoStore) DeleteHistory(ctx context.Context, userCtx, id string) (bool, error) {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id, "userContext": userCtx, "isActive": false})
	if err != nil {
		return false, fmt.Errorf("failed to delete history entry: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) ClearHistory(ctx context.Context, userCtx string) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{"userContext": userCtx, "isActive": false})
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error { return s.mongodb.Close(ctx) }

func (s *MongoStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*models.Session, error) {
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer cursor.Close(ctx)

	out := []*models.Session{}
	for cursor.Next(ctx) {
		var sess models.Session
		if err := cursor.Decode(&sess); err != nil {
			return nil, fmt.Errorf("failed to decode session: %w", err)
		}
		out = append(out, &sess)
	}
	return out, cursor.Err()
}
