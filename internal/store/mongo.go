package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/docmind/backend/internal/models"
)

// MongoStore keeps the analysis history in MongoDB.
type MongoStore struct {
	col *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{col: db.Collection("analyses")}
}

// EnsureIndexes creates the per-user listing index.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("mongo index: %w", err)
	}
	return nil
}

func (s *MongoStore) InsertAnalysis(ctx context.Context, a *models.Analysis) (string, error) {
	a.CreatedAt = time.Now()
	a.ResultJSON = string(a.Result)
	res, err := s.col.InsertOne(ctx, a)
	if err != nil {
		return "", fmt.Errorf("mongo insert: %w", err)
	}
	oid := res.InsertedID.(primitive.ObjectID)
	a.ID = oid
	return oid.Hex(), nil
}

func (s *MongoStore) ListAnalyses(ctx context.Context, userID string, limit int64) ([]models.Analysis, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := s.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find: %w", err)
	}
	defer cur.Close(ctx)

	var items []models.Analysis
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("mongo decode: %w", err)
	}
	for i := range items {
		items[i].Result = json.RawMessage(items[i].ResultJSON)
	}
	return items, nil
}

// DeleteByDocument removes the history of one archived document.
func (s *MongoStore) DeleteByDocument(ctx context.Context, userID, documentKey string) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"user_id": userID, "document_key": documentKey})
	if err != nil {
		return 0, fmt.Errorf("mongo delete: %w", err)
	}
	return res.DeletedCount, nil
}
