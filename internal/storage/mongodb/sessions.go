package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/storage"
)

// SessionStore implements MongoDB step-up session storage
type SessionStore struct {
	collection *mongo.Collection
}

func (s *SessionStore) Create(ctx context.Context, session *domain.Session) error {
	_, err := s.collection.InsertOne(ctx, session)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, email, id string) (*domain.Session, error) {
	var session domain.Session
	err := s.collection.FindOne(ctx, bson.M{"_id": id, "email": email}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (s *SessionStore) DeleteByEmail(ctx context.Context, email string) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{"email": email})
	if err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}
