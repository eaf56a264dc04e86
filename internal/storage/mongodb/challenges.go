package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/storage"
)

// ChallengeStore implements MongoDB challenge storage
type ChallengeStore struct {
	collection *mongo.Collection
}

func (s *ChallengeStore) Upsert(ctx context.Context, challenge *domain.Challenge) error {
	if challenge.CreatedAt.IsZero() {
		challenge.CreatedAt = time.Now()
	}
	_, err := s.collection.ReplaceOne(ctx,
		bson.M{"email": challenge.Email, "purpose": challenge.Purpose},
		challenge,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert challenge: %w", err)
	}
	return nil
}

func (s *ChallengeStore) Get(ctx context.Context, email, purpose string) (*domain.Challenge, error) {
	var challenge domain.Challenge
	err := s.collection.FindOne(ctx, bson.M{"email": email, "purpose": purpose}).Decode(&challenge)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return &challenge, nil
}

func (s *ChallengeStore) Delete(ctx context.Context, email, purpose string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"email": email, "purpose": purpose})
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}

func (s *ChallengeStore) DeleteByEmail(ctx context.Context, email string) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{"email": email})
	if err != nil {
		return fmt.Errorf("failed to delete challenges: %w", err)
	}
	return nil
}

func (s *ChallengeStore) DeleteExpired(ctx context.Context) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lt": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("failed to delete expired challenges: %w", err)
	}
	return nil
}
