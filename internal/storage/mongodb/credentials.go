package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/oboreham/portfolio-backend/internal/domain"
	"github.com/oboreham/portfolio-backend/internal/storage"
)

// CredentialStore implements MongoDB credential storage
type CredentialStore struct {
	collection *mongo.Collection
}

func (s *CredentialStore) Create(ctx context.Context, credential *domain.Credential) error {
	if credential.CreatedAt.IsZero() {
		credential.CreatedAt = time.Now()
	}
	_, err := s.collection.InsertOne(ctx, credential)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create credential: %w", err)
	}
	return nil
}

func (s *CredentialStore) GetByEmail(ctx context.Context, email string) ([]*domain.Credential, error) {
	cursor, err := s.collection.Find(ctx, bson.M{"email": email})
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	var creds []*domain.Credential
	if err := cursor.All(ctx, &creds); err != nil {
		return nil, fmt.Errorf("failed to decode credentials: %w", err)
	}
	return creds, nil
}

func (s *CredentialStore) GetByID(ctx context.Context, email, credentialID string) (*domain.Credential, error) {
	var cred domain.Credential
	err := s.collection.FindOne(ctx, bson.M{"email": email, "credential_id": credentialID}).Decode(&cred)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	return &cred, nil
}

func (s *CredentialStore) UpdateCounter(ctx context.Context, email, credentialID string, counter uint32) error {
	result, err := s.collection.UpdateOne(ctx,
		bson.M{"email": email, "credential_id": credentialID},
		bson.M{"$set": bson.M{"counter": counter}},
	)
	if err != nil {
		return fmt.Errorf("failed to update counter: %w", err)
	}
	if result.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *CredentialStore) DeleteByEmail(ctx context.Context, email string) error {
	_, err := s.collection.DeleteMany(ctx, bson.M{"email": email})
	if err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
