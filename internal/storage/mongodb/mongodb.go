// Package mongodb implements MongoDB storage for deployments that keep
// admin state in their own database instead of the hosted REST
// datastore.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/oboreham/portfolio-backend/internal/storage"
	"github.com/oboreham/portfolio-backend/pkg/config"
)

// Store implements MongoDB storage
type Store struct {
	client   *mongo.Client
	database *mongo.Database

	credentials *CredentialStore
	challenges  *ChallengeStore
	sessions    *SessionStore
	posts       *PostStore
}

// NewStore creates a new MongoDB store
func NewStore(ctx context.Context, cfg *config.MongoDBConfig) (*Store, error) {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(time.Duration(cfg.Timeout) * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)

	s := &Store{
		client:      client,
		database:    database,
		credentials: &CredentialStore{collection: database.Collection("webauthn_credentials")},
		challenges:  &ChallengeStore{collection: database.Collection("webauthn_challenges")},
		sessions:    &SessionStore{collection: database.Collection("admin_sessions")},
		posts:       &PostStore{collection: database.Collection("blog_posts")},
	}

	if err := s.createIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}

	return s, nil
}

func (s *Store) createIndexes(ctx context.Context) error {
	// One credential per (email, credential id)
	_, err := s.credentials.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "credential_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create credential indexes: %w", err)
	}

	// One challenge slot per (email, purpose), expired rows reaped by TTL
	_, err = s.challenges.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}, {Key: "purpose", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	if err != nil {
		return fmt.Errorf("failed to create challenge indexes: %w", err)
	}

	_, err = s.sessions.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}

	_, err = s.posts.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "slug", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create post indexes: %w", err)
	}

	return nil
}

func (s *Store) Credentials() storage.CredentialStore { return s.credentials }
func (s *Store) Challenges() storage.ChallengeStore   { return s.challenges }
func (s *Store) Sessions() storage.SessionStore       { return s.sessions }
func (s *Store) Posts() storage.PostStore             { return s.posts }

// Ping checks the MongoDB connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
