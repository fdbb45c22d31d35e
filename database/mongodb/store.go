// Package mongodb provides the MongoDB-backed conference store.
//
// MongoDB has no row locks, so check-then-mutate workflows hold a process-local mutex
// keyed by user, session or catalog, and the participant counter is only ever moved with
// a conditional $inc that re-checks capacity on the server.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conference-webapp/database"
)

var _ database.Store = (*Store)(nil)

const (
	usersCollection         = "users"
	proposalsCollection     = "proposals"
	sessionsCollection      = "sessions"
	registrationsCollection = "registrations"
	feedbackCollection      = "feedback"
)

// Store persists conference state in MongoDB.
type Store struct {
	client        *mongo.Client
	db            *mongo.Database
	users         *mongo.Collection
	proposals     *mongo.Collection
	sessions      *mongo.Collection
	registrations *mongo.Collection
	feedback      *mongo.Collection
	locks         keyedMutex
}

// Open connects to connString, pings the server and ensures the indexes of dbName.
func Open(ctx context.Context, connString, dbName string) (*Store, error) {
	if strings.TrimSpace(connString) == "" {
		return nil, fmt.Errorf("connection string is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connString))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to the db: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("db is not available: %w", err)
	}

	db := client.Database(dbName)
	store := &Store{
		client:        client,
		db:            db,
		users:         db.Collection(usersCollection),
		proposals:     db.Collection(proposalsCollection),
		sessions:      db.Collection(sessionsCollection),
		registrations: db.Collection(registrationsCollection),
		feedback:      db.Collection(feedbackCollection),
	}
	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := func(keys bson.D, name string) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys, Options: options.Index().SetUnique(true).SetName(name)}
	}
	plain := func(keys bson.D) mongo.IndexModel {
		return mongo.IndexModel{Keys: keys}
	}
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.users: {
			unique(bson.D{{Key: "username", Value: 1}}, "username_unique"),
			unique(bson.D{{Key: "email", Value: 1}}, "email_unique"),
			plain(bson.D{{Key: "role", Value: 1}}),
		},
		s.proposals: {
			plain(bson.D{{Key: "user_id", Value: 1}}),
			plain(bson.D{{Key: "status", Value: 1}}),
		},
		s.sessions: {
			unique(bson.D{{Key: "proposal_id", Value: 1}}, "proposal_unique"),
			plain(bson.D{{Key: "session_time", Value: 1}, {Key: "session_end", Value: 1}}),
			plain(bson.D{{Key: "speaker_id", Value: 1}}),
		},
		s.registrations: {
			unique(bson.D{{Key: "user_id", Value: 1}, {Key: "session_id", Value: 1}}, "user_session_unique"),
			plain(bson.D{{Key: "session_id", Value: 1}}),
		},
		s.feedback: {
			unique(bson.D{{Key: "user_id", Value: 1}, {Key: "session_id", Value: 1}}, "user_session_unique"),
			plain(bson.D{{Key: "session_id", Value: 1}}),
		},
	}
	for collection, models := range indexes {
		if _, err := collection.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", collection.Name(), err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// drop removes the whole database; tests only.
func (s *Store) drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func findOne[T any](ctx context.Context, collection *mongo.Collection, filter any) (T, error) {
	var out T
	err := collection.FindOne(ctx, filter).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return out, database.ErrNotFound
	}
	if err != nil {
		return out, fmt.Errorf("find %s: %w", collection.Name(), err)
	}
	return out, nil
}

func findAll[T any](ctx context.Context, collection *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cur, err := collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection.Name(), err)
	}
	out := make([]T, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection.Name(), err)
	}
	return out, nil
}

func exists(ctx context.Context, collection *mongo.Collection, filter any) (bool, error) {
	count, err := collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count %s: %w", collection.Name(), err)
	}
	return count > 0, nil
}

// duplicateOn reports a duplicate key error raised by the named unique index.
func duplicateOn(err error, index string) bool {
	return mongo.IsDuplicateKeyError(err) && strings.Contains(err.Error(), index)
}

func byID(id string) bson.D {
	return bson.D{{Key: "_id", Value: id}}
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
