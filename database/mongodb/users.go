package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"conference-webapp/database"
	"conference-webapp/model"
)

func (s *Store) CreateUser(ctx context.Context, user model.User) error {
	_, err := s.users.InsertOne(ctx, user)
	switch {
	case err == nil:
		return nil
	case duplicateOn(err, "username_unique"):
		return database.ErrUsernameTaken
	case duplicateOn(err, "email_unique"):
		return database.ErrEmailTaken
	}
	return fmt.Errorf("insert user: %w", err)
}

func (s *Store) GetUser(ctx context.Context, id string) (model.User, error) {
	return findOne[model.User](ctx, s.users, byID(id))
}

func (s *Store) GetUserByLogin(ctx context.Context, login string) (model.User, error) {
	return findOne[model.User](ctx, s.users, bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "username", Value: login}},
		bson.D{{Key: "email", Value: login}},
	}}})
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	return findAll[model.User](ctx, s.users, bson.D{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "username", Value: 1}}))
}

// usersByID loads the given users keyed by id.
func (s *Store) usersByID(ctx context.Context, ids []string) (map[string]model.User, error) {
	users, err := findAll[model.User](ctx, s.users,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: uniqueIDs(ids)}}}})
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.User, len(users))
	for _, user := range users {
		out[user.ID] = user
	}
	return out, nil
}

// guardLastAdmin must run while the admins lock is held.
func (s *Store) guardLastAdmin(ctx context.Context, user model.User) error {
	if user.Role != model.RoleAdmin {
		return nil
	}
	admins, err := s.users.CountDocuments(ctx, bson.D{{Key: "role", Value: string(model.RoleAdmin)}})
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if admins <= 1 {
		return database.ErrLastAdmin
	}
	return nil
}

func (s *Store) UpdateUserRole(ctx context.Context, id string, role model.Role) (model.User, error) {
	unlock := s.locks.Lock(adminsKey)
	defer unlock()

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if role != model.RoleAdmin {
		if err := s.guardLastAdmin(ctx, user); err != nil {
			return model.User{}, err
		}
	}
	if _, err := s.users.UpdateOne(ctx, byID(id), bson.D{{Key: "$set", Value: bson.D{{Key: "role", Value: string(role)}}}}); err != nil {
		return model.User{}, fmt.Errorf("update role: %w", err)
	}
	user.Role = role
	return user, nil
}

// hasDependents mirrors the relational foreign keys that restrict user deletion.
func (s *Store) hasDependents(ctx context.Context, id string) (bool, error) {
	checks := []struct {
		collection *mongo.Collection
		field      string
	}{
		{s.proposals, "user_id"},
		{s.sessions, "speaker_id"},
		{s.registrations, "user_id"},
		{s.feedback, "user_id"},
	}
	for _, check := range checks {
		found, err := exists(ctx, check.collection, bson.D{{Key: check.field, Value: id}})
		if err != nil {
			return false, err
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) (model.User, error) {
	unlock := s.locks.Lock(adminsKey)
	defer unlock()
	unlockUser := s.locks.Lock(userKey(id))
	defer unlockUser()

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if err := s.guardLastAdmin(ctx, user); err != nil {
		return model.User{}, err
	}
	dependents, err := s.hasDependents(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if dependents {
		return model.User{}, database.ErrHasDependents
	}

	if _, err := s.proposals.UpdateMany(ctx,
		bson.D{{Key: "reviewed_by", Value: id}},
		bson.D{{Key: "$unset", Value: bson.D{{Key: "reviewed_by", Value: ""}}}}); err != nil {
		return model.User{}, fmt.Errorf("detach reviews: %w", err)
	}
	if _, err := s.users.DeleteOne(ctx, byID(id)); err != nil {
		return model.User{}, fmt.Errorf("delete user: %w", err)
	}
	return user, nil
}
