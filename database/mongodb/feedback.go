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

func (s *Store) withFeedbackViews(ctx context.Context, items []model.Feedback) ([]model.Feedback, error) {
	if len(items) == 0 {
		return items, nil
	}
	userIDs := make([]string, 0, len(items))
	sessionIDs := make([]string, 0, len(items))
	for _, feedback := range items {
		userIDs = append(userIDs, feedback.UserID)
		sessionIDs = append(sessionIDs, feedback.SessionID)
	}
	users, err := s.usersByID(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	sessions, err := s.sessionsByID(ctx, sessionIDs)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Username = users[items[i].UserID].Username
		items[i].SessionTitle = sessions[items[i].SessionID].Title
	}
	return items, nil
}

func (s *Store) listFeedback(ctx context.Context, filter bson.D) ([]model.Feedback, error) {
	items, err := findAll[model.Feedback](ctx, s.feedback, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return s.withFeedbackViews(ctx, items)
}

func (s *Store) CreateFeedback(ctx context.Context, feedback model.Feedback) error {
	for _, ref := range []struct {
		collection *mongo.Collection
		id         string
	}{
		{s.users, feedback.UserID},
		{s.sessions, feedback.SessionID},
	} {
		found, err := exists(ctx, ref.collection, byID(ref.id))
		if err != nil {
			return err
		}
		if !found {
			return database.ErrNotFound
		}
	}
	if _, err := s.feedback.InsertOne(ctx, feedback); err != nil {
		if duplicateOn(err, "user_session_unique") {
			return database.ErrFeedbackExists
		}
		return fmt.Errorf("insert feedback: %w", err)
	}
	return nil
}

func (s *Store) GetFeedback(ctx context.Context, id string) (model.Feedback, error) {
	feedback, err := findOne[model.Feedback](ctx, s.feedback, byID(id))
	if err != nil {
		return model.Feedback{}, err
	}
	enriched, err := s.withFeedbackViews(ctx, []model.Feedback{feedback})
	if err != nil {
		return model.Feedback{}, err
	}
	return enriched[0], nil
}

func (s *Store) HasFeedback(ctx context.Context, userID, sessionID string) (bool, error) {
	return exists(ctx, s.feedback, bson.D{
		{Key: "user_id", Value: userID},
		{Key: "session_id", Value: sessionID},
	})
}

func (s *Store) ListFeedbackBySession(ctx context.Context, sessionID string) ([]model.Feedback, error) {
	return s.listFeedback(ctx, bson.D{{Key: "session_id", Value: sessionID}})
}

func (s *Store) ListFeedbackByUser(ctx context.Context, userID string) ([]model.Feedback, error) {
	return s.listFeedback(ctx, bson.D{{Key: "user_id", Value: userID}})
}

func (s *Store) AverageRating(ctx context.Context, sessionID string) (float64, error) {
	cur, err := s.feedback.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "session_id", Value: sessionID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "average", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
		}}},
	})
	if err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	var results []struct {
		Average float64 `bson:"average"`
	}
	if err := cur.All(ctx, &results); err != nil {
		return 0, fmt.Errorf("average rating: %w", err)
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Average, nil
}

func (s *Store) DeleteFeedback(ctx context.Context, id string) error {
	res, err := s.feedback.DeleteOne(ctx, byID(id))
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	if res.DeletedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}
