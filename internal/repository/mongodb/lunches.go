package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/domain/models"
)

// UpsertChoice writes a food choice keyed by (date, telegram_id).
func (s *MongoStore) UpsertChoice(ctx context.Context, choice models.DayChoice) error {
	_, err := s.db.Collection(choicesCollection).UpdateOne(ctx,
		bson.M{"date": choice.Date, "telegram_id": choice.TelegramID},
		bson.M{"$set": bson.M{
			"date":        choice.Date,
			"telegram_id": choice.TelegramID,
			"food_choice": choice.Food,
			"user_name":   choice.UserName,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert choice for %d on %s: %w", choice.TelegramID, choice.Date, err)
	}
	return nil
}

// GetChoice fetches one user's choice for the date.
func (s *MongoStore) GetChoice(ctx context.Context, date string, telegramID int64) (*models.DayChoice, error) {
	var choice models.DayChoice
	err := s.db.Collection(choicesCollection).
		FindOne(ctx, bson.M{"date": date, "telegram_id": telegramID}).
		Decode(&choice)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("choice for %d on %s: %w", telegramID, date, models.ErrNotFound)
		}
		return nil, fmt.Errorf("find choice for %d on %s: %w", telegramID, date, err)
	}
	return &choice, nil
}

// ListChoices returns every recorded choice for the date.
func (s *MongoStore) ListChoices(ctx context.Context, date string) ([]models.DayChoice, error) {
	cursor, err := s.db.Collection(choicesCollection).Find(ctx, bson.M{"date": date})
	if err != nil {
		return nil, fmt.Errorf("list choices for %s: %w", date, err)
	}
	defer cursor.Close(ctx)

	var choices []models.DayChoice
	if err := cursor.All(ctx, &choices); err != nil {
		return nil, fmt.Errorf("decode choices for %s: %w", date, err)
	}
	return choices, nil
}

// DeleteChoice removes one user's choice for the date. Deleting an
// absent record is not an error.
func (s *MongoStore) DeleteChoice(ctx context.Context, date string, telegramID int64) error {
	_, err := s.db.Collection(choicesCollection).
		DeleteOne(ctx, bson.M{"date": date, "telegram_id": telegramID})
	if err != nil {
		return fmt.Errorf("delete choice for %d on %s: %w", telegramID, date, err)
	}
	return nil
}

// DeleteChoicesBefore purges all choice records strictly older than the
// date. ISO date strings compare lexicographically.
func (s *MongoStore) DeleteChoicesBefore(ctx context.Context, date string) (int64, error) {
	res, err := s.db.Collection(choicesCollection).
		DeleteMany(ctx, bson.M{"date": bson.M{"$lt": date}})
	if err != nil {
		return 0, fmt.Errorf("delete choices before %s: %w", date, err)
	}
	return res.DeletedCount, nil
}

// DeleteChoicesForUser purges every choice record of one user.
func (s *MongoStore) DeleteChoicesForUser(ctx context.Context, telegramID int64) error {
	_, err := s.db.Collection(choicesCollection).
		DeleteMany(ctx, bson.M{"telegram_id": telegramID})
	if err != nil {
		return fmt.Errorf("delete choices for %d: %w", telegramID, err)
	}
	return nil
}

// UpsertCancelledLunch records a date-wide cancellation, keyed by date.
func (s *MongoStore) UpsertCancelledLunch(ctx context.Context, rec models.CancelledLunch) error {
	_, err := s.db.Collection(cancelledCollection).UpdateOne(ctx,
		bson.M{"date": rec.Date},
		bson.M{"$set": bson.M{
			"date":         rec.Date,
			"reason":       rec.Reason,
			"cancelled_by": rec.CancelledBy,
			"cancelled_at": rec.CancelledAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert cancelled lunch %s: %w", rec.Date, err)
	}
	return nil
}

// GetCancelledLunch fetches the cancellation record for the date.
func (s *MongoStore) GetCancelledLunch(ctx context.Context, date string) (*models.CancelledLunch, error) {
	var rec models.CancelledLunch
	err := s.db.Collection(cancelledCollection).
		FindOne(ctx, bson.M{"date": date}).
		Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("cancelled lunch %s: %w", date, models.ErrNotFound)
		}
		return nil, fmt.Errorf("find cancelled lunch %s: %w", date, err)
	}
	return &rec, nil
}
