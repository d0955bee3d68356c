package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/domain/models"
)

// GetUser fetches one user by telegram id.
func (s *MongoStore) GetUser(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).
		FindOne(ctx, bson.M{"telegram_id": telegramID}).
		Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %d: %w", telegramID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("find user %d: %w", telegramID, err)
	}
	return &user, nil
}

// ListUsers returns the full roster.
func (s *MongoStore) ListUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := s.db.Collection(usersCollection).Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

// CreateUser inserts a new user document.
func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := s.db.Collection(usersCollection).InsertOne(ctx, user); err != nil {
		return fmt.Errorf("insert user %d: %w", user.TelegramID, err)
	}
	return nil
}

// SaveUser persists the mutable fields of an existing user. Matches on
// telegram id; the created_at field is never rewritten.
func (s *MongoStore) SaveUser(ctx context.Context, user *models.User) error {
	res, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"telegram_id": user.TelegramID},
		bson.M{"$set": bson.M{
			"name":          user.Name,
			"phone":         user.Phone,
			"balance":       user.Balance,
			"daily_price":   user.DailyPrice,
			"attendance":    user.Attendance,
			"declined_days": user.DeclinedDays,
			"food_choices":  user.FoodChoices,
			"transactions":  user.Transactions,
			"is_admin":      user.IsAdmin,
		}},
	)
	if err != nil {
		return fmt.Errorf("save user %d: %w", user.TelegramID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %d: %w", user.TelegramID, models.ErrNotFound)
	}
	return nil
}

// DeleteUser removes a user document.
func (s *MongoStore) DeleteUser(ctx context.Context, telegramID int64) error {
	res, err := s.db.Collection(usersCollection).
		DeleteOne(ctx, bson.M{"telegram_id": telegramID})
	if err != nil {
		return fmt.Errorf("delete user %d: %w", telegramID, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("user %d: %w", telegramID, models.ErrNotFound)
	}
	return nil
}

// SetAdmin flips the admin flag for one user.
func (s *MongoStore) SetAdmin(ctx context.Context, telegramID int64, isAdmin bool) error {
	res, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"telegram_id": telegramID},
		bson.M{"$set": bson.M{"is_admin": isAdmin}},
	)
	if err != nil {
		return fmt.Errorf("set admin for %d: %w", telegramID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %d: %w", telegramID, models.ErrNotFound)
	}
	return nil
}

// SetBalance overwrites the cached balance for one user.
func (s *MongoStore) SetBalance(ctx context.Context, telegramID int64, balance float64) error {
	_, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"telegram_id": telegramID},
		bson.M{"$set": bson.M{"balance": balance}},
	)
	if err != nil {
		return fmt.Errorf("set balance for %d: %w", telegramID, err)
	}
	return nil
}

// SetDailyPrice overwrites the cached daily price for one user.
func (s *MongoStore) SetDailyPrice(ctx context.Context, telegramID int64, price float64) error {
	_, err := s.db.Collection(usersCollection).UpdateOne(ctx,
		bson.M{"telegram_id": telegramID},
		bson.M{"$set": bson.M{"daily_price": price}},
	)
	if err != nil {
		return fmt.Errorf("set daily price for %d: %w", telegramID, err)
	}
	return nil
}
