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

// GetMenu fetches one rotation menu by name.
func (s *MongoStore) GetMenu(ctx context.Context, name string) (*models.Menu, error) {
	var menu models.Menu
	err := s.db.Collection(menuCollection).
		FindOne(ctx, bson.M{"name": name}).
		Decode(&menu)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("menu %s: %w", name, models.ErrNotFound)
		}
		return nil, fmt.Errorf("find menu %s: %w", name, err)
	}
	return &menu, nil
}

// AddMenuItem adds an item to a menu; items form a set, duplicates are
// absorbed by $addToSet.
func (s *MongoStore) AddMenuItem(ctx context.Context, name, item string) error {
	_, err := s.db.Collection(menuCollection).UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$addToSet": bson.M{"items": item}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("add item to menu %s: %w", name, err)
	}
	return nil
}

// RemoveMenuItem removes an item from a menu.
func (s *MongoStore) RemoveMenuItem(ctx context.Context, name, item string) error {
	_, err := s.db.Collection(menuCollection).UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$pull": bson.M{"items": item}},
	)
	if err != nil {
		return fmt.Errorf("remove item from menu %s: %w", name, err)
	}
	return nil
}

// GetCardDetails fetches the payment card requisites.
func (s *MongoStore) GetCardDetails(ctx context.Context) (*models.CardDetails, error) {
	var card models.CardDetails
	err := s.db.Collection(cardCollection).FindOne(ctx, bson.M{}).Decode(&card)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("card details: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("find card details: %w", err)
	}
	return &card, nil
}

// SetCardNumber upserts the payment card number.
func (s *MongoStore) SetCardNumber(ctx context.Context, number string) error {
	_, err := s.db.Collection(cardCollection).UpdateOne(ctx,
		bson.M{},
		bson.M{"$set": bson.M{"card_number": number}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set card number: %w", err)
	}
	return nil
}

// SetCardOwner upserts the payment card owner name.
func (s *MongoStore) SetCardOwner(ctx context.Context, owner string) error {
	_, err := s.db.Collection(cardCollection).UpdateOne(ctx,
		bson.M{},
		bson.M{"$set": bson.M{"card_owner": owner}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("set card owner: %w", err)
	}
	return nil
}
