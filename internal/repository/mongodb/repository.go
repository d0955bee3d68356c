package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/domain/models"
)

// Collection names used by the lunch workflow.
const (
	usersCollection     = "users"
	choicesCollection   = "daily_food_choices"
	cancelledCollection = "cancelled_lunches"
	menuCollection      = "menu"
	cardCollection      = "card_details"
)

// UserStore defines the persistence operations on the user roster.
type UserStore interface {
	GetUser(ctx context.Context, telegramID int64) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, telegramID int64) error
	SetAdmin(ctx context.Context, telegramID int64, isAdmin bool) error
	SetBalance(ctx context.Context, telegramID int64, balance float64) error
	SetDailyPrice(ctx context.Context, telegramID int64, price float64) error
}

// ChoiceStore defines operations on per-day food choice records.
type ChoiceStore interface {
	UpsertChoice(ctx context.Context, choice models.DayChoice) error
	GetChoice(ctx context.Context, date string, telegramID int64) (*models.DayChoice, error)
	ListChoices(ctx context.Context, date string) ([]models.DayChoice, error)
	DeleteChoice(ctx context.Context, date string, telegramID int64) error
	DeleteChoicesBefore(ctx context.Context, date string) (int64, error)
	DeleteChoicesForUser(ctx context.Context, telegramID int64) error
}

// CancelStore defines operations on date-wide cancellation records.
type CancelStore interface {
	UpsertCancelledLunch(ctx context.Context, rec models.CancelledLunch) error
	GetCancelledLunch(ctx context.Context, date string) (*models.CancelledLunch, error)
}

// MenuStore defines operations on rotation menus and card details.
type MenuStore interface {
	GetMenu(ctx context.Context, name string) (*models.Menu, error)
	AddMenuItem(ctx context.Context, name, item string) error
	RemoveMenuItem(ctx context.Context, name, item string) error
	GetCardDetails(ctx context.Context) (*models.CardDetails, error)
	SetCardNumber(ctx context.Context, number string) error
	SetCardOwner(ctx context.Context, owner string) error
}

// Store aggregates every collection the workflow touches.
type Store interface {
	UserStore
	ChoiceStore
	CancelStore
	MenuStore
}

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, uri string, dbName string) (*MongoStore, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoStore{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

// EnsureIndexes creates the unique indexes the collections rely on and
// seeds the four rotation menus when absent.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	users := s.db.Collection(usersCollection)
	if _, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "telegram_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "is_admin", Value: 1}}},
		{Keys: bson.D{{Key: "attendance", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("create users indexes: %w", err)
	}

	choices := s.db.Collection(choicesCollection)
	if _, err := choices.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}, {Key: "telegram_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create choices index: %w", err)
	}

	cancelled := s.db.Collection(cancelledCollection)
	if _, err := cancelled.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create cancelled index: %w", err)
	}

	menus := s.db.Collection(menuCollection)
	if _, err := menus.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create menu index: %w", err)
	}

	descriptions := map[string]string{
		models.MenuEvenWeekOddDay:  "Even week, odd days",
		models.MenuEvenWeekEvenDay: "Even week, even days",
		models.MenuOddWeekOddDay:   "Odd week, odd days",
		models.MenuOddWeekEvenDay:  "Odd week, even days",
	}
	for _, name := range models.MenuNames {
		_, err := menus.UpdateOne(ctx,
			bson.M{"name": name},
			bson.M{"$setOnInsert": bson.M{
				"name":        name,
				"items":       []string{},
				"description": descriptions[name],
			}},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("seed menu %s: %w", name, err)
		}
	}

	return nil
}

// Close closes the MongoDB connection.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
