package menus

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/domain/models"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/repository/mongodb"
)

// Service reads and edits the four rotating menus.
type Service struct {
	store    mongodb.MenuStore
	logger   *zap.Logger
	location *time.Location
	now      func() time.Time
}

func NewService(store mongodb.MenuStore, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, location: loc, now: time.Now}
}

// Get returns one menu by slot name (menu1 through menu4).
func (s *Service) Get(ctx context.Context, name string) (*models.Menu, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	return s.store.GetMenu(ctx, name)
}

// ForToday returns the menu the weekly rotation selects for today.
func (s *Service) ForToday(ctx context.Context) (*models.Menu, error) {
	return s.store.GetMenu(ctx, models.MenuNameFor(s.now().In(s.location)))
}

// AddItem appends a dish to a menu. Duplicates are absorbed.
func (s *Service) AddItem(ctx context.Context, name, item string) error {
	if err := validName(name); err != nil {
		return err
	}
	item = strings.TrimSpace(item)
	if item == "" {
		return fmt.Errorf("%w: empty menu item", models.ErrValidation)
	}
	if err := s.store.AddMenuItem(ctx, name, item); err != nil {
		return err
	}
	s.logger.Info("menu item added", zap.String("menu", name), zap.String("item", item))
	return nil
}

// RemoveItem deletes a dish from a menu.
func (s *Service) RemoveItem(ctx context.Context, name, item string) error {
	if err := validName(name); err != nil {
		return err
	}
	item = strings.TrimSpace(item)
	if item == "" {
		return fmt.Errorf("%w: empty menu item", models.ErrValidation)
	}
	if err := s.store.RemoveMenuItem(ctx, name, item); err != nil {
		return err
	}
	s.logger.Info("menu item removed", zap.String("menu", name), zap.String("item", item))
	return nil
}

func validName(name string) error {
	for _, n := range models.MenuNames {
		if n == name {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown menu %q", models.ErrValidation, name)
}
