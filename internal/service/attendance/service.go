package attendance

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/domain/models"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/repository/mongodb"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/repository/sheets"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/notify"
)

// Daily cutoff boundaries, wall clock in the configured timezone. The
// survey closes at 09:40 sharp (a response at 09:40:00 is rejected);
// cancellation is allowed in [07:00, 10:00).
const (
	surveyOpenHour    = 7
	surveyCloseHour   = 9
	surveyCloseMinute = 40
	cancelCloseHour   = 10
)

// Service drives the per-(user, date) decision lifecycle:
// Undecided -> Accepted(food) / Declined -> Cancelled. Every mutation
// that touches the remote ledger writes locally first and compensates
// the local write when the remote call fails.
type Service struct {
	users    mongodb.UserStore
	choices  mongodb.ChoiceStore
	menus    mongodb.MenuStore
	ledger   sheets.Ledger
	notifier notify.Notifier
	logger   *zap.Logger
	location *time.Location
	locks    *userLocks
	now      func() time.Time
}

// NewService constructs the attendance state machine.
func NewService(users mongodb.UserStore, choices mongodb.ChoiceStore, menus mongodb.MenuStore, ledger sheets.Ledger, notifier notify.Notifier, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:    users,
		choices:  choices,
		menus:    menus,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger,
		location: loc,
		locks:    newUserLocks(),
		now:      time.Now,
	}
}

// YesResult is returned from a positive survey response. When the user
// is already accepted it carries the existing choice instead of the
// menu to pick from.
type YesResult struct {
	Date            string   `json:"date"`
	AlreadyAccepted bool     `json:"already_accepted"`
	Food            string   `json:"food,omitempty"`
	MenuItems       []string `json:"menu_items,omitempty"`
}

// SelectResult is returned from a food selection.
type SelectResult struct {
	Date    string  `json:"date"`
	Food    string  `json:"food"`
	Price   float64 `json:"price"`
	Charged bool    `json:"charged"`
}

// CancelPrompt carries the data for the cancellation confirmation step.
type CancelPrompt struct {
	Date string `json:"date"`
	Food string `json:"food,omitempty"`
}

// CancelResult is returned from a confirmed cancellation.
type CancelResult struct {
	Date      string  `json:"date"`
	Cancelled bool    `json:"cancelled"`
	Refunded  float64 `json:"refunded,omitempty"`
}

// RespondYes handles the survey "yes" answer. Before the 09:40 cutoff
// it moves the user out of any decline and returns today's menu to pick
// from; re-answering while already accepted reports the current state
// without touching the ledger.
func (s *Service) RespondYes(ctx context.Context, telegramID int64) (*YesResult, error) {
	now := s.now().In(s.location)
	today := now.Format(models.DateLayout)

	if s.surveyClosed(now) {
		return nil, models.ErrSurveyClosed
	}

	mu := s.locks.forUser(telegramID)
	mu.Lock()
	defer mu.Unlock()

	user, err := s.users.GetUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	if user.AttendsOn(today) {
		result := &YesResult{Date: today, AlreadyAccepted: true}
		if choice, err := s.choices.GetChoice(ctx, today, telegramID); err == nil {
			result.Food = choice.Food
		}
		return result, nil
	}

	if user.DeclinedOn(today) {
		user.RemoveDecline(today)
		if err := s.users.SaveUser(ctx, user); err != nil {
			return nil, err
		}
	}

	menu, err := s.menus.GetMenu(ctx, models.MenuNameFor(now))
	if err != nil {
		return nil, err
	}
	if len(menu.Items) == 0 {
		return nil, fmt.Errorf("%w: today's menu is empty", models.ErrValidation)
	}

	return &YesResult{Date: today, MenuItems: menu.Items}, nil
}

// RespondNo handles the survey "no" answer. A user who had already
// accepted is first taken through the full removal and refund sequence.
func (s *Service) RespondNo(ctx context.Context, telegramID int64) error {
	now := s.now().In(s.location)
	today := now.Format(models.DateLayout)

	if s.surveyClosed(now) {
		return models.ErrSurveyClosed
	}

	mu := s.locks.forUser(telegramID)
	mu.Lock()
	defer mu.Unlock()

	user, err := s.users.GetUser(ctx, telegramID)
	if err != nil {
		return err
	}

	if user.AttendsOn(today) {
		if _, err := s.removeAttendanceLocked(ctx, user, today); err != nil {
			return err
		}
	}

	if !user.DeclinedOn(today) {
		user.AddDecline(today)
		if err := s.users.SaveUser(ctx, user); err != nil {
			return err
		}
	}
	return nil
}

// SelectFood completes the acceptance: it validates the item against
// today's rotation menu, snapshots the live price, writes the choice
// and attendance locally, then records the debt on the remote ledger.
// A remote failure rolls the local acceptance back and surfaces as
// ErrLedgerUnavailable. Re-selecting while already accepted returns the
// existing choice and never charges again.
func (s *Service) SelectFood(ctx context.Context, telegramID int64, food string) (*SelectResult, error) {
	now := s.now().In(s.location)
	today := now.Format(models.DateLayout)

	mu := s.locks.forUser(telegramID)
	mu.Lock()
	defer mu.Unlock()

	user, err := s.users.GetUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	if user.AttendsOn(today) {
		result := &SelectResult{Date: today, Price: user.DailyPrice, Charged: false}
		if choice, err := s.choices.GetChoice(ctx, today, telegramID); err == nil {
			result.Food = choice.Food
		}
		return result, nil
	}

	menu, err := s.menus.GetMenu(ctx, models.MenuNameFor(now))
	if err != nil {
		return nil, err
	}
	if !containsItem(menu.Items, food) {
		return nil, fmt.Errorf("%w: %q is not on today's menu", models.ErrValidation, food)
	}

	price, err := s.ledger.GetPrice(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	if err := s.choices.UpsertChoice(ctx, models.DayChoice{
		Date:       today,
		TelegramID: telegramID,
		Food:       food,
		UserName:   user.Name,
	}); err != nil {
		return nil, err
	}

	user.AddAttendance(today)
	user.DailyPrice = price
	if user.FoodChoices == nil {
		user.FoodChoices = make(map[string]string)
	}
	user.FoodChoices[today] = food
	user.RecordTxn(models.TxnAttendance, -price, "Lunch on "+today, s.now().UTC())
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	if err := s.ledger.RecordDebtDelta(ctx, telegramID, price); err != nil {
		user.RemoveAttendance(today)
		delete(user.FoodChoices, today)
		user.RecordTxn(models.TxnRollback, price, "Rollback lunch on "+today, s.now().UTC())
		if saveErr := s.users.SaveUser(ctx, user); saveErr != nil {
			s.logger.Error("rollback save failed after ledger error",
				zap.Int64("telegram_id", telegramID),
				zap.String("date", today),
				zap.Error(saveErr))
		}
		return nil, fmt.Errorf("record debt for %d: %w", telegramID, err)
	}

	s.logger.Info("attendance accepted",
		zap.Int64("telegram_id", telegramID),
		zap.String("date", today),
		zap.String("food", food),
		zap.Float64("price", price))

	return &SelectResult{Date: today, Food: food, Price: price, Charged: true}, nil
}

// RequestCancel checks the cancellation window and returns the data for
// the confirmation prompt. No state changes here.
func (s *Service) RequestCancel(ctx context.Context, telegramID int64) (*CancelPrompt, error) {
	now := s.now().In(s.location)
	today := now.Format(models.DateLayout)

	if err := s.cancelWindowOpen(now); err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if !user.AttendsOn(today) {
		return nil, models.ErrNotAttending
	}

	prompt := &CancelPrompt{Date: today}
	if choice, err := s.choices.GetChoice(ctx, today, telegramID); err == nil {
		prompt.Food = choice.Food
	}
	return prompt, nil
}

// ConfirmCancel executes a confirmed cancellation: attendance removed,
// choice record deleted, remote debt cleared, other admins notified.
// The window is rechecked because time passes between the prompt and
// the confirmation.
func (s *Service) ConfirmCancel(ctx context.Context, telegramID int64, confirmed bool) (*CancelResult, error) {
	now := s.now().In(s.location)
	today := now.Format(models.DateLayout)

	if !confirmed {
		return &CancelResult{Date: today, Cancelled: false}, nil
	}

	if err := s.cancelWindowOpen(now); err != nil {
		return nil, err
	}

	mu := s.locks.forUser(telegramID)
	mu.Lock()
	defer mu.Unlock()

	user, err := s.users.GetUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if !user.AttendsOn(today) {
		return nil, models.ErrNotAttending
	}

	price, err := s.removeAttendanceLocked(ctx, user, today)
	if err != nil {
		return nil, err
	}

	s.notifyAdminsOfCancel(ctx, user, today)

	return &CancelResult{Date: today, Cancelled: true, Refunded: price}, nil
}

// CancelForDate removes one user's attendance for an arbitrary date
// with the refund sequence but no window gating. Used by the admin-wide
// date cancellation.
func (s *Service) CancelForDate(ctx context.Context, telegramID int64, date string) (float64, error) {
	mu := s.locks.forUser(telegramID)
	mu.Lock()
	defer mu.Unlock()

	user, err := s.users.GetUser(ctx, telegramID)
	if err != nil {
		return 0, err
	}
	if !user.AttendsOn(date) {
		return 0, models.ErrNotAttending
	}
	return s.removeAttendanceLocked(ctx, user, date)
}

// removeAttendanceLocked runs the local-then-remote removal with
// compensating rollback. The caller holds the user's lock.
func (s *Service) removeAttendanceLocked(ctx context.Context, user *models.User, date string) (float64, error) {
	price, err := s.ledger.GetPrice(ctx, user.TelegramID)
	if err != nil {
		return 0, err
	}

	user.RemoveAttendance(date)
	delete(user.FoodChoices, date)
	user.RecordTxn(models.TxnCancel, price, "Cancel lunch on "+date, s.now().UTC())
	if err := s.users.SaveUser(ctx, user); err != nil {
		return 0, err
	}

	if err := s.choices.DeleteChoice(ctx, date, user.TelegramID); err != nil {
		s.logger.Warn("delete choice record failed",
			zap.Int64("telegram_id", user.TelegramID),
			zap.String("date", date),
			zap.Error(err))
	}

	if err := s.ledger.ClearDebt(ctx, user.TelegramID); err != nil {
		user.AddAttendance(date)
		user.RecordTxn(models.TxnRollback, -price, "Rollback cancel on "+date, s.now().UTC())
		if saveErr := s.users.SaveUser(ctx, user); saveErr != nil {
			s.logger.Error("rollback save failed after ledger error",
				zap.Int64("telegram_id", user.TelegramID),
				zap.String("date", date),
				zap.Error(saveErr))
		}
		return 0, fmt.Errorf("clear debt for %d: %w", user.TelegramID, err)
	}

	s.logger.Info("attendance cancelled",
		zap.Int64("telegram_id", user.TelegramID),
		zap.String("date", date),
		zap.Float64("refund", price))

	return price, nil
}

func (s *Service) notifyAdminsOfCancel(ctx context.Context, user *models.User, date string) {
	all, err := s.users.ListUsers(ctx)
	if err != nil {
		s.logger.Error("list admins for cancel notice failed", zap.Error(err))
		return
	}
	text := fmt.Sprintf("%s withdrew from lunch on %s.", user.Name, date)
	for _, u := range all {
		if !u.IsAdmin || u.TelegramID == user.TelegramID {
			continue
		}
		if err := s.notifier.Notify(ctx, u.TelegramID, text); err != nil {
			s.logger.Warn("admin cancel notice failed",
				zap.Int64("admin_id", u.TelegramID),
				zap.Error(err))
		}
	}
}

func (s *Service) surveyClosed(now time.Time) bool {
	if now.Hour() > surveyCloseHour {
		return true
	}
	return now.Hour() == surveyCloseHour && now.Minute() >= surveyCloseMinute
}

func (s *Service) cancelWindowOpen(now time.Time) error {
	if now.Hour() < surveyOpenHour {
		return models.ErrSurveyNotOpen
	}
	if now.Hour() >= cancelCloseHour {
		return models.ErrCancelWindowClosed
	}
	return nil
}

func containsItem(items []string, food string) bool {
	for _, item := range items {
		if item == food {
			return true
		}
	}
	return false
}
