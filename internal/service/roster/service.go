package roster

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/domain/models"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/repository/mongodb"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/repository/sheets"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/notify"
)

// Latin or Cyrillic names, 2-50 chars; Uzbek numbers with or without
// the +998 country prefix.
var (
	nameRe  = regexp.MustCompile(`^[A-Za-z\x{0400}-\x{04FF}'][A-Za-z\x{0400}-\x{04FF}' ]{1,49}$`)
	phoneRe = regexp.MustCompile(`^\+?998\d{9}$`)
)

// historyLimit caps the transaction tail returned by History.
const historyLimit = 20

// BalanceInfo is a balance read with its freshness. When the remote
// ledger is unreachable Synced is false and Balance is the cached copy.
type BalanceInfo struct {
	Balance float64 `json:"balance"`
	Synced  bool    `json:"synced"`
}

// UserSummary is one roster row with ledger figures attached.
type UserSummary struct {
	TelegramID int64   `json:"telegram_id"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	Balance    float64 `json:"balance"`
	DailyPrice float64 `json:"daily_price"`
	IsAdmin    bool    `json:"is_admin"`
}

// Service manages the participant roster: registration, profile
// changes, balance and history reads, admin grants and the payment
// card details.
type Service struct {
	users    mongodb.UserStore
	choices  mongodb.ChoiceStore
	menus    mongodb.MenuStore
	ledger   sheets.Ledger
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time

	initialBalance float64
	defaultPrice   float64
}

// NewService constructs the roster service. initialBalance and
// defaultPrice seed new registrations.
func NewService(users mongodb.UserStore, choices mongodb.ChoiceStore, menus mongodb.MenuStore, ledger sheets.Ledger, notifier notify.Notifier, initialBalance, defaultPrice float64, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:          users,
		choices:        choices,
		menus:          menus,
		ledger:         ledger,
		notifier:       notifier,
		logger:         logger,
		now:            time.Now,
		initialBalance: initialBalance,
		defaultPrice:   defaultPrice,
	}
}

// Register creates a user with the default balance and daily price.
// Registering an existing ID returns the stored user unchanged.
func (s *Service) Register(ctx context.Context, telegramID int64, name, phone string) (*models.User, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("%w: name must be 2-50 letters", models.ErrValidation)
	}
	if !phoneRe.MatchString(phone) {
		return nil, fmt.Errorf("%w: phone must be an Uzbek number like +998901234567", models.ErrValidation)
	}

	if existing, err := s.users.GetUser(ctx, telegramID); err == nil {
		return existing, nil
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}

	user := &models.User{
		TelegramID:  telegramID,
		Name:        name,
		Phone:       phone,
		Balance:     s.initialBalance,
		DailyPrice:  s.defaultPrice,
		FoodChoices: map[string]string{},
		CreatedAt:   s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered",
		zap.Int64("telegram_id", telegramID), zap.String("name", name))
	return user, nil
}

// ChangeName validates and stores a new display name, leaving a
// transaction trace with the old one.
func (s *Service) ChangeName(ctx context.Context, telegramID int64, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("%w: name must be 2-50 letters", models.ErrValidation)
	}
	user, err := s.users.GetUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	old := user.Name
	user.Name = name
	user.RecordTxn(models.TxnNameChange, 0, fmt.Sprintf("renamed from %s", old), s.now().UTC())
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetBalance returns the ledger balance, refreshing the cached copy on
// success. When the ledger is unreachable it degrades to the cached
// value with Synced false rather than failing the read.
func (s *Service) GetBalance(ctx context.Context, telegramID int64) (*BalanceInfo, error) {
	user, err := s.users.GetUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	balance, err := s.ledger.GetBalance(ctx, telegramID)
	if err != nil {
		s.logger.Warn("ledger balance read failed, serving cached",
			zap.Int64("telegram_id", telegramID), zap.Error(err))
		return &BalanceInfo{Balance: user.Balance, Synced: false}, nil
	}
	if balance != user.Balance {
		if err := s.users.SetBalance(ctx, telegramID, balance); err != nil {
			s.logger.Warn("balance cache refresh failed",
				zap.Int64("telegram_id", telegramID), zap.Error(err))
		}
	}
	return &BalanceInfo{Balance: balance, Synced: true}, nil
}

// History returns the user's most recent transactions, newest first.
func (s *Service) History(ctx context.Context, telegramID int64) ([]models.Transaction, error) {
	user, err := s.users.GetUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	txns := user.Transactions
	out := make([]models.Transaction, 0, historyLimit)
	for i := len(txns) - 1; i >= 0 && len(out) < historyLimit; i-- {
		out = append(out, txns[i])
	}
	return out, nil
}

// AttendanceForMonth returns the dates in a month the user attended,
// sorted ascending. month is formatted 2006-01.
func (s *Service) AttendanceForMonth(ctx context.Context, telegramID int64, month string) ([]string, error) {
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, fmt.Errorf("%w: bad month %q, want YYYY-MM", models.ErrValidation, month)
	}
	user, err := s.users.GetUser(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	var days []string
	for _, d := range user.Attendance {
		if strings.HasPrefix(d, month+"-") {
			days = append(days, d)
		}
	}
	sort.Strings(days)
	return days, nil
}

// ListUsers returns every roster row, overlaying live ledger balances
// and prices when the sheet is reachable.
func (s *Service) ListUsers(ctx context.Context) ([]UserSummary, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	balances, berr := s.ledger.ListBalances(ctx)
	prices, perr := s.ledger.ListPrices(ctx)
	if berr != nil || perr != nil {
		s.logger.Warn("ledger roster read failed, serving cached figures",
			zap.NamedError("balances", berr), zap.NamedError("prices", perr))
	}

	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		row := UserSummary{
			TelegramID: u.TelegramID,
			Name:       u.Name,
			Phone:      u.Phone,
			Balance:    u.Balance,
			DailyPrice: u.DailyPrice,
			IsAdmin:    u.IsAdmin,
		}
		if berr == nil {
			if b, ok := balances[u.TelegramID]; ok {
				row.Balance = b
			}
		}
		if perr == nil {
			if p, ok := prices[u.TelegramID]; ok {
				row.DailyPrice = p
			}
		}
		out = append(out, row)
	}
	return out, nil
}

// Promote grants admin rights to a user.
func (s *Service) Promote(ctx context.Context, adminID, telegramID int64) error {
	return s.setAdmin(ctx, adminID, telegramID, true)
}

// Demote revokes admin rights from a user.
func (s *Service) Demote(ctx context.Context, adminID, telegramID int64) error {
	return s.setAdmin(ctx, adminID, telegramID, false)
}

func (s *Service) setAdmin(ctx context.Context, adminID, telegramID int64, grant bool) error {
	user, err := s.users.GetUser(ctx, telegramID)
	if err != nil {
		return err
	}
	if user.IsAdmin == grant {
		return nil
	}
	if err := s.users.SetAdmin(ctx, telegramID, grant); err != nil {
		return err
	}
	s.logger.Info("admin flag changed",
		zap.Int64("admin_id", adminID),
		zap.Int64("telegram_id", telegramID),
		zap.Bool("is_admin", grant))
	return nil
}

// Delete removes a user and purges their pending day choices.
func (s *Service) Delete(ctx context.Context, adminID, telegramID int64) error {
	if err := s.users.DeleteUser(ctx, telegramID); err != nil {
		return err
	}
	if err := s.choices.DeleteChoicesForUser(ctx, telegramID); err != nil {
		s.logger.Warn("choice purge failed after user delete",
			zap.Int64("telegram_id", telegramID), zap.Error(err))
	}
	s.logger.Info("user deleted",
		zap.Int64("admin_id", adminID), zap.Int64("telegram_id", telegramID))
	return nil
}

// CardDetails returns the shared top-up card details.
func (s *Service) CardDetails(ctx context.Context) (*models.CardDetails, error) {
	return s.menus.GetCardDetails(ctx)
}

// SetCardNumber stores the top-up card number. Digits and spaces only.
func (s *Service) SetCardNumber(ctx context.Context, number string) error {
	cleaned := strings.ReplaceAll(strings.TrimSpace(number), " ", "")
	if len(cleaned) != 16 || strings.Trim(cleaned, "0123456789") != "" {
		return fmt.Errorf("%w: card number must be 16 digits", models.ErrValidation)
	}
	return s.menus.SetCardNumber(ctx, cleaned)
}

// SetCardOwner stores the top-up card owner name.
func (s *Service) SetCardOwner(ctx context.Context, owner string) error {
	owner = strings.TrimSpace(owner)
	if !nameRe.MatchString(owner) {
		return fmt.Errorf("%w: owner must be 2-50 letters", models.ErrValidation)
	}
	return s.menus.SetCardOwner(ctx, owner)
}

// Kassa returns the communal fund balance from the ledger.
func (s *Service) Kassa(ctx context.Context) (float64, error) {
	return s.ledger.ReadKassa(ctx)
}

// Broadcast delivers a message to every user, counting failures.
func (s *Service) Broadcast(ctx context.Context, adminID int64, text string) (models.BatchResult, error) {
	var result models.BatchResult
	text = strings.TrimSpace(text)
	if text == "" {
		return result, fmt.Errorf("%w: empty broadcast text", models.ErrValidation)
	}
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return result, err
	}
	for _, u := range users {
		if err := s.notifier.Notify(ctx, u.TelegramID, text); err != nil {
			s.logger.Warn("broadcast delivery failed",
				zap.Int64("telegram_id", u.TelegramID), zap.Error(err))
			result.Failed++
			continue
		}
		result.Sent++
	}
	s.logger.Info("broadcast complete",
		zap.Int64("admin_id", adminID),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))
	return result, nil
}
