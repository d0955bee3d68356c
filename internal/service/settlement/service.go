package settlement

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/domain/models"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/repository/mongodb"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/repository/sheets"
	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/service/notify"
)

// Canceller removes one user's attendance for a date with the full
// refund sequence. Implemented by the attendance service.
type Canceller interface {
	CancelForDate(ctx context.Context, telegramID int64, date string) (float64, error)
}

// Service closes out each day's attendance: it aggregates decisions at
// the cutoff, delivers the reports, handles admin-wide date voids, and
// runs the periodic debt and cleanup passes. All batch iterations are
// sequential with per-user failures isolated.
type Service struct {
	users     mongodb.UserStore
	choices   mongodb.ChoiceStore
	cancels   mongodb.CancelStore
	ledger    sheets.Ledger
	notifier  notify.Notifier
	canceller Canceller
	logger    *zap.Logger
	location  *time.Location
	now       func() time.Time
}

// NewService constructs the settlement engine.
func NewService(users mongodb.UserStore, choices mongodb.ChoiceStore, cancels mongodb.CancelStore, ledger sheets.Ledger, notifier notify.Notifier, canceller Canceller, loc *time.Location, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		users:     users,
		choices:   choices,
		cancels:   cancels,
		ledger:    ledger,
		notifier:  notifier,
		canceller: canceller,
		logger:    logger,
		location:  loc,
		now:       time.Now,
	}
}

// Report builds the aggregate settlement report for a date from fresh
// reads. Users who accepted but never recorded a choice appear in the
// attendee roster with an empty food and are excluded from the counts.
func (s *Service) Report(ctx context.Context, date string) (*models.SettlementReport, error) {
	if _, err := time.Parse(models.DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: bad date %q, want YYYY-MM-DD", models.ErrValidation, date)
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	choices, err := s.choices.ListChoices(ctx, date)
	if err != nil {
		return nil, err
	}

	choiceByUser := make(map[int64]string, len(choices))
	for _, c := range choices {
		choiceByUser[c.TelegramID] = c.Food
	}

	report := &models.SettlementReport{Date: date}
	for _, u := range users {
		switch {
		case u.AttendsOn(date):
			report.Attendees = append(report.Attendees, models.AttendeeEntry{
				TelegramID: u.TelegramID,
				Name:       u.Name,
				Food:       choiceByUser[u.TelegramID],
			})
		case u.DeclinedOn(date):
			report.Declined = append(report.Declined, u.Name)
		default:
			report.Pending = append(report.Pending, u.Name)
		}
	}

	sort.Slice(report.Attendees, func(i, j int) bool {
		return report.Attendees[i].Name < report.Attendees[j].Name
	})
	sort.Strings(report.Declined)
	sort.Strings(report.Pending)

	byFood := make(map[string]*models.FoodCount)
	for _, c := range choices {
		fc, exists := byFood[c.Food]
		if !exists {
			fc = &models.FoodCount{Food: c.Food}
			byFood[c.Food] = fc
		}
		fc.Count++
		fc.Users = append(fc.Users, c.UserName)
	}
	for _, fc := range byFood {
		report.FoodCounts = append(report.FoodCounts, *fc)
	}
	sort.Slice(report.FoodCounts, func(i, j int) bool {
		if report.FoodCounts[i].Count != report.FoodCounts[j].Count {
			return report.FoodCounts[i].Count > report.FoodCounts[j].Count
		}
		return report.FoodCounts[i].Food < report.FoodCounts[j].Food
	})

	if len(report.FoodCounts) > 0 {
		max := report.FoodCounts[0].Count
		for _, fc := range report.FoodCounts {
			if fc.Count == max {
				report.MostPopular = append(report.MostPopular, fc.Food)
			}
		}
		sort.Strings(report.MostPopular)
	}

	return report, nil
}

// RunSettlement is the 09:40 cutoff pass: it delivers the aggregate
// report to every admin and a personalized notice with the live ledger
// balance to every attendee. No-op on weekends and voided dates.
func (s *Service) RunSettlement(ctx context.Context) (models.BatchResult, error) {
	now := s.now().In(s.location)
	today := now.Format(models.DateLayout)

	var result models.BatchResult

	if isWeekend(now) {
		return result, nil
	}
	if s.dateCancelled(ctx, today) {
		s.logger.Info("settlement skipped, date cancelled", zap.String("date", today))
		return result, nil
	}

	report, err := s.Report(ctx, today)
	if err != nil {
		return result, err
	}

	adminText := formatAdminReport(report)
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return result, err
	}
	for _, u := range users {
		if !u.IsAdmin {
			continue
		}
		if err := s.notifier.Notify(ctx, u.TelegramID, adminText); err != nil {
			s.logger.Error("admin report delivery failed",
				zap.Int64("admin_id", u.TelegramID), zap.Error(err))
			result.Failed++
			continue
		}
		result.Sent++
	}

	for _, attendee := range report.Attendees {
		balance, err := s.ledger.GetBalance(ctx, attendee.TelegramID)
		if err != nil {
			s.logger.Error("live balance lookup failed",
				zap.Int64("telegram_id", attendee.TelegramID), zap.Error(err))
			result.Failed++
			continue
		}
		if err := s.notifier.Notify(ctx, attendee.TelegramID, formatAttendeeNotice(report.MostPopular, balance)); err != nil {
			s.logger.Error("attendee notice delivery failed",
				zap.Int64("telegram_id", attendee.TelegramID), zap.Error(err))
			result.Failed++
			continue
		}
		result.Sent++
	}

	s.logger.Info("settlement pass complete",
		zap.String("date", today),
		zap.Int("attendees", len(report.Attendees)),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed))

	return result, nil
}

// CancelDate voids lunch for an entire date: it upserts the
// cancellation record, refunds every accepted user best-effort, and
// notifies everyone. Strictly past dates are rejected. Re-running for
// the same date re-upserts the record and finds nobody left to refund.
func (s *Service) CancelDate(ctx context.Context, adminID int64, date, reason string) (*models.CancelDateResult, error) {
	now := s.now().In(s.location)
	today := now.Format(models.DateLayout)

	if strings.EqualFold(date, "today") {
		date = today
	}
	parsed, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: bad date %q, want YYYY-MM-DD", models.ErrValidation, date)
	}
	if parsed.Format(models.DateLayout) < today {
		return nil, fmt.Errorf("%w: %s is already past", models.ErrValidation, date)
	}
	if reason == "" {
		reason = "no reason given"
	}

	if err := s.cancels.UpsertCancelledLunch(ctx, models.CancelledLunch{
		Date:        date,
		Reason:      reason,
		CancelledBy: adminID,
		CancelledAt: s.now().UTC(),
	}); err != nil {
		return nil, err
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	result := &models.CancelDateResult{Date: date}
	for _, u := range users {
		var refund float64
		if u.AttendsOn(date) {
			amount, err := s.canceller.CancelForDate(ctx, u.TelegramID, date)
			switch {
			case err == nil:
				refund = amount
				result.Refunded++
			case errors.Is(err, models.ErrNotAttending):
				// lost the race with a user-initiated cancel; nothing to refund
			default:
				s.logger.Error("refund failed during date cancellation",
					zap.Int64("telegram_id", u.TelegramID),
					zap.String("date", date),
					zap.Error(err))
				result.Failed++
			}
		}

		text := fmt.Sprintf("Lunch on %s has been cancelled.\nReason: %s", date, reason)
		if refund > 0 {
			text += fmt.Sprintf("\n%.0f so'm has been returned to your balance.", refund)
		}
		if err := s.notifier.Notify(ctx, u.TelegramID, text); err != nil {
			s.logger.Warn("date cancellation notice failed",
				zap.Int64("telegram_id", u.TelegramID), zap.Error(err))
			continue
		}
		result.Notified++
	}

	s.logger.Info("date cancelled",
		zap.String("date", date),
		zap.Int64("admin_id", adminID),
		zap.Int("refunded", result.Refunded),
		zap.Int("failed", result.Failed))

	return result, nil
}

// OpenSurvey broadcasts the morning attendance prompt to every user
// still undecided today. Skips weekends and voided dates, so a
// re-trigger on the same day only reaches users who have not answered.
func (s *Service) OpenSurvey(ctx context.Context) (models.BatchResult, error) {
	return s.promptUndecided(ctx, "Will you join lunch today? Reply yes or no before 09:40.")
}

// SendReminder nudges users who have not answered the morning survey.
func (s *Service) SendReminder(ctx context.Context) (models.BatchResult, error) {
	return s.promptUndecided(ctx, "Reminder: the lunch survey closes at 09:40. Please answer.")
}

func (s *Service) promptUndecided(ctx context.Context, text string) (models.BatchResult, error) {
	now := s.now().In(s.location)
	today := now.Format(models.DateLayout)

	var result models.BatchResult
	if isWeekend(now) {
		return result, nil
	}
	if s.dateCancelled(ctx, today) {
		s.logger.Info("survey prompt skipped, date cancelled", zap.String("date", today))
		return result, nil
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return result, err
	}
	for _, u := range users {
		if u.AttendsOn(today) || u.DeclinedOn(today) {
			continue
		}
		if err := s.notifier.Notify(ctx, u.TelegramID, text); err != nil {
			s.logger.Warn("survey prompt failed",
				zap.Int64("telegram_id", u.TelegramID), zap.Error(err))
			result.Failed++
			continue
		}
		result.Sent++
	}
	return result, nil
}

// CheckDebts notifies every user with a negative cached balance.
func (s *Service) CheckDebts(ctx context.Context) (models.BatchResult, error) {
	var result models.BatchResult

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return result, err
	}
	for _, u := range users {
		if u.Balance >= 0 {
			continue
		}
		text := fmt.Sprintf("Your balance is %.0f so'm in debt. Please top it up.", -u.Balance)
		if err := s.notifier.Notify(ctx, u.TelegramID, text); err != nil {
			s.logger.Warn("debt notice failed",
				zap.Int64("telegram_id", u.TelegramID), zap.Error(err))
			result.Failed++
			continue
		}
		result.Sent++
	}
	return result, nil
}

// CleanupOldChoices deletes every day-choice record dated strictly
// before today. Today's and future records are untouched.
func (s *Service) CleanupOldChoices(ctx context.Context) (int64, error) {
	today := s.now().In(s.location).Format(models.DateLayout)
	deleted, err := s.choices.DeleteChoicesBefore(ctx, today)
	if err != nil {
		return 0, err
	}
	s.logger.Info("old choice records purged",
		zap.String("before", today), zap.Int64("deleted", deleted))
	return deleted, nil
}

func (s *Service) dateCancelled(ctx context.Context, date string) bool {
	rec, err := s.cancels.GetCancelledLunch(ctx, date)
	return err == nil && rec != nil
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

func formatAdminReport(r *models.SettlementReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lunch summary for %s\n", r.Date)
	fmt.Fprintf(&b, "Total attending: %d\n\nRoster:\n", len(r.Attendees))
	if len(r.Attendees) == 0 {
		b.WriteString("Nobody\n")
	}
	for i, a := range r.Attendees {
		food := a.Food
		if food == "" {
			food = "not chosen"
		}
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, a.Name, food)
	}

	b.WriteString("\nFood counts:\n")
	if len(r.FoodCounts) == 0 {
		b.WriteString("No choices recorded\n")
	}
	for i, fc := range r.FoodCounts {
		fmt.Fprintf(&b, "%d. %s - %d\n", i+1, fc.Food, fc.Count)
	}

	if len(r.Declined) > 0 {
		b.WriteString("\nDeclined:\n")
		for i, name := range r.Declined {
			fmt.Fprintf(&b, "%d. %s\n", i+1, name)
		}
	}
	if len(r.Pending) > 0 {
		b.WriteString("\nNo answer:\n")
		for i, name := range r.Pending {
			fmt.Fprintf(&b, "%d. %s\n", i+1, name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAttendeeNotice(mostPopular []string, balance float64) string {
	var b strings.Builder
	b.WriteString("You are on today's lunch list.\n")
	switch len(mostPopular) {
	case 0:
		b.WriteString("No leading dish today.\n")
	case 1:
		fmt.Fprintf(&b, "Today's dish: %s\n", mostPopular[0])
	default:
		fmt.Fprintf(&b, "Today's dishes: %s\n", strings.Join(mostPopular, " and "))
	}
	fmt.Fprintf(&b, "Your balance: %.0f so'm\n", balance)
	b.WriteString("You can leave the list until 10:00 with the cancel command.")
	return b.String()
}
