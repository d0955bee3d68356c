package settlement

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/domain/models"
)

// 2025-03-10 is a Monday.
var testDay = time.Date(2025, 3, 10, 9, 40, 0, 0, time.UTC)

const testDate = "2025-03-10"

func userWith(id int64, name string, attending bool) *models.User {
	u := &models.User{TelegramID: id, Name: name}
	if attending {
		u.AddAttendance(testDate)
	}
	return u
}

func newTestService(users *fakeUsers, choices *fakeChoices, cancels *fakeCancels, ledger *fakeLedger, notifier *fakeNotifier, canceller Canceller) *Service {
	svc := NewService(users, choices, cancels, ledger, notifier, canceller, time.UTC, nil)
	svc.now = func() time.Time { return testDay }
	return svc
}

func TestReportPartitionsUsers(t *testing.T) {
	declined := &models.User{TelegramID: 3, Name: "Vali"}
	declined.AddDecline(testDate)
	users := newFakeUsers(
		userWith(1, "Ali", true),
		userWith(2, "Bobur", true),
		declined,
		&models.User{TelegramID: 4, Name: "Gani"},
	)
	choices := newFakeChoices(
		models.DayChoice{Date: testDate, TelegramID: 1, Food: "Osh", UserName: "Ali"},
		models.DayChoice{Date: testDate, TelegramID: 2, Food: "Osh", UserName: "Bobur"},
	)
	svc := newTestService(users, choices, newFakeCancels(), newFakeLedger(), &fakeNotifier{}, nil)

	report, err := svc.Report(context.Background(), testDate)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	if len(report.Attendees) != 2 {
		t.Fatalf("attendees = %d, want 2", len(report.Attendees))
	}
	if len(report.Declined) != 1 || report.Declined[0] != "Vali" {
		t.Fatalf("declined = %v, want [Vali]", report.Declined)
	}
	if len(report.Pending) != 1 || report.Pending[0] != "Gani" {
		t.Fatalf("pending = %v, want [Gani]", report.Pending)
	}
	if len(report.MostPopular) != 1 || report.MostPopular[0] != "Osh" {
		t.Fatalf("most popular = %v, want [Osh]", report.MostPopular)
	}
}

func TestReportPopularityTie(t *testing.T) {
	users := newFakeUsers(
		userWith(1, "Ali", true),
		userWith(2, "Bobur", true),
	)
	choices := newFakeChoices(
		models.DayChoice{Date: testDate, TelegramID: 1, Food: "Osh", UserName: "Ali"},
		models.DayChoice{Date: testDate, TelegramID: 2, Food: "Lagman", UserName: "Bobur"},
	)
	svc := newTestService(users, choices, newFakeCancels(), newFakeLedger(), &fakeNotifier{}, nil)

	report, err := svc.Report(context.Background(), testDate)
	if err != nil {
		t.Fatalf("Report() error = %v", err)
	}
	want := []string{"Lagman", "Osh"}
	if len(report.MostPopular) != 2 || report.MostPopular[0] != want[0] || report.MostPopular[1] != want[1] {
		t.Fatalf("most popular = %v, want %v", report.MostPopular, want)
	}
}

func TestReportRejectsBadDate(t *testing.T) {
	svc := newTestService(newFakeUsers(), newFakeChoices(), newFakeCancels(), newFakeLedger(), &fakeNotifier{}, nil)

	if _, err := svc.Report(context.Background(), "10.03.2025"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("Report() error = %v, want ErrValidation", err)
	}
}

func TestRunSettlementNotifies(t *testing.T) {
	users := newFakeUsers(
		userWith(1, "Ali", true),
		&models.User{TelegramID: 9, Name: "Admin", IsAdmin: true},
	)
	choices := newFakeChoices(
		models.DayChoice{Date: testDate, TelegramID: 1, Food: "Osh", UserName: "Ali"},
	)
	ledger := newFakeLedger()
	ledger.balances[1] = 50000
	notifier := &fakeNotifier{}
	svc := newTestService(users, choices, newFakeCancels(), ledger, notifier, nil)

	result, err := svc.RunSettlement(context.Background())
	if err != nil {
		t.Fatalf("RunSettlement() error = %v", err)
	}
	if result.Sent != 2 || result.Failed != 0 {
		t.Fatalf("result = %+v, want 2 sent", result)
	}

	var adminText, attendeeText string
	for _, m := range notifier.sent {
		switch m.chatID {
		case 9:
			adminText = m.text
		case 1:
			attendeeText = m.text
		}
	}
	if !strings.Contains(adminText, "Osh - 1") {
		t.Fatalf("admin report missing food count: %q", adminText)
	}
	if !strings.Contains(attendeeText, "50000") {
		t.Fatalf("attendee notice missing balance: %q", attendeeText)
	}
}

func TestRunSettlementSkipsWeekend(t *testing.T) {
	users := newFakeUsers(userWith(1, "Ali", true))
	notifier := &fakeNotifier{}
	svc := newTestService(users, newFakeChoices(), newFakeCancels(), newFakeLedger(), notifier, nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 8, 9, 40, 0, 0, time.UTC) } // Saturday

	result, err := svc.RunSettlement(context.Background())
	if err != nil {
		t.Fatalf("RunSettlement() error = %v", err)
	}
	if result.Sent != 0 || len(notifier.sent) != 0 {
		t.Fatalf("weekend settlement sent %d notices", len(notifier.sent))
	}
}

func TestRunSettlementSkipsCancelledDate(t *testing.T) {
	users := newFakeUsers(userWith(1, "Ali", true))
	cancels := newFakeCancels()
	_ = cancels.UpsertCancelledLunch(context.Background(), models.CancelledLunch{Date: testDate, Reason: "holiday"})
	notifier := &fakeNotifier{}
	svc := newTestService(users, newFakeChoices(), cancels, newFakeLedger(), notifier, nil)

	if _, err := svc.RunSettlement(context.Background()); err != nil {
		t.Fatalf("RunSettlement() error = %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("cancelled date settlement sent %d notices", len(notifier.sent))
	}
}

func TestCancelDateRefundsAttendees(t *testing.T) {
	users := newFakeUsers(
		userWith(1, "Ali", true),
		userWith(2, "Bobur", true),
		&models.User{TelegramID: 3, Name: "Vali"},
	)
	cancels := newFakeCancels()
	notifier := &fakeNotifier{}
	canceller := &fakeCanceller{users: users, refund: 25000}
	svc := newTestService(users, newFakeChoices(), cancels, newFakeLedger(), notifier, canceller)

	result, err := svc.CancelDate(context.Background(), 99, testDate, "water outage")
	if err != nil {
		t.Fatalf("CancelDate() error = %v", err)
	}
	if result.Refunded != 2 || result.Failed != 0 {
		t.Fatalf("result = %+v, want 2 refunds", result)
	}
	if result.Notified != 3 {
		t.Fatalf("notified = %d, want all 3 users", result.Notified)
	}
	if _, err := cancels.GetCancelledLunch(context.Background(), testDate); err != nil {
		t.Fatal("cancellation record missing")
	}

	var refundNotices int
	for _, m := range notifier.sent {
		if strings.Contains(m.text, "returned to your balance") {
			refundNotices++
		}
	}
	if refundNotices != 2 {
		t.Fatalf("refund notices = %d, want 2", refundNotices)
	}

	// Second run finds nobody attending and refunds nothing.
	again, err := svc.CancelDate(context.Background(), 99, testDate, "water outage")
	if err != nil {
		t.Fatalf("repeat CancelDate() error = %v", err)
	}
	if again.Refunded != 0 || again.Failed != 0 {
		t.Fatalf("repeat result = %+v, want no refunds", again)
	}
}

func TestCancelDateRejectsPast(t *testing.T) {
	svc := newTestService(newFakeUsers(), newFakeChoices(), newFakeCancels(), newFakeLedger(), &fakeNotifier{}, &fakeCanceller{})

	if _, err := svc.CancelDate(context.Background(), 99, "2025-03-07", "late"); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("CancelDate(past) error = %v, want ErrValidation", err)
	}
}

func TestCancelDateCountsFailures(t *testing.T) {
	users := newFakeUsers(userWith(1, "Ali", true))
	canceller := &fakeCanceller{users: users, err: errors.New("sheet timeout")}
	svc := newTestService(users, newFakeChoices(), newFakeCancels(), newFakeLedger(), &fakeNotifier{}, canceller)

	result, err := svc.CancelDate(context.Background(), 99, "today", "plumbing")
	if err != nil {
		t.Fatalf("CancelDate() error = %v", err)
	}
	if result.Refunded != 0 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 1 failure", result)
	}
}

func TestOpenSurveyPromptsOnlyUndecided(t *testing.T) {
	declined := &models.User{TelegramID: 3, Name: "Vali"}
	declined.AddDecline(testDate)
	users := newFakeUsers(
		userWith(1, "Ali", true),
		&models.User{TelegramID: 2, Name: "Bobur"},
		declined,
	)
	notifier := &fakeNotifier{}
	svc := newTestService(users, newFakeChoices(), newFakeCancels(), newFakeLedger(), notifier, nil)

	result, err := svc.OpenSurvey(context.Background())
	if err != nil {
		t.Fatalf("OpenSurvey() error = %v", err)
	}
	if result.Sent != 1 || len(notifier.sent) != 1 || notifier.sent[0].chatID != 2 {
		t.Fatalf("prompts = %+v, want only the undecided user 2", notifier.sent)
	}
}

func TestCheckDebtsNotifiesNegativeBalances(t *testing.T) {
	users := newFakeUsers(
		&models.User{TelegramID: 1, Name: "Ali", Balance: -50000},
		&models.User{TelegramID: 2, Name: "Bobur", Balance: 10000},
		&models.User{TelegramID: 3, Name: "Vali", Balance: 0},
	)
	notifier := &fakeNotifier{}
	svc := newTestService(users, newFakeChoices(), newFakeCancels(), newFakeLedger(), notifier, nil)

	result, err := svc.CheckDebts(context.Background())
	if err != nil {
		t.Fatalf("CheckDebts() error = %v", err)
	}
	if result.Sent != 1 || notifier.sent[0].chatID != 1 {
		t.Fatalf("debt notices = %+v, want only user 1", notifier.sent)
	}
	if !strings.Contains(notifier.sent[0].text, "50000") {
		t.Fatalf("debt notice missing amount: %q", notifier.sent[0].text)
	}
}

func TestCleanupOldChoices(t *testing.T) {
	choices := newFakeChoices(
		models.DayChoice{Date: "2025-03-07", TelegramID: 1, Food: "Osh"},
		models.DayChoice{Date: testDate, TelegramID: 1, Food: "Osh"},
		models.DayChoice{Date: "2025-03-11", TelegramID: 2, Food: "Lagman"},
	)
	svc := newTestService(newFakeUsers(), choices, newFakeCancels(), newFakeLedger(), &fakeNotifier{}, nil)

	deleted, err := svc.CleanupOldChoices(context.Background())
	if err != nil {
		t.Fatalf("CleanupOldChoices() error = %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want only the past record", deleted)
	}
	if _, err := choices.GetChoice(context.Background(), testDate, 1); err != nil {
		t.Fatal("today's record removed")
	}
	if _, err := choices.GetChoice(context.Background(), "2025-03-11", 2); err != nil {
		t.Fatal("future record removed")
	}
}
