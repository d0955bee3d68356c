package settlement

import (
	"context"
	"fmt"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/domain/models"
)

type fakeUsers struct {
	users map[int64]*models.User
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: make(map[int64]*models.User)}
	for _, u := range users {
		f.users[u.TelegramID] = u
	}
	return f
}

func (f *fakeUsers) GetUser(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) ListUsers(context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) CreateUser(_ context.Context, u *models.User) error {
	copied := *u
	f.users[u.TelegramID] = &copied
	return nil
}

func (f *fakeUsers) SaveUser(_ context.Context, u *models.User) error {
	copied := *u
	f.users[u.TelegramID] = &copied
	return nil
}

func (f *fakeUsers) DeleteUser(_ context.Context, id int64) error {
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) SetAdmin(_ context.Context, id int64, isAdmin bool) error {
	f.users[id].IsAdmin = isAdmin
	return nil
}

func (f *fakeUsers) SetBalance(_ context.Context, id int64, balance float64) error {
	f.users[id].Balance = balance
	return nil
}

func (f *fakeUsers) SetDailyPrice(_ context.Context, id int64, price float64) error {
	f.users[id].DailyPrice = price
	return nil
}

type choiceKey struct {
	date string
	id   int64
}

type fakeChoices struct {
	choices map[choiceKey]models.DayChoice
}

func newFakeChoices(choices ...models.DayChoice) *fakeChoices {
	f := &fakeChoices{choices: make(map[choiceKey]models.DayChoice)}
	for _, c := range choices {
		f.choices[choiceKey{c.Date, c.TelegramID}] = c
	}
	return f
}

func (f *fakeChoices) UpsertChoice(_ context.Context, c models.DayChoice) error {
	f.choices[choiceKey{c.Date, c.TelegramID}] = c
	return nil
}

func (f *fakeChoices) GetChoice(_ context.Context, date string, id int64) (*models.DayChoice, error) {
	c, ok := f.choices[choiceKey{date, id}]
	if !ok {
		return nil, fmt.Errorf("choice %s/%d: %w", date, id, models.ErrNotFound)
	}
	return &c, nil
}

func (f *fakeChoices) ListChoices(_ context.Context, date string) ([]models.DayChoice, error) {
	var out []models.DayChoice
	for k, c := range f.choices {
		if k.date == date {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChoices) DeleteChoice(_ context.Context, date string, id int64) error {
	delete(f.choices, choiceKey{date, id})
	return nil
}

func (f *fakeChoices) DeleteChoicesBefore(_ context.Context, date string) (int64, error) {
	var deleted int64
	for k := range f.choices {
		if k.date < date {
			delete(f.choices, k)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeChoices) DeleteChoicesForUser(_ context.Context, id int64) error {
	for k := range f.choices {
		if k.id == id {
			delete(f.choices, k)
		}
	}
	return nil
}

type fakeCancels struct {
	records map[string]models.CancelledLunch
}

func newFakeCancels() *fakeCancels {
	return &fakeCancels{records: make(map[string]models.CancelledLunch)}
}

func (f *fakeCancels) UpsertCancelledLunch(_ context.Context, rec models.CancelledLunch) error {
	f.records[rec.Date] = rec
	return nil
}

func (f *fakeCancels) GetCancelledLunch(_ context.Context, date string) (*models.CancelledLunch, error) {
	rec, ok := f.records[date]
	if !ok {
		return nil, fmt.Errorf("cancelled lunch %s: %w", date, models.ErrNotFound)
	}
	return &rec, nil
}

type fakeLedger struct {
	balances map[int64]float64
	prices   map[int64]float64
	failRead bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{balances: make(map[int64]float64), prices: make(map[int64]float64)}
}

func (f *fakeLedger) down(op string) error {
	return fmt.Errorf("%s: %w", op, models.ErrLedgerUnavailable)
}

func (f *fakeLedger) GetPrice(_ context.Context, id int64) (float64, error) {
	if f.failRead {
		return 0, f.down("get price")
	}
	return f.prices[id], nil
}

func (f *fakeLedger) GetBalance(_ context.Context, id int64) (float64, error) {
	if f.failRead {
		return 0, f.down("get balance")
	}
	return f.balances[id], nil
}

func (f *fakeLedger) RecordDebtDelta(context.Context, int64, float64) error { return nil }
func (f *fakeLedger) ClearDebt(context.Context, int64) error               { return nil }

func (f *fakeLedger) ListBalances(context.Context) (map[int64]float64, error) {
	if f.failRead {
		return nil, f.down("list balances")
	}
	return f.balances, nil
}

func (f *fakeLedger) ListPrices(context.Context) (map[int64]float64, error) {
	if f.failRead {
		return nil, f.down("list prices")
	}
	return f.prices, nil
}

func (f *fakeLedger) ReadKassa(context.Context) (float64, error) {
	if f.failRead {
		return 0, f.down("read kassa")
	}
	return 0, nil
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	sent []sentMessage
	fail bool
}

func (f *fakeNotifier) Notify(_ context.Context, chatID int64, text string) error {
	if f.fail {
		return fmt.Errorf("notify %d: delivery failed", chatID)
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

// fakeCanceller mimics the attendance service's refund sequence by
// mutating the shared user map directly.
type fakeCanceller struct {
	users  *fakeUsers
	refund float64
	calls  int
	err    error
}

func (f *fakeCanceller) CancelForDate(_ context.Context, id int64, date string) (float64, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	u, ok := f.users.users[id]
	if !ok || !u.AttendsOn(date) {
		return 0, models.ErrNotAttending
	}
	u.RemoveAttendance(date)
	return f.refund, nil
}
