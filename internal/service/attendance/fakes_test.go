package attendance

import (
	"context"
	"fmt"
	"sync"

	"github.com/polatjonbaxtiyorov/mytushlikbot/internal/domain/models"
)

type fakeUsers struct {
	mu    sync.Mutex
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
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, models.ErrNotFound)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) ListUsers(context.Context) ([]models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, *u)
	}
	return out, nil
}

func (f *fakeUsers) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *u
	f.users[u.TelegramID] = &copied
	return nil
}

func (f *fakeUsers) SaveUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.TelegramID]; !ok {
		return fmt.Errorf("user %d: %w", u.TelegramID, models.ErrNotFound)
	}
	copied := *u
	f.users[u.TelegramID] = &copied
	return nil
}

func (f *fakeUsers) DeleteUser(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

func (f *fakeUsers) SetAdmin(_ context.Context, id int64, isAdmin bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.IsAdmin = isAdmin
	}
	return nil
}

func (f *fakeUsers) SetBalance(_ context.Context, id int64, balance float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.Balance = balance
	}
	return nil
}

func (f *fakeUsers) SetDailyPrice(_ context.Context, id int64, price float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.DailyPrice = price
	}
	return nil
}

func (f *fakeUsers) stored(id int64) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

type choiceKey struct {
	date string
	id   int64
}

type fakeChoices struct {
	mu      sync.Mutex
	choices map[choiceKey]models.DayChoice
}

func newFakeChoices() *fakeChoices {
	return &fakeChoices{choices: make(map[choiceKey]models.DayChoice)}
}

func (f *fakeChoices) UpsertChoice(_ context.Context, c models.DayChoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.choices[choiceKey{c.Date, c.TelegramID}] = c
	return nil
}

func (f *fakeChoices) GetChoice(_ context.Context, date string, id int64) (*models.DayChoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.choices[choiceKey{date, id}]
	if !ok {
		return nil, fmt.Errorf("choice %s/%d: %w", date, id, models.ErrNotFound)
	}
	return &c, nil
}

func (f *fakeChoices) ListChoices(_ context.Context, date string) ([]models.DayChoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DayChoice
	for k, c := range f.choices {
		if k.date == date {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeChoices) DeleteChoice(_ context.Context, date string, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.choices, choiceKey{date, id})
	return nil
}

func (f *fakeChoices) DeleteChoicesBefore(_ context.Context, date string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
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
	f.mu.Lock()
	defer f.mu.Unlock()
	for k := range f.choices {
		if k.id == id {
			delete(f.choices, k)
		}
	}
	return nil
}

type fakeMenus struct {
	menus map[string]*models.Menu
	card  models.CardDetails
}

func newFakeMenus(items ...string) *fakeMenus {
	f := &fakeMenus{menus: make(map[string]*models.Menu)}
	for _, name := range models.MenuNames {
		f.menus[name] = &models.Menu{Name: name, Items: items}
	}
	return f
}

func (f *fakeMenus) GetMenu(_ context.Context, name string) (*models.Menu, error) {
	m, ok := f.menus[name]
	if !ok {
		return nil, fmt.Errorf("menu %s: %w", name, models.ErrNotFound)
	}
	return m, nil
}

func (f *fakeMenus) AddMenuItem(_ context.Context, name, item string) error {
	f.menus[name].Items = append(f.menus[name].Items, item)
	return nil
}

func (f *fakeMenus) RemoveMenuItem(_ context.Context, name, item string) error {
	m := f.menus[name]
	out := m.Items[:0]
	for _, i := range m.Items {
		if i != item {
			out = append(out, i)
		}
	}
	m.Items = out
	return nil
}

func (f *fakeMenus) GetCardDetails(context.Context) (*models.CardDetails, error) {
	c := f.card
	return &c, nil
}

func (f *fakeMenus) SetCardNumber(_ context.Context, number string) error {
	f.card.CardNumber = number
	return nil
}

func (f *fakeMenus) SetCardOwner(_ context.Context, owner string) error {
	f.card.CardOwner = owner
	return nil
}

// fakeLedger records debt mutations and can be told to fail them.
type fakeLedger struct {
	mu        sync.Mutex
	prices    map[int64]float64
	balances  map[int64]float64
	debts     map[int64]float64
	kassa     float64
	failDebt  bool
	failClear bool
	failRead  bool
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		prices:   make(map[int64]float64),
		balances: make(map[int64]float64),
		debts:    make(map[int64]float64),
	}
}

func (f *fakeLedger) ledgerDown(op string) error {
	return fmt.Errorf("%s: %w", op, models.ErrLedgerUnavailable)
}

func (f *fakeLedger) GetPrice(_ context.Context, id int64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRead {
		return 0, f.ledgerDown("get price")
	}
	return f.prices[id], nil
}

func (f *fakeLedger) GetBalance(_ context.Context, id int64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRead {
		return 0, f.ledgerDown("get balance")
	}
	return f.balances[id], nil
}

func (f *fakeLedger) RecordDebtDelta(_ context.Context, id int64, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDebt {
		return f.ledgerDown("record debt")
	}
	f.debts[id] = amount
	return nil
}

func (f *fakeLedger) ClearDebt(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failClear {
		return f.ledgerDown("clear debt")
	}
	f.debts[id] = 0
	return nil
}

func (f *fakeLedger) ListBalances(context.Context) (map[int64]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRead {
		return nil, f.ledgerDown("list balances")
	}
	out := make(map[int64]float64, len(f.balances))
	for k, v := range f.balances {
		out[k] = v
	}
	return out, nil
}

func (f *fakeLedger) ListPrices(context.Context) (map[int64]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRead {
		return nil, f.ledgerDown("list prices")
	}
	out := make(map[int64]float64, len(f.prices))
	for k, v := range f.prices {
		out[k] = v
	}
	return out, nil
}

func (f *fakeLedger) ReadKassa(context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRead {
		return 0, f.ledgerDown("read kassa")
	}
	return f.kassa, nil
}

func (f *fakeLedger) debt(id int64) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.debts[id]
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	fail bool
}

func (f *fakeNotifier) Notify(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("notify %d: delivery failed", chatID)
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}
