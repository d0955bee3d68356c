package models

import "time"

// Transaction is one append-only entry in a user's money log. Every
// attempted attendance mutation leaves a trace here, including the
// compensating entry when a remote ledger write fails.
type Transaction struct {
	Type   string    `bson:"type" json:"type"`
	Amount float64   `bson:"amount" json:"amount"`
	Desc   string    `bson:"desc" json:"desc"`
	Date   time.Time `bson:"date" json:"date"`
}

// Transaction types recorded by the attendance workflow.
const (
	TxnAttendance = "attendance"
	TxnCancel     = "cancel"
	TxnRollback   = "rollback"
	TxnBalance    = "balance"
	TxnNameChange = "name_change"
	TxnAdmin      = "admin"
)

// User is one registered lunch participant. Attendance and DeclinedDays
// hold ISO calendar dates (2006-01-02); for any date a user appears in
// at most one of the two.
type User struct {
	TelegramID   int64             `bson:"telegram_id" json:"telegram_id"`
	Name         string            `bson:"name" json:"name"`
	Phone        string            `bson:"phone" json:"phone"`
	Balance      float64           `bson:"balance" json:"balance"`
	DailyPrice   float64           `bson:"daily_price" json:"daily_price"`
	Attendance   []string          `bson:"attendance" json:"attendance"`
	DeclinedDays []string          `bson:"declined_days" json:"declined_days"`
	FoodChoices  map[string]string `bson:"food_choices" json:"food_choices"`
	Transactions []Transaction     `bson:"transactions" json:"transactions"`
	IsAdmin      bool              `bson:"is_admin" json:"is_admin"`
	CreatedAt    time.Time         `bson:"created_at" json:"created_at"`
}

// AttendsOn reports whether the user is confirmed attending on the date.
func (u *User) AttendsOn(date string) bool {
	for _, d := range u.Attendance {
		if d == date {
			return true
		}
	}
	return false
}

// DeclinedOn reports whether the user declined lunch on the date.
func (u *User) DeclinedOn(date string) bool {
	for _, d := range u.DeclinedDays {
		if d == date {
			return true
		}
	}
	return false
}

// AddAttendance appends the date to the attendance set and drops any
// decline for the same date, keeping the two mutually exclusive.
func (u *User) AddAttendance(date string) {
	if !u.AttendsOn(date) {
		u.Attendance = append(u.Attendance, date)
	}
	u.RemoveDecline(date)
}

// RemoveAttendance drops the date from the attendance set.
func (u *User) RemoveAttendance(date string) {
	out := u.Attendance[:0]
	for _, d := range u.Attendance {
		if d != date {
			out = append(out, d)
		}
	}
	u.Attendance = out
}

// AddDecline records a declined day and drops any attendance entry for
// the same date.
func (u *User) AddDecline(date string) {
	if !u.DeclinedOn(date) {
		u.DeclinedDays = append(u.DeclinedDays, date)
	}
	u.RemoveAttendance(date)
}

// RemoveDecline drops the date from the declined set.
func (u *User) RemoveDecline(date string) {
	out := u.DeclinedDays[:0]
	for _, d := range u.DeclinedDays {
		if d != date {
			out = append(out, d)
		}
	}
	u.DeclinedDays = out
}

// RecordTxn appends a transaction entry with the provided timestamp.
func (u *User) RecordTxn(txnType string, amount float64, desc string, at time.Time) {
	u.Transactions = append(u.Transactions, Transaction{
		Type:   txnType,
		Amount: amount,
		Desc:   desc,
		Date:   at,
	})
}
