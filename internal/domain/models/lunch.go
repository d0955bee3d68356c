package models

import "time"

// DateLayout is the calendar-date key format used across collections.
const DateLayout = "2006-01-02"

// DayChoice is one user's food selection for one calendar date. The
// (Date, TelegramID) pair is unique; UserName is denormalized for
// aggregation display.
type DayChoice struct {
	Date       string `bson:"date" json:"date"`
	TelegramID int64  `bson:"telegram_id" json:"telegram_id"`
	Food       string `bson:"food_choice" json:"food_choice"`
	UserName   string `bson:"user_name" json:"user_name"`
}

// CancelledLunch marks an entire date as void. While present, the
// settlement engine skips that date.
type CancelledLunch struct {
	Date        string    `bson:"date" json:"date"`
	Reason      string    `bson:"reason" json:"reason"`
	CancelledBy int64     `bson:"cancelled_by" json:"cancelled_by"`
	CancelledAt time.Time `bson:"cancelled_at" json:"cancelled_at"`
}

// Menu is one named slot of the two-week rotation. Items is a set.
type Menu struct {
	Name        string   `bson:"name" json:"name"`
	Items       []string `bson:"items" json:"items"`
	Description string   `bson:"description" json:"description"`
}

// The four rotation slots: even ISO weeks use menu1/menu2, odd weeks
// menu3/menu4; within a pair, odd ISO weekdays take the first slot.
const (
	MenuEvenWeekOddDay  = "menu1"
	MenuEvenWeekEvenDay = "menu2"
	MenuOddWeekOddDay   = "menu3"
	MenuOddWeekEvenDay  = "menu4"
)

// MenuNames lists all rotation slots in order.
var MenuNames = []string{
	MenuEvenWeekOddDay,
	MenuEvenWeekEvenDay,
	MenuOddWeekOddDay,
	MenuOddWeekEvenDay,
}

// MenuNameFor resolves which rotation slot applies on the given day.
func MenuNameFor(t time.Time) string {
	_, week := t.ISOWeek()

	day := int(t.Weekday())
	if day == 0 {
		day = 7 // ISO weekday: Sunday is 7
	}

	if week%2 == 0 {
		if day%2 == 1 {
			return MenuEvenWeekOddDay
		}
		return MenuEvenWeekEvenDay
	}
	if day%2 == 1 {
		return MenuOddWeekOddDay
	}
	return MenuOddWeekEvenDay
}

// CardDetails holds the payment requisites shown to users.
type CardDetails struct {
	CardNumber string `bson:"card_number" json:"card_number"`
	CardOwner  string `bson:"card_owner" json:"card_owner"`
}
