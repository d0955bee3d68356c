package models

// AttendeeEntry pairs an attendee with their recorded food choice.
// Food is empty when the user accepted but never picked an item.
type AttendeeEntry struct {
	TelegramID int64  `json:"telegram_id"`
	Name       string `json:"name"`
	Food       string `json:"food"`
}

// FoodCount aggregates one food item across the day's choices.
type FoodCount struct {
	Food  string   `json:"food"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// SettlementReport is the daily aggregate built at the 09:40 cutoff.
// MostPopular holds every choice tied at the maximum count, sorted
// lexicographically when more than one.
type SettlementReport struct {
	Date        string          `json:"date"`
	Attendees   []AttendeeEntry `json:"attendees"`
	Declined    []string        `json:"declined"`
	Pending     []string        `json:"pending"`
	FoodCounts  []FoodCount     `json:"food_counts"`
	MostPopular []string        `json:"most_popular"`
}

// CancelDateResult reports the outcome of an admin-wide cancellation.
type CancelDateResult struct {
	Date     string `json:"date"`
	Refunded int    `json:"refunded"`
	Failed   int    `json:"failed"`
	Notified int    `json:"notified"`
}
