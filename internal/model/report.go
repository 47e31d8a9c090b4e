package model

type BookingStatus string

const (
	BookingFullyBooked   BookingStatus = "fully_booked"
	BookingGettingFilled BookingStatus = "getting_filled"
	BookingNoAppointment BookingStatus = "no_appointment"
)

type DayStatus struct {
	Date   string        `json:"date"`
	Count  int           `json:"count"`
	Status BookingStatus `json:"status"`
}

// DayCount is one row of the per-day completed appointment query.
type DayCount struct {
	Day   string `db:"day"`
	Count int    `db:"count"`
}
