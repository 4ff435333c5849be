package schedule

import (
	"time"

	"github.com/rkanthi/paisabook/pkg/models"
)

const dayKeyLayout = "2006-01-02"

// MonthGrid describes one calendar month for rendering: how many day cells
// it needs, where day 1 falls in the week, and how each day relates to a
// customer's terms. Grids carry no cross-month state, so a scrolling
// calendar can build them lazily in any order.
type MonthGrid struct {
	Year         int         `json:"year"`
	Month        time.Month  `json:"month"`
	Days         int         `json:"days"`
	FirstWeekday int         `json:"first_weekday"` // 0 = Sunday
	DayStatuses  []DayStatus `json:"day_statuses"`  // index 0 is day 1
}

// Grid classifies every day of the given month against the terms.
func Grid(year int, month time.Month, terms models.LoanTerms, referenceToday time.Time) MonthGrid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	days := first.AddDate(0, 1, -1).Day()
	today := DateOnly(referenceToday)

	due := make(map[string]bool)
	for _, d := range DueDates(terms.StartDate, terms.Frequency, terms.Periods) {
		due[d.Format(dayKeyLayout)] = true
	}
	start := DateOnly(terms.StartDate)
	end := DateOnly(terms.EndDate)

	grid := MonthGrid{
		Year:         year,
		Month:        month,
		Days:         days,
		FirstWeekday: int(first.Weekday()),
		DayStatuses:  make([]DayStatus, days),
	}
	for i := 0; i < days; i++ {
		d := first.AddDate(0, 0, i)
		grid.DayStatuses[i] = DayStatus{
			IsDue:     due[d.Format(dayKeyLayout)],
			IsInRange: !d.Before(start) && !d.After(end),
			IsPast:    d.Before(today),
			IsToday:   d.Equal(today),
		}
	}
	return grid
}

// YearMonth identifies one month of the scrollable window.
type YearMonth struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// CalendarWindow enumerates the months a scrolling calendar should offer:
// every month from January of (today - yearsBack) through December of
// (today + yearsForward), in order.
func CalendarWindow(referenceToday time.Time, yearsBack, yearsForward int) []YearMonth {
	startYear := referenceToday.Year() - yearsBack
	endYear := referenceToday.Year() + yearsForward
	months := make([]YearMonth, 0, (endYear-startYear+1)*12)
	for y := startYear; y <= endYear; y++ {
		for m := time.January; m <= time.December; m++ {
			months = append(months, YearMonth{Year: y, Month: m})
		}
	}
	return months
}
