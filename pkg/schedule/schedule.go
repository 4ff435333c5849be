// Package schedule derives repayment due dates from a start date, a
// frequency and a period count. All functions are pure and operate on
// date-only values: inputs are normalized to midnight before any arithmetic
// so daylight-saving shifts cannot change day counts.
package schedule

import (
	"time"

	"github.com/rkanthi/paisabook/pkg/models"
)

// DateOnly reduces t to its calendar date, as UTC midnight. The calendar
// date is read in t's own location, so 2024-03-08 10:00 IST and
// 2024-03-08 00:00 UTC normalize to the same instant and compare equal at
// day granularity.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidateFrequency rejects tokens outside the four supported frequencies.
func ValidateFrequency(f models.Frequency) error {
	switch f {
	case models.FrequencyDaily, models.FrequencyWeekly, models.FrequencyMonthly, models.FrequencyYearly:
		return nil
	}
	return &models.ValidationError{Field: "frequency", Value: string(f), Reason: "must be one of daily, weekly, monthly, yearly"}
}

// PeriodLengthDays returns the fixed day-count used to estimate elapsed
// periods: 1/7/30/365. Monthly and yearly are approximations kept for
// parity with the collection app's behavior.
func PeriodLengthDays(f models.Frequency) int {
	switch f {
	case models.FrequencyDaily:
		return 1
	case models.FrequencyWeekly:
		return 7
	case models.FrequencyMonthly:
		return 30
	case models.FrequencyYearly:
		return 365
	}
	return 1
}

// PeriodUnit returns the display label for pending-period counts.
func PeriodUnit(f models.Frequency) string {
	switch f {
	case models.FrequencyDaily:
		return "days"
	case models.FrequencyWeekly:
		return "weeks"
	case models.FrequencyMonthly:
		return "months"
	case models.FrequencyYearly:
		return "years"
	}
	return ""
}

// step advances start by n frequency-steps.
func step(start time.Time, f models.Frequency, n int) time.Time {
	switch f {
	case models.FrequencyDaily:
		return start.AddDate(0, 0, n)
	case models.FrequencyWeekly:
		return start.AddDate(0, 0, 7*n)
	case models.FrequencyMonthly:
		return addMonthsClamped(start, n)
	case models.FrequencyYearly:
		return addYearsClamped(start, n)
	}
	return start
}

// addMonthsClamped does calendar month arithmetic preserving the day of
// month, clamping to the last day when the target month is shorter.
// time.AddDate is not used here: it normalizes Jan 31 + 1 month to Mar 2/3.
func addMonthsClamped(t time.Time, months int) time.Time {
	first := time.Date(t.Year(), time.Month(int(t.Month())+months), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// addYearsClamped advances the year, mapping Feb 29 to Feb 28 when the
// target year is not a leap year.
func addYearsClamped(t time.Time, years int) time.Time {
	first := time.Date(t.Year()+years, t.Month(), 1, 0, 0, 0, 0, t.Location())
	day := t.Day()
	if last := first.AddDate(0, 1, -1).Day(); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

// EndDate computes when a plan's term completes: the start date advanced by
// the full period count at the plan's frequency.
func EndDate(start time.Time, f models.Frequency, periods int) time.Time {
	return step(DateOnly(start), f, periods)
}

// DueDates returns the ordered installment dates. The first due date is the
// start date itself; each subsequent date is one more frequency-step out.
// Generation stops early if a clamped monthly/yearly step would land past
// the end date, so the sequence never leaves the plan's range.
func DueDates(start time.Time, f models.Frequency, periods int) []time.Time {
	start = DateOnly(start)
	end := step(start, f, periods)
	dates := make([]time.Time, 0, periods)
	for i := 0; i < periods; i++ {
		d := step(start, f, i)
		if d.After(end) {
			break
		}
		dates = append(dates, d)
	}
	return dates
}

// DayStatus classifies one calendar day against a customer's terms, for
// calendar highlighting.
type DayStatus struct {
	IsDue     bool `json:"is_due"`
	IsInRange bool `json:"is_in_range"`
	IsPast    bool `json:"is_past"`
	IsToday   bool `json:"is_today"`
}

// Classify reports how date relates to the terms and to referenceToday.
// Range bounds are inclusive and compared at day granularity.
func Classify(date time.Time, terms models.LoanTerms, referenceToday time.Time) DayStatus {
	d := DateOnly(date)
	today := DateOnly(referenceToday)
	st := DayStatus{
		IsInRange: !d.Before(DateOnly(terms.StartDate)) && !d.After(DateOnly(terms.EndDate)),
		IsPast:    d.Before(today),
		IsToday:   d.Equal(today),
	}
	if st.IsInRange {
		for _, due := range DueDates(terms.StartDate, terms.Frequency, terms.Periods) {
			if due.Equal(d) {
				st.IsDue = true
				break
			}
		}
	}
	return st
}
