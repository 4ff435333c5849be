package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rkanthi/paisabook/pkg/models"
	"github.com/rkanthi/paisabook/pkg/schedule"
)

// Summary is the live standing of a customer's loan: what has been
// collected, over which channels, and what remains against the terms.
type Summary struct {
	TotalRepaid    decimal.Decimal `json:"total_repaid"`
	TotalByCash    decimal.Decimal `json:"total_by_cash"`
	TotalByUpi     decimal.Decimal `json:"total_by_upi"`
	ExpectedTotal  decimal.Decimal `json:"expected_total"`
	PendingAmount  decimal.Decimal `json:"pending_amount"` // negative when overpaid, reported as-is
	ElapsedPeriods int             `json:"elapsed_periods"`
	PendingPeriods int             `json:"pending_periods"`
	PeriodUnit     string          `json:"period_unit"`
	OverduePeriods int             `json:"overdue_periods"`
	AccruedLateFee decimal.Decimal `json:"accrued_late_fee"`
}

// Summarize is a read-only projection over the transaction ledger,
// recomputed on every query. Transactions may arrive in any order: the
// first transaction date is the minimum transaction date, not insertion
// order. With no transactions yet, no periods have elapsed.
func Summarize(terms models.LoanTerms, transactions []*models.Transaction, referenceToday time.Time) Summary {
	s := Summary{
		TotalRepaid:    decimal.Zero,
		TotalByCash:    decimal.Zero,
		TotalByUpi:     decimal.Zero,
		AccruedLateFee: decimal.Zero,
		PeriodUnit:     schedule.PeriodUnit(terms.Frequency),
	}

	var first time.Time
	for _, tx := range transactions {
		if tx.Type == models.TransactionTypeRepayment {
			s.TotalRepaid = s.TotalRepaid.Add(tx.Amount)
		}
		// Channel totals sum every transaction by payment mode, the
		// disbursement included.
		switch tx.PaymentMode {
		case models.PaymentModeCash:
			s.TotalByCash = s.TotalByCash.Add(tx.Amount)
		case models.PaymentModeUpi:
			s.TotalByUpi = s.TotalByUpi.Add(tx.Amount)
		}
		d := schedule.DateOnly(tx.TransactionDate)
		if first.IsZero() || d.Before(first) {
			first = d
		}
	}

	s.ExpectedTotal = terms.RepaymentAmount.Mul(decimal.NewFromInt(int64(terms.Periods)))
	s.PendingAmount = s.ExpectedTotal.Sub(s.TotalRepaid)

	if len(transactions) > 0 {
		days := int(schedule.DateOnly(referenceToday).Sub(first).Hours() / 24)
		if days > 0 {
			s.ElapsedPeriods = days / schedule.PeriodLengthDays(terms.Frequency)
		}
	}

	s.PendingPeriods = terms.Periods - s.ElapsedPeriods
	if s.PendingPeriods < 0 {
		s.PendingPeriods = 0
	}

	s.OverduePeriods = overduePeriods(terms, s.TotalRepaid, s.ElapsedPeriods)
	if s.OverduePeriods > 0 {
		s.AccruedLateFee = terms.LateFeePerPeriod.Mul(decimal.NewFromInt(int64(s.OverduePeriods)))
	}
	return s
}

// overduePeriods counts fully elapsed installments not yet covered by the
// repayments collected so far.
func overduePeriods(terms models.LoanTerms, totalRepaid decimal.Decimal, elapsed int) int {
	if elapsed > terms.Periods {
		elapsed = terms.Periods
	}
	if elapsed <= 0 || terms.RepaymentAmount.LessThanOrEqual(decimal.Zero) {
		return 0
	}
	covered := int(totalRepaid.Div(terms.RepaymentAmount).IntPart())
	overdue := elapsed - covered
	if overdue < 0 {
		return 0
	}
	return overdue
}
