// Package plan scales a repayment-plan template to an actual disbursed
// amount, producing the LoanTerms snapshot persisted on a customer.
package plan

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rkanthi/paisabook/pkg/models"
	"github.com/rkanthi/paisabook/pkg/schedule"
)

// Scale computes the per-period figures for amountGiven from a template
// calibrated at its base amount. Repayment and advance amounts scale by
// amountGiven/baseAmount and are rounded to 2 decimal places; the late fee
// and the period count are copied from the template unscaled. Pure function:
// identical inputs always produce identical terms.
func Scale(template *models.PlanTemplate, amountGiven decimal.Decimal) (models.LoanTerms, error) {
	if amountGiven.LessThanOrEqual(decimal.Zero) {
		return models.LoanTerms{}, &models.ValidationError{
			Field:  "amount_given",
			Value:  amountGiven.String(),
			Reason: "must be greater than zero",
		}
	}
	if template.BaseAmount.LessThanOrEqual(decimal.Zero) {
		return models.LoanTerms{}, &models.InvalidPlanError{
			Field:  "base_amount",
			Value:  template.BaseAmount.String(),
			Reason: "must be greater than zero",
		}
	}
	if template.Periods <= 0 {
		return models.LoanTerms{}, &models.InvalidPlanError{
			Field:  "periods",
			Value:  strconv.Itoa(template.Periods),
			Reason: "must be greater than zero",
		}
	}
	if err := schedule.ValidateFrequency(template.Frequency); err != nil {
		return models.LoanTerms{}, &models.InvalidPlanError{
			Field:  "frequency",
			Value:  string(template.Frequency),
			Reason: "unsupported frequency",
		}
	}

	factor := amountGiven.Div(template.BaseAmount)
	return models.LoanTerms{
		Frequency:        template.Frequency,
		Periods:          template.Periods,
		RepaymentAmount:  factor.Mul(template.RepaymentPerPeriod).Round(2),
		AdvanceAmount:    factor.Mul(template.AdvanceAmount).Round(2),
		LateFeePerPeriod: template.LateFeePerPeriod, // copied verbatim, not scaled
	}, nil
}

// NewLoanTerms produces the complete snapshot for a customer: scaled
// amounts anchored at startDate, with the end date derived from the
// template's frequency and period count.
func NewLoanTerms(template *models.PlanTemplate, amountGiven decimal.Decimal, startDate time.Time) (models.LoanTerms, error) {
	terms, err := Scale(template, amountGiven)
	if err != nil {
		return models.LoanTerms{}, err
	}
	terms.StartDate = schedule.DateOnly(startDate)
	terms.EndDate = schedule.EndDate(terms.StartDate, terms.Frequency, terms.Periods)
	return terms, nil
}
