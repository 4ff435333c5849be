package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Frequency is how often a repayment falls due.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

type TransactionType string

const (
	TransactionTypeRepayment TransactionType = "repayment"
	TransactionTypeAdvance   TransactionType = "advance"
	TransactionTypeLateFee   TransactionType = "late_fee"
	TransactionTypeGiven     TransactionType = "given"
)

type PaymentMode string

const (
	PaymentModeCash PaymentMode = "cash"
	PaymentModeUpi  PaymentMode = "upi"
)

// PlanTemplate is an admin-configured repayment blueprint. Its per-period
// amounts are calibrated at BaseAmount and get scaled to the actual
// disbursed amount when a customer is onboarded.
type PlanTemplate struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	Frequency          Frequency       `json:"frequency"`
	Periods            int             `json:"periods"`
	BaseAmount         decimal.Decimal `json:"base_amount"`
	RepaymentPerPeriod decimal.Decimal `json:"repayment_per_period"`
	AdvanceAmount      decimal.Decimal `json:"advance_amount"`
	LateFeePerPeriod   decimal.Decimal `json:"late_fee_per_period"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// LoanTerms is the scaled, date-anchored snapshot taken from a template at
// onboarding time. It is immutable afterwards: template edits must never
// reach customers already on a loan.
type LoanTerms struct {
	Frequency        Frequency       `json:"frequency"`
	Periods          int             `json:"periods"`
	RepaymentAmount  decimal.Decimal `json:"repayment_amount"`
	AdvanceAmount    decimal.Decimal `json:"advance_amount"`
	LateFeePerPeriod decimal.Decimal `json:"late_fee_per_period"`
	StartDate        time.Time       `json:"start_date"`
	EndDate          time.Time       `json:"end_date"`
}

type Customer struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address"`
	Area        string          `json:"area"` // collection route grouping for agents
	Latitude    float64         `json:"latitude"`
	Longitude   float64         `json:"longitude"`
	PlanID      uuid.UUID       `json:"plan_id"`
	AmountGiven decimal.Decimal `json:"amount_given"`
	Terms       LoanTerms       `json:"terms"`
	Status      string          `json:"status"` // e.g., "active", "closed"
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Transaction is an append-only ledger entry recorded by an agent at
// collection time. Entries are never mutated or rescaled.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	Amount          decimal.Decimal `json:"amount"`
	Type            TransactionType `json:"type"`
	PaymentMode     PaymentMode     `json:"payment_mode"`
	TransactionDate time.Time       `json:"transaction_date"`
	Remarks         string          `json:"remarks,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
