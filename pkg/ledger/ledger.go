// Package ledger holds the collection business logic: plan template
// management, customer onboarding, transaction recording and the standing
// summary projection.
package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/rkanthi/paisabook/pkg/models"
	"github.com/rkanthi/paisabook/pkg/plan"
	"github.com/rkanthi/paisabook/pkg/schedule"
	"github.com/rkanthi/paisabook/pkg/store"
)

const (
	CustomerStatusActive = "active"
	CustomerStatusClosed = "closed"
)

// Ledger handles the business logic for plans, customers and transactions.
type Ledger struct {
	storage            store.Storage
	log                *logrus.Logger
	backdateWindowDays int // how far in the past a collection may be dated
}

// NewLedger creates a new Ledger with a given Storage implementation.
func NewLedger(s store.Storage, log *logrus.Logger, backdateWindowDays int) *Ledger {
	return &Ledger{
		storage:            s,
		log:                log,
		backdateWindowDays: backdateWindowDays,
	}
}

// CreatePlan registers an admin-defined plan template.
func (l *Ledger) CreatePlan(name string, frequency models.Frequency, periods int, baseAmount, repaymentPerPeriod, advanceAmount, lateFeePerPeriod decimal.Decimal) (*models.PlanTemplate, error) {
	if name == "" {
		return nil, &models.ValidationError{Field: "name", Value: name, Reason: "must not be empty"}
	}
	if err := schedule.ValidateFrequency(frequency); err != nil {
		return nil, err
	}
	if periods <= 0 {
		return nil, &models.ValidationError{Field: "periods", Value: fmt.Sprintf("%d", periods), Reason: "must be greater than zero"}
	}
	if baseAmount.LessThanOrEqual(decimal.Zero) {
		return nil, &models.ValidationError{Field: "base_amount", Value: baseAmount.String(), Reason: "must be greater than zero"}
	}
	if repaymentPerPeriod.LessThanOrEqual(decimal.Zero) {
		return nil, &models.ValidationError{Field: "repayment_per_period", Value: repaymentPerPeriod.String(), Reason: "must be greater than zero"}
	}
	if advanceAmount.IsNegative() {
		return nil, &models.ValidationError{Field: "advance_amount", Value: advanceAmount.String(), Reason: "must not be negative"}
	}
	if lateFeePerPeriod.IsNegative() {
		return nil, &models.ValidationError{Field: "late_fee_per_period", Value: lateFeePerPeriod.String(), Reason: "must not be negative"}
	}

	tmpl := &models.PlanTemplate{
		ID:                 uuid.New(),
		Name:               name,
		Frequency:          frequency,
		Periods:            periods,
		BaseAmount:         baseAmount,
		RepaymentPerPeriod: repaymentPerPeriod,
		AdvanceAmount:      advanceAmount,
		LateFeePerPeriod:   lateFeePerPeriod,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
	if err := l.storage.CreatePlan(tmpl); err != nil {
		return nil, fmt.Errorf("failed to store plan: %w", err)
	}
	l.log.Infof("Plan created: %s (%s)", tmpl.Name, tmpl.ID)
	return tmpl, nil
}

// GetPlan retrieves a plan template by its ID.
func (l *Ledger) GetPlan(id uuid.UUID) (*models.PlanTemplate, error) {
	return l.storage.GetPlan(id)
}

// GetAllPlans retrieves all plan templates.
func (l *Ledger) GetAllPlans() ([]*models.PlanTemplate, error) {
	return l.storage.GetAllPlans()
}

// UpdatePlan updates a plan template. Existing customers are unaffected:
// their terms snapshot was taken at onboarding and is never recomputed.
func (l *Ledger) UpdatePlan(tmpl *models.PlanTemplate) error {
	tmpl.UpdatedAt = time.Now()
	return l.storage.UpdatePlan(tmpl)
}

// DeletePlan deletes a plan template.
func (l *Ledger) DeletePlan(id uuid.UUID) error {
	return l.storage.DeletePlan(id)
}

// OnboardParams carries the onboarding form for a new customer.
type OnboardParams struct {
	Name        string
	Phone       string
	Address     string
	Area        string
	Latitude    float64
	Longitude   float64
	PlanID      uuid.UUID
	AmountGiven decimal.Decimal
	StartDate   time.Time
}

// OnboardCustomer creates a customer with a terms snapshot scaled from the
// chosen plan, and records the disbursement as a "given" transaction.
func (l *Ledger) OnboardCustomer(p OnboardParams) (*models.Customer, error) {
	if p.Name == "" {
		return nil, &models.ValidationError{Field: "name", Value: p.Name, Reason: "must not be empty"}
	}
	if p.StartDate.IsZero() {
		return nil, &models.ValidationError{Field: "start_date", Value: "", Reason: "must be set"}
	}

	tmpl, err := l.storage.GetPlan(p.PlanID)
	if err != nil {
		return nil, err
	}
	terms, err := plan.NewLoanTerms(tmpl, p.AmountGiven, p.StartDate)
	if err != nil {
		return nil, err
	}

	customer := &models.Customer{
		ID:          uuid.New(),
		Name:        p.Name,
		Phone:       p.Phone,
		Address:     p.Address,
		Area:        p.Area,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		PlanID:      tmpl.ID,
		AmountGiven: p.AmountGiven,
		Terms:       terms,
		Status:      CustomerStatusActive,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := l.storage.CreateCustomer(customer); err != nil {
		return nil, fmt.Errorf("failed to store customer: %w", err)
	}

	// Record disbursement
	transaction := &models.Transaction{
		ID:              uuid.New(),
		CustomerID:      customer.ID,
		Amount:          p.AmountGiven,
		Type:            models.TransactionTypeGiven,
		PaymentMode:     models.PaymentModeCash,
		TransactionDate: terms.StartDate,
		CreatedAt:       time.Now(),
	}
	if err := l.storage.CreateTransaction(transaction); err != nil {
		return nil, fmt.Errorf("failed to store disbursement transaction: %w", err)
	}

	l.log.Infof("Customer onboarded: %s (%s), amount %s over %d %s",
		customer.Name, customer.ID, p.AmountGiven.StringFixed(2), terms.Periods, schedule.PeriodUnit(terms.Frequency))
	return customer, nil
}

// GetCustomer retrieves a customer by ID.
func (l *Ledger) GetCustomer(id uuid.UUID) (*models.Customer, error) {
	return l.storage.GetCustomer(id)
}

// GetAllCustomers retrieves all customers.
func (l *Ledger) GetAllCustomers() ([]*models.Customer, error) {
	return l.storage.GetAllCustomers()
}

// DeleteCustomer removes a customer together with its transaction ledger.
func (l *Ledger) DeleteCustomer(id uuid.UUID) error {
	if err := l.storage.DeleteCustomer(id); err != nil {
		return err
	}
	l.log.Infof("Customer deleted: %s", id)
	return nil
}

// RecordCollection appends a collection transaction for a customer. The
// transaction date may be backdated at most the configured window; that is
// a business rule enforced here, not by the date arithmetic.
func (l *Ledger) RecordCollection(customerID uuid.UUID, amount decimal.Decimal, txType models.TransactionType, mode models.PaymentMode, date time.Time, remarks string, referenceToday time.Time) (*models.Transaction, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, &models.ValidationError{Field: "amount", Value: amount.String(), Reason: "must be greater than zero"}
	}
	switch txType {
	case models.TransactionTypeRepayment, models.TransactionTypeAdvance, models.TransactionTypeLateFee:
	default:
		return nil, &models.ValidationError{Field: "type", Value: string(txType), Reason: "must be one of repayment, advance, late_fee"}
	}
	switch mode {
	case models.PaymentModeCash, models.PaymentModeUpi:
	default:
		return nil, &models.ValidationError{Field: "payment_mode", Value: string(mode), Reason: "must be one of cash, upi"}
	}

	d := schedule.DateOnly(date)
	today := schedule.DateOnly(referenceToday)
	if d.After(today) {
		return nil, &models.ValidationError{Field: "transaction_date", Value: d.Format("2006-01-02"), Reason: "must not be in the future"}
	}
	if d.Before(today.AddDate(0, 0, -l.backdateWindowDays)) {
		return nil, &models.ValidationError{
			Field:  "transaction_date",
			Value:  d.Format("2006-01-02"),
			Reason: fmt.Sprintf("must not be more than %d days in the past", l.backdateWindowDays),
		}
	}

	customer, err := l.storage.GetCustomer(customerID)
	if err != nil {
		return nil, err
	}
	if customer.Status != CustomerStatusActive {
		return nil, fmt.Errorf("customer is not active")
	}

	transaction := &models.Transaction{
		ID:              uuid.New(),
		CustomerID:      customer.ID,
		Amount:          amount,
		Type:            txType,
		PaymentMode:     mode,
		TransactionDate: d,
		Remarks:         remarks,
		CreatedAt:       time.Now(),
	}
	if err := l.storage.CreateTransaction(transaction); err != nil {
		return nil, fmt.Errorf("failed to store transaction: %w", err)
	}

	l.log.Infof("Collection recorded for %s: %s %s by %s", customer.ID, string(txType), amount.StringFixed(2), string(mode))
	return transaction, nil
}

// GetTransactions retrieves a customer's transaction ledger.
func (l *Ledger) GetTransactions(customerID uuid.UUID) ([]*models.Transaction, error) {
	return l.storage.GetTransactionsForCustomer(customerID)
}

// CustomerSummary recomputes a customer's standing from the full ledger.
func (l *Ledger) CustomerSummary(customerID uuid.UUID, referenceToday time.Time) (*models.Customer, Summary, error) {
	customer, err := l.storage.GetCustomer(customerID)
	if err != nil {
		return nil, Summary{}, err
	}
	transactions, err := l.storage.GetTransactionsForCustomer(customerID)
	if err != nil {
		return nil, Summary{}, err
	}
	return customer, Summarize(customer.Terms, transactions, referenceToday), nil
}

// CustomerCalendar builds the month grid for a customer's terms.
func (l *Ledger) CustomerCalendar(customerID uuid.UUID, year int, month time.Month, referenceToday time.Time) (schedule.MonthGrid, error) {
	if month < time.January || month > time.December {
		return schedule.MonthGrid{}, &models.ValidationError{Field: "month", Value: fmt.Sprintf("%d", month), Reason: "must be between 1 and 12"}
	}
	customer, err := l.storage.GetCustomer(customerID)
	if err != nil {
		return schedule.MonthGrid{}, err
	}
	return schedule.Grid(year, month, customer.Terms, referenceToday), nil
}

// OverdueCustomer pairs a customer with its computed standing.
type OverdueCustomer struct {
	Customer *models.Customer `json:"customer"`
	Summary  Summary          `json:"summary"`
}

// OverdueCustomers returns every active customer whose repayments have
// fallen behind the elapsed installments.
func (l *Ledger) OverdueCustomers(referenceToday time.Time) ([]OverdueCustomer, error) {
	customers, err := l.storage.GetAllActiveCustomers()
	if err != nil {
		return nil, fmt.Errorf("failed to get active customers: %w", err)
	}

	var overdue []OverdueCustomer
	for _, c := range customers {
		transactions, err := l.storage.GetTransactionsForCustomer(c.ID)
		if err != nil {
			l.log.Warnf("Skipping customer %s in overdue sweep: %v", c.ID, err)
			continue
		}
		s := Summarize(c.Terms, transactions, referenceToday)
		if s.OverduePeriods > 0 {
			overdue = append(overdue, OverdueCustomer{Customer: c, Summary: s})
		}
	}
	return overdue, nil
}

// CloseCustomer marks a fully repaid customer as closed. Closing with an
// outstanding balance is rejected; closure is always an explicit action.
func (l *Ledger) CloseCustomer(customerID uuid.UUID, referenceToday time.Time) (*models.Customer, error) {
	customer, summary, err := l.CustomerSummary(customerID, referenceToday)
	if err != nil {
		return nil, err
	}
	if customer.Status != CustomerStatusActive {
		return nil, fmt.Errorf("customer is not active")
	}
	if summary.PendingAmount.GreaterThan(decimal.Zero) {
		return nil, &models.ValidationError{
			Field:  "pending_amount",
			Value:  summary.PendingAmount.String(),
			Reason: "customer still has an outstanding balance",
		}
	}

	customer.Status = CustomerStatusClosed
	customer.UpdatedAt = time.Now()
	if err := l.storage.UpdateCustomer(customer); err != nil {
		return nil, fmt.Errorf("failed to close customer: %w", err)
	}
	l.log.Infof("Customer closed: %s", customer.ID)
	return customer, nil
}
