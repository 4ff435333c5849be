package store

import (
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rkanthi/paisabook/pkg/models"
)

func testPlan() *models.PlanTemplate {
	return &models.PlanTemplate{
		ID:                 uuid.New(),
		Name:               "weekly-50",
		Frequency:          models.FrequencyWeekly,
		Periods:            20,
		BaseAmount:         decimal.NewFromInt(1000),
		RepaymentPerPeriod: decimal.NewFromInt(50),
		AdvanceAmount:      decimal.NewFromInt(100),
		LateFeePerPeriod:   decimal.NewFromInt(5),
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}
}

func testCustomer(planID uuid.UUID) *models.Customer {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	return &models.Customer{
		ID:          uuid.New(),
		Name:        "Asha",
		Phone:       "9876543210",
		Area:        "market-road",
		Latitude:    12.9716,
		Longitude:   77.5946,
		PlanID:      planID,
		AmountGiven: decimal.NewFromInt(2000),
		Terms: models.LoanTerms{
			Frequency:        models.FrequencyWeekly,
			Periods:          20,
			RepaymentAmount:  decimal.NewFromInt(100),
			AdvanceAmount:    decimal.NewFromInt(200),
			LateFeePerPeriod: decimal.NewFromInt(5),
			StartDate:        start,
			EndDate:          start.AddDate(0, 0, 140),
		},
		Status:    "active",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestSQLiteStore_CreateAndGetPlan(t *testing.T) {
	dbFile := "test_store_plan.db"
	os.Remove(dbFile)
	defer os.Remove(dbFile)

	s, err := NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	tmpl := testPlan()
	if err := s.CreatePlan(tmpl); err != nil {
		t.Fatalf("Failed to create plan: %v", err)
	}

	fetched, err := s.GetPlan(tmpl.ID)
	if err != nil {
		t.Fatalf("Failed to get plan: %v", err)
	}

	if fetched.Name != tmpl.Name {
		t.Errorf("Expected name %s, got %s", tmpl.Name, fetched.Name)
	}
	if fetched.Frequency != models.FrequencyWeekly {
		t.Errorf("Expected frequency weekly, got %s", fetched.Frequency)
	}
	if !fetched.RepaymentPerPeriod.Equal(tmpl.RepaymentPerPeriod) {
		t.Errorf("Expected repayment per period %s, got %s", tmpl.RepaymentPerPeriod, fetched.RepaymentPerPeriod)
	}
	if fetched.Periods != 20 {
		t.Errorf("Expected 20 periods, got %d", fetched.Periods)
	}
}

func TestSQLiteStore_CustomerTermsSnapshot(t *testing.T) {
	dbFile := "test_store_customer.db"
	os.Remove(dbFile)
	defer os.Remove(dbFile)

	s, err := NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	tmpl := testPlan()
	if err := s.CreatePlan(tmpl); err != nil {
		t.Fatalf("Failed to create plan: %v", err)
	}

	customer := testCustomer(tmpl.ID)
	if err := s.CreateCustomer(customer); err != nil {
		t.Fatalf("Failed to create customer: %v", err)
	}

	fetched, err := s.GetCustomer(customer.ID)
	if err != nil {
		t.Fatalf("Failed to get customer: %v", err)
	}

	if !fetched.Terms.RepaymentAmount.Equal(customer.Terms.RepaymentAmount) {
		t.Errorf("Expected repayment amount %s, got %s", customer.Terms.RepaymentAmount, fetched.Terms.RepaymentAmount)
	}
	if !fetched.Terms.StartDate.Equal(customer.Terms.StartDate) {
		t.Errorf("Expected start date %s, got %s", customer.Terms.StartDate, fetched.Terms.StartDate)
	}
	if !fetched.Terms.EndDate.Equal(customer.Terms.EndDate) {
		t.Errorf("Expected end date %s, got %s", customer.Terms.EndDate, fetched.Terms.EndDate)
	}
	if fetched.Area != "market-road" {
		t.Errorf("Expected area market-road, got %s", fetched.Area)
	}

	// Editing the plan must not touch the stored snapshot
	tmpl.RepaymentPerPeriod = decimal.NewFromInt(75)
	if err := s.UpdatePlan(tmpl); err != nil {
		t.Fatalf("Failed to update plan: %v", err)
	}
	fetched, err = s.GetCustomer(customer.ID)
	if err != nil {
		t.Fatalf("Failed to re-get customer: %v", err)
	}
	if !fetched.Terms.RepaymentAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Snapshot changed after plan edit: got %s", fetched.Terms.RepaymentAmount)
	}
}

func TestSQLiteStore_Transactions(t *testing.T) {
	dbFile := "test_store_tx.db"
	os.Remove(dbFile)
	defer os.Remove(dbFile)

	s, err := NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	tmpl := testPlan()
	s.CreatePlan(tmpl)
	// Must create customer first due to foreign key
	customer := testCustomer(tmpl.ID)
	s.CreateCustomer(customer)

	amount := decimal.NewFromFloat(100.0)
	tx := &models.Transaction{
		ID:              uuid.New(),
		CustomerID:      customer.ID,
		Amount:          amount,
		Type:            models.TransactionTypeRepayment,
		PaymentMode:     models.PaymentModeUpi,
		TransactionDate: time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC),
		Remarks:         "week 2",
		CreatedAt:       time.Now(),
	}

	if err := s.CreateTransaction(tx); err != nil {
		t.Fatalf("Failed to create transaction: %v", err)
	}

	txs, err := s.GetTransactionsForCustomer(customer.ID)
	if err != nil {
		t.Fatalf("Failed to get transactions: %v", err)
	}

	if len(txs) != 1 {
		t.Fatalf("Expected 1 transaction, got %d", len(txs))
	}
	if !txs[0].Amount.Equal(amount) {
		t.Errorf("Expected amount %s, got %s", amount, txs[0].Amount)
	}
	if txs[0].PaymentMode != models.PaymentModeUpi {
		t.Errorf("Expected payment mode upi, got %s", txs[0].PaymentMode)
	}
	if txs[0].Remarks != "week 2" {
		t.Errorf("Expected remarks to round-trip, got %q", txs[0].Remarks)
	}
}

func TestSQLiteStore_DeleteCustomerCascades(t *testing.T) {
	dbFile := "test_store_del.db"
	os.Remove(dbFile)
	defer os.Remove(dbFile)

	s, err := NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	tmpl := testPlan()
	s.CreatePlan(tmpl)
	customer := testCustomer(tmpl.ID)
	s.CreateCustomer(customer)
	s.CreateTransaction(&models.Transaction{
		ID:              uuid.New(),
		CustomerID:      customer.ID,
		Amount:          decimal.NewFromInt(100),
		Type:            models.TransactionTypeRepayment,
		PaymentMode:     models.PaymentModeCash,
		TransactionDate: time.Now(),
		CreatedAt:       time.Now(),
	})

	if err := s.DeleteCustomer(customer.ID); err != nil {
		t.Fatalf("Failed to delete customer: %v", err)
	}

	if _, err := s.GetCustomer(customer.ID); err == nil {
		t.Error("Expected customer to be gone")
	}
	txs, err := s.GetTransactionsForCustomer(customer.ID)
	if err != nil {
		t.Fatalf("Failed to query transactions: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("Expected transactions to be deleted with the customer, got %d", len(txs))
	}
}

func TestSQLiteStore_ActiveCustomers(t *testing.T) {
	dbFile := "test_store_active.db"
	os.Remove(dbFile)
	defer os.Remove(dbFile)

	s, err := NewSQLiteStore(dbFile)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	tmpl := testPlan()
	s.CreatePlan(tmpl)

	active := testCustomer(tmpl.ID)
	s.CreateCustomer(active)

	closed := testCustomer(tmpl.ID)
	closed.Status = "closed"
	s.CreateCustomer(closed)

	customers, err := s.GetAllActiveCustomers()
	if err != nil {
		t.Fatalf("Failed to get active customers: %v", err)
	}
	if len(customers) != 1 {
		t.Fatalf("Expected 1 active customer, got %d", len(customers))
	}
	if customers[0].ID != active.ID {
		t.Errorf("Expected active customer %s, got %s", active.ID, customers[0].ID)
	}
}
