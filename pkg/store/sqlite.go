package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/rkanthi/paisabook/pkg/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore manages the database connection and operations for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore and initializes the database.
func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	// Manually enable foreign keys and WAL mode
	_, err = db.Exec("PRAGMA foreign_keys = ON;")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	_, err = db.Exec("PRAGMA journal_mode = WAL;")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("could not initialize schema: %w", err)
	}
	log.Println("Database connection established and schema initialized.")
	return s, nil
}

// initSchema creates the database tables if they don't already exist.
// We use TEXT for decimal fields in SQLite to ensure no precision is lost.
// The customer's terms snapshot is denormalized into its row: it is
// immutable and must survive later plan edits.
func (s *SQLiteStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		frequency TEXT NOT NULL,
		periods INTEGER NOT NULL,
		base_amount TEXT NOT NULL,
		repayment_per_period TEXT NOT NULL,
		advance_amount TEXT NOT NULL DEFAULT '0',
		late_fee_per_period TEXT NOT NULL DEFAULT '0',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	CREATE TABLE IF NOT EXISTS customers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone TEXT NOT NULL DEFAULT '',
		address TEXT NOT NULL DEFAULT '',
		area TEXT NOT NULL DEFAULT '',
		latitude REAL NOT NULL DEFAULT 0,
		longitude REAL NOT NULL DEFAULT 0,
		plan_id TEXT NOT NULL,
		amount_given TEXT NOT NULL,
		frequency TEXT NOT NULL,
		periods INTEGER NOT NULL,
		repayment_amount TEXT NOT NULL,
		advance_amount TEXT NOT NULL DEFAULT '0',
		late_fee_per_period TEXT NOT NULL DEFAULT '0',
		start_date DATETIME NOT NULL,
		end_date DATETIME NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY(plan_id) REFERENCES plans(id)
	);
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		customer_id TEXT NOT NULL,
		amount TEXT NOT NULL,
		type TEXT NOT NULL,
		payment_mode TEXT NOT NULL,
		transaction_date DATETIME NOT NULL,
		remarks TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		FOREIGN KEY(customer_id) REFERENCES customers(id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// CreatePlan inserts a new plan template into the database.
func (s *SQLiteStore) CreatePlan(tmpl *models.PlanTemplate) error {
	_, err := s.db.Exec(
		`INSERT INTO plans (id, name, frequency, periods, base_amount, repayment_per_period, advance_amount, late_fee_per_period, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tmpl.ID.String(), tmpl.Name, string(tmpl.Frequency), tmpl.Periods, tmpl.BaseAmount, tmpl.RepaymentPerPeriod, tmpl.AdvanceAmount, tmpl.LateFeePerPeriod, tmpl.CreatedAt, tmpl.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

// GetPlan retrieves a plan template by its ID.
func (s *SQLiteStore) GetPlan(id uuid.UUID) (*models.PlanTemplate, error) {
	var tmpl models.PlanTemplate
	var idStr, freq string
	var created, updated time.Time

	row := s.db.QueryRow(`SELECT id, name, frequency, periods, base_amount, repayment_per_period, advance_amount, late_fee_per_period, created_at, updated_at FROM plans WHERE id = ?`, id.String())
	err := row.Scan(&idStr, &tmpl.Name, &freq, &tmpl.Periods, &tmpl.BaseAmount, &tmpl.RepaymentPerPeriod, &tmpl.AdvanceAmount, &tmpl.LateFeePerPeriod, &created, &updated)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("plan not found")
		}
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	tmpl.ID = uuid.MustParse(idStr)
	tmpl.Frequency = models.Frequency(freq)
	tmpl.CreatedAt = created
	tmpl.UpdatedAt = updated
	return &tmpl, nil
}

// UpdatePlan updates an existing plan template in the database.
func (s *SQLiteStore) UpdatePlan(tmpl *models.PlanTemplate) error {
	result, err := s.db.Exec(
		`UPDATE plans SET name = ?, frequency = ?, periods = ?, base_amount = ?, repayment_per_period = ?, advance_amount = ?, late_fee_per_period = ?, updated_at = ? WHERE id = ?`,
		tmpl.Name, string(tmpl.Frequency), tmpl.Periods, tmpl.BaseAmount, tmpl.RepaymentPerPeriod, tmpl.AdvanceAmount, tmpl.LateFeePerPeriod, tmpl.UpdatedAt, tmpl.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("plan not found")
	}
	return nil
}

// DeletePlan removes a plan template. Deleting a plan that customers still
// reference fails on the foreign key.
func (s *SQLiteStore) DeletePlan(id uuid.UUID) error {
	result, err := s.db.Exec(`DELETE FROM plans WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete plan: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("plan not found")
	}
	return nil
}

// GetAllPlans retrieves all plan templates.
func (s *SQLiteStore) GetAllPlans() ([]*models.PlanTemplate, error) {
	rows, err := s.db.Query(`SELECT id, name, frequency, periods, base_amount, repayment_per_period, advance_amount, late_fee_per_period, created_at, updated_at FROM plans`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all plans: %w", err)
	}
	defer rows.Close()

	var plans []*models.PlanTemplate
	for rows.Next() {
		var tmpl models.PlanTemplate
		var idStr, freq string
		var created, updated time.Time
		if err := rows.Scan(&idStr, &tmpl.Name, &freq, &tmpl.Periods, &tmpl.BaseAmount, &tmpl.RepaymentPerPeriod, &tmpl.AdvanceAmount, &tmpl.LateFeePerPeriod, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan plan row: %w", err)
		}
		tmpl.ID = uuid.MustParse(idStr)
		tmpl.Frequency = models.Frequency(freq)
		tmpl.CreatedAt = created
		tmpl.UpdatedAt = updated
		plans = append(plans, &tmpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return plans, nil
}

const customerColumns = `id, name, phone, address, area, latitude, longitude, plan_id, amount_given, frequency, periods, repayment_amount, advance_amount, late_fee_per_period, start_date, end_date, status, created_at, updated_at`

// CreateCustomer inserts a new customer with its terms snapshot.
func (s *SQLiteStore) CreateCustomer(c *models.Customer) error {
	_, err := s.db.Exec(
		`INSERT INTO customers (`+customerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID.String(), c.Name, c.Phone, c.Address, c.Area, c.Latitude, c.Longitude, c.PlanID.String(), c.AmountGiven,
		string(c.Terms.Frequency), c.Terms.Periods, c.Terms.RepaymentAmount, c.Terms.AdvanceAmount, c.Terms.LateFeePerPeriod,
		c.Terms.StartDate, c.Terms.EndDate, c.Status, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}
	return nil
}

func scanCustomer(scan func(dest ...any) error) (*models.Customer, error) {
	var c models.Customer
	var idStr, planIDStr, freq string
	var start, end, created, updated time.Time

	err := scan(&idStr, &c.Name, &c.Phone, &c.Address, &c.Area, &c.Latitude, &c.Longitude, &planIDStr, &c.AmountGiven,
		&freq, &c.Terms.Periods, &c.Terms.RepaymentAmount, &c.Terms.AdvanceAmount, &c.Terms.LateFeePerPeriod,
		&start, &end, &c.Status, &created, &updated)
	if err != nil {
		return nil, err
	}
	c.ID = uuid.MustParse(idStr)
	c.PlanID = uuid.MustParse(planIDStr)
	c.Terms.Frequency = models.Frequency(freq)
	c.Terms.StartDate = start
	c.Terms.EndDate = end
	c.CreatedAt = created
	c.UpdatedAt = updated
	return &c, nil
}

// GetCustomer retrieves a customer by its ID.
func (s *SQLiteStore) GetCustomer(id uuid.UUID) (*models.Customer, error) {
	row := s.db.QueryRow(`SELECT `+customerColumns+` FROM customers WHERE id = ?`, id.String())
	c, err := scanCustomer(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("customer not found")
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

// UpdateCustomer updates a customer's mutable fields. The terms snapshot
// columns are written too, but callers never change them after onboarding.
func (s *SQLiteStore) UpdateCustomer(c *models.Customer) error {
	result, err := s.db.Exec(
		`UPDATE customers SET name = ?, phone = ?, address = ?, area = ?, latitude = ?, longitude = ?, plan_id = ?, amount_given = ?, frequency = ?, periods = ?, repayment_amount = ?, advance_amount = ?, late_fee_per_period = ?, start_date = ?, end_date = ?, status = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Phone, c.Address, c.Area, c.Latitude, c.Longitude, c.PlanID.String(), c.AmountGiven,
		string(c.Terms.Frequency), c.Terms.Periods, c.Terms.RepaymentAmount, c.Terms.AdvanceAmount, c.Terms.LateFeePerPeriod,
		c.Terms.StartDate, c.Terms.EndDate, c.Status, c.UpdatedAt, c.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("customer not found")
	}
	return nil
}

// DeleteCustomer removes a customer and its transactions within a transaction.
func (s *SQLiteStore) DeleteCustomer(id uuid.UUID) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM transactions WHERE customer_id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete associated transactions: %w", err)
	}

	result, err := tx.Exec(`DELETE FROM customers WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("customer not found")
	}

	return tx.Commit()
}

// GetAllCustomers retrieves all customers.
func (s *SQLiteStore) GetAllCustomers() ([]*models.Customer, error) {
	rows, err := s.db.Query(`SELECT ` + customerColumns + ` FROM customers`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all customers: %w", err)
	}
	defer rows.Close()

	return s.scanCustomers(rows)
}

// GetAllActiveCustomers retrieves all active customers.
func (s *SQLiteStore) GetAllActiveCustomers() ([]*models.Customer, error) {
	rows, err := s.db.Query(`SELECT ` + customerColumns + ` FROM customers WHERE status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all active customers: %w", err)
	}
	defer rows.Close()

	return s.scanCustomers(rows)
}

func (s *SQLiteStore) scanCustomers(rows *sql.Rows) ([]*models.Customer, error) {
	var customers []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan customer row: %w", err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return customers, nil
}

// CreateTransaction inserts a new transaction into the database.
func (s *SQLiteStore) CreateTransaction(transaction *models.Transaction) error {
	_, err := s.db.Exec(
		`INSERT INTO transactions (id, customer_id, amount, type, payment_mode, transaction_date, remarks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		transaction.ID.String(), transaction.CustomerID.String(), transaction.Amount, string(transaction.Type), string(transaction.PaymentMode), transaction.TransactionDate, transaction.Remarks, transaction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// GetTransactionsForCustomer retrieves all transactions for a given customer ID.
func (s *SQLiteStore) GetTransactionsForCustomer(customerID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := s.db.Query(`SELECT id, customer_id, amount, type, payment_mode, transaction_date, remarks, created_at FROM transactions WHERE customer_id = ? ORDER BY transaction_date ASC`, customerID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions for customer %s: %w", customerID, err)
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		var transaction models.Transaction
		var txIDStr, customerIDStr, txType, mode string
		var txDate, created time.Time
		if err := rows.Scan(&txIDStr, &customerIDStr, &transaction.Amount, &txType, &mode, &txDate, &transaction.Remarks, &created); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transaction.ID = uuid.MustParse(txIDStr)
		transaction.CustomerID = uuid.MustParse(customerIDStr)
		transaction.Type = models.TransactionType(txType)
		transaction.PaymentMode = models.PaymentMode(mode)
		transaction.TransactionDate = txDate
		transaction.CreatedAt = created
		transactions = append(transactions, &transaction)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration for customer transactions: %w", err)
	}
	return transactions, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
