package store

import (
	"github.com/google/uuid"

	"github.com/rkanthi/paisabook/pkg/models"
)

// Storage defines the interface for database operations related to plans,
// customers and transactions.
type Storage interface {
	CreatePlan(tmpl *models.PlanTemplate) error
	GetPlan(id uuid.UUID) (*models.PlanTemplate, error)
	UpdatePlan(tmpl *models.PlanTemplate) error
	DeletePlan(id uuid.UUID) error
	GetAllPlans() ([]*models.PlanTemplate, error)

	CreateCustomer(customer *models.Customer) error
	GetCustomer(id uuid.UUID) (*models.Customer, error)
	UpdateCustomer(customer *models.Customer) error
	DeleteCustomer(id uuid.UUID) error
	GetAllCustomers() ([]*models.Customer, error)
	GetAllActiveCustomers() ([]*models.Customer, error)

	CreateTransaction(transaction *models.Transaction) error
	GetTransactionsForCustomer(customerID uuid.UUID) ([]*models.Transaction, error)

	Close() error
}
