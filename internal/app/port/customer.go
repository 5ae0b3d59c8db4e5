package port

import (
	"context"
	"time"

	"collateral_monitor/internal/domain/entity"
)

// CustomerRepository is the persisted customer store.
type CustomerRepository interface {
	// Count returns the number of stored customers.
	Count(ctx context.Context) (int, error)
	// List returns all customers ordered by creation time, newest first.
	List(ctx context.Context) ([]entity.Customer, error)
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	// GetByWallet looks a customer up by lowercase wallet address.
	GetByWallet(ctx context.Context, walletAddress string) (*entity.Customer, error)
	// Create stores a new customer. It returns entity.ErrCustomerExists on a
	// duplicate wallet address.
	Create(ctx context.Context, customer entity.Customer) (*entity.Customer, error)
	// UpdateSnapshot writes refreshed figures only if last_update still equals
	// expectedLastUpdate; otherwise it returns entity.ErrStaleWrite.
	UpdateSnapshot(ctx context.Context, id string, expectedLastUpdate *time.Time, update entity.SnapshotUpdate) error
	// UpdateFields applies a field-level patch and returns the updated row.
	UpdateFields(ctx context.Context, id string, patch entity.CustomerPatch) (*entity.Customer, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// CustomerService is the customer read model and its adjacent operations.
type CustomerService interface {
	// ListCustomers builds the read model. It returns an error only when the
	// store itself could not be read.
	ListCustomers(ctx context.Context, refresh bool) (*entity.CustomerList, error)
	CreateCustomer(ctx context.Context, req entity.CreateCustomerRequest) (*entity.CustomerView, error)
	GetCustomer(ctx context.Context, id string) (*entity.CustomerView, error)
	UpdateCustomer(ctx context.Context, id string, patch entity.CustomerPatch) (*entity.CustomerView, error)
	DeleteCustomer(ctx context.Context, id string) error
	RefreshCustomer(ctx context.Context, id string) (*entity.CustomerView, error)
}
