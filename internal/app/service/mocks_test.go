package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"collateral_monitor/internal/domain/entity"
	debank "collateral_monitor/internal/entity"

	"github.com/stretchr/testify/mock"
)

type mockDeBankClient struct {
	mock.Mock
}

func (m *mockDeBankClient) GetComplexProtocolList(ctx context.Context, wallet string, chainIDs []string) ([]debank.ComplexProtocol, error) {
	args := m.Called(ctx, wallet, chainIDs)
	protocols, _ := args.Get(0).([]debank.ComplexProtocol)
	return protocols, args.Error(1)
}

// blockingDeBankClient holds every call until release is closed.
type blockingDeBankClient struct {
	started   chan struct{}
	release   chan struct{}
	protocols []debank.ComplexProtocol
	calls     atomic.Int32

	mu   sync.Mutex
	ctxs []context.Context
}

func newBlockingDeBankClient(protocols []debank.ComplexProtocol) *blockingDeBankClient {
	return &blockingDeBankClient{
		started:   make(chan struct{}, 16),
		release:   make(chan struct{}),
		protocols: protocols,
	}
}

func (b *blockingDeBankClient) GetComplexProtocolList(ctx context.Context, _ string, _ []string) ([]debank.ComplexProtocol, error) {
	b.calls.Add(1)
	b.mu.Lock()
	b.ctxs = append(b.ctxs, ctx)
	b.mu.Unlock()
	b.started <- struct{}{}

	select {
	case <-b.release:
		return b.protocols, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *blockingDeBankClient) callContext(i int) context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctxs[i]
}

type mockAggregator struct {
	mock.Mock
}

func (m *mockAggregator) Aggregate(ctx context.Context, req entity.AggregateRequest) (*entity.CollateralSnapshot, error) {
	args := m.Called(ctx, req)
	snapshot, _ := args.Get(0).(*entity.CollateralSnapshot)
	return snapshot, args.Error(1)
}

type mockCustomerRepository struct {
	mock.Mock
}

func (m *mockCustomerRepository) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockCustomerRepository) List(ctx context.Context) ([]entity.Customer, error) {
	args := m.Called(ctx)
	customers, _ := args.Get(0).([]entity.Customer)
	return customers, args.Error(1)
}

func (m *mockCustomerRepository) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*entity.Customer)
	return c, args.Error(1)
}

func (m *mockCustomerRepository) GetByWallet(ctx context.Context, wallet string) (*entity.Customer, error) {
	args := m.Called(ctx, wallet)
	c, _ := args.Get(0).(*entity.Customer)
	return c, args.Error(1)
}

func (m *mockCustomerRepository) Create(ctx context.Context, c entity.Customer) (*entity.Customer, error) {
	args := m.Called(ctx, c)
	created, _ := args.Get(0).(*entity.Customer)
	return created, args.Error(1)
}

func (m *mockCustomerRepository) UpdateSnapshot(ctx context.Context, id string, expected *time.Time, update entity.SnapshotUpdate) error {
	return m.Called(ctx, id, expected, update).Error(0)
}

func (m *mockCustomerRepository) UpdateFields(ctx context.Context, id string, patch entity.CustomerPatch) (*entity.Customer, error) {
	args := m.Called(ctx, id, patch)
	c, _ := args.Get(0).(*entity.Customer)
	return c, args.Error(1)
}

func (m *mockCustomerRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCustomerRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockCustomerService struct {
	mock.Mock
}

func (m *mockCustomerService) ListCustomers(ctx context.Context, refresh bool) (*entity.CustomerList, error) {
	args := m.Called(ctx, refresh)
	list, _ := args.Get(0).(*entity.CustomerList)
	return list, args.Error(1)
}

func (m *mockCustomerService) CreateCustomer(ctx context.Context, req entity.CreateCustomerRequest) (*entity.CustomerView, error) {
	args := m.Called(ctx, req)
	v, _ := args.Get(0).(*entity.CustomerView)
	return v, args.Error(1)
}

func (m *mockCustomerService) GetCustomer(ctx context.Context, id string) (*entity.CustomerView, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*entity.CustomerView)
	return v, args.Error(1)
}

func (m *mockCustomerService) UpdateCustomer(ctx context.Context, id string, patch entity.CustomerPatch) (*entity.CustomerView, error) {
	args := m.Called(ctx, id, patch)
	v, _ := args.Get(0).(*entity.CustomerView)
	return v, args.Error(1)
}

func (m *mockCustomerService) DeleteCustomer(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCustomerService) RefreshCustomer(ctx context.Context, id string) (*entity.CustomerView, error) {
	args := m.Called(ctx, id)
	v, _ := args.Get(0).(*entity.CustomerView)
	return v, args.Error(1)
}
