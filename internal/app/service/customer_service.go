package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"collateral_monitor/internal/app/port"
	"collateral_monitor/internal/domain/entity"
	"collateral_monitor/internal/infrastructure/configloader"
	"collateral_monitor/internal/pkg/metrics"
	"collateral_monitor/internal/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// CustomerServiceImpl implements port.CustomerService.
type CustomerServiceImpl struct {
	repo                  port.CustomerRepository
	aggregator            port.CollateralAggregator
	logger                port.Logger
	defaultChains         []string
	maxConcurrentRequests int
	staleAfter            time.Duration
	now                   func() time.Time
}

// NewCustomerService creates a new instance of CustomerServiceImpl.
func NewCustomerService(
	repo port.CustomerRepository,
	aggregator port.CollateralAggregator,
	l port.Logger,
	cfg *configloader.Config,
) *CustomerServiceImpl {
	maxRoutines := cfg.CustomerService.MaxConcurrentRequests
	if maxRoutines <= 0 {
		maxRoutines = 1
	}
	defaultChains := utils.NormalizeList(cfg.Collateral.DefaultChains)
	if len(defaultChains) == 0 {
		defaultChains = []string{"eth"}
	}
	return &CustomerServiceImpl{
		repo:                  repo,
		aggregator:            aggregator,
		logger:                l,
		defaultChains:         defaultChains,
		maxConcurrentRequests: maxRoutines,
		staleAfter:            time.Duration(cfg.CustomerService.StaleAfterMinutes) * time.Minute,
		now:                   time.Now,
	}
}

// ListCustomers loads every stored customer and refreshes each one through the
// aggregator. A provider failure for one customer never affects the others.
func (s *CustomerServiceImpl) ListCustomers(ctx context.Context, refresh bool) (*entity.CustomerList, error) {
	now := s.now().UTC()

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("Failed to count customers", "error", err)
		return nil, fmt.Errorf("count customers: %w", err)
	}
	if total == 0 {
		s.logger.Debug("No customers stored, skipping provider calls")
		return &entity.CustomerList{
			Customers: []entity.CustomerView{},
			Source:    entity.SourceDatabase,
			Timestamp: now,
		}, nil
	}

	customers, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list customers", "error", err)
		return nil, fmt.Errorf("list customers: %w", err)
	}

	views := make([]entity.CustomerView, len(customers))

	// Plain group, not WithContext: a failed customer must not cancel siblings.
	var eg errgroup.Group
	eg.SetLimit(s.maxConcurrentRequests)
	for i := range customers {
		eg.Go(func() error {
			views[i] = s.buildView(ctx, customers[i], refresh, now)
			return nil
		})
	}
	_ = eg.Wait()

	degraded := 0
	for _, v := range views {
		if v.Error != "" {
			degraded++
		}
	}
	s.logger.Info("Customer read model built",
		"count", len(views),
		"degraded", degraded,
		"refresh", refresh)

	return &entity.CustomerList{
		Customers: views,
		Count:     len(views),
		Total:     total,
		Source:    entity.SourceDeBank,
		Timestamp: now,
	}, nil
}

// buildView runs one customer through the aggregator and applies the
// write-back and fallback policy.
func (s *CustomerServiceImpl) buildView(ctx context.Context, c entity.Customer, refresh bool, now time.Time) entity.CustomerView {
	chains := s.decodeChains(c.ChainsRaw)
	protocols := utils.DecodeStringList(c.ProtocolsRaw, []string{})

	snapshot, err := s.aggregator.Aggregate(ctx, entity.AggregateRequest{
		WalletAddress:    c.WalletAddress,
		Chains:           chains,
		AllowedProtocols: protocols,
		Name:             c.Name,
		Tag:              c.Tag,
		BypassCache:      refresh,
	})
	if err != nil {
		s.logger.Warn("Collateral aggregation failed, serving persisted data",
			"customer_id", c.ID,
			"wallet", c.WalletAddress,
			"error", err)
		metrics.IncFallback()
		view := persistedView(c, chains, protocols)
		view.Error = fmt.Sprintf("failed to fetch live collateral data: %v", err)
		return view
	}

	status := entity.ClassifyStatus(snapshot.HealthFactor)
	if s.needsWriteBack(c, refresh, now) {
		s.writeBack(ctx, c, snapshot, status)
	}
	return liveView(c, snapshot, status, chains, protocols)
}

func (s *CustomerServiceImpl) needsWriteBack(c entity.Customer, refresh bool, now time.Time) bool {
	if refresh || c.LastUpdate == nil {
		return true
	}
	return now.Sub(*c.LastUpdate) > s.staleAfter
}

func (s *CustomerServiceImpl) writeBack(ctx context.Context, c entity.Customer, snapshot *entity.CollateralSnapshot, status entity.CustomerStatus) {
	err := s.repo.UpdateSnapshot(ctx, c.ID, c.LastUpdate, entity.SnapshotUpdate{
		TotalValue:   snapshot.TotalValue,
		TotalDebt:    snapshot.TotalDebt,
		HealthFactor: snapshot.HealthFactor,
		Status:       status,
		LastUpdate:   snapshot.LastUpdate,
	})
	switch {
	case err == nil:
		metrics.IncSnapshotWrite("ok")
		s.logger.Debug("Customer snapshot persisted", "customer_id", c.ID, "wallet", c.WalletAddress)
	case errors.Is(err, entity.ErrStaleWrite):
		metrics.IncSnapshotWrite("stale")
		s.logger.Debug("Customer snapshot already refreshed by a concurrent writer", "customer_id", c.ID)
	default:
		metrics.IncSnapshotWrite("error")
		s.logger.Error("Failed to persist customer snapshot",
			"customer_id", c.ID,
			"wallet", c.WalletAddress,
			"error", err)
	}
}

// CreateCustomer validates and stores a new customer, seeding its figures with
// one best-effort aggregation.
func (s *CustomerServiceImpl) CreateCustomer(ctx context.Context, req entity.CreateCustomerRequest) (*entity.CustomerView, error) {
	name := strings.TrimSpace(req.Name)
	address := strings.TrimSpace(req.ERC20Address)
	if name == "" || address == "" {
		return nil, entity.ValidationError("name and erc20Address are required")
	}
	if !utils.IsValidWalletAddress(address) {
		return nil, entity.ValidationError("invalid wallet address format: %s", address)
	}
	wallet := utils.NormalizeWalletAddress(address)

	existing, err := s.repo.GetByWallet(ctx, wallet)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("%w: %s", entity.ErrCustomerExists, wallet)
	case err != nil && !errors.Is(err, entity.ErrCustomerNotFound):
		return nil, fmt.Errorf("lookup customer by wallet: %w", err)
	}

	chains := utils.NormalizeList(req.Chains)
	if len(chains) == 0 {
		chains = s.defaultChains
	}
	protocols := utils.NormalizeList(req.Protocols)

	customer := entity.Customer{
		Name:          name,
		WalletAddress: wallet,
		Tag:           strings.TrimSpace(req.Tag),
		ChainsRaw:     utils.EncodeStringList(chains),
		ProtocolsRaw:  utils.EncodeStringList(protocols),
		Status:        entity.StatusUnknown,
		Email:         trimmedOrNil(req.Email),
		BTCWallet:     trimmedOrNil(req.BTCWallet),
	}

	snapshot, err := s.aggregator.Aggregate(ctx, entity.AggregateRequest{
		WalletAddress:    wallet,
		Chains:           chains,
		AllowedProtocols: protocols,
		Name:             name,
		Tag:              customer.Tag,
		BypassCache:      true,
	})
	if err != nil {
		s.logger.Warn("Initial collateral fetch failed, creating customer with defaults", "wallet", wallet, "error", err)
	} else {
		lastUpdate := snapshot.LastUpdate
		customer.TotalValue = snapshot.TotalValue
		customer.TotalDebt = snapshot.TotalDebt
		customer.HealthFactor = snapshot.HealthFactor
		customer.Status = entity.ClassifyStatus(snapshot.HealthFactor)
		customer.LastUpdate = &lastUpdate
	}

	created, err := s.repo.Create(ctx, customer)
	if err != nil {
		if errors.Is(err, entity.ErrCustomerExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}
	s.logger.Info("Customer created", "customer_id", created.ID, "wallet", wallet, "status", created.Status)

	view := persistedView(*created, chains, protocols)
	if snapshot != nil {
		view.Positions = snapshot.Positions
	}
	return &view, nil
}

// GetCustomer returns the persisted view of one customer without provider calls.
func (s *CustomerServiceImpl) GetCustomer(ctx context.Context, id string) (*entity.CustomerView, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := persistedView(*c, s.decodeChains(c.ChainsRaw), utils.DecodeStringList(c.ProtocolsRaw, []string{}))
	return &view, nil
}

// UpdateCustomer applies a field-level update.
func (s *CustomerServiceImpl) UpdateCustomer(ctx context.Context, id string, patch entity.CustomerPatch) (*entity.CustomerView, error) {
	if patch.IsEmpty() {
		return nil, entity.ValidationError("no fields to update")
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, entity.ValidationError("name cannot be empty")
		}
		patch.Name = &name
	}
	if patch.Tag != nil {
		tag := strings.TrimSpace(*patch.Tag)
		patch.Tag = &tag
	}
	if patch.Chains != nil {
		patch.Chains = utils.NormalizeList(patch.Chains)
		if len(patch.Chains) == 0 {
			return nil, entity.ValidationError("chains cannot be empty")
		}
	}
	if patch.Protocols != nil {
		patch.Protocols = utils.NormalizeList(patch.Protocols)
	}

	updated, err := s.repo.UpdateFields(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Customer updated", "customer_id", id)
	view := persistedView(*updated, s.decodeChains(updated.ChainsRaw), utils.DecodeStringList(updated.ProtocolsRaw, []string{}))
	return &view, nil
}

// DeleteCustomer removes a customer.
func (s *CustomerServiceImpl) DeleteCustomer(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Customer deleted", "customer_id", id)
	return nil
}

// RefreshCustomer forces a live refresh of a single customer.
func (s *CustomerServiceImpl) RefreshCustomer(ctx context.Context, id string) (*entity.CustomerView, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := s.buildView(ctx, *c, true, s.now().UTC())
	return &view, nil
}

func (s *CustomerServiceImpl) decodeChains(raw string) []string {
	chains := utils.DecodeStringList(raw, s.defaultChains)
	if len(chains) == 0 {
		return append([]string{}, s.defaultChains...)
	}
	return chains
}

func persistedView(c entity.Customer, chains, protocols []string) entity.CustomerView {
	return entity.CustomerView{
		ID:            c.ID,
		Name:          c.Name,
		ERC20Address:  c.WalletAddress,
		Tag:           c.Tag,
		TotalValue:    c.TotalValue,
		TotalDebt:     c.TotalDebt,
		HealthFactor:  c.HealthFactor,
		Positions:     []entity.Position{},
		LastUpdate:    c.LastUpdate,
		Email:         c.Email,
		BTCWallet:     c.BTCWallet,
		PositionValue: c.TotalValue,
		Status:        string(c.Status),
		Chains:        chains,
		Protocols:     protocols,
	}
}

func liveView(c entity.Customer, snapshot *entity.CollateralSnapshot, status entity.CustomerStatus, chains, protocols []string) entity.CustomerView {
	lastUpdate := snapshot.LastUpdate
	positions := snapshot.Positions
	if positions == nil {
		positions = []entity.Position{}
	}
	name, tag := c.Name, c.Tag
	if snapshot.Name != "" {
		name = snapshot.Name
	}
	if snapshot.Tag != "" {
		tag = snapshot.Tag
	}
	return entity.CustomerView{
		ID:            c.ID,
		Name:          name,
		ERC20Address:  c.WalletAddress,
		Tag:           tag,
		TotalValue:    snapshot.TotalValue,
		TotalDebt:     snapshot.TotalDebt,
		HealthFactor:  snapshot.HealthFactor,
		Positions:     positions,
		LastUpdate:    &lastUpdate,
		Email:         c.Email,
		BTCWallet:     c.BTCWallet,
		PositionValue: snapshot.TotalValue,
		Status:        string(status),
		Chains:        chains,
		Protocols:     protocols,
	}
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

var _ port.CustomerService = (*CustomerServiceImpl)(nil)
