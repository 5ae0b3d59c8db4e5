// Package memory provides an in-process customer store for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"collateral_monitor/internal/app/port"
	"collateral_monitor/internal/domain/entity"
	"collateral_monitor/internal/pkg/utils"

	"github.com/google/uuid"
)

type record struct {
	customer entity.Customer
	seq      int64
}

// CustomerStore implements port.CustomerRepository in memory.
type CustomerStore struct {
	mu       sync.RWMutex
	byID     map[string]*record
	byWallet map[string]string
	seq      int64
	now      func() time.Time
}

var _ port.CustomerRepository = (*CustomerStore)(nil)

// NewCustomerStore creates an empty in-memory customer store.
func NewCustomerStore() *CustomerStore {
	return &CustomerStore{
		byID:     make(map[string]*record),
		byWallet: make(map[string]string),
		now:      time.Now,
	}
}

func (s *CustomerStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

func (s *CustomerStore) List(_ context.Context) ([]entity.Customer, error) {
	s.mu.RLock()
	records := make([]*record, 0, len(s.byID))
	for _, r := range s.byID {
		records = append(records, r)
	}
	s.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i].customer.CreatedAt, records[j].customer.CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return records[i].seq > records[j].seq
	})

	result := make([]entity.Customer, 0, len(records))
	for _, r := range records {
		result = append(result, clone(r.customer))
	}
	return result, nil
}

func (s *CustomerStore) GetByID(_ context.Context, id string) (*entity.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, entity.ErrCustomerNotFound
	}
	c := clone(r.customer)
	return &c, nil
}

func (s *CustomerStore) GetByWallet(ctx context.Context, walletAddress string) (*entity.Customer, error) {
	s.mu.RLock()
	id, ok := s.byWallet[strings.ToLower(walletAddress)]
	s.mu.RUnlock()
	if !ok {
		return nil, entity.ErrCustomerNotFound
	}
	return s.GetByID(ctx, id)
}

func (s *CustomerStore) Create(_ context.Context, c entity.Customer) (*entity.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wallet := strings.ToLower(c.WalletAddress)
	if _, exists := s.byWallet[wallet]; exists {
		return nil, fmt.Errorf("%w: %s", entity.ErrCustomerExists, wallet)
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.WalletAddress = wallet
	if c.Status == "" {
		c.Status = entity.StatusUnknown
	}
	if c.ChainsRaw == "" {
		c.ChainsRaw = utils.EncodeStringList([]string{"eth"})
	}
	if c.ProtocolsRaw == "" {
		c.ProtocolsRaw = utils.EncodeStringList(nil)
	}

	s.seq++
	s.byID[c.ID] = &record{customer: clone(c), seq: s.seq}
	s.byWallet[wallet] = c.ID
	out := clone(c)
	return &out, nil
}

func (s *CustomerStore) UpdateSnapshot(_ context.Context, id string, expectedLastUpdate *time.Time, update entity.SnapshotUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok || !sameInstant(r.customer.LastUpdate, expectedLastUpdate) {
		return entity.ErrStaleWrite
	}
	lastUpdate := update.LastUpdate.UTC()
	r.customer.TotalValue = update.TotalValue
	r.customer.TotalDebt = update.TotalDebt
	r.customer.HealthFactor = update.HealthFactor
	r.customer.Status = update.Status
	r.customer.LastUpdate = &lastUpdate
	r.customer.UpdatedAt = s.now().UTC()
	return nil
}

func (s *CustomerStore) UpdateFields(_ context.Context, id string, patch entity.CustomerPatch) (*entity.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, entity.ErrCustomerNotFound
	}
	c := &r.customer
	if patch.Name != nil {
		c.Name = *patch.Name
	}
	if patch.Tag != nil {
		c.Tag = *patch.Tag
	}
	if patch.Email != nil {
		c.Email = blankToNil(*patch.Email)
	}
	if patch.BTCWallet != nil {
		c.BTCWallet = blankToNil(*patch.BTCWallet)
	}
	if patch.Chains != nil {
		c.ChainsRaw = utils.EncodeStringList(patch.Chains)
	}
	if patch.Protocols != nil {
		c.ProtocolsRaw = utils.EncodeStringList(patch.Protocols)
	}
	c.UpdatedAt = s.now().UTC()

	out := clone(*c)
	return &out, nil
}

func (s *CustomerStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %s", entity.ErrCustomerNotFound, id)
	}
	delete(s.byWallet, r.customer.WalletAddress)
	delete(s.byID, id)
	return nil
}

func (s *CustomerStore) Ping(_ context.Context) error {
	return nil
}

// clone copies pointer fields so callers never share state with the store.
func clone(c entity.Customer) entity.Customer {
	if c.LastUpdate != nil {
		t := *c.LastUpdate
		c.LastUpdate = &t
	}
	if c.Email != nil {
		e := *c.Email
		c.Email = &e
	}
	if c.BTCWallet != nil {
		b := *c.BTCWallet
		c.BTCWallet = &b
	}
	return c
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func blankToNil(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
