package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"collateral_monitor/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallet = "0x1111111111111111111111111111111111111111"

func TestCreateAndGet(t *testing.T) {
	s := NewCustomerStore()
	ctx := context.Background()

	c, err := s.Create(ctx, entity.Customer{Name: "Acme", WalletAddress: "0x1111111111111111111111111111111111111111"})
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, entity.StatusUnknown, c.Status)
	assert.Equal(t, `["eth"]`, c.ChainsRaw)
	assert.Equal(t, `[]`, c.ProtocolsRaw)

	byID, err := s.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Name, byID.Name)

	byWallet, err := s.GetByWallet(ctx, wallet)
	require.NoError(t, err)
	assert.Equal(t, c.ID, byWallet.ID)

	_, err = s.Create(ctx, entity.Customer{Name: "Dup", WalletAddress: wallet})
	assert.ErrorIs(t, err, entity.ErrCustomerExists)

	_, err = s.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, entity.ErrCustomerNotFound)
	_, err = s.GetByWallet(ctx, "0x9999999999999999999999999999999999999999")
	assert.ErrorIs(t, err, entity.ErrCustomerNotFound)
}

func TestListNewestFirst(t *testing.T) {
	s := NewCustomerStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.Create(ctx, entity.Customer{Name: "old", WalletAddress: wallet, CreatedAt: base})
	require.NoError(t, err)
	_, err = s.Create(ctx, entity.Customer{Name: "new", WalletAddress: "0x2222222222222222222222222222222222222222", CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)

	customers, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "new", customers[0].Name)
	assert.Equal(t, "old", customers[1].Name)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpdateSnapshotIsConditional(t *testing.T) {
	s := NewCustomerStore()
	ctx := context.Background()
	c, err := s.Create(ctx, entity.Customer{Name: "Acme", WalletAddress: wallet})
	require.NoError(t, err)

	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	update := entity.SnapshotUpdate{TotalValue: 100, TotalDebt: 50, HealthFactor: 2, Status: entity.StatusActive, LastUpdate: t1}
	require.NoError(t, s.UpdateSnapshot(ctx, c.ID, nil, update))

	// A second writer that read the row before the first write loses.
	assert.ErrorIs(t, s.UpdateSnapshot(ctx, c.ID, nil, update), entity.ErrStaleWrite)

	update.TotalValue = 200
	update.LastUpdate = t1.Add(time.Minute)
	require.NoError(t, s.UpdateSnapshot(ctx, c.ID, &t1, update))

	got, err := s.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.InDelta(t, 200, got.TotalValue, 1e-9)
	assert.Equal(t, entity.StatusActive, got.Status)
	require.NotNil(t, got.LastUpdate)
	assert.True(t, got.LastUpdate.Equal(t1.Add(time.Minute)))

	assert.ErrorIs(t, s.UpdateSnapshot(ctx, "missing", nil, update), entity.ErrStaleWrite)
}

func TestConcurrentSnapshotWritesOnlyOneWins(t *testing.T) {
	s := NewCustomerStore()
	ctx := context.Background()
	c, err := s.Create(ctx, entity.Customer{Name: "Acme", WalletAddress: wallet})
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := s.UpdateSnapshot(ctx, c.ID, nil, entity.SnapshotUpdate{TotalValue: float64(i), LastUpdate: time.Now()})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestUpdateFields(t *testing.T) {
	s := NewCustomerStore()
	ctx := context.Background()
	email := "ops@acme.io"
	c, err := s.Create(ctx, entity.Customer{Name: "Acme", WalletAddress: wallet, Email: &email})
	require.NoError(t, err)

	name := "Renamed"
	blank := ""
	updated, err := s.UpdateFields(ctx, c.ID, entity.CustomerPatch{
		Name:      &name,
		Email:     &blank,
		Protocols: []string{"aave3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Nil(t, updated.Email)
	assert.Equal(t, `["aave3"]`, updated.ProtocolsRaw)
	assert.Equal(t, `["eth"]`, updated.ChainsRaw)

	_, err = s.UpdateFields(ctx, "missing", entity.CustomerPatch{Name: &name})
	assert.ErrorIs(t, err, entity.ErrCustomerNotFound)
}

func TestReturnedCustomersAreCopies(t *testing.T) {
	s := NewCustomerStore()
	ctx := context.Background()
	email := "ops@acme.io"
	c, err := s.Create(ctx, entity.Customer{Name: "Acme", WalletAddress: wallet, Email: &email})
	require.NoError(t, err)

	*c.Email = "changed"
	got, err := s.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "ops@acme.io", *got.Email)
}

func TestDelete(t *testing.T) {
	s := NewCustomerStore()
	ctx := context.Background()
	c, err := s.Create(ctx, entity.Customer{Name: "Acme", WalletAddress: wallet})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, c.ID))
	assert.ErrorIs(t, s.Delete(ctx, c.ID), entity.ErrCustomerNotFound)

	// The wallet can be registered again after deletion.
	_, err = s.Create(ctx, entity.Customer{Name: "Acme", WalletAddress: wallet})
	assert.NoError(t, err)
	assert.NoError(t, s.Ping(ctx))
}
