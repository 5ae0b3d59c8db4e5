package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"collateral_monitor/internal/app/port"
	"collateral_monitor/internal/domain/entity"
	"collateral_monitor/internal/pkg/utils"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const customerColumns = `id, name, wallet_address, tag, chains, protocols, total_value, total_debt,
	health_factor, status, last_update, email, btc_wallet, created_at, updated_at`

// CustomerStore implements port.CustomerRepository using PostgreSQL.
type CustomerStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ port.CustomerRepository = (*CustomerStore)(nil)

// NewCustomerStore creates a new PostgreSQL-backed customer store.
func NewCustomerStore(db *sql.DB) *CustomerStore {
	return &CustomerStore{db: db, now: time.Now}
}

// Count returns the number of stored customers.
func (s *CustomerStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// List returns all customers, newest first.
func (s *CustomerStore) List(ctx context.Context) ([]entity.Customer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+customerColumns+` FROM customers ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []entity.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

// GetByID retrieves a customer by id.
func (s *CustomerStore) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return notFoundOnNoRows(scanCustomer(row))
}

// GetByWallet retrieves a customer by lowercase wallet address.
func (s *CustomerStore) GetByWallet(ctx context.Context, walletAddress string) (*entity.Customer, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE wallet_address = $1`, walletAddress)
	return notFoundOnNoRows(scanCustomer(row))
}

// Create inserts a new customer.
func (s *CustomerStore) Create(ctx context.Context, c entity.Customer) (*entity.Customer, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := s.now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = entity.StatusUnknown
	}
	if c.ChainsRaw == "" {
		c.ChainsRaw = utils.EncodeStringList([]string{"eth"})
	}
	if c.ProtocolsRaw == "" {
		c.ProtocolsRaw = utils.EncodeStringList(nil)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, wallet_address, tag, chains, protocols, total_value, total_debt,
			health_factor, status, last_update, email, btc_wallet, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, c.ID, c.Name, c.WalletAddress, c.Tag, c.ChainsRaw, c.ProtocolsRaw, c.TotalValue, c.TotalDebt,
		c.HealthFactor, string(c.Status), c.LastUpdate, c.Email, c.BTCWallet, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, fmt.Errorf("%w: %s", entity.ErrCustomerExists, c.WalletAddress)
		}
		return nil, err
	}
	return &c, nil
}

// UpdateSnapshot writes refreshed figures if last_update was not changed since
// the caller read the row.
func (s *CustomerStore) UpdateSnapshot(ctx context.Context, id string, expectedLastUpdate *time.Time, update entity.SnapshotUpdate) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET total_value = $2, total_debt = $3, health_factor = $4, status = $5, last_update = $6, updated_at = $7
		WHERE id = $1 AND last_update IS NOT DISTINCT FROM $8
	`, id, update.TotalValue, update.TotalDebt, update.HealthFactor, string(update.Status),
		update.LastUpdate.UTC(), s.now().UTC(), expectedLastUpdate)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return entity.ErrStaleWrite
	}
	return nil
}

// UpdateFields applies a field-level patch.
func (s *CustomerStore) UpdateFields(ctx context.Context, id string, patch entity.CustomerPatch) (*entity.Customer, error) {
	args := []any{id}
	var sets []string
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Tag != nil {
		set("tag", *patch.Tag)
	}
	if patch.Email != nil {
		set("email", nullIfBlank(*patch.Email))
	}
	if patch.BTCWallet != nil {
		set("btc_wallet", nullIfBlank(*patch.BTCWallet))
	}
	if patch.Chains != nil {
		set("chains", utils.EncodeStringList(patch.Chains))
	}
	if patch.Protocols != nil {
		set("protocols", utils.EncodeStringList(patch.Protocols))
	}
	set("updated_at", s.now().UTC())

	query := `UPDATE customers SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + customerColumns
	return notFoundOnNoRows(scanCustomer(s.db.QueryRowContext(ctx, query, args...)))
}

// Delete removes a customer.
func (s *CustomerStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %s", entity.ErrCustomerNotFound, id)
	}
	return nil
}

// Ping checks database connectivity.
func (s *CustomerStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*entity.Customer, error) {
	var (
		c          entity.Customer
		status     string
		chains     sql.NullString
		protocols  sql.NullString
		lastUpdate sql.NullTime
		email      sql.NullString
		btcWallet  sql.NullString
	)
	if err := row.Scan(&c.ID, &c.Name, &c.WalletAddress, &c.Tag, &chains, &protocols,
		&c.TotalValue, &c.TotalDebt, &c.HealthFactor, &status, &lastUpdate, &email, &btcWallet,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Status = entity.CustomerStatus(status)
	c.ChainsRaw = chains.String
	c.ProtocolsRaw = protocols.String
	if lastUpdate.Valid {
		t := lastUpdate.Time
		c.LastUpdate = &t
	}
	if email.Valid {
		c.Email = &email.String
	}
	if btcWallet.Valid {
		c.BTCWallet = &btcWallet.String
	}
	return &c, nil
}

func notFoundOnNoRows(c *entity.Customer, err error) (*entity.Customer, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrCustomerNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func nullIfBlank(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return strings.TrimSpace(v)
}
