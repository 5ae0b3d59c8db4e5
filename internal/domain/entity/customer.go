package entity

import "time"

// Customer is a persisted customer record keyed by its EVM wallet.
type Customer struct {
	ID            string
	Name          string
	WalletAddress string // always lowercase, 0x + 40 hex chars
	Tag           string
	// ChainsRaw and ProtocolsRaw hold the serialized list columns as stored.
	ChainsRaw    string
	ProtocolsRaw string
	TotalValue   float64
	TotalDebt    float64
	HealthFactor float64
	Status       CustomerStatus
	LastUpdate   *time.Time
	Email        *string
	BTCWallet    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CustomerPatch carries a field-level update. Nil fields are left untouched.
type CustomerPatch struct {
	Name      *string
	Tag       *string
	Email     *string
	BTCWallet *string
	Chains    []string
	Protocols []string
}

// IsEmpty reports whether the patch changes nothing.
func (p CustomerPatch) IsEmpty() bool {
	return p.Name == nil && p.Tag == nil && p.Email == nil && p.BTCWallet == nil &&
		p.Chains == nil && p.Protocols == nil
}

// SnapshotUpdate is the write-back payload produced by a successful refresh.
type SnapshotUpdate struct {
	TotalValue   float64
	TotalDebt    float64
	HealthFactor float64
	Status       CustomerStatus
	LastUpdate   time.Time
}

// CustomerView is the client-facing representation of a customer.
type CustomerView struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	ERC20Address  string     `json:"erc20Address"`
	Tag           string     `json:"tag"`
	TotalValue    float64    `json:"totalValue"`
	TotalDebt     float64    `json:"totalDebt"`
	HealthFactor  float64    `json:"healthFactor"`
	Positions     []Position `json:"positions"`
	LastUpdate    *time.Time `json:"lastUpdate"`
	Email         *string    `json:"email"`
	BTCWallet     *string    `json:"btcWallet"`
	PositionValue float64    `json:"positionValue"`
	Status        string     `json:"status"`
	Chains        []string   `json:"chains"`
	Protocols     []string   `json:"protocols"`
	Error         string     `json:"error,omitempty"`
}

// CustomerList is the result of a full read-model build.
type CustomerList struct {
	Customers []CustomerView `json:"customers"`
	Count     int            `json:"count"`
	Total     int            `json:"total"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
}

// Sources reported in CustomerList.Source.
const (
	SourceDatabase = "database"
	SourceDeBank   = "debank"
)

// CreateCustomerRequest is the input of customer creation.
type CreateCustomerRequest struct {
	Name         string   `json:"name"`
	ERC20Address string   `json:"erc20Address"`
	Tag          string   `json:"tag"`
	Chains       []string `json:"chains"`
	Protocols    []string `json:"protocols"`
	Email        *string  `json:"email"`
	BTCWallet    *string  `json:"btcWallet"`
}
