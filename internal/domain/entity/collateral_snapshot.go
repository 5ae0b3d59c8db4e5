package entity

import "time"

// CollateralSnapshot aggregates every position discovered for one wallet.
type CollateralSnapshot struct {
	WalletAddress string     `json:"walletAddress"`
	TotalValue    float64    `json:"totalValue"`
	TotalDebt     float64    `json:"totalDebt"`
	HealthFactor  float64    `json:"healthFactor"`
	Positions     []Position `json:"positions"`
	Name          string     `json:"name"`
	Tag           string     `json:"tag"`
	LastUpdate    time.Time  `json:"lastUpdate"`
}

// Position is one collateral/debt leg on a specific chain and protocol.
type Position struct {
	Asset                string  `json:"asset"`
	Protocol             string  `json:"protocol"`
	Chain                string  `json:"chain"`
	CollateralAmount     float64 `json:"collateralAmount"`
	CollateralPrice      float64 `json:"collateralPrice"`
	CollateralValue      float64 `json:"collateralValue"`
	DebtToken            string  `json:"debtToken"`
	DebtAmount           float64 `json:"debtAmount"`
	DebtValue            float64 `json:"debtValue"`
	BorrowAPR            float64 `json:"borrowApr"`
	LiquidationThreshold float64 `json:"liquidationThreshold"`
}

// MixedAsset is the asset symbol of a position synthesized from protocol-level totals.
const MixedAsset = "MIXED"

// AggregateRequest describes one aggregation call.
type AggregateRequest struct {
	WalletAddress    string
	Chains           []string
	AllowedProtocols []string
	Name             string
	Tag              string
	// BypassCache forces a provider call even when a cached snapshot exists.
	BypassCache bool
}
