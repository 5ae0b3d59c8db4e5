package entity

// CustomerStatus is the health classification of a customer.
type CustomerStatus string

const (
	StatusActive   CustomerStatus = "active"
	StatusWarning  CustomerStatus = "warning"
	StatusCritical CustomerStatus = "critical"
	// StatusUnknown is used for customers that never had a live snapshot.
	StatusUnknown CustomerStatus = "unknown"
)

// HealthFactorSentinel stands for unlimited headroom: collateral with no debt.
const HealthFactorSentinel = 999.0

const (
	warningThreshold  = 1.5
	criticalThreshold = 1.0
)

// ComputeHealthFactor returns totalValue/totalDebt, or the sentinel when there
// is collateral but no debt, or zero when both are zero.
func ComputeHealthFactor(totalValue, totalDebt float64) float64 {
	if totalDebt > 0 {
		return totalValue / totalDebt
	}
	if totalValue > 0 {
		return HealthFactorSentinel
	}
	return 0
}

// ClassifyStatus maps a health factor onto the three-tier status.
func ClassifyStatus(healthFactor float64) CustomerStatus {
	switch {
	case healthFactor > warningThreshold:
		return StatusActive
	case healthFactor > criticalThreshold:
		return StatusWarning
	default:
		return StatusCritical
	}
}
