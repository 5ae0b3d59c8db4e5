package port

import (
	"context"

	"collateral_monitor/internal/domain/entity"
)

// CollateralAggregator builds a live collateral snapshot for a wallet.
// Implementations must return a *entity.ProviderError instead of a degraded
// snapshot when the position provider cannot be used.
type CollateralAggregator interface {
	Aggregate(ctx context.Context, req entity.AggregateRequest) (*entity.CollateralSnapshot, error)
}
