package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"collateral_monitor/internal/app/port"
	"collateral_monitor/internal/client"
	"collateral_monitor/internal/domain/entity"
	debank "collateral_monitor/internal/entity"
	"collateral_monitor/internal/infrastructure/configloader"
	"collateral_monitor/internal/pkg/utils"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// collateralAggregatorImpl implements port.CollateralAggregator on top of DeBank.
type collateralAggregatorImpl struct {
	debankClient                client.DeBankClient
	logger                      port.Logger
	defaultChains               []string
	defaultLiquidationThreshold float64
	requestTimeout              time.Duration
	snapshots                   *cache.Cache // nil when caching is disabled
	inflight                    singleflight.Group
	now                         func() time.Time
}

// NewCollateralAggregator creates a new collateral aggregator.
func NewCollateralAggregator(dc client.DeBankClient, l port.Logger, cfg *configloader.Config) port.CollateralAggregator {
	a := &collateralAggregatorImpl{
		debankClient:                dc,
		logger:                      l,
		defaultChains:               utils.NormalizeList(cfg.Collateral.DefaultChains),
		defaultLiquidationThreshold: cfg.Collateral.DefaultLiquidationThreshold,
		requestTimeout:              time.Duration(cfg.DeBank.RequestTimeoutMillis) * time.Millisecond,
		now:                         time.Now,
	}
	if len(a.defaultChains) == 0 {
		a.defaultChains = []string{"eth"}
	}
	if a.defaultLiquidationThreshold <= 0 {
		a.defaultLiquidationThreshold = 0.9
	}
	if ttl := cfg.Collateral.SnapshotCacheTTLSeconds; ttl > 0 {
		a.snapshots = cache.New(time.Duration(ttl)*time.Second, 2*time.Duration(ttl)*time.Second)
	}
	return a
}

// Aggregate queries DeBank once for all requested chains and folds the
// returned protocols into a collateral snapshot.
func (a *collateralAggregatorImpl) Aggregate(ctx context.Context, req entity.AggregateRequest) (*entity.CollateralSnapshot, error) {
	wallet := utils.NormalizeWalletAddress(req.WalletAddress)
	chains := utils.NormalizeList(req.Chains)
	if len(chains) == 0 {
		chains = a.defaultChains
	}
	allowed := utils.NormalizeList(req.AllowedProtocols)
	key := snapshotKey(wallet, chains, allowed)

	if a.snapshots != nil && !req.BypassCache {
		if cached, ok := a.snapshots.Get(key); ok {
			a.logger.Debug("Serving cached collateral snapshot", "wallet", wallet)
			return withMetadata(cached.(*entity.CollateralSnapshot), req), nil
		}
	}

	// The shared call runs detached from the caller that started it; each
	// caller only stops waiting when its own context ends.
	ch := a.inflight.DoChan(key, func() (any, error) {
		callCtx := context.WithoutCancel(ctx)
		if a.requestTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, a.requestTimeout)
			defer cancel()
		}

		protocols, err := a.debankClient.GetComplexProtocolList(callCtx, wallet, chains)
		if err != nil {
			return nil, err
		}
		snapshot := a.buildSnapshot(wallet, protocols, allowed)
		if a.snapshots != nil {
			a.snapshots.Set(key, snapshot, cache.DefaultExpiration)
		}
		return snapshot, nil
	})

	var (
		result any
		err    error
		shared bool
	)
	select {
	case res := <-ch:
		result, err, shared = res.Val, res.Err, res.Shared
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		var providerErr *entity.ProviderError
		if !errors.As(err, &providerErr) {
			kind := entity.ProviderErrorTransport
			if errors.Is(err, context.DeadlineExceeded) {
				kind = entity.ProviderErrorTimeout
			}
			err = &entity.ProviderError{WalletAddress: wallet, Kind: kind, Err: err}
		}
		return nil, err
	}
	if shared {
		a.logger.Debug("Collateral aggregation shared with a concurrent caller", "wallet", wallet)
	}
	return withMetadata(result.(*entity.CollateralSnapshot), req), nil
}

func (a *collateralAggregatorImpl) buildSnapshot(wallet string, protocols []debank.ComplexProtocol, allowed []string) *entity.CollateralSnapshot {
	allowedSet := utils.ToSet(allowed)
	snapshot := &entity.CollateralSnapshot{
		WalletAddress: wallet,
		Positions:     make([]entity.Position, 0),
		LastUpdate:    a.now().UTC(),
	}

	for _, protocol := range protocols {
		if len(allowedSet) > 0 {
			if _, ok := allowedSet[strings.ToLower(protocol.ID)]; !ok {
				continue
			}
		}

		if len(protocol.PortfolioItemList) > 0 {
			for _, item := range protocol.PortfolioItemList {
				value := item.Stats.AssetUSDValue
				debt := item.Stats.DebtUSDValue
				snapshot.TotalValue += value
				snapshot.TotalDebt += debt
				if value == 0 && debt == 0 {
					continue
				}
				snapshot.Positions = append(snapshot.Positions, a.itemPosition(protocol, item))
			}
			continue
		}

		value := protocol.AssetUSDValue
		debt := protocol.DebtUSDValue
		snapshot.TotalValue += value
		snapshot.TotalDebt += debt
		if value == 0 && debt == 0 {
			continue
		}
		snapshot.Positions = append(snapshot.Positions, entity.Position{
			Asset:                entity.MixedAsset,
			Protocol:             protocol.ID,
			Chain:                protocol.Chain,
			CollateralValue:      value,
			DebtValue:            debt,
			LiquidationThreshold: a.defaultLiquidationThreshold,
		})
	}

	snapshot.HealthFactor = entity.ComputeHealthFactor(snapshot.TotalValue, snapshot.TotalDebt)
	a.logger.Debug("Built collateral snapshot",
		"wallet", wallet,
		"protocols", len(protocols),
		"positions", len(snapshot.Positions),
		"total_value", snapshot.TotalValue,
		"total_debt", snapshot.TotalDebt,
		"health_factor", snapshot.HealthFactor)
	return snapshot
}

func (a *collateralAggregatorImpl) itemPosition(protocol debank.ComplexProtocol, item debank.PortfolioItem) entity.Position {
	pos := entity.Position{
		Asset:                item.Name,
		Protocol:             protocol.ID,
		Chain:                protocol.Chain,
		CollateralValue:      item.Stats.AssetUSDValue,
		DebtValue:            item.Stats.DebtUSDValue,
		LiquidationThreshold: a.defaultLiquidationThreshold,
	}
	if len(item.Detail.SupplyTokenList) > 0 {
		supply := item.Detail.SupplyTokenList[0]
		if supply.Symbol != "" {
			pos.Asset = supply.Symbol
		}
		pos.CollateralAmount = supply.Amount
		pos.CollateralPrice = supply.Price
	}
	if len(item.Detail.BorrowTokenList) > 0 {
		borrow := item.Detail.BorrowTokenList[0]
		pos.DebtToken = borrow.Symbol
		pos.DebtAmount = borrow.Amount
	}
	if item.Detail.BorrowRate != nil {
		pos.BorrowAPR = *item.Detail.BorrowRate
	}
	if lt := item.Detail.LiquidationThreshold; lt != nil && *lt > 0 {
		pos.LiquidationThreshold = *lt
	}
	return pos
}

// withMetadata returns a copy of a shared snapshot carrying the caller's
// display metadata.
func withMetadata(s *entity.CollateralSnapshot, req entity.AggregateRequest) *entity.CollateralSnapshot {
	out := *s
	out.Positions = append(make([]entity.Position, 0, len(s.Positions)), s.Positions...)
	out.Name = req.Name
	out.Tag = req.Tag
	return &out
}

func snapshotKey(wallet string, chains, protocols []string) string {
	return wallet + "|" + strings.Join(chains, ",") + "|" + strings.Join(protocols, ",")
}
