package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	domain "collateral_monitor/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWallet = "0xd8da6bf26964af9d7eed9e03e53415d37aa96045"

func newTestClient(url string, timeout time.Duration) DeBankClient {
	return NewDeBankClient(url, "test-key", timeout, nil, zap.NewNop())
}

func TestGetComplexProtocolList_Success(t *testing.T) {
	var gotPath, gotID, gotChains, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotID = r.URL.Query().Get("id")
		gotChains = r.URL.Query().Get("chain_ids")
		gotKey = r.Header.Get("AccessKey")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"aave3","chain":"eth","name":"Aave V3","asset_usd_value":3000,"debt_usd_value":1000,
			 "portfolio_item_list":[{"name":"Lending","stats":{"asset_usd_value":3000,"debt_usd_value":1000,"net_usd_value":2000},
			   "detail":{"supply_token_list":[{"symbol":"WETH","amount":1.5,"price":2000}],"health_rate":2.1}}]}
		]`))
	}))
	defer srv.Close()

	protocols, err := newTestClient(srv.URL, time.Second).GetComplexProtocolList(context.Background(), testWallet, []string{"eth", "arb"})
	require.NoError(t, err)

	assert.Equal(t, "/v1/user/all_complex_protocol_list", gotPath)
	assert.Equal(t, testWallet, gotID)
	assert.Equal(t, "eth,arb", gotChains)
	assert.Equal(t, "test-key", gotKey)

	require.Len(t, protocols, 1)
	assert.Equal(t, "aave3", protocols[0].ID)
	require.Len(t, protocols[0].PortfolioItemList, 1)
	item := protocols[0].PortfolioItemList[0]
	assert.InDelta(t, 3000, item.Stats.AssetUSDValue, 1e-9)
	require.Len(t, item.Detail.SupplyTokenList, 1)
	assert.Equal(t, "WETH", item.Detail.SupplyTokenList[0].Symbol)
}

func TestGetComplexProtocolList_EmptyArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	protocols, err := newTestClient(srv.URL, time.Second).GetComplexProtocolList(context.Background(), testWallet, []string{"eth"})
	require.NoError(t, err)
	assert.Empty(t, protocols)
}

func TestGetComplexProtocolList_Errors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   domain.ProviderErrorKind
		wantStatus int
	}{
		{"non-2xx", http.StatusTooManyRequests, `{"message":"slow down"}`, domain.ProviderErrorStatus, http.StatusTooManyRequests},
		{"malformed body", http.StatusOK, `{not json`, domain.ProviderErrorDecode, 0},
		{"object instead of array", http.StatusOK, `{"error":"x"}`, domain.ProviderErrorDecode, 0},
		{"null body", http.StatusOK, `null`, domain.ProviderErrorDecode, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL, time.Second).GetComplexProtocolList(context.Background(), testWallet, []string{"eth"})
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrProviderUnavailable)

			var providerErr *domain.ProviderError
			require.ErrorAs(t, err, &providerErr)
			assert.Equal(t, tt.wantKind, providerErr.Kind)
			assert.Equal(t, tt.wantStatus, providerErr.StatusCode)
			assert.Equal(t, testWallet, providerErr.WalletAddress)
		})
	}
}

func TestGetComplexProtocolList_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestClient(srv.URL, time.Second).GetComplexProtocolList(ctx, testWallet, []string{"eth"})
	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, domain.ProviderErrorTimeout, providerErr.Kind)
}

func TestGetComplexProtocolList_CancelledContextSkipsRequest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(srv.URL, time.Second).GetComplexProtocolList(ctx, testWallet, []string{"eth"})
	var providerErr *domain.ProviderError
	require.ErrorAs(t, err, &providerErr)
	assert.Equal(t, domain.ProviderErrorTransport, providerErr.Kind)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, hits.Load())
}

func TestGetComplexProtocolList_CancelledMidRequest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()
	defer cancel()

	_, err := newTestClient(srv.URL, time.Second).GetComplexProtocolList(ctx, testWallet, []string{"eth"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestGetComplexProtocolList_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(url, time.Second).GetComplexProtocolList(context.Background(), testWallet, []string{"eth"})
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestGetComplexProtocolList_RequiresChains(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1", time.Second).GetComplexProtocolList(context.Background(), testWallet, nil)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
