package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	domain "collateral_monitor/internal/domain/entity"
	"collateral_monitor/internal/entity"
	"collateral_monitor/internal/pkg/metrics"

	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const complexProtocolListPath = "/v1/user/all_complex_protocol_list"

// DeBankClient defines the interface for interacting with the DeBank Pro OpenAPI.
type DeBankClient interface {
	GetComplexProtocolList(ctx context.Context, walletAddress string, chainIDs []string) ([]entity.ComplexProtocol, error)
}

// debankClientImpl is the implementation of DeBankClient.
type debankClientImpl struct {
	client    *fasthttp.Client
	baseURL   string
	accessKey string
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewDeBankClient creates a new instance of debankClientImpl. A nil limiter
// disables client-side rate limiting.
func NewDeBankClient(baseURL, accessKey string, timeout time.Duration, limiter *rate.Limiter, logger *zap.Logger) DeBankClient {
	return &debankClientImpl{
		client:    &fasthttp.Client{Name: "collateral-monitor"},
		baseURL:   strings.TrimRight(baseURL, "/"),
		accessKey: accessKey,
		timeout:   timeout,
		limiter:   limiter,
		logger:    logger.Named("DeBankClient"),
	}
}

// GetComplexProtocolList fetches every protocol position of a wallet across
// all requested chains in a single request.
func (c *debankClientImpl) GetComplexProtocolList(ctx context.Context, walletAddress string, chainIDs []string) ([]entity.ComplexProtocol, error) {
	if len(chainIDs) == 0 {
		return nil, &domain.ProviderError{WalletAddress: walletAddress, Kind: domain.ProviderErrorTransport, Err: errors.New("chainIDs cannot be empty")}
	}

	start := time.Now()
	protocols, err := c.fetch(ctx, walletAddress, chainIDs)
	outcome := "ok"
	var providerErr *domain.ProviderError
	if errors.As(err, &providerErr) {
		outcome = string(providerErr.Kind)
	}
	metrics.ObserveProviderRequest(outcome, time.Since(start))
	return protocols, err
}

func (c *debankClientImpl) fetch(ctx context.Context, walletAddress string, chainIDs []string) ([]entity.ComplexProtocol, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Warn("Rate limiter wait aborted", zap.String("wallet", walletAddress), zap.Error(err))
			return nil, &domain.ProviderError{WalletAddress: walletAddress, Kind: domain.ProviderErrorRateLimit, Err: err}
		}
	}

	query := url.Values{}
	query.Set("id", walletAddress)
	query.Set("chain_ids", strings.Join(chainIDs, ","))
	requestURL := c.baseURL + complexProtocolListPath + "?" + query.Encode()

	c.logger.Debug("Requesting complex protocol list from DeBank", zap.String("url", requestURL))

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("AccessKey", c.accessKey)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	// fasthttp only honours deadlines, so cancellation is checked around the call.
	err := ctx.Err()
	if err == nil {
		if deadline, ok := ctx.Deadline(); ok {
			err = c.client.DoDeadline(req, resp, deadline)
		} else {
			err = c.client.DoTimeout(req, resp, c.timeout)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
	}
	if err != nil {
		kind := domain.ProviderErrorTransport
		if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, fasthttp.ErrDialTimeout) || errors.Is(err, context.DeadlineExceeded) {
			kind = domain.ProviderErrorTimeout
		}
		c.logger.Error("Failed to execute request to DeBank",
			zap.String("wallet", walletAddress),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return nil, &domain.ProviderError{WalletAddress: walletAddress, Kind: kind, Err: err}
	}

	rawBody := resp.Body()

	if status := resp.StatusCode(); status < 200 || status >= 300 {
		c.logger.Error("DeBank API request failed",
			zap.String("wallet", walletAddress),
			zap.Int("statusCode", status),
			zap.ByteString("responseBody", rawBody),
		)
		return nil, &domain.ProviderError{
			WalletAddress: walletAddress,
			Kind:          domain.ProviderErrorStatus,
			StatusCode:    status,
			Err:           fmt.Errorf("unexpected status %d", status),
		}
	}

	var protocols []entity.ComplexProtocol
	if err := json.Unmarshal(rawBody, &protocols); err != nil {
		c.logger.Error("Failed to unmarshal DeBank response into []ComplexProtocol",
			zap.String("wallet", walletAddress),
			zap.ByteString("responseBody", rawBody),
			zap.Error(err),
		)
		return nil, &domain.ProviderError{WalletAddress: walletAddress, Kind: domain.ProviderErrorDecode, Err: err}
	}
	if protocols == nil {
		// A literal null body is not a protocol list.
		return nil, &domain.ProviderError{WalletAddress: walletAddress, Kind: domain.ProviderErrorDecode, Err: errors.New("response body is not a JSON array")}
	}

	c.logger.Debug("Successfully unmarshalled DeBank response",
		zap.String("wallet", walletAddress),
		zap.Int("protocolCount", len(protocols)))
	return protocols, nil
}
