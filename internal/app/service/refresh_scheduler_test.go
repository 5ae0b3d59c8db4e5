package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"collateral_monitor/internal/domain/entity"
	"collateral_monitor/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNewRefreshScheduler_InvalidSchedule(t *testing.T) {
	_, err := NewRefreshScheduler(new(mockCustomerService), logger.Discard(), "not a schedule", 0)
	assert.Error(t, err)
}

func TestRefreshScheduler_RunOnce(t *testing.T) {
	svc := new(mockCustomerService)
	svc.On("ListCustomers", mock.Anything, false).Return(&entity.CustomerList{Count: 2, Source: entity.SourceDeBank}, nil).Once()

	s, err := NewRefreshScheduler(svc, logger.Discard(), "@every 1h", time.Second)
	require.NoError(t, err)

	s.RunOnce(context.Background())
	svc.AssertExpectations(t)
}

func TestRefreshScheduler_RunOnceToleratesErrors(t *testing.T) {
	svc := new(mockCustomerService)
	svc.On("ListCustomers", mock.Anything, false).Return(nil, errors.New("db down")).Once()

	s, err := NewRefreshScheduler(svc, logger.Discard(), "@every 1h", 0)
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.RunOnce(context.Background()) })
	svc.AssertExpectations(t)
}

func TestRefreshScheduler_StartStop(t *testing.T) {
	s, err := NewRefreshScheduler(new(mockCustomerService), logger.Discard(), "@every 1h", 0)
	require.NoError(t, err)

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
