package handlers

import (
	"context"
	"net/url"

	"gw-ipn-relay/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type MockIngestion struct {
	mock.Mock
}

func (m *MockIngestion) Ingest(ctx context.Context, rawBody []byte, values url.Values) (models.IngestOutcome, error) {
	args := m.Called(ctx, rawBody, values)
	return args.Get(0).(models.IngestOutcome), args.Error(1)
}

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Balance(ctx context.Context) (*models.BalanceSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BalanceSummary), args.Error(1)
}

func (m *MockLedger) CashedOutBy(ctx context.Context, principal string) (decimal.Decimal, error) {
	args := m.Called(ctx, principal)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedger) Recent(ctx context.Context, limit int) ([]models.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Transaction), args.Error(1)
}

func (m *MockLedger) Status(ctx context.Context) (*models.SystemStatus, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SystemStatus), args.Error(1)
}

func (m *MockLedger) Fee(ctx context.Context) (decimal.Decimal, error) {
	args := m.Called(ctx)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockLedger) SetFee(ctx context.Context, fee decimal.Decimal) error {
	args := m.Called(ctx, fee)
	return args.Error(0)
}
