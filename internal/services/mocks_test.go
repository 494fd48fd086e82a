package services

import (
	"context"

	"github.com/promptcraft/backend/internal/models"
	"github.com/stretchr/testify/mock"
)

type MockCreditor struct {
	mock.Mock
}

func (m *MockCreditor) Credit(ctx context.Context, req CreditRequest) (*CreditResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CreditResult), args.Error(1)
}

type MockBalanceChecker struct {
	mock.Mock
}

func (m *MockBalanceChecker) HasSufficient(ctx context.Context, userID string, amount int64) (*SufficiencyResult, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SufficiencyResult), args.Error(1)
}

func (m *MockBalanceChecker) Deduct(ctx context.Context, userID string, amount int64, description string) (*DeductResult, error) {
	args := m.Called(ctx, userID, amount, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DeductResult), args.Error(1)
}

type MockReconciliationRecorder struct {
	mock.Mock
}

func (m *MockReconciliationRecorder) SaveReconciliation(ctx context.Context, entry *models.ReconciliationEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
