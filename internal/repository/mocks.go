package repository

import (
	"context"
	"time"

	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/domain"
	"github.com/stretchr/testify/mock"
)

type LedgerRepositoryMock struct {
	mock.Mock
}

func (m *LedgerRepositoryMock) GetLedgerEntryByTxnRef(ctx context.Context, txnRef string) (domain.LedgerEntry, error) {
	ret := m.Called(ctx, txnRef)
	return ret.Get(0).(domain.LedgerEntry), ret.Error(1)
}

func (m *LedgerRepositoryMock) InsertLedgerEntryIfAbsent(ctx context.Context, data domain.LedgerEntry) (domain.LedgerEntry, bool, error) {
	ret := m.Called(ctx, data)
	return ret.Get(0).(domain.LedgerEntry), ret.Bool(1), ret.Error(2)
}

func (m *LedgerRepositoryMock) GetUnpublishedLedgerEntries(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	ret := m.Called(ctx, limit)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}
	return ret.Get(0).([]domain.LedgerEntry), ret.Error(1)
}

func (m *LedgerRepositoryMock) MarkLedgerEntryPublished(ctx context.Context, txnRef string, publishedAt time.Time) error {
	ret := m.Called(ctx, txnRef, publishedAt)
	return ret.Error(0)
}

func (m *LedgerRepositoryMock) Ping(ctx context.Context) error {
	ret := m.Called(ctx)
	return ret.Error(0)
}
