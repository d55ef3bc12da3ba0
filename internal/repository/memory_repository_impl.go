package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/alimikegami/ticket-booking/payment-callback-service/internal/domain"
)

// InMemoryLedgerRepository backs local runs and tests. The mutex makes the
// check-and-insert a single step, the same guarantee ON CONFLICT gives in Postgres.
type InMemoryLedgerRepository struct {
	mu      sync.Mutex
	data    map[string]domain.LedgerEntry
	inserts int
}

func CreateInMemoryLedgerRepository() *InMemoryLedgerRepository {
	return &InMemoryLedgerRepository{data: make(map[string]domain.LedgerEntry)}
}

func (r *InMemoryLedgerRepository) GetLedgerEntryByTxnRef(ctx context.Context, txnRef string) (domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerEntry{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data[txnRef], nil
}

func (r *InMemoryLedgerRepository) InsertLedgerEntryIfAbsent(ctx context.Context, data domain.LedgerEntry) (domain.LedgerEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.LedgerEntry{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.data[data.TxnRef]; ok {
		return existing, false, nil
	}
	r.data[data.TxnRef] = data
	r.inserts++
	return data, true, nil
}

func (r *InMemoryLedgerRepository) GetUnpublishedLedgerEntries(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []domain.LedgerEntry
	for _, e := range r.data {
		if e.PublishedAt == nil {
			res = append(res, e)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].FirstSeenAt.Before(res[j].FirstSeenAt) })
	if limit > 0 && len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (r *InMemoryLedgerRepository) MarkLedgerEntryPublished(ctx context.Context, txnRef string, publishedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.data[txnRef]
	if !ok || e.PublishedAt != nil {
		return nil
	}
	at := publishedAt
	e.PublishedAt = &at
	r.data[txnRef] = e
	return nil
}

func (r *InMemoryLedgerRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len is the number of stored entries.
func (r *InMemoryLedgerRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// Inserts counts successful writes, including ones later published.
func (r *InMemoryLedgerRepository) Inserts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inserts
}
