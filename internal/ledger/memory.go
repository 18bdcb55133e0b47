package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clubops/memberbill/internal/errors"
	"github.com/clubops/memberbill/internal/metrics"
	"github.com/clubops/memberbill/internal/models"
)

// InMemoryStore implements Store with an in-process map. Used when no
// database is configured and throughout the unit tests.
type InMemoryStore struct {
	mu  sync.RWMutex
	txs map[string]models.Transaction
}

// NewInMemoryStore creates a new in-memory ledger store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{txs: make(map[string]models.Transaction)}
}

func (s *InMemoryStore) Record(ctx context.Context, tx *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Same guard the postgres partial unique index provides.
	for _, existing := range s.txs {
		if existing.ClubID == tx.ClubID && existing.MemberID == tx.MemberID &&
			existing.Period == tx.Period && existing.Status != models.StatusFailed &&
			tx.Status != models.StatusFailed {
			metrics.RecordLedgerConflict()
			return errors.ErrDuplicateCharge
		}
	}

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now

	s.txs[tx.ID] = *tx
	return nil
}

func (s *InMemoryStore) FindByCorrelationID(ctx context.Context, id string) ([]models.Transaction, error) {
	if id == "" {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.Transaction
	for _, tx := range s.txs {
		for _, cid := range tx.CorrelationIDs() {
			if cid == id {
				result = append(result, tx)
				break
			}
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (s *InMemoryStore) HasOpenOrSettled(ctx context.Context, clubID, memberID string, period models.Period) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.txs {
		if tx.ClubID == clubID && tx.MemberID == memberID && tx.Period == period &&
			tx.Status != models.StatusFailed {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) UpdateStatus(ctx context.Context, txID string, status models.TransactionStatus, upd Update) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.txs[txID]
	if !ok {
		return false, nil
	}
	if !tx.Status.CanTransitionTo(status) {
		return false, nil
	}

	tx.Status = status
	if upd.PaymentIntentID != "" {
		tx.PaymentIntentID = upd.PaymentIntentID
	}
	if upd.InvoiceID != "" {
		tx.InvoiceID = upd.InvoiceID
	}
	if upd.SettledMinorUnits > 0 {
		tx.SettledMinorUnits = upd.SettledMinorUnits
	}
	if upd.FailureReason != "" {
		tx.FailureReason = upd.FailureReason
	}
	tx.UpdatedAt = time.Now().UTC()

	s.txs[txID] = tx
	return true, nil
}

func (s *InMemoryStore) Health(ctx context.Context) error {
	return nil
}

// Get returns a copy of the entry, for tests.
func (s *InMemoryStore) Get(id string) (models.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tx, ok := s.txs[id]
	return tx, ok
}
