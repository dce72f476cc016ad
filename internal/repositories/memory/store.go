// Package memory is an in-process implementation of repositories.Store.
//
// Each account has its own lock, held by a transaction from LockByIDs until
// commit or rollback. Writes made inside a transaction are buffered and become
// visible to other callers all at once when the transaction commits.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	apperrors "fxwallet/internal/errors"
	"fxwallet/internal/models"
	"fxwallet/internal/repositories"

	"github.com/shopspring/decimal"
)

// Store holds committed state. It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	accounts   map[uint]*models.Account
	byUser     map[uint]uint
	txs        map[uint]*models.Transaction
	byRef      map[string]uint
	currencies map[string]models.Currency
	locks      map[uint]chan struct{}
	nextAcctID uint
	nextTxID   uint
}

var (
	_ repositories.Store = (*Store)(nil)
	_ repositories.Store = (*txStore)(nil)
)

func New() *Store {
	return &Store{
		accounts:   make(map[uint]*models.Account),
		byUser:     make(map[uint]uint),
		txs:        make(map[uint]*models.Transaction),
		byRef:      make(map[string]uint),
		currencies: make(map[string]models.Currency),
		locks:      make(map[uint]chan struct{}),
	}
}

func (s *Store) Accounts() repositories.AccountRepository {
	return &accountRepo{root: s}
}

func (s *Store) Transactions() repositories.TransactionRepository {
	return &transactionRepo{root: s}
}

func (s *Store) Currencies() repositories.CurrencyRepository {
	return &currencyRepo{root: s}
}

func (s *Store) ExecuteInTransaction(ctx context.Context, fn func(repositories.Store) error) error {
	if err := ctx.Err(); err != nil {
		return transient(err)
	}

	tx := newTxStore(s)
	defer tx.release()

	if err := fn(tx); err != nil {
		if _, ok := apperrors.As(err); !ok && ctx.Err() != nil {
			return transient(err)
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		return transient(err)
	}
	return tx.commit()
}

func transient(err error) error {
	return fmt.Errorf("%w: %v", apperrors.ErrTransientStore, err)
}

func (s *Store) lockFor(id uint) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	return ch
}

func (s *Store) acquire(ctx context.Context, id uint) error {
	select {
	case s.lockFor(id) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return transient(fmt.Errorf("waiting for lock on account %d: %w", id, ctx.Err()))
	}
}

func (s *Store) releaseLock(id uint) {
	<-s.lockFor(id)
}

func (s *Store) account(id uint) (*models.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, false
	}
	return a.Clone(), true
}

func (s *Store) transaction(id uint) (*models.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.txs[id]
	if !ok {
		return nil, false
	}
	cp := *t
	return &cp, true
}

func (s *Store) reserveAccountID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAcctID++
	return s.nextAcctID
}

func (s *Store) reserveTxID() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTxID++
	return s.nextTxID
}

// find returns committed records, with overlay applied, plus extra, filtered
// by q and ordered newest first.
func (s *Store) find(q repositories.TransactionQuery, extra []*models.Transaction, overlay func(*models.Transaction)) []models.Transaction {
	s.mu.RLock()
	candidates := make([]models.Transaction, 0, len(s.txs)+len(extra))
	for _, t := range s.txs {
		candidates = append(candidates, *t)
	}
	s.mu.RUnlock()
	for _, t := range extra {
		candidates = append(candidates, *t)
	}

	out := candidates[:0]
	for i := range candidates {
		t := candidates[i]
		if overlay != nil {
			overlay(&t)
		}
		if q.Matches(&t) {
			out = append(out, t)
		}
	}

	slices.SortFunc(out, func(a, b models.Transaction) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func sumConverted(txs []models.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range txs {
		total = total.Add(t.ConvertedAmount)
	}
	return total
}

func prepareAccount(a *models.Account, id uint, now time.Time) {
	a.ID = id
	_ = a.BeforeCreate(nil)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
}

func prepareTransaction(t *models.Transaction, id uint, now time.Time) {
	t.ID = id
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

func applyStatus(t *models.Transaction, u repositories.StatusUpdate, now time.Time) {
	t.Status = u.Status
	t.RiskScore = u.RiskScore
	t.RiskLevel = u.RiskLevel
	t.TimingAnomaly = u.TimingAnomaly
	t.FlaggedAt = u.FlaggedAt
	t.UpdatedAt = now
}
