package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"fxwallet/internal/models"
	"fxwallet/internal/repositories"

	"github.com/shopspring/decimal"
)

type stagedStatus struct {
	from   models.TransactionStatus
	update repositories.StatusUpdate
}

// txStore is a Store bound to one transaction.
type txStore struct {
	root *Store

	held     []uint
	heldSet  map[uint]bool
	accounts map[uint]*models.Account
	created  map[uint]bool
	records  []*models.Transaction
	statuses map[uint]stagedStatus

	currencies        []models.Currency
	replaceCurrencies bool
}

func newTxStore(root *Store) *txStore {
	return &txStore{
		root:     root,
		heldSet:  make(map[uint]bool),
		accounts: make(map[uint]*models.Account),
		created:  make(map[uint]bool),
		statuses: make(map[uint]stagedStatus),
	}
}

func (t *txStore) Accounts() repositories.AccountRepository         { return (*txAccounts)(t) }
func (t *txStore) Transactions() repositories.TransactionRepository { return (*txTransactions)(t) }
func (t *txStore) Currencies() repositories.CurrencyRepository      { return (*txCurrencies)(t) }

func (t *txStore) ExecuteInTransaction(_ context.Context, fn func(repositories.Store) error) error {
	return fn(t)
}

func (t *txStore) hold(ctx context.Context, id uint) error {
	if t.heldSet[id] {
		return nil
	}
	if err := t.root.acquire(ctx, id); err != nil {
		return err
	}
	t.heldSet[id] = true
	t.held = append(t.held, id)
	return nil
}

func (t *txStore) release() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.root.releaseLock(t.held[i])
	}
	t.held = nil
	t.heldSet = map[uint]bool{}
}

// commit validates the staged writes against committed state and applies them
// under the store mutex, so readers see either none or all of them.
func (t *txStore) commit() error {
	s := t.root
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range t.created {
		a := t.accounts[id]
		if _, taken := s.byUser[a.UserID]; taken {
			return repositories.ErrDuplicateAccount
		}
	}
	for _, r := range t.records {
		if _, taken := s.byRef[r.Reference]; taken {
			return fmt.Errorf("duplicate transaction reference %s", r.Reference)
		}
	}
	for id, st := range t.statuses {
		cur, ok := s.txs[id]
		if !ok {
			return repositories.ErrTransactionNotFound
		}
		if cur.Status != st.from {
			return repositories.ErrStatusConflict
		}
	}

	for id := range t.accounts {
		if !t.created[id] {
			if _, ok := s.accounts[id]; !ok {
				return repositories.ErrAccountNotFound
			}
		}
	}

	for id, a := range t.accounts {
		cp := a.Clone()
		if !t.created[id] {
			cp.UpdatedAt = now
		}
		s.accounts[id] = cp
		s.byUser[cp.UserID] = id
	}
	for _, r := range t.records {
		cp := *r
		s.txs[cp.ID] = &cp
		s.byRef[cp.Reference] = cp.ID
	}
	for id, st := range t.statuses {
		applyStatus(s.txs[id], st.update, now)
	}
	if t.replaceCurrencies {
		s.currencies = make(map[string]models.Currency, len(t.currencies))
		for _, c := range t.currencies {
			s.currencies[c.Code] = c
		}
	}
	return nil
}

func (t *txStore) lookupAccount(id uint) (*models.Account, bool) {
	if a, ok := t.accounts[id]; ok {
		return a.Clone(), true
	}
	return t.root.account(id)
}

type txAccounts txStore

func (r *txAccounts) tx() *txStore { return (*txStore)(r) }

func (r *txAccounts) Create(_ context.Context, account *models.Account) error {
	t := r.tx()
	for _, a := range t.accounts {
		if a.UserID == account.UserID {
			return repositories.ErrDuplicateAccount
		}
	}
	t.root.mu.RLock()
	_, taken := t.root.byUser[account.UserID]
	t.root.mu.RUnlock()
	if taken {
		return repositories.ErrDuplicateAccount
	}

	prepareAccount(account, t.root.reserveAccountID(), time.Now())
	t.accounts[account.ID] = account.Clone()
	t.created[account.ID] = true
	return nil
}

func (r *txAccounts) GetByID(_ context.Context, id uint) (*models.Account, error) {
	a, ok := r.tx().lookupAccount(id)
	if !ok {
		return nil, repositories.ErrAccountNotFound
	}
	return a, nil
}

func (r *txAccounts) GetByUserID(ctx context.Context, userID uint) (*models.Account, error) {
	t := r.tx()
	for _, a := range t.accounts {
		if a.UserID == userID {
			return a.Clone(), nil
		}
	}
	t.root.mu.RLock()
	id, ok := t.root.byUser[userID]
	t.root.mu.RUnlock()
	if !ok {
		return nil, repositories.ErrAccountNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *txAccounts) LockByIDs(ctx context.Context, ids ...uint) ([]*models.Account, error) {
	t := r.tx()
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	out := make([]*models.Account, 0, len(sorted))
	for _, id := range sorted {
		if _, ok := t.lookupAccount(id); !ok {
			return nil, repositories.ErrAccountNotFound
		}
		if err := t.hold(ctx, id); err != nil {
			return nil, err
		}
		// re-read: the previous holder may have committed while we waited
		a, ok := t.lookupAccount(id)
		if !ok {
			return nil, repositories.ErrAccountNotFound
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *txAccounts) Update(ctx context.Context, account *models.Account) error {
	t := r.tx()
	if _, ok := t.lookupAccount(account.ID); !ok {
		return repositories.ErrAccountNotFound
	}
	if !t.created[account.ID] {
		if err := t.hold(ctx, account.ID); err != nil {
			return err
		}
	}
	t.accounts[account.ID] = account.Clone()
	return nil
}

type txTransactions txStore

func (r *txTransactions) tx() *txStore { return (*txStore)(r) }

func (r *txTransactions) Create(_ context.Context, record *models.Transaction) error {
	t := r.tx()
	t.root.mu.RLock()
	_, taken := t.root.byRef[record.Reference]
	t.root.mu.RUnlock()
	if taken {
		return fmt.Errorf("duplicate transaction reference %s", record.Reference)
	}
	for _, staged := range t.records {
		if staged.Reference == record.Reference {
			return fmt.Errorf("duplicate transaction reference %s", record.Reference)
		}
	}

	prepareTransaction(record, t.root.reserveTxID(), time.Now())
	cp := *record
	t.records = append(t.records, &cp)
	return nil
}

func (r *txTransactions) overlay(rec *models.Transaction) {
	if st, ok := r.statuses[rec.ID]; ok {
		applyStatus(rec, st.update, rec.UpdatedAt)
	}
}

func (r *txTransactions) GetByID(_ context.Context, id uint) (*models.Transaction, error) {
	for _, staged := range r.records {
		if staged.ID == id {
			cp := *staged
			return &cp, nil
		}
	}
	rec, ok := r.root.transaction(id)
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	r.overlay(rec)
	return rec, nil
}

func (r *txTransactions) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	for _, staged := range r.records {
		if staged.Reference == reference {
			cp := *staged
			return &cp, nil
		}
	}
	r.root.mu.RLock()
	id, ok := r.root.byRef[reference]
	r.root.mu.RUnlock()
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *txTransactions) UpdateStatus(ctx context.Context, id uint, from models.TransactionStatus, update repositories.StatusUpdate) error {
	for _, staged := range r.records {
		if staged.ID == id {
			if staged.Status != from {
				return repositories.ErrStatusConflict
			}
			applyStatus(staged, update, time.Now())
			return nil
		}
	}

	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if cur.Status != from {
		return repositories.ErrStatusConflict
	}
	if prev, ok := r.statuses[id]; ok {
		from = prev.from
	}
	r.statuses[id] = stagedStatus{from: from, update: update}
	return nil
}

func (r *txTransactions) Find(_ context.Context, q repositories.TransactionQuery) ([]models.Transaction, error) {
	return r.root.find(q, r.records, r.overlay), nil
}

func (r *txTransactions) CountBySender(ctx context.Context, accountID uint, since time.Time) (int64, error) {
	txs, err := r.Find(ctx, repositories.TransactionQuery{SenderID: accountID, From: since})
	if err != nil {
		return 0, err
	}
	return int64(len(txs)), nil
}

func (r *txTransactions) SumSentSince(ctx context.Context, accountID uint, since time.Time, statuses []models.TransactionStatus) (decimal.Decimal, error) {
	txs, err := r.Find(ctx, repositories.TransactionQuery{SenderID: accountID, From: since, Statuses: statuses})
	if err != nil {
		return decimal.Zero, err
	}
	return sumConverted(txs), nil
}

type txCurrencies txStore

func (r *txCurrencies) List(_ context.Context) ([]models.Currency, error) {
	if r.replaceCurrencies {
		return slices.Clone(r.currencies), nil
	}
	r.root.mu.RLock()
	out := make([]models.Currency, 0, len(r.root.currencies))
	for _, c := range r.root.currencies {
		out = append(out, c)
	}
	r.root.mu.RUnlock()
	slices.SortFunc(out, func(a, b models.Currency) int {
		switch {
		case a.Code < b.Code:
			return -1
		case a.Code > b.Code:
			return 1
		}
		return 0
	})
	return out, nil
}

func (r *txCurrencies) Get(ctx context.Context, code string) (*models.Currency, error) {
	list, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	code = strings.ToUpper(code)
	for _, c := range list {
		if c.Code == code {
			c.Rates = c.Rates.Copy()
			return &c, nil
		}
	}
	return nil, repositories.ErrCurrencyNotFound
}

func (r *txCurrencies) ReplaceAll(_ context.Context, currencies []models.Currency) error {
	cp := make([]models.Currency, len(currencies))
	for i, c := range currencies {
		c.Rates = c.Rates.Copy()
		cp[i] = c
	}
	slices.SortFunc(cp, func(a, b models.Currency) int {
		switch {
		case a.Code < b.Code:
			return -1
		case a.Code > b.Code:
			return 1
		}
		return 0
	})
	r.currencies = cp
	r.replaceCurrencies = true
	return nil
}
