package memory

import (
	"context"
	"time"

	"fxwallet/internal/models"
	"fxwallet/internal/repositories"

	"github.com/shopspring/decimal"
)

// The repositories returned by Store run every call as its own transaction.

type accountRepo struct{ root *Store }

func (r *accountRepo) Create(ctx context.Context, account *models.Account) error {
	return r.root.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		return tx.Accounts().Create(ctx, account)
	})
}

func (r *accountRepo) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	return newTxStore(r.root).Accounts().GetByID(ctx, id)
}

func (r *accountRepo) GetByUserID(ctx context.Context, userID uint) (*models.Account, error) {
	return newTxStore(r.root).Accounts().GetByUserID(ctx, userID)
}

func (r *accountRepo) LockByIDs(ctx context.Context, ids ...uint) ([]*models.Account, error) {
	var out []*models.Account
	err := r.root.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		var err error
		out, err = tx.Accounts().LockByIDs(ctx, ids...)
		return err
	})
	return out, err
}

func (r *accountRepo) Update(ctx context.Context, account *models.Account) error {
	return r.root.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		return tx.Accounts().Update(ctx, account)
	})
}

type transactionRepo struct{ root *Store }

func (r *transactionRepo) Create(ctx context.Context, record *models.Transaction) error {
	return r.root.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		return tx.Transactions().Create(ctx, record)
	})
}

func (r *transactionRepo) GetByID(ctx context.Context, id uint) (*models.Transaction, error) {
	return newTxStore(r.root).Transactions().GetByID(ctx, id)
}

func (r *transactionRepo) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	return newTxStore(r.root).Transactions().GetByReference(ctx, reference)
}

func (r *transactionRepo) UpdateStatus(ctx context.Context, id uint, from models.TransactionStatus, update repositories.StatusUpdate) error {
	return r.root.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		return tx.Transactions().UpdateStatus(ctx, id, from, update)
	})
}

func (r *transactionRepo) Find(ctx context.Context, q repositories.TransactionQuery) ([]models.Transaction, error) {
	return newTxStore(r.root).Transactions().Find(ctx, q)
}

func (r *transactionRepo) CountBySender(ctx context.Context, accountID uint, since time.Time) (int64, error) {
	return newTxStore(r.root).Transactions().CountBySender(ctx, accountID, since)
}

func (r *transactionRepo) SumSentSince(ctx context.Context, accountID uint, since time.Time, statuses []models.TransactionStatus) (decimal.Decimal, error) {
	return newTxStore(r.root).Transactions().SumSentSince(ctx, accountID, since, statuses)
}

type currencyRepo struct{ root *Store }

func (r *currencyRepo) List(ctx context.Context) ([]models.Currency, error) {
	return newTxStore(r.root).Currencies().List(ctx)
}

func (r *currencyRepo) Get(ctx context.Context, code string) (*models.Currency, error) {
	return newTxStore(r.root).Currencies().Get(ctx, code)
}

func (r *currencyRepo) ReplaceAll(ctx context.Context, currencies []models.Currency) error {
	return r.root.ExecuteInTransaction(ctx, func(tx repositories.Store) error {
		return tx.Currencies().ReplaceAll(ctx, currencies)
	})
}
