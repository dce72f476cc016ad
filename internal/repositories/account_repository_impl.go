package repositories

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"fxwallet/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type accountRepository struct {
	db *gorm.DB
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateAccount
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateAccount
		}
		return storeError(ctx, err, "failed to create account")
	}
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeError(ctx, err, "failed to get account")
	}
	return &account, nil
}

func (r *accountRepository) GetByUserID(ctx context.Context, userID uint) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, storeError(ctx, err, "failed to get account")
	}
	return &account, nil
}

// LockByIDs takes row locks one at a time in ascending id order, so two
// transactions locking overlapping sets can never wait on each other in a cycle.
func (r *accountRepository) LockByIDs(ctx context.Context, ids ...uint) ([]*models.Account, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	accounts := make([]*models.Account, 0, len(sorted))
	for _, id := range sorted {
		var account models.Account
		err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&account, id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAccountNotFound
			}
			return nil, storeError(ctx, err, fmt.Sprintf("failed to lock account %d", id))
		}
		accounts = append(accounts, &account)
	}
	return accounts, nil
}

func (r *accountRepository) Update(ctx context.Context, account *models.Account) error {
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", account.ID).
		Updates(map[string]interface{}{
			"balance":        account.Balance,
			"currency":       account.Currency,
			"is_active":      account.IsActive,
			"daily_spent":    account.DailySpent,
			"daily_reset_at": account.DailyResetAt,
			"version":        account.Version,
		})
	if result.Error != nil {
		return storeError(ctx, result.Error, "failed to update account")
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}
