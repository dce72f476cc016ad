package repositories

import (
	"context"
	"errors"
	"time"

	"fxwallet/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type transactionRepository struct {
	db *gorm.DB
}

func (r *transactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	if err := r.db.WithContext(ctx).Create(tx).Error; err != nil {
		return storeError(ctx, err, "failed to create transaction")
	}
	return nil
}

func (r *transactionRepository) GetByID(ctx context.Context, id uint) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).First(&tx, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, storeError(ctx, err, "failed to get transaction")
	}
	return &tx, nil
}

func (r *transactionRepository) GetByReference(ctx context.Context, reference string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, storeError(ctx, err, "failed to get transaction")
	}
	return &tx, nil
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, id uint, from models.TransactionStatus, update StatusUpdate) error {
	result := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":         update.Status,
			"risk_score":     update.RiskScore,
			"risk_level":     update.RiskLevel,
			"timing_anomaly": update.TimingAnomaly,
			"flagged_at":     update.FlaggedAt,
		})
	if result.Error != nil {
		return storeError(ctx, result.Error, "failed to update transaction status")
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return ErrStatusConflict
	}
	return nil
}

func (r *transactionRepository) Find(ctx context.Context, q TransactionQuery) ([]models.Transaction, error) {
	db := r.db.WithContext(ctx).Model(&models.Transaction{})
	if q.AccountID != 0 {
		db = db.Where("sender_id = ? OR recipient_id = ?", q.AccountID, q.AccountID)
	}
	if q.SenderID != 0 {
		db = db.Where("sender_id = ?", q.SenderID)
	}
	if len(q.Kinds) > 0 {
		db = db.Where("kind IN ?", q.Kinds)
	}
	if len(q.Statuses) > 0 {
		db = db.Where("status IN ?", q.Statuses)
	}
	if !q.From.IsZero() {
		db = db.Where("created_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		db = db.Where("created_at <= ?", q.To)
	}
	if q.RequireIP {
		db = db.Where("ip_address <> ''")
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var txs []models.Transaction
	if err := db.Order("created_at DESC, id DESC").Find(&txs).Error; err != nil {
		return nil, storeError(ctx, err, "failed to find transactions")
	}
	return txs, nil
}

func (r *transactionRepository) CountBySender(ctx context.Context, accountID uint, since time.Time) (int64, error) {
	db := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("sender_id = ?", accountID)
	if !since.IsZero() {
		db = db.Where("created_at >= ?", since)
	}
	var count int64
	if err := db.Count(&count).Error; err != nil {
		return 0, storeError(ctx, err, "failed to count transactions")
	}
	return count, nil
}

func (r *transactionRepository) SumSentSince(ctx context.Context, accountID uint, since time.Time, statuses []models.TransactionStatus) (decimal.Decimal, error) {
	db := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("sender_id = ? AND created_at >= ?", accountID, since)
	if len(statuses) > 0 {
		db = db.Where("status IN ?", statuses)
	}

	var total decimal.NullDecimal
	if err := db.Select("SUM(converted_amount)").Scan(&total).Error; err != nil {
		return decimal.Zero, storeError(ctx, err, "failed to sum transactions")
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
