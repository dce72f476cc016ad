package repositories

import (
	"context"
	"errors"
	"strings"

	"fxwallet/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type currencyRepository struct {
	db *gorm.DB
}

func (r *currencyRepository) List(ctx context.Context) ([]models.Currency, error) {
	var currencies []models.Currency
	if err := r.db.WithContext(ctx).Order("code").Find(&currencies).Error; err != nil {
		return nil, storeError(ctx, err, "failed to list currencies")
	}
	return currencies, nil
}

func (r *currencyRepository) Get(ctx context.Context, code string) (*models.Currency, error) {
	var currency models.Currency
	err := r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(code)).First(&currency).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCurrencyNotFound
		}
		return nil, storeError(ctx, err, "failed to get currency")
	}
	return &currency, nil
}

func (r *currencyRepository) ReplaceAll(ctx context.Context, currencies []models.Currency) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Currency{}).Error; err != nil {
			return storeError(ctx, err, "failed to clear currencies")
		}
		if len(currencies) == 0 {
			return nil
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&currencies).Error; err != nil {
			return storeError(ctx, err, "failed to store currencies")
		}
		return nil
	})
	return classifyError(ctx, err)
}
