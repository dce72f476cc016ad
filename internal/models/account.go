package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Account is a user's wallet. One per user; closed accounts keep their row with IsActive=false.
type Account struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	UserID       uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance      decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"balance"`
	Currency     string          `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	IsActive     bool            `gorm:"not null;default:true" json:"is_active"`
	DailySpent   decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"daily_spent"`
	DailyResetAt time.Time       `gorm:"not null" json:"daily_reset_at"`
	// Version increases by one with every committed change to the row.
	Version      int64           `gorm:"not null;default:0" json:"version"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) error {
	a.Currency = strings.ToUpper(a.Currency)
	if a.DailyResetAt.IsZero() {
		a.DailyResetAt = time.Now().UTC()
	}
	return nil
}

// Clone returns a copy safe to mutate independently of a.
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}
