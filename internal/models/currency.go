package models

import "time"

// Currency is one row of the rate table: the multiplicative rates from Code to every other code.
type Currency struct {
	Code        string    `gorm:"type:varchar(3);primaryKey" json:"code"`
	Name        string    `gorm:"not null" json:"name"`
	Symbol      string    `gorm:"not null" json:"symbol"`
	Rates       Rates     `gorm:"type:jsonb" json:"rates"`
	LastUpdated time.Time `json:"last_updated"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
