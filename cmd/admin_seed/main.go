package main

import (
	"context"
	"fmt"
	"time"

	"fxwallet/internal/config"
	apperrors "fxwallet/internal/errors"
	"fxwallet/internal/logger"
	"fxwallet/internal/models"
	"fxwallet/internal/repositories"
	"fxwallet/internal/services/currency"
	"fxwallet/internal/services/wallet"
	"fxwallet/internal/utils"
)

// demoAccounts are opened for local testing; the key is the user id.
var demoAccounts = map[uint]string{
	1: "USD",
	2: "EUR",
	3: "GBP",
}

const demoTokenTTL = 24 * time.Hour

func main() {
	config.LoadEnv()
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)
	ctx := context.Background()

	db, err := repositories.InitDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			logger.Warnf("Failed to close PostgreSQL connection: %v", err)
		}
	}()
	store := repositories.NewGormStore(db)

	table, err := currency.Seed(ctx, store.Currencies(), currency.DefaultBaseRates)
	if err != nil {
		logger.Fatalf("Failed to seed currencies: %v", err)
	}

	ledger := wallet.NewLedger(store, currency.NewConverter(table), nil, wallet.Config{
		DailyLimit:      cfg.Ledger.DailyLimit,
		DefaultCurrency: cfg.Ledger.DefaultCurrency,
	})
	for userID, code := range demoAccounts {
		account, err := ledger.OpenAccount(ctx, userID, code)
		switch {
		case apperrors.Code(err) == apperrors.ErrAccountExists.Code:
			logger.Infof("Account for user %d already exists", userID)
		case err != nil:
			logger.Fatalf("Failed to open account for user %d: %v", userID, err)
		default:
			logger.Infof("Opened %s account %d for user %d", account.Currency, account.ID, userID)
		}

		token, err := utils.GenerateToken(&models.UserClaims{UserID: userID, Role: "user"}, cfg.JWTSecret, demoTokenTTL)
		if err != nil {
			logger.Fatalf("Failed to sign token for user %d: %v", userID, err)
		}
		fmt.Printf("user %d (%s): %s\n", userID, code, token)
	}
}
