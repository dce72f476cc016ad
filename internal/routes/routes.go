// Package routes defines the API routing configuration.
package routes

import (
	"fxwallet/internal/handlers"
	"fxwallet/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, wallet *handlers.WalletHandler, health *handlers.HealthHandler, auth *middleware.AuthMiddleware) {
	app.Get("/health", health.HealthCheck)

	api := app.Group("/api", auth.Handler)

	w := api.Group("/wallet")
	w.Post("/", wallet.OpenAccount)
	w.Get("/balance", wallet.GetBalance)
	w.Get("/details", wallet.GetDetails)
	w.Post("/deposit", wallet.Deposit)
	w.Post("/withdraw", wallet.Withdraw)
	w.Post("/transfer", wallet.Transfer)
	w.Patch("/currency", wallet.ChangeCurrency)

	tx := api.Group("/transactions")
	tx.Get("/", wallet.GetTransactions)
	tx.Get("/summary", wallet.GetSummary)
	tx.Get("/report", wallet.GetReport)
	tx.Get("/:reference", wallet.GetTransaction)
}
