package handlers

import (
	"context"
	"time"

	"fxwallet/internal/models"
	"fxwallet/internal/repositories/cache"
	"fxwallet/internal/services/history"
	"fxwallet/internal/services/risk"
	"fxwallet/internal/services/transaction"
	"fxwallet/internal/utils"
	"fxwallet/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// WalletService is what the HTTP layer needs from the transaction engine.
type WalletService interface {
	OpenAccount(ctx context.Context, userID uint, currency string) (*models.Account, error)
	GetBalance(ctx context.Context, userID uint) (*cache.BalanceSnapshot, error)
	GetDetails(ctx context.Context, userID uint) (*transaction.Details, error)
	ChangeCurrency(ctx context.Context, userID uint, code string) (*models.Account, error)

	Deposit(ctx context.Context, req transaction.Request) (*transaction.Result, error)
	Withdraw(ctx context.Context, req transaction.Request) (*transaction.Result, error)
	Transfer(ctx context.Context, req transaction.Request) (*transaction.Result, error)

	History(ctx context.Context, userID uint, f history.Filter) ([]models.Transaction, error)
	Summary(ctx context.Context, userID uint, period transaction.Period) (*transaction.PeriodSummary, error)
	Report(ctx context.Context, userID uint, start, end time.Time) (*transaction.Report, error)
	GetTransaction(ctx context.Context, userID uint, reference string) (*models.Transaction, error)
}

type WalletHandler struct {
	service WalletService
}

func NewWalletHandler(service WalletService) *WalletHandler {
	return &WalletHandler{service: service}
}

type openAccountInput struct {
	Currency string `json:"currency" validate:"omitempty,len=3,alpha"`
}

type currencyInput struct {
	Currency string `json:"currency" validate:"required,len=3,alpha"`
}

type amountInput struct {
	Amount      decimal.Decimal  `json:"amount"`
	Currency    string           `json:"currency" validate:"required,len=3,alpha"`
	Description string           `json:"description" validate:"max=255"`
	Location    *models.Location `json:"location"`
}

type transferInput struct {
	RecipientID uint `json:"recipient_id" validate:"required"`
	amountInput
}

// parseBody decodes and validates the request body into dst. It writes the
// error response itself and reports whether the handler should continue.
func parseBody(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, utils.BadRequest(c, "Invalid request format")
	}
	if err := validation.Struct(dst); err != nil {
		return false, utils.ValidationFailed(c, validation.FormatValidationError(err))
	}
	return true, nil
}

func metadataFrom(c *fiber.Ctx, loc *models.Location) risk.Metadata {
	return risk.Metadata{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
		Location:  loc,
	}
}

func (h *WalletHandler) OpenAccount(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input openAccountInput
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &input); !ok {
			return err
		}
	}

	account, err := h.service.OpenAccount(c.UserContext(), userID, input.Currency)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Created(c, fiber.Map{"account": account})
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	balance, err := h.service.GetBalance(c.UserContext(), userID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"balance": balance})
}

func (h *WalletHandler) GetDetails(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	details, err := h.service.GetDetails(c.UserContext(), userID)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"wallet": details})
}

func (h *WalletHandler) ChangeCurrency(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input currencyInput
	if ok, err := parseBody(c, &input); !ok {
		return err
	}

	account, err := h.service.ChangeCurrency(c.UserContext(), userID, input.Currency)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"account": account})
}

func (h *WalletHandler) Deposit(c *fiber.Ctx) error {
	return h.move(c, h.service.Deposit)
}

func (h *WalletHandler) Withdraw(c *fiber.Ctx) error {
	return h.move(c, h.service.Withdraw)
}

func (h *WalletHandler) move(c *fiber.Ctx, op func(context.Context, transaction.Request) (*transaction.Result, error)) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input amountInput
	if ok, err := parseBody(c, &input); !ok {
		return err
	}

	res, err := op(c.UserContext(), transaction.Request{
		UserID:      userID,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Description: input.Description,
		Metadata:    metadataFrom(c, input.Location),
	})
	if err != nil {
		return utils.Error(c, err)
	}
	return respondResult(c, res)
}

func (h *WalletHandler) Transfer(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input transferInput
	if ok, err := parseBody(c, &input); !ok {
		return err
	}

	res, err := h.service.Transfer(c.UserContext(), transaction.Request{
		UserID:      userID,
		RecipientID: input.RecipientID,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Description: input.Description,
		Metadata:    metadataFrom(c, input.Location),
	})
	if err != nil {
		return utils.Error(c, err)
	}
	return respondResult(c, res)
}

// respondResult renders a settled request. Flagged requests are accepted
// for review rather than completed.
func respondResult(c *fiber.Ctx, res *transaction.Result) error {
	if res.State == transaction.StateFlagged {
		return utils.Accepted(c, fiber.Map{
			"message":     "Transaction flagged for review",
			"transaction": res.Record,
			"account":     res.Account,
		})
	}
	return utils.Success(c, fiber.Map{
		"message":     "Transaction completed",
		"transaction": res.Record,
		"account":     res.Account,
	})
}
