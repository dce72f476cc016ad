package handlers

import (
	"strconv"
	"strings"
	"time"

	apperrors "fxwallet/internal/errors"
	"fxwallet/internal/models"
	"fxwallet/internal/services/history"
	"fxwallet/internal/services/transaction"
	"fxwallet/internal/utils"

	"github.com/gofiber/fiber/v2"
)

const (
	maxTransactionLimit = 100 // Maximum allowed transactions per page
	dateLayout          = "2006-01-02"
)

// parseDate accepts RFC 3339 timestamps or plain dates. A plain end date
// covers the whole day.
func parseDate(value string, end bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, apperrors.ErrInvalidDateRange.WithDetail("invalid date %q", value)
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

func parseRange(c *fiber.Ctx) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if v := c.Query("startDate"); v != "" {
		if start, err = parseDate(v, false); err != nil {
			return start, end, err
		}
	}
	if v := c.Query("endDate"); v != "" {
		if end, err = parseDate(v, true); err != nil {
			return start, end, err
		}
	}
	return start, end, nil
}

func (h *WalletHandler) GetTransactions(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	f := history.Filter{
		Kind:   models.TransactionKind(strings.ToUpper(c.Query("type"))),
		Status: models.TransactionStatus(strings.ToUpper(c.Query("status"))),
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return utils.BadRequest(c, "invalid transaction type")
	}
	if f.Status != "" && !f.Status.Valid() {
		return utils.BadRequest(c, "invalid transaction status")
	}
	if f.From, f.To, err = parseRange(c); err != nil {
		return utils.Error(c, err)
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			return utils.BadRequest(c, "invalid limit")
		}
		f.Limit = min(limit, maxTransactionLimit)
	}

	records, err := h.service.History(c.UserContext(), userID, f)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{
		"results":      len(records),
		"transactions": records,
	})
}

func (h *WalletHandler) GetSummary(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	summary, err := h.service.Summary(c.UserContext(), userID, transaction.ParsePeriod(c.Query("period")))
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{
		"summary": summary,
		"net":     summary.Net(),
	})
}

func (h *WalletHandler) GetReport(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	if c.Query("startDate") == "" || c.Query("endDate") == "" {
		return utils.BadRequest(c, "Please provide start and end dates")
	}
	start, end, err := parseRange(c)
	if err != nil {
		return utils.Error(c, err)
	}

	report, err := h.service.Report(c.UserContext(), userID, start, end)
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{
		"report": report,
		"net":    report.Summary.Net(),
	})
}

func (h *WalletHandler) GetTransaction(c *fiber.Ctx) error {
	userID, err := utils.GetUserID(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	tx, err := h.service.GetTransaction(c.UserContext(), userID, c.Params("reference"))
	if err != nil {
		return utils.Error(c, err)
	}
	return utils.Success(c, fiber.Map{"transaction": tx})
}
