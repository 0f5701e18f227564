// Package handler exposes the coordinator's client-facing endpoints (spec
// §6.2), in the same thin-handler shape as the participant's handler
// package: decode, call the domain layer, translate the result to the
// wire envelope.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/twopc/internal/coordinator/domain"
	"github.com/congo-pay/twopc/internal/coordinator/store"
	"github.com/congo-pay/twopc/internal/coordinator/twophase"
	"github.com/congo-pay/twopc/internal/errtax"
	"github.com/congo-pay/twopc/internal/money"
)

// Resolver picks the participant client responsible for an account id.
type Resolver interface {
	ClientFor(accountID string) twophase.ParticipantClient
}

// Handler wraps the coordinator's twophase.Coordinator and transaction log.
type Handler struct {
	coord    *twophase.Coordinator
	txns     store.TransactionStore
	resolver Resolver
}

// New constructs a Handler.
func New(coord *twophase.Coordinator, txns store.TransactionStore, resolver Resolver) *Handler {
	return &Handler{coord: coord, txns: txns, resolver: resolver}
}

type transferRequest struct {
	SourceAccountID      string      `json:"source_account_id"`
	DestinationAccountID string      `json:"destination_account_id"`
	Amount               money.Money `json:"amount"`
	TransactionID        string      `json:"transaction_id,omitempty"`
}

type transferData struct {
	TransactionID        string        `json:"transaction_id"`
	Status               domain.Status `json:"status"`
	SourceAccountID      string        `json:"source_account_id"`
	DestinationAccountID string        `json:"destination_account_id"`
	Amount               money.Money   `json:"amount"`
	RetryAttempt         int           `json:"retry_attempt"`
	TotalAttempts        int           `json:"total_attempts"`
}

type transferResponse struct {
	Success bool          `json:"success"`
	Data    *transferData `json:"data,omitempty"`
	Message string        `json:"message,omitempty"`
	Details string        `json:"details,omitempty"`
}

// Transfer handles POST /transfers.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.SourceAccountID == "" || req.DestinationAccountID == "" {
		return c.Status(http.StatusBadRequest).JSON(transferResponse{Success: false, Message: "source_account_id and destination_account_id are required", Details: string(errtax.CodeInvalidArgument)})
	}

	srcClient := h.resolver.ClientFor(req.SourceAccountID)
	dstClient := h.resolver.ClientFor(req.DestinationAccountID)

	result, err := h.coord.TransferWithRetry(c.UserContext(), req.TransactionID, req.SourceAccountID, req.DestinationAccountID, req.Amount, srcClient, dstClient)
	if err != nil {
		if errors.Is(err, errtax.ErrInvalidArgument) {
			return c.Status(http.StatusBadRequest).JSON(transferResponse{Success: false, Message: "invalid transfer request", Details: string(errtax.CodeInvalidArgument)})
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	data := &transferData{
		TransactionID:        result.TransactionID,
		Status:               result.Status,
		SourceAccountID:      req.SourceAccountID,
		DestinationAccountID: req.DestinationAccountID,
		Amount:               req.Amount,
		RetryAttempt:         result.RetryAttempt,
		TotalAttempts:        result.TotalAttempts,
	}

	if result.Status == domain.StatusCommitted {
		return c.Status(http.StatusOK).JSON(transferResponse{Success: true, Data: data, Message: result.Message})
	}
	return c.Status(http.StatusConflict).JSON(transferResponse{Success: false, Data: data, Message: result.Message, Details: string(result.Code)})
}

// Status handles GET /transfers/status/{tx_id}.
func (h *Handler) Status(c *fiber.Ctx) error {
	txID := c.Params("tx_id")
	txn, err := h.txns.Get(c.UserContext(), txID)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			return c.Status(http.StatusNotFound).JSON(transferResponse{Success: false, Message: "transaction not found", Details: string(errtax.CodeNotFound)})
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"transaction_id":         txn.TransactionID,
			"source_account_id":      txn.SourceAccountID,
			"destination_account_id": txn.DestinationAccountID,
			"amount":                 txn.Amount,
			"status":                 txn.Status,
			"created_at":             txn.CreatedAt,
			"updated_at":             txn.UpdatedAt,
		},
	})
}

// History handles GET /transfers/history/{account_id}?limit&offset.
func (h *Handler) History(c *fiber.Ctx) error {
	accountID := c.Params("account_id")
	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.Query("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	page, err := h.txns.History(c.UserContext(), accountID, limit, offset)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    page.Transactions,
		"total":   page.Total,
		"limit":   limit,
		"offset":  offset,
	})
}
