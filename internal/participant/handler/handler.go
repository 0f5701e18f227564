// Package handler exposes the participant's /2pc/* HTTP surface, in the
// same shape as the teacher's payments.Handler and funding.Handler: thin
// fiber.Handler methods that decode a request DTO, call the service, and
// map domain errors to the wire envelope of spec §6.1.
package handler

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/twopc/internal/errtax"
	"github.com/congo-pay/twopc/internal/participant/service"
	"github.com/congo-pay/twopc/internal/wire"
)

// Handler wraps a participant service.Service.
type Handler struct {
	svc *service.Service
}

// New constructs a Handler.
func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func statusForCode(code errtax.Code) int {
	switch code {
	case errtax.CodeNotFound:
		return http.StatusNotFound
	case errtax.CodeInvalidArgument:
		return http.StatusBadRequest
	case errtax.CodeInsufficientFunds, errtax.CodeConflict:
		return http.StatusConflict
	case errtax.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Prepare handles POST /2pc/prepare.
func (h *Handler) Prepare(c *fiber.Ctx) error {
	var req wire.PrepareRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.TransactionID == "" || req.AccountID == "" {
		return fiber.NewError(http.StatusBadRequest, "transaction_id and account_id are required")
	}

	result := h.svc.Prepare(c.UserContext(), req.TransactionID, req.AccountID, req.Operation, req.Amount)

	if result.Vote == wire.VoteCommit {
		return c.Status(http.StatusOK).JSON(wire.PrepareResponse{
			Success: true,
			Vote:    wire.VoteCommit,
			Details: &wire.PrepareDetails{
				AccountID:      req.AccountID,
				CurrentBalance: result.CurrentBalance,
				PendingChange:  result.PendingChange,
				Operation:      req.Operation,
			},
		})
	}

	code := errtax.CodeOf(result.Err)
	return c.Status(statusForCode(code)).JSON(wire.PrepareResponse{
		Success: false,
		Vote:    wire.VoteAbort,
		Error:   &wire.ErrorBody{Code: string(code), Message: errMessage(result.Err)},
	})
}

// Commit handles POST /2pc/commit.
func (h *Handler) Commit(c *fiber.Ctx) error {
	var req wire.CommitRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.TransactionID == "" || req.AccountID == "" {
		return fiber.NewError(http.StatusBadRequest, "transaction_id and account_id are required")
	}

	result := h.svc.Commit(c.UserContext(), req.TransactionID, req.AccountID)
	if result.Err != nil {
		code := errtax.CodeOf(result.Err)
		return c.Status(statusForCode(code)).JSON(wire.CommitResponse{
			Success: false,
			Error:   &wire.ErrorBody{Code: string(code), Message: errMessage(result.Err)},
		})
	}

	return c.Status(http.StatusOK).JSON(wire.CommitResponse{
		Success: true,
		Details: &wire.CommitDetails{AccountID: req.AccountID, NewBalance: result.NewBalance},
	})
}

// Abort handles POST /2pc/abort.
func (h *Handler) Abort(c *fiber.Ctx) error {
	var req wire.AbortRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.TransactionID == "" || req.AccountID == "" {
		return fiber.NewError(http.StatusBadRequest, "transaction_id and account_id are required")
	}

	if err := h.svc.Abort(c.UserContext(), req.TransactionID, req.AccountID); err != nil {
		code := errtax.CodeOf(err)
		return c.Status(statusForCode(code)).JSON(wire.AbortResponse{
			Success: false,
			Error:   &wire.ErrorBody{Code: string(code), Message: errMessage(err)},
		})
	}

	return c.Status(http.StatusOK).JSON(wire.AbortResponse{Success: true})
}

// Status handles POST /2pc/status, the reconciliation extension.
func (h *Handler) Status(c *fiber.Ctx) error {
	var req wire.StatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	locked, pending, err := h.svc.LockStatus(c.UserContext(), req.TransactionID, req.AccountID)
	if err != nil {
		code := errtax.CodeOf(err)
		return c.Status(statusForCode(code)).JSON(wire.StatusResponse{
			Success: false,
			Error:   &wire.ErrorBody{Code: string(code), Message: errMessage(err)},
		})
	}

	return c.Status(http.StatusOK).JSON(wire.StatusResponse{Success: true, Locked: locked, PendingChange: pending})
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, errtax.ErrInsufficientFunds) {
		return "insufficient funds"
	}
	return err.Error()
}
