package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/twopc/internal/coordinator/domain"
	"github.com/congo-pay/twopc/internal/coordinator/handler"
	"github.com/congo-pay/twopc/internal/coordinator/store"
	"github.com/congo-pay/twopc/internal/coordinator/twophase"
	"github.com/congo-pay/twopc/internal/diagnostics"
	"github.com/congo-pay/twopc/internal/logging"
	"github.com/congo-pay/twopc/internal/money"
	pdomain "github.com/congo-pay/twopc/internal/participant/domain"
	"github.com/congo-pay/twopc/internal/participant/service"
	pstore "github.com/congo-pay/twopc/internal/participant/store"
	"github.com/congo-pay/twopc/internal/wire"
)

// inProcessClient adapts a participant service.Service to twophase.ParticipantClient
// without a real HTTP round trip, mirroring the twophase package's own test double.
type inProcessClient struct {
	svc *service.Service
}

func (c *inProcessClient) Prepare(ctx context.Context, req wire.PrepareRequest) (wire.PrepareResponse, error) {
	result := c.svc.Prepare(ctx, req.TransactionID, req.AccountID, req.Operation, req.Amount)
	if result.Vote == wire.VoteCommit {
		return wire.PrepareResponse{Success: true, Vote: wire.VoteCommit, Details: &wire.PrepareDetails{
			AccountID: req.AccountID, CurrentBalance: result.CurrentBalance, PendingChange: result.PendingChange, Operation: req.Operation,
		}}, nil
	}
	return wire.PrepareResponse{Vote: wire.VoteAbort, Error: &wire.ErrorBody{Message: errString(result.Err)}}, nil
}

func (c *inProcessClient) Commit(ctx context.Context, req wire.CommitRequest) (wire.CommitResponse, error) {
	result := c.svc.Commit(ctx, req.TransactionID, req.AccountID)
	if result.Err != nil {
		return wire.CommitResponse{Error: &wire.ErrorBody{Message: errString(result.Err)}}, nil
	}
	return wire.CommitResponse{Success: true, Details: &wire.CommitDetails{AccountID: req.AccountID, NewBalance: result.NewBalance}}, nil
}

func (c *inProcessClient) Abort(ctx context.Context, req wire.AbortRequest) (wire.AbortResponse, error) {
	_ = c.svc.Abort(ctx, req.TransactionID, req.AccountID)
	return wire.AbortResponse{Success: true}, nil
}

func (c *inProcessClient) Status(ctx context.Context, req wire.StatusRequest) (wire.StatusResponse, error) {
	locked, pending, err := c.svc.LockStatus(ctx, req.TransactionID, req.AccountID)
	if err != nil {
		return wire.StatusResponse{Error: &wire.ErrorBody{Message: errString(err)}}, nil
	}
	return wire.StatusResponse{Success: true, Locked: locked, PendingChange: pending}, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// fakeResolver routes every account to one of two preconfigured clients by
// a fixed account-id table, standing in for the HashResolver's deployment
// lookup in a test where there's exactly one participant deployment per
// account under test.
type fakeResolver struct {
	byAccount map[string]twophase.ParticipantClient
}

func (r *fakeResolver) ClientFor(accountID string) twophase.ParticipantClient {
	return r.byAccount[accountID]
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	srcStore := pstore.NewInMemoryStore()
	srcStore.Seed(pdomain.Account{AccountID: "A", OwnerID: "owner-a", Balance: money.FromFloat(1000)})
	dstStore := pstore.NewInMemoryStore()
	dstStore.Seed(pdomain.Account{AccountID: "B", OwnerID: "owner-b", Balance: money.FromFloat(500)})

	resolver := &fakeResolver{byAccount: map[string]twophase.ParticipantClient{
		"A": &inProcessClient{svc: service.New(srcStore)},
		"B": &inProcessClient{svc: service.New(dstStore)},
	}}

	txns := store.NewInMemoryStore()
	logger := logging.Discard()
	coord := twophase.New(txns, diagnostics.LoggingPublisher{Logger: logger}, logger, twophase.DefaultConfig())
	h := handler.New(coord, txns, resolver)

	app := fiber.New()
	app.Post("/transfers", h.Transfer)
	app.Get("/transfers/status/:tx_id", h.Status)
	app.Get("/transfers/history/:account_id", h.History)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(out, &parsed))
	return resp.StatusCode, parsed
}

func TestTransferHappyPathReturnsCommitted(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, "POST", "/transfers", map[string]any{
		"source_account_id":      "A",
		"destination_account_id": "B",
		"amount":                 "50",
	})
	require.Equal(t, 200, status)
	require.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	require.Equal(t, string(domain.StatusCommitted), data["status"])
}

func TestTransferInsufficientFundsReturnsAborted(t *testing.T) {
	app := newTestApp(t)

	status, body := doJSON(t, app, "POST", "/transfers", map[string]any{
		"source_account_id":      "A",
		"destination_account_id": "B",
		"amount":                 "10000",
	})
	require.Equal(t, 409, status)
	require.Equal(t, false, body["success"])
}

func TestTransferMissingAccountsRejected(t *testing.T) {
	app := newTestApp(t)

	status, _ := doJSON(t, app, "POST", "/transfers", map[string]any{
		"destination_account_id": "B",
		"amount":                 "10",
	})
	require.Equal(t, 400, status)
}

func TestStatusRoundTripsAfterTransfer(t *testing.T) {
	app := newTestApp(t)

	_, body := doJSON(t, app, "POST", "/transfers", map[string]any{
		"source_account_id":      "A",
		"destination_account_id": "B",
		"amount":                 "50",
		"transaction_id":         "tx-status-1",
	})
	require.Equal(t, true, body["success"])

	status, statusBody := doJSON(t, app, "GET", "/transfers/status/tx-status-1", nil)
	require.Equal(t, 200, status)
	data := statusBody["data"].(map[string]any)
	require.Equal(t, "tx-status-1", data["transaction_id"])
	require.Equal(t, string(domain.StatusCommitted), data["status"])
}

func TestStatusUnknownTransactionReturns404(t *testing.T) {
	app := newTestApp(t)

	status, _ := doJSON(t, app, "GET", "/transfers/status/does-not-exist", nil)
	require.Equal(t, 404, status)
}

func TestHistoryListsTransfersForAccount(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 3; i++ {
		_, body := doJSON(t, app, "POST", "/transfers", map[string]any{
			"source_account_id":      "A",
			"destination_account_id": "B",
			"amount":                 "10",
		})
		require.Equal(t, true, body["success"])
	}

	status, body := doJSON(t, app, "GET", "/transfers/history/A", nil)
	require.Equal(t, 200, status)
	require.EqualValues(t, 3, body["total"])
	require.Len(t, body["data"], 3)
}
