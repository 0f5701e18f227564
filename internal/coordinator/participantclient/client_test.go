package participantclient_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/congo-pay/twopc/internal/coordinator/participantclient"
	"github.com/congo-pay/twopc/internal/money"
	"github.com/congo-pay/twopc/internal/wire"
)

func TestPrepareRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/2pc/prepare", r.URL.Path)
		require.Equal(t, "Bearer admin-token", r.Header.Get("Authorization"))

		var req wire.PrepareRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "tx-1", req.TransactionID)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(wire.PrepareResponse{
			Success: true,
			Vote:    wire.VoteCommit,
			Details: &wire.PrepareDetails{AccountID: req.AccountID, CurrentBalance: money.FromFloat(1000), PendingChange: req.Amount},
		})
	}))
	defer srv.Close()

	client := participantclient.New(srv.URL, "admin-token", nil)
	resp, err := client.Prepare(context.Background(), wire.PrepareRequest{TransactionID: "tx-1", AccountID: "A", Amount: money.FromFloat(-50), Operation: wire.OperationDebit})
	require.NoError(t, err)
	require.Equal(t, wire.VoteCommit, resp.Vote)
	require.NotNil(t, resp.Details)
}

func TestPrepareTransportFailure(t *testing.T) {
	client := participantclient.New("http://127.0.0.1:1", "admin-token", nil)
	resp, err := client.Prepare(context.Background(), wire.PrepareRequest{TransactionID: "tx-1", AccountID: "A", Amount: money.FromFloat(-50), Operation: wire.OperationDebit})
	require.Error(t, err)
	require.Equal(t, wire.VoteAbort, resp.Vote)
}
