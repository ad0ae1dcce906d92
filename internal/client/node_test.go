package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyle-oof/oofprover/internal/models"
)

func TestSendTxProof(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		wantHash models.TxHash
		wantErr  string
	}{
		{
			name:     "accepted",
			status:   http.StatusOK,
			body:     `"deadbeef"`,
			wantHash: "deadbeef",
		},
		{
			name:    "rejected",
			status:  http.StatusBadRequest,
			body:    "invalid proof",
			wantErr: "node returned 400 Bad Request for /v1/tx/send/proof: invalid proof",
		},
		{
			name:    "unexpected body",
			status:  http.StatusOK,
			body:    `{"hash":1}`,
			wantErr: "failed to decode tx hash",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got models.ProofTransaction
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, sendProofPath, r.URL.Path)
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewNodeClient(srv.URL, time.Second)
			hash, err := c.SendTxProof(context.Background(), models.ProofTransaction{ContractName: "hyllar", Proof: models.Proof("p")})
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.wantHash, hash)
			}
			assert.Equal(t, models.ProofTransaction{ContractName: "hyllar", Proof: models.Proof("p")}, got)
		})
	}
}

func TestSendTxProofUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewNodeClient(url, time.Second).SendTxProof(context.Background(), models.ProofTransaction{})
	assert.ErrorContains(t, err, "failed to post /v1/tx/send/proof")
}
