package prover

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyle-oof/oofprover/internal/models"
)

func TestHTTPProver(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		wantProof models.Proof
		wantErr   string
	}{
		{
			name:      "proof returned",
			status:    http.StatusOK,
			body:      `{"proof":"cHJvb2Y="}`,
			wantProof: models.Proof("proof"),
		},
		{
			name:    "server error",
			status:  http.StatusInternalServerError,
			body:    "guest panicked",
			wantErr: "prover returned 500 Internal Server Error: guest panicked",
		},
		{
			name:    "empty proof",
			status:  http.StatusOK,
			body:    `{"proof":""}`,
			wantErr: "prover returned an empty proof",
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `not json`,
			wantErr: "failed to decode proof response",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got proveRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, provePath, r.URL.Path)
				assert.Equal(t, http.MethodPost, r.Method)
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			calldata := &models.Calldata{
				Identity:    "bob",
				TxHash:      "h1",
				Blobs:       []models.Blob{{ContractName: "hydentity"}, {ContractName: "hyllar"}},
				Index:       1,
				TxBlobCount: 2,
			}
			proof, err := NewHTTPProver(srv.URL+"/").Prove(context.Background(), []byte("state"), calldata)
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.wantProof, proof)
			}
			assert.Equal(t, models.ContractName("hyllar"), got.ContractName)
			assert.Equal(t, []byte("state"), got.CommitmentMetadata)
			assert.Equal(t, calldata, got.Calldata)
		})
	}
}

func TestHTTPProverRejectsBadIndex(t *testing.T) {
	_, err := NewHTTPProver("http://127.0.0.1:0").Prove(context.Background(), nil, &models.Calldata{Index: 1})
	assert.ErrorContains(t, err, "out of range")
}
