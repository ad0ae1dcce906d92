// Package prover turns executed blobs into proofs and submits them to the chain.
package prover

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/hyle-oof/oofprover/internal/models"
)

const provePath = "/v1/prove"

// Prover produces a proof of executing calldata from the given pre-state.
type Prover interface {
	Prove(ctx context.Context, commitmentMetadata []byte, calldata *models.Calldata) (models.Proof, error)
}

// ProverFunc adapts a function to the Prover interface.
type ProverFunc func(ctx context.Context, commitmentMetadata []byte, calldata *models.Calldata) (models.Proof, error)

func (f ProverFunc) Prove(ctx context.Context, commitmentMetadata []byte, calldata *models.Calldata) (models.Proof, error) {
	return f(ctx, commitmentMetadata, calldata)
}

// Submitter sends proof transactions to the chain.
type Submitter interface {
	SendTxProof(ctx context.Context, tx models.ProofTransaction) (models.TxHash, error)
}

// Observer is notified once per finished proof task.
type Observer interface {
	ObserveProof(record models.ProofRecord)
}

// Job is the input of one proof task.
type Job struct {
	Contract           models.ContractName
	CommitmentMetadata []byte
	Calldata           *models.Calldata
}

func (j Job) clone() Job {
	return Job{
		Contract:           j.Contract,
		CommitmentMetadata: append([]byte(nil), j.CommitmentMetadata...),
		Calldata:           j.Calldata.Clone(),
	}
}

type proveRequest struct {
	ContractName       models.ContractName `json:"contract_name"`
	CommitmentMetadata []byte              `json:"commitment_metadata"`
	Calldata           *models.Calldata    `json:"calldata"`
}

type proveResponse struct {
	Proof models.Proof `json:"proof"`
}

// HTTPProver asks a remote proving service for proofs.
type HTTPProver struct {
	client *resty.Client
}

// NewHTTPProver creates a prover client for the service at baseURL. Requests
// carry no timeout of their own; cancellation comes from the caller's context.
func NewHTTPProver(baseURL string) *HTTPProver {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json")
	return &HTTPProver{client: client}
}

func (p *HTTPProver) Prove(ctx context.Context, commitmentMetadata []byte, calldata *models.Calldata) (models.Proof, error) {
	blob, ok := calldata.Blob()
	if !ok {
		return nil, fmt.Errorf("calldata index %d out of range", calldata.Index)
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(proveRequest{
			ContractName:       blob.ContractName,
			CommitmentMetadata: commitmentMetadata,
			Calldata:           calldata,
		}).
		Post(provePath)
	if err != nil {
		return nil, fmt.Errorf("failed to request proof: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("prover returned %s: %s", resp.Status(), strings.TrimSpace(resp.String()))
	}
	var out proveResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, fmt.Errorf("failed to decode proof response: %w", err)
	}
	if len(out.Proof) == 0 {
		return nil, fmt.Errorf("prover returned an empty proof")
	}
	return out.Proof, nil
}
