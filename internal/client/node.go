// Package client talks to the node REST API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hyle-oof/oofprover/internal/models"
)

const sendProofPath = "/v1/tx/send/proof"

// NodeClient submits transactions to a node.
type NodeClient struct {
	http *resty.Client
}

// NewNodeClient creates a client for the node REST API at baseURL.
func NewNodeClient(baseURL string, timeout time.Duration) *NodeClient {
	c := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return &NodeClient{http: c}
}

// SendTxProof submits a proof transaction and returns its hash.
func (c *NodeClient) SendTxProof(ctx context.Context, tx models.ProofTransaction) (models.TxHash, error) {
	return c.send(ctx, sendProofPath, tx)
}

func (c *NodeClient) send(ctx context.Context, path string, body any) (models.TxHash, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(path)
	if err != nil {
		return "", fmt.Errorf("failed to post %s: %w", path, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("node returned %s for %s: %s", resp.Status(), path, strings.TrimSpace(resp.String()))
	}
	var hash models.TxHash
	if err := json.Unmarshal(resp.Body(), &hash); err != nil {
		return "", fmt.Errorf("failed to decode tx hash: %w", err)
	}
	return hash, nil
}
