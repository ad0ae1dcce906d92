package models

import (
	"encoding/hex"
	"strconv"

	"golang.org/x/crypto/sha3"
)

// TxHash identifies a transaction on chain.
type TxHash string

// BlockHeight is the position of a block in the chain.
type BlockHeight uint64

// LaneID is the ordering partition a transaction was sequenced in.
type LaneID string

// ContractName identifies a registered contract.
type ContractName string

// Identity is the account that signed a blob transaction.
type Identity string

// Blob is a contract-addressed opaque payload carried by a blob transaction.
type Blob struct {
	ContractName ContractName `json:"contract_name"`
	Data         []byte       `json:"data"`
}

// BlobTransaction carries one or more blobs on behalf of an identity.
type BlobTransaction struct {
	Identity Identity `json:"identity"`
	Blobs    []Blob   `json:"blobs"`
}

// Hash derives the transaction hash from its identity and blobs.
func (tx *BlobTransaction) Hash() TxHash {
	h := sha3.New256()
	h.Write([]byte(tx.Identity))
	for _, blob := range tx.Blobs {
		h.Write([]byte(blob.ContractName))
		h.Write(blob.Data)
	}
	return TxHash(hex.EncodeToString(h.Sum(nil)))
}

// ProofTransaction submits a proof for a single contract back to the chain.
type ProofTransaction struct {
	ContractName ContractName `json:"contract_name"`
	Proof        Proof        `json:"proof"`
}

// Proof is an opaque proof artifact produced by the prover.
type Proof []byte

// Transaction is an entry of a block. Only blob transactions are executed
// locally; everything else is carried for ordering only.
type Transaction struct {
	Blob  *BlobTransaction  `json:"blob,omitempty"`
	Proof *ProofTransaction `json:"proof,omitempty"`
}

// Block represents a finalized block as reported by the node state observer.
type Block struct {
	Height        BlockHeight       `json:"block_height"`
	Hash          string            `json:"hash"`
	Timestamp     uint64            `json:"block_timestamp"`
	LaneIDs       map[TxHash]LaneID `json:"lane_ids"`
	Txs           []Transaction     `json:"txs"`
	SuccessfulTxs []TxHash          `json:"successful_txs"`
	TimedOutTxs   []TxHash          `json:"timed_out_txs"`
	FailedTxs     []TxHash          `json:"failed_txs"`
}

// TxContext binds a transaction to its position in the chain.
type TxContext struct {
	BlockHeight BlockHeight `json:"block_height"`
	BlockHash   string      `json:"block_hash"`
	Timestamp   uint64      `json:"timestamp"`
	LaneID      LaneID      `json:"lane_id"`
	ChainID     uint64      `json:"chain_id"`
}

// Calldata is the unit of work handed to a contract and to the prover.
type Calldata struct {
	Identity     Identity   `json:"identity"`
	TxHash       TxHash     `json:"tx_hash"`
	PrivateInput []byte     `json:"private_input"`
	Blobs        []Blob     `json:"blobs"`
	Index        int        `json:"index"`
	TxCtx        *TxContext `json:"tx_ctx,omitempty"`
	TxBlobCount  int        `json:"tx_blob_count"`
}

// Blob returns the blob under consideration.
func (c *Calldata) Blob() (Blob, bool) {
	if c.Index < 0 || c.Index >= len(c.Blobs) {
		return Blob{}, false
	}
	return c.Blobs[c.Index], true
}

// Clone returns a deep copy that shares no memory with c.
func (c *Calldata) Clone() *Calldata {
	if c == nil {
		return nil
	}
	out := *c
	out.PrivateInput = cloneBytes(c.PrivateInput)
	out.Blobs = make([]Blob, len(c.Blobs))
	for i, blob := range c.Blobs {
		out.Blobs[i] = Blob{ContractName: blob.ContractName, Data: cloneBytes(blob.Data)}
	}
	if c.TxCtx != nil {
		txCtx := *c.TxCtx
		out.TxCtx = &txCtx
	}
	return &out
}

func (h BlockHeight) String() string {
	return strconv.FormatUint(uint64(h), 10)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
