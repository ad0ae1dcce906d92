package models

import "time"

// BlockRecord is the journal entry written after a block has been ingested.
type BlockRecord struct {
	Height      BlockHeight
	Hash        string
	TxCount     int
	ProcessedAt time.Time
}

// TxEventRecord is the journal entry for a sequenced or failed transaction.
type TxEventRecord struct {
	TxHash    TxHash
	Kind      string
	Reason    string
	CreatedAt time.Time
}

// ProofRecord is the journal entry for a finished proof task.
type ProofRecord struct {
	TaskID       string
	ContractName ContractName
	TxHash       TxHash
	ProofTxHash  TxHash
	Error        string
	Duration     time.Duration
	FinishedAt   time.Time
}
