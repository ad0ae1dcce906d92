// Package contract defines the boundary between the prover service and the
// contracts it mirrors locally.
package contract

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hyle-oof/oofprover/internal/models"
)

var (
	// ErrUnknownContract is returned when a contract name has no registration.
	ErrUnknownContract = errors.New("unknown contract")
	// ErrDuplicateContract is returned when a contract name is registered twice.
	ErrDuplicateContract = errors.New("contract already registered")
	// ErrBlobIndex is returned when calldata points outside of its blob list.
	ErrBlobIndex = errors.New("blob index out of range")
)

// Contract is a locally replayed contract state.
type Contract interface {
	// Execute applies the calldata to the state and returns the program output.
	Execute(calldata *models.Calldata) (string, error)
	// SerializeState encodes the current state as commitment metadata.
	SerializeState() ([]byte, error)
	// Clone returns an independent copy of the state.
	Clone() Contract
}

// ExecutionContext describes who is calling which contract.
type ExecutionContext struct {
	Caller       models.Identity
	ContractName models.ContractName
}

// ParseAction decodes the JSON action carried by the blob under consideration.
func ParseAction[T any](calldata *models.Calldata) (T, ExecutionContext, error) {
	var action T
	blob, ok := calldata.Blob()
	if !ok {
		return action, ExecutionContext{}, fmt.Errorf("%w: %d of %d", ErrBlobIndex, calldata.Index, len(calldata.Blobs))
	}
	if err := json.Unmarshal(blob.Data, &action); err != nil {
		return action, ExecutionContext{}, fmt.Errorf("failed to parse %s action: %w", blob.ContractName, err)
	}
	return action, ExecutionContext{Caller: calldata.Identity, ContractName: blob.ContractName}, nil
}

// ParseBlob decodes the JSON action carried by another blob of the same transaction.
func ParseBlob[T any](calldata *models.Calldata, index int) (T, models.ContractName, error) {
	var action T
	if index < 0 || index >= len(calldata.Blobs) {
		return action, "", fmt.Errorf("%w: %d of %d", ErrBlobIndex, index, len(calldata.Blobs))
	}
	blob := calldata.Blobs[index]
	if err := json.Unmarshal(blob.Data, &action); err != nil {
		return action, blob.ContractName, fmt.Errorf("failed to parse %s action: %w", blob.ContractName, err)
	}
	return action, blob.ContractName, nil
}

// EncodeBlob builds a blob for the given contract from a JSON encodable action.
func EncodeBlob(name models.ContractName, action any) (models.Blob, error) {
	data, err := json.Marshal(action)
	if err != nil {
		return models.Blob{}, fmt.Errorf("failed to encode %s action: %w", name, err)
	}
	return models.Blob{ContractName: name, Data: data}, nil
}
