package contract

import (
	"fmt"

	"github.com/hyle-oof/oofprover/internal/models"
)

// Store holds exactly one mirror per registered contract.
// It is not safe for concurrent use: only the ingestion loop writes to it.
type Store struct {
	mirrors map[models.ContractName]Contract
}

// NewStore creates one mirror per registration from its initial state.
func NewStore(registry *Registry) *Store {
	s := &Store{mirrors: make(map[models.ContractName]Contract)}
	for _, name := range registry.Names() {
		reg, _ := registry.Lookup(name)
		s.mirrors[name] = reg.Contract.Clone()
	}
	return s
}

// Get returns the current mirror for name.
func (s *Store) Get(name models.ContractName) (Contract, bool) {
	c, ok := s.mirrors[name]
	return c, ok
}

// Snapshot serializes the current state of a mirror.
func (s *Store) Snapshot(name models.ContractName) ([]byte, error) {
	c, ok := s.mirrors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, name)
	}
	return c.SerializeState()
}

// Apply executes calldata against a scratch copy of the mirror and replaces
// the mirror only when execution succeeds.
func (s *Store) Apply(name models.ContractName, calldata *models.Calldata) (string, error) {
	c, ok := s.mirrors[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownContract, name)
	}
	scratch := c.Clone()
	out, err := scratch.Execute(calldata)
	if err != nil {
		return "", err
	}
	s.mirrors[name] = scratch
	return out, nil
}
