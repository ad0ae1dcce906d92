package contract

import (
	"fmt"

	"github.com/hyle-oof/oofprover/internal/models"
)

// Registration declares a tracked contract and how its blobs are handled.
type Registration struct {
	Name models.ContractName
	// Contract is the initial state of the mirror.
	Contract Contract
	// PrivateInput is the out of band witness handed to the contract and the prover.
	PrivateInput []byte
	// ProveHistorical opts the contract into proving blobs below the start height.
	ProveHistorical bool
}

// Registry maps contract names to their registration.
type Registry struct {
	entries map[models.ContractName]Registration
	order   []models.ContractName
}

// NewRegistry builds a registry from the given registrations.
func NewRegistry(regs ...Registration) (*Registry, error) {
	r := &Registry{entries: make(map[models.ContractName]Registration, len(regs))}
	for _, reg := range regs {
		if err := r.Register(reg); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a contract to the registry.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" {
		return fmt.Errorf("contract name is empty")
	}
	if reg.Contract == nil {
		return fmt.Errorf("contract %s has no initial state", reg.Name)
	}
	if _, ok := r.entries[reg.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateContract, reg.Name)
	}
	r.entries[reg.Name] = reg
	r.order = append(r.order, reg.Name)
	return nil
}

// Lookup returns the registration for name.
func (r *Registry) Lookup(name models.ContractName) (Registration, bool) {
	reg, ok := r.entries[name]
	return reg, ok
}

// Names returns registered contract names in registration order.
func (r *Registry) Names() []models.ContractName {
	return append([]models.ContractName(nil), r.order...)
}
