// Package hyllar implements the fungible token contract used to pay for tickets.
package hyllar

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hyle-oof/oofprover/internal/contract"
	"github.com/hyle-oof/oofprover/internal/models"
)

const (
	// FaucetIdentity receives the whole supply when the contract is created.
	FaucetIdentity = "faucet.hydentity"
	// DefaultSupply is the total supply minted to the faucet.
	DefaultSupply = 100_000_000_000
)

const (
	ActionTransfer     = "transfer"
	ActionTransferFrom = "transfer_from"
	ActionApprove      = "approve"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Action is a hyllar blob payload.
type Action struct {
	Action    string       `json:"action"`
	Owner     string       `json:"owner,omitempty"`
	Recipient string       `json:"recipient,omitempty"`
	Spender   string       `json:"spender,omitempty"`
	Amount    *uint256.Int `json:"amount"`
}

// Transfer builds a transfer action.
func Transfer(recipient string, amount uint64) Action {
	return Action{Action: ActionTransfer, Recipient: recipient, Amount: uint256.NewInt(amount)}
}

// Hyllar is the token state: balances and allowances keyed by identity.
type Hyllar struct {
	TotalSupply *uint256.Int                       `json:"total_supply"`
	Balances    map[string]*uint256.Int            `json:"balances"`
	Allowances  map[string]map[string]*uint256.Int `json:"allowances"`
}

// New mints supply to the faucet identity.
func New(supply uint64) *Hyllar {
	return &Hyllar{
		TotalSupply: uint256.NewInt(supply),
		Balances:    map[string]*uint256.Int{FaucetIdentity: uint256.NewInt(supply)},
		Allowances:  make(map[string]map[string]*uint256.Int),
	}
}

// BalanceOf returns the balance of account, zero when unknown.
func (h *Hyllar) BalanceOf(account string) *uint256.Int {
	if b, ok := h.Balances[account]; ok {
		return b.Clone()
	}
	return new(uint256.Int)
}

func (h *Hyllar) Execute(calldata *models.Calldata) (string, error) {
	action, ctx, err := contract.ParseAction[Action](calldata)
	if err != nil {
		return "", err
	}
	if action.Amount == nil {
		return "", fmt.Errorf("amount is required")
	}
	caller := string(ctx.Caller)
	switch action.Action {
	case ActionTransfer:
		if err := h.move(caller, action.Recipient, action.Amount); err != nil {
			return "", err
		}
		return fmt.Sprintf("Transferred %s to %s", action.Amount.Dec(), action.Recipient), nil
	case ActionApprove:
		if h.Allowances[caller] == nil {
			h.Allowances[caller] = make(map[string]*uint256.Int)
		}
		h.Allowances[caller][action.Spender] = action.Amount.Clone()
		return fmt.Sprintf("Approved %s to %s", action.Amount.Dec(), action.Spender), nil
	case ActionTransferFrom:
		allowed := new(uint256.Int)
		if a, ok := h.Allowances[action.Owner][caller]; ok {
			allowed = a
		}
		if allowed.Lt(action.Amount) {
			return "", fmt.Errorf("%w: %s allowed %s, needed %s", ErrInsufficientAllowance, caller, allowed.Dec(), action.Amount.Dec())
		}
		if err := h.move(action.Owner, action.Recipient, action.Amount); err != nil {
			return "", err
		}
		if h.Allowances[action.Owner] == nil {
			h.Allowances[action.Owner] = make(map[string]*uint256.Int)
		}
		h.Allowances[action.Owner][caller] = new(uint256.Int).Sub(allowed, action.Amount)
		return fmt.Sprintf("Transferred %s from %s to %s", action.Amount.Dec(), action.Owner, action.Recipient), nil
	default:
		return "", fmt.Errorf("unknown hyllar action %q", action.Action)
	}
}

func (h *Hyllar) move(from, to string, amount *uint256.Int) error {
	if to == "" {
		return fmt.Errorf("recipient is required")
	}
	balance := h.BalanceOf(from)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needed %s", ErrInsufficientBalance, from, balance.Dec(), amount.Dec())
	}
	h.Balances[from] = new(uint256.Int).Sub(balance, amount)
	h.Balances[to] = new(uint256.Int).Add(h.BalanceOf(to), amount)
	return nil
}

func (h *Hyllar) SerializeState() ([]byte, error) {
	return json.Marshal(h)
}

func (h *Hyllar) Clone() contract.Contract {
	out := &Hyllar{
		TotalSupply: h.TotalSupply.Clone(),
		Balances:    make(map[string]*uint256.Int, len(h.Balances)),
		Allowances:  make(map[string]map[string]*uint256.Int, len(h.Allowances)),
	}
	for k, v := range h.Balances {
		out.Balances[k] = v.Clone()
	}
	for owner, spenders := range h.Allowances {
		m := make(map[string]*uint256.Int, len(spenders))
		for k, v := range spenders {
			m[k] = v.Clone()
		}
		out.Allowances[owner] = m
	}
	return out
}
