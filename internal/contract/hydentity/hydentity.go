// Package hydentity implements the password based identity contract.
package hydentity

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/hyle-oof/oofprover/internal/contract"
	"github.com/hyle-oof/oofprover/internal/models"
)

const (
	ActionRegisterIdentity = "register_identity"
	ActionVerifyIdentity   = "verify_identity"
)

var (
	ErrUnknownAccount  = errors.New("identity not registered")
	ErrAlreadyExists   = errors.New("identity already registered")
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidNonce    = errors.New("invalid nonce")
)

// Action is a hydentity blob payload.
type Action struct {
	Action  string `json:"action"`
	Account string `json:"account"`
	Nonce   uint32 `json:"nonce,omitempty"`
}

// Account is the registered data for one identity.
type Account struct {
	Hash  string `json:"hash"`
	Nonce uint32 `json:"nonce"`
}

// Hydentity maps accounts to their password hash and next expected nonce.
type Hydentity struct {
	Identities map[string]Account `json:"identities"`
}

func New() *Hydentity {
	return &Hydentity{Identities: make(map[string]Account)}
}

// HashPassword derives the stored hash for an account and password.
func HashPassword(account string, password []byte) string {
	h := sha3.New256()
	h.Write([]byte(account))
	h.Write([]byte{':'})
	h.Write(password)
	return hex.EncodeToString(h.Sum(nil))
}

func (h *Hydentity) Execute(calldata *models.Calldata) (string, error) {
	action, _, err := contract.ParseAction[Action](calldata)
	if err != nil {
		return "", err
	}
	if action.Account == "" {
		return "", fmt.Errorf("account is required")
	}
	hash := HashPassword(action.Account, calldata.PrivateInput)

	switch action.Action {
	case ActionRegisterIdentity:
		if _, ok := h.Identities[action.Account]; ok {
			return "", fmt.Errorf("%w: %s", ErrAlreadyExists, action.Account)
		}
		h.Identities[action.Account] = Account{Hash: hash}
		return fmt.Sprintf("Successfully registered identity for account: %s", action.Account), nil
	case ActionVerifyIdentity:
		acc, ok := h.Identities[action.Account]
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownAccount, action.Account)
		}
		if acc.Hash != hash {
			return "", fmt.Errorf("%w for account %s", ErrInvalidPassword, action.Account)
		}
		if action.Nonce < acc.Nonce {
			return "", fmt.Errorf("%w: got %d, expected at least %d", ErrInvalidNonce, action.Nonce, acc.Nonce)
		}
		acc.Nonce = action.Nonce + 1
		h.Identities[action.Account] = acc
		return fmt.Sprintf("Identity verified for account: %s", action.Account), nil
	default:
		return "", fmt.Errorf("unknown hydentity action %q", action.Action)
	}
}

func (h *Hydentity) SerializeState() ([]byte, error) {
	return json.Marshal(h)
}

func (h *Hydentity) Clone() contract.Contract {
	out := &Hydentity{Identities: make(map[string]Account, len(h.Identities))}
	for k, v := range h.Identities {
		out.Identities[k] = v
	}
	return out
}
