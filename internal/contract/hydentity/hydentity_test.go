package hydentity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyle-oof/oofprover/internal/contract"
	"github.com/hyle-oof/oofprover/internal/models"
)

func run(t *testing.T, h *Hydentity, password string, action Action) error {
	t.Helper()
	blob, err := contract.EncodeBlob("hydentity", action)
	require.NoError(t, err)
	_, err = h.Execute(&models.Calldata{
		Identity:     models.Identity(action.Account),
		PrivateInput: []byte(password),
		Blobs:        []models.Blob{blob},
		TxBlobCount:  1,
	})
	return err
}

func TestVerifyIdentity(t *testing.T) {
	cases := []struct {
		name     string
		password string
		action   Action
		wantErr  error
	}{
		{
			name:     "valid password and nonce",
			password: "password",
			action:   Action{Action: ActionVerifyIdentity, Account: "bob", Nonce: 0},
		},
		{
			name:     "wrong password",
			password: "hunter2",
			action:   Action{Action: ActionVerifyIdentity, Account: "bob", Nonce: 0},
			wantErr:  ErrInvalidPassword,
		},
		{
			name:     "unknown account",
			password: "password",
			action:   Action{Action: ActionVerifyIdentity, Account: "alice", Nonce: 0},
			wantErr:  ErrUnknownAccount,
		},
		{
			name:     "register twice",
			password: "password",
			action:   Action{Action: ActionRegisterIdentity, Account: "bob"},
			wantErr:  ErrAlreadyExists,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := New()
			require.NoError(t, run(t, h, "password", Action{Action: ActionRegisterIdentity, Account: "bob"}))

			err := run(t, h, tc.password, tc.action)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNonceMustAdvance(t *testing.T) {
	h := New()
	require.NoError(t, run(t, h, "password", Action{Action: ActionRegisterIdentity, Account: "bob"}))

	require.NoError(t, run(t, h, "password", Action{Action: ActionVerifyIdentity, Account: "bob", Nonce: 3}))
	assert.Equal(t, uint32(4), h.Identities["bob"].Nonce)

	err := run(t, h, "password", Action{Action: ActionVerifyIdentity, Account: "bob", Nonce: 3})
	assert.ErrorIs(t, err, ErrInvalidNonce)
}

func TestClone(t *testing.T) {
	h := New()
	clone := h.Clone().(*Hydentity)
	require.NoError(t, run(t, clone, "password", Action{Action: ActionRegisterIdentity, Account: "bob"}))
	assert.Empty(t, h.Identities)
	assert.Equal(t, HashPassword("bob", []byte("password")), clone.Identities["bob"].Hash)
}
