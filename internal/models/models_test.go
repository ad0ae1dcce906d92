package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobTransactionHash(t *testing.T) {
	base := BlobTransaction{
		Identity: "bob.hydentity",
		Blobs: []Blob{
			{ContractName: "hyllar", Data: []byte(`{"action":"transfer"}`)},
			{ContractName: "ticket_app", Data: []byte(`{"action":"buy_ticket"}`)},
		},
	}

	cases := []struct {
		name     string
		mutate   func(tx *BlobTransaction)
		wantSame bool
	}{
		{
			name:     "identical transaction",
			mutate:   func(tx *BlobTransaction) {},
			wantSame: true,
		},
		{
			name:   "different identity",
			mutate: func(tx *BlobTransaction) { tx.Identity = "alice.hydentity" },
		},
		{
			name:   "different blob data",
			mutate: func(tx *BlobTransaction) { tx.Blobs[0].Data = []byte(`{}`) },
		},
		{
			name:   "different blob order",
			mutate: func(tx *BlobTransaction) { tx.Blobs[0], tx.Blobs[1] = tx.Blobs[1], tx.Blobs[0] },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			other := BlobTransaction{Identity: base.Identity, Blobs: append([]Blob(nil), base.Blobs...)}
			tc.mutate(&other)
			if tc.wantSame {
				assert.Equal(t, base.Hash(), other.Hash())
			} else {
				assert.NotEqual(t, base.Hash(), other.Hash())
			}
		})
	}

	assert.Len(t, string(base.Hash()), 64)
}

func TestCalldataClone(t *testing.T) {
	orig := &Calldata{
		Identity:     "bob.hydentity",
		TxHash:       "abc",
		PrivateInput: []byte("password"),
		Blobs:        []Blob{{ContractName: "hydentity", Data: []byte("x")}},
		Index:        0,
		TxCtx:        &TxContext{BlockHeight: 7, LaneID: "lane-1"},
		TxBlobCount:  1,
	}

	clone := orig.Clone()
	require.Equal(t, orig, clone)

	orig.PrivateInput[0] = 'P'
	orig.Blobs[0].Data[0] = 'y'
	orig.TxCtx.BlockHeight = 99

	assert.Equal(t, []byte("password"), clone.PrivateInput)
	assert.Equal(t, []byte("x"), clone.Blobs[0].Data)
	assert.Equal(t, BlockHeight(7), clone.TxCtx.BlockHeight)

	var nilCalldata *Calldata
	assert.Nil(t, nilCalldata.Clone())
}

func TestCalldataBlob(t *testing.T) {
	c := &Calldata{Blobs: []Blob{{ContractName: "a"}}, Index: 0}
	blob, ok := c.Blob()
	assert.True(t, ok)
	assert.Equal(t, ContractName("a"), blob.ContractName)

	c.Index = 3
	_, ok = c.Blob()
	assert.False(t, ok)
}
