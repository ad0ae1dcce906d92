package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyle-oof/oofprover/internal/models"
)

func tx(identity string) *models.BlobTransaction {
	return &models.BlobTransaction{Identity: models.Identity(identity)}
}

func TestSettleTx(t *testing.T) {
	cases := []struct {
		name       string
		tracked    []models.TxHash
		settle     []models.TxHash
		wantRemain []models.TxHash
	}{
		{
			name:       "settle one of two",
			tracked:    []models.TxHash{"a", "b"},
			settle:     []models.TxHash{"a"},
			wantRemain: []models.TxHash{"b"},
		},
		{
			name:       "unknown hash is a no-op",
			tracked:    []models.TxHash{"a"},
			settle:     []models.TxHash{"z"},
			wantRemain: []models.TxHash{"a"},
		},
		{
			name:       "settling twice is idempotent",
			tracked:    []models.TxHash{"a", "b"},
			settle:     []models.TxHash{"b", "b"},
			wantRemain: []models.TxHash{"a"},
		},
		{
			name:       "duplicate entries are removed one at a time",
			tracked:    []models.TxHash{"a", "a", "b"},
			settle:     []models.TxHash{"a"},
			wantRemain: []models.TxHash{"a", "b"},
		},
		{
			name:       "drain everything",
			tracked:    []models.TxHash{"a", "b", "c"},
			settle:     []models.TxHash{"c", "a", "b"},
			wantRemain: []models.TxHash{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tracker := NewTracker(nil)
			for _, h := range tc.tracked {
				tracker.Track(h, tx(string(h)))
			}
			for _, h := range tc.settle {
				tracker.SettleTx(h, StatusSuccessful)
			}
			assert.Equal(t, tc.wantRemain, tracker.Hashes())
			assert.Equal(t, len(tc.wantRemain), tracker.Len())
		})
	}
}

func TestSettleTxReportsRemoval(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Track("a", tx("bob"))

	assert.True(t, tracker.Contains("a"))
	got, ok := tracker.Get("a")
	assert.True(t, ok)
	assert.Equal(t, models.Identity("bob"), got.Identity)

	assert.True(t, tracker.SettleTx("a", StatusTimedOut))
	assert.False(t, tracker.SettleTx("a", StatusTimedOut))
	assert.False(t, tracker.Contains("a"))
	_, ok = tracker.Get("a")
	assert.False(t, ok)
}
