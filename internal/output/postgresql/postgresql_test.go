package postgresql

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyle-oof/oofprover/internal/models"
)

func newMock(t *testing.T) (*PostgresOutputHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestWriteBlock(t *testing.T) {
	h, mock := newMock(t)
	at := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec(insertBlock).
		WithArgs(int64(12), "hash-12", 3, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := h.WriteBlock(context.Background(), models.BlockRecord{Height: 12, Hash: "hash-12", TxCount: 3, ProcessedAt: at})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteTxEvent(t *testing.T) {
	cases := []struct {
		name    string
		rec     models.TxEventRecord
		execErr error
		wantErr string
	}{
		{
			name: "sequenced",
			rec:  models.TxEventRecord{TxHash: "tx-1", Kind: "SequencedTx"},
		},
		{
			name: "failed with reason",
			rec:  models.TxEventRecord{TxHash: "tx-2", Kind: "FailedTx", Reason: "insufficient balance"},
		},
		{
			name:    "database error",
			rec:     models.TxEventRecord{TxHash: "tx-3", Kind: "FailedTx"},
			execErr: errors.New("connection reset"),
			wantErr: "failed to write FailedTx event for tx tx-3: connection reset",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, mock := newMock(t)
			exp := mock.ExpectExec(insertTxEvent).WithArgs(string(tc.rec.TxHash), tc.rec.Kind, tc.rec.Reason, tc.rec.CreatedAt)
			if tc.execErr != nil {
				exp.WillReturnError(tc.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(1, 1))
			}

			err := h.WriteTxEvent(context.Background(), tc.rec)
			if tc.wantErr != "" {
				assert.EqualError(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestWriteProofResult(t *testing.T) {
	h, mock := newMock(t)
	at := time.Unix(1700000100, 0).UTC()
	rec := models.ProofRecord{
		TaskID:       "3f1f7d3e-8a55-4a43-9d1f-0c6a3c2b7a10",
		ContractName: "hyllar",
		TxHash:       "tx-1",
		ProofTxHash:  "proof-tx",
		Duration:     1500 * time.Millisecond,
		FinishedAt:   at,
	}

	mock.ExpectExec(insertProof).
		WithArgs(rec.TaskID, "hyllar", "tx-1", "proof-tx", "", int64(1500), at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, h.WriteProofResult(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLatestBlock(t *testing.T) {
	t.Run("empty journal", func(t *testing.T) {
		h, mock := newMock(t)
		mock.ExpectQuery(selectLatestBlock).
			WillReturnRows(sqlmock.NewRows([]string{"height", "hash", "tx_count", "processed_at"}))

		rec, err := h.GetLatestBlock(context.Background())
		require.NoError(t, err)
		assert.Nil(t, rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("latest row", func(t *testing.T) {
		h, mock := newMock(t)
		at := time.Unix(1700000000, 0).UTC()
		mock.ExpectQuery(selectLatestBlock).
			WillReturnRows(sqlmock.NewRows([]string{"height", "hash", "tx_count", "processed_at"}).
				AddRow(int64(99), "hash-99", 4, at))

		rec, err := h.GetLatestBlock(context.Background())
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, models.BlockRecord{Height: 99, Hash: "hash-99", TxCount: 4, ProcessedAt: at}, *rec)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		h, mock := newMock(t)
		mock.ExpectQuery(selectLatestBlock).WillReturnError(errors.New("boom"))

		_, err := h.GetLatestBlock(context.Background())
		assert.EqualError(t, err, "failed to get latest block: boom")
	})
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"000001_init.down.sql", "000001_init.up.sql"}, names)
}
