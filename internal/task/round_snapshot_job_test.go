package task

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/blues/qfround/internal/model"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRounds struct {
	record *model.RoundRecord
	err    error
}

func (s stubRounds) CurrentRound(context.Context) (*model.RoundRecord, error) {
	return s.record, s.err
}

type stubBlocks uint64

func (b stubBlocks) BlockNumber(context.Context) (uint64, error) {
	return uint64(b), nil
}

type memoryStore struct {
	rows []model.RoundSnapshotModel
}

func (m *memoryStore) Create(_ context.Context, s *model.RoundSnapshotModel) error {
	m.rows = append(m.rows, *s)
	return nil
}

func (m *memoryStore) LatestBlock(_ context.Context, address string) (uint64, error) {
	var latest uint64
	for _, row := range m.rows {
		if row.RoundAddress == address && row.BlockNum > latest {
			latest = row.BlockNum
		}
	}
	return latest, nil
}

func sampleRecord() *model.RoundRecord {
	return &model.RoundRecord{
		Address:       common.HexToAddress("0x0000000000000000000000000000000000000d01"),
		Index:         2,
		Status:        model.RoundStatusContributing,
		Contributors:  3,
		Contributions: big.NewInt(700),
		MatchingPool:  big.NewInt(1300),
		TotalFunds:    big.NewInt(2000),
	}
}

func TestRoundSnapshotJobStoresCurrentRound(t *testing.T) {
	store := &memoryStore{}
	job := NewRoundSnapshotJob(stubRounds{record: sampleRecord()}, stubBlocks(120), store, time.Minute)

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, sampleRecord().Address.Hex(), row.RoundAddress)
	assert.Equal(t, 2, row.RoundIndex)
	assert.Equal(t, "Contributing", row.Status)
	assert.Equal(t, "2000", row.TotalFunds)
	assert.Equal(t, uint64(120), row.BlockNum)

	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, store.rows, 1, "same block is not stored twice")
}

func TestRoundSnapshotJobSkipsWithoutCurrentRound(t *testing.T) {
	store := &memoryStore{}
	job := NewRoundSnapshotJob(stubRounds{err: fmt.Errorf("%w: none", model.ErrRoundNotFound)}, stubBlocks(1), store, time.Minute)

	require.NoError(t, job.Run(context.Background()))
	assert.Empty(t, store.rows)

	failing := NewRoundSnapshotJob(stubRounds{err: model.ErrLedgerUnavailable}, stubBlocks(1), store, time.Minute)
	assert.True(t, errors.Is(failing.Run(context.Background()), model.ErrLedgerUnavailable))
}

func TestManagerRegistersJobs(t *testing.T) {
	job := NewRoundSnapshotJob(stubRounds{record: sampleRecord()}, stubBlocks(1), &memoryStore{}, time.Hour)
	m, err := NewManager(job)
	require.NoError(t, err)
	require.NoError(t, m.Start())
	defer m.Stop()

	assert.Equal(t, []string{"round_snapshot"}, m.Jobs())
}
