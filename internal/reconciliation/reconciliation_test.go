package reconciliation

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamswap/engine/internal/stream"
)

func healthyStream(id string) *stream.Stream {
	now := time.Now()
	return &stream.Stream{
		ID:           id,
		OutTotal:     big.NewInt(1000),
		OutRemaining: big.NewInt(400),
		InSupply:     big.NewInt(10),
		SpentIn:      big.NewInt(600),
		Shares:       big.NewInt(10),
		CreatedAt:    now,
	}
}

func TestRunAllReportsNoMismatchesForHealthyStreams(t *testing.T) {
	store := stream.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Create(ctx, healthyStream("s1")))
	require.NoError(t, store.Create(ctx, healthyStream("s2")))

	runner := NewRunner(store)
	report, err := runner.RunAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.StreamsChecked)
	require.Empty(t, report.Mismatches)
}

func TestRunAllFlagsOutRemainingExceedingTotal(t *testing.T) {
	store := stream.NewMemoryStore()
	ctx := context.Background()

	broken := healthyStream("broken")
	broken.OutRemaining = big.NewInt(2000)
	require.NoError(t, store.Create(ctx, broken))

	runner := NewRunner(store)
	report, err := runner.RunAll(ctx)
	require.NoError(t, err)
	require.Len(t, report.Mismatches, 1)
	require.Equal(t, "broken", report.Mismatches[0].StreamID)
}

func TestRunAllFlagsNegativeSpentIn(t *testing.T) {
	store := stream.NewMemoryStore()
	ctx := context.Background()

	broken := healthyStream("negative")
	broken.SpentIn = big.NewInt(-1)
	require.NoError(t, store.Create(ctx, broken))

	runner := NewRunner(store)
	report, err := runner.RunAll(ctx)
	require.NoError(t, err)
	require.Len(t, report.Mismatches, 1)
}

func TestRunAllOnEmptyStoreIsHealthy(t *testing.T) {
	store := stream.NewMemoryStore()
	runner := NewRunner(store)

	report, err := runner.RunAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, report.StreamsChecked)
	require.Empty(t, report.Mismatches)
}
