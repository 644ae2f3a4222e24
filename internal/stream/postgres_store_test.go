package stream

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamswap/engine/internal/rational"
	"github.com/streamswap/engine/internal/testutil"
)

func sampleStream(id string) *Stream {
	now := time.Now().UTC().Truncate(time.Second)
	return &Stream{
		ID:                     id,
		Name:                   "test stream " + id,
		StreamAdmin:            "0xadmin",
		Treasury:               "0xtreasury",
		OutDenom:               "uout",
		OutTotal:               big.NewInt(1_000_000),
		InDenom:                "uusdc",
		BootstrappingStartTime: now,
		StartTime:              now.Add(time.Hour),
		EndTime:                now.Add(25 * time.Hour),
		LastUpdated:            now,
		DistIndex:              rational.Zero(),
		Shares:                 big.NewInt(0),
		InSupply:               big.NewInt(0),
		SpentIn:                big.NewInt(0),
		OutRemaining:           big.NewInt(1_000_000),
		CurrentStreamedPrice:   rational.Zero(),
		Status:                 StatusWaiting,
		CreatedAt:              now,
	}
}

// TestPostgresStoreCreateGetUpdate exercises the real num/den text-fraction
// round trip for dist_index and current_streamed_price, not just the
// in-memory stand-in's rational.Rational values.
func TestPostgresStoreCreateGetUpdate(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	s := sampleStream("str_pg_1")
	require.NoError(t, store.Create(ctx, s))

	got, err := store.Get(ctx, "str_pg_1")
	require.NoError(t, err)
	require.Equal(t, s.Name, got.Name)
	require.True(t, got.DistIndex.Num().Sign() == 0)
	require.Equal(t, StatusWaiting, got.Status)

	got.Status = StatusActive
	got.DistIndex = rational.New(big.NewInt(3), big.NewInt(7))
	got.Shares = big.NewInt(500)
	require.NoError(t, store.Update(ctx, got))

	reloaded, err := store.Get(ctx, "str_pg_1")
	require.NoError(t, err)
	require.Equal(t, StatusActive, reloaded.Status)
	require.Equal(t, "500", reloaded.Shares.String())
	require.Equal(t, int64(3), reloaded.DistIndex.Num().Int64())
	require.Equal(t, int64(7), reloaded.DistIndex.Den().Int64())
}

// TestPostgresStoreListOrdersByID checks the keyset-pagination WHERE clause
// against real rows instead of the in-memory store's sorted slice.
func TestPostgresStoreListOrdersByID(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	for _, id := range []string{"str_a", "str_b", "str_c"} {
		require.NoError(t, store.Create(ctx, sampleStream(id)))
	}

	page, err := store.List(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, "str_a", page[0].ID)
	require.Equal(t, "str_b", page[1].ID)

	rest, err := store.List(ctx, page[1].ID, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	require.Equal(t, "str_c", rest[0].ID)
}

// TestPostgresStoreDuplicateIDRejected asserts the primary key on streams.id
// makes a second Create with the same ID fail.
func TestPostgresStoreDuplicateIDRejected(t *testing.T) {
	db, cleanup := testutil.PGTest(t)
	defer cleanup()

	store := NewPostgresStore(db)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleStream("str_dup")))
	err := store.Create(ctx, sampleStream("str_dup"))
	require.Error(t, err)
}
