package stream

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAveragePriceReflectsFullDistribution(t *testing.T) {
	svc, _, now := newTestService(t)
	t0 := now()
	st := createTestStream(t, svc, t0, nil)
	ctx := context.Background()

	_, err := svc.Subscribe(ctx, st.ID, SubscribeRequest{
		Owner: "0xbuyer0000000000000000000000000000000001", InAmount: big.NewInt(500_000), InDenom: "uusdc",
	})
	require.NoError(t, err)

	analytics := NewAnalyticsService(svc)
	result, err := analytics.AveragePrice(ctx, st.ID)
	require.NoError(t, err)
	require.Equal(t, st.ID, result.StreamID)

	_, err = svc.SyncTime(ctx, st.ID, t0.Add(200*time.Second))
	require.NoError(t, err)

	result, err = analytics.AveragePrice(ctx, st.ID)
	require.NoError(t, err)
	require.Equal(t, "1/2", result.AveragePrice)
}
