package stream

import (
	"context"
	"math/big"
	"time"
)

// PriceAnalytics summarizes a stream's pricing behavior for dashboard and
// MCP consumers: the current instantaneous rate alongside the lifetime
// average, which can diverge sharply near a stream's edges where one side
// of the pool is thin (spec.md §4.1 current_streamed_price).
type PriceAnalytics struct {
	StreamID             string `json:"streamId"`
	CurrentStreamedPrice string `json:"currentStreamedPrice"` // out-per-in at the last sync, as a reduced fraction
	AveragePrice         string `json:"averagePrice"`         // spent_in / (out_total - out_remaining) over the stream's life so far
	OutDistributedSoFar  string `json:"outDistributedSoFar"`
	SpentInSoFar         string `json:"spentInSoFar"`
}

// AnalyticsService computes pricing views over a stream. It keeps no state
// of its own; AveragePrice syncs the stream through Service.SyncTime, which
// persists the synced stream like any other operation.
type AnalyticsService struct {
	service *Service
}

// NewAnalyticsService wraps a Service for read-only analytics.
func NewAnalyticsService(service *Service) *AnalyticsService {
	return &AnalyticsService{service: service}
}

// AveragePrice computes lifetime average and current instantaneous price
// for a stream, syncing it to now first.
func (a *AnalyticsService) AveragePrice(ctx context.Context, streamID string) (*PriceAnalytics, error) {
	s, err := a.service.SyncTime(ctx, streamID, time.Now())
	if err != nil {
		return nil, err
	}

	distributed := new(big.Int).Sub(s.OutTotal, s.OutRemaining)
	avg := "0/1"
	if distributed.Sign() > 0 {
		num := new(big.Int).Set(s.SpentIn)
		g := new(big.Int).GCD(nil, nil, new(big.Int).Abs(num), new(big.Int).Abs(distributed))
		n, d := num, distributed
		if g.Sign() > 0 {
			n = new(big.Int).Div(num, g)
			d = new(big.Int).Div(distributed, g)
		}
		avg = n.String() + "/" + d.String()
	}

	return &PriceAnalytics{
		StreamID:             streamID,
		CurrentStreamedPrice: s.CurrentStreamedPriceString(),
		AveragePrice:         avg,
		OutDistributedSoFar:  distributed.String(),
		SpentInSoFar:         s.SpentIn.String(),
	}, nil
}
