package service

import (
	"context"

	"countriapi/internal/ratelimit/models"
	"countriapi/internal/ratelimit/ports"
)

// RemoteWindow adapts a shared BucketStore to the Limiter interface, keeping
// one counter per tier under models.WindowKey.
type RemoteWindow struct {
	store ports.BucketStore
	tier  models.Tier
	key   string
	limit models.Limit
}

func NewRemoteWindow(store ports.BucketStore, tier models.Tier, limit models.Limit) *RemoteWindow {
	return &RemoteWindow{
		store: store,
		tier:  tier,
		key:   models.WindowKey(tier),
		limit: limit,
	}
}

func (w *RemoteWindow) Admit(ctx context.Context) (*models.RateLimitResult, error) {
	result, err := w.store.Allow(ctx, w.key, w.limit.RequestsPerWindow, w.limit.Window)
	if err != nil {
		return nil, err
	}
	result.Tier = w.tier
	return result, nil
}

// ResetWindow deletes the shared counter, affecting every instance.
func (w *RemoteWindow) ResetWindow(ctx context.Context) error {
	return w.store.Reset(ctx, w.key)
}
