package stratcache

import (
	"context"
	"testing"

	"backtest-engine/internal/models"
)

type fakeLoader struct {
	calls  int
	params models.StrategyParams
}

func (f *fakeLoader) LoadStrategyParams(ctx context.Context, strategyID int64) (models.StrategyParams, error) {
	f.calls++
	return f.params, nil
}

func TestGetLoadsOnceThenCachesInMemory(t *testing.T) {
	loader := &fakeLoader{params: models.StrategyParams{ID: 7, MinAdvancePct: 2}}
	c := New(nil, 0, loader)

	params, err := c.Get(context.Background(), 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.MinAdvancePct != 2 {
		t.Fatalf("expected loaded params, got %+v", params)
	}

	if _, err := c.Get(context.Background(), 7); err != nil {
		t.Fatalf("unexpected error on second get: %v", err)
	}

	if loader.calls != 1 {
		t.Fatalf("expected the loader to be called exactly once, got %d", loader.calls)
	}
}
