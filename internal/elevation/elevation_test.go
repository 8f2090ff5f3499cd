package elevation

import (
	"context"
	"errors"
	"testing"
)

func TestElevationMetersCachesResult(t *testing.T) {
	calls := 0
	c := NewClient(func(ctx context.Context, lat, lon float64) (float64, error) {
		calls++
		return 123.4, nil
	})

	first := c.ElevationMeters(context.Background(), 51.5, -0.5, "")
	second := c.ElevationMeters(context.Background(), 51.5, -0.5, "")

	if first != 123.4 || second != 123.4 {
		t.Errorf("got (%v, %v), want 123.4 both times", first, second)
	}
	if calls != 1 {
		t.Errorf("raw lookup called %d times, want 1 (second call should hit cache)", calls)
	}
}

func TestElevationMetersCacheKeyRounds(t *testing.T) {
	calls := 0
	c := NewClient(func(ctx context.Context, lat, lon float64) (float64, error) {
		calls++
		return 50, nil
	})

	c.ElevationMeters(context.Background(), 51.123456789, -0.500000001, "")
	c.ElevationMeters(context.Background(), 51.123457001, -0.500000009, "")

	if calls != 1 {
		t.Errorf("raw lookup called %d times, want 1 (coordinates round to the same 6-decimal key)", calls)
	}
}

func TestElevationMetersFallsBackToAirportDefault(t *testing.T) {
	c := NewClient(func(ctx context.Context, lat, lon float64) (float64, error) {
		return 0, errors.New("network down")
	})
	c.SetAirportDefault("EGLL", 24.0)

	got := c.ElevationMeters(context.Background(), 51.4775, -0.4614, "EGLL")
	if got != 24.0 {
		t.Errorf("got %v, want configured airport default 24.0", got)
	}
}

func TestElevationMetersFallsBackToGenericDefault(t *testing.T) {
	c := NewClient(func(ctx context.Context, lat, lon float64) (float64, error) {
		return 0, errors.New("network down")
	})

	got := c.ElevationMeters(context.Background(), 0, 0, "UNKNOWN")
	if got != genericDefaultMeters {
		t.Errorf("got %v, want generic default %v", got, genericDefaultMeters)
	}
}
