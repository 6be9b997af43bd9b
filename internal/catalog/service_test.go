package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/cedarpos/checkout-api/internal/catalog"
	"github.com/cedarpos/checkout-api/internal/pricing"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func countingLoader(calls *int, byCompany map[pricing.Company][]string) catalog.LoaderFunc {
	return func(_ context.Context, company pricing.Company) ([]string, error) {
		*calls++
		ids, ok := byCompany[company]
		if !ok {
			return nil, errors.New("unknown company")
		}
		return ids, nil
	}
}

func TestSnapshotLoadsAndCaches(t *testing.T) {
	ctx := context.Background()
	calls := 0
	svc := &catalog.Service{
		Loader: countingLoader(&calls, map[pricing.Company][]string{
			pricing.CompanyOfficial: {"a", "b"},
		}),
		R:   newTestRedis(t),
		TTL: time.Minute,
	}

	snap, err := svc.Snapshot(ctx, pricing.CompanyOfficial)
	require.NoError(t, err)
	require.True(t, snap.Has(pricing.CompanyOfficial, "a"))
	require.False(t, snap.Has(pricing.CompanyOfficial, "z"))
	require.Equal(t, 1, calls)

	// Second snapshot is served from cache without touching the loader.
	snap, err = svc.Snapshot(ctx, pricing.CompanyOfficial)
	require.NoError(t, err)
	require.True(t, snap.Has(pricing.CompanyOfficial, "b"))
	require.Equal(t, 1, calls)
}

func TestSnapshotCoversMultipleCompanies(t *testing.T) {
	ctx := context.Background()
	calls := 0
	svc := &catalog.Service{
		Loader: countingLoader(&calls, map[pricing.Company][]string{
			pricing.CompanyOfficial:   {"a"},
			pricing.CompanyUnofficial: {"x"},
		}),
		R:   newTestRedis(t),
		TTL: time.Minute,
	}

	snap, err := svc.Snapshot(ctx, pricing.CompanyOfficial, pricing.CompanyUnofficial)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.True(t, snap.Has(pricing.CompanyOfficial, "a"))
	require.True(t, snap.Has(pricing.CompanyUnofficial, "x"))
	require.False(t, snap.Has(pricing.CompanyOfficial, "x"))
}

func TestInvalidateForcesReload(t *testing.T) {
	ctx := context.Background()
	calls := 0
	svc := &catalog.Service{
		Loader: countingLoader(&calls, map[pricing.Company][]string{
			pricing.CompanyOfficial: {"a"},
		}),
		R:   newTestRedis(t),
		TTL: time.Minute,
	}

	_, err := svc.Snapshot(ctx, pricing.CompanyOfficial)
	require.NoError(t, err)
	require.Equal(t, 1, calls)

	require.NoError(t, svc.Invalidate(ctx, pricing.CompanyOfficial))

	_, err = svc.Snapshot(ctx, pricing.CompanyOfficial)
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestSnapshotWithoutRedisFallsBackToLoader(t *testing.T) {
	ctx := context.Background()
	calls := 0
	svc := &catalog.Service{
		Loader: countingLoader(&calls, map[pricing.Company][]string{
			pricing.CompanyOfficial: {"a"},
		}),
	}

	for i := 0; i < 2; i++ {
		snap, err := svc.Snapshot(ctx, pricing.CompanyOfficial)
		require.NoError(t, err)
		require.True(t, snap.Has(pricing.CompanyOfficial, "a"))
	}
	require.Equal(t, 2, calls)
}

func TestSnapshotPropagatesLoaderError(t *testing.T) {
	svc := &catalog.Service{
		Loader: catalog.LoaderFunc(func(context.Context, pricing.Company) ([]string, error) {
			return nil, errors.New("masterdata down")
		}),
		R:   newTestRedis(t),
		TTL: time.Minute,
	}
	_, err := svc.Snapshot(context.Background(), pricing.CompanyOfficial)
	require.Error(t, err)
	require.Contains(t, err.Error(), "masterdata down")
}
