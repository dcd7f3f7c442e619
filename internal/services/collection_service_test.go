package services

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/models"
)

func TestCollectionAddKeepsUnitsSeparate(t *testing.T) {
	f := newFixture(t)
	svc := NewCollectionService(f.store)
	homer := f.collector("homer", models.PrivilegeCollector)
	donut := f.collectible("Golden Donut")

	a, err := svc.Add(f.ctx, homer.ID, donut.ID)
	require.NoError(t, err)
	b, err := svc.Add(f.ctx, homer.ID, donut.ID)
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, "Golden Donut", a.Collectible.Name)

	_, err = svc.Add(f.ctx, homer.ID, 9999)
	require.True(t, apperrors.Is(err, apperrors.KindInput))

	has, err := svc.Has(f.ctx, homer.ID, donut.ID)
	require.NoError(t, err)
	require.True(t, has)

	entries, err := svc.ListByOwner(f.ctx, homer.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestCollectionRemove(t *testing.T) {
	f := newFixture(t)
	svc := NewCollectionService(f.store)
	homer := f.collector("homer", models.PrivilegeCollector)
	bart := f.collector("bart", models.PrivilegeCollector)
	listed := f.entry(homer, f.collectible("Golden Donut"))
	post := f.post(homer, listed)
	offered := f.entry(bart, f.collectible("Skateboard"))
	f.offer(post, bart, offered)
	spare := f.entry(bart, f.collectible("Slingshot"))

	err := svc.Remove(f.ctx, homer.ID, listed.ID)
	require.True(t, apperrors.Is(err, apperrors.KindInput))
	require.Contains(t, err.Error(), "trade post")

	err = svc.Remove(f.ctx, bart.ID, offered.ID)
	require.True(t, apperrors.Is(err, apperrors.KindInput))
	require.Contains(t, err.Error(), "pending trade")

	err = svc.Remove(f.ctx, homer.ID, spare.ID)
	require.True(t, apperrors.Is(err, apperrors.KindAccess))

	require.NoError(t, svc.Remove(f.ctx, bart.ID, spare.ID))
	require.Zero(t, f.count(&models.CollectionEntry{}, "id = ?", spare.ID))
}

func TestCollectionStats(t *testing.T) {
	f := newFixture(t)
	svc := NewCollectionService(f.store)
	wants := NewWantlistService(f.store)
	homer := f.collector("homer", models.PrivilegeCollector)
	bart := f.collector("bart", models.PrivilegeCollector)
	donut := f.collectible("Golden Donut")

	listed := f.entry(homer, donut)
	f.entry(homer, donut)
	f.entry(homer, f.collectible("Duff Can"))
	post := f.post(homer, listed)
	offer := f.offer(post, bart, f.entry(bart, f.collectible("Skateboard")))
	_, err := f.trades.AcceptOffer(f.ctx, homer.ID, offer.ID)
	require.NoError(t, err)
	require.NoError(t, wants.Add(f.ctx, homer.ID, donut.ID))

	stats, err := svc.Stats(f.ctx, homer.ID)
	require.NoError(t, err)
	// Homer gave one donut away and received the skateboard.
	require.Equal(t, models.CollectionStats{
		TotalEntries:     3,
		UniqueItems:      3,
		ListedForTrade:   0,
		CompletedTrades:  1,
		WantlistedTotals: 1,
	}, stats)
}

func TestWantlist(t *testing.T) {
	f := newFixture(t)
	svc := NewWantlistService(f.store)
	lisa := f.collector("lisa", models.PrivilegeCollector)
	sax := f.collectible("Saxophone")

	require.NoError(t, svc.Add(f.ctx, lisa.ID, sax.ID))
	require.NoError(t, svc.Add(f.ctx, lisa.ID, sax.ID))
	list, err := svc.List(f.ctx, lisa.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.True(t, apperrors.Is(svc.Add(f.ctx, lisa.ID, 9999), apperrors.KindInput))

	require.NoError(t, svc.Remove(f.ctx, lisa.ID, sax.ID))
	err = svc.Remove(f.ctx, lisa.ID, sax.ID)
	require.True(t, apperrors.Is(err, apperrors.KindInput))
	require.Contains(t, err.Error(), "not found")
}

func TestCollectorProfiles(t *testing.T) {
	f := newFixture(t)
	svc := NewCollectorService(f.store)
	homer := f.collector("homer", models.PrivilegeCollector)
	f.post(homer, f.entry(homer, f.collectible("Golden Donut")))

	first := " Homer "
	phone := "555-7334"
	updated, err := svc.UpdateProfile(f.ctx, homer.ID, models.UpdateProfileRequest{FirstName: &first, Phone: &phone})
	require.NoError(t, err)
	require.Equal(t, "Homer", updated.FirstName)
	require.Equal(t, "555-7334", updated.Phone)

	public, err := svc.PublicProfile(f.ctx, homer.ID)
	require.NoError(t, err)
	require.Equal(t, "homer", public.Username)
	require.Equal(t, "Homer", public.FirstName)
	require.Equal(t, int64(1), public.OpenListings)

	_, err = svc.UpdateProfile(f.ctx, 9999, models.UpdateProfileRequest{FirstName: &first})
	require.True(t, apperrors.Is(err, apperrors.KindInput))
}
