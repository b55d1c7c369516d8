package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"shortlink/cache"
	"shortlink/models"
	"shortlink/storage"
)

func newTestService(t *testing.T) (*LinkService, *storage.LinkStore) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every session on the same in-memory
	// database and serializes concurrent writers.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Link{}))

	store := storage.NewLinkStore(db)
	svc := NewLinkService(store, cache.NewMemoryCache(64), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, store
}

func uintPtr(v uint) *uint { return &v }

func TestShortenGeneratesCode(t *testing.T) {
	svc, _ := newTestService(t)

	link, err := svc.Shorten(context.Background(), ShortenInput{OriginalURL: "https://example.com/page"})
	require.NoError(t, err)

	assert.Len(t, link.ShortCode, DefaultCodeLength)
	assert.Equal(t, "https://example.com/page", link.OriginalURL)
	assert.NotZero(t, link.ID)
	assert.NotEmpty(t, link.ClaimToken, "anonymous links carry a claim token")
	assert.Nil(t, link.UserID)
	assert.WithinDuration(t, time.Now().Add(DefaultLinkTTL), link.ExpiresAt, time.Minute)
}

func TestShortenDedupsNormalizedURLs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "HTTP://Example.com/Foo "})
	require.NoError(t, err)

	second, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "http://example.com/foo"})
	require.NoError(t, err)

	assert.Equal(t, first.ShortCode, second.ShortCode)
	assert.Equal(t, first.ID, second.ID, "dedup returns the existing row, no new insert")
}

func TestShortenDedupIgnoresOwner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	anon, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com/shared"})
	require.NoError(t, err)

	owned, err := svc.Shorten(ctx, ShortenInput{
		OriginalURL: "https://example.com/shared",
		UserID:      uintPtr(7),
	})
	require.NoError(t, err)

	assert.Equal(t, anon.ID, owned.ID)
	assert.Nil(t, owned.UserID, "dedup never reassigns ownership")
}

func TestShortenCustomAlias(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	link, err := svc.Shorten(ctx, ShortenInput{
		OriginalURL: "https://example.com/sale",
		CustomAlias: "promo",
	})
	require.NoError(t, err)
	assert.Equal(t, "promo", link.ShortCode)

	_, err = svc.Shorten(ctx, ShortenInput{
		OriginalURL: "https://example.com/other",
		CustomAlias: "promo",
	})
	assert.ErrorIs(t, err, ErrAliasTaken)
}

func TestShortenCustomAliasConcurrentSingleWinner(t *testing.T) {
	svc, _ := newTestService(t)

	const racers = 2
	results := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		url := "https://example.com/racer-a"
		if i == 1 {
			url = "https://example.com/racer-b"
		}
		go func(u string) {
			defer wg.Done()
			_, err := svc.Shorten(context.Background(), ShortenInput{
				OriginalURL: u,
				CustomAlias: "contested",
			})
			results <- err
		}(url)
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case assert.ErrorIs(t, err, ErrAliasTaken):
			conflicts++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)
}

func TestShortenInvalidInput(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "nope"})
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com", CustomAlias: "a"})
	assert.ErrorIs(t, err, ErrInvalidAlias)

	past := time.Now().Add(-time.Hour)
	_, err = svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com", ExpiresAt: &past})
	assert.ErrorIs(t, err, ErrInvalidExpiry)
}

func TestResolveCountsClicks(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	link, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com/hot"})
	require.NoError(t, err)

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			target, err := svc.Resolve(ctx, link.ShortCode)
			assert.NoError(t, err)
			assert.Equal(t, "https://example.com/hot", target)
		}()
	}
	wg.Wait()

	stored, err := store.FindByCode(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, int64(n), stored.ClickCount, "concurrent redirects must not lose or double count")
	assert.NotNil(t, stored.LastUsedAt)
}

func TestResolveUnknownCode(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Resolve(context.Background(), "missing1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveExpiredLink(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	expired := models.Link{
		OriginalURL: "https://example.com/old",
		ShortCode:   "oldnews1",
		ExpiresAt:   time.Now().Add(-time.Minute),
	}
	require.NoError(t, store.Insert(ctx, &expired))

	_, err := svc.Resolve(ctx, "oldnews1")
	assert.ErrorIs(t, err, ErrNotFound, "expired links do not redirect even while the row exists")
}

func TestUpdateURLOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	owned, err := svc.Shorten(ctx, ShortenInput{
		OriginalURL: "https://example.com/mine",
		UserID:      uintPtr(1),
	})
	require.NoError(t, err)

	// Non-owner.
	_, err = svc.UpdateURL(ctx, owned.ShortCode, "https://example.com/stolen", 2)
	assert.ErrorIs(t, err, ErrForbidden)

	// Anonymous links cannot be edited by anyone.
	anon, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com/nobody"})
	require.NoError(t, err)
	_, err = svc.UpdateURL(ctx, anon.ShortCode, "https://example.com/new", 1)
	assert.ErrorIs(t, err, ErrForbidden)

	// Owner succeeds and the new URL is normalized.
	updated, err := svc.UpdateURL(ctx, owned.ShortCode, "HTTPS://Example.com/Moved", 1)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/moved", updated.OriginalURL)

	target, err := svc.Resolve(ctx, owned.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/moved", target, "stale cache entries must not survive an update")

	_, err = svc.UpdateURL(ctx, "no-such1", "https://example.com/x", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	link, err := svc.Shorten(ctx, ShortenInput{
		OriginalURL: "https://example.com/tmp",
		UserID:      uintPtr(4),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, link.ShortCode, 4))

	_, err = svc.Resolve(ctx, link.ShortCode)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is a no-op, not an error.
	assert.NoError(t, svc.Delete(ctx, link.ShortCode, 4))
}

func TestDeleteByNonOwnerForbidden(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	link, err := svc.Shorten(ctx, ShortenInput{
		OriginalURL: "https://example.com/guarded",
		UserID:      uintPtr(4),
	})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, link.ShortCode, 5), ErrForbidden)

	// The record is untouched.
	_, err = svc.Resolve(ctx, link.ShortCode)
	assert.NoError(t, err)
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	link, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com/tracked"})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, link.ShortCode)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, link.ShortCode)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx, link.ShortCode)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/tracked", stats.OriginalURL)
	assert.Equal(t, int64(2), stats.ClickCount)
	assert.NotNil(t, stats.LastUsedAt)

	_, err = svc.Stats(ctx, "missing1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClaimAnonymousLink(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	link, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com/claim-me"})
	require.NoError(t, err)
	require.NotEmpty(t, link.ClaimToken)

	// Wrong token.
	_, err = svc.Claim(ctx, link.ShortCode, "bogus-token", 9)
	assert.ErrorIs(t, err, ErrForbidden)

	claimed, err := svc.Claim(ctx, link.ShortCode, link.ClaimToken, 9)
	require.NoError(t, err)
	require.NotNil(t, claimed.UserID)
	assert.Equal(t, uint(9), *claimed.UserID)

	// A claimed link cannot be claimed again, token or not.
	_, err = svc.Claim(ctx, link.ShortCode, link.ClaimToken, 10)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Claim(ctx, "missing1", "whatever", 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByOriginalURL(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	link, err := svc.Shorten(ctx, ShortenInput{OriginalURL: "https://example.com/findable"})
	require.NoError(t, err)

	found, err := svc.FindByOriginalURL(ctx, "HTTPS://Example.com/Findable")
	require.NoError(t, err)
	assert.Equal(t, link.ShortCode, found.ShortCode)

	_, err = svc.FindByOriginalURL(ctx, "https://example.com/unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}
