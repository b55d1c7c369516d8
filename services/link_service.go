package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"shortlink/cache"
	"shortlink/models"
	"shortlink/storage"
)

const (
	// DefaultLinkTTL applies when a shorten request carries no expiry.
	DefaultLinkTTL = 30 * 24 * time.Hour

	// DefaultMaxGenerateAttempts caps the collision-retry loop for
	// generated codes.
	DefaultMaxGenerateAttempts = 10

	// Stats change on every click, so they are cached much more briefly
	// than redirect targets.
	statsCacheTTL = time.Minute
)

// ShortenInput carries one shorten request. UserID is nil for anonymous
// callers.
type ShortenInput struct {
	OriginalURL string
	CustomAlias string
	ExpiresAt   *time.Time
	UserID      *uint
}

// LinkStats is the public view of a link's usage.
type LinkStats struct {
	OriginalURL string     `json:"original_url"`
	CreatedAt   time.Time  `json:"created_at"`
	ClickCount  int64      `json:"click_count"`
	LastUsedAt  *time.Time `json:"last_used_at"`
}

// LinkService orchestrates normalization, uniqueness-checked creation,
// ownership-gated mutation, redirect resolution and stats.
type LinkService struct {
	store       *storage.LinkStore
	cache       cache.LinkCache
	logger      *slog.Logger
	codeLength  int
	maxAttempts int
	defaultTTL  time.Duration
	cacheTTL    time.Duration
	now         func() time.Time
}

func NewLinkService(store *storage.LinkStore, linkCache cache.LinkCache, logger *slog.Logger) *LinkService {
	return &LinkService{
		store:       store,
		cache:       linkCache,
		logger:      logger,
		codeLength:  DefaultCodeLength,
		maxAttempts: DefaultMaxGenerateAttempts,
		defaultTTL:  DefaultLinkTTL,
		cacheTTL:    cache.DefaultTTL,
		now:         time.Now,
	}
}

// WithCodeLength overrides the generated code length.
func (s *LinkService) WithCodeLength(n int) *LinkService {
	if n > 0 {
		s.codeLength = n
	}
	return s
}

// WithDefaultTTL overrides the default link lifetime.
func (s *LinkService) WithDefaultTTL(d time.Duration) *LinkService {
	if d > 0 {
		s.defaultTTL = d
	}
	return s
}

// WithCacheTTL overrides how long redirect targets stay cached.
func (s *LinkService) WithCacheTTL(d time.Duration) *LinkService {
	if d > 0 {
		s.cacheTTL = d
	}
	return s
}

// Shorten creates (or dedups to) a link for the given URL.
//
// Dedup is global: if an active link already exists for the normalized URL,
// it is returned unchanged regardless of who asks. A custom alias gets a
// single insert attempt; a race on the same alias is reported as taken, not
// retried, because the caller asked for that exact code. Generated codes
// retry on collision up to the attempt budget.
func (s *LinkService) Shorten(ctx context.Context, in ShortenInput) (*models.Link, error) {
	normalized, err := NormalizeURL(in.OriginalURL)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	existing, err := s.store.FindByOriginalURL(ctx, normalized)
	if err != nil {
		return nil, storeErr("dedup lookup", err)
	}
	if existing != nil && !existing.Expired(now) {
		return existing, nil
	}

	expiresAt := now.Add(s.defaultTTL)
	if in.ExpiresAt != nil {
		if !in.ExpiresAt.After(now) {
			return nil, ErrInvalidExpiry
		}
		expiresAt = in.ExpiresAt.UTC()
	}

	draft := models.Link{
		OriginalURL: normalized,
		ExpiresAt:   expiresAt,
		UserID:      in.UserID,
	}
	if in.UserID == nil {
		token, err := generateClaimToken()
		if err != nil {
			return nil, err
		}
		draft.ClaimToken = token
	}

	if in.CustomAlias != "" {
		return s.insertCustom(ctx, draft, in.CustomAlias)
	}
	return s.insertGenerated(ctx, draft)
}

func (s *LinkService) insertCustom(ctx context.Context, draft models.Link, alias string) (*models.Link, error) {
	if !ValidAlias(alias) {
		return nil, ErrInvalidAlias
	}
	// Early check for a friendly error; the unique index remains the
	// real guard against check-then-act races.
	taken, err := s.store.FindByCode(ctx, alias)
	if err != nil {
		return nil, storeErr("alias lookup", err)
	}
	if taken != nil {
		return nil, ErrAliasTaken
	}

	draft.ShortCode = alias
	if err := s.store.Insert(ctx, &draft); err != nil {
		if errors.Is(err, storage.ErrDuplicateCode) {
			return nil, ErrAliasTaken
		}
		return nil, storeErr("insert", err)
	}
	return &draft, nil
}

func (s *LinkService) insertGenerated(ctx context.Context, draft models.Link) (*models.Link, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		code, err := GenerateCode(s.codeLength)
		if err != nil {
			return nil, err
		}

		link := draft
		link.ShortCode = code
		err = s.store.Insert(ctx, &link)
		if err == nil {
			return &link, nil
		}
		if errors.Is(err, storage.ErrDuplicateCode) {
			s.logger.Warn("short code collision, retrying",
				"code", code, "attempt", attempt+1, "budget", s.maxAttempts)
			continue
		}
		return nil, storeErr("insert", err)
	}
	return nil, ErrCodeSpaceExhausted
}

// Resolve returns the redirect target for a code and counts the click.
// Expired links resolve exactly like missing ones.
func (s *LinkService) Resolve(ctx context.Context, code string) (string, error) {
	if !ValidAlias(code) {
		return "", ErrNotFound
	}

	if target, ok := s.cache.GetURL(ctx, code); ok {
		s.recordClick(code)
		return target, nil
	}

	link, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return "", storeErr("lookup", err)
	}
	if link == nil || link.Expired(s.now().UTC()) {
		return "", ErrNotFound
	}

	// Cap the cache entry at the link's remaining lifetime so an expired
	// link can never be served from cache.
	ttl := s.cacheTTL
	if remaining := time.Until(link.ExpiresAt); remaining < ttl {
		ttl = remaining
	}
	s.cache.SetURL(ctx, code, link.OriginalURL, ttl)

	s.recordClick(code)
	return link.OriginalURL, nil
}

// recordClick is fire-and-forget: a lost increment on crash is tolerable,
// a double count is not, so the store does one atomic UPDATE and nothing
// else. The write runs on a detached context so a client disconnect cannot
// abandon it half-way.
func (s *LinkService) recordClick(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.IncrementClicks(ctx, code); err != nil {
		s.logger.Warn("click increment failed", "code", code, "error", err)
	}
}

// UpdateURL rewrites the target of an owned link. Anonymous links cannot be
// edited by anyone.
func (s *LinkService) UpdateURL(ctx context.Context, code, newURL string, userID uint) (*models.Link, error) {
	link, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, storeErr("lookup", err)
	}
	if link == nil {
		return nil, ErrNotFound
	}
	if !link.OwnedBy(userID) {
		return nil, ErrForbidden
	}

	normalized, err := NormalizeURL(newURL)
	if err != nil {
		return nil, err
	}

	// Invalidate before the write lands; refusing the update beats
	// serving a stale redirect for the cache TTL.
	if err := s.cache.Invalidate(ctx, code); err != nil {
		return nil, storeErr("cache invalidate", err)
	}

	updated, err := s.store.UpdateURL(ctx, code, userID, normalized)
	if err != nil {
		return nil, storeErr("update", err)
	}
	if updated == nil {
		// The row vanished between the ownership check and the update.
		return nil, ErrNotFound
	}
	return updated, nil
}

// Delete removes an owned link. Deleting a link that is already gone
// succeeds.
func (s *LinkService) Delete(ctx context.Context, code string, userID uint) error {
	link, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return storeErr("lookup", err)
	}
	if link == nil {
		return nil
	}
	if !link.OwnedBy(userID) {
		return ErrForbidden
	}

	if err := s.cache.Invalidate(ctx, code); err != nil {
		return storeErr("cache invalidate", err)
	}
	if err := s.store.Delete(ctx, code, userID); err != nil {
		return storeErr("delete", err)
	}
	return nil
}

// Stats returns the public usage view for a code. No ownership check; the
// row is visible until the reaper removes it, expired or not.
func (s *LinkService) Stats(ctx context.Context, code string) (*LinkStats, error) {
	if !ValidAlias(code) {
		return nil, ErrNotFound
	}

	if fields, ok := s.cache.GetStats(ctx, code); ok {
		if stats, err := statsFromFields(fields); err == nil {
			return stats, nil
		}
	}

	link, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, storeErr("lookup", err)
	}
	if link == nil {
		return nil, ErrNotFound
	}

	stats := &LinkStats{
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
		ClickCount:  link.ClickCount,
		LastUsedAt:  link.LastUsedAt,
	}
	s.cache.SetStats(ctx, code, statsToFields(stats), statsCacheTTL)
	return stats, nil
}

// Claim assigns ownership of an anonymous link to userID. The claim token
// returned at creation time scopes the claim to exactly that link; there is
// no claim-everything-on-login.
func (s *LinkService) Claim(ctx context.Context, code, token string, userID uint) (*models.Link, error) {
	link, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return nil, storeErr("lookup", err)
	}
	if link == nil {
		return nil, ErrNotFound
	}
	if token == "" || link.UserID != nil {
		return nil, ErrForbidden
	}

	claimed, err := s.store.ClaimByToken(ctx, code, token, userID)
	if err != nil {
		return nil, storeErr("claim", err)
	}
	if !claimed {
		return nil, ErrForbidden
	}
	return s.store.FindByCode(ctx, code)
}

// FindByOriginalURL looks a link up by its (re-normalized) original URL.
// Expired links are reported as not found, matching Resolve.
func (s *LinkService) FindByOriginalURL(ctx context.Context, rawURL string) (*models.Link, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	link, err := s.store.FindByOriginalURL(ctx, normalized)
	if err != nil {
		return nil, storeErr("lookup", err)
	}
	if link == nil || link.Expired(s.now().UTC()) {
		return nil, ErrNotFound
	}
	return link, nil
}

func statsToFields(stats *LinkStats) map[string]string {
	fields := map[string]string{
		"original_url": stats.OriginalURL,
		"created_at":   stats.CreatedAt.Format(time.RFC3339Nano),
		"click_count":  strconv.FormatInt(stats.ClickCount, 10),
	}
	if stats.LastUsedAt != nil {
		fields["last_used_at"] = stats.LastUsedAt.Format(time.RFC3339Nano)
	}
	return fields
}

func statsFromFields(fields map[string]string) (*LinkStats, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, err
	}
	clicks, err := strconv.ParseInt(fields["click_count"], 10, 64)
	if err != nil {
		return nil, err
	}
	stats := &LinkStats{
		OriginalURL: fields["original_url"],
		CreatedAt:   createdAt,
		ClickCount:  clicks,
	}
	if raw, ok := fields["last_used_at"]; ok {
		lastUsed, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, err
		}
		stats.LastUsedAt = &lastUsed
	}
	return stats, nil
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
