package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"shortlink/models"
)

// ErrDuplicateCode is returned by Insert when the short code is already
// taken. It is how concurrent creations of the same code are arbitrated:
// the database unique index picks exactly one winner.
var ErrDuplicateCode = errors.New("short code already exists")

// LinkStore owns persistent link records. Every method is a single SQL
// statement, so each one is atomic on its own; no connection is held
// across calls.
type LinkStore struct {
	db *gorm.DB
}

func NewLinkStore(db *gorm.DB) *LinkStore {
	return &LinkStore{db: db}
}

// Insert persists a new link, letting the store assign ID and CreatedAt.
func (s *LinkStore) Insert(ctx context.Context, link *models.Link) error {
	if err := s.db.WithContext(ctx).Create(link).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateCode
		}
		return err
	}
	return nil
}

// FindByCode returns the link for a short code, or nil if no row exists.
// Expired rows are returned; expiry policy belongs to the service layer.
func (s *LinkStore) FindByCode(ctx context.Context, code string) (*models.Link, error) {
	var link models.Link
	err := s.db.WithContext(ctx).Where("short_code = ?", code).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// FindByOriginalURL returns the most recent link for a normalized URL,
// or nil. Used for dedup on shorten.
func (s *LinkStore) FindByOriginalURL(ctx context.Context, normalizedURL string) (*models.Link, error) {
	var link models.Link
	err := s.db.WithContext(ctx).
		Where("original_url = ?", normalizedURL).
		Order("created_at desc").
		First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// UpdateURL rewrites the target URL of a link owned by ownerID. Returns the
// updated row, or nil if no row matched (code, owner).
func (s *LinkStore) UpdateURL(ctx context.Context, code string, ownerID uint, newURL string) (*models.Link, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Link{}).
		Where("short_code = ? AND user_id = ?", code, ownerID).
		Update("original_url", newURL)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return s.FindByCode(ctx, code)
}

// Delete removes a link owned by ownerID. Deleting a row that is already
// gone is not an error.
func (s *LinkStore) Delete(ctx context.Context, code string, ownerID uint) error {
	return s.db.WithContext(ctx).
		Where("short_code = ? AND user_id = ?", code, ownerID).
		Delete(&models.Link{}).Error
}

// IncrementClicks bumps the click counter and stamps last_used_at in one
// atomic UPDATE. Two concurrent redirects on the same code always land as
// count+2; there is no read-modify-write in application code.
func (s *LinkStore) IncrementClicks(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).
		Model(&models.Link{}).
		Where("short_code = ?", code).
		UpdateColumns(map[string]interface{}{
			"click_count":  gorm.Expr("click_count + ?", 1),
			"last_used_at": time.Now().UTC(),
		}).Error
}

// ListExpired returns links whose expiry is before now.
func (s *LinkStore) ListExpired(ctx context.Context, now time.Time) ([]models.Link, error) {
	var links []models.Link
	err := s.db.WithContext(ctx).Where("expires_at < ?", now).Find(&links).Error
	return links, err
}

// DeleteExpired purges links whose expiry is before now and reports how
// many rows went away. Their codes become reusable afterwards.
func (s *LinkStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at < ?", now).Delete(&models.Link{})
	return res.RowsAffected, res.Error
}

// ClaimByToken assigns ownership of a single anonymous link to userID,
// provided the presented claim token matches. The conditional UPDATE makes
// the claim race-free: once user_id is set the row never matches again.
func (s *LinkStore) ClaimByToken(ctx context.Context, code, token string, userID uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Link{}).
		Where("short_code = ? AND claim_token = ? AND user_id IS NULL", code, token).
		Update("user_id", userID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// isDuplicate detects unique-constraint violations across the drivers we
// run against (pgx error translation, raw postgres, sqlite).
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "23505")
}
