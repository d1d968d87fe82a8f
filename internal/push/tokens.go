package push

import (
	"context"

	"campus-chat-be/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const PlatformWeb = "web"

// TokenStore resolves device tokens for fan-out and removes the ones the
// provider reports as dead.
type TokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

// ActiveTokens returns the tokens of the given users, restricted to users
// who still have push enabled. webOnly selects between browser subscriptions
// and mobile tokens.
func (s *TokenStore) ActiveTokens(ctx context.Context, userIDs []uint, webOnly bool) ([]models.DeviceToken, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	q := s.db.WithContext(ctx).
		Joins("JOIN users ON users.id = device_tokens.user_id").
		Where("device_tokens.user_id IN ?", userIDs).
		Where("users.push_enabled = ?", true)
	if webOnly {
		q = q.Where("device_tokens.platform = ?", PlatformWeb)
	} else {
		q = q.Where("device_tokens.platform <> ?", PlatformWeb)
	}

	var tokens []models.DeviceToken
	if err := q.Find(&tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// Delete drops a stale token row. Called when the provider says the token is
// gone for good.
func (s *TokenStore) Delete(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Where("token = ?", token).Delete(&models.DeviceToken{}).Error
}

// Register upserts a token. A token already owned by someone else is
// reassigned to the new owner.
func (s *TokenStore) Register(ctx context.Context, userID uint, token, platform string) error {
	row := models.DeviceToken{UserID: userID, Token: token, Platform: platform}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
	}).Create(&row).Error
}

// Remove deletes a token owned by the calling user. Returns gorm.ErrRecordNotFound
// semantics via rows affected.
func (s *TokenStore) Remove(ctx context.Context, userID uint, token string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&models.DeviceToken{})
	return res.RowsAffected > 0, res.Error
}
