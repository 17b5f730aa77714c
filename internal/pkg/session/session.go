package session

import (
	"strings"
	"time"

	"github.com/teamspace/hub/internal/models"
	jwtpkg "github.com/teamspace/hub/internal/pkg/jwt"
	"gorm.io/gorm"
)

const DefaultTTL = 30 * 24 * time.Hour

// Issue creates a DB session and signs a JWT bound to that session.
func Issue(db *gorm.DB, userID, ip, ua string, ttl time.Duration) (string, *models.UserSession, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now()
	s := &models.UserSession{
		UserID:    userID,
		IP:        strings.TrimSpace(ip),
		UA:        strings.TrimSpace(ua),
		ExpiresAt: now.Add(ttl),
	}
	if err := db.Create(s).Error; err != nil {
		return "", nil, err
	}

	token, err := jwtpkg.Sign(userID, s.ID, ttl)
	if err != nil {
		_ = db.Delete(s).Error
		return "", nil, err
	}
	return token, s, nil
}

// IsActive reports whether the session is neither revoked nor expired.
func IsActive(db *gorm.DB, userID, sessionID string) (bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return false, nil
	}

	var count int64
	err := db.Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL AND expires_at > ?", sessionID, userID, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Revoke invalidates one session.
func Revoke(db *gorm.DB, userID, sessionID string) error {
	now := time.Now()
	res := db.Model(&models.UserSession{}).
		Where("id = ? AND user_id = ? AND revoked_at IS NULL", sessionID, userID).
		Update("revoked_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// PurgeExpired deletes sessions that expired or were revoked before cutoff.
// Used by the maintenance cron job.
func PurgeExpired(db *gorm.DB, cutoff time.Time) (int64, error) {
	res := db.Unscoped().
		Where("expires_at < ? OR (revoked_at IS NOT NULL AND revoked_at < ?)", cutoff, cutoff).
		Delete(&models.UserSession{})
	return res.RowsAffected, res.Error
}
