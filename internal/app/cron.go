package app

import (
	"context"
	"fmt"
	"time"

	"github.com/teamspace/hub/internal/models"
	pkgcron "github.com/teamspace/hub/internal/pkg/cron"
	"github.com/teamspace/hub/internal/pkg/session"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, logger *zap.Logger) {
	cronLogger := logger.Named("cron")

	sched.Register(pkgcron.Job{
		Name:        "purge_sessions",
		Description: "Remove expired and revoked user sessions",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			n, err := session.PurgeExpired(db, time.Now())
			if err != nil {
				cronLogger.Warn("session purge failed", zap.Error(err))
				return err
			}
			if n > 0 {
				cronLogger.Info(fmt.Sprintf("purged %d stale sessions", n))
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "cleanup_notifications",
		Description: "Delete read notifications older than 30 days",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().AddDate(0, 0, -30)
			result := db.Where("`read` = ? AND created_at < ?", true, cutoff).
				Delete(&models.NotificationModel{})
			if result.Error != nil {
				cronLogger.Warn("notification cleanup failed", zap.Error(result.Error))
				return result.Error
			}
			if result.RowsAffected > 0 {
				cronLogger.Info(fmt.Sprintf("deleted %d read notifications", result.RowsAffected))
			}
			return nil
		},
	})
}
