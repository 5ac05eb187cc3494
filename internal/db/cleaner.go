package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartExpiredCacheCleaner periodically deletes catalog cache rows whose
// expiry has passed. It stops when ctx is cancelled.
func StartExpiredCacheCleaner(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := db.ExecContext(ctx, `
                    DELETE FROM catalog_cache
                     WHERE expires_at < $1
                `, time.Now().Unix())
				if err != nil {
					log.Error("failed to clean expired catalog cache", zap.Error(err))
					continue
				}
				if rows, _ := res.RowsAffected(); rows > 0 {
					log.Info("cleaned expired catalog cache", zap.Int64("removed", rows))
				}
			}
		}
	}()
}
