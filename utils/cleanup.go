package utils

import (
	"context"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/yatube/yatube/models"
)

// MarkOrphaned schedules the stored file with the given media name for removal after grace.
func MarkOrphaned(db *gorm.DB, name string, grace time.Duration) error {
	if name == "" {
		return nil
	}
	expireAt := time.Now().Add(grace)
	return db.Model(&models.UploadedFile{}).
		Where("name = ? AND expire_at IS NULL", name).
		Updates(map[string]interface{}{"expire_at": expireAt, "post_id": nil}).Error
}

// PurgeExpiredUploads deletes up to 100 expired files and their rows. It returns how many rows went.
func PurgeExpiredUploads(db *gorm.DB, now time.Time) (int, error) {
	var items []models.UploadedFile
	if err := db.Where("expire_at IS NOT NULL AND expire_at <= ?", now).Limit(100).Find(&items).Error; err != nil {
		return 0, err
	}
	removed := 0
	for _, it := range items {
		if it.FilePath != "" {
			if err := os.Remove(it.FilePath); err != nil && !os.IsNotExist(err) {
				Sugar.Warnw("upload cleaner remove failed", "path", it.FilePath, "err", err)
			}
		}
		// Remove row regardless of file deletion outcome
		if err := db.Delete(&models.UploadedFile{}, it.ID).Error; err != nil {
			Sugar.Warnw("upload cleaner delete row failed", "id", it.ID, "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// StartUploadCleaner periodically purges orphaned post images until ctx is done.
func StartUploadCleaner(ctx context.Context, db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				n, err := PurgeExpiredUploads(db, now)
				if err != nil {
					Sugar.Errorf("upload cleaner query failed: %v", err)
					continue
				}
				if n > 0 {
					Sugar.Infof("upload cleaner removed %d orphaned images", n)
				}
			}
		}
	}()
}
