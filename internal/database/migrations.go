package database

import (
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/tcg-exchange/internal/models"
)

// removeOrphanedPostImages deletes image rows whose trade post is gone.
// Databases created before foreign keys were enforced can hold them, and
// they would block the constraint AutoMigrate adds.
func removeOrphanedPostImages(db *gorm.DB, log logrus.FieldLogger) error {
	if !db.Migrator().HasTable("trade_post_images") || !db.Migrator().HasTable("trade_posts") {
		return nil
	}

	result := db.Exec(`
		DELETE FROM trade_post_images
		WHERE trade_post_id NOT IN (SELECT id FROM trade_posts)
	`)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Infof("cleaned up %d orphaned trade_post_images rows", result.RowsAffected)
	}
	return nil
}

// RunMigrations runs data migrations after schema changes
func RunMigrations(db *gorm.DB) error {
	if err := seedPrivileges(db); err != nil {
		return err
	}
	return normalizeOfferStatus(db)
}

func seedPrivileges(db *gorm.DB) error {
	records := make([]models.PrivilegeRecord, 0, len(models.AllPrivileges()))
	for _, p := range models.AllPrivileges() {
		records = append(records, models.PrivilegeRecord{ID: p, Name: p.String()})
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
}

// normalizeOfferStatus upper-cases legacy status values and fills blanks
// with SENT. Safe to run repeatedly.
func normalizeOfferStatus(db *gorm.DB) error {
	for _, table := range []string{"trade_offers", "past_trade_offers"} {
		for _, status := range []models.OfferStatus{models.OfferSent, models.OfferAccepted, models.OfferDeclined} {
			legacy := strings.ToLower(string(status))
			if err := db.Exec("UPDATE "+table+" SET status = ? WHERE status = ?", status, legacy).Error; err != nil {
				return err
			}
		}
	}
	return db.Exec(`UPDATE trade_offers SET status = ? WHERE status IS NULL OR status = ''`, models.OfferSent).Error
}
