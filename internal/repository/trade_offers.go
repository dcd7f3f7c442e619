package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/models"
)

type TradeOfferRepository struct {
	db *gorm.DB
}

func (r *TradeOfferRepository) Create(ctx context.Context, o *models.TradeOffer) error {
	return handleError("create", "trade offer", r.db.WithContext(ctx).Create(o).Error)
}

func (r *TradeOfferRepository) ByID(ctx context.Context, id uint) (*models.TradeOffer, error) {
	var o models.TradeOffer
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, handleError("load", "trade offer", err)
	}
	return &o, nil
}

// PendingExists reports whether the sender already has a SENT offer of the
// same entry on the post.
func (r *TradeOfferRepository) PendingExists(ctx context.Context, postID, senderID, entryID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.TradeOffer{}).
		Where("trade_post_id = ? AND sender_id = ? AND sender_entry_id = ? AND status = ?",
			postID, senderID, entryID, models.OfferSent).
		Count(&n).Error
	return n > 0, handleError("check", "trade offers", err)
}

// ForPost lists non-declined offers in insertion order.
func (r *TradeOfferRepository) ForPost(ctx context.Context, postID uint) ([]models.TradeOffer, error) {
	var offers []models.TradeOffer
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("SenderEntry.Collectible").
		Where("trade_post_id = ? AND status <> ?", postID, models.OfferDeclined).
		Order("id ASC").
		Find(&offers).Error
	return offers, handleError("list", "trade offers", err)
}

func (r *TradeOfferRepository) PendingBySender(ctx context.Context, senderID uint) ([]models.TradeOffer, error) {
	var offers []models.TradeOffer
	err := r.db.WithContext(ctx).
		Preload("SenderEntry.Collectible").
		Preload("TradePost.Entry.Collectible").
		Preload("TradePost.Poster").
		Where("sender_id = ? AND status = ?", senderID, models.OfferSent).
		Order("id ASC").
		Find(&offers).Error
	return offers, handleError("list", "trade offers", err)
}

// PendingIDsForPost returns SENT offers on the post other than except.
func (r *TradeOfferRepository) PendingIDsForPost(ctx context.Context, postID, except uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.TradeOffer{}).
		Where("trade_post_id = ? AND status = ? AND id <> ?", postID, models.OfferSent, except).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, handleError("list", "trade offers", err)
}

// PendingIDsOffering returns SENT offers whose offered entry is one of entryIDs.
func (r *TradeOfferRepository) PendingIDsOffering(ctx context.Context, entryIDs []uint) ([]uint, error) {
	var ids []uint
	if len(entryIDs) == 0 {
		return ids, nil
	}
	err := r.db.WithContext(ctx).Model(&models.TradeOffer{}).
		Where("sender_entry_id IN ? AND status = ?", entryIDs, models.OfferSent).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, handleError("list", "trade offers", err)
}

// Transition moves an offer from one status to another and reports whether
// the row was still in the from status.
func (r *TradeOfferRepository) Transition(ctx context.Context, id uint, from, to models.OfferStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.TradeOffer{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, handleError("update", "trade offer", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Archive copies the offer into past_trade_offers with the given status and
// deletes the active row. Calling it for an offer that is already archived
// returns the existing row.
func (r *TradeOfferRepository) Archive(ctx context.Context, offerID uint, status models.OfferStatus, concludedAt time.Time) (*models.PastTradeOffer, error) {
	db := r.db.WithContext(ctx)

	var offer models.TradeOffer
	err := db.Preload("SenderEntry").Preload("TradePost.Entry").First(&offer, offerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.PastByOfferID(ctx, offerID)
	}
	if err != nil {
		return nil, handleError("load", "trade offer", err)
	}
	if offer.TradePost == nil || offer.TradePost.Entry == nil || offer.SenderEntry == nil {
		return nil, apperrors.Internal(nil, "trade offer %d references missing rows", offerID)
	}

	past := models.PastTradeOffer{
		OfferID:               offer.ID,
		TradePostID:           offer.TradePostID,
		SenderID:              offer.SenderID,
		ReceiverID:            offer.TradePost.PosterID,
		SenderCollectibleID:   offer.SenderEntry.CollectibleID,
		ReceiverCollectibleID: offer.TradePost.Entry.CollectibleID,
		Message:               offer.Message,
		ImageURL:              offer.ImageURL,
		Status:                status,
		DateOffered:           offer.DateOffered,
		DateConcluded:         concludedAt,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "offer_id"}},
		DoNothing: true,
	}).Create(&past).Error
	if err != nil {
		return nil, handleError("archive", "trade offer", err)
	}

	if err := db.Delete(&models.TradeOffer{}, offer.ID).Error; err != nil {
		return nil, handleError("delete", "trade offer", err)
	}
	return r.PastByOfferID(ctx, offerID)
}

func (r *TradeOfferRepository) PastByOfferID(ctx context.Context, offerID uint) (*models.PastTradeOffer, error) {
	var past models.PastTradeOffer
	if err := r.db.WithContext(ctx).Where("offer_id = ?", offerID).First(&past).Error; err != nil {
		return nil, handleError("load", "trade offer", err)
	}
	return &past, nil
}

func preloadPast(db *gorm.DB) *gorm.DB {
	return db.Preload("Sender").Preload("Receiver").Preload("SenderCollectible").Preload("ReceiverCollectible")
}

// PastForCollector lists archived offers the collector sent or received.
func (r *TradeOfferRepository) PastForCollector(ctx context.Context, collectorID uint) ([]models.PastTradeOffer, error) {
	var past []models.PastTradeOffer
	err := preloadPast(r.db.WithContext(ctx)).
		Where("sender_id = ? OR receiver_id = ?", collectorID, collectorID).
		Order("date_concluded DESC, id DESC").
		Find(&past).Error
	return past, handleError("list", "past trade offers", err)
}

func (r *TradeOfferRepository) PastBySender(ctx context.Context, senderID uint) ([]models.PastTradeOffer, error) {
	var past []models.PastTradeOffer
	err := preloadPast(r.db.WithContext(ctx)).
		Where("sender_id = ?", senderID).
		Order("date_concluded DESC, id DESC").
		Find(&past).Error
	return past, handleError("list", "past trade offers", err)
}

func (r *TradeOfferRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.TradeOffer{}).Where("status = ?", models.OfferSent).Count(&n).Error
	return n, handleError("count", "trade offers", err)
}

func (r *TradeOfferRepository) CountPendingForPost(ctx context.Context, postID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.TradeOffer{}).
		Where("trade_post_id = ? AND status = ?", postID, models.OfferSent).
		Count(&n).Error
	return n, handleError("count", "trade offers", err)
}
