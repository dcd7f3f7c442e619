package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/metrics"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/repository"
)

var errNoLongerPending = apperrors.Input("offer is no longer pending")

// TradeService runs the offer lifecycle: SENT -> ACCEPTED | DECLINED, with
// every terminal offer moved to past_trade_offers.
type TradeService struct {
	store    *repository.Store
	locks    *PostLocks
	activity ActivityLog
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewTradeService(store *repository.Store, locks *PostLocks, activity ActivityLog, log logrus.FieldLogger) *TradeService {
	return &TradeService{
		store:    store,
		locks:    locks,
		activity: activity,
		log:      log.WithField("component", "trade"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// RegisterOffer proposes senderEntryID in exchange for the post's entry.
func (s *TradeService) RegisterOffer(ctx context.Context, postID, senderID uint, req models.RegisterOfferRequest) (*models.TradeOffer, error) {
	unlock, err := s.locks.Lock(ctx, postID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	offer := &models.TradeOffer{
		TradePostID:   postID,
		SenderID:      senderID,
		SenderEntryID: req.CollectionEntryID,
		Message:       req.Message,
		ImageURL:      req.Image,
		Status:        models.OfferSent,
		DateOffered:   s.now(),
	}
	err = s.store.Tx(ctx, func(tx *repository.Store) error {
		post, err := tx.Posts.ByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.PosterID == senderID {
			return apperrors.Input("cannot make an offer on your own trade post")
		}

		entry, err := tx.Collections.ByID(ctx, req.CollectionEntryID)
		if err != nil {
			return err
		}
		if entry.CollectorID != senderID {
			return apperrors.Input("collection entry %d is not in your collection", entry.ID)
		}

		dup, err := tx.Offers.PendingExists(ctx, postID, senderID, entry.ID)
		if err != nil {
			return err
		}
		if dup {
			return apperrors.Input("you already offered this entry on this trade post")
		}
		return tx.Offers.Create(ctx, offer)
	})
	if err != nil {
		return nil, err
	}

	metrics.TradeOffersTotal.WithLabelValues("registered").Inc()
	s.activity.Record(ctx, models.ActivityEvent{
		Type: EventOfferRegistered, ActorID: senderID, OfferID: offer.ID,
		TradePostID: postID, Status: models.OfferSent, At: offer.DateOffered,
	})
	return offer, nil
}

// ListOffersForPost returns the post's non-declined offers in the order they
// were made. Only the poster may see them.
func (s *TradeService) ListOffersForPost(ctx context.Context, actorID, postID uint) ([]models.PostOffer, error) {
	post, err := s.store.Posts.ByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.PosterID != actorID {
		return nil, apperrors.Access("only the poster can view offers on a trade post")
	}

	offers, err := s.store.Offers.ForPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	out := make([]models.PostOffer, 0, len(offers))
	for _, o := range offers {
		v := models.PostOffer{
			ID:                o.ID,
			Message:           o.Message,
			Image:             o.ImageURL,
			Status:            o.Status,
			CollectionEntryID: o.SenderEntryID,
			Sender:            o.Sender.Summary(),
			DateOffered:       o.DateOffered,
		}
		if o.SenderEntry != nil {
			v.Collectible = o.SenderEntry.Collectible.Summary()
		}
		out = append(out, v)
	}
	return out, nil
}

// ListOutgoingOffers merges the sender's pending offers with their archived
// ones. Pending offers come first.
func (s *TradeService) ListOutgoingOffers(ctx context.Context, senderID uint) ([]models.OfferSummary, error) {
	pending, err := s.store.Offers.PendingBySender(ctx, senderID)
	if err != nil {
		return nil, err
	}
	archived, err := s.store.Offers.PastBySender(ctx, senderID)
	if err != nil {
		return nil, err
	}

	out := make([]models.OfferSummary, 0, len(pending)+len(archived))
	for _, o := range pending {
		v := models.OfferSummary{
			OfferID:     o.ID,
			TradePostID: o.TradePostID,
			Role:        "sender",
			Status:      o.Status,
			Message:     o.Message,
			Image:       o.ImageURL,
			DateOffered: o.DateOffered,
		}
		if o.SenderEntry != nil {
			v.OfferedCollectible = o.SenderEntry.Collectible.Summary()
		}
		if o.TradePost != nil {
			v.Counterparty = o.TradePost.Poster.Summary()
			if o.TradePost.Entry != nil {
				v.CounterpartyCollectible = o.TradePost.Entry.Collectible.Summary()
			}
		}
		out = append(out, v)
	}
	for i := range archived {
		out = append(out, pastSummary(&archived[i], senderID))
	}
	return out, nil
}

// ListPastOffers returns archived offers the collector sent or received.
func (s *TradeService) ListPastOffers(ctx context.Context, collectorID uint) ([]models.OfferSummary, error) {
	past, err := s.store.Offers.PastForCollector(ctx, collectorID)
	if err != nil {
		return nil, err
	}
	out := make([]models.OfferSummary, 0, len(past))
	for i := range past {
		out = append(out, pastSummary(&past[i], collectorID))
	}
	return out, nil
}

func pastSummary(p *models.PastTradeOffer, viewer uint) models.OfferSummary {
	concluded := p.DateConcluded
	v := models.OfferSummary{
		OfferID:       p.OfferID,
		TradePostID:   p.TradePostID,
		Status:        p.Status,
		Archived:      true,
		Message:       p.Message,
		Image:         p.ImageURL,
		DateOffered:   p.DateOffered,
		DateConcluded: &concluded,
	}
	if p.SenderID == viewer {
		v.Role = "sender"
		v.OfferedCollectible = p.SenderCollectible.Summary()
		v.CounterpartyCollectible = p.ReceiverCollectible.Summary()
		v.Counterparty = p.Receiver.Summary()
	} else {
		v.Role = "receiver"
		v.OfferedCollectible = p.ReceiverCollectible.Summary()
		v.CounterpartyCollectible = p.SenderCollectible.Summary()
		v.Counterparty = p.Sender.Summary()
	}
	return v
}

// AcceptOffer completes the trade: both entries swap owners, the post and
// every competing offer are retired, and the exchange is recorded. All of it
// happens in one transaction while the post's lock is held.
func (s *TradeService) AcceptOffer(ctx context.Context, actorID, offerID uint) (*models.TradeReceipt, error) {
	start := time.Now()
	offer, err := loadPendingOffer(ctx, s.store, offerID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, offer.TradePostID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var receipt *models.TradeReceipt
	err = s.store.Tx(ctx, func(tx *repository.Store) error {
		r, err := acceptTx(ctx, tx, actorID, offerID, s.now())
		receipt = r
		return err
	})
	metrics.TradeAcceptDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, errNoLongerPending) {
			metrics.TradeAcceptConflicts.Inc()
		}
		return nil, err
	}

	metrics.TradeOffersTotal.WithLabelValues("accepted").Inc()
	metrics.TradeOffersTotal.WithLabelValues("invalidated").Add(float64(len(receipt.DeclinedOfferIDs)))
	metrics.TradePostsTotal.WithLabelValues("exchanged").Inc()
	metrics.TradePostsTotal.WithLabelValues("removed").Add(float64(len(receipt.RemovedPostIDs)))

	s.activity.Record(ctx, models.ActivityEvent{
		Type: EventOfferAccepted, ActorID: actorID, OfferID: offerID,
		TradePostID: receipt.TradePostID, Status: models.OfferAccepted, At: receipt.CompletedAt,
	})
	for _, id := range receipt.DeclinedOfferIDs {
		s.activity.Record(ctx, models.ActivityEvent{
			Type: EventOfferInvalidated, ActorID: actorID, OfferID: id,
			Status: models.OfferDeclined, At: receipt.CompletedAt,
		})
	}
	s.log.WithFields(logrus.Fields{
		"offer_id":      offerID,
		"trade_post_id": receipt.TradePostID,
		"exchange_id":   receipt.ExchangeID,
		"declined":      len(receipt.DeclinedOfferIDs),
	}).Info("trade completed")
	return receipt, nil
}

func acceptTx(ctx context.Context, tx *repository.Store, actorID, offerID uint, now time.Time) (*models.TradeReceipt, error) {
	offer, err := loadPendingOffer(ctx, tx, offerID)
	if err != nil {
		return nil, err
	}
	post, err := tx.Posts.Lock(ctx, offer.TradePostID)
	if err != nil {
		return nil, err
	}
	if post.PosterID != actorID {
		return nil, apperrors.Access("only the poster can accept an offer")
	}

	ok, err := tx.Offers.Transition(ctx, offerID, models.OfferSent, models.OfferAccepted)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNoLongerPending
	}

	// Capture both sides before anything is deleted or moved.
	posterEntry := post.Entry
	if posterEntry == nil || posterEntry.CollectorID != post.PosterID {
		return nil, apperrors.Input("the listed entry is no longer owned by the poster")
	}
	senderEntry, err := tx.Collections.ByID(ctx, offer.SenderEntryID)
	if err != nil {
		return nil, err
	}
	if senderEntry.CollectorID != offer.SenderID {
		return nil, apperrors.Input("the offered entry is no longer owned by the sender")
	}

	receipt := &models.TradeReceipt{
		OfferID:     offerID,
		TradePostID: post.ID,
		PosterID:    post.PosterID,
		OffererID:   offer.SenderID,
		Transfers: []models.OwnershipTransfer{
			{CollectionEntryID: posterEntry.ID, CollectibleID: posterEntry.CollectibleID, FromCollectorID: post.PosterID, ToCollectorID: offer.SenderID},
			{CollectionEntryID: senderEntry.ID, CollectibleID: senderEntry.CollectibleID, FromCollectorID: offer.SenderID, ToCollectorID: post.PosterID},
		},
		DeclinedOfferIDs: []uint{},
		RemovedPostIDs:   []uint{},
		CompletedAt:      now,
	}

	if _, err := moveToPast(ctx, tx, offerID, models.OfferAccepted, now); err != nil {
		return nil, err
	}

	declined, err := removePostTx(ctx, tx, post.ID, now)
	if err != nil {
		return nil, err
	}
	receipt.DeclinedOfferIDs = append(receipt.DeclinedOfferIDs, declined...)
	receipt.RemovedPostIDs = append(receipt.RemovedPostIDs, post.ID)

	if err := tx.Collections.Move(ctx, posterEntry.ID, post.PosterID, offer.SenderID); err != nil {
		return nil, err
	}
	if err := tx.Collections.Move(ctx, senderEntry.ID, offer.SenderID, post.PosterID); err != nil {
		return nil, err
	}

	// The swapped entries changed hands, so listings and offers that still
	// refer to them on behalf of their old owners are retired.
	stalePosts, err := tx.Posts.IDsForEntries(ctx, []uint{senderEntry.ID, posterEntry.ID})
	if err != nil {
		return nil, err
	}
	for _, id := range stalePosts {
		declined, err := removePostTx(ctx, tx, id, now)
		if err != nil {
			return nil, err
		}
		receipt.DeclinedOfferIDs = append(receipt.DeclinedOfferIDs, declined...)
		receipt.RemovedPostIDs = append(receipt.RemovedPostIDs, id)
	}

	staleOffers, err := tx.Offers.PendingIDsOffering(ctx, []uint{posterEntry.ID, senderEntry.ID})
	if err != nil {
		return nil, err
	}
	declined, err = declineAll(ctx, tx, staleOffers, now)
	if err != nil {
		return nil, err
	}
	receipt.DeclinedOfferIDs = append(receipt.DeclinedOfferIDs, declined...)

	body, err := json.Marshal(receipt)
	if err != nil {
		return nil, apperrors.Internal(err, "encode trade receipt")
	}
	exchange := &models.ExchangeHistory{
		OfferID:                      offerID,
		TradePostID:                  post.ID,
		PosterID:                     post.PosterID,
		OffererID:                    offer.SenderID,
		PosterReceivedCollectibleID:  senderEntry.CollectibleID,
		OffererReceivedCollectibleID: posterEntry.CollectibleID,
		PosterEntryID:                posterEntry.ID,
		OffererEntryID:               senderEntry.ID,
		Receipt:                      datatypes.JSON(body),
		ExchangedAt:                  now,
	}
	if err := tx.Exchanges.Create(ctx, exchange); err != nil {
		return nil, err
	}
	receipt.ExchangeID = exchange.ID
	return receipt, nil
}

// DeclineOffer retires a pending offer without touching its post. The poster
// declines; the sender withdraws.
func (s *TradeService) DeclineOffer(ctx context.Context, actorID, offerID uint) (*models.PastTradeOffer, error) {
	offer, err := loadPendingOffer(ctx, s.store, offerID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, offer.TradePostID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var past *models.PastTradeOffer
	err = s.store.Tx(ctx, func(tx *repository.Store) error {
		offer, err := loadPendingOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		post, err := tx.Posts.ByID(ctx, offer.TradePostID)
		if err != nil {
			return err
		}
		if actorID != post.PosterID && actorID != offer.SenderID {
			return apperrors.Access("only the poster or the sender can decline an offer")
		}

		ok, err := tx.Offers.Transition(ctx, offerID, models.OfferSent, models.OfferDeclined)
		if err != nil {
			return err
		}
		if !ok {
			return errNoLongerPending
		}
		past, err = moveToPast(ctx, tx, offerID, models.OfferDeclined, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}

	event := "declined"
	if actorID == past.SenderID {
		event = "withdrawn"
	}
	metrics.TradeOffersTotal.WithLabelValues(event).Inc()
	s.activity.Record(ctx, models.ActivityEvent{
		Type: EventOfferDeclined, ActorID: actorID, OfferID: offerID,
		TradePostID: past.TradePostID, Status: models.OfferDeclined, At: past.DateConcluded,
	})
	return past, nil
}

// loadPendingOffer tells an offer that was never made apart from one that
// has already been archived.
func loadPendingOffer(ctx context.Context, store *repository.Store, offerID uint) (*models.TradeOffer, error) {
	offer, err := store.Offers.ByID(ctx, offerID)
	if err == nil {
		return offer, nil
	}
	if !apperrors.Is(err, apperrors.KindInput) {
		return nil, err
	}
	if _, pastErr := store.Offers.PastByOfferID(ctx, offerID); pastErr == nil {
		return nil, errNoLongerPending
	}
	return nil, err
}

// moveToPast archives the offer with the given final status. Repeating it
// leaves one past row and no active row.
func moveToPast(ctx context.Context, tx *repository.Store, offerID uint, status models.OfferStatus, at time.Time) (*models.PastTradeOffer, error) {
	return tx.Offers.Archive(ctx, offerID, status, at)
}

// declineAll declines and archives each still-pending offer in ids and
// returns the ones it changed.
func declineAll(ctx context.Context, tx *repository.Store, ids []uint, at time.Time) ([]uint, error) {
	declined := make([]uint, 0, len(ids))
	for _, id := range ids {
		ok, err := tx.Offers.Transition(ctx, id, models.OfferSent, models.OfferDeclined)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if _, err := moveToPast(ctx, tx, id, models.OfferDeclined, at); err != nil {
			return nil, err
		}
		declined = append(declined, id)
	}
	return declined, nil
}

// removePostTx declines every pending offer on the post, then deletes the
// post and its images.
func removePostTx(ctx context.Context, tx *repository.Store, postID uint, at time.Time) ([]uint, error) {
	pending, err := tx.Offers.PendingIDsForPost(ctx, postID, 0)
	if err != nil {
		return nil, err
	}
	declined, err := declineAll(ctx, tx, pending, at)
	if err != nil {
		return nil, err
	}
	if err := tx.Posts.Delete(ctx, postID); err != nil {
		return nil, err
	}
	return declined, nil
}
