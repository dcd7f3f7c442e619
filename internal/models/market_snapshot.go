package models

import (
	"time"
)

// MarketSnapshot stores daily marketplace counts for historical tracking
type MarketSnapshot struct {
	ID                 uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SnapshotDate       time.Time `json:"snapshot_date" gorm:"uniqueIndex;not null"`
	Collectors         int64     `json:"collectors"`
	CollectionEntries  int64     `json:"collection_entries"`
	ActivePosts        int64     `json:"active_posts"`
	PendingOffers      int64     `json:"pending_offers"`
	CompletedExchanges int64     `json:"completed_exchanges"`
	CreatedAt          time.Time `json:"created_at"`
}

// SnapshotHistoryResponse is the API response for snapshot history
type SnapshotHistoryResponse struct {
	Snapshots []MarketSnapshot `json:"snapshots"`
	Period    string           `json:"period"` // "week", "month", "year", "all"
}

// ActivityEvent is one trade lifecycle transition written to the activity log
type ActivityEvent struct {
	Type        string      `json:"type" bson:"type"` // offer_registered, offer_accepted, offer_declined, post_created, post_removed
	ActorID     uint        `json:"actor_id" bson:"actor_id"`
	OfferID     uint        `json:"offer_id,omitempty" bson:"offer_id,omitempty"`
	TradePostID uint        `json:"trade_post_id,omitempty" bson:"trade_post_id,omitempty"`
	Status      OfferStatus `json:"status,omitempty" bson:"status,omitempty"`
	At          time.Time   `json:"at" bson:"at"`
}
