package models

import (
	"time"

	"gorm.io/datatypes"
)

type OfferStatus string

const (
	OfferSent     OfferStatus = "SENT"
	OfferAccepted OfferStatus = "ACCEPTED"
	OfferDeclined OfferStatus = "DECLINED"
)

// Terminal reports whether the status ends the offer's active life.
func (s OfferStatus) Terminal() bool {
	return s == OfferAccepted || s == OfferDeclined
}

// TradePost lists one collection entry for trade
type TradePost struct {
	ID                uint             `json:"id" gorm:"primaryKey;autoIncrement"`
	PosterID          uint             `json:"poster_id" gorm:"not null;index"`
	Poster            *Collector       `json:"-" gorm:"foreignKey:PosterID"`
	CollectionEntryID uint             `json:"collection_entry_id" gorm:"not null;uniqueIndex"`
	Entry             *CollectionEntry `json:"-" gorm:"foreignKey:CollectionEntryID"`
	Title             string           `json:"title" gorm:"not null"`
	Description       string           `json:"description"`
	Images            []TradePostImage `json:"images,omitempty" gorm:"foreignKey:TradePostID"`
	CreatedAt         time.Time        `json:"created_at"`
}

type TradePostImage struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	TradePostID uint      `json:"trade_post_id" gorm:"not null;index"`
	URL         string    `json:"url" gorm:"not null"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

// TradeOffer is an active proposal against a trade post
type TradeOffer struct {
	ID            uint             `json:"id" gorm:"primaryKey;autoIncrement"`
	TradePostID   uint             `json:"trade_post_id" gorm:"not null;index"`
	TradePost     *TradePost       `json:"-" gorm:"foreignKey:TradePostID"`
	SenderID      uint             `json:"sender_id" gorm:"not null;index"`
	Sender        *Collector       `json:"-" gorm:"foreignKey:SenderID"`
	SenderEntryID uint             `json:"sender_entry_id" gorm:"not null;index"`
	SenderEntry   *CollectionEntry `json:"-" gorm:"foreignKey:SenderEntryID"`
	Message       string           `json:"message"`
	ImageURL      string           `json:"image_url"`
	Status        OfferStatus      `json:"status" gorm:"not null;default:'SENT';index"`
	DateOffered   time.Time        `json:"date_offered"`
}

// PastTradeOffer archives an offer that reached a terminal status. It keeps
// collectible ids rather than collection entries.
type PastTradeOffer struct {
	ID                    uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	OfferID               uint         `json:"offer_id" gorm:"not null;uniqueIndex"`
	TradePostID           uint         `json:"trade_post_id" gorm:"not null;index"`
	SenderID              uint         `json:"sender_id" gorm:"not null;index"`
	Sender                *Collector   `json:"-" gorm:"foreignKey:SenderID"`
	ReceiverID            uint         `json:"receiver_id" gorm:"not null;index"`
	Receiver              *Collector   `json:"-" gorm:"foreignKey:ReceiverID"`
	SenderCollectibleID   uint         `json:"sender_collectible_id" gorm:"not null"`
	SenderCollectible     *Collectible `json:"-" gorm:"foreignKey:SenderCollectibleID"`
	ReceiverCollectibleID uint         `json:"receiver_collectible_id" gorm:"not null"`
	ReceiverCollectible   *Collectible `json:"-" gorm:"foreignKey:ReceiverCollectibleID"`
	Message               string       `json:"message"`
	ImageURL              string       `json:"image_url"`
	Status                OfferStatus  `json:"status" gorm:"not null"`
	DateOffered           time.Time    `json:"date_offered"`
	DateConcluded         time.Time    `json:"date_concluded"`
}

// ExchangeHistory is the ledger row for a completed trade
type ExchangeHistory struct {
	ID                           uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	OfferID                      uint           `json:"offer_id" gorm:"not null;uniqueIndex"`
	TradePostID                  uint           `json:"trade_post_id" gorm:"not null"`
	PosterID                     uint           `json:"poster_id" gorm:"not null;index"`
	OffererID                    uint           `json:"offerer_id" gorm:"not null;index"`
	PosterReceivedCollectibleID  uint           `json:"poster_received_collectible_id"`
	OffererReceivedCollectibleID uint           `json:"offerer_received_collectible_id"`
	PosterEntryID                uint           `json:"poster_entry_id"`
	OffererEntryID               uint           `json:"offerer_entry_id"`
	Receipt                      datatypes.JSON `json:"receipt"`
	ExchangedAt                  time.Time      `json:"exchanged_at" gorm:"index"`
}

func (ExchangeHistory) TableName() string {
	return "exchange_history"
}

// OwnershipTransfer records one entry changing hands
type OwnershipTransfer struct {
	CollectionEntryID uint `json:"collection_entry_id"`
	CollectibleID     uint `json:"collectible_id"`
	FromCollectorID   uint `json:"from_collector_id"`
	ToCollectorID     uint `json:"to_collector_id"`
}

// TradeReceipt describes everything an accepted offer changed
type TradeReceipt struct {
	OfferID          uint                `json:"offer_id"`
	TradePostID      uint                `json:"trade_post_id"`
	ExchangeID       uint                `json:"exchange_id,omitempty"`
	PosterID         uint                `json:"poster_id"`
	OffererID        uint                `json:"offerer_id"`
	Transfers        []OwnershipTransfer `json:"transfers"`
	DeclinedOfferIDs []uint              `json:"declined_offer_ids"`
	RemovedPostIDs   []uint              `json:"removed_post_ids"`
	CompletedAt      time.Time           `json:"completed_at"`
}

type CreatePostRequest struct {
	CollectionEntryID uint     `json:"collection_entry_id" binding:"required"`
	Title             string   `json:"title" binding:"required,max=120"`
	Description       string   `json:"description" binding:"max=2000"`
	Images            []string `json:"images" binding:"max=8,dive,url"`
}

type RemovePostRequest struct {
	CollectionEntryID uint `json:"collection_entry_id" binding:"required"`
}

type RegisterOfferRequest struct {
	CollectionEntryID uint   `json:"collection_entry_id" binding:"required"`
	Message           string `json:"message" binding:"max=1000"`
	Image             string `json:"image"`
}

// PostListing is one row of the per-collectible listings page
type PostListing struct {
	ID          uint               `json:"id"`
	Title       string             `json:"title"`
	CoverImage  string             `json:"cover_image,omitempty"`
	Collectible CollectibleSummary `json:"collectible"`
	Poster      CollectorSummary   `json:"poster"`
	CreatedAt   time.Time          `json:"created_at"`
}

type PostDetail struct {
	ID                uint               `json:"id"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Images            []string           `json:"images"`
	CollectionEntryID uint               `json:"collection_entry_id"`
	Collectible       CollectibleSummary `json:"collectible"`
	CampaignName      string             `json:"campaign_name,omitempty"`
	Poster            CollectorSummary   `json:"poster"`
	PendingOffers     int64              `json:"pending_offers"`
	CreatedAt         time.Time          `json:"created_at"`
}

// PostOffer is an offer as seen by the poster
type PostOffer struct {
	ID                uint               `json:"id"`
	Message           string             `json:"message"`
	Image             string             `json:"image"`
	Status            OfferStatus        `json:"offer_status"`
	CollectionEntryID uint               `json:"collection_entry_id"`
	Collectible       CollectibleSummary `json:"collectible"`
	Sender            CollectorSummary   `json:"sender"`
	DateOffered       time.Time          `json:"date_offered"`
}

// OfferSummary describes an offer from one party's side. Pending and
// archived offers are mixed; callers tell them apart by Status and Archived.
type OfferSummary struct {
	OfferID                 uint               `json:"offer_id"`
	TradePostID             uint               `json:"trade_post_id"`
	Role                    string             `json:"role"` // sender or receiver
	Status                  OfferStatus        `json:"offer_status"`
	Archived                bool               `json:"archived"`
	Message                 string             `json:"message"`
	Image                   string             `json:"image"`
	OfferedCollectible      CollectibleSummary `json:"offered_collectible"`
	CounterpartyCollectible CollectibleSummary `json:"counterparty_collectible"`
	Counterparty            CollectorSummary   `json:"counterparty"`
	DateOffered             time.Time          `json:"date_offered"`
	DateConcluded           *time.Time         `json:"date_concluded,omitempty"`
}
