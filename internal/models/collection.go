package models

import (
	"time"
)

// CollectionEntry is one concrete unit of a collectible owned by a collector.
// Its id survives ownership transfers.
type CollectionEntry struct {
	ID            uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	CollectorID   uint         `json:"collector_id" gorm:"not null;index"`
	Collector     *Collector   `json:"-" gorm:"foreignKey:CollectorID"`
	CollectibleID uint         `json:"collectible_id" gorm:"not null;index"`
	Collectible   *Collectible `json:"collectible,omitempty" gorm:"foreignKey:CollectibleID"`
	AddedAt       time.Time    `json:"added_at"`
}

func (CollectionEntry) TableName() string {
	return "collections"
}

// WantlistEntry marks a collectible the collector is looking for
type WantlistEntry struct {
	ID            uint         `json:"id" gorm:"primaryKey;autoIncrement"`
	CollectorID   uint         `json:"collector_id" gorm:"not null;uniqueIndex:idx_wantlist_owner_item"`
	CollectibleID uint         `json:"collectible_id" gorm:"not null;uniqueIndex:idx_wantlist_owner_item"`
	Collectible   *Collectible `json:"collectible,omitempty" gorm:"foreignKey:CollectibleID"`
	AddedAt       time.Time    `json:"added_at"`
}

func (WantlistEntry) TableName() string {
	return "wantlist"
}

type AddToCollectionRequest struct {
	CollectibleID uint `json:"collectible_id" binding:"required"`
}

type AddToWantlistRequest struct {
	CollectibleID uint `json:"collectible_id" binding:"required"`
}

type CollectionStats struct {
	TotalEntries     int64 `json:"total_entries"`
	UniqueItems      int64 `json:"unique_items"`
	ListedForTrade   int64 `json:"listed_for_trade"`
	CompletedTrades  int64 `json:"completed_trades"`
	WantlistedTotals int64 `json:"wantlisted"`
}
