package models

import (
	"time"
)

// Campaign groups collectibles by release window
type Campaign struct {
	ID           uint          `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string        `json:"name" gorm:"not null;index"`
	Description  string        `json:"description"`
	Image        string        `json:"image"`
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	Collectibles []Collectible `json:"collectibles,omitempty" gorm:"foreignKey:CampaignID"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Active reports whether the release window contains t.
func (c *Campaign) Active(t time.Time) bool {
	if !c.StartDate.IsZero() && t.Before(c.StartDate) {
		return false
	}
	if !c.EndDate.IsZero() && t.After(c.EndDate) {
		return false
	}
	return true
}

type Collectible struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	CampaignID  uint      `json:"campaign_id" gorm:"not null;index"`
	Campaign    *Campaign `json:"campaign,omitempty" gorm:"foreignKey:CampaignID"`
	Name        string    `json:"name" gorm:"not null;index"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	CreatedAt   time.Time `json:"created_at"`
}

// CollectibleSummary is the short form embedded in trade listings
type CollectibleSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

func (c *Collectible) Summary() CollectibleSummary {
	if c == nil {
		return CollectibleSummary{}
	}
	return CollectibleSummary{ID: c.ID, Name: c.Name, Image: c.Image}
}

type CreateCampaignRequest struct {
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

type CreateCollectibleRequest struct {
	CampaignID  uint   `json:"campaign_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

type CollectibleSearchResult struct {
	Collectibles []Collectible `json:"collectibles"`
	TotalCount   int           `json:"total_count"`
	HasMore      bool          `json:"has_more"`
}
