package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codyseavey/tcg-exchange/internal/api/middleware"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/services"
)

type CollectionHandler struct {
	collection *services.CollectionService
	wantlist   *services.WantlistService
	log        logrus.FieldLogger
}

func NewCollectionHandler(collection *services.CollectionService, wantlist *services.WantlistService, log logrus.FieldLogger) *CollectionHandler {
	return &CollectionHandler{collection: collection, wantlist: wantlist, log: log}
}

// AddToCollection records one new unit; adding the same collectible twice
// creates two entries.
func (h *CollectionHandler) AddToCollection(c *gin.Context) {
	var req models.AddToCollectionRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	entry, err := h.collection.Add(c.Request.Context(), middleware.CollectorID(c), req.CollectibleID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (h *CollectionHandler) GetCollection(c *gin.Context) {
	entries, err := h.collection.ListByOwner(c.Request.Context(), middleware.CollectorID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if entries == nil {
		entries = []models.CollectionEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *CollectionHandler) HasCollectible(c *gin.Context) {
	id, ok := paramID(c, h.log, "collectible_id")
	if !ok {
		return
	}
	has, err := h.collection.Has(c.Request.Context(), middleware.CollectorID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"has": has})
}

func (h *CollectionHandler) DeleteCollectionEntry(c *gin.Context) {
	id, ok := paramID(c, h.log, "id")
	if !ok {
		return
	}
	if err := h.collection.Remove(c.Request.Context(), middleware.CollectorID(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CollectionHandler) GetStats(c *gin.Context) {
	stats, err := h.collection.Stats(c.Request.Context(), middleware.CollectorID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *CollectionHandler) AddToWantlist(c *gin.Context) {
	var req models.AddToWantlistRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	if err := h.wantlist.Add(c.Request.Context(), middleware.CollectorID(c), req.CollectibleID); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CollectionHandler) GetWantlist(c *gin.Context) {
	entries, err := h.wantlist.List(c.Request.Context(), middleware.CollectorID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if entries == nil {
		entries = []models.WantlistEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (h *CollectionHandler) RemoveFromWantlist(c *gin.Context) {
	id, ok := paramID(c, h.log, "collectible_id")
	if !ok {
		return
	}
	if err := h.wantlist.Remove(c.Request.Context(), middleware.CollectorID(c), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
