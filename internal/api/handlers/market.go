package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codyseavey/tcg-exchange/internal/apperrors"
	"github.com/codyseavey/tcg-exchange/internal/services"
)

type MarketHandler struct {
	snapshots *services.SnapshotService
	images    *services.ImageStorageService
	log       logrus.FieldLogger
}

func NewMarketHandler(snapshots *services.SnapshotService, images *services.ImageStorageService, log logrus.FieldLogger) *MarketHandler {
	return &MarketHandler{snapshots: snapshots, images: images, log: log}
}

// GetSnapshots handles GET /market/snapshots?period=week|month|3month|year|all
func (h *MarketHandler) GetSnapshots(c *gin.Context) {
	history, err := h.snapshots.GetHistory(c.Request.Context(), c.Query("period"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// UploadImage stores the multipart "image" field and returns its URL for use
// in trade posts and offers.
func (h *MarketHandler) UploadImage(c *gin.Context) {
	file, err := c.FormFile("image")
	if err != nil {
		respondError(c, h.log, apperrors.Input("image file is required"))
		return
	}
	if file.Size > services.MaxImageBytes {
		respondError(c, h.log, apperrors.Input("image exceeds %d bytes", services.MaxImageBytes))
		return
	}

	f, err := file.Open()
	if err != nil {
		respondError(c, h.log, apperrors.Internal(err, "open upload"))
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, services.MaxImageBytes+1))
	if err != nil {
		respondError(c, h.log, apperrors.Internal(err, "read upload"))
		return
	}

	url, err := h.images.SaveImage(c.Request.Context(), data)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
