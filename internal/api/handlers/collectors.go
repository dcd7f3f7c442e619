package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codyseavey/tcg-exchange/internal/api/middleware"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/services"
)

type CollectorHandler struct {
	collectors *services.CollectorService
	log        logrus.FieldLogger
}

func NewCollectorHandler(collectors *services.CollectorService, log logrus.FieldLogger) *CollectorHandler {
	return &CollectorHandler{collectors: collectors, log: log}
}

func (h *CollectorHandler) GetProfile(c *gin.Context) {
	profile, err := h.collectors.GetProfile(c.Request.Context(), middleware.CollectorID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *CollectorHandler) UpdateProfile(c *gin.Context) {
	var req models.UpdateProfileRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	profile, err := h.collectors.UpdateProfile(c.Request.Context(), middleware.CollectorID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *CollectorHandler) GetPublicProfile(c *gin.Context) {
	id, ok := paramID(c, h.log, "id")
	if !ok {
		return
	}
	profile, err := h.collectors.PublicProfile(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}
