package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/services"
)

type CatalogHandler struct {
	catalog *services.CatalogService
	posts   *services.TradePostService
	log     logrus.FieldLogger
}

func NewCatalogHandler(catalog *services.CatalogService, posts *services.TradePostService, log logrus.FieldLogger) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, posts: posts, log: log}
}

func (h *CatalogHandler) ListCampaigns(c *gin.Context) {
	campaigns, err := h.catalog.ListCampaigns(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if campaigns == nil {
		campaigns = []models.Campaign{}
	}
	c.JSON(http.StatusOK, campaigns)
}

func (h *CatalogHandler) GetCampaign(c *gin.Context) {
	id, ok := paramID(c, h.log, "id")
	if !ok {
		return
	}
	campaign, err := h.catalog.GetCampaign(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, campaign)
}

func (h *CatalogHandler) CreateCampaign(c *gin.Context) {
	var req models.CreateCampaignRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	campaign, err := h.catalog.CreateCampaign(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, campaign)
}

// SearchCollectibles handles GET /collectibles/search?q=&limit=
func (h *CatalogHandler) SearchCollectibles(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	result, err := h.catalog.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CatalogHandler) GetCollectible(c *gin.Context) {
	id, ok := paramID(c, h.log, "id")
	if !ok {
		return
	}
	collectible, err := h.catalog.GetCollectible(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, collectible)
}

func (h *CatalogHandler) CreateCollectible(c *gin.Context) {
	var req models.CreateCollectibleRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	collectible, err := h.catalog.CreateCollectible(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, collectible)
}

// PostsForCollectible lists open trade posts for units of the collectible.
func (h *CatalogHandler) PostsForCollectible(c *gin.Context) {
	id, ok := paramID(c, h.log, "id")
	if !ok {
		return
	}
	listings, err := h.posts.FindPostsForCollectible(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}
