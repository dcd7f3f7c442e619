package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/codyseavey/tcg-exchange/internal/api/middleware"
	"github.com/codyseavey/tcg-exchange/internal/models"
	"github.com/codyseavey/tcg-exchange/internal/services"
)

type TradeHandler struct {
	posts     *services.TradePostService
	trades    *services.TradeService
	exchanges *services.ExchangeService
	log       logrus.FieldLogger
}

func NewTradeHandler(posts *services.TradePostService, trades *services.TradeService, exchanges *services.ExchangeService, log logrus.FieldLogger) *TradeHandler {
	return &TradeHandler{posts: posts, trades: trades, exchanges: exchanges, log: log}
}

func (h *TradeHandler) CreatePost(c *gin.Context) {
	var req models.CreatePostRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	post, err := h.posts.CreatePost(c.Request.Context(), middleware.CollectorID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *TradeHandler) MyPosts(c *gin.Context) {
	listings, err := h.posts.ListPostsByCollector(c.Request.Context(), middleware.CollectorID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, listings)
}

func (h *TradeHandler) GetPost(c *gin.Context) {
	id, ok := paramID(c, h.log, "id")
	if !ok {
		return
	}
	detail, err := h.posts.GetPostDetail(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// RemovePost takes the listed entry id, not the post id.
func (h *TradeHandler) RemovePost(c *gin.Context) {
	var req models.RemovePostRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	declined, err := h.posts.RemovePost(c.Request.Context(), middleware.CollectorID(c), req.CollectionEntryID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"declined_offer_ids": declined})
}

func (h *TradeHandler) RegisterOffer(c *gin.Context) {
	postID, ok := paramID(c, h.log, "id")
	if !ok {
		return
	}
	var req models.RegisterOfferRequest
	if !bindJSON(c, h.log, &req) {
		return
	}
	offer, err := h.trades.RegisterOffer(c.Request.Context(), postID, middleware.CollectorID(c), req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, offer)
}

func (h *TradeHandler) ListOffersForPost(c *gin.Context) {
	postID, ok := paramID(c, h.log, "id")
	if !ok {
		return
	}
	offers, err := h.trades.ListOffersForPost(c.Request.Context(), middleware.CollectorID(c), postID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, offers)
}

func (h *TradeHandler) OutgoingOffers(c *gin.Context) {
	offers, err := h.trades.ListOutgoingOffers(c.Request.Context(), middleware.CollectorID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, offers)
}

func (h *TradeHandler) PastOffers(c *gin.Context) {
	offers, err := h.trades.ListPastOffers(c.Request.Context(), middleware.CollectorID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, offers)
}

// AcceptOffer responds with the trade receipt.
func (h *TradeHandler) AcceptOffer(c *gin.Context) {
	id, ok := paramID(c, h.log, "id")
	if !ok {
		return
	}
	receipt, err := h.trades.AcceptOffer(c.Request.Context(), middleware.CollectorID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (h *TradeHandler) DeclineOffer(c *gin.Context) {
	id, ok := paramID(c, h.log, "id")
	if !ok {
		return
	}
	past, err := h.trades.DeclineOffer(c.Request.Context(), middleware.CollectorID(c), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, past)
}

func (h *TradeHandler) ListExchanges(c *gin.Context) {
	exchanges, err := h.exchanges.ListExchanges(c.Request.Context(), middleware.CollectorID(c))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if exchanges == nil {
		exchanges = []models.ExchangeHistory{}
	}
	c.JSON(http.StatusOK, exchanges)
}
