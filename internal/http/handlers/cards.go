package handlers

import (
	"net/http"

	"warthug/internal/domain"

	"github.com/gin-gonic/gin"
)

// AllCards returns the caller's full card collections with upgrade previews.
func (h *Handler) AllCards(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	cards, p, err := h.Economy.AllCards(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cards":     cards,
		"perHour":   p.PerHour,
		"tapPoints": p.TapPoints,
		"level":     p.Level,
	})
}

// CardDetails returns the read model for one card.
func (h *Handler) CardDetails(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	info, err := h.Economy.GetCardInfo(c.Request.Context(), userID, c.Param("section"), c.Param("key"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

type UpgradeCardRequest struct {
	Section string `json:"section" binding:"required"`
	CardKey string `json:"cardKey" binding:"required"`
}

// UpgradeCard buys the next curve step on one card.
func (h *Handler) UpgradeCard(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req UpgradeCardRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	res, err := h.Economy.UpgradeCard(c.Request.Context(), userID, req.Section, req.CardKey)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CardTemplates returns the card catalog grouped by section.
func (h *Handler) CardTemplates(c *gin.Context) {
	templates, err := h.Cards.Templates(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

// CreateCard inserts a card template and fans it out to every player.
func (h *Handler) CreateCard(c *gin.Context) {
	var tpl domain.CardTemplate
	if err := c.BindJSON(&tpl); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	updated, err := h.Cards.CreateCard(c.Request.Context(), &tpl)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"template":       tpl,
		"playersUpdated": updated,
	})
}
