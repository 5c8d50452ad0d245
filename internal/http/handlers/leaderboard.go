package handlers

import (
	"net/http"
	"strconv"

	"warthug/internal/service"

	"github.com/gin-gonic/gin"
)

// Leaderboard returns the top rows for one board plus the caller's position
// when authenticated.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	kind := c.DefaultQuery("type", service.BoardPoints)

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	userID, _ := getUserID(c)
	res, err := h.Leaderboard.Get(c.Request.Context(), kind, userID, limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ReferralRank returns the caller's rank on the referral board.
func (h *Handler) ReferralRank(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Leaderboard.Get(c.Request.Context(), service.BoardReferrals, userID, 30)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
