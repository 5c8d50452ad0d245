package handlers

import (
	"net/http"

	"warthug/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// DailyClaim applies the streak rules and pays the daily reward.
func (h *Handler) DailyClaim(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Economy.ProcessDailyClaim(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.Claims.WithLabelValues("daily").Inc()
	c.JSON(http.StatusOK, res)
}

// DailyClaimInfo reports the streak widget state.
func (h *Handler) DailyClaimInfo(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Economy.GetDailyClaimInfo(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type StartAutoMineRequest struct {
	DurationMS int64 `json:"durationMs"`
}

// StartAutoMine opens an auto-mine session.
func (h *Handler) StartAutoMine(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req StartAutoMineRequest
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
			return
		}
	}
	res, err := h.Economy.StartAutoMine(c.Request.Context(), userID, req.DurationMS)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AutoMineStatus settles and reports the running session.
func (h *Handler) AutoMineStatus(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Economy.ProcessAutoMine(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ClaimAutoMine pays out the pending session balance.
func (h *Handler) ClaimAutoMine(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Economy.ClaimAutoMineRewards(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.Claims.WithLabelValues("auto_mine").Inc()
	c.JSON(http.StatusOK, res)
}

// ClaimStarterBonus pays the one-time welcome credit.
func (h *Handler) ClaimStarterBonus(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Economy.ClaimStarterBonus(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.Claims.WithLabelValues("starter_bonus").Inc()
	c.JSON(http.StatusOK, res)
}

// ReferralDetails returns the caller's referral tree and claim state.
func (h *Handler) ReferralDetails(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Referral.GetReferralDetails(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type ClaimReferralRequest struct {
	ReferralUserID string `json:"referralUserId" binding:"required"`
}

// ClaimReferral pays the one-time reward for one direct referral.
func (h *Handler) ClaimReferral(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req ClaimReferralRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	res, err := h.Referral.ClaimReferralReward(c.Request.Context(), userID, req.ReferralUserID)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.Claims.WithLabelValues("referral").Inc()
	c.JSON(http.StatusOK, res)
}

// ClaimReferralRank pays the weekly top-30 leaderboard bonus.
func (h *Handler) ClaimReferralRank(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Referral.ClaimReferralRankReward(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.Claims.WithLabelValues("referral_rank").Inc()
	c.JSON(http.StatusOK, res)
}

// RewardsSummary surveys every claimable balance.
func (h *Handler) RewardsSummary(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Referral.GetRewardsSummary(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
