package handlers

import (
	"net/http"

	"warthug/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Username   string `json:"username" binding:"required"`
	UserID     string `json:"userId" binding:"required"`
	IsVerified bool   `json:"isVerified"`
	Referral   string `json:"referral"`
}

// Register creates a player, with optional referral attribution.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	p, err := h.Referral.Register(c.Request.Context(), req.Username, req.UserID, req.IsVerified, req.Referral)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": p})
}

// Status settles the lazy subsystems and returns the full status document.
func (h *Handler) Status(c *gin.Context) {
	userID := c.Param("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId required"})
		return
	}
	st, err := h.Economy.MonitorStatus(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// Tap spends one energy for perTap points.
func (h *Handler) Tap(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Economy.Tap(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.Taps.Inc()
	c.JSON(http.StatusOK, res)
}

// RefillEnergy restores the energy pool.
func (h *Handler) RefillEnergy(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Economy.RefillEnergy(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpgradeTapPower buys +1 perTap.
func (h *Handler) UpgradeTapPower(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Economy.UpgradeTapPower(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpgradeEnergyLimit buys +500 maxEnergy.
func (h *Handler) UpgradeEnergyLimit(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Economy.UpgradeEnergyLimit(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AwardHourlyPoints settles passive production.
func (h *Handler) AwardHourlyPoints(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Economy.AwardHourlyPoints(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type ConvertRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// Convert exchanges raw points into hug points.
func (h *Handler) Convert(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req ConvertRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	res, err := h.Economy.ConvertToHugPoints(c.Request.Context(), userID, req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	middleware.Conversions.Inc()
	c.JSON(http.StatusOK, res)
}

// PointsInfo returns the consolidated currency view.
func (h *Handler) PointsInfo(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	res, err := h.Economy.GetPointsInfo(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Transactions returns the caller's recent ledger entries.
func (h *Handler) Transactions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	txs, err := h.TransactionRepo.GetByUserID(c.Request.Context(), userID, 100)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": txs})
}
