package handlers

import (
	"net/http"

	"warthug/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthRequest struct {
	UserID string `json:"userId" binding:"required"`
}

// Auth issues a JWT for a registered player.
func (h *Handler) Auth(c *gin.Context) {
	var req AuthRequest
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	if _, err := h.Economy.GetPointsInfo(c.Request.Context(), req.UserID); err != nil {
		fail(c, err)
		return
	}

	token, err := service.GenerateJWT(req.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "userId": req.UserID})
}
