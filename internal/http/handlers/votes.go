package handlers

import (
	"net/http"
	"strconv"

	"warthug/internal/domain"

	"github.com/gin-gonic/gin"
)

// ListVoteEvents returns open events annotated for the caller.
func (h *Handler) ListVoteEvents(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	events, err := h.Votes.ListOpenForUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

type SubmitVoteRequest struct {
	ChoiceIndex *int `json:"choiceIndex" binding:"required"`
}

// SubmitVote records a ballot and credits the reward.
func (h *Handler) SubmitVote(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}
	var req SubmitVoteRequest
	if err := c.BindJSON(&req); err != nil || req.ChoiceIndex == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	res, err := h.Votes.SubmitVote(c.Request.Context(), userID, eventID, *req.ChoiceIndex)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// VoteResults returns the per-choice tallies with percentages.
func (h *Handler) VoteResults(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}
	total, results, err := h.Votes.EventResults(c.Request.Context(), eventID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"totalVotes": total, "results": results})
}

// CreateVoteEvent inserts a vote event.
func (h *Handler) CreateVoteEvent(c *gin.Context) {
	var e domain.VoteEvent
	if err := c.BindJSON(&e); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	if err := h.Votes.CreateEvent(c.Request.Context(), &e); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"event": e})
}
