package handlers

import (
	"net/http"

	"campusdesk/internal/models"
	"campusdesk/internal/services"

	"github.com/gin-gonic/gin"
)

type VoteHandler struct {
	votes *services.VoteService
}

func NewVoteHandler(votes *services.VoteService) *VoteHandler {
	return &VoteHandler{votes: votes}
}

type voteRequest struct {
	Direction string `json:"direction" binding:"required,oneof=up down"`
}

// Vote records the caller's up or down vote (POST /api/issues/:id/vote).
// Repeating a vote is harmless; the opposite direction switches it.
func (h *VoteHandler) Vote(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req voteRequest
	if !bind(c, &req) {
		return
	}
	res, err := h.votes.CastVote(c.Request.Context(), id, currentUser(c).ID, models.VoteDirection(req.Direction))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
