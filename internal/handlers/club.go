package handlers

import (
	"net/http"

	"campusdesk/internal/services"

	"github.com/gin-gonic/gin"
)

type ClubHandler struct {
	clubs *services.ClubService
}

func NewClubHandler(clubs *services.ClubService) *ClubHandler {
	return &ClubHandler{clubs: clubs}
}

type eventRequest struct {
	ClubID           *uint  `json:"club_id"`
	Title            string `json:"title" binding:"required,max=200"`
	Description      string `json:"description" binding:"required"`
	EventDate        string `json:"event_date" binding:"required,date"`
	RegistrationLink string `json:"registration_link" binding:"omitempty,url"`
	ImageURL         string `json:"image_url" binding:"required,url"`
}

func (h *ClubHandler) ListClubs(c *gin.Context) {
	clubs, err := h.clubs.ListClubs(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clubs": clubs})
}

func (h *ClubHandler) Club(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	club, err := h.clubs.GetClub(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, club)
}

// Events lists events by date; ?all=1 includes past ones.
func (h *ClubHandler) Events(c *gin.Context) {
	events, err := h.clubs.ListEvents(c.Request.Context(), c.Query("all") == "")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *ClubHandler) PublishEvent(c *gin.Context) {
	var req eventRequest
	if !bind(c, &req) {
		return
	}
	ev, err := h.clubs.PublishEvent(c.Request.Context(), currentUser(c), services.EventInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}
