package handlers

import (
	"context"
	"net/http"

	"campusdesk/internal/models"
	"campusdesk/internal/services"

	"github.com/gin-gonic/gin"
)

type LeaveHandler struct {
	leaves *services.LeaveService
}

func NewLeaveHandler(leaves *services.LeaveService) *LeaveHandler {
	return &LeaveHandler{leaves: leaves}
}

type leaveRequest struct {
	StudentName   string `json:"student_name" binding:"max=100"`
	Phone         string `json:"phone" binding:"required,phone"`
	ParentPhone   string `json:"parent_phone" binding:"required,phone"`
	HostelName    string `json:"hostel_name" binding:"required,max=100"`
	RoomNumber    string `json:"room_number" binding:"required,max=20"`
	Reason        string `json:"reason" binding:"required,max=1000"`
	DepartureDate string `json:"departure_date" binding:"required,date"`
	ReturnDate    string `json:"return_date" binding:"required,date"`
}

// Active returns the caller's open application; null when they are in the
// hostel with nothing pending.
func (h *LeaveHandler) Active(c *gin.Context) {
	app, err := h.leaves.Active(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"application": app})
}

func (h *LeaveHandler) Mine(c *gin.Context) {
	apps, err := h.leaves.ListMine(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": apps})
}

func (h *LeaveHandler) Submit(c *gin.Context) {
	var req leaveRequest
	if !bind(c, &req) {
		return
	}
	app, err := h.leaves.Submit(c.Request.Context(), currentUser(c), services.LeaveInput(req))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

type leaveAction func(ctx context.Context, actor *models.User, id uint) (*models.LeaveApplication, error)

func (h *LeaveHandler) act(fn leaveAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		app, err := fn(c.Request.Context(), currentUser(c), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, app)
	}
}

// Depart logs the exit at the gate (approved -> out_of_campus).
func (h *LeaveHandler) Depart(c *gin.Context) { h.act(h.leaves.Depart)(c) }

// Return logs the student back (out_of_campus -> completed).
func (h *LeaveHandler) Return(c *gin.Context) { h.act(h.leaves.Return)(c) }

// MarkReturn closes an approved leave that was never used.
func (h *LeaveHandler) MarkReturn(c *gin.Context) { h.act(h.leaves.MarkReturn)(c) }
