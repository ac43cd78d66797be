package handlers

import (
	"net/http"

	"campusdesk/internal/services"
	"campusdesk/internal/utils"

	"github.com/gin-gonic/gin"
)

type GatePassHandler struct {
	gate *services.GatePassService
}

func NewGatePassHandler(gate *services.GatePassService) *GatePassHandler {
	return &GatePassHandler{gate: gate}
}

type gateRequest struct {
	Location *services.Location `json:"location"`
}

func (h *GatePassHandler) Active(c *gin.Context) {
	pass, err := h.gate.Active(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pass": pass})
}

func (h *GatePassHandler) Mine(c *gin.Context) {
	passes, err := h.gate.ListMine(c.Request.Context(), currentUser(c).ID, utils.ClampLimit(c.Query("limit"), 20, 100))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"passes": passes})
}

// location reads the optional body; an empty body means no fix was sent.
func location(c *gin.Context) (*services.Location, bool) {
	if c.Request.ContentLength == 0 {
		return nil, true
	}
	var req gateRequest
	if !bind(c, &req) {
		return nil, false
	}
	return req.Location, true
}

func (h *GatePassHandler) Leave(c *gin.Context) {
	loc, ok := location(c)
	if !ok {
		return
	}
	pass, err := h.gate.Leave(c.Request.Context(), currentUser(c), loc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pass)
}

func (h *GatePassHandler) Enter(c *gin.Context) {
	loc, ok := location(c)
	if !ok {
		return
	}
	pass, err := h.gate.Enter(c.Request.Context(), currentUser(c), loc)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pass)
}
