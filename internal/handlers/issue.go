package handlers

import (
	"net/http"

	"campusdesk/internal/models"
	"campusdesk/internal/services"
	"campusdesk/internal/utils"

	"github.com/gin-gonic/gin"
)

type IssueHandler struct {
	issues *services.IssueService
}

func NewIssueHandler(issues *services.IssueService) *IssueHandler {
	return &IssueHandler{issues: issues}
}

type issueRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required"`
	ImageURL    string `json:"image_url" binding:"omitempty,url"`
}

func (r issueRequest) input() services.IssueInput {
	return services.IssueInput{
		Title:       r.Title,
		Description: r.Description,
		Category:    models.IssueCategory(r.Category),
		ImageURL:    r.ImageURL,
	}
}

// List serves the open-issue dashboards: ?category=hostel|campus&sort=new|hot.
func (h *IssueHandler) List(c *gin.Context) {
	limit := utils.ClampLimit(c.Query("limit"), 30, 100)
	page := utils.ClampLimit(c.Query("page"), 1, 1000)
	posts, err := h.issues.ListOpen(c.Request.Context(), services.IssueFilter{
		Category: models.IssueCategory(c.Query("category")),
		Sort:     c.Query("sort"),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": posts, "page": page})
}

func (h *IssueHandler) Detail(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	post, err := h.issues.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *IssueHandler) Mine(c *gin.Context) {
	posts, err := h.issues.ListMine(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": posts})
}

func (h *IssueHandler) Create(c *gin.Context) {
	var req issueRequest
	if !bind(c, &req) {
		return
	}
	post, err := h.issues.Create(c.Request.Context(), currentUser(c), req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (h *IssueHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req issueRequest
	if !bind(c, &req) {
		return
	}
	post, err := h.issues.Update(c.Request.Context(), currentUser(c), id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *IssueHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.issues.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
