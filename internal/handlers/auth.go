package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"campusdesk/internal/apperr"
	"campusdesk/internal/middleware"
	"campusdesk/internal/services"
	"campusdesk/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const captchaSessionKey = "captcha_answer"

type AuthHandler struct {
	accounts       *services.AccountService
	captchaService *services.CaptchaService
	cache          *utils.Cache
}

func NewAuthHandler(accounts *services.AccountService, cache *utils.Cache) *AuthHandler {
	return &AuthHandler{
		accounts:       accounts,
		captchaService: services.NewCaptchaService(),
		cache:          cache,
	}
}

type registerRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required,min=6"`
	Phone      string `json:"phone" binding:"required,phone"`
	RollNumber string `json:"roll_number" binding:"max=20"`
	Captcha    string `json:"captcha" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type verifyRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// Captcha issues a fresh sign-up challenge (GET /api/auth/captcha).
func (h *AuthHandler) Captcha(c *gin.Context) {
	question, answer := h.captchaService.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set(captchaSessionKey, answer)
	if err := session.Save(); err != nil {
		respondError(c, apperr.Transient("save session", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"captcha": question})
}

func (h *AuthHandler) checkCaptcha(c *gin.Context, input string) bool {
	session := sessions.Default(c)
	expected, ok := session.Get(captchaSessionKey).(int)
	session.Delete(captchaSessionKey)
	_ = session.Save()

	got, err := strconv.Atoi(strings.TrimSpace(input))
	return ok && err == nil && got == expected
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bind(c, &req) {
		return
	}
	if !h.checkCaptcha(c, req.Captcha) {
		respondError(c, apperr.Validation("captcha answer is wrong, request a new one"))
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), services.RegisterInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Phone:      req.Phone,
		RollNumber: req.RollNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if err := middleware.Login(c, user); err != nil {
		respondError(c, apperr.Transient("save session", err))
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := middleware.Login(c, user); err != nil {
		respondError(c, apperr.Transient("save session", err))
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := middleware.Logout(c, h.cache); err != nil {
		respondError(c, apperr.Transient("clear session", err))
		return
	}
	c.Status(http.StatusNoContent)
}

// Verify confirms the emailed code.
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if !bind(c, &req) {
		return
	}
	if err := h.accounts.VerifyEmail(c.Request.Context(), req.Email, req.Code); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true})
}

// Me returns the signed-in profile.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}
