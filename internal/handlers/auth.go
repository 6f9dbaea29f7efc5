package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"expressconnect/internal/middleware"
	"expressconnect/internal/security"
	"expressconnect/internal/service"
)

type emailRequest struct {
	Email string `json:"email" binding:"required"`
}

type verifyCodeRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type passwordRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type createPasswordRequest struct {
	Email           string `json:"email" binding:"required"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type accountStatusResponse struct {
	Exists      bool   `json:"exists"`
	HasPassword bool   `json:"hasPassword"`
	Message     string `json:"message,omitempty"`
}

type sessionResponse struct {
	User      security.SessionClaims `json:"user"`
	ExpiresAt int64                  `json:"expiresAt"`
}

func (h HandlerSet) bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "invalid_input", Message: "Invalid request"})
		return false
	}
	return true
}

func (h HandlerSet) AccountStatus(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req) {
		return
	}

	status, err := h.auth.CheckAccountStatus(c.Request.Context(), req.Email)
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := accountStatusResponse{Exists: status.Exists, HasPassword: status.HasPassword}
	if !status.Exists {
		resp.Message = "No account found with this email"
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) RequestCode(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.auth.RequestCode(c.Request.Context(), req.Email); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

func (h HandlerSet) VerifyCode(c *gin.Context) {
	var req verifyCodeRequest
	if !h.bind(c, &req) {
		return
	}

	claims, err := h.auth.Authenticate(c.Request.Context(), service.EmailCode{Email: req.Email, Code: req.Code})
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.startSession(c, claims)
}

func (h HandlerSet) PasswordSignIn(c *gin.Context) {
	var req passwordRequest
	if !h.bind(c, &req) {
		return
	}

	claims, err := h.auth.Authenticate(c.Request.Context(), service.Password{Email: req.Email, Password: req.Password})
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.startSession(c, claims)
}

func (h HandlerSet) CreatePassword(c *gin.Context) {
	var req createPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	claims, err := h.auth.CreatePassword(c.Request.Context(), service.CreatePasswordInput{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.startSession(c, claims)
}

func (h HandlerSet) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.auth.InitiatePasswordReset(c.Request.Context(), req.Email); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h HandlerSet) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !h.bind(c, &req) {
		return
	}

	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h HandlerSet) Session(c *gin.Context) {
	claims := middleware.ClaimsFrom(c)
	if claims == nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized", Message: "Not signed in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": claims})
}

func (h HandlerSet) SignOut(c *gin.Context) {
	h.cookie.Clear(c)
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) startSession(c *gin.Context, claims security.SessionClaims) {
	token, expiresAt, err := h.sessions.Issue(claims)
	if err != nil {
		h.writeError(c, err)
		return
	}

	h.cookie.Set(c, token, expiresAt)
	c.JSON(http.StatusOK, sessionResponse{User: claims, ExpiresAt: expiresAt.Unix()})
}
