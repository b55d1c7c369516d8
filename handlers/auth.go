package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shortlink/auth"
	"shortlink/models"
	"shortlink/storage"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthHandler is the authentication collaborator's HTTP surface. The link
// core never sees passwords or tokens, only the resolved user id.
type AuthHandler struct {
	users  *storage.UserStore
	tokens *auth.TokenManager
}

func NewAuthHandler(users *storage.UserStore, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	user := models.User{Username: req.Username}
	if err := user.SetPassword(req.Password); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to create user"})
		return
	}

	if err := h.users.Create(c.Request.Context(), &user); err != nil {
		if err == storage.ErrDuplicateUsername {
			c.JSON(http.StatusConflict, gin.H{"detail": "username already exists"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "service temporarily unavailable"})
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":         gin.H{"id": user.ID, "username": user.Username},
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (h *AuthHandler) Token(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	user, err := h.users.FindByUsername(c.Request.Context(), req.Username)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "service temporarily unavailable"})
		return
	}
	if user == nil || !user.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "invalid credentials"})
		return
	}

	token, err := h.tokens.Generate(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
	})
}
