package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"shortlink/auth"
	"shortlink/models"
	"shortlink/services"
)

type ShortenRequest struct {
	OriginalURL string     `json:"original_url" binding:"required"`
	CustomAlias string     `json:"custom_alias"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type UpdateLinkRequest struct {
	NewURL string `json:"new_url" binding:"required"`
}

type ClaimRequest struct {
	ClaimToken string `json:"claim_token" binding:"required"`
}

// LinkHandler adapts HTTP requests onto the link service. It owns no
// business rules beyond translating service errors to status codes.
type LinkHandler struct {
	links *services.LinkService
}

func NewLinkHandler(links *services.LinkService) *LinkHandler {
	return &LinkHandler{links: links}
}

func (h *LinkHandler) Shorten(c *gin.Context) {
	var req ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	in := services.ShortenInput{
		OriginalURL: req.OriginalURL,
		CustomAlias: req.CustomAlias,
		ExpiresAt:   req.ExpiresAt,
	}
	if userID, ok := auth.GetUserID(c); ok {
		in.UserID = &userID
	}

	link, err := h.links.Shorten(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := linkResponse(c, link)
	if in.UserID == nil && link.ClaimToken != "" {
		// Returned exactly once; the owner-to-be must hold on to it.
		resp["claim_token"] = link.ClaimToken
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *LinkHandler) Redirect(c *gin.Context) {
	target, err := h.links.Resolve(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	// 302, not 301: permanent redirects get cached by browsers and would
	// swallow the clicks we count.
	c.Redirect(http.StatusFound, target)
}

func (h *LinkHandler) Update(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "authentication required"})
		return
	}

	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	link, err := h.links.UpdateURL(c.Request.Context(), c.Param("code"), req.NewURL, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, linkResponse(c, link))
}

func (h *LinkHandler) Delete(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "authentication required"})
		return
	}

	if err := h.links.Delete(c.Request.Context(), c.Param("code"), userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *LinkHandler) Stats(c *gin.Context) {
	stats, err := h.links.Stats(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *LinkHandler) Claim(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "authentication required"})
		return
	}

	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	link, err := h.links.Claim(c.Request.Context(), c.Param("code"), req.ClaimToken, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, linkResponse(c, link))
}

func (h *LinkHandler) Search(c *gin.Context) {
	rawURL := c.Query("original_url")
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "original_url query parameter is required"})
		return
	}

	link, err := h.links.FindByOriginalURL(c.Request.Context(), rawURL)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, linkResponse(c, link))
}

func linkResponse(c *gin.Context, link *models.Link) gin.H {
	return gin.H{
		"id":           link.ID,
		"original_url": link.OriginalURL,
		"short_code":   link.ShortCode,
		"short_url":    "http://" + c.Request.Host + "/" + link.ShortCode,
		"created_at":   link.CreatedAt,
		"expires_at":   link.ExpiresAt,
		"user_id":      link.UserID,
		"click_count":  link.ClickCount,
	}
}

// respondError maps service errors onto the HTTP surface. Store failures
// surface as 503 with retry-after semantics; raw errors never leak.
func respondError(c *gin.Context, err error) {
	switch {
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"detail": "link not found"})
	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case errors.Is(err, services.ErrAliasTaken):
		c.JSON(http.StatusConflict, gin.H{"detail": "alias already taken"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"detail": "forbidden"})
	case errors.Is(err, services.ErrCodeSpaceExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "could not allocate a short code, try again"})
	default:
		c.Header("Retry-After", "5")
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "service temporarily unavailable"})
	}
}
