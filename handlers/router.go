package handlers

import (
	"github.com/gin-gonic/gin"

	"shortlink/auth"
	"shortlink/services"
	"shortlink/storage"
)

// SetupRoutes wires the HTTP surface onto a gin engine.
func SetupRoutes(router *gin.Engine, links *services.LinkService, users *storage.UserStore, tokens *auth.TokenManager) {
	linkHandler := NewLinkHandler(links)
	authHandler := NewAuthHandler(users, tokens)

	router.POST("/auth/register", authHandler.Register)
	router.POST("/auth/token", authHandler.Token)

	linksGroup := router.Group("/links")
	{
		linksGroup.POST("/shorten", tokens.OptionalMiddleware(), linkHandler.Shorten)
		linksGroup.GET("/search", linkHandler.Search)
		linksGroup.GET("/:code/stats", linkHandler.Stats)
		linksGroup.POST("/:code/claim", tokens.Middleware(), linkHandler.Claim)
		linksGroup.PUT("/:code", tokens.Middleware(), linkHandler.Update)
		linksGroup.DELETE("/:code", tokens.Middleware(), linkHandler.Delete)
	}

	router.GET("/:code", linkHandler.Redirect)
}
