package auth

import (
	"go-leave/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the authentication endpoints. Register, login and
// refresh are public; /me requires a valid access token.
func RegisterRoutes(rg *gin.RouterGroup, h *Handler) {
	group := rg.Group("/auth")
	{
		group.POST("/register", h.Register)
		group.POST("/login", h.Login)
		group.POST("/refresh", h.Refresh)
		group.GET("/me", middleware.AuthMiddleware(), h.Me)
	}
}
