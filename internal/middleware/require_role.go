package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vendora_back_end/internal/models"
)

// RequireAdmin vérifie que l'utilisateur a le rôle admin
func RequireAdmin(c *gin.Context) {
	if RoleFromContext(c) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès réservé aux administrateurs"})
		c.Abort()
		return
	}
	c.Next()
}

// RequireSeller vérifie que l'utilisateur est vendeur ou admin
// (un admin peut tout faire)
func RequireSeller(c *gin.Context) {
	role := RoleFromContext(c)
	if role != models.RoleSeller && role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès réservé aux vendeurs"})
		c.Abort()
		return
	}
	c.Next()
}
