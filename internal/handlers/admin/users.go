package admin

import (
	"log"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"vendora_back_end/internal/cache"
	"vendora_back_end/internal/database"
	"vendora_back_end/internal/middleware"
	"vendora_back_end/internal/models"
)

//
// --- ADMINISTRATION UTILISATEURS ---
//

// GetUsers liste les utilisateurs avec pagination, recherche plein texte
// (nom/email) et filtre par rôle.
//
// GET /api/admin/users?page=1&limit=20&search=...&role=seller
func GetUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	search := strings.ToLower(strings.TrimSpace(c.Query("search")))
	roleFilter := c.Query("role")

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// ScyllaDB n'a pas de pagination OFFSET : on scanne la table users et on
	// filtre/pagine en mémoire. Volumétrie admin acceptable.
	iter := session.Query(`SELECT user_id, email, name, role, provider, created_at FROM users`).Iter()

	type adminUser struct {
		ID        string     `json:"id"`
		Email     string     `json:"email"`
		Name      string     `json:"name"`
		Role      string     `json:"role"`
		Provider  string     `json:"provider"`
		CreatedAt *time.Time `json:"created_at"`
	}

	var all []adminUser
	var (
		userID                      gocql.UUID
		email, name, role, provider string
		createdAt                   *time.Time
	)
	for iter.Scan(&userID, &email, &name, &role, &provider, &createdAt) {
		u := adminUser{
			ID:        userID.String(),
			Email:     email,
			Name:      name,
			Role:      string(models.ParseRole(role)),
			Provider:  provider,
			CreatedAt: createdAt,
		}

		if roleFilter != "" && u.Role != roleFilter {
			createdAt = nil
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			createdAt = nil
			continue
		}
		all = append(all, u)
		createdAt = nil
	}
	if err := iter.Close(); err != nil {
		log.Printf("❌ Erreur listing utilisateurs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture utilisateurs"})
		return
	}

	// Tri stable pour une pagination cohérente entre deux requêtes
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })

	totalUsers := len(all)
	totalPages := int(math.Ceil(float64(totalUsers) / float64(limit)))
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * limit
	if start > totalUsers {
		start = totalUsers
	}
	end := start + limit
	if end > totalUsers {
		end = totalUsers
	}

	c.JSON(http.StatusOK, gin.H{
		"users":      all[start:end],
		"page":       page,
		"totalPages": totalPages,
		"totalUsers": totalUsers,
	})
}

// UpdateUserRole change le rôle d'un utilisateur.
//
// PATCH /api/admin/users/:id/role  {"role": "seller"}
func UpdateUserRole(c *gin.Context) {
	targetID := c.Param("id")

	var input struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	switch models.Role(input.Role) {
	case models.RoleCustomer, models.RoleSeller, models.RoleAdmin:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rôle inconnu: " + input.Role})
		return
	}

	// Un admin ne peut pas se rétrograder lui-même (risque de lockout)
	if targetID == c.GetString(middleware.CtxUserID) && models.Role(input.Role) != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Impossible de modifier son propre rôle admin"})
		return
	}

	targetUUID, err := gocql.ParseUUID(targetID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID utilisateur invalide"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var existingEmail string
	if err := session.Query(`SELECT email FROM users WHERE user_id = ?`, targetUUID).Scan(&existingEmail); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	err = session.Query(`UPDATE users SET role = ?, updated_at = ? WHERE user_id = ?`,
		input.Role, time.Now(), targetUUID).Exec()
	if err != nil {
		log.Printf("❌ Erreur mise à jour rôle: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour rôle"})
		return
	}

	// Le JWT en circulation garde l'ancien rôle jusqu'à expiration, mais le
	// cache doit refléter la base immédiatement
	cache.InvalidateUserCache(targetID)

	log.Printf("✅ Rôle de %s changé en %s", existingEmail, input.Role)
	c.JSON(http.StatusOK, gin.H{
		"message": "Rôle mis à jour",
		"userId":  targetID,
		"role":    input.Role,
	})
}
