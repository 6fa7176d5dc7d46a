package product

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"vendora_back_end/internal/database"
	"vendora_back_end/internal/models"
)

// 🟢 POST /api/categories (admin)
func CreateCategory(c *gin.Context) {
	var cat models.Category
	if err := c.ShouldBindJSON(&cat); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if cat.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le champ 'name' est obligatoire"})
		return
	}
	if cat.Slug == "" {
		cat.Slug = Slugify(cat.Name)
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	cat.ID = gocql.TimeUUID()
	now := time.Now()
	cat.CreatedAt = &now

	err = session.Query(`INSERT INTO categories (category_id, name, slug, created_at) VALUES (?, ?, ?, ?)`,
		cat.ID, cat.Name, cat.Slug, now).Exec()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création catégorie"})
		return
	}

	database.RedisClient.Del(context.Background(), "categories:all")

	c.JSON(http.StatusCreated, cat)
}

// 🔵 GET /api/categories
func GetAllCategories(c *gin.Context) {
	ctx := context.Background()
	cacheKey := "categories:all"

	// Cache Redis
	val, err := database.RedisClient.Get(ctx, cacheKey).Result()
	if err == nil && val != "" {
		var cached []models.Category
		if json.Unmarshal([]byte(val), &cached) == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT category_id, name, slug, created_at FROM categories`).Iter()

	cats := []models.Category{}
	var cat models.Category
	for iter.Scan(&cat.ID, &cat.Name, &cat.Slug, &cat.CreatedAt) {
		cats = append(cats, cat)
		cat = models.Category{}
	}
	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture catégories"})
		return
	}

	data, _ := json.Marshal(cats)
	database.RedisClient.Set(ctx, cacheKey, data, time.Hour)

	c.JSON(http.StatusOK, cats)
}

// 🟡 PUT /api/categories/:id (admin)
func UpdateCategory(c *gin.Context) {
	catUUID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID invalide"})
		return
	}

	var input struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var existingName string
	if err := session.Query(`SELECT name FROM categories WHERE category_id = ?`, catUUID).Scan(&existingName); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Catégorie introuvable"})
		return
	}

	slug := Slugify(input.Name)
	err = session.Query(`UPDATE categories SET name = ?, slug = ? WHERE category_id = ?`,
		input.Name, slug, catUUID).Exec()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour catégorie"})
		return
	}

	database.RedisClient.Del(context.Background(), "categories:all")

	c.JSON(http.StatusOK, gin.H{"message": "Catégorie mise à jour", "name": input.Name, "slug": slug})
}

// 🔴 DELETE /api/categories/:id (admin)
func DeleteCategory(c *gin.Context) {
	catUUID, err := gocql.ParseUUID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID invalide"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// Refuse de supprimer une catégorie encore peuplée
	iter := session.Query(`SELECT product_id FROM products_by_category WHERE category_id = ? LIMIT 1`, catUUID).Iter()
	var pid gocql.UUID
	hasProducts := iter.Scan(&pid)
	iter.Close()
	if hasProducts {
		c.JSON(http.StatusConflict, gin.H{"error": "La catégorie contient encore des produits"})
		return
	}

	if err := session.Query(`DELETE FROM categories WHERE category_id = ?`, catUUID).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression catégorie"})
		return
	}

	database.RedisClient.Del(context.Background(), "categories:all")

	c.JSON(http.StatusOK, gin.H{"message": "Catégorie supprimée"})
}
