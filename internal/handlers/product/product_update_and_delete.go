package product

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vendora_back_end/internal/cache"
	"vendora_back_end/internal/database"
	"vendora_back_end/internal/middleware"
	"vendora_back_end/internal/models"
	"vendora_back_end/internal/services"
)

// canManageProduct vérifie que le caller est l'admin ou le vendeur du produit
func canManageProduct(c *gin.Context, p *models.Product) bool {
	if middleware.RoleFromContext(c) == models.RoleAdmin {
		return true
	}
	return p.SellerID.String() == c.GetString(middleware.CtxUserID)
}

// 🟡 PUT /api/products/:id
func UpdateProduct(c *gin.Context) {
	existing, err := FetchProduct(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	if !canManageProduct(c, existing) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	var input struct {
		Name        *string   `json:"name"`
		Description *string   `json:"description"`
		Price       *float64  `json:"price"`
		Discount    *float64  `json:"discount"`
		Stock       *int      `json:"stock"`
		ImageURLs   *[]string `json:"image_urls"`
		Tags        *[]string `json:"tags"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if input.Name != nil {
		existing.Name = *input.Name
		existing.Slug = Slugify(*input.Name)
	}
	if input.Description != nil {
		existing.Description = *input.Description
	}
	if input.Price != nil {
		if *input.Price < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Prix négatif"})
			return
		}
		existing.Price = *input.Price
	}
	if input.Discount != nil {
		existing.Discount = *input.Discount
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Stock négatif"})
			return
		}
		existing.Stock = *input.Stock
	}
	if input.ImageURLs != nil {
		existing.ImageURLs = *input.ImageURLs
	}
	if input.Tags != nil {
		existing.Tags = *input.Tags
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	now := time.Now()
	existing.UpdatedAt = &now

	err = session.Query(`UPDATE products SET name = ?, slug = ?, description = ?, price = ?, discount = ?, stock = ?, image_urls = ?, tags = ?, updated_at = ?
	                     WHERE product_id = ?`,
		existing.Name, existing.Slug, existing.Description, existing.Price, existing.Discount,
		existing.Stock, existing.ImageURLs, existing.Tags, existing.UpdatedAt, existing.ID).Exec()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour produit"})
		return
	}

	// Garder l'index par catégorie cohérent
	session.Query(`UPDATE products_by_category SET name = ?, slug = ?, price = ?, discount = ?, stock = ?
	               WHERE category_id = ? AND product_id = ?`,
		existing.Name, existing.Slug, existing.Price, existing.Discount, existing.Stock,
		existing.CategoryID, existing.ID).Exec()

	go services.IndexProduct(*existing)
	cache.InvalidateProductCache(existing.ID.String())
	database.RedisClient.Del(context.Background(), "products:all")

	c.JSON(http.StatusOK, existing)
}

// 🔴 DELETE /api/products/:id
func DeleteProduct(c *gin.Context) {
	existing, err := FetchProduct(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	if !canManageProduct(c, existing) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	if err := session.Query(`DELETE FROM products WHERE product_id = ?`, existing.ID).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression produit"})
		return
	}

	session.Query(`DELETE FROM products_by_category WHERE category_id = ? AND product_id = ?`,
		existing.CategoryID, existing.ID).Exec()

	// Images MinIO associées
	for _, url := range existing.ImageURLs {
		if err := services.DeleteFile(services.BucketName(), url); err != nil {
			// On continue, l'objet sera orphelin au pire
			continue
		}
	}

	go services.RemoveProductFromIndex(existing.ID.String())
	cache.InvalidateProductCache(existing.ID.String())
	database.RedisClient.Del(context.Background(), "products:all")

	c.JSON(http.StatusOK, gin.H{"message": "Produit supprimé"})
}
