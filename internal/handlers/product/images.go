package product

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"vendora_back_end/internal/cache"
	"vendora_back_end/internal/database"
	"vendora_back_end/internal/services"
)

// =========================
// 🟢 UPLOAD IMAGE PRODUIT
// =========================
func UploadProductImage(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fichier manquant"})
		return
	}

	imageURL, err := services.UploadFile(services.BucketName(), header)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur upload MinIO: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "✅ Image uploadée avec succès",
		"image_url": imageURL,
	})
}

// =========================
// 🟡 AJOUTER IMAGE À UN PRODUIT
// =========================
func AddImageToProduct(c *gin.Context) {
	var req struct {
		ProductID string `json:"product_id" binding:"required"`
		ImageURL  string `json:"image_url" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := FetchProduct(req.ProductID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	if !canManageProduct(c, p) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	urls := append(p.ImageURLs, req.ImageURL)
	err = session.Query("UPDATE products SET image_urls = ?, updated_at = ? WHERE product_id = ?",
		urls, time.Now(), p.ID).Exec()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour produit"})
		return
	}

	cache.InvalidateProductCache(req.ProductID)

	c.JSON(http.StatusOK, gin.H{
		"message":    "✅ Image ajoutée au produit",
		"product_id": req.ProductID,
		"image_url":  req.ImageURL,
	})
}

// =========================
// 🔵 LISTER LES IMAGES D'UN PRODUIT (URLs signées)
// =========================
func GetProductImages(c *gin.Context) {
	p, err := FetchProduct(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	ctx := context.Background()
	signed := []string{}
	for _, url := range p.ImageURLs {
		signedURL, err := services.GenerateSignedURL(ctx, url, 24*time.Hour)
		if err == nil {
			signed = append(signed, signedURL)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": p.ID.String(),
		"images":     signed,
	})
}
