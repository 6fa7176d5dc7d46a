package product

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"vendora_back_end/internal/database"
	"vendora_back_end/internal/middleware"
	"vendora_back_end/internal/models"
)

//
// --- COLLECTIONS ---
// Une collection regroupe des produits d'un même vendeur. Le front peut
// l'ajouter au panier d'un coup : chaque produit devient un item tagué
// collection_id/seller_id.
//

// 🟢 POST /api/collections (seller)
func CreateCollection(c *gin.Context) {
	var input struct {
		Name        string   `json:"name" binding:"required"`
		Description string   `json:"description"`
		ProductIDs  []string `json:"product_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(input.ProductIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Une collection doit contenir au moins un produit"})
		return
	}

	sellerUUID, err := gocql.ParseUUID(c.GetString(middleware.CtxUserID))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID vendeur invalide"})
		return
	}

	// Tous les produits doivent exister et appartenir au vendeur
	productIDs := make([]gocql.UUID, 0, len(input.ProductIDs))
	for _, id := range input.ProductIDs {
		p, err := FetchProduct(id)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Produit introuvable: " + id})
			return
		}
		if p.SellerID != sellerUUID && middleware.RoleFromContext(c) != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Produit d'un autre vendeur: " + id})
			return
		}
		productIDs = append(productIDs, p.ID)
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	now := time.Now()
	col := models.Collection{
		ID:          gocql.TimeUUID(),
		SellerID:    sellerUUID,
		Name:        input.Name,
		Slug:        Slugify(input.Name),
		Description: input.Description,
		ProductIDs:  productIDs,
		CreatedAt:   &now,
	}

	err = session.Query(`INSERT INTO collections (collection_id, seller_id, name, slug, description, product_ids, created_at)
	                     VALUES (?, ?, ?, ?, ?, ?, ?)`,
		col.ID, col.SellerID, col.Name, col.Slug, col.Description, col.ProductIDs, now).Exec()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création collection"})
		return
	}

	c.JSON(http.StatusCreated, col)
}

// 🔵 GET /api/collections/:id — collection avec ses produits résolus
func GetCollection(c *gin.Context) {
	col, err := FetchCollection(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Collection introuvable"})
		return
	}
	c.JSON(http.StatusOK, col)
}

// 🔵 GET /api/collections
func GetAllCollections(c *gin.Context) {
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT collection_id, seller_id, name, slug, description, product_ids, created_at FROM collections`).Iter()

	cols := []models.Collection{}
	var col models.Collection
	for iter.Scan(&col.ID, &col.SellerID, &col.Name, &col.Slug, &col.Description, &col.ProductIDs, &col.CreatedAt) {
		cols = append(cols, col)
		col = models.Collection{}
	}
	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture collections"})
		return
	}

	c.JSON(http.StatusOK, cols)
}

// 🔴 DELETE /api/collections/:id (seller propriétaire ou admin)
func DeleteCollection(c *gin.Context) {
	col, err := FetchCollection(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Collection introuvable"})
		return
	}

	if middleware.RoleFromContext(c) != models.RoleAdmin &&
		col.SellerID.String() != c.GetString(middleware.CtxUserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	if err := session.Query(`DELETE FROM collections WHERE collection_id = ?`, col.ID).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur suppression collection"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Collection supprimée"})
}

// FetchCollection lit une collection et résout ses produits
func FetchCollection(id string) (*models.Collection, error) {
	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	colUUID, err := gocql.ParseUUID(id)
	if err != nil {
		return nil, err
	}

	var col models.Collection
	err = session.Query(`SELECT collection_id, seller_id, name, slug, description, product_ids, created_at
	                     FROM collections WHERE collection_id = ?`, colUUID).Scan(
		&col.ID, &col.SellerID, &col.Name, &col.Slug, &col.Description, &col.ProductIDs, &col.CreatedAt)
	if err != nil {
		return nil, err
	}

	for _, pid := range col.ProductIDs {
		if p, err := FetchProduct(pid.String()); err == nil {
			col.Products = append(col.Products, *p)
		}
	}

	return &col, nil
}
