package user

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"vendora_back_end/internal/cache"
	"vendora_back_end/internal/database"
	"vendora_back_end/internal/middleware"
	"vendora_back_end/internal/models"
)

// Le panier vit sous une clé Redis unique par utilisateur, 30 jours de TTL.
const CartTTL = 30 * 24 * time.Hour

func cartKey(userID string) string {
	return "cart:" + userID
}

// loadCart lit le panier Redis. Clé absente = panier vide, pas une erreur.
func loadCart(ctx context.Context, userID string) models.Cart {
	data, err := database.RedisClient.Get(ctx, cartKey(userID)).Result()
	if err != nil || data == "" {
		return models.Cart{}
	}
	var cart models.Cart
	if json.Unmarshal([]byte(data), &cart) != nil {
		return models.Cart{}
	}
	return cart
}

// saveCart persiste le panier et notifie les clients WebSocket abonnés.
func saveCart(ctx context.Context, userID string, cart models.Cart) error {
	jsonData, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	if err := database.RedisClient.Set(ctx, cartKey(userID), jsonData, CartTTL).Err(); err != nil {
		return err
	}
	database.RedisClient.Publish(ctx, cartKey(userID), "updated")
	return nil
}

func cartResponse(cart models.Cart) gin.H {
	return gin.H{
		"items": cart,
		"total": cart.Total(),
		"count": len(cart),
	}
}

//
// 🛒 GET /api/cart
//
func GetCart(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	cart := loadCart(context.Background(), userID)
	c.JSON(http.StatusOK, cartResponse(cart))
}

//
// 🟢 POST /api/cart/add
//
func AddToCart(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	var input struct {
		ProductID    string `json:"productId"`
		Quantity     int    `json:"quantity"`
		CollectionID string `json:"collectionId"`
		SellerID     string `json:"sellerId"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	if input.Quantity < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantité invalide"})
		return
	}

	ctx := context.Background()

	// Quantité 0 = retrait idempotent : l'item disparaît s'il existe,
	// no-op sinon. Pas de lookup produit, le retrait doit marcher même
	// pour un produit dépublié entre-temps.
	if input.Quantity == 0 {
		cart := loadCart(ctx, userID).Upsert(models.CartItem{ProductID: input.ProductID})
		if err := saveCart(ctx, userID, cart); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde panier"})
			return
		}
		resp := cartResponse(cart)
		resp["message"] = "Produit retiré du panier"
		c.JSON(http.StatusOK, resp)
		return
	}

	product, err := fetchProduct(input.ProductID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	cart := loadCart(ctx, userID)

	// 📦 Vérification du stock sur la quantité totale demandée
	requested := input.Quantity
	if existing := cart.Find(input.ProductID); existing != nil {
		requested += existing.Quantity
	}
	if requested > product.Stock {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Stock insuffisant",
			"stock": product.Stock,
		})
		return
	}

	imageURL := ""
	if len(product.ImageURLs) > 0 {
		imageURL = product.ImageURLs[0]
	}

	// Un ajout issu d'une collection porte ses tags collection/vendeur,
	// l'instantané les conserve pour les resynchronisations du front.
	sellerID := product.SellerID.String()
	if input.SellerID != "" {
		sellerID = input.SellerID
	}

	cart = cart.Upsert(models.CartItem{
		ProductID:    input.ProductID,
		Name:         product.Name,
		Price:        product.Price,
		Discount:     product.Discount,
		Quantity:     input.Quantity,
		ImageURL:     imageURL,
		Slug:         product.Slug,
		CollectionID: input.CollectionID,
		SellerID:     sellerID,
	})

	if err := saveCart(ctx, userID, cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde panier"})
		return
	}

	resp := cartResponse(cart)
	resp["message"] = "Produit ajouté au panier"
	c.JSON(http.StatusOK, resp)
}

//
// 🔁 PATCH /api/cart/:productId — applique un delta signé à la quantité.
// Un delta qui fait tomber la quantité à 0 ou moins supprime l'item.
//
func UpdateCartQuantity(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	productID := c.Param("productId")

	var input struct {
		Delta int `json:"delta"`
	}
	if err := c.ShouldBindJSON(&input); err != nil || input.Delta == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Delta invalide"})
		return
	}

	ctx := context.Background()
	cart := loadCart(ctx, userID)

	cart, found := cart.ApplyDelta(productID, input.Delta)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit absent du panier"})
		return
	}

	// Pour un incrément, re-vérifier le stock courant
	if input.Delta > 0 {
		if item := cart.Find(productID); item != nil {
			product, err := fetchProduct(productID)
			if err == nil && item.Quantity > product.Stock {
				c.JSON(http.StatusConflict, gin.H{
					"error": "Stock insuffisant",
					"stock": product.Stock,
				})
				return
			}
		}
	}

	if err := saveCart(ctx, userID, cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde panier"})
		return
	}

	c.JSON(http.StatusOK, cartResponse(cart))
}

//
// ❌ DELETE /api/cart/:productId
//
func RemoveFromCart(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	productID := c.Param("productId")
	ctx := context.Background()

	cart := loadCart(ctx, userID).Remove(productID)

	if err := saveCart(ctx, userID, cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde panier"})
		return
	}

	resp := cartResponse(cart)
	resp["message"] = "Produit supprimé du panier"
	c.JSON(http.StatusOK, resp)
}

//
// 🧹 DELETE /api/cart/clear
//
func ClearCart(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	ctx := context.Background()
	if err := database.RedisClient.Del(ctx, cartKey(userID)).Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du vidage du panier"})
		return
	}
	database.RedisClient.Publish(ctx, cartKey(userID), "cleared")

	c.JSON(http.StatusOK, gin.H{
		"message": "Panier vidé avec succès",
	})
}

//
// 🔀 POST /api/cart/merge — fusionne le panier invité au login.
// Les quantités des items présents des deux côtés s'additionnent.
//
func MergeCart(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	var input struct {
		Items models.Cart `json:"items"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	ctx := context.Background()
	cart := loadCart(ctx, userID)

	if len(input.Items) == 0 {
		// Rien à fusionner, renvoyer le panier serveur tel quel
		c.JSON(http.StatusOK, cartResponse(cart))
		return
	}

	cart = cart.Merge(input.Items)

	// Les items venus du panier invité peuvent arriver sans nom produit
	var missing []string
	for _, item := range cart {
		if item.Name == "" {
			missing = append(missing, item.ProductID)
		}
	}
	if len(missing) > 0 {
		names := cache.GetProductNamesFromCache(missing)
		for i := range cart {
			if cart[i].Name == "" {
				cart[i].Name = names[cart[i].ProductID]
			}
		}
	}

	if err := saveCart(ctx, userID, cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sauvegarde panier"})
		return
	}

	resp := cartResponse(cart)
	resp["message"] = "Paniers fusionnés"
	c.JSON(http.StatusOK, resp)
}

// fetchProduct lit un produit dans le keyspace products
func fetchProduct(id string) (*models.Product, error) {
	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	var product models.Product
	err = session.Query(`SELECT product_id, name, slug, description, price, discount, stock, category_id, seller_id, image_urls, tags, created_at, updated_at
	                     FROM products WHERE product_id = ?`, gocql.UUID(parsed)).Scan(
		&product.ID, &product.Name, &product.Slug, &product.Description, &product.Price,
		&product.Discount, &product.Stock, &product.CategoryID, &product.SellerID,
		&product.ImageURLs, &product.Tags, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &product, nil
}
