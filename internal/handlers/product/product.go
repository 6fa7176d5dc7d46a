package product

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"

	"vendora_back_end/internal/database"
	"vendora_back_end/internal/middleware"
	"vendora_back_end/internal/models"
	"vendora_back_end/internal/services"
)

func CreateProduct(c *gin.Context) {
	var p models.Product

	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if p.Name == "" || p.Price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nom requis et prix positif"})
		return
	}

	if p.CategoryID == (gocql.UUID{}) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Le champ 'category_id' est obligatoire"})
		return
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var categoryName string
	if err := session.Query(`SELECT name FROM categories WHERE category_id = ?`, p.CategoryID).Scan(&categoryName); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Catégorie introuvable"})
		return
	}

	// Un vendeur ne publie que sous son propre seller_id, l'admin peut
	// créer pour n'importe quel vendeur
	if middleware.RoleFromContext(c) != models.RoleAdmin {
		sellerUUID, err := gocql.ParseUUID(c.GetString(middleware.CtxUserID))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID vendeur invalide"})
			return
		}
		p.SellerID = sellerUUID
	}

	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}

	p.ID = gocql.TimeUUID()
	now := time.Now()
	p.CreatedAt = &now
	p.UpdatedAt = &now

	query := `INSERT INTO products (product_id, name, slug, description, price, discount, stock, category_id, seller_id, image_urls, tags, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if err := session.Query(query, p.ID, p.Name, p.Slug, p.Description, p.Price, p.Discount, p.Stock,
		p.CategoryID, p.SellerID, p.ImageURLs, p.Tags, p.CreatedAt, p.UpdatedAt).Exec(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création produit: " + err.Error()})
		return
	}

	// Table d'index pour les requêtes par catégorie
	if err := session.Query(`INSERT INTO products_by_category (category_id, product_id, name, slug, price, discount, stock) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.CategoryID, p.ID, p.Name, p.Slug, p.Price, p.Discount, p.Stock).Exec(); err != nil {
		// Log l'erreur mais ne bloque pas la création
		log.Printf("⚠️ Erreur indexation products_by_category: %v", err)
	}

	// 🔄 Indexation Elasticsearch
	go services.IndexProduct(p)

	// Le listing global n'est plus à jour
	database.RedisClient.Del(context.Background(), "products:all")

	c.JSON(http.StatusCreated, p)
}

func GetAllProducts(c *gin.Context) {
	ctx := context.Background()
	cacheKey := "products:all"

	// ✅ Vérifie le cache Redis
	if val, err := database.RedisClient.Get(ctx, cacheKey).Result(); err == nil && val != "" {
		var cached []models.Product
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT product_id, name, slug, description, price, discount, stock, category_id, seller_id, image_urls, tags, created_at, updated_at FROM products`).Iter()

	products := []models.Product{}
	var p models.Product

	for iter.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Discount, &p.Stock,
		&p.CategoryID, &p.SellerID, &p.ImageURLs, &p.Tags, &p.CreatedAt, &p.UpdatedAt) {
		products = append(products, p)
		p = models.Product{} // Reset pour la prochaine itération
	}

	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produits: " + err.Error()})
		return
	}

	// ✅ Met en cache
	if data, err := json.Marshal(products); err == nil {
		database.RedisClient.Set(ctx, cacheKey, data, time.Hour)
	}

	c.JSON(http.StatusOK, products)
}

// 🔵 GET /api/products/:id
func GetProduct(c *gin.Context) {
	p, err := FetchProduct(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func SearchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paramètre 'q' manquant"})
		return
	}

	// 🔎 1️⃣ Recherche dans Elasticsearch (prioritaire)
	results, err := services.SearchProducts(query)
	if err == nil && len(results) > 0 {
		// ✅ Génère les URLs signées MinIO pour chaque produit
		for i := range results {
			if urls, ok := results[i]["image_urls"].([]interface{}); ok {
				signed := []string{}
				for _, u := range urls {
					if str, ok := u.(string); ok && str != "" {
						signedURL, err := services.GenerateSignedURL(context.Background(), str, 24*time.Hour)
						if err == nil {
							signed = append(signed, signedURL)
						}
					}
				}
				results[i]["image_urls"] = signed
			}
		}
		c.JSON(http.StatusOK, results)
		return
	}

	// 🔁 2️⃣ Fallback ScyllaDB si ES vide (scan complet, filtre en mémoire)
	ctx := context.Background()
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT product_id, name, slug, description, price, discount, stock, category_id, seller_id, image_urls, tags, created_at, updated_at FROM products`).Iter()

	products := []models.Product{}
	var p models.Product

	for iter.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Discount, &p.Stock,
		&p.CategoryID, &p.SellerID, &p.ImageURLs, &p.Tags, &p.CreatedAt, &p.UpdatedAt) {
		if containsIgnoreCase(p.Name, query) || containsIgnoreCase(p.Description, query) || containsTagsIgnoreCase(p.Tags, query) {
			signed := []string{}
			for _, url := range p.ImageURLs {
				signedURL, err := services.GenerateSignedURL(ctx, url, 24*time.Hour)
				if err == nil {
					signed = append(signed, signedURL)
				}
			}
			p.ImageURLs = signed
			products = append(products, p)
		}
		p = models.Product{}
	}

	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur recherche: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, products)
}

// Helper pour recherche insensible à la casse
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func containsTagsIgnoreCase(tags []string, query string) bool {
	for _, tag := range tags {
		if containsIgnoreCase(tag, query) {
			return true
		}
	}
	return false
}

var slugCleaner = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify normalise un nom en slug URL (minuscules, tirets)
func Slugify(name string) string {
	slug := slugCleaner.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

func GetProductsByCategory(c *gin.Context) {
	categoryID := c.Param("id")

	catUUID, err := gocql.ParseUUID(categoryID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID de catégorie invalide"})
		return
	}

	// ✅ Utilise la table products_by_category pour une requête optimisée
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(`SELECT product_id, name, slug, price, discount, stock FROM products_by_category WHERE category_id = ?`, catUUID).Iter()

	products := []models.Product{}
	var p models.Product

	for iter.Scan(&p.ID, &p.Name, &p.Slug, &p.Price, &p.Discount, &p.Stock) {
		p.CategoryID = catUUID
		products = append(products, p)
		p = models.Product{}
	}

	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture produits: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, products)
}

func GetBestSellers(c *gin.Context) {
	// Les ventes des 30 derniers jours, agrégées en mémoire. Pour de gros
	// volumes il faudrait une table matérialisée alimentée par un job batch.
	ordersSession, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)

	iter := ordersSession.Query(`SELECT items FROM orders WHERE created_at >= ? ALLOW FILTERING`, thirtyDaysAgo).Iter()

	productSales := make(map[string]int)
	var itemsJSON string

	for iter.Scan(&itemsJSON) {
		var items []models.OrderItem
		if err := json.Unmarshal([]byte(itemsJSON), &items); err == nil {
			for _, item := range items {
				productSales[item.ProductID] += item.Quantity
			}
		}
	}

	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commandes: " + err.Error()})
		return
	}

	type productSale struct {
		ProductID string
		Quantity  int
	}

	sales := make([]productSale, 0, len(productSales))
	for pid, qty := range productSales {
		sales = append(sales, productSale{ProductID: pid, Quantity: qty})
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].Quantity > sales[j].Quantity })

	limit := 10
	if len(sales) > limit {
		sales = sales[:limit]
	}

	products := []models.Product{}
	for _, sale := range sales {
		if p, err := FetchProduct(sale.ProductID); err == nil {
			products = append(products, *p)
		}
	}

	c.JSON(http.StatusOK, products)
}

// FetchProduct lit un produit complet par ID
func FetchProduct(id string) (*models.Product, error) {
	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	productUUID, err := gocql.ParseUUID(id)
	if err != nil {
		return nil, err
	}

	var p models.Product
	err = session.Query(`SELECT product_id, name, slug, description, price, discount, stock, category_id, seller_id, image_urls, tags, created_at, updated_at
	                     FROM products WHERE product_id = ?`, productUUID).Scan(
		&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price, &p.Discount, &p.Stock,
		&p.CategoryID, &p.SellerID, &p.ImageURLs, &p.Tags, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
