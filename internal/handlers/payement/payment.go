package pa

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/webhook"

	"vendora_back_end/internal/database"
	"vendora_back_end/internal/handlers/user"
	"vendora_back_end/internal/middleware"
	"vendora_back_end/internal/models"
	"vendora_back_end/internal/utils"
)

// ✅ Crée un PaymentIntent Stripe à partir d'items fournis par le front
// (chemin direct, sans adresse — l'app mobile l'utilise pour le paiement rapide)
func CreatePaymentIntent(c *gin.Context) {
	var req struct {
		Items models.Cart `json:"items"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requête invalide ou panier vide"})
		return
	}

	total := req.Items.Total()
	userID := c.GetString(middleware.CtxUserID)
	email := c.GetString(middleware.CtxEmail)

	if userID == "" || email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié ou e-mail manquant"})
		return
	}

	// ✅ Sérialise le panier en JSON pour le stocker dans Stripe
	cartJSON, err := json.Marshal(req.Items)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sérialisation panier"})
		return
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(total * 100)),
		Currency: stripe.String("eur"),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: map[string]string{
			"user_id": userID,
			"email":   email,
			"cart":    string(cartJSON),
		},
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		log.Println("❌ Erreur Stripe:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	log.Printf("💳 PaymentIntent créé : %s (%.2f€) pour %s", intent.ID, total, email)

	c.JSON(http.StatusOK, gin.H{
		"clientSecret": intent.ClientSecret,
		"paymentId":    intent.ID,
	})
}

// ✅ Webhook Stripe
func StripeWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	var event stripe.Event

	if secret == "" {
		log.Println("⚠️ Pas de STRIPE_WEBHOOK_SECRET — mode test")
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Println("❌ JSON invalide:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "JSON invalide"})
			return
		}
	} else {
		event, err = webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), secret)
		if err != nil {
			log.Println("❌ Signature Stripe invalide:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
			return
		}
	}

	log.Printf("📥 Événement Stripe reçu : %s", event.Type)
	handleStripeEvent(event)

	c.Status(http.StatusOK)
}

// ✅ Traitement de l'événement Stripe : création de la commande
func handleStripeEvent(event stripe.Event) {
	if event.Type != "payment_intent.succeeded" {
		log.Printf("ℹ️ Événement ignoré : %s", event.Type)
		return
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		log.Println("❌ Erreur décodage PaymentIntent:", err)
		return
	}

	userID := pi.Metadata["user_id"]
	userEmail := pi.Metadata["email"]
	cartData := pi.Metadata["cart"]

	if userID == "" || userEmail == "" || cartData == "" {
		log.Println("⚠️ Métadonnées incomplètes")
		return
	}
	log.Printf("👤 User ID = %s | 📧 Email = %s", userID, userEmail)

	// Idempotence : Stripe peut relivrer un événement. Le volume webhook est
	// faible, le filtrage sur stripe_id reste acceptable ici.
	ordersSession, err := database.GetOrdersSession()
	if err != nil {
		log.Println("❌ Erreur connexion base commandes:", err)
		return
	}

	var existingID gocql.UUID
	if err := ordersSession.Query(`SELECT order_id FROM orders WHERE stripe_id = ? LIMIT 1 ALLOW FILTERING`,
		pi.ID).Scan(&existingID); err == nil {
		log.Println("🔁 Commande déjà enregistrée, on ignore.")
		return
	}

	// ✅ Désérialise le panier depuis Stripe (pas depuis Redis)
	var cart models.Cart
	if err := json.Unmarshal([]byte(cartData), &cart); err != nil {
		log.Println("❌ Erreur JSON panier:", err)
		return
	}
	log.Printf("🛒 Articles dans le panier : %d", len(cart))

	var addressID gocql.UUID
	if raw := pi.Metadata["address_id"]; raw != "" {
		if parsed, err := gocql.ParseUUID(raw); err == nil {
			addressID = parsed
		}
	}

	var discount float64
	if raw := pi.Metadata["discount_amount"]; raw != "" {
		discount, _ = strconv.ParseFloat(raw, 64)
	}

	order := models.Order{
		ID:         gocql.TimeUUID(),
		UserID:     userID,
		StripeID:   pi.ID,
		AddressID:  addressID,
		TotalPrice: float64(pi.Amount) / 100,
		Discount:   discount,
		Status:     models.OrderStatusPaid,
		CreatedAt:  time.Now(),
	}
	for _, item := range cart {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	log.Println("📤 Insertion commande ScyllaDB...")
	if err := user.SaveOrder(order); err != nil {
		log.Println("❌ Erreur insertion commande:", err)
		return
	}
	log.Printf("✅ Commande enregistrée : %s", order.ID)

	// ✅ Décrémenter le stock de chaque produit vendu
	decrementStock(cart)

	// ✅ Supprimer le panier Redis APRÈS la commande, et notifier le front
	ctx := context.Background()
	key := "cart:" + userID
	if err := database.Redis.Del(ctx, key).Err(); err == nil {
		database.Redis.Publish(ctx, key, "cleared")
		log.Printf("🧹 Panier supprimé Redis pour %s", userID)
	}

	// Générer l'HTML et le PDF, puis envoyer l'e-mail
	html := utils.GenerateOrderConfirmationHTML(order, userEmail)

	pdf, err := utils.GenerateInvoicePDF(order, userEmail)
	if err != nil {
		log.Println("❌ Erreur génération PDF :", err)
		pdf = nil
	}

	go func() {
		if err := utils.SendConfirmationEmail(userEmail, "Confirmation de votre commande Vendora", html, pdf); err != nil {
			log.Println("❌ Erreur envoi e-mail confirmation :", err)
		} else {
			log.Println("📧 E-mail de confirmation envoyé à", userEmail)
		}
	}()
}

// decrementStock débite le stock en base après un paiement confirmé. Le stock
// a déjà été validé au checkout, on clamp simplement à zéro.
func decrementStock(cart models.Cart) {
	session, err := database.GetProductsSession()
	if err != nil {
		log.Println("❌ Erreur connexion base produits:", err)
		return
	}

	for _, item := range cart {
		productUUID, err := gocql.ParseUUID(item.ProductID)
		if err != nil {
			continue
		}

		var stock int
		var categoryID gocql.UUID
		if err := session.Query(`SELECT stock, category_id FROM products WHERE product_id = ?`,
			productUUID).Scan(&stock, &categoryID); err != nil {
			log.Printf("⚠️ Produit %s introuvable pour décrément stock", item.ProductID)
			continue
		}

		newStock := stock - item.Quantity
		if newStock < 0 {
			newStock = 0
		}

		if err := session.Query(`UPDATE products SET stock = ?, updated_at = ? WHERE product_id = ?`,
			newStock, time.Now(), productUUID).Exec(); err != nil {
			log.Printf("❌ Erreur décrément stock %s: %v", item.ProductID, err)
			continue
		}

		// L'index par catégorie garde un stock dénormalisé
		if err := session.Query(`UPDATE products_by_category SET stock = ? WHERE category_id = ? AND product_id = ?`,
			newStock, categoryID, productUUID).Exec(); err != nil {
			log.Printf("⚠️ Erreur sync stock products_by_category pour %s: %v", item.ProductID, err)
		}

		log.Printf("📦 Stock %s: %d → %d", item.ProductID, stock, newStock)
	}
}
