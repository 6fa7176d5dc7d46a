package pa

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/paymentintent"
	"github.com/stripe/stripe-go/v83/promotioncode"

	"vendora_back_end/internal/database"
	"vendora_back_end/internal/middleware"
	"vendora_back_end/internal/models"
)

// Checkout crée un PaymentIntent à partir du panier Redis, après validation
// de l'adresse, du stock et d'un éventuel code promo Stripe.
func Checkout(c *gin.Context) {
	var req struct {
		AddressID  string `json:"address_id" binding:"required"`
		CouponCode string `json:"coupon_code"` // Optionnel
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}

	userID := c.GetString(middleware.CtxUserID)
	email := c.GetString(middleware.CtxEmail)

	if userID == "" || email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	// ✅ 1. Récupérer le panier depuis Redis
	ctx := context.Background()
	cartData, err := database.Redis.Get(ctx, "cart:"+userID).Result()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide ou introuvable"})
		return
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(cartData), &cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}
	if len(cart) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide"})
		return
	}

	// ✅ 2. Vérifier que l'adresse existe et appartient à l'utilisateur
	addressUUID, err := gocql.ParseUUID(req.AddressID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID adresse invalide"})
		return
	}

	usersSession, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	userUUID, err := gocql.ParseUUID(userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur invalide"})
		return
	}

	var found gocql.UUID
	err = usersSession.Query(`SELECT address_id FROM addresses WHERE user_id = ? AND address_id = ?`,
		userUUID, addressUUID).Scan(&found)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Adresse introuvable ou non autorisée"})
		return
	}

	// ✅ 3. Revalider stock et prix pour chaque produit du panier
	productsSession, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	for i, item := range cart {
		productUUID, err := gocql.ParseUUID(item.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide: " + item.ProductID})
			return
		}

		var stock int
		var name string
		var price, discount float64
		err = productsSession.Query(`SELECT stock, name, price, discount FROM products WHERE product_id = ?`,
			productUUID).Scan(&stock, &name, &price, &discount)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable: " + item.ProductID})
			return
		}

		if stock < item.Quantity {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Stock insuffisant",
				"product":   name,
				"available": stock,
				"requested": item.Quantity,
			})
			return
		}

		// Rafraîchit l'instantané du panier avec les données actuelles
		cart[i].Name = name
		cart[i].Price = price
		cart[i].Discount = discount
	}

	// ✅ 4. Calculer le total (remises produit incluses)
	totalPrice := cart.Total()

	// ✅ 5. Valider et appliquer le code promo Stripe (si fourni)
	var discountAmount float64
	var couponCode string

	if req.CouponCode != "" {
		promo, discount, err := validatePromotionCode(req.CouponCode, totalPrice)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		discountAmount = discount
		couponCode = promo.Code
		log.Printf("✅ Code promo appliqué: %s (%.2f€ de réduction)", couponCode, discountAmount)
	}

	finalPrice := totalPrice - discountAmount
	if finalPrice < 0 {
		finalPrice = 0
	}

	// ✅ 6. Sérialiser le panier pour les metadata Stripe
	cartJSON, err := json.Marshal(cart)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur sérialisation panier"})
		return
	}

	metadata := map[string]string{
		"user_id":    userID,
		"email":      email,
		"address_id": req.AddressID,
		"cart":       string(cartJSON),
	}
	if couponCode != "" {
		metadata["coupon_code"] = couponCode
		metadata["discount_amount"] = strconv.FormatFloat(discountAmount, 'f', 2, 64)
	}

	// ✅ 7. Créer le PaymentIntent Stripe
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(finalPrice * 100)),
		Currency: stripe.String("eur"),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
		Metadata: metadata,
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		log.Printf("❌ Erreur Stripe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création paiement", "details": err.Error()})
		return
	}

	log.Printf("💳 Checkout créé: %s (%.2f€ → %.2f€) pour %s", intent.ID, totalPrice, finalPrice, email)

	c.JSON(http.StatusOK, gin.H{
		"client_secret":   intent.ClientSecret,
		"payment_id":      intent.ID,
		"amount":          finalPrice,
		"original_amount": totalPrice,
		"discount":        discountAmount,
		"currency":        "eur",
		"items_count":     len(cart),
	})
}

// ValidateCoupon vérifie un code promo sans créer de paiement.
//
// GET /api/checkout/coupon?code=...&cart_total=...
func ValidateCoupon(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code promo requis"})
		return
	}

	cartTotal, err := strconv.ParseFloat(c.DefaultQuery("cart_total", "0"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Montant du panier invalide"})
		return
	}

	promo, discount, err := validatePromotionCode(code, cartTotal)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"code":     promo.Code,
		"discount": discount,
	})
}

var (
	errInvalidCoupon = errors.New("Code promo invalide ou expiré")
	errCouponMinimum = errors.New("Montant minimum non atteint pour ce code promo")
)

// validatePromotionCode résout un code promo côté Stripe et calcule la
// réduction pour un total donné. Les coupons vivent chez Stripe, pas en base.
func validatePromotionCode(code string, cartTotal float64) (*stripe.PromotionCode, float64, error) {
	params := &stripe.PromotionCodeListParams{
		Code:   stripe.String(code),
		Active: stripe.Bool(true),
	}
	params.Limit = stripe.Int64(1)

	iter := promotioncode.List(params)
	if !iter.Next() {
		if err := iter.Err(); err != nil {
			log.Printf("❌ Erreur Stripe promotion codes: %v", err)
			return nil, 0, errInvalidCoupon
		}
		return nil, 0, errInvalidCoupon
	}

	promo := iter.PromotionCode()
	coupon, err := activeCoupon(promo)
	if err != nil {
		return nil, 0, err
	}

	if promo.Restrictions != nil && promo.Restrictions.MinimumAmount > 0 {
		if int64(cartTotal*100) < promo.Restrictions.MinimumAmount {
			return nil, 0, errCouponMinimum
		}
	}

	return promo, couponDiscount(coupon, cartTotal), nil
}

// activeCoupon extrait le coupon porté par un promotion code. Depuis la v83
// le coupon vit sous promo.Promotion, pas au premier niveau.
func activeCoupon(promo *stripe.PromotionCode) (*stripe.Coupon, error) {
	if promo == nil || promo.Promotion == nil || promo.Promotion.Coupon == nil {
		return nil, errInvalidCoupon
	}
	if !promo.Promotion.Coupon.Valid {
		return nil, errInvalidCoupon
	}
	return promo.Promotion.Coupon, nil
}

// couponDiscount calcule la réduction en euros d'un coupon (pourcentage ou
// montant fixe en centimes), plafonnée au total du panier.
func couponDiscount(coupon *stripe.Coupon, cartTotal float64) float64 {
	var discount float64
	if coupon.PercentOff > 0 {
		discount = cartTotal * coupon.PercentOff / 100
	} else {
		discount = float64(coupon.AmountOff) / 100
	}
	if discount > cartTotal {
		discount = cartTotal
	}
	return discount
}
