package user

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"vendora_back_end/internal/database"
	"vendora_back_end/internal/middleware"
	"vendora_back_end/internal/models"
	"vendora_back_end/internal/utils"
)

//
// --- HANDLERS COMMANDES ---
// Les commandes sont créées par le webhook Stripe, jamais par l'API directe.
// Ici on ne fait que de la lecture + les exports (facture PDF, QR SEPA).
//

// 🟢 GET /api/orders
func GetMyOrders(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	session, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	// L'index orders_by_user est trié par created_at DESC
	iter := session.Query(`SELECT order_id, created_at, total_price, status
	                       FROM orders_by_user WHERE user_id = ?`, userID).Iter()

	type orderSummary struct {
		ID         string    `json:"id"`
		CreatedAt  time.Time `json:"created_at"`
		TotalPrice float64   `json:"total_price"`
		Status     string    `json:"status"`
	}

	orders := []orderSummary{}
	var (
		orderID    gocql.UUID
		createdAt  time.Time
		totalPrice float64
		status     string
	)
	for iter.Scan(&orderID, &createdAt, &totalPrice, &status) {
		orders = append(orders, orderSummary{
			ID:         orderID.String(),
			CreatedAt:  createdAt,
			TotalPrice: totalPrice,
			Status:     status,
		})
	}
	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture commandes"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// 🟢 GET /api/orders/:id
func GetOrder(c *gin.Context) {
	order, ok := loadOwnedOrder(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, order)
}

// 📄 GET /api/orders/:id/invoice — facture PDF en pièce téléchargeable
func DownloadInvoice(c *gin.Context) {
	order, ok := loadOwnedOrder(c)
	if !ok {
		return
	}

	email := c.GetString(middleware.CtxEmail)
	pdf, err := utils.GenerateInvoicePDF(*order, email)
	if err != nil {
		log.Printf("❌ Erreur génération facture %s: %v", order.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération de la facture"})
		return
	}

	filename := fmt.Sprintf("facture_vendora_%s.pdf", order.ID)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// 🔳 GET /api/orders/:id/qr — QR SEPA (EPC) en PNG pour paiement par virement
func OrderQR(c *gin.Context) {
	order, ok := loadOwnedOrder(c)
	if !ok {
		return
	}

	iban := os.Getenv("COMPANY_IBAN")
	if iban == "" {
		iban = "BE12345678901234"
	}
	bic := os.Getenv("COMPANY_BIC")
	if bic == "" {
		bic = "KREDBEBB"
	}
	companyName := os.Getenv("COMPANY_NAME")
	if companyName == "" {
		companyName = "Vendora SRL"
	}

	sepa := fmt.Sprintf("BCD\n001\n1\nSCT\n%s\n%s\n%s\nEUR%.2f\n%s",
		bic, companyName, iban, order.TotalPrice, order.ID.String())

	png, err := qrcode.Encode(sepa, qrcode.Medium, 256)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur génération QR"})
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// loadOwnedOrder charge la commande du path param et vérifie que le caller en
// est le propriétaire (ou un admin). Répond lui-même en cas d'erreur.
func loadOwnedOrder(c *gin.Context) (*models.Order, bool) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return nil, false
	}

	order, err := FetchOrder(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return nil, false
	}

	if order.UserID != userID && middleware.RoleFromContext(c) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Accès refusé"})
		return nil, false
	}

	return order, true
}

// FetchOrder lit une commande complète, items désérialisés depuis le JSON
func FetchOrder(id string) (*models.Order, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	var (
		order     models.Order
		itemsJSON string
	)
	err = session.Query(`SELECT order_id, user_id, stripe_id, items, address_id, total_price, discount, status, created_at
	                     FROM orders WHERE order_id = ?`, gocql.UUID(parsed)).Scan(
		&order.ID, &order.UserID, &order.StripeID, &itemsJSON, &order.AddressID,
		&order.TotalPrice, &order.Discount, &order.Status, &order.CreatedAt)
	if err != nil {
		return nil, err
	}

	if itemsJSON != "" {
		if err := json.Unmarshal([]byte(itemsJSON), &order.Items); err != nil {
			return nil, err
		}
	}

	return &order, nil
}

// SaveOrder persiste une commande et son entrée d'index orders_by_user
func SaveOrder(order models.Order) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return err
	}

	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return err
	}

	if err := session.Query(`INSERT INTO orders (order_id, user_id, stripe_id, items, address_id, total_price, discount, status, created_at)
	                         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID, order.UserID, order.StripeID, string(itemsJSON), order.AddressID,
		order.TotalPrice, order.Discount, order.Status, order.CreatedAt).Exec(); err != nil {
		return err
	}

	return session.Query(`INSERT INTO orders_by_user (user_id, created_at, order_id, total_price, status)
	                      VALUES (?, ?, ?, ?, ?)`,
		order.UserID, order.CreatedAt, order.ID, order.TotalPrice, order.Status).Exec()
}
