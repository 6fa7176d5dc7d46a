package admin

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"vendora_back_end/internal/database"
	"vendora_back_end/internal/handlers/user"
	"vendora_back_end/internal/models"
)

//
// --- ADMINISTRATION COMMANDES ---
//

// UpdateOrderStatus fait avancer une commande dans son cycle de vie.
//
// PATCH /api/admin/orders/:id/status  {"status": "shipped"}
func UpdateOrderStatus(c *gin.Context) {
	var input struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	if !models.ValidOrderStatus(input.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Statut inconnu: " + input.Status})
		return
	}

	order, err := user.FetchOrder(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}

	// Une commande annulée ou livrée est terminale
	if order.Status == models.OrderStatusCancelled || order.Status == models.OrderStatusDelivered {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "La commande est dans un état terminal",
			"status": order.Status,
		})
		return
	}

	session, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	if err := session.Query(`UPDATE orders SET status = ? WHERE order_id = ?`,
		input.Status, order.ID).Exec(); err != nil {
		log.Printf("❌ Erreur mise à jour statut commande: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur mise à jour statut"})
		return
	}

	// L'index de listing garde un statut dénormalisé
	session.Query(`UPDATE orders_by_user SET status = ? WHERE user_id = ? AND created_at = ?`,
		input.Status, order.UserID, order.CreatedAt).Exec()

	log.Printf("📦 Commande %s: %s → %s", order.ID, order.Status, input.Status)
	c.JSON(http.StatusOK, gin.H{
		"message": "Statut mis à jour",
		"orderId": order.ID.String(),
		"status":  input.Status,
	})
}
