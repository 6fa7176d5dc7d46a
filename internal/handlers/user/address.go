package user

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"vendora_back_end/internal/database"
	"vendora_back_end/internal/middleware"
	"vendora_back_end/internal/models"
)

//
// --- HANDLERS ADRESSES ---
// Table addresses partitionnée par user_id, address_id en clustering key :
// toutes les requêtes passent par le couple (user_id, address_id).
//

// 🟢 GET /api/addresses/mine
func ListMyAddresses(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non authentifié"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		log.Printf("❌ Erreur session ScyllaDB: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erreur connexion base de données"})
		return
	}

	results := []models.Address{}

	iter := session.Query(`SELECT address_id, street, postal_code, city, country, is_default, created_at
	                       FROM addresses WHERE user_id = ?`, userID).Iter()
	var (
		addressID                         gocql.UUID
		street, postalCode, city, country string
		isDefault                         bool
		createdAt                         *time.Time
	)
	for iter.Scan(&addressID, &street, &postalCode, &city, &country, &isDefault, &createdAt) {
		results = append(results, models.Address{
			ID:         addressID,
			UserID:     userID,
			Street:     street,
			PostalCode: postalCode,
			City:       city,
			Country:    country,
			IsDefault:  isDefault,
			CreatedAt:  createdAt,
		})
	}
	if err := iter.Close(); err != nil {
		log.Printf("⚠️ Erreur fermeture iter: %v", err)
	}

	c.JSON(http.StatusOK, results)
}

// 🟢 POST /api/addresses
func CreateAddress(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "non authentifié"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		log.Printf("❌ Erreur session ScyllaDB: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erreur connexion base de données"})
		return
	}

	var input models.Address
	if err := c.ShouldBindJSON(&input); err != nil {
		log.Println("❌ Erreur de binding JSON:", err)
		c.JSON(http.StatusBadRequest, gin.H{"message": "Données invalides"})
		return
	}

	if input.Street == "" || input.City == "" || input.Country == "" {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Rue, ville et pays sont requis"})
		return
	}

	now := time.Now()
	input.ID = gocql.TimeUUID()
	input.UserID = userID
	input.IsDefault = false
	input.CreatedAt = &now

	err = session.Query(`INSERT INTO addresses (user_id, address_id, street, postal_code, city, country, is_default, created_at)
	                     VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, input.ID, input.Street, input.PostalCode, input.City, input.Country, false, now).Exec()
	if err != nil {
		log.Printf("❌ Erreur insertion adresse: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Impossible d'ajouter l'adresse"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Adresse créée",
		"address": input,
	})
}

// 🟢 POST /api/addresses/:id/default
func MakeDefaultAddress(c *gin.Context) {
	idParam := c.Param("id")
	userID := c.GetString(middleware.CtxUserID)

	session, err := database.GetUsersSession()
	if err != nil {
		log.Printf("❌ Erreur session ScyllaDB: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erreur connexion base de données"})
		return
	}

	addressID, err := uuid.Parse(idParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID invalide"})
		return
	}
	addressUUID := gocql.UUID(addressID)

	// Vérifier que l'adresse appartient à l'utilisateur
	var exists gocql.UUID
	err = session.Query("SELECT address_id FROM addresses WHERE user_id = ? AND address_id = ?",
		userID, addressUUID).Scan(&exists)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Adresse non trouvée"})
		return
	}

	// Une seule adresse par défaut : on désactive les autres d'abord
	iter := session.Query("SELECT address_id FROM addresses WHERE user_id = ?", userID).Iter()
	var otherID gocql.UUID
	for iter.Scan(&otherID) {
		if otherID != addressUUID {
			session.Query("UPDATE addresses SET is_default = ? WHERE user_id = ? AND address_id = ?",
				false, userID, otherID).Exec()
		}
	}
	iter.Close()

	err = session.Query("UPDATE addresses SET is_default = ? WHERE user_id = ? AND address_id = ?",
		true, userID, addressUUID).Exec()
	if err != nil {
		log.Printf("❌ Erreur mise à jour adresse: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Impossible de définir par défaut"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Adresse mise par défaut", "id": idParam})
}

// 🟢 DELETE /api/addresses/:id
func DeleteAddress(c *gin.Context) {
	idParam := c.Param("id")
	userID := c.GetString(middleware.CtxUserID)

	session, err := database.GetUsersSession()
	if err != nil {
		log.Printf("❌ Erreur session ScyllaDB: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Erreur connexion base de données"})
		return
	}

	addressID, err := uuid.Parse(idParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "ID invalide"})
		return
	}
	addressUUID := gocql.UUID(addressID)

	var exists gocql.UUID
	err = session.Query("SELECT address_id FROM addresses WHERE user_id = ? AND address_id = ?",
		userID, addressUUID).Scan(&exists)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "Adresse non trouvée"})
		return
	}

	err = session.Query("DELETE FROM addresses WHERE user_id = ? AND address_id = ?",
		userID, addressUUID).Exec()
	if err != nil {
		log.Printf("❌ Erreur suppression adresse: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Suppression impossible"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Adresse supprimée"})
}
