package user

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"vendora_back_end/internal/cache"
	"vendora_back_end/internal/database"
	"vendora_back_end/internal/services"
	"vendora_back_end/internal/utils"
)

// DeleteAccount supprime complètement un compte utilisateur et toutes ses données associées
func DeleteAccount(c *gin.Context) {
	userID, ok := c.Get("user_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur non authentifié"})
		return
	}

	var input struct {
		Password        string `json:"password"`        // Pour confirmer l'identité (auth locale)
		ConfirmDeletion bool   `json:"confirmDeletion"` // Confirmation explicite
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	if !input.ConfirmDeletion {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vous devez confirmer la suppression"})
		return
	}

	id := fmt.Sprintf("%v", userID)
	uid, err := uuid.Parse(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID utilisateur invalide"})
		return
	}
	userUUID := gocql.UUID(uid)

	// =============================================
	// 1. VÉRIFIER L'IDENTITÉ DE L'UTILISATEUR
	// =============================================

	usersSession, err := database.GetUsersSession()
	if err != nil {
		log.Printf("❌ Erreur session ScyllaDB users: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var (
		email, password, provider string
	)

	err = usersSession.Query(`SELECT email, password, provider FROM users WHERE user_id = ?`, userUUID).
		Scan(&email, &password, &provider)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Utilisateur introuvable"})
		return
	}

	// Vérifier le mot de passe pour les comptes locaux
	if provider == "local" {
		if input.Password == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Mot de passe requis pour confirmer la suppression"})
			return
		}
		valid, err := utils.VerifyPassword(input.Password, password)
		if err != nil || !valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Mot de passe incorrect"})
			return
		}
	}

	log.Printf("🗑️ Début de la suppression du compte: %s (%s)", email, id)

	// =============================================
	// 2. SUPPRIMER LES DONNÉES DANS REDIS (PANIER)
	// =============================================

	ctx := context.Background()
	cartKey := "cart:" + id

	err = database.Redis.Del(ctx, cartKey).Err()
	if err != nil {
		log.Printf("⚠️ Erreur suppression panier Redis: %v", err)
	} else {
		log.Printf("✅ Panier supprimé de Redis")
	}

	// Supprimer les sessions et tokens éventuels
	sessionKeys := []string{
		"session:" + id,
		"oauth_redirect:" + id,
		"reset_token:" + email,
	}
	for _, key := range sessionKeys {
		database.Redis.Del(ctx, key)
	}

	// =============================================
	// 3. SUPPRIMER LES ADRESSES (KEYSPACE USERS)
	// =============================================

	// La partition entière saute d'un coup (clé user_id)
	err = usersSession.Query(`DELETE FROM addresses WHERE user_id = ?`, id).Exec()
	if err != nil {
		log.Printf("⚠️ Erreur suppression adresses: %v", err)
	} else {
		log.Printf("✅ Adresses supprimées")
	}

	// =============================================
	// 4. SUPPRIMER LES COMMANDES (KEYSPACE ORDERS)
	// =============================================

	ordersSession, err := database.GetOrdersSession()
	if err != nil {
		log.Printf("⚠️ Erreur session ScyllaDB orders: %v", err)
	} else {
		// L'index orders_by_user donne les IDs des commandes principales
		iter := ordersSession.Query(`SELECT order_id FROM orders_by_user WHERE user_id = ?`, id).Iter()
		var orderID gocql.UUID
		orderCount := 0

		for iter.Scan(&orderID) {
			err = ordersSession.Query(`DELETE FROM orders WHERE order_id = ?`, orderID).Exec()
			if err != nil {
				log.Printf("⚠️ Erreur suppression commande %s: %v", orderID, err)
			} else {
				orderCount++
			}
		}
		iter.Close()

		err = ordersSession.Query(`DELETE FROM orders_by_user WHERE user_id = ?`, id).Exec()
		if err != nil {
			log.Printf("⚠️ Erreur suppression orders_by_user: %v", err)
		}
		log.Printf("✅ %d commande(s) supprimée(s)", orderCount)
	}

	// =============================================
	// 5. SUPPRIMER LA WISHLIST (KEYSPACE USERS)
	// =============================================

	err = usersSession.Query(`DELETE FROM wishlist WHERE user_id = ?`, id).Exec()
	if err != nil {
		log.Printf("⚠️ Erreur suppression wishlist: %v", err)
	} else {
		log.Printf("✅ Wishlist supprimée")
	}

	// Les produits d'un vendeur restent en ligne : la suppression du compte
	// vendeur passe par l'admin qui réassigne ou dépublie le catalogue d'abord.

	// =============================================
	// 6. SUPPRIMER LES IMAGES MINIO
	// =============================================

	// Supprimer les images de profil ou autres fichiers associés
	bucketName := services.BucketName()
	userPrefix := "users/" + id + "/"

	objectsCh := database.MinIO.ListObjects(ctx, bucketName, minio.ListObjectsOptions{
		Prefix:    userPrefix,
		Recursive: true,
	})

	imageCount := 0
	for object := range objectsCh {
		if object.Err != nil {
			log.Printf("⚠️ Erreur listage MinIO: %v", object.Err)
			continue
		}
		err = database.MinIO.RemoveObject(ctx, bucketName, object.Key, minio.RemoveObjectOptions{})
		if err != nil {
			log.Printf("⚠️ Erreur suppression image %s: %v", object.Key, err)
		} else {
			imageCount++
		}
	}
	log.Printf("✅ %d image(s) supprimée(s) de MinIO", imageCount)

	// =============================================
	// 7. SUPPRIMER L'UTILISATEUR (KEYSPACE USERS)
	// =============================================

	// Supprimer de users_by_email (index)
	err = usersSession.Query(`DELETE FROM users_by_email WHERE email = ?`, email).Exec()
	if err != nil {
		log.Printf("⚠️ Erreur suppression users_by_email: %v", err)
	} else {
		log.Printf("✅ Index users_by_email supprimé")
	}

	// Supprimer l'utilisateur principal
	err = usersSession.Query(`DELETE FROM users WHERE user_id = ?`, userUUID).Exec()
	if err != nil {
		log.Printf("❌ Erreur suppression utilisateur: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors de la suppression du compte"})
		return
	}

	// Invalider les caches résiduels
	cache.InvalidateUserCache(id)
	cache.InvalidateAuthCache(email)

	log.Printf("✅ Utilisateur %s (%s) complètement supprimé", email, id)

	c.JSON(http.StatusOK, gin.H{
		"message":    "Votre compte et toutes vos données ont été supprimés définitivement",
		"deleted_at": time.Now().Format(time.RFC3339),
	})
}
