package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"vendora_back_end/internal/database"
	"vendora_back_end/internal/middleware"
	"vendora_back_end/internal/models"
)

// setupCartRedis branche les globals Redis sur un serveur miniredis jetable.
func setupCartRedis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	database.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	database.RedisClient = database.Redis
}

func seedCart(t *testing.T, userID string, cart models.Cart) {
	t.Helper()
	data, err := json.Marshal(cart)
	if err != nil {
		t.Fatalf("sérialisation panier de test: %v", err)
	}
	if err := database.Redis.Set(context.Background(), cartKey(userID), data, CartTTL).Err(); err != nil {
		t.Fatalf("seed panier Redis: %v", err)
	}
}

func redisCart(t *testing.T, userID string) models.Cart {
	t.Helper()
	return loadCart(context.Background(), userID)
}

func postAddToCart(t *testing.T, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/cart/add", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.CtxUserID, userID)
	AddToCart(c)
	return w
}

func TestAddToCartRejectsNegativeQuantity(t *testing.T) {
	setupCartRedis(t)

	w := postAddToCart(t, "u1", `{"productId":"p1","quantity":-1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("statut = %d, attendu 400 pour une quantité négative", w.Code)
	}
}

func TestAddToCartZeroQuantityRemovesItem(t *testing.T) {
	setupCartRedis(t)
	seedCart(t, "u1", models.Cart{
		{ProductID: "p1", Name: "Produit p1", Price: 10, Quantity: 2},
		{ProductID: "p2", Name: "Produit p2", Price: 5, Quantity: 1},
	})

	// Contrat client : POST /add avec quantité 0 retire l'item, ce n'est
	// pas une erreur de validation.
	w := postAddToCart(t, "u1", `{"productId":"p1","quantity":0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("statut = %d (%s), attendu 200", w.Code, w.Body.String())
	}

	cart := redisCart(t, "u1")
	if cart.Find("p1") != nil {
		t.Fatal("p1 doit être retiré du panier Redis")
	}
	if it := cart.Find("p2"); it == nil || it.Quantity != 1 {
		t.Fatalf("p2 ne doit pas être touché, item = %+v", it)
	}
}

func TestAddToCartZeroQuantityOnMissingItemIsNoop(t *testing.T) {
	setupCartRedis(t)
	seedCart(t, "u1", models.Cart{
		{ProductID: "p2", Name: "Produit p2", Price: 5, Quantity: 3},
	})

	w := postAddToCart(t, "u1", `{"productId":"absent","quantity":0}`)
	if w.Code != http.StatusOK {
		t.Fatalf("statut = %d (%s), attendu 200 (retrait idempotent)", w.Code, w.Body.String())
	}

	cart := redisCart(t, "u1")
	if len(cart) != 1 || cart[0].ProductID != "p2" || cart[0].Quantity != 3 {
		t.Fatalf("le panier ne doit pas changer, panier = %+v", cart)
	}
}
