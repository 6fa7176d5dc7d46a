package cartsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"vendora_back_end/internal/models"
)

// cartServer simule l'API panier : il applique la même sémantique
// upsert-incrément que le vrai serveur et peut être mis en échec.
type cartServer struct {
	mu    sync.Mutex
	cart  models.Cart
	fail  bool
	calls int
}

func (s *cartServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cart", func(w http.ResponseWriter, r *http.Request) {
		s.respond(w)
	})
	mux.HandleFunc("/api/cart/add", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls++
		if s.fail {
			s.mu.Unlock()
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var body struct {
			ProductID    string `json:"productId"`
			Quantity     int    `json:"quantity"`
			CollectionID string `json:"collectionId"`
			SellerID     string `json:"sellerId"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		// Même contrat que le vrai handler : quantité négative refusée,
		// quantité 0 = retrait idempotent via Upsert.
		if body.Quantity < 0 {
			s.mu.Unlock()
			http.Error(w, `{"error":"Quantité invalide"}`, http.StatusBadRequest)
			return
		}
		s.cart = s.cart.Upsert(models.CartItem{
			ProductID:    body.ProductID,
			Quantity:     body.Quantity,
			CollectionID: body.CollectionID,
			SellerID:     body.SellerID,
		})
		s.mu.Unlock()
		s.respond(w)
	})
	mux.HandleFunc("/api/cart/merge", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls++
		if s.fail {
			s.mu.Unlock()
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		var body struct {
			Items models.Cart `json:"items"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.cart = s.cart.Merge(body.Items)
		s.mu.Unlock()
		s.respond(w)
	})
	mux.HandleFunc("/api/cart/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls++
		if s.fail {
			s.mu.Unlock()
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		productID := r.URL.Path[len("/api/cart/"):]
		var body struct {
			Delta int `json:"delta"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.cart, _ = s.cart.ApplyDelta(productID, body.Delta)
		s.mu.Unlock()
		s.respond(w)
	})
	return mux
}

func (s *cartServer) respond(w http.ResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"items": s.cart,
		"total": s.cart.Total(),
		"count": len(s.cart),
	})
}

func newTestReconciler(t *testing.T, authed bool) (*Reconciler, *cartServer, *MemoryStore) {
	t.Helper()
	srv := &cartServer{}
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)

	store := NewMemoryStore()
	client := NewAPIClient(ts.URL, ts.Client())
	r := New(store, client)
	if authed {
		r.SetToken("jwt-test")
	}
	return r, srv, store
}

func item(id string, qty int) models.CartItem {
	return models.CartItem{ProductID: id, Name: "Produit " + id, Price: 10, Quantity: qty}
}

func quantityOf(t *testing.T, r *Reconciler, productID string) int {
	t.Helper()
	if it := r.Items().Find(productID); it != nil {
		return it.Quantity
	}
	return 0
}

func TestGuestMutationsStayLocal(t *testing.T) {
	r, srv, store := newTestReconciler(t, false)
	ctx := context.Background()

	if err := r.AddItem(ctx, item("p1", 2)); err != nil {
		t.Fatalf("ajout invité: %v", err)
	}
	if err := r.UpdateQuantity(ctx, "p1", 3); err != nil {
		t.Fatalf("delta invité: %v", err)
	}

	if got := quantityOf(t, r, "p1"); got != 5 {
		t.Fatalf("quantité locale = %d, attendu 5", got)
	}
	if srv.calls != 0 {
		t.Fatalf("un invité ne doit pas toucher le réseau, %d appels", srv.calls)
	}
	if _, ok := store.Get("cart"); !ok {
		t.Fatal("le panier invité doit être persisté")
	}
}

func TestGuestDeltaClampsToZero(t *testing.T) {
	r, _, _ := newTestReconciler(t, false)
	ctx := context.Background()

	_ = r.AddItem(ctx, item("p1", 2))
	if err := r.UpdateQuantity(ctx, "p1", -10); err != nil {
		t.Fatalf("delta négatif: %v", err)
	}

	if got := len(r.Items()); got != 0 {
		t.Fatalf("l'item doit être retiré à zéro, panier de taille %d", got)
	}
}

func TestAuthenticatedAddSyncsWithServer(t *testing.T) {
	r, srv, _ := newTestReconciler(t, true)
	ctx := context.Background()

	if err := r.AddItem(ctx, item("p1", 3)); err != nil {
		t.Fatalf("ajout connecté: %v", err)
	}

	srv.mu.Lock()
	remote := srv.cart.Find("p1")
	srv.mu.Unlock()
	if remote == nil || remote.Quantity != 3 {
		t.Fatalf("le serveur doit refléter l'ajout, item = %+v", remote)
	}
}

func TestFailedAddIsCompensated(t *testing.T) {
	r, srv, _ := newTestReconciler(t, true)
	ctx := context.Background()

	_ = r.AddItem(ctx, item("p1", 2))

	srv.mu.Lock()
	srv.fail = true
	srv.mu.Unlock()

	if err := r.AddItem(ctx, item("p1", 5)); err == nil {
		t.Fatal("l'échec serveur doit remonter")
	}

	// Le delta inverse ramène p1 à sa quantité d'avant mutation
	if got := quantityOf(t, r, "p1"); got != 2 {
		t.Fatalf("quantité après compensation = %d, attendu 2", got)
	}
}

func TestFailedUpdateRestoresOnlyTargetItem(t *testing.T) {
	r, srv, _ := newTestReconciler(t, true)
	ctx := context.Background()

	_ = r.AddItem(ctx, item("p1", 2))
	_ = r.AddItem(ctx, item("p2", 7))

	srv.mu.Lock()
	srv.fail = true
	srv.mu.Unlock()

	if err := r.UpdateQuantity(ctx, "p1", 4); err == nil {
		t.Fatal("l'échec serveur doit remonter")
	}

	if got := quantityOf(t, r, "p1"); got != 2 {
		t.Fatalf("p1 doit être restauré à 2, quantité = %d", got)
	}
	// La mutation indépendante sur p2 survit à la compensation de p1
	if got := quantityOf(t, r, "p2"); got != 7 {
		t.Fatalf("p2 ne doit pas être touché, quantité = %d", got)
	}
}

func TestAuthenticatedRemoveDeletesOnServer(t *testing.T) {
	r, srv, _ := newTestReconciler(t, true)
	ctx := context.Background()

	_ = r.AddItem(ctx, item("p1", 3))

	// Le retrait connecté passe par POST /add avec quantité 0 : le serveur
	// doit l'accepter et supprimer l'item, pas le refuser en 400.
	if err := r.RemoveItem(ctx, "p1"); err != nil {
		t.Fatalf("retrait connecté: %v", err)
	}

	if got := quantityOf(t, r, "p1"); got != 0 {
		t.Fatalf("l'item doit disparaître localement, quantité = %d", got)
	}
	srv.mu.Lock()
	remote := srv.cart.Find("p1")
	srv.mu.Unlock()
	if remote != nil {
		t.Fatalf("l'item doit disparaître côté serveur, item = %+v", remote)
	}
}

func TestFailedRemoveRestoresItem(t *testing.T) {
	r, srv, _ := newTestReconciler(t, true)
	ctx := context.Background()

	_ = r.AddItem(ctx, item("p1", 3))

	srv.mu.Lock()
	srv.fail = true
	srv.mu.Unlock()

	if err := r.RemoveItem(ctx, "p1"); err == nil {
		t.Fatal("l'échec serveur doit remonter")
	}
	if got := quantityOf(t, r, "p1"); got != 3 {
		t.Fatalf("p1 doit être restauré à 3, quantité = %d", got)
	}
}

func TestMergeEmptyLocalShortCircuitsToFetch(t *testing.T) {
	r, srv, _ := newTestReconciler(t, true)
	ctx := context.Background()

	srv.mu.Lock()
	srv.cart = models.Cart{item("p9", 4)}
	srv.mu.Unlock()

	merged, err := r.MergeWithBackend(ctx)
	if err != nil {
		t.Fatalf("merge panier vide: %v", err)
	}

	if len(merged) != 1 || merged[0].ProductID != "p9" {
		t.Fatalf("le panier serveur doit être adopté tel quel: %+v", merged)
	}
	// Aucun POST /merge ne doit partir pour un panier local vide
	if srv.calls != 0 {
		t.Fatalf("%d appels de mutation, attendu 0", srv.calls)
	}
}

func TestMergeSumsQuantities(t *testing.T) {
	r, srv, _ := newTestReconciler(t, false)
	ctx := context.Background()

	_ = r.AddItem(ctx, item("p1", 2))
	_ = r.AddItem(ctx, item("p2", 1))

	srv.mu.Lock()
	srv.cart = models.Cart{item("p1", 3)}
	srv.mu.Unlock()

	r.SetToken("jwt-test")
	merged, err := r.MergeWithBackend(ctx)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	if got := merged.Find("p1"); got == nil || got.Quantity != 5 {
		t.Fatalf("les quantités doivent se sommer, p1 = %+v", got)
	}
	if got := merged.Find("p2"); got == nil || got.Quantity != 1 {
		t.Fatalf("p2 doit survivre au merge, p2 = %+v", got)
	}
}

func TestStatePersistsAcrossInstances(t *testing.T) {
	srv := &cartServer{}
	ts := httptest.NewServer(srv.handler())
	t.Cleanup(ts.Close)

	store := NewMemoryStore()
	r1 := New(store, NewAPIClient(ts.URL, ts.Client()))
	_ = r1.AddItem(context.Background(), item("p1", 2))

	r2 := New(store, NewAPIClient(ts.URL, ts.Client()))
	if got := quantityOf(t, r2, "p1"); got != 2 {
		t.Fatalf("l'état doit être rechargé depuis le Store, quantité = %d", got)
	}
}
