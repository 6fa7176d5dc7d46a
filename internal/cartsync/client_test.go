package cartsync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gocql/gocql"

	"vendora_back_end/internal/models"
)

func TestClientSendsBearerToken(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"items": models.Cart{}})
	}))
	t.Cleanup(ts.Close)

	c := NewAPIClient(ts.URL, ts.Client())
	c.SetToken("abc123")

	if _, err := c.FetchCart(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if gotAuth != "Bearer abc123" {
		t.Fatalf("header Authorization = %q", gotAuth)
	}
}

func TestClientReportsServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "indisponible", http.StatusServiceUnavailable)
	}))
	t.Cleanup(ts.Close)

	c := NewAPIClient(ts.URL, ts.Client())
	if _, err := c.FetchCart(context.Background()); err == nil {
		t.Fatal("un statut 503 doit produire une erreur")
	}
}

func TestAddCollectionTagsItems(t *testing.T) {
	r, srv, _ := newTestReconciler(t, false)

	colID, _ := gocql.RandomUUID()
	sellerID, _ := gocql.RandomUUID()
	p1, _ := gocql.RandomUUID()
	p2, _ := gocql.RandomUUID()

	col := models.Collection{
		ID:       colID,
		SellerID: sellerID,
		Name:     "Pack rentrée",
		Products: []models.Product{
			{ID: p1, Name: "Cahier", Price: 4},
			{ID: p2, Name: "Stylo", Price: 2},
		},
	}

	if err := r.AddCollection(context.Background(), col, 2); err != nil {
		t.Fatalf("ajout collection: %v", err)
	}

	items := r.Items()
	if len(items) != 2 {
		t.Fatalf("panier de taille %d, attendu 2", len(items))
	}
	for _, it := range items {
		if it.CollectionID != colID.String() || it.SellerID != sellerID.String() {
			t.Fatalf("item non tagué collection: %+v", it)
		}
		if it.Quantity != 2 {
			t.Fatalf("quantité = %d, attendu 2", it.Quantity)
		}
	}
	if srv.calls != 0 {
		t.Fatalf("un invité ne doit pas toucher le réseau, %d appels", srv.calls)
	}
}

func TestAddCollectionFallsBackLocallyOnNetworkFailure(t *testing.T) {
	r, srv, _ := newTestReconciler(t, true)

	srv.mu.Lock()
	srv.fail = true
	srv.mu.Unlock()

	p1, _ := gocql.RandomUUID()
	col := models.Collection{
		ID:       gocql.TimeUUID(),
		SellerID: gocql.TimeUUID(),
		Products: []models.Product{{ID: p1, Name: "Cahier", Price: 4}},
	}

	if err := r.AddCollection(context.Background(), col, 1); err == nil {
		t.Fatal("l'échec réseau doit remonter")
	}

	// L'intention d'achat est conservée localement malgré l'échec serveur
	if got := quantityOf(t, r, p1.String()); got != 1 {
		t.Fatalf("mutation locale attendue, quantité = %d", got)
	}
}
