package cartsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"vendora_back_end/internal/models"
)

// APIClient parle à l'API panier du serveur. Le token JWT est posé après le
// login via SetToken ; sans token, les appels partent sans Authorization et
// le serveur répondra 401.
type APIClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewAPIClient crée un client pour l'API panier.
func NewAPIClient(baseURL string, httpClient *http.Client) *APIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// SetToken installe le JWT utilisé pour les appels suivants.
func (c *APIClient) SetToken(token string) {
	c.token = token
}

// HasToken indique si le client est authentifié.
func (c *APIClient) HasToken() bool {
	return c.token != ""
}

// cartPayload est l'enveloppe {items, total, count} renvoyée par le serveur.
type cartPayload struct {
	Items models.Cart `json:"items"`
}

// FetchCart récupère le panier serveur complet.
func (c *APIClient) FetchCart(ctx context.Context) (models.Cart, error) {
	return c.do(ctx, http.MethodGet, "/api/cart", nil)
}

// AddItem ajoute un item (sémantique upsert-incrément du serveur). Une
// quantité 0 supprime l'item, de façon idempotente.
func (c *APIClient) AddItem(ctx context.Context, item models.CartItem) (models.Cart, error) {
	body := map[string]interface{}{
		"productId": item.ProductID,
		"quantity":  item.Quantity,
	}
	if item.CollectionID != "" {
		body["collectionId"] = item.CollectionID
		body["sellerId"] = item.SellerID
	}
	return c.do(ctx, http.MethodPost, "/api/cart/add", body)
}

// UpdateQuantity applique un delta signé sur un item du panier serveur.
func (c *APIClient) UpdateQuantity(ctx context.Context, productID string, delta int) (models.Cart, error) {
	return c.do(ctx, http.MethodPatch, "/api/cart/"+productID, map[string]interface{}{"delta": delta})
}

// Merge pousse le panier invité ; le serveur somme les quantités et renvoie
// le panier canonique.
func (c *APIClient) Merge(ctx context.Context, items models.Cart) (models.Cart, error) {
	return c.do(ctx, http.MethodPost, "/api/cart/merge", map[string]interface{}{"items": items})
}

func (c *APIClient) do(ctx context.Context, method, path string, body interface{}) (models.Cart, error) {
	var reader *bytes.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("sérialisation requête panier: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("création requête panier: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("appel API panier: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("appel API panier: statut inattendu %d", resp.StatusCode)
	}

	var payload cartPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("décodage réponse panier: %w", err)
	}
	return payload.Items, nil
}
