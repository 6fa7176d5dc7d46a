package cartsync

import (
	"context"
	"encoding/json"
	"sync"

	"vendora_back_end/internal/models"
)

// Reconciler maintient l'état local du panier et le synchronise avec le
// serveur quand un utilisateur est connecté. Chaque mutation optimiste
// enregistre de quoi se compenser elle-même : en cas d'échec réseau, seul
// l'item concerné est restauré, les autres modifications en vol survivent.
type Reconciler struct {
	mu     sync.Mutex
	store  Store
	client *APIClient
	items  models.Cart
}

// New construit un Reconciler et recharge l'état persisté.
func New(store Store, client *APIClient) *Reconciler {
	r := &Reconciler{store: store, client: client}
	if raw, ok := store.Get(cartStorageKey); ok {
		var items models.Cart
		if json.Unmarshal(raw, &items) == nil {
			r.items = items
		}
	}
	return r
}

// SetToken installe le JWT : le Reconciler passe en mode authentifié.
func (r *Reconciler) SetToken(token string) {
	r.client.SetToken(token)
}

// Items renvoie une copie de l'état local courant.
func (r *Reconciler) Items() models.Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(models.Cart, len(r.items))
	copy(out, r.items)
	return out
}

// Total renvoie le montant du panier local.
func (r *Reconciler) Total() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items.Total()
}

// persist écrit l'état courant dans le Store. Appelé sous verrou.
func (r *Reconciler) persist() {
	if len(r.items) == 0 {
		r.store.Clear(cartStorageKey)
		return
	}
	if raw, err := json.Marshal(r.items); err == nil {
		r.store.Set(cartStorageKey, raw)
	}
}

// Fetch rafraîchit l'état depuis le serveur. Invité : l'état local reste la
// vérité, aucun appel réseau. En cas d'échec, l'état périmé est conservé.
func (r *Reconciler) Fetch(ctx context.Context) (models.Cart, error) {
	if !r.client.HasToken() {
		return r.Items(), nil
	}

	remote, err := r.client.FetchCart(ctx)
	if err != nil {
		return r.Items(), err
	}

	r.mu.Lock()
	r.items = remote
	r.persist()
	r.mu.Unlock()
	return r.Items(), nil
}

// AddItem ajoute un item en optimiste. En cas d'échec serveur, le delta
// inverse est appliqué localement.
func (r *Reconciler) AddItem(ctx context.Context, item models.CartItem) error {
	if item.Quantity <= 0 {
		return r.RemoveItem(ctx, item.ProductID)
	}

	r.mu.Lock()
	r.items = r.items.Upsert(item)
	r.persist()
	r.mu.Unlock()

	if !r.client.HasToken() {
		return nil
	}

	if _, err := r.client.AddItem(ctx, item); err != nil {
		// Compensation : on retire exactement la quantité ajoutée
		r.mu.Lock()
		r.items, _ = r.items.ApplyDelta(item.ProductID, -item.Quantity)
		r.persist()
		r.mu.Unlock()
		return err
	}
	return nil
}

// UpdateQuantity applique un delta signé. Pour un invité, la quantité est
// bornée à max(0, q+delta) et l'item retiré à zéro. En mode connecté, un
// échec restaure l'item tel qu'il était avant la mutation.
func (r *Reconciler) UpdateQuantity(ctx context.Context, productID string, delta int) error {
	r.mu.Lock()
	prev, existed := r.snapshot(productID)
	items, found := r.items.ApplyDelta(productID, delta)
	r.items = items
	r.persist()
	r.mu.Unlock()

	if !found && !existed {
		return nil
	}
	if !r.client.HasToken() {
		return nil
	}

	if _, err := r.client.UpdateQuantity(ctx, productID, delta); err != nil {
		r.restore(prev, existed, productID)
		return err
	}
	return nil
}

// RemoveItem supprime un item. Le chemin authentifié poste une quantité 0,
// idempotente côté serveur.
func (r *Reconciler) RemoveItem(ctx context.Context, productID string) error {
	r.mu.Lock()
	prev, existed := r.snapshot(productID)
	r.items = r.items.Remove(productID)
	r.persist()
	r.mu.Unlock()

	if !r.client.HasToken() {
		return nil
	}

	zero := models.CartItem{ProductID: productID, Quantity: 0}
	if _, err := r.client.AddItem(ctx, zero); err != nil {
		r.restore(prev, existed, productID)
		return err
	}
	return nil
}

// MergeWithBackend fusionne le panier invité dans le panier serveur au
// moment du login. Un panier local vide court-circuite vers un simple Fetch.
// Le résultat serveur est canonique et remplace l'état local en bloc.
func (r *Reconciler) MergeWithBackend(ctx context.Context) (models.Cart, error) {
	if !r.client.HasToken() {
		return r.Items(), nil
	}

	local := r.Items()
	if len(local) == 0 {
		return r.Fetch(ctx)
	}

	merged, err := r.client.Merge(ctx, local)
	if err != nil {
		return r.Items(), err
	}

	r.mu.Lock()
	r.items = merged
	r.persist()
	r.mu.Unlock()
	return r.Items(), nil
}

// AddCollection déplie une collection en ajouts produit par produit, chacun
// tagué collectionId/sellerId. Si le serveur est injoignable, on retombe sur
// une mutation purement locale pour ne pas perdre l'intention d'achat.
func (r *Reconciler) AddCollection(ctx context.Context, collection models.Collection, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}

	var firstErr error
	for _, p := range collection.Products {
		item := models.CartItem{
			ProductID:    p.ID.String(),
			Name:         p.Name,
			Price:        p.Price,
			Discount:     p.Discount,
			Quantity:     quantity,
			Slug:         p.Slug,
			CollectionID: collection.ID.String(),
			SellerID:     collection.SellerID.String(),
		}
		if len(p.ImageURLs) > 0 {
			item.ImageURL = p.ImageURLs[0]
		}

		if err := r.AddItem(ctx, item); err != nil {
			// Mode dégradé : l'ajout serveur a été compensé, on garde au
			// moins la mutation locale
			r.mu.Lock()
			r.items = r.items.Upsert(item)
			r.persist()
			r.mu.Unlock()
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// snapshot capture l'item avant mutation. Appelé sous verrou.
func (r *Reconciler) snapshot(productID string) (models.CartItem, bool) {
	if it := r.items.Find(productID); it != nil {
		return *it, true
	}
	return models.CartItem{}, false
}

// restore ramène un seul item à son état d'avant mutation, sans toucher au
// reste du panier.
func (r *Reconciler) restore(prev models.CartItem, existed bool, productID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = r.items.Remove(productID)
	if existed {
		r.items = r.items.Upsert(prev)
	}
	r.persist()
}
