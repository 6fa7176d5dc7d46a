package models

// CartItem est un instantané produit figé au moment de l'ajout au panier.
// Le prix et le nom ne sont re-validés qu'au checkout.
type CartItem struct {
	ProductID    string  `json:"productId"`
	Name         string  `json:"name"`
	Price        float64 `json:"price"`
	Discount     float64 `json:"discount,omitempty"`
	Quantity     int     `json:"quantity"`
	ImageURL     string  `json:"imageUrl,omitempty"`
	Slug         string  `json:"slug,omitempty"`
	CollectionID string  `json:"collectionId,omitempty"`
	SellerID     string  `json:"sellerId,omitempty"`
}

// Cart est la liste ordonnée des items (ordre = insertion). Les mutations
// passent toutes par Upsert/ApplyDelta/Remove pour garantir qu'aucune
// quantité ≤ 0 n'est jamais stockée.
type Cart []CartItem

// Upsert applique la sémantique add-to-cart du serveur :
//   - quantité > 0 : incrémente l'item existant ou l'ajoute en fin de liste
//   - quantité = 0 : supprime l'item s'il existe, no-op sinon (idempotent)
//
// Retourne le panier mis à jour.
func (c Cart) Upsert(item CartItem) Cart {
	if item.Quantity == 0 {
		return c.Remove(item.ProductID)
	}

	for i := range c {
		if c[i].ProductID == item.ProductID {
			newQty := c[i].Quantity + item.Quantity
			if newQty <= 0 {
				return c.Remove(item.ProductID)
			}
			c[i].Quantity = newQty
			// Rafraîchit l'instantané avec les infos les plus récentes
			if item.Name != "" {
				c[i].Name = item.Name
				c[i].Price = item.Price
				c[i].Discount = item.Discount
			}
			if item.ImageURL != "" {
				c[i].ImageURL = item.ImageURL
			}
			if item.CollectionID != "" {
				c[i].CollectionID = item.CollectionID
				c[i].SellerID = item.SellerID
			}
			return c
		}
	}

	if item.Quantity < 0 {
		// Décrément d'un item absent : rien à faire
		return c
	}
	return append(c, item)
}

// ApplyDelta ajoute un delta signé à la quantité d'un item. Si la quantité
// résultante tombe à 0 ou moins, l'item est supprimé — jamais stocké ≤ 0.
// Le booléen indique si l'item existait.
func (c Cart) ApplyDelta(productID string, delta int) (Cart, bool) {
	for i := range c {
		if c[i].ProductID == productID {
			newQty := c[i].Quantity + delta
			if newQty <= 0 {
				return c.Remove(productID), true
			}
			c[i].Quantity = newQty
			return c, true
		}
	}
	return c, false
}

// Remove filtre un item du panier. No-op si absent.
func (c Cart) Remove(productID string) Cart {
	out := make(Cart, 0, len(c))
	for _, item := range c {
		if item.ProductID != productID {
			out = append(out, item)
		}
	}
	return out
}

// Merge fusionne un panier invité dans le panier courant. Politique de
// conflit : les quantités des items présents des deux côtés s'additionnent
// (même primitive upsert-incrément que l'ajout normal).
func (c Cart) Merge(other Cart) Cart {
	merged := c
	for _, item := range other {
		if item.Quantity <= 0 {
			continue
		}
		merged = merged.Upsert(item)
	}
	return merged
}

// Find retourne l'item correspondant, ou nil.
func (c Cart) Find(productID string) *CartItem {
	for i := range c {
		if c[i].ProductID == productID {
			return &c[i]
		}
	}
	return nil
}

// Total calcule le montant du panier, remises incluses.
func (c Cart) Total() float64 {
	total := 0.0
	for _, item := range c {
		price := item.Price
		if item.Discount > 0 {
			price = price * (1 - item.Discount/100)
		}
		total += price * float64(item.Quantity)
	}
	return total
}
