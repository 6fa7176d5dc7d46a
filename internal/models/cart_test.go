package models

import (
	"math"
	"testing"
)

func cartWith(items ...CartItem) Cart {
	return Cart(items)
}

func TestUpsertIncrementsExistingItem(t *testing.T) {
	c := cartWith(CartItem{ProductID: "p1", Name: "Cahier", Price: 4, Quantity: 2})

	c = c.Upsert(CartItem{ProductID: "p1", Quantity: 3})

	if len(c) != 1 {
		t.Fatalf("panier de taille %d, attendu 1", len(c))
	}
	if c[0].Quantity != 5 {
		t.Fatalf("quantité = %d, attendu 5", c[0].Quantity)
	}
}

func TestUpsertZeroOnMissingItemIsNoop(t *testing.T) {
	c := cartWith(CartItem{ProductID: "p1", Quantity: 1})

	c = c.Upsert(CartItem{ProductID: "absent", Quantity: 0})

	if len(c) != 1 || c[0].ProductID != "p1" {
		t.Fatalf("quantité 0 sur item absent doit être un no-op: %+v", c)
	}
}

func TestUpsertZeroRemovesExistingItem(t *testing.T) {
	c := cartWith(
		CartItem{ProductID: "p1", Quantity: 2},
		CartItem{ProductID: "p2", Quantity: 1},
	)

	c = c.Upsert(CartItem{ProductID: "p1", Quantity: 0})

	if len(c) != 1 || c[0].ProductID != "p2" {
		t.Fatalf("p1 doit être retiré: %+v", c)
	}
}

func TestUpsertRefreshesSnapshot(t *testing.T) {
	c := cartWith(CartItem{ProductID: "p1", Name: "Ancien nom", Price: 10, Quantity: 1})

	c = c.Upsert(CartItem{ProductID: "p1", Name: "Nouveau nom", Price: 12, Quantity: 1})

	if c[0].Name != "Nouveau nom" || c[0].Price != 12 {
		t.Fatalf("l'instantané doit être rafraîchi: %+v", c[0])
	}
}

func TestUpsertNegativeOnMissingItemIsNoop(t *testing.T) {
	c := Cart{}

	c = c.Upsert(CartItem{ProductID: "p1", Quantity: -2})

	if len(c) != 0 {
		t.Fatalf("décrément d'un item absent doit être un no-op: %+v", c)
	}
}

func TestApplyDeltaClampsRemoval(t *testing.T) {
	c := cartWith(CartItem{ProductID: "p1", Quantity: 2})

	c, found := c.ApplyDelta("p1", -10)

	if !found {
		t.Fatal("l'item existait, found doit être vrai")
	}
	if len(c) != 0 {
		t.Fatalf("une quantité ≤ 0 ne doit jamais être stockée: %+v", c)
	}
}

func TestApplyDeltaOnMissingItem(t *testing.T) {
	c := Cart{}

	c, found := c.ApplyDelta("p1", 3)

	if found {
		t.Fatal("l'item n'existait pas, found doit être faux")
	}
	if len(c) != 0 {
		t.Fatalf("un delta sur item absent ne crée rien: %+v", c)
	}
}

func TestMergeSumsQuantitiesAndSkipsInvalid(t *testing.T) {
	server := cartWith(
		CartItem{ProductID: "p1", Quantity: 3},
		CartItem{ProductID: "p2", Quantity: 1},
	)
	guest := cartWith(
		CartItem{ProductID: "p1", Quantity: 2},
		CartItem{ProductID: "p3", Quantity: 4},
		CartItem{ProductID: "junk", Quantity: 0},
	)

	merged := server.Merge(guest)

	if got := merged.Find("p1"); got == nil || got.Quantity != 5 {
		t.Fatalf("p1 doit sommer à 5: %+v", got)
	}
	if got := merged.Find("p2"); got == nil || got.Quantity != 1 {
		t.Fatalf("p2 doit survivre: %+v", got)
	}
	if got := merged.Find("p3"); got == nil || got.Quantity != 4 {
		t.Fatalf("p3 doit être ajouté: %+v", got)
	}
	if merged.Find("junk") != nil {
		t.Fatal("une quantité 0 côté invité ne doit pas être fusionnée")
	}
}

func TestTotalAppliesPercentageDiscount(t *testing.T) {
	c := cartWith(
		CartItem{ProductID: "p1", Price: 100, Discount: 20, Quantity: 1},
		CartItem{ProductID: "p2", Price: 10, Quantity: 3},
	)

	// 100 * 0.8 + 10 * 3 = 110
	if got := c.Total(); math.Abs(got-110) > 1e-9 {
		t.Fatalf("total = %.2f, attendu 110.00", got)
	}
}
