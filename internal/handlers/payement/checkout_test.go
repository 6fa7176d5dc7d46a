package pa

import (
	"math"
	"testing"

	"github.com/stripe/stripe-go/v83"
)

func TestActiveCouponReadsPromotionCoupon(t *testing.T) {
	promo := &stripe.PromotionCode{
		Code: "NOEL20",
		Promotion: &stripe.PromotionCodePromotion{
			Coupon: &stripe.Coupon{Valid: true, PercentOff: 20},
		},
	}

	coupon, err := activeCoupon(promo)
	if err != nil {
		t.Fatalf("coupon valide rejeté: %v", err)
	}
	if coupon.PercentOff != 20 {
		t.Fatalf("PercentOff = %v, attendu 20", coupon.PercentOff)
	}
}

func TestActiveCouponRejectsMissingOrInvalid(t *testing.T) {
	cases := []struct {
		name  string
		promo *stripe.PromotionCode
	}{
		{"nil", nil},
		{"sans promotion", &stripe.PromotionCode{Code: "X"}},
		{"sans coupon", &stripe.PromotionCode{Promotion: &stripe.PromotionCodePromotion{}}},
		{"coupon invalide", &stripe.PromotionCode{
			Promotion: &stripe.PromotionCodePromotion{Coupon: &stripe.Coupon{Valid: false, PercentOff: 10}},
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := activeCoupon(tc.promo); err != errInvalidCoupon {
				t.Fatalf("erreur = %v, attendu errInvalidCoupon", err)
			}
		})
	}
}

func TestCouponDiscountPercentOff(t *testing.T) {
	coupon := &stripe.Coupon{Valid: true, PercentOff: 20}
	if got := couponDiscount(coupon, 150); math.Abs(got-30) > 1e-9 {
		t.Fatalf("réduction = %v, attendu 30", got)
	}
}

func TestCouponDiscountAmountOffInCents(t *testing.T) {
	coupon := &stripe.Coupon{Valid: true, AmountOff: 500}
	if got := couponDiscount(coupon, 40); math.Abs(got-5) > 1e-9 {
		t.Fatalf("réduction = %v, attendu 5", got)
	}
}

func TestCouponDiscountClampedToCartTotal(t *testing.T) {
	coupon := &stripe.Coupon{Valid: true, AmountOff: 10000}
	if got := couponDiscount(coupon, 25); got != 25 {
		t.Fatalf("réduction = %v, attendu le total du panier (25)", got)
	}
}
