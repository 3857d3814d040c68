package services

import (
	"math"
	"strings"

	"github.com/automas/booking-engine/internal/models"
)

// InvalidCouponMessage is shown for unknown or empty coupon codes
const InvalidCouponMessage = "Cupón inválido o expirado"

type coupon struct {
	kind  models.CouponKind
	value int64
	label string
}

var coupons = map[string]coupon{
	"AUTOMAS10":  {kind: models.CouponPercentage, value: 10, label: "10% de descuento"},
	"PROMO20":    {kind: models.CouponPercentage, value: 20, label: "20% de descuento"},
	"BIENVENIDA": {kind: models.CouponFixed, value: 15000, label: "$15.000 de descuento"},
}

// ValidateCoupon applies a coupon code to a base amount
func ValidateCoupon(code string, base int64) models.CouponResult {
	if base < 0 {
		base = 0
	}
	code = strings.ToUpper(strings.TrimSpace(code))

	c, ok := coupons[code]
	if !ok {
		return models.CouponResult{
			Code:    code,
			Valid:   false,
			Total:   base,
			Message: InvalidCouponMessage,
		}
	}

	var discount int64
	switch c.kind {
	case models.CouponPercentage:
		discount = int64(math.Round(float64(base) * float64(c.value) / 100))
	case models.CouponFixed:
		discount = min(c.value, base)
	}

	return models.CouponResult{
		Code:     code,
		Valid:    true,
		Kind:     c.kind,
		Value:    c.value,
		Discount: discount,
		Total:    max(base-discount, 0),
		Message:  c.label + " aplicado",
	}
}
