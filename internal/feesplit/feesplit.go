// Package feesplit divides settled amounts between the payee, a property's
// fee share, and the treasury. Splits are pure integer arithmetic and must
// conserve the input exactly.
package feesplit

import (
	"math"

	dErrors "bondly/pkg/domain-errors"
)

// BasisPointsDenominator is the fixed-point scale for fee and penalty rates.
const BasisPointsDenominator = 10000

// MaxAmount is the largest amount a split can take without the basis-point
// multiplication overflowing int64. Callers validate deposits against it at
// the boundary.
const MaxAmount = math.MaxInt64 / BasisPointsDenominator

// Shares is the three-way division of a settled amount. The shares always sum
// to the amount that was split.
type Shares struct {
	Payee    int64
	Property int64
	Treasury int64
}

// Total returns the sum of all shares.
func (s Shares) Total() int64 {
	return s.Payee + s.Property + s.Treasury
}

// Portion returns the floored rateBps share of amount. All rate arithmetic in
// the engine goes through here so the overflow bound is enforced in one place.
func Portion(amount int64, rateBps int) (int64, error) {
	if amount < 0 {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "amount must be non-negative, got %d", amount)
	}
	if amount > MaxAmount {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "amount %d exceeds the splittable maximum %d", amount, int64(MaxAmount))
	}
	if rateBps < 0 || rateBps > BasisPointsDenominator {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "rate must be within [0, %d] basis points, got %d", BasisPointsDenominator, rateBps)
	}
	return amount * int64(rateBps) / BasisPointsDenominator, nil
}

// Split divides an ordinary settlement. Payee and property shares are floored
// integer division; the remainder goes to the treasury so no unit is ever
// lost. The remainder is at most one unit per split.
func Split(amount int64, propertyFeeRateBps int) (Shares, error) {
	property, err := Portion(amount, propertyFeeRateBps)
	if err != nil {
		return Shares{}, err
	}
	payee, err := Portion(amount, BasisPointsDenominator-propertyFeeRateBps)
	if err != nil {
		return Shares{}, err
	}
	return Shares{
		Payee:    payee,
		Property: property,
		Treasury: amount - payee - property,
	}, nil
}

// PenaltySplit routes breach penalty proceeds. The entire penalty goes to the
// treasury; neither the payee nor the property keeps a share.
func PenaltySplit(amount int64) (Shares, error) {
	if amount < 0 {
		return Shares{}, dErrors.Newf(dErrors.CodeBadRequest, "penalty amount must be non-negative, got %d", amount)
	}
	return Shares{Treasury: amount}, nil
}
