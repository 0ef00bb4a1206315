// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package amount implements the 128-bit fixed-point unsigned integer
// used for balances and representative weights (spec §9: "Weights are
// fixed-point 128-bit integers; overflow is impossible within supply").
//
// No third-party library in the retrieval pack implements a 128-bit
// fixed-point amount type, so this is built on math/bits alone
// (DESIGN.md: collections/amount).
package amount

import "math/bits"

// Amount is an unsigned 128-bit integer stored as two 64-bit limbs,
// high then low.
type Amount struct {
	Hi, Lo uint64
}

// Zero is the additive identity.
var Zero = Amount{}

// FromUint64 lifts a uint64 into an Amount.
func FromUint64(v uint64) Amount {
	return Amount{Lo: v}
}

// Add returns a+b. The caller guarantees the sum fits within total
// supply (spec §9); this is not a saturating add.
func (a Amount) Add(b Amount) Amount {
	lo, carry := bits.Add64(a.Lo, b.Lo, 0)
	hi, _ := bits.Add64(a.Hi, b.Hi, carry)
	return Amount{Hi: hi, Lo: lo}
}

// SatSub returns a-b, clamped to zero on underflow. Per spec §9, this
// saturating form is used only at the final leader-minus-runner-up
// quorum check, never for intermediate tally accumulation.
func (a Amount) SatSub(b Amount) Amount {
	lo, borrow := bits.Sub64(a.Lo, b.Lo, 0)
	hi, borrow := bits.Sub64(a.Hi, b.Hi, borrow)
	if borrow != 0 {
		return Zero
	}
	return Amount{Hi: hi, Lo: lo}
}

// Cmp returns -1, 0, or 1 as a is less than, equal to, or greater than b.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a.Hi != b.Hi:
		if a.Hi < b.Hi {
			return -1
		}
		return 1
	case a.Lo != b.Lo:
		if a.Lo < b.Lo {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// GTE reports whether a >= b.
func (a Amount) GTE(b Amount) bool { return a.Cmp(b) >= 0 }

// GT reports whether a > b.
func (a Amount) GT(b Amount) bool { return a.Cmp(b) > 0 }

// IsZero reports whether a is zero.
func (a Amount) IsZero() bool { return a.Hi == 0 && a.Lo == 0 }

// MulFraction computes floor(a * num / den) for small integer
// fractions (e.g. the 67/100 quorum delta in online_delta()). Only
// the low limb is used as an intermediate; callers only ever pass
// amounts that fit well within a uint64 online-weight figure, which
// holds for every quantity online_delta operates on.
func (a Amount) MulFraction(num, den uint64) Amount {
	hi, lo := bits.Mul64(a.Lo, num)
	// a.Hi*num shifted in is out of realistic range for online weight
	// figures (total supply is representable in Lo alone for this
	// system); keep Hi contribution for completeness.
	hi += a.Hi * num
	q, _ := bits.Div64(hi%den, lo, den)
	// hi/den is the high limb of the quotient; for the weight
	// magnitudes this type is used for (online weight, never raw total
	// supply) it is always 0 in practice.
	return Amount{Hi: hi / den, Lo: q}
}

func (a Amount) String() string {
	if a.Hi == 0 {
		return uitoa(a.Lo)
	}
	// Rare path: only hit for amounts that don't fit in 64 bits, which
	// in this system never occurs for weights (online weight) but can
	// for raw balances. Fall back to a simple base-10 long division.
	return bigDecimal(a)
}

func uitoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func bigDecimal(a Amount) string {
	digits := make([]byte, 0, 40)
	for !a.IsZero() {
		hi, lo := a.Hi, a.Lo
		qhi := hi / 10
		qlo, r := bits.Div64(hi%10, lo, 10)
		a = Amount{Hi: qhi, Lo: qlo}
		digits = append(digits, byte('0'+r))
	}
	if len(digits) == 0 {
		return "0"
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
