package ocpcrypto

import "fmt"

type ElGamalCiphertext struct {
	C1 Point
	C2 Point
}

// ElGamal in additive notation:
//   PK = Y = x*G
//   Enc(Y, M; r) = (r*G, M + r*Y)
func ElGamalEncrypt(pk Point, m Point, r Scalar) (ElGamalCiphertext, error) {
	if r.IsZero() {
		// Zero randomness is valid mathematically but leaks the plaintext.
		return ElGamalCiphertext{}, fmt.Errorf("elgamal: r must be non-zero")
	}
	c1 := MulBase(r)
	c2 := PointAdd(m, MulPoint(pk, r))
	return ElGamalCiphertext{C1: c1, C2: c2}, nil
}

// Dec(x, (c1,c2)) = c2 - x*c1
func ElGamalDecrypt(sk Scalar, ct ElGamalCiphertext) Point {
	return PointSub(ct.C2, MulPoint(ct.C1, sk))
}

// cardBase is the generator used to map card identifiers onto the group.
// Card 0 never maps to the identity element, which would be indistinguishable
// from an all-zero plaintext in downstream arithmetic.
var cardBase = PointBase()

// CardPoint maps a zero-based card identifier onto a group element suitable
// for ElGamal encryption: cardID 0 maps to 1*G, cardID 1 to 2*G, and so on.
// The deck size bounds cardID to [0, 52) in practice but the mapping itself
// is unbounded.
func CardPoint(cardID int) Point {
	return MulPoint(cardBase, ScalarFromUint64(uint64(cardID)+1))
}

// CardIDFromPoint inverts CardPoint by linear search over [0, deckSize).
// The deck is small enough (<=52) that this is cheaper than maintaining an
// index, and it gives a clear "not a valid card" error for points outside
// the expected range instead of a silent wraparound.
func CardIDFromPoint(p Point, deckSize int) (uint8, error) {
	for i := 0; i < deckSize; i++ {
		if PointEq(p, CardPoint(i)) {
			return uint8(i), nil
		}
	}
	return 0, fmt.Errorf("elgamal: point does not correspond to any card in [0,%d)", deckSize)
}
