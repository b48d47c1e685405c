package ocpcrypto

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/gtank/ristretto255"
)

// Scalar and Point wrap the ristretto255 prime-order group. Every value this
// package hands out or accepts is a canonical 32-byte encoding; there is no
// path for non-canonical or cofactor-ambiguous representations to leak into
// the dealer's ledger.

const ScalarBytes = 32

// Scalar is a ristretto255 scalar (canonical 32-byte little-endian encoding).
type Scalar struct {
	v ristretto255.Scalar
}

func ScalarZero() Scalar {
	return Scalar{}
}

func ScalarFromUint64(x uint64) Scalar {
	// ristretto255.Scalar expects canonical little-endian encoding.
	var b [32]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(x >> (8 * i))
	}
	var s Scalar
	_, err := s.v.SetCanonicalBytes(b[:])
	if err == nil {
		return s
	}
	// For x >= l (shouldn't happen for uint64), reduce via uniform bytes.
	var uni [64]byte
	copy(uni[:], b[:])
	s.v.FromUniformBytes(uni[:])
	return s
}

func ScalarFromBytesCanonical(b []byte) (Scalar, error) {
	if len(b) != ScalarBytes {
		return Scalar{}, fmt.Errorf("scalar: expected %d bytes", ScalarBytes)
	}
	var s Scalar
	if _, err := s.v.SetCanonicalBytes(b); err != nil {
		return Scalar{}, fmt.Errorf("scalar: non-canonical: %w", err)
	}
	return s, nil
}

func ScalarFromUniformBytes(b []byte) (Scalar, error) {
	if len(b) != 64 {
		return Scalar{}, fmt.Errorf("scalar: expected 64 uniform bytes")
	}
	var s Scalar
	s.v.FromUniformBytes(b)
	return s, nil
}

// ScalarFromHex decodes a "0x"-prefixed or bare hex string into a canonical
// scalar. Used by CLI/debug tooling that round-trips values through JSON.
func ScalarFromHex(s string) (Scalar, error) {
	b, err := hexDecode(s)
	if err != nil {
		return Scalar{}, fmt.Errorf("scalar: %w", err)
	}
	return ScalarFromBytesCanonical(b)
}

func (s Scalar) Bytes() []byte {
	return s.v.Bytes()
}

// Hex renders the scalar as a "0x"-prefixed lowercase hex string.
func (s Scalar) Hex() string {
	return hexEncode(s.Bytes())
}

func (s Scalar) IsZero() bool {
	var z ristretto255.Scalar
	return s.v.Equal(&z) == 1
}

func ScalarAdd(a, b Scalar) Scalar {
	var out Scalar
	out.v.Add(&a.v, &b.v)
	return out
}

func ScalarSub(a, b Scalar) Scalar {
	var out Scalar
	out.v.Subtract(&a.v, &b.v)
	return out
}

func ScalarMul(a, b Scalar) Scalar {
	var out Scalar
	out.v.Multiply(&a.v, &b.v)
	return out
}

func ScalarNeg(a Scalar) Scalar {
	var out Scalar
	out.v.Negate(&a.v)
	return out
}

func ScalarInv(a Scalar) (Scalar, error) {
	if a.IsZero() {
		return Scalar{}, fmt.Errorf("scalar: inverse of zero")
	}
	var out Scalar
	out.v.Invert(&a.v)
	return out, nil
}

const PointBytes = 32

// Point is a ristretto255 group element (canonical 32-byte encoding).
type Point struct {
	v ristretto255.Element
}

func PointZero() Point {
	var p Point
	p.v.Zero()
	return p
}

func PointBase() Point {
	var p Point
	p.v.Base()
	return p
}

func PointFromBytesCanonical(b []byte) (Point, error) {
	if len(b) != PointBytes {
		return Point{}, fmt.Errorf("point: expected %d bytes", PointBytes)
	}
	var p Point
	if _, err := p.v.SetCanonicalBytes(b); err != nil {
		return Point{}, fmt.Errorf("point: non-canonical: %w", err)
	}
	return p, nil
}

// PointFromHex decodes a "0x"-prefixed or bare hex string into a canonical
// group element. Used by CLI/debug tooling that round-trips values through
// JSON or log lines.
func PointFromHex(s string) (Point, error) {
	b, err := hexDecode(s)
	if err != nil {
		return Point{}, fmt.Errorf("point: %w", err)
	}
	return PointFromBytesCanonical(b)
}

func (p Point) Bytes() []byte {
	return p.v.Bytes()
}

// Hex renders the point as a "0x"-prefixed lowercase hex string.
func (p Point) Hex() string {
	return hexEncode(p.Bytes())
}

func PointEq(a, b Point) bool {
	return a.v.Equal(&b.v) == 1
}

func PointAdd(a, b Point) Point {
	var out Point
	out.v.Add(&a.v, &b.v)
	return out
}

func PointSub(a, b Point) Point {
	var out Point
	out.v.Subtract(&a.v, &b.v)
	return out
}

func MulBase(k Scalar) Point {
	var out Point
	out.v.ScalarBaseMult(&k.v)
	return out
}

func MulPoint(p Point, k Scalar) Point {
	var out Point
	out.v.ScalarMult(&k.v, &p.v)
	return out
}

func hexDecode(s string) ([]byte, error) {
	if s == "" {
		return nil, fmt.Errorf("hex: empty string")
	}
	ss := strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(ss)%2 != 0 {
		return nil, fmt.Errorf("hex: odd length")
	}
	b, err := hex.DecodeString(ss)
	if err != nil {
		return nil, fmt.Errorf("hex: %w", err)
	}
	return b, nil
}

func hexEncode(b []byte) string {
	return "0x" + strings.ToLower(hex.EncodeToString(b))
}

func u16le(x uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, x)
	return b
}

func u32le(x uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, x)
	return b
}

func u64le(x uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, x)
	return b
}

func concatBytes(chunks ...[]byte) []byte {
	var n int
	for _, c := range chunks {
		n += len(c)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}
