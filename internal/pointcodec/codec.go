// Package pointcodec encodes BN254 G1 and G2 points in the compressed form
// used by EigenDA certificates and its on-chain verifier.
//
// The two most significant bits of the first byte carry a flag:
//
//	01 infinity (all other bits zero)
//	10 y is the lexicographically smallest root
//	11 y is the lexicographically largest root
//
// G1 points are 32 bytes (x), G2 points are 64 bytes (x.c1 || x.c0).
package pointcodec

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

const (
	G1Size = fp.Bytes
	G2Size = 2 * fp.Bytes

	FlagMask     byte = 0b11 << 6
	FlagInfinity byte = 0b01 << 6
	FlagSmallest byte = 0b10 << 6
	FlagLargest  byte = 0b11 << 6
)

var (
	ErrInvalidLength     = errors.New("invalid point encoding length")
	ErrInvalidFlag       = errors.New("invalid compression flag")
	ErrInvalidInfinity   = errors.New("infinity flag with non-zero body")
	ErrInvalidCoordinate = errors.New("coordinate is not a canonical field element")
	ErrNoSquareRoot      = errors.New("x has no square root on the curve")
	ErrNotOnCurve        = errors.New("point is not on curve")
	ErrNotInSubgroup     = errors.New("point is not in the prime-order subgroup")
)

// g1B is the G1 curve coefficient: y² = x³ + 3.
var g1B = fp.NewElement(3)

// twistB is the twist coefficient b' = 3/(9+u), recovered from the G2
// generator as y² - x³.
var twistB = func() bn254.G2Affine {
	_, _, _, g := bn254.Generators()
	var p bn254.G2Affine
	p.X.Square(&g.X).Mul(&p.X, &g.X)
	p.Y.Square(&g.Y).Sub(&p.Y, &p.X)
	return bn254.G2Affine{X: p.Y}
}().X

// EncodeG1 returns the 32-byte compressed encoding of p.
func EncodeG1(p *bn254.G1Affine) [G1Size]byte {
	var out [G1Size]byte
	if p.IsInfinity() {
		out[0] = FlagInfinity
		return out
	}
	out = p.X.Bytes()
	if p.Y.LexicographicallyLargest() {
		out[0] |= FlagLargest
	} else {
		out[0] |= FlagSmallest
	}
	return out
}

// DecodeG1 parses a 32-byte compressed G1 point and checks curve and
// subgroup membership.
func DecodeG1(buf []byte) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if len(buf) != G1Size {
		return p, fmt.Errorf("%w: g1 wants %d bytes, got %d", ErrInvalidLength, G1Size, len(buf))
	}

	flag := buf[0] & FlagMask
	var body [G1Size]byte
	copy(body[:], buf)
	body[0] &^= FlagMask

	switch flag {
	case FlagInfinity:
		if !isZero(body[:]) {
			return p, ErrInvalidInfinity
		}
		return p, nil
	case FlagSmallest, FlagLargest:
	default:
		return p, fmt.Errorf("%w: %#02x", ErrInvalidFlag, flag)
	}

	if err := p.X.SetBytesCanonical(body[:]); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidCoordinate, err)
	}

	var rhs fp.Element
	rhs.Square(&p.X).Mul(&rhs, &p.X).Add(&rhs, &g1B)
	if p.Y.Sqrt(&rhs) == nil {
		return p, ErrNoSquareRoot
	}
	if p.Y.LexicographicallyLargest() != (flag == FlagLargest) {
		p.Y.Neg(&p.Y)
	}

	if err := checkG1(&p); err != nil {
		return p, err
	}
	return p, nil
}

// EncodeG2 returns the 64-byte compressed encoding of p. The order of y
// is decided on the c1 component and falls back to c0 when c1 is zero.
func EncodeG2(p *bn254.G2Affine) [G2Size]byte {
	var out [G2Size]byte
	if p.IsInfinity() {
		out[0] = FlagInfinity
		return out
	}
	c1 := p.X.A1.Bytes()
	c0 := p.X.A0.Bytes()
	copy(out[:fp.Bytes], c1[:])
	copy(out[fp.Bytes:], c0[:])
	if p.Y.LexicographicallyLargest() {
		out[0] |= FlagLargest
	} else {
		out[0] |= FlagSmallest
	}
	return out
}

// DecodeG2 parses a 64-byte compressed G2 point and checks curve and
// subgroup membership.
func DecodeG2(buf []byte) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	if len(buf) != G2Size {
		return p, fmt.Errorf("%w: g2 wants %d bytes, got %d", ErrInvalidLength, G2Size, len(buf))
	}

	flag := buf[0] & FlagMask
	var body [G2Size]byte
	copy(body[:], buf)
	body[0] &^= FlagMask

	switch flag {
	case FlagInfinity:
		if !isZero(body[:]) {
			return p, ErrInvalidInfinity
		}
		return p, nil
	case FlagSmallest, FlagLargest:
	default:
		return p, fmt.Errorf("%w: %#02x", ErrInvalidFlag, flag)
	}

	if err := p.X.A1.SetBytesCanonical(body[:fp.Bytes]); err != nil {
		return p, fmt.Errorf("%w: x.c1: %v", ErrInvalidCoordinate, err)
	}
	if err := p.X.A0.SetBytesCanonical(body[fp.Bytes:]); err != nil {
		return p, fmt.Errorf("%w: x.c0: %v", ErrInvalidCoordinate, err)
	}

	rhs := p.X
	rhs.Square(&p.X).Mul(&rhs, &p.X).Add(&rhs, &twistB)
	if rhs.Legendre() == -1 {
		return p, ErrNoSquareRoot
	}
	p.Y.Sqrt(&rhs)
	if p.Y.LexicographicallyLargest() != (flag == FlagLargest) {
		p.Y.Neg(&p.Y)
	}

	if err := checkG2(&p); err != nil {
		return p, err
	}
	return p, nil
}

func checkG1(p *bn254.G1Affine) error {
	if !p.IsOnCurve() {
		return ErrNotOnCurve
	}
	if !p.IsInSubGroup() {
		return ErrNotInSubgroup
	}
	return nil
}

func checkG2(p *bn254.G2Affine) error {
	if !p.IsOnCurve() {
		return ErrNotOnCurve
	}
	if !p.IsInSubGroup() {
		return ErrNotInSubgroup
	}
	return nil
}

func isZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
