package pointcodec

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

// G1Point is the BN254.G1Point struct of the EigenDA contracts.
type G1Point struct {
	X *big.Int
	Y *big.Int
}

// G2Point is the BN254.G2Point struct of the EigenDA contracts. Each
// coordinate is stored as [c1, c0].
type G2Point struct {
	X [2]*big.Int
	Y [2]*big.Int
}

func G1ToContract(p *bn254.G1Affine) G1Point {
	return G1Point{
		X: p.X.BigInt(new(big.Int)),
		Y: p.Y.BigInt(new(big.Int)),
	}
}

// G1FromContract converts a contract point, rejecting points that are
// off-curve or outside the subgroup.
func G1FromContract(c G1Point) (bn254.G1Affine, error) {
	var p bn254.G1Affine
	if err := setCoordinate(&p.X, c.X); err != nil {
		return p, fmt.Errorf("g1 x: %w", err)
	}
	if err := setCoordinate(&p.Y, c.Y); err != nil {
		return p, fmt.Errorf("g1 y: %w", err)
	}
	if err := checkG1(&p); err != nil {
		return p, err
	}
	return p, nil
}

func G2ToContract(p *bn254.G2Affine) G2Point {
	return G2Point{
		X: [2]*big.Int{p.X.A1.BigInt(new(big.Int)), p.X.A0.BigInt(new(big.Int))},
		Y: [2]*big.Int{p.Y.A1.BigInt(new(big.Int)), p.Y.A0.BigInt(new(big.Int))},
	}
}

// G2FromContract converts a contract point, rejecting points that are
// off-curve or outside the subgroup.
func G2FromContract(c G2Point) (bn254.G2Affine, error) {
	var p bn254.G2Affine
	coords := []struct {
		dst  *fp.Element
		src  *big.Int
		name string
	}{
		{&p.X.A1, c.X[0], "x.c1"},
		{&p.X.A0, c.X[1], "x.c0"},
		{&p.Y.A1, c.Y[0], "y.c1"},
		{&p.Y.A0, c.Y[1], "y.c0"},
	}
	for _, co := range coords {
		if err := setCoordinate(co.dst, co.src); err != nil {
			return p, fmt.Errorf("g2 %s: %w", co.name, err)
		}
	}
	if err := checkG2(&p); err != nil {
		return p, err
	}
	return p, nil
}

// G1FromRaw builds a point from 32-byte big-endian x and y, as carried by
// legacy certificates.
func G1FromRaw(x, y []byte) (bn254.G1Affine, error) {
	if len(x) > fp.Bytes || len(y) > fp.Bytes {
		return bn254.G1Affine{}, fmt.Errorf("%w: raw coordinate longer than %d bytes", ErrInvalidLength, fp.Bytes)
	}
	return G1FromContract(G1Point{X: new(big.Int).SetBytes(x), Y: new(big.Int).SetBytes(y)})
}

func setCoordinate(dst *fp.Element, v *big.Int) error {
	if v == nil {
		dst.SetZero()
		return nil
	}
	if v.Sign() < 0 || v.Cmp(fp.Modulus()) >= 0 {
		return ErrInvalidCoordinate
	}
	dst.SetBigInt(v)
	return nil
}
