package kzg

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	gnarkkzg "github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/ethereum/go-ethereum/crypto"

	"eigenda-sidecar/internal/pointcodec"
)

var ErrSRSTooSmall = errors.New("srs too small for blob")

// SRS holds the monomial powers of tau in G1 and [1]₂, [τ]₂ in G2.
type SRS struct {
	G1 []bn254.G1Affine
	G2 [2]bn254.G2Affine

	vkOnce sync.Once
	vk     gnarkkzg.VerifyingKey
}

// VerifyingKey returns the opening verification key with precomputed
// pairing lines. G2 must not change after the first call.
func (s *SRS) VerifyingKey() gnarkkzg.VerifyingKey {
	s.vkOnce.Do(func() {
		s.vk.G1 = s.G1[0]
		s.vk.G2 = s.G2
		s.vk.Lines[0] = bn254.PrecomputeLines(s.G2[0])
		s.vk.Lines[1] = bn254.PrecomputeLines(s.G2[1])
	})
	return s.vk
}

// LoadSRS reads numPoints compressed G1 points from g1Path and the first two
// compressed G2 points from g2Path, in the layout of EigenDA's g1.point and
// g2.point resource files.
func LoadSRS(g1Path, g2Path string, numPoints uint64) (*SRS, error) {
	if numPoints < 2 {
		return nil, fmt.Errorf("srs needs at least 2 points, got %d", numPoints)
	}
	g1Raw, err := readPrefix(g1Path, numPoints*pointcodec.G1Size)
	if err != nil {
		return nil, fmt.Errorf("read g1 points: %w", err)
	}
	g2Raw, err := readPrefix(g2Path, 2*pointcodec.G2Size)
	if err != nil {
		return nil, fmt.Errorf("read g2 points: %w", err)
	}

	srs := &SRS{G1: make([]bn254.G1Affine, numPoints)}
	for i := uint64(0); i < numPoints; i++ {
		p, err := pointcodec.DecodeG1(g1Raw[i*pointcodec.G1Size : (i+1)*pointcodec.G1Size])
		if err != nil {
			return nil, fmt.Errorf("g1 point %d: %w", i, err)
		}
		srs.G1[i] = p
	}
	for i := 0; i < 2; i++ {
		p, err := pointcodec.DecodeG2(g2Raw[i*pointcodec.G2Size : (i+1)*pointcodec.G2Size])
		if err != nil {
			return nil, fmt.Errorf("g2 point %d: %w", i, err)
		}
		srs.G2[i] = p
	}
	return srs, nil
}

// NewInsecureSRS derives an SRS of n points from a known tau. It is only
// meant for tests and local development.
func NewInsecureSRS(n uint64, tau *big.Int) *SRS {
	_, _, g1, g2 := bn254.Generators()
	var t, acc fr.Element
	t.SetBigInt(tau)
	acc.SetOne()

	srs := &SRS{G1: make([]bn254.G1Affine, n)}
	for i := uint64(0); i < n; i++ {
		srs.G1[i].ScalarMultiplication(&g1, acc.BigInt(new(big.Int)))
		acc.Mul(&acc, &t)
	}
	srs.G2[0] = g2
	srs.G2[1].ScalarMultiplication(&g2, t.BigInt(new(big.Int)))
	return srs
}

// Fingerprint identifies the SRS for cache keys.
func (s *SRS) Fingerprint() []byte {
	var parts [][]byte
	for i := 0; i < 2 && i < len(s.G1); i++ {
		b := pointcodec.EncodeG1(&s.G1[i])
		parts = append(parts, b[:])
	}
	b := pointcodec.EncodeG2(&s.G2[1])
	parts = append(parts, b[:])
	return crypto.Keccak256(parts...)[:8]
}

func readPrefix(path string, n uint64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, n)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, fmt.Errorf("%s: want %d bytes: %w", path, n, err)
	}
	return buf, nil
}
