package kzg

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	gnarkkzg "github.com/consensys/gnark-crypto/ecc/bn254/kzg"
)

// lagrangeBasis turns monomial SRS points into commitments to the Lagrange
// polynomials of the size-len(monomial) domain, in natural order.
func lagrangeBasis(monomial []bn254.G1Affine) ([]bn254.G1Affine, error) {
	basis, err := gnarkkzg.ToLagrangeG1(monomial)
	if err != nil {
		return nil, fmt.Errorf("lagrange basis: %w", err)
	}
	return basis, nil
}

// LagrangeCache persists Lagrange-basis points between runs.
type LagrangeCache interface {
	Get(key []byte) ([]bn254.G1Affine, bool, error)
	Put(key []byte, points []bn254.G1Affine) error
}

func lagrangeKey(fingerprint []byte, n int) []byte {
	return []byte(fmt.Sprintf("lagrange/%x/%d", fingerprint, n))
}

// PebbleLagrangeCache stores each basis as one value of concatenated
// uncompressed points.
type PebbleLagrangeCache struct {
	db *pebble.DB
}

// OpenPebbleLagrangeCache opens (or creates) the cache at dir. opts may be
// nil.
func OpenPebbleLagrangeCache(dir string, opts *pebble.Options) (*PebbleLagrangeCache, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("open lagrange cache: %w", err)
	}
	return &PebbleLagrangeCache{db: db}, nil
}

func (c *PebbleLagrangeCache) Get(key []byte) ([]bn254.G1Affine, bool, error) {
	value, closer, err := c.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()

	if len(value)%bn254.SizeOfG1AffineUncompressed != 0 {
		return nil, false, fmt.Errorf("lagrange cache entry has %d bytes", len(value))
	}
	points := make([]bn254.G1Affine, len(value)/bn254.SizeOfG1AffineUncompressed)
	for i := range points {
		off := i * bn254.SizeOfG1AffineUncompressed
		if _, err := points[i].SetBytes(value[off : off+bn254.SizeOfG1AffineUncompressed]); err != nil {
			return nil, false, fmt.Errorf("lagrange cache point %d: %w", i, err)
		}
	}
	return points, true, nil
}

func (c *PebbleLagrangeCache) Put(key []byte, points []bn254.G1Affine) error {
	value := make([]byte, 0, len(points)*bn254.SizeOfG1AffineUncompressed)
	for i := range points {
		raw := points[i].RawBytes()
		value = append(value, raw[:]...)
	}
	return c.db.Set(key, value, pebble.Sync)
}

func (c *PebbleLagrangeCache) Close() error {
	return c.db.Close()
}
