// Package kzg checks that a blob's claimed KZG commitment matches its
// payload and produces an opening proof at a Fiat–Shamir challenge.
package kzg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
	gnarkkzg "github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/sha3"

	"eigenda-sidecar/internal/pointcodec"
)

// ChallengeDomain separates the blob challenge from other transcripts.
const ChallengeDomain = "EIGENDA_FSBLOBVERIFY_V1_"

var (
	ErrCommitmentMismatch     = errors.New("commitment mismatch")
	ErrEvalCommitmentMismatch = errors.New("evaluation-form commitment does not match coefficient commitment")
	ErrBlobLengthMismatch     = errors.New("payload does not fit claimed blob length")
	ErrChallengeInDomain      = errors.New("challenge falls inside the evaluation domain")
	ErrOpeningProofInvalid    = errors.New("opening proof does not verify")
)

// Result is the output of a successful check.
type Result struct {
	Commitment     bn254.G1Affine
	EvalCommitment bn254.G1Affine
	Proof          bn254.G1Affine
	Challenge      fr.Element
	Evaluation     fr.Element
	BlobLength     uint64
}

// Checker recomputes a blob's commitment from its payload. It is safe for
// concurrent use.
type Checker struct {
	srs    *SRS
	form   PayloadForm
	cache  LagrangeCache
	logger *logrus.Logger

	mu       sync.Mutex
	lagrange map[int][]bn254.G1Affine
}

type Option func(*Checker)

// WithLagrangeCache persists Lagrange bases across restarts.
func WithLagrangeCache(c LagrangeCache) Option {
	return func(ch *Checker) { ch.cache = c }
}

func WithLogger(l *logrus.Logger) Option {
	return func(ch *Checker) { ch.logger = l }
}

func NewChecker(srs *SRS, form PayloadForm, opts ...Option) *Checker {
	c := &Checker{
		srs:      srs,
		form:     form,
		logger:   logrus.StandardLogger(),
		lagrange: make(map[int][]bn254.G1Affine),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Checker) Form() PayloadForm {
	return c.form
}

// Check runs the full consistency protocol for payload against the
// claimed commitment. claimedLength is the blob length in field elements
// from the certificate; zero means unknown.
func (c *Checker) Check(payload []byte, claimed bn254.G1Affine, claimedLength uint32) (*Result, error) {
	elems, err := EncodePayload(payload)
	if err != nil {
		return nil, err
	}

	n := nextPowerOfTwo(uint64(len(elems)))
	if claimedLength != 0 {
		if uint64(len(elems)) > uint64(claimedLength) {
			return nil, fmt.Errorf("%w: %d elements, claimed %d", ErrBlobLengthMismatch, len(elems), claimedLength)
		}
		// legacy certificates report an unpadded length
		if m := nextPowerOfTwo(uint64(claimedLength)); m > n {
			n = m
		}
	}
	if n > uint64(len(c.srs.G1)) {
		return nil, fmt.Errorf("%w: need %d points, have %d", ErrSRSTooSmall, n, len(c.srs.G1))
	}

	domain := fft.NewDomain(n)
	padded := make([]fr.Element, n)
	copy(padded, elems)

	coeffs := padded
	if c.form == FormEval {
		domain.FFTInverse(coeffs, fft.DIF)
		fft.BitReverse(coeffs)
	}

	commitment, err := commit(c.srs.G1[:n], coeffs)
	if err != nil {
		return nil, err
	}
	if !commitment.Equal(&claimed) {
		return nil, ErrCommitmentMismatch
	}

	evals := make([]fr.Element, n)
	copy(evals, coeffs)
	domain.FFT(evals, fft.DIF)
	fft.BitReverse(evals)

	basis, err := c.lagrangeBasis(int(n))
	if err != nil {
		return nil, err
	}
	evalCommitment, err := commit(basis, evals)
	if err != nil {
		return nil, err
	}
	if !evalCommitment.Equal(&commitment) {
		return nil, ErrEvalCommitmentMismatch
	}

	z := ComputeChallenge(evals, &evalCommitment)
	proof, y, err := openAt(domain, basis, evals, z)
	if err != nil {
		return nil, err
	}
	if err := VerifyOpening(c.srs, &evalCommitment, &proof, z, y); err != nil {
		return nil, err
	}

	return &Result{
		Commitment:     commitment,
		EvalCommitment: evalCommitment,
		Proof:          proof,
		Challenge:      z,
		Evaluation:     y,
		BlobLength:     n,
	}, nil
}

func (c *Checker) lagrangeBasis(n int) ([]bn254.G1Affine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if basis, ok := c.lagrange[n]; ok {
		return basis, nil
	}

	key := lagrangeKey(c.srs.Fingerprint(), n)
	if c.cache != nil {
		basis, ok, err := c.cache.Get(key)
		if err != nil {
			c.logger.WithError(err).Warn("[KZG] Lagrange cache read failed, recomputing")
		} else if ok && len(basis) == n {
			c.lagrange[n] = basis
			return basis, nil
		}
	}

	c.logger.WithField("domain_size", n).Info("[KZG] Computing Lagrange basis")
	basis, err := lagrangeBasis(c.srs.G1[:n])
	if err != nil {
		return nil, err
	}
	c.lagrange[n] = basis

	if c.cache != nil {
		if err := c.cache.Put(key, basis); err != nil {
			c.logger.WithError(err).Warn("[KZG] Lagrange cache write failed")
		}
	}
	return basis, nil
}

func commit(points []bn254.G1Affine, scalars []fr.Element) (bn254.G1Affine, error) {
	var out bn254.G1Affine
	if _, err := out.MultiExp(points, scalars, ecc.MultiExpConfig{}); err != nil {
		return out, fmt.Errorf("multi exponentiation: %w", err)
	}
	return out, nil
}

// ComputeChallenge hashes the domain tag, blob size, blob and commitment to
// a field element.
func ComputeChallenge(evals []fr.Element, commitment *bn254.G1Affine) fr.Element {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(ChallengeDomain))

	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(evals)))
	h.Write(size[:])

	for i := range evals {
		b := evals[i].Bytes()
		h.Write(b[:])
	}
	enc := pointcodec.EncodeG1(commitment)
	h.Write(enc[:])

	var z fr.Element
	z.SetBytes(h.Sum(nil))
	return z
}

// openAt evaluates the blob at z with the barycentric formula and commits
// to the quotient (p(X) - y) / (X - z) in the Lagrange basis.
func openAt(domain *fft.Domain, basis []bn254.G1Affine, evals []fr.Element, z fr.Element) (bn254.G1Affine, fr.Element, error) {
	n := len(evals)

	// z - ω^i for every domain point.
	roots := make([]fr.Element, n)
	diffs := make([]fr.Element, n)
	roots[0].SetOne()
	for i := 0; i < n; i++ {
		if i > 0 {
			roots[i].Mul(&roots[i-1], &domain.Generator)
		}
		diffs[i].Sub(&z, &roots[i])
		if diffs[i].IsZero() {
			return bn254.G1Affine{}, fr.Element{}, ErrChallengeInDomain
		}
	}
	inv := fr.BatchInvert(diffs)

	// y = (zⁿ - 1)/n · Σ evals_i · ω^i / (z - ω^i)
	var y, term fr.Element
	for i := 0; i < n; i++ {
		term.Mul(&evals[i], &roots[i]).Mul(&term, &inv[i])
		y.Add(&y, &term)
	}
	var zn fr.Element
	zn.Exp(z, big.NewInt(int64(n)))
	var one fr.Element
	one.SetOne()
	zn.Sub(&zn, &one)
	y.Mul(&y, &zn).Mul(&y, &domain.CardinalityInv)

	// q_i = (evals_i - y) / (ω^i - z) = (y - evals_i) / (z - ω^i)
	quotient := make([]fr.Element, n)
	for i := 0; i < n; i++ {
		quotient[i].Sub(&y, &evals[i]).Mul(&quotient[i], &inv[i])
	}

	proof, err := commit(basis, quotient)
	if err != nil {
		return bn254.G1Affine{}, fr.Element{}, err
	}
	return proof, y, nil
}

// VerifyOpening checks that proof opens commitment to y at z.
func VerifyOpening(srs *SRS, commitment, proof *bn254.G1Affine, z, y fr.Element) error {
	opening := gnarkkzg.OpeningProof{H: *proof, ClaimedValue: y}
	err := gnarkkzg.Verify(commitment, &opening, z, srs.VerifyingKey())
	if errors.Is(err, gnarkkzg.ErrVerifyOpeningProof) {
		return ErrOpeningProofInvalid
	}
	if err != nil {
		return fmt.Errorf("pairing check: %w", err)
	}
	return nil
}
