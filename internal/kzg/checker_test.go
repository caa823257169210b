package kzg

import (
	"encoding/binary"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/fft"
	gnarkkzg "github.com/consensys/gnark-crypto/ecc/bn254/kzg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/sha3"

	"eigenda-sidecar/internal/pointcodec"
)

var testTau = big.NewInt(0x5eed)

func referenceSRS(t *testing.T, size uint64) (*gnarkkzg.SRS, *SRS) {
	t.Helper()
	ref, err := gnarkkzg.NewSRS(size, testTau)
	require.NoError(t, err)
	return ref, &SRS{G1: ref.Pk.G1[:size], G2: [2]bn254.G2Affine{ref.Vk.G2[0], ref.Vk.G2[1]}}
}

func testPayload(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i*7 + 3)
	}
	return p
}

func paddedElements(t *testing.T, payload []byte, n int) []fr.Element {
	t.Helper()
	elems, err := EncodePayload(payload)
	require.NoError(t, err)
	out := make([]fr.Element, n)
	copy(out, elems)
	return out
}

func TestCheckAgainstReferenceKZG(t *testing.T) {
	ref, srs := referenceSRS(t, 64)
	payload := testPayload(100) // header + 4 chunks, domain of 8

	claimed, err := gnarkkzg.Commit(paddedElements(t, payload, 8), ref.Pk)
	require.NoError(t, err)

	res, err := NewChecker(srs, FormCoeff).Check(payload, claimed, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), res.BlobLength)
	assert.True(t, res.Commitment.Equal(&claimed))
	assert.True(t, res.EvalCommitment.Equal(&claimed))

	// gnark-crypto's verifier accepts the opening.
	err = gnarkkzg.Verify(&res.EvalCommitment, &gnarkkzg.OpeningProof{H: res.Proof, ClaimedValue: res.Evaluation}, res.Challenge, ref.Vk)
	require.NoError(t, err)
}

func TestCheckDetectsMutation(t *testing.T) {
	ref, srs := referenceSRS(t, 64)
	payload := testPayload(100)
	claimed, err := gnarkkzg.Commit(paddedElements(t, payload, 8), ref.Pk)
	require.NoError(t, err)

	checker := NewChecker(srs, FormCoeff)
	for _, idx := range []int{0, 31, 99} {
		mutated := append([]byte(nil), payload...)
		mutated[idx] ^= 0x01
		_, err := checker.Check(mutated, claimed, 0)
		assert.ErrorIs(t, err, ErrCommitmentMismatch, "byte %d", idx)
	}
}

func TestCheckEvalForm(t *testing.T) {
	ref, srs := referenceSRS(t, 64)
	payload := testPayload(200) // header + 7 chunks, domain of 8

	coeffs := paddedElements(t, payload, 8)
	fft.NewDomain(8).FFTInverse(coeffs, fft.DIF)
	fft.BitReverse(coeffs)
	claimed, err := gnarkkzg.Commit(coeffs, ref.Pk)
	require.NoError(t, err)

	res, err := NewChecker(srs, FormEval).Check(payload, claimed, 0)
	require.NoError(t, err)
	assert.True(t, res.Commitment.Equal(&claimed))

	// The same payload read as coefficients commits to something else.
	_, err = NewChecker(srs, FormCoeff).Check(payload, claimed, 0)
	assert.ErrorIs(t, err, ErrCommitmentMismatch)
}

func TestCheckClaimedLength(t *testing.T) {
	ref, srs := referenceSRS(t, 64)
	payload := testPayload(100)
	claimed, err := gnarkkzg.Commit(paddedElements(t, payload, 8), ref.Pk)
	require.NoError(t, err)
	checker := NewChecker(srs, FormCoeff)

	res, err := checker.Check(payload, claimed, 32)
	require.NoError(t, err)
	assert.Equal(t, uint64(32), res.BlobLength)
	require.NoError(t, VerifyOpening(srs, &res.EvalCommitment, &res.Proof, res.Challenge, res.Evaluation))

	_, err = checker.Check(payload, claimed, 4)
	assert.ErrorIs(t, err, ErrBlobLengthMismatch)

	res, err = checker.Check(payload, claimed, 12)
	require.NoError(t, err)
	assert.Equal(t, uint64(16), res.BlobLength)

	_, err = checker.Check(payload, claimed, 128)
	assert.ErrorIs(t, err, ErrSRSTooSmall)
}

func TestCheckEmptyPayload(t *testing.T) {
	_, srs := referenceSRS(t, 8)
	_, err := NewChecker(srs, FormCoeff).Check(nil, bn254.G1Affine{}, 0)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}

func TestVerifyOpeningRejectsWrongValue(t *testing.T) {
	ref, srs := referenceSRS(t, 64)
	payload := testPayload(60)
	claimed, err := gnarkkzg.Commit(paddedElements(t, payload, 4), ref.Pk)
	require.NoError(t, err)

	res, err := NewChecker(srs, FormCoeff).Check(payload, claimed, 0)
	require.NoError(t, err)

	var wrong fr.Element
	wrong.SetOne()
	wrong.Add(&wrong, &res.Evaluation)
	err = VerifyOpening(srs, &res.EvalCommitment, &res.Proof, res.Challenge, wrong)
	assert.ErrorIs(t, err, ErrOpeningProofInvalid)
}

func TestVerifyOpeningAcceptsReferenceProof(t *testing.T) {
	ref, srs := referenceSRS(t, 64)
	poly := paddedElements(t, testPayload(200), 8)
	digest, err := gnarkkzg.Commit(poly, ref.Pk)
	require.NoError(t, err)

	var z fr.Element
	z.SetUint64(987654321)
	opening, err := gnarkkzg.Open(poly, z, ref.Pk)
	require.NoError(t, err)

	require.NoError(t, VerifyOpening(srs, &digest, &opening.H, z, opening.ClaimedValue))
	// The verifying key is built once and reused.
	require.NoError(t, VerifyOpening(srs, &digest, &opening.H, z, opening.ClaimedValue))

	var other fr.Element
	other.SetUint64(5)
	assert.ErrorIs(t, VerifyOpening(srs, &digest, &opening.H, other, opening.ClaimedValue), ErrOpeningProofInvalid)
}

func TestComputeChallengeTranscript(t *testing.T) {
	ref, srs := referenceSRS(t, 64)
	payload := testPayload(150)
	coeffs := paddedElements(t, payload, 8)
	claimed, err := gnarkkzg.Commit(coeffs, ref.Pk)
	require.NoError(t, err)

	res, err := NewChecker(srs, FormCoeff).Check(payload, claimed, 0)
	require.NoError(t, err)

	evals := make([]fr.Element, 8)
	copy(evals, coeffs)
	fft.NewDomain(8).FFT(evals, fft.DIF)
	fft.BitReverse(evals)

	// keccak256(domain ‖ u64be(n) ‖ evals ‖ EncodeG1(C_eval)) mod r
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(ChallengeDomain))
	h.Write(binary.BigEndian.AppendUint64(nil, 8))
	for i := range evals {
		b := evals[i].Bytes()
		h.Write(b[:])
	}
	enc := pointcodec.EncodeG1(&res.EvalCommitment)
	h.Write(enc[:])
	var want fr.Element
	want.SetBytes(h.Sum(nil))

	assert.True(t, want.Equal(&res.Challenge))
	got := ComputeChallenge(evals, &res.EvalCommitment)
	assert.True(t, want.Equal(&got))

	// the transcript binds the commitment
	var other bn254.G1Affine
	other.Double(&res.EvalCommitment)
	moved := ComputeChallenge(evals, &other)
	assert.False(t, want.Equal(&moved))
}

func TestLagrangeBasis(t *testing.T) {
	const n = 8
	srs := NewInsecureSRS(n, testTau)
	domain := fft.NewDomain(n)
	basis, err := lagrangeBasis(srs.G1)
	require.NoError(t, err)

	// L_i = ℓ_i(τ)·G with ℓ_i(τ) = 1/n · Σ_j ω^{-ij} τ^j.
	var tau fr.Element
	tau.SetBigInt(testTau)
	_, _, g1, _ := bn254.Generators()
	for i := 0; i < n; i++ {
		var wi, acc, tauPow, term, sum fr.Element
		wi.Exp(domain.GeneratorInv, big.NewInt(int64(i)))
		acc.SetOne()
		tauPow.SetOne()
		for j := 0; j < n; j++ {
			term.Mul(&acc, &tauPow)
			sum.Add(&sum, &term)
			acc.Mul(&acc, &wi)
			tauPow.Mul(&tauPow, &tau)
		}
		sum.Mul(&sum, &domain.CardinalityInv)

		var want bn254.G1Affine
		want.ScalarMultiplication(&g1, sum.BigInt(new(big.Int)))
		assert.True(t, want.Equal(&basis[i]), "basis point %d", i)
	}
}

func TestPebbleLagrangeCache(t *testing.T) {
	cache, err := OpenPebbleLagrangeCache("lagrange", &pebble.Options{FS: vfs.NewMem()})
	require.NoError(t, err)
	defer cache.Close()

	ref, srs := referenceSRS(t, 64)
	payload := testPayload(100)
	claimed, err := gnarkkzg.Commit(paddedElements(t, payload, 8), ref.Pk)
	require.NoError(t, err)

	key := lagrangeKey(srs.Fingerprint(), 8)
	_, ok, err := cache.Get(key)
	require.NoError(t, err)
	assert.False(t, ok)

	first, err := NewChecker(srs, FormCoeff, WithLagrangeCache(cache)).Check(payload, claimed, 0)
	require.NoError(t, err)

	stored, ok, err := cache.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	want, err := lagrangeBasis(srs.G1[:8])
	require.NoError(t, err)
	assert.Equal(t, want, stored)

	// A fresh checker picks the basis up from the cache.
	second, err := NewChecker(srs, FormCoeff, WithLagrangeCache(cache)).Check(payload, claimed, 0)
	require.NoError(t, err)
	assert.True(t, first.Proof.Equal(&second.Proof))
}

func TestLoadSRS(t *testing.T) {
	srs := NewInsecureSRS(16, testTau)
	dir := t.TempDir()

	var g1Raw, g2Raw []byte
	for i := range srs.G1 {
		b := pointcodec.EncodeG1(&srs.G1[i])
		g1Raw = append(g1Raw, b[:]...)
	}
	for i := range srs.G2 {
		b := pointcodec.EncodeG2(&srs.G2[i])
		g2Raw = append(g2Raw, b[:]...)
	}
	g1Path := filepath.Join(dir, "g1.point")
	g2Path := filepath.Join(dir, "g2.point")
	require.NoError(t, os.WriteFile(g1Path, g1Raw, 0o600))
	require.NoError(t, os.WriteFile(g2Path, g2Raw, 0o600))

	loaded, err := LoadSRS(g1Path, g2Path, 8)
	require.NoError(t, err)
	assert.Equal(t, srs.G1[:8], loaded.G1)
	assert.Equal(t, srs.G2, loaded.G2)

	_, err = LoadSRS(g1Path, g2Path, 32)
	assert.Error(t, err)
}
