// Package cert models EigenDA availability certificates and converts them
// between their in-memory form, the RLP bytes form used on the wire and in
// storage, and the calldata shape of the on-chain verifier.
package cert

import (
	"github.com/consensys/gnark-crypto/ecc/bn254"
)

// BlobCommitments commits to a blob's polynomial and its length.
type BlobCommitments struct {
	Commitment       bn254.G1Affine
	LengthCommitment bn254.G2Affine
	LengthProof      bn254.G2Affine
	Length           uint32
}

type BlobHeader struct {
	Version           uint16
	QuorumNumbers     []byte
	Commitment        BlobCommitments
	PaymentHeaderHash [32]byte
}

// BlobCertificate is the disperser's attestation that RelayKeys hold the
// blob's chunks.
type BlobCertificate struct {
	BlobHeader BlobHeader
	Signature  []byte
	RelayKeys  []uint32
}

type BlobInclusionInfo struct {
	BlobCertificate BlobCertificate
	BlobIndex       uint32
	InclusionProof  []byte
}

type BatchHeaderV2 struct {
	BatchRoot            [32]byte
	ReferenceBlockNumber uint32
}

// NonSignerStakesAndSignature is the aggregated signature data proving a
// quorum of operators attested to the batch.
type NonSignerStakesAndSignature struct {
	NonSignerQuorumBitmapIndices []uint32
	NonSignerPubkeys             []bn254.G1Affine
	QuorumApks                   []bn254.G1Affine
	ApkG2                        bn254.G2Affine
	Sigma                        bn254.G1Affine
	QuorumApkIndices             []uint32
	TotalStakeIndices            []uint32
	NonSignerStakeIndices        [][]uint32
}

// EigenDACert is a self-contained certificate for one blob, as it would be
// posted to a rollup inbox. It is never mutated after construction.
type EigenDACert struct {
	BlobInclusionInfo           BlobInclusionInfo
	BatchHeader                 BatchHeaderV2
	NonSignerStakesAndSignature NonSignerStakesAndSignature
	SignedQuorumNumbers         []byte
}

// Commitment returns the G1 commitment the certificate claims for the blob.
func (c *EigenDACert) Commitment() bn254.G1Affine {
	return c.BlobInclusionInfo.BlobCertificate.BlobHeader.Commitment.Commitment
}

// BlobLength returns the claimed blob length in field elements.
func (c *EigenDACert) BlobLength() uint32 {
	return c.BlobInclusionInfo.BlobCertificate.BlobHeader.Commitment.Length
}

func (c *EigenDACert) RelayKeys() []uint32 {
	return c.BlobInclusionInfo.BlobCertificate.RelayKeys
}
