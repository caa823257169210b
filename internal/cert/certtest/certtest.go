// Package certtest builds certificates for tests.
package certtest

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"eigenda-sidecar/internal/cert"
)

func g1Mul(k int64) bn254.G1Affine {
	_, _, g1, _ := bn254.Generators()
	var p bn254.G1Affine
	p.ScalarMultiplication(&g1, big.NewInt(k))
	return p
}

func g2Mul(k int64) bn254.G2Affine {
	_, _, _, g2 := bn254.Generators()
	var p bn254.G2Affine
	p.ScalarMultiplication(&g2, big.NewInt(k))
	return p
}

// V2 returns a structurally complete certificate claiming commitment and
// length. The signature data is well-formed but not a valid attestation.
func V2(commitment bn254.G1Affine, length uint32) *cert.EigenDACert {
	var root, payment [32]byte
	for i := range root {
		root[i] = byte(i)
		payment[i] = byte(0xff - i)
	}
	return &cert.EigenDACert{
		BlobInclusionInfo: cert.BlobInclusionInfo{
			BlobCertificate: cert.BlobCertificate{
				BlobHeader: cert.BlobHeader{
					Version:       0,
					QuorumNumbers: []byte{0, 1},
					Commitment: cert.BlobCommitments{
						Commitment:       commitment,
						LengthCommitment: g2Mul(7),
						LengthProof:      g2Mul(11),
						Length:           length,
					},
					PaymentHeaderHash: payment,
				},
				Signature: []byte{0xde, 0xad, 0xbe, 0xef},
				RelayKeys: []uint32{0, 2},
			},
			BlobIndex:      3,
			InclusionProof: []byte{0x01, 0x02, 0x03},
		},
		BatchHeader: cert.BatchHeaderV2{
			BatchRoot:            root,
			ReferenceBlockNumber: 8_000_000,
		},
		NonSignerStakesAndSignature: cert.NonSignerStakesAndSignature{
			NonSignerQuorumBitmapIndices: []uint32{4},
			NonSignerPubkeys:             []bn254.G1Affine{g1Mul(13)},
			QuorumApks:                   []bn254.G1Affine{g1Mul(17), g1Mul(19)},
			ApkG2:                        g2Mul(23),
			Sigma:                        g1Mul(29),
			QuorumApkIndices:             []uint32{5, 6},
			TotalStakeIndices:            []uint32{7, 8},
			NonSignerStakeIndices:        [][]uint32{{9}, {10}},
		},
		SignedQuorumNumbers: []byte{0, 1},
	}
}

// V1 returns a legacy certificate claiming commitment.
func V1(commitment bn254.G1Affine, dataLength uint32) *cert.BlobInfo {
	x, y := commitment.X.Bytes(), commitment.Y.Bytes()
	root := make([]byte, 32)
	sig := make([]byte, 32)
	for i := range root {
		root[i] = byte(i + 1)
		sig[i] = byte(i + 2)
	}
	return &cert.BlobInfo{
		BlobHeader: cert.BlobHeaderV1{
			Commitment: cert.G1Commitment{X: x[:], Y: y[:]},
			DataLength: dataLength,
			BlobQuorumParams: []cert.BlobQuorumParam{
				{QuorumNumber: 0, AdversaryThresholdPercentage: 33, ConfirmationThresholdPercentage: 55, ChunkLength: 1},
				{QuorumNumber: 1, AdversaryThresholdPercentage: 33, ConfirmationThresholdPercentage: 55, ChunkLength: 1},
			},
		},
		BlobVerificationProof: cert.BlobVerificationProof{
			BatchID:   42,
			BlobIndex: 1,
			BatchMetadata: cert.BatchMetadata{
				BatchHeader: cert.BatchHeaderV1{
					BatchRoot:               root,
					QuorumNumbers:           []byte{0, 1},
					QuorumSignedPercentages: []byte{90, 88},
					ReferenceBlockNumber:    100,
				},
				SignatoryRecordHash:     sig,
				Fee:                     []byte{0},
				ConfirmationBlockNumber: 120,
				BatchHeaderHash:         []byte{0xaa, 0xbb},
			},
			InclusionProof: []byte{0x01},
			QuorumIndexes:  []byte{0, 1},
		},
	}
}

// Commitment returns a valid point usable as a claimed commitment.
func Commitment(k int64) bn254.G1Affine {
	return g1Mul(k)
}
