package cert

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"eigenda-sidecar/internal/pointcodec"
)

// Legacy (v1 disperser) certificate types. Commitment coordinates are raw
// 32-byte big-endian values rather than compressed points.

type G1Commitment struct {
	X []byte
	Y []byte
}

type BlobQuorumParam struct {
	QuorumNumber                    uint32
	AdversaryThresholdPercentage    uint32
	ConfirmationThresholdPercentage uint32
	ChunkLength                     uint32
}

type BlobHeaderV1 struct {
	Commitment       G1Commitment
	DataLength       uint32
	BlobQuorumParams []BlobQuorumParam
}

type BatchHeaderV1 struct {
	BatchRoot               []byte
	QuorumNumbers           []byte
	QuorumSignedPercentages []byte
	ReferenceBlockNumber    uint32
}

type BatchMetadata struct {
	BatchHeader             BatchHeaderV1
	SignatoryRecordHash     []byte
	Fee                     []byte
	ConfirmationBlockNumber uint32
	BatchHeaderHash         []byte
}

type BlobVerificationProof struct {
	BatchID        uint32
	BlobIndex      uint32
	BatchMetadata  BatchMetadata
	InclusionProof []byte
	QuorumIndexes  []byte
}

// BlobInfo is the certificate returned by the v1 disperser.
type BlobInfo struct {
	BlobHeader            BlobHeaderV1
	BlobVerificationProof BlobVerificationProof
}

// Commitment validates and returns the blob commitment.
func (b *BlobInfo) Commitment() (bn254.G1Affine, error) {
	p, err := pointcodec.G1FromRaw(b.BlobHeader.Commitment.X, b.BlobHeader.Commitment.Y)
	if err != nil {
		return p, fmt.Errorf("v1 commitment: %w", err)
	}
	return p, nil
}

func (b *BlobInfo) BlobLength() uint32 {
	return b.BlobHeader.DataLength
}
