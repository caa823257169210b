package cert

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"

	"eigenda-sidecar/internal/pointcodec"
)

// Calldata shapes of the EigenDA cert verifier. Field names follow the
// Solidity struct members so go-ethereum's abi package can pack them.

type BlobCommitmentContract struct {
	Commitment       pointcodec.G1Point
	LengthCommitment pointcodec.G2Point
	LengthProof      pointcodec.G2Point
	Length           uint32
}

type BlobHeaderV2Contract struct {
	Version           uint16
	QuorumNumbers     []byte
	Commitment        BlobCommitmentContract
	PaymentHeaderHash [32]byte
}

type BlobCertificateContract struct {
	BlobHeader BlobHeaderV2Contract
	Signature  []byte
	RelayKeys  []uint32
}

type BlobInclusionInfoContract struct {
	BlobCertificate BlobCertificateContract
	BlobIndex       uint32
	InclusionProof  []byte
}

type BatchHeaderV2Contract struct {
	BatchRoot            [32]byte
	ReferenceBlockNumber uint32
}

type NonSignerStakesAndSignatureContract struct {
	NonSignerQuorumBitmapIndices []uint32
	NonSignerPubkeys             []pointcodec.G1Point
	QuorumApks                   []pointcodec.G1Point
	ApkG2                        pointcodec.G2Point
	Sigma                        pointcodec.G1Point
	QuorumApkIndices             []uint32
	TotalStakeIndices            []uint32
	NonSignerStakeIndices        [][]uint32
}

// CertContract groups the four verifyDACertV2 arguments.
type CertContract struct {
	BatchHeader                 BatchHeaderV2Contract
	BlobInclusionInfo           BlobInclusionInfoContract
	NonSignerStakesAndSignature NonSignerStakesAndSignatureContract
	SignedQuorumNumbers         []byte
}

// ToContract maps the certificate onto the verifier's calldata shape.
func (c *EigenDACert) ToContract() *CertContract {
	info := &c.BlobInclusionInfo
	hdr := &info.BlobCertificate.BlobHeader
	ns := &c.NonSignerStakesAndSignature

	return &CertContract{
		BatchHeader: BatchHeaderV2Contract{
			BatchRoot:            c.BatchHeader.BatchRoot,
			ReferenceBlockNumber: c.BatchHeader.ReferenceBlockNumber,
		},
		BlobInclusionInfo: BlobInclusionInfoContract{
			BlobCertificate: BlobCertificateContract{
				BlobHeader: BlobHeaderV2Contract{
					Version:       hdr.Version,
					QuorumNumbers: nonNil(hdr.QuorumNumbers),
					Commitment: BlobCommitmentContract{
						Commitment:       pointcodec.G1ToContract(&hdr.Commitment.Commitment),
						LengthCommitment: pointcodec.G2ToContract(&hdr.Commitment.LengthCommitment),
						LengthProof:      pointcodec.G2ToContract(&hdr.Commitment.LengthProof),
						Length:           hdr.Commitment.Length,
					},
					PaymentHeaderHash: hdr.PaymentHeaderHash,
				},
				Signature: nonNil(info.BlobCertificate.Signature),
				RelayKeys: nonNilU32(info.BlobCertificate.RelayKeys),
			},
			BlobIndex:      info.BlobIndex,
			InclusionProof: nonNil(info.InclusionProof),
		},
		NonSignerStakesAndSignature: NonSignerStakesAndSignatureContract{
			NonSignerQuorumBitmapIndices: nonNilU32(ns.NonSignerQuorumBitmapIndices),
			NonSignerPubkeys:             g1ContractList(ns.NonSignerPubkeys),
			QuorumApks:                   g1ContractList(ns.QuorumApks),
			ApkG2:                        pointcodec.G2ToContract(&ns.ApkG2),
			Sigma:                        pointcodec.G1ToContract(&ns.Sigma),
			QuorumApkIndices:             nonNilU32(ns.QuorumApkIndices),
			TotalStakeIndices:            nonNilU32(ns.TotalStakeIndices),
			NonSignerStakeIndices:        nonNilU32s(ns.NonSignerStakeIndices),
		},
		SignedQuorumNumbers: nonNil(c.SignedQuorumNumbers),
	}
}

// FromContract converts calldata back into a certificate. Every point is
// checked for curve and subgroup membership.
func FromContract(cc *CertContract) (*EigenDACert, error) {
	hdr := &cc.BlobInclusionInfo.BlobCertificate.BlobHeader
	commitment, err := pointcodec.G1FromContract(hdr.Commitment.Commitment)
	if err != nil {
		return nil, fmt.Errorf("blob commitment: %w", err)
	}
	lengthCommitment, err := pointcodec.G2FromContract(hdr.Commitment.LengthCommitment)
	if err != nil {
		return nil, fmt.Errorf("length commitment: %w", err)
	}
	lengthProof, err := pointcodec.G2FromContract(hdr.Commitment.LengthProof)
	if err != nil {
		return nil, fmt.Errorf("length proof: %w", err)
	}

	ns := &cc.NonSignerStakesAndSignature
	nonSigners, err := g1FromContractList(ns.NonSignerPubkeys)
	if err != nil {
		return nil, fmt.Errorf("non-signer pubkeys: %w", err)
	}
	apks, err := g1FromContractList(ns.QuorumApks)
	if err != nil {
		return nil, fmt.Errorf("quorum apks: %w", err)
	}
	apkG2, err := pointcodec.G2FromContract(ns.ApkG2)
	if err != nil {
		return nil, fmt.Errorf("apk g2: %w", err)
	}
	sigma, err := pointcodec.G1FromContract(ns.Sigma)
	if err != nil {
		return nil, fmt.Errorf("sigma: %w", err)
	}

	return &EigenDACert{
		BlobInclusionInfo: BlobInclusionInfo{
			BlobCertificate: BlobCertificate{
				BlobHeader: BlobHeader{
					Version:       hdr.Version,
					QuorumNumbers: hdr.QuorumNumbers,
					Commitment: BlobCommitments{
						Commitment:       commitment,
						LengthCommitment: lengthCommitment,
						LengthProof:      lengthProof,
						Length:           hdr.Commitment.Length,
					},
					PaymentHeaderHash: hdr.PaymentHeaderHash,
				},
				Signature: cc.BlobInclusionInfo.BlobCertificate.Signature,
				RelayKeys: cc.BlobInclusionInfo.BlobCertificate.RelayKeys,
			},
			BlobIndex:      cc.BlobInclusionInfo.BlobIndex,
			InclusionProof: cc.BlobInclusionInfo.InclusionProof,
		},
		BatchHeader: BatchHeaderV2{
			BatchRoot:            cc.BatchHeader.BatchRoot,
			ReferenceBlockNumber: cc.BatchHeader.ReferenceBlockNumber,
		},
		NonSignerStakesAndSignature: NonSignerStakesAndSignature{
			NonSignerQuorumBitmapIndices: ns.NonSignerQuorumBitmapIndices,
			NonSignerPubkeys:             nonSigners,
			QuorumApks:                   apks,
			ApkG2:                        apkG2,
			Sigma:                        sigma,
			QuorumApkIndices:             ns.QuorumApkIndices,
			TotalStakeIndices:            ns.TotalStakeIndices,
			NonSignerStakeIndices:        ns.NonSignerStakeIndices,
		},
		SignedQuorumNumbers: cc.SignedQuorumNumbers,
	}, nil
}

// Legacy verifyBlobV1 shapes.

type QuorumBlobParamContract struct {
	QuorumNumber                    uint8
	AdversaryThresholdPercentage    uint8
	ConfirmationThresholdPercentage uint8
	ChunkLength                     uint32
}

type BlobHeaderV1Contract struct {
	Commitment       pointcodec.G1Point
	DataLength       uint32
	QuorumBlobParams []QuorumBlobParamContract
}

type BatchHeaderV1Contract struct {
	BlobHeadersRoot       [32]byte
	QuorumNumbers         []byte
	SignedStakeForQuorums []byte
	ReferenceBlockNumber  uint32
}

type BatchMetadataContract struct {
	BatchHeader             BatchHeaderV1Contract
	SignatoryRecordHash     [32]byte
	ConfirmationBlockNumber uint32
}

type BlobVerificationProofContract struct {
	BatchId        uint32
	BlobIndex      uint32
	BatchMetadata  BatchMetadataContract
	InclusionProof []byte
	QuorumIndices  []byte
}

// ToContract maps the legacy certificate onto verifyBlobV1 arguments.
func (b *BlobInfo) ToContract() (*BlobHeaderV1Contract, *BlobVerificationProofContract, error) {
	commitment, err := b.Commitment()
	if err != nil {
		return nil, nil, err
	}
	params := make([]QuorumBlobParamContract, len(b.BlobHeader.BlobQuorumParams))
	for i, p := range b.BlobHeader.BlobQuorumParams {
		if p.QuorumNumber > 0xff || p.AdversaryThresholdPercentage > 0xff || p.ConfirmationThresholdPercentage > 0xff {
			return nil, nil, fmt.Errorf("quorum param %d does not fit uint8", i)
		}
		params[i] = QuorumBlobParamContract{
			QuorumNumber:                    uint8(p.QuorumNumber),
			AdversaryThresholdPercentage:    uint8(p.AdversaryThresholdPercentage),
			ConfirmationThresholdPercentage: uint8(p.ConfirmationThresholdPercentage),
			ChunkLength:                     p.ChunkLength,
		}
	}

	md := &b.BlobVerificationProof.BatchMetadata
	root, err := bytes32(md.BatchHeader.BatchRoot)
	if err != nil {
		return nil, nil, fmt.Errorf("batch root: %w", err)
	}
	sigHash, err := bytes32(md.SignatoryRecordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("signatory record hash: %w", err)
	}

	header := &BlobHeaderV1Contract{
		Commitment:       pointcodec.G1ToContract(&commitment),
		DataLength:       b.BlobHeader.DataLength,
		QuorumBlobParams: params,
	}
	proof := &BlobVerificationProofContract{
		BatchId:   b.BlobVerificationProof.BatchID,
		BlobIndex: b.BlobVerificationProof.BlobIndex,
		BatchMetadata: BatchMetadataContract{
			BatchHeader: BatchHeaderV1Contract{
				BlobHeadersRoot:       root,
				QuorumNumbers:         nonNil(md.BatchHeader.QuorumNumbers),
				SignedStakeForQuorums: nonNil(md.BatchHeader.QuorumSignedPercentages),
				ReferenceBlockNumber:  md.BatchHeader.ReferenceBlockNumber,
			},
			SignatoryRecordHash:     sigHash,
			ConfirmationBlockNumber: md.ConfirmationBlockNumber,
		},
		InclusionProof: nonNil(b.BlobVerificationProof.InclusionProof),
		QuorumIndices:  nonNil(b.BlobVerificationProof.QuorumIndexes),
	}
	return header, proof, nil
}

func g1ContractList(ps []bn254.G1Affine) []pointcodec.G1Point {
	out := make([]pointcodec.G1Point, len(ps))
	for i := range ps {
		out[i] = pointcodec.G1ToContract(&ps[i])
	}
	return out
}

func g1FromContractList(cs []pointcodec.G1Point) ([]bn254.G1Affine, error) {
	out := make([]bn254.G1Affine, len(cs))
	for i, c := range cs {
		p, err := pointcodec.G1FromContract(c)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

func bytes32(b []byte) ([32]byte, error) {
	var out [32]byte
	if len(b) != 32 {
		return out, fmt.Errorf("want 32 bytes, got %d", len(b))
	}
	copy(out[:], b)
	return out, nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

func nonNilU32(v []uint32) []uint32 {
	if v == nil {
		return []uint32{}
	}
	return v
}

func nonNilU32s(v [][]uint32) [][]uint32 {
	if v == nil {
		return [][]uint32{}
	}
	return v
}
