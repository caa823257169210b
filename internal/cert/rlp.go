package cert

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/ethereum/go-ethereum/rlp"

	"eigenda-sidecar/internal/pointcodec"
)

// Wire shapes for RLP. Every curve point is carried in compressed form.

type blobCommitmentsRLP struct {
	Commitment       []byte
	LengthCommitment []byte
	LengthProof      []byte
	Length           uint32
}

type blobHeaderRLP struct {
	Version           uint16
	QuorumNumbers     []byte
	Commitment        blobCommitmentsRLP
	PaymentHeaderHash [32]byte
}

type blobCertificateRLP struct {
	BlobHeader blobHeaderRLP
	Signature  []byte
	RelayKeys  []uint32
}

type blobInclusionInfoRLP struct {
	BlobCertificate blobCertificateRLP
	BlobIndex       uint32
	InclusionProof  []byte
}

type nonSignerStakesAndSignatureRLP struct {
	NonSignerQuorumBitmapIndices []uint32
	NonSignerPubkeys             [][]byte
	QuorumApks                   [][]byte
	ApkG2                        []byte
	Sigma                        []byte
	QuorumApkIndices             []uint32
	TotalStakeIndices            []uint32
	NonSignerStakeIndices        [][]uint32
}

type eigenDACertRLP struct {
	BlobInclusionInfo           blobInclusionInfoRLP
	BatchHeader                 BatchHeaderV2
	NonSignerStakesAndSignature nonSignerStakesAndSignatureRLP
	SignedQuorumNumbers         []byte
}

// MarshalBinary encodes the certificate as RLP.
func (c *EigenDACert) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(c.toRLP())
}

// UnmarshalBinary decodes an RLP certificate, validating every point.
func (c *EigenDACert) UnmarshalBinary(data []byte) error {
	var w eigenDACertRLP
	if err := rlp.DecodeBytes(data, &w); err != nil {
		return fmt.Errorf("decode certificate rlp: %w", err)
	}
	out, err := w.toCert()
	if err != nil {
		return err
	}
	*c = *out
	return nil
}

func (c *EigenDACert) toRLP() *eigenDACertRLP {
	info := &c.BlobInclusionInfo
	hdr := &info.BlobCertificate.BlobHeader
	com := &hdr.Commitment
	ns := &c.NonSignerStakesAndSignature

	return &eigenDACertRLP{
		BlobInclusionInfo: blobInclusionInfoRLP{
			BlobCertificate: blobCertificateRLP{
				BlobHeader: blobHeaderRLP{
					Version:       hdr.Version,
					QuorumNumbers: hdr.QuorumNumbers,
					Commitment: blobCommitmentsRLP{
						Commitment:       g1Bytes(&com.Commitment),
						LengthCommitment: g2Bytes(&com.LengthCommitment),
						LengthProof:      g2Bytes(&com.LengthProof),
						Length:           com.Length,
					},
					PaymentHeaderHash: hdr.PaymentHeaderHash,
				},
				Signature: info.BlobCertificate.Signature,
				RelayKeys: info.BlobCertificate.RelayKeys,
			},
			BlobIndex:      info.BlobIndex,
			InclusionProof: info.InclusionProof,
		},
		BatchHeader: c.BatchHeader,
		NonSignerStakesAndSignature: nonSignerStakesAndSignatureRLP{
			NonSignerQuorumBitmapIndices: ns.NonSignerQuorumBitmapIndices,
			NonSignerPubkeys:             g1BytesList(ns.NonSignerPubkeys),
			QuorumApks:                   g1BytesList(ns.QuorumApks),
			ApkG2:                        g2Bytes(&ns.ApkG2),
			Sigma:                        g1Bytes(&ns.Sigma),
			QuorumApkIndices:             ns.QuorumApkIndices,
			TotalStakeIndices:            ns.TotalStakeIndices,
			NonSignerStakeIndices:        ns.NonSignerStakeIndices,
		},
		SignedQuorumNumbers: c.SignedQuorumNumbers,
	}
}

func (w *eigenDACertRLP) toCert() (*EigenDACert, error) {
	wc := &w.BlobInclusionInfo.BlobCertificate.BlobHeader.Commitment
	commitment, err := pointcodec.DecodeG1(wc.Commitment)
	if err != nil {
		return nil, fmt.Errorf("blob commitment: %w", err)
	}
	lengthCommitment, err := pointcodec.DecodeG2(wc.LengthCommitment)
	if err != nil {
		return nil, fmt.Errorf("length commitment: %w", err)
	}
	lengthProof, err := pointcodec.DecodeG2(wc.LengthProof)
	if err != nil {
		return nil, fmt.Errorf("length proof: %w", err)
	}

	wn := &w.NonSignerStakesAndSignature
	nonSigners, err := decodeG1List(wn.NonSignerPubkeys)
	if err != nil {
		return nil, fmt.Errorf("non-signer pubkeys: %w", err)
	}
	apks, err := decodeG1List(wn.QuorumApks)
	if err != nil {
		return nil, fmt.Errorf("quorum apks: %w", err)
	}
	apkG2, err := pointcodec.DecodeG2(wn.ApkG2)
	if err != nil {
		return nil, fmt.Errorf("apk g2: %w", err)
	}
	sigma, err := pointcodec.DecodeG1(wn.Sigma)
	if err != nil {
		return nil, fmt.Errorf("sigma: %w", err)
	}

	wh := &w.BlobInclusionInfo.BlobCertificate.BlobHeader
	return &EigenDACert{
		BlobInclusionInfo: BlobInclusionInfo{
			BlobCertificate: BlobCertificate{
				BlobHeader: BlobHeader{
					Version:       wh.Version,
					QuorumNumbers: wh.QuorumNumbers,
					Commitment: BlobCommitments{
						Commitment:       commitment,
						LengthCommitment: lengthCommitment,
						LengthProof:      lengthProof,
						Length:           wc.Length,
					},
					PaymentHeaderHash: wh.PaymentHeaderHash,
				},
				Signature: w.BlobInclusionInfo.BlobCertificate.Signature,
				RelayKeys: w.BlobInclusionInfo.BlobCertificate.RelayKeys,
			},
			BlobIndex:      w.BlobInclusionInfo.BlobIndex,
			InclusionProof: w.BlobInclusionInfo.InclusionProof,
		},
		BatchHeader: w.BatchHeader,
		NonSignerStakesAndSignature: NonSignerStakesAndSignature{
			NonSignerQuorumBitmapIndices: wn.NonSignerQuorumBitmapIndices,
			NonSignerPubkeys:             nonSigners,
			QuorumApks:                   apks,
			ApkG2:                        apkG2,
			Sigma:                        sigma,
			QuorumApkIndices:             wn.QuorumApkIndices,
			TotalStakeIndices:            wn.TotalStakeIndices,
			NonSignerStakeIndices:        wn.NonSignerStakeIndices,
		},
		SignedQuorumNumbers: w.SignedQuorumNumbers,
	}, nil
}

func g1Bytes(p *bn254.G1Affine) []byte {
	b := pointcodec.EncodeG1(p)
	return b[:]
}

func g2Bytes(p *bn254.G2Affine) []byte {
	b := pointcodec.EncodeG2(p)
	return b[:]
}

func g1BytesList(ps []bn254.G1Affine) [][]byte {
	out := make([][]byte, len(ps))
	for i := range ps {
		out[i] = g1Bytes(&ps[i])
	}
	return out
}

func decodeG1List(bs [][]byte) ([]bn254.G1Affine, error) {
	out := make([]bn254.G1Affine, len(bs))
	for i, b := range bs {
		p, err := pointcodec.DecodeG1(b)
		if err != nil {
			return nil, fmt.Errorf("index %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}
