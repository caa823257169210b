package cert

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const g1Components = `[{"name":"X","type":"uint256"},{"name":"Y","type":"uint256"}]`
const g2Components = `[{"name":"X","type":"uint256[2]"},{"name":"Y","type":"uint256[2]"}]`

// VerifierABI covers the two verifier entry points the sidecar calls.
const VerifierABI = `[
{"type":"function","name":"verifyDACertV2","stateMutability":"view","inputs":[
 {"name":"batchHeader","type":"tuple","components":[
  {"name":"batchRoot","type":"bytes32"},
  {"name":"referenceBlockNumber","type":"uint32"}]},
 {"name":"blobInclusionInfo","type":"tuple","components":[
  {"name":"blobCertificate","type":"tuple","components":[
   {"name":"blobHeader","type":"tuple","components":[
    {"name":"version","type":"uint16"},
    {"name":"quorumNumbers","type":"bytes"},
    {"name":"commitment","type":"tuple","components":[
     {"name":"commitment","type":"tuple","components":` + g1Components + `},
     {"name":"lengthCommitment","type":"tuple","components":` + g2Components + `},
     {"name":"lengthProof","type":"tuple","components":` + g2Components + `},
     {"name":"length","type":"uint32"}]},
    {"name":"paymentHeaderHash","type":"bytes32"}]},
   {"name":"signature","type":"bytes"},
   {"name":"relayKeys","type":"uint32[]"}]},
  {"name":"blobIndex","type":"uint32"},
  {"name":"inclusionProof","type":"bytes"}]},
 {"name":"nonSignerStakesAndSignature","type":"tuple","components":[
  {"name":"nonSignerQuorumBitmapIndices","type":"uint32[]"},
  {"name":"nonSignerPubkeys","type":"tuple[]","components":` + g1Components + `},
  {"name":"quorumApks","type":"tuple[]","components":` + g1Components + `},
  {"name":"apkG2","type":"tuple","components":` + g2Components + `},
  {"name":"sigma","type":"tuple","components":` + g1Components + `},
  {"name":"quorumApkIndices","type":"uint32[]"},
  {"name":"totalStakeIndices","type":"uint32[]"},
  {"name":"nonSignerStakeIndices","type":"uint32[][]"}]},
 {"name":"signedQuorumNumbers","type":"bytes"}],
 "outputs":[{"name":"","type":"bool"}]},
{"type":"function","name":"verifyBlobV1","stateMutability":"view","inputs":[
 {"name":"blobHeader","type":"tuple","components":[
  {"name":"commitment","type":"tuple","components":` + g1Components + `},
  {"name":"dataLength","type":"uint32"},
  {"name":"quorumBlobParams","type":"tuple[]","components":[
   {"name":"quorumNumber","type":"uint8"},
   {"name":"adversaryThresholdPercentage","type":"uint8"},
   {"name":"confirmationThresholdPercentage","type":"uint8"},
   {"name":"chunkLength","type":"uint32"}]}]},
 {"name":"blobVerificationProof","type":"tuple","components":[
  {"name":"batchId","type":"uint32"},
  {"name":"blobIndex","type":"uint32"},
  {"name":"batchMetadata","type":"tuple","components":[
   {"name":"batchHeader","type":"tuple","components":[
    {"name":"blobHeadersRoot","type":"bytes32"},
    {"name":"quorumNumbers","type":"bytes"},
    {"name":"signedStakeForQuorums","type":"bytes"},
    {"name":"referenceBlockNumber","type":"uint32"}]},
   {"name":"signatoryRecordHash","type":"bytes32"},
   {"name":"confirmationBlockNumber","type":"uint32"}]},
  {"name":"inclusionProof","type":"bytes"},
  {"name":"quorumIndices","type":"bytes"}]}],
 "outputs":[{"name":"","type":"bool"}]}
]`

const (
	MethodVerifyDACertV2 = "verifyDACertV2"
	MethodVerifyBlobV1   = "verifyBlobV1"
)

var verifierABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(VerifierABI))
	if err != nil {
		panic(fmt.Sprintf("cert: parse verifier abi: %v", err))
	}
	return parsed
}()

// ParsedVerifierABI returns the parsed verifier ABI.
func ParsedVerifierABI() abi.ABI {
	return verifierABI
}

// VerifierCalldata packs a verifyDACertV2 call for this certificate.
func (c *EigenDACert) VerifierCalldata() ([]byte, error) {
	cc := c.ToContract()
	data, err := verifierABI.Pack(MethodVerifyDACertV2,
		cc.BatchHeader, cc.BlobInclusionInfo, cc.NonSignerStakesAndSignature, cc.SignedQuorumNumbers)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", MethodVerifyDACertV2, err)
	}
	return data, nil
}

// VerifierCalldata packs a verifyBlobV1 call for the legacy certificate.
func (b *BlobInfo) VerifierCalldata() ([]byte, error) {
	header, proof, err := b.ToContract()
	if err != nil {
		return nil, err
	}
	data, err := verifierABI.Pack(MethodVerifyBlobV1, header, proof)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", MethodVerifyBlobV1, err)
	}
	return data, nil
}

// EncodeInclusionData ABI-encodes the verifyDACertV2 arguments without a
// selector.
func (c *EigenDACert) EncodeInclusionData() ([]byte, error) {
	cc := c.ToContract()
	data, err := verifierABI.Methods[MethodVerifyDACertV2].Inputs.Pack(
		cc.BatchHeader, cc.BlobInclusionInfo, cc.NonSignerStakesAndSignature, cc.SignedQuorumNumbers)
	if err != nil {
		return nil, fmt.Errorf("pack inclusion data: %w", err)
	}
	return data, nil
}

// DecodeInclusionData reverses EncodeInclusionData.
func DecodeInclusionData(data []byte) (*EigenDACert, error) {
	values, err := verifierABI.Methods[MethodVerifyDACertV2].Inputs.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack inclusion data: %w", err)
	}
	if len(values) != 4 {
		return nil, fmt.Errorf("unpack inclusion data: want 4 values, got %d", len(values))
	}

	cc := &CertContract{
		BatchHeader:                 *abi.ConvertType(values[0], new(BatchHeaderV2Contract)).(*BatchHeaderV2Contract),
		BlobInclusionInfo:           *abi.ConvertType(values[1], new(BlobInclusionInfoContract)).(*BlobInclusionInfoContract),
		NonSignerStakesAndSignature: *abi.ConvertType(values[2], new(NonSignerStakesAndSignatureContract)).(*NonSignerStakesAndSignatureContract),
	}
	quorums, ok := values[3].([]byte)
	if !ok {
		return nil, fmt.Errorf("unpack inclusion data: signed quorum numbers has type %T", values[3])
	}
	cc.SignedQuorumNumbers = quorums
	return FromContract(cc)
}

// UnpackVerifierResult decodes the bool returned by either verifier method.
func UnpackVerifierResult(method string, data []byte) (bool, error) {
	values, err := verifierABI.Unpack(method, data)
	if err != nil {
		return false, fmt.Errorf("unpack %s result: %w", method, err)
	}
	if len(values) != 1 {
		return false, fmt.Errorf("unpack %s result: want 1 value, got %d", method, len(values))
	}
	ok, isBool := values[0].(bool)
	if !isBool {
		return false, fmt.Errorf("unpack %s result: unexpected type %T", method, values[0])
	}
	return ok, nil
}
