package cert_test

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eigenda-sidecar/internal/cert"
	"eigenda-sidecar/internal/cert/certtest"
	"eigenda-sidecar/internal/pointcodec"
)

func TestEigenDACertRLPRoundTrip(t *testing.T) {
	c := certtest.V2(certtest.Commitment(5), 16)

	data, err := c.MarshalBinary()
	require.NoError(t, err)

	var got cert.EigenDACert
	require.NoError(t, got.UnmarshalBinary(data))
	assert.Equal(t, c, &got)

	again, err := got.MarshalBinary()
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, again))
}

func TestEigenDACertRLPRejectsBadPoint(t *testing.T) {
	c := certtest.V2(certtest.Commitment(5), 16)
	data, err := c.MarshalBinary()
	require.NoError(t, err)

	// Locate the compressed commitment inside the encoding and break it.
	enc := pointcodec.EncodeG1(&c.BlobInclusionInfo.BlobCertificate.BlobHeader.Commitment.Commitment)
	idx := bytes.Index(data, enc[:])
	require.GreaterOrEqual(t, idx, 0)
	data[idx] &^= pointcodec.FlagMask

	var got cert.EigenDACert
	err = got.UnmarshalBinary(data)
	assert.ErrorIs(t, err, pointcodec.ErrInvalidFlag)
}

func TestCertificateVersions(t *testing.T) {
	v2 := cert.NewV2(certtest.V2(certtest.Commitment(3), 8))
	data, err := v2.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, byte(cert.V2), data[0])

	got, err := cert.UnmarshalCertificate(data)
	require.NoError(t, err)
	assert.Equal(t, cert.V2, got.Version)
	assert.Equal(t, uint32(8), got.BlobLength())
	assert.Equal(t, []uint32{0, 2}, got.RelayKeys())

	com, err := got.Commitment()
	require.NoError(t, err)
	want := certtest.Commitment(3)
	assert.True(t, com.Equal(&want))

	v1 := cert.NewV1(certtest.V1(certtest.Commitment(9), 12))
	data, err = v1.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, byte(cert.V1), data[0])

	got, err = cert.UnmarshalCertificate(data)
	require.NoError(t, err)
	assert.Equal(t, cert.V1, got.Version)
	assert.Equal(t, v1.V1Cert, got.V1Cert)
	assert.Equal(t, uint32(12), got.BlobLength())
	assert.Nil(t, got.RelayKeys())
}

func TestUnmarshalCertificateErrors(t *testing.T) {
	_, err := cert.UnmarshalCertificate(nil)
	assert.ErrorIs(t, err, cert.ErrEmptyCertificate)

	_, err = cert.UnmarshalCertificate([]byte{0x7f, 0xc0})
	assert.ErrorIs(t, err, cert.ErrUnknownVersion)

	bad := certtest.V1(certtest.Commitment(9), 12)
	bad.BlobHeader.Commitment.Y[31] ^= 1
	_, err = cert.NewV1(bad).MarshalBinary()
	require.NoError(t, err, "encoding does not validate raw coordinates")

	data, _ := cert.NewV1(bad).MarshalBinary()
	_, err = cert.UnmarshalCertificate(data)
	assert.ErrorIs(t, err, pointcodec.ErrNotOnCurve)

	_, err = (&cert.Certificate{Version: cert.V2}).MarshalBinary()
	assert.ErrorIs(t, err, cert.ErrVersionMismatch)
}

func TestContractRoundTrip(t *testing.T) {
	c := certtest.V2(certtest.Commitment(21), 32)
	got, err := cert.FromContract(c.ToContract())
	require.NoError(t, err)
	assert.Equal(t, c, got)

	cc := c.ToContract()
	// G2 coordinates are laid out as [c1, c0].
	lc := c.BlobInclusionInfo.BlobCertificate.BlobHeader.Commitment.LengthCommitment
	a1 := lc.X.A1.Bytes()
	assert.Equal(t, a1[:], cc.BlobInclusionInfo.BlobCertificate.BlobHeader.Commitment.LengthCommitment.X[0].FillBytes(make([]byte, 32)))
}

func TestInclusionDataRoundTrip(t *testing.T) {
	c := certtest.V2(certtest.Commitment(21), 32)
	data, err := c.EncodeInclusionData()
	require.NoError(t, err)

	got, err := cert.DecodeInclusionData(data)
	require.NoError(t, err)
	assert.Equal(t, c, got)

	_, err = cert.DecodeInclusionData(data[:64])
	assert.Error(t, err)
}

func TestVerifierCalldata(t *testing.T) {
	verifier := cert.ParsedVerifierABI()

	v2 := cert.NewV2(certtest.V2(certtest.Commitment(2), 4))
	data, err := v2.VerifierCalldata()
	require.NoError(t, err)
	assert.Equal(t, verifier.Methods[cert.MethodVerifyDACertV2].ID, data[:4])
	assert.Equal(t, cert.MethodVerifyDACertV2, v2.VerifierMethod())

	inclusion, err := v2.V2Cert.EncodeInclusionData()
	require.NoError(t, err)
	assert.Equal(t, inclusion, data[4:])

	v1 := cert.NewV1(certtest.V1(certtest.Commitment(2), 4))
	data, err = v1.VerifierCalldata()
	require.NoError(t, err)
	assert.Equal(t, verifier.Methods[cert.MethodVerifyBlobV1].ID, data[:4])
	assert.Equal(t, cert.MethodVerifyBlobV1, v1.VerifierMethod())
}

func TestUnpackVerifierResult(t *testing.T) {
	ok, err := cert.UnpackVerifierResult(cert.MethodVerifyDACertV2, hexutil.MustDecode("0x0000000000000000000000000000000000000000000000000000000000000001"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cert.UnpackVerifierResult(cert.MethodVerifyBlobV1, make([]byte, 32))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = cert.UnpackVerifierResult(cert.MethodVerifyBlobV1, nil)
	assert.Error(t, err)
}
