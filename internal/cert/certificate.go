package cert

import (
	"errors"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/ethereum/go-ethereum/rlp"
)

// Version tags the certificate layout in its serialized form.
type Version byte

const (
	V1 Version = 0x01
	V2 Version = 0x02
)

func (v Version) String() string {
	switch v {
	case V1:
		return "v1"
	case V2:
		return "v2"
	default:
		return fmt.Sprintf("unknown(%#02x)", byte(v))
	}
}

var (
	ErrUnknownVersion   = errors.New("unknown certificate version")
	ErrEmptyCertificate = errors.New("empty certificate")
	ErrVersionMismatch  = errors.New("certificate body does not match its version")
)

// Certificate is either a legacy BlobInfo or an EigenDACert. Exactly one of
// V1Cert and V2Cert is set, according to Version.
type Certificate struct {
	Version Version
	V1Cert  *BlobInfo
	V2Cert  *EigenDACert
}

func NewV1(b *BlobInfo) *Certificate {
	return &Certificate{Version: V1, V1Cert: b}
}

func NewV2(c *EigenDACert) *Certificate {
	return &Certificate{Version: V2, V2Cert: c}
}

func (c *Certificate) validate() error {
	switch c.Version {
	case V1:
		if c.V1Cert == nil || c.V2Cert != nil {
			return fmt.Errorf("%w: %s", ErrVersionMismatch, c.Version)
		}
	case V2:
		if c.V2Cert == nil || c.V1Cert != nil {
			return fmt.Errorf("%w: %s", ErrVersionMismatch, c.Version)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownVersion, c.Version)
	}
	return nil
}

// Commitment returns the blob commitment the certificate claims.
func (c *Certificate) Commitment() (bn254.G1Affine, error) {
	if err := c.validate(); err != nil {
		return bn254.G1Affine{}, err
	}
	if c.Version == V1 {
		return c.V1Cert.Commitment()
	}
	return c.V2Cert.Commitment(), nil
}

// BlobLength returns the claimed blob length in field elements, or zero
// when unknown.
func (c *Certificate) BlobLength() uint32 {
	switch {
	case c.Version == V1 && c.V1Cert != nil:
		return c.V1Cert.BlobLength()
	case c.Version == V2 && c.V2Cert != nil:
		return c.V2Cert.BlobLength()
	}
	return 0
}

// RelayKeys returns the relays holding the blob. Legacy certificates do not
// name relays.
func (c *Certificate) RelayKeys() []uint32 {
	if c.Version == V2 && c.V2Cert != nil {
		return c.V2Cert.RelayKeys()
	}
	return nil
}

// VerifierCalldata packs the verifier call matching the certificate version.
func (c *Certificate) VerifierCalldata() ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if c.Version == V1 {
		return c.V1Cert.VerifierCalldata()
	}
	return c.V2Cert.VerifierCalldata()
}

// VerifierMethod names the verifier function VerifierCalldata targets.
func (c *Certificate) VerifierMethod() string {
	if c.Version == V1 {
		return MethodVerifyBlobV1
	}
	return MethodVerifyDACertV2
}

// MarshalBinary encodes the certificate as version byte || RLP body.
func (c *Certificate) MarshalBinary() ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	var (
		body []byte
		err  error
	)
	if c.Version == V1 {
		body, err = rlp.EncodeToBytes(c.V1Cert)
	} else {
		body, err = c.V2Cert.MarshalBinary()
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s certificate: %w", c.Version, err)
	}
	return append([]byte{byte(c.Version)}, body...), nil
}

// UnmarshalCertificate decodes the output of MarshalBinary.
func UnmarshalCertificate(data []byte) (*Certificate, error) {
	if len(data) == 0 {
		return nil, ErrEmptyCertificate
	}
	switch v := Version(data[0]); v {
	case V1:
		var info BlobInfo
		if err := rlp.DecodeBytes(data[1:], &info); err != nil {
			return nil, fmt.Errorf("decode v1 certificate: %w", err)
		}
		if _, err := info.Commitment(); err != nil {
			return nil, err
		}
		return NewV1(&info), nil
	case V2:
		var c EigenDACert
		if err := c.UnmarshalBinary(data[1:]); err != nil {
			return nil, err
		}
		return NewV2(&c), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownVersion, v)
	}
}
