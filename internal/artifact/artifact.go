// Package artifact encodes the proof artifact stored for each completed
// request.
package artifact

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Artifact is the prover output for one blob: the opaque seal, the image id
// of the verification program, the digest of its journal, and the keccak256
// of the verified payload.
type Artifact struct {
	Seal          []byte
	ImageID       [32]byte
	JournalDigest [32]byte
	PayloadHash   [32]byte
}

var arguments = func() abi.Arguments {
	bytesT, err := abi.NewType("bytes", "", nil)
	if err != nil {
		panic(err)
	}
	bytes32T, err := abi.NewType("bytes32", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{
		{Name: "seal", Type: bytesT},
		{Name: "imageId", Type: bytes32T},
		{Name: "journalDigest", Type: bytes32T},
		{Name: "payloadHash", Type: bytes32T},
	}
}()

// PayloadHash returns keccak256(payload).
func PayloadHash(payload []byte) [32]byte {
	return crypto.Keccak256Hash(payload)
}

// Marshal ABI-encodes the artifact as (bytes, bytes32, bytes32, bytes32).
func (a *Artifact) Marshal() ([]byte, error) {
	seal := a.Seal
	if seal == nil {
		seal = []byte{}
	}
	data, err := arguments.Pack(seal, a.ImageID, a.JournalDigest, a.PayloadHash)
	if err != nil {
		return nil, fmt.Errorf("pack artifact: %w", err)
	}
	return data, nil
}

// Encode returns the 0x-prefixed hex of Marshal.
func (a *Artifact) Encode() (string, error) {
	data, err := a.Marshal()
	if err != nil {
		return "", err
	}
	return hexutil.Encode(data), nil
}

// Unmarshal decodes the ABI form.
func Unmarshal(data []byte) (*Artifact, error) {
	values, err := arguments.Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack artifact: %w", err)
	}
	if len(values) != len(arguments) {
		return nil, fmt.Errorf("unpack artifact: want %d values, got %d", len(arguments), len(values))
	}

	out := &Artifact{}
	var ok bool
	if out.Seal, ok = values[0].([]byte); !ok {
		return nil, fmt.Errorf("unpack artifact: seal has type %T", values[0])
	}
	for i, dst := range []*[32]byte{&out.ImageID, &out.JournalDigest, &out.PayloadHash} {
		v, ok := values[i+1].([32]byte)
		if !ok {
			return nil, fmt.Errorf("unpack artifact: %s has type %T", arguments[i+1].Name, values[i+1])
		}
		*dst = v
	}
	return out, nil
}

// Decode parses the hex form produced by Encode.
func Decode(s string) (*Artifact, error) {
	data, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode artifact hex: %w", err)
	}
	return Unmarshal(data)
}
