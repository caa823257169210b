package kzg

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

const (
	// BytesPerSymbol is the size of one encoded field element.
	BytesPerSymbol = fr.Bytes
	// bytesPerChunk is the payload bytes carried by one field element; the
	// leading zero byte keeps every element below the field modulus.
	bytesPerChunk = BytesPerSymbol - 1

	PayloadEncodingVersion0 byte = 0x00
)

var ErrEmptyPayload = errors.New("payload is empty")

// PayloadForm says how the encoded payload's field elements are
// interpreted when building the blob polynomial.
type PayloadForm int

const (
	// FormCoeff treats the elements as polynomial coefficients.
	FormCoeff PayloadForm = iota
	// FormEval treats the elements as evaluations over the blob's domain.
	FormEval
)

func (f PayloadForm) String() string {
	if f == FormEval {
		return "eval"
	}
	return "coeff"
}

// ParsePayloadForm accepts "coeff" (the default for "") and "eval".
func ParsePayloadForm(s string) (PayloadForm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "coeff", "coefficient":
		return FormCoeff, nil
	case "eval", "evaluation":
		return FormEval, nil
	default:
		return FormCoeff, fmt.Errorf("unknown payload form %q", s)
	}
}

// EncodePayload maps payload bytes to field elements: a header element
// [0x00, version, uint32 big-endian length, zero padding] followed by the
// payload in 31-byte chunks, each prefixed with a zero byte.
func EncodePayload(payload []byte) ([]fr.Element, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	if uint64(len(payload)) > uint64(^uint32(0)) {
		return nil, fmt.Errorf("payload of %d bytes exceeds the length header", len(payload))
	}

	chunks := (len(payload) + bytesPerChunk - 1) / bytesPerChunk
	out := make([]fr.Element, 1+chunks)

	var header [BytesPerSymbol]byte
	header[1] = PayloadEncodingVersion0
	binary.BigEndian.PutUint32(header[2:6], uint32(len(payload)))
	if err := out[0].SetBytesCanonical(header[:]); err != nil {
		return nil, fmt.Errorf("encode payload header: %w", err)
	}

	var buf [BytesPerSymbol]byte
	for i := 0; i < chunks; i++ {
		buf = [BytesPerSymbol]byte{}
		end := (i + 1) * bytesPerChunk
		if end > len(payload) {
			end = len(payload)
		}
		copy(buf[1:], payload[i*bytesPerChunk:end])
		if err := out[1+i].SetBytesCanonical(buf[:]); err != nil {
			return nil, fmt.Errorf("encode payload chunk %d: %w", i, err)
		}
	}
	return out, nil
}

// DecodePayload reverses EncodePayload, ignoring trailing zero padding.
func DecodePayload(elems []fr.Element) ([]byte, error) {
	if len(elems) == 0 {
		return nil, ErrEmptyPayload
	}
	header := elems[0].Bytes()
	if header[0] != 0 || header[1] != PayloadEncodingVersion0 {
		return nil, fmt.Errorf("unsupported payload header %x", header[:2])
	}
	length := int(binary.BigEndian.Uint32(header[2:6]))
	chunks := (length + bytesPerChunk - 1) / bytesPerChunk
	if 1+chunks > len(elems) {
		return nil, fmt.Errorf("payload claims %d bytes but only %d elements follow", length, len(elems)-1)
	}

	out := make([]byte, 0, chunks*bytesPerChunk)
	for i := 1; i <= chunks; i++ {
		b := elems[i].Bytes()
		out = append(out, b[1:]...)
	}
	return out[:length], nil
}

// ElementsToBytes serializes elements as consecutive 32-byte big-endian
// values.
func ElementsToBytes(elems []fr.Element) []byte {
	out := make([]byte, 0, len(elems)*BytesPerSymbol)
	for i := range elems {
		b := elems[i].Bytes()
		out = append(out, b[:]...)
	}
	return out
}

// nextPowerOfTwo returns the smallest power of two >= n (1 for n == 0).
func nextPowerOfTwo(n uint64) uint64 {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len64(n-1)
}
