package kzg

import (
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePayloadLayout(t *testing.T) {
	payload := testPayload(40)
	elems, err := EncodePayload(payload)
	require.NoError(t, err)
	require.Len(t, elems, 3)

	header := elems[0].Bytes()
	assert.Equal(t, []byte{0x00, PayloadEncodingVersion0, 0, 0, 0, 40}, header[:6])

	first := elems[1].Bytes()
	assert.Equal(t, byte(0), first[0])
	assert.Equal(t, payload[:31], first[1:])

	second := elems[2].Bytes()
	assert.Equal(t, payload[31:], second[1:10])
	assert.Equal(t, make([]byte, 22), second[10:])

	raw := ElementsToBytes(elems)
	assert.Len(t, raw, 3*BytesPerSymbol)
}

func TestPayloadRoundTrip(t *testing.T) {
	for _, size := range []int{1, 30, 31, 32, 62, 1000} {
		payload := testPayload(size)
		elems, err := EncodePayload(payload)
		require.NoError(t, err)

		// Zero padding up to the domain size does not change the payload.
		padded := append(elems, make([]fr.Element, int(nextPowerOfTwo(uint64(len(elems))))-len(elems))...)
		got, err := DecodePayload(padded)
		require.NoError(t, err)
		assert.Equal(t, payload, got, "size %d", size)
	}
}

func TestParsePayloadForm(t *testing.T) {
	f, err := ParsePayloadForm("")
	require.NoError(t, err)
	assert.Equal(t, FormCoeff, f)

	f, err = ParsePayloadForm("Eval")
	require.NoError(t, err)
	assert.Equal(t, FormEval, f)

	_, err = ParsePayloadForm("monomial")
	assert.Error(t, err)
}

func TestNextPowerOfTwo(t *testing.T) {
	assert.Equal(t, uint64(1), nextPowerOfTwo(0))
	assert.Equal(t, uint64(1), nextPowerOfTwo(1))
	assert.Equal(t, uint64(2), nextPowerOfTwo(2))
	assert.Equal(t, uint64(8), nextPowerOfTwo(5))
	assert.Equal(t, uint64(1024), nextPowerOfTwo(1024))
}
