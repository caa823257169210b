package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eigenda-sidecar/internal/cert"
	"eigenda-sidecar/internal/cert/certtest"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestRetrieverGetPayload(t *testing.T) {
	crt := cert.NewV2(certtest.V2(certtest.Commitment(3), 16))
	encoded, err := crt.MarshalBinary()
	require.NoError(t, err)
	wantPath := "/get/" + hexutil.Encode(append([]byte{0x01}, encoded[1:]...))

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, wantPath, r.URL.Path)
		assert.Equal(t, "standard", r.URL.Query().Get("commitment_mode"))
		_, _ = w.Write([]byte("payload bytes"))
	}))
	defer ts.Close()

	c := NewRetrieverClient(ts.URL+"/", time.Second, []uint32{2}, quietLogger())
	got, err := c.GetPayload(context.Background(), crt)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload bytes"), got)
}

func TestRetrieverV1CommitmentPrefix(t *testing.T) {
	crt := cert.NewV1(certtest.V1(certtest.Commitment(3), 10))
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/get/0x00"), r.URL.Path)
		_, _ = w.Write([]byte{1})
	}))
	defer ts.Close()

	// relay allow-list does not apply to legacy certificates
	c := NewRetrieverClient(ts.URL, time.Second, []uint32{99}, quietLogger())
	_, err := c.GetPayload(context.Background(), crt)
	require.NoError(t, err)
}

func TestRetrieverErrors(t *testing.T) {
	crt := cert.NewV2(certtest.V2(certtest.Commitment(3), 16))

	c := NewRetrieverClient("http://127.0.0.1:1", time.Second, []uint32{7}, quietLogger())
	_, err := c.GetPayload(context.Background(), crt)
	assert.ErrorIs(t, err, ErrNoAllowedRelay)

	status := http.StatusNotFound
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer ts.Close()

	c = NewRetrieverClient(ts.URL, time.Second, nil, quietLogger())
	_, err = c.GetPayload(context.Background(), crt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")

	status = http.StatusOK
	_, err = c.GetPayload(context.Background(), crt)
	assert.ErrorIs(t, err, ErrEmptyPayload)
}
