package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"eigenda-sidecar/internal/cert"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

// ResolverClient asks a node's JSON-RPC endpoint for the certificate of a
// blob id.
type ResolverClient struct {
	client *rpc.Client
	method string
	logger *logrus.Logger
}

// certificateResult is the JSON-RPC result shape. A node reports either the
// serialized certificate or the ABI-encoded V2 inclusion data.
type certificateResult struct {
	Certificate   flexBytes `json:"certificate"`
	InclusionData flexBytes `json:"inclusionData"`
}

// flexBytes accepts a 0x-hex string or a JSON array of byte values.
type flexBytes []byte

func (b *flexBytes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*b = nil
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var values []uint8
		if err := json.Unmarshal(data, &values); err != nil {
			return err
		}
		*b = values
		return nil
	}
	var h hexutil.Bytes
	if err := json.Unmarshal(data, &h); err != nil {
		return err
	}
	*b = flexBytes(h)
	return nil
}

// NewResolverClient dials endpoint.
func NewResolverClient(ctx context.Context, endpoint, method string, logger *logrus.Logger) (*ResolverClient, error) {
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("dial resolver %s: %w", endpoint, err)
	}
	logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"method":   method,
	}).Info("🔧 [Resolver] client created")
	return &ResolverClient{client: client, method: method, logger: logger}, nil
}

func (c *ResolverClient) GetCertificate(ctx context.Context, blobID string) (*cert.Certificate, error) {
	var raw json.RawMessage
	if err := c.client.CallContext(ctx, &raw, c.method, "0x"+strings.TrimPrefix(blobID, "0x")); err != nil {
		return nil, fmt.Errorf("%s: %w", c.method, err)
	}
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, ErrNotYetAvailable
	}

	var result certificateResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode %s result: %w", c.method, err)
	}

	switch {
	case len(result.Certificate) > 0:
		return cert.UnmarshalCertificate(result.Certificate)
	case len(result.InclusionData) > 0:
		v2, err := cert.DecodeInclusionData(result.InclusionData)
		if err != nil {
			return nil, err
		}
		return cert.NewV2(v2), nil
	default:
		// the node knows the blob but has not attached its certificate yet
		return nil, ErrNotYetAvailable
	}
}

func (c *ResolverClient) Close() {
	c.client.Close()
}
