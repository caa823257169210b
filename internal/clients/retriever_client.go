package clients

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eigenda-sidecar/internal/cert"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoAllowedRelay = errors.New("certificate names no allowed relay")
	ErrEmptyPayload   = errors.New("retriever returned an empty payload")
)

// eigenda-proxy commitment version bytes in standard commitment mode
const (
	proxyCertV0 byte = 0x00 // legacy BlobInfo
	proxyCertV1 byte = 0x01 // EigenDACert
)

// RetrieverClient reads payloads through an eigenda-proxy.
type RetrieverClient struct {
	BaseURL   string
	Client    *http.Client
	relayKeys map[uint32]struct{}
	logger    *logrus.Logger
}

// NewRetrieverClient creates a retriever. relayKeys, when non-empty, limits
// retrieval to certificates naming at least one of those relays.
func NewRetrieverClient(baseURL string, timeout time.Duration, relayKeys []uint32, logger *logrus.Logger) *RetrieverClient {
	allowed := make(map[uint32]struct{}, len(relayKeys))
	for _, k := range relayKeys {
		allowed[k] = struct{}{}
	}
	logger.WithFields(logrus.Fields{
		"base_url":   baseURL,
		"timeout":    timeout,
		"relay_keys": relayKeys,
	}).Info("🔧 [Retriever] client created")
	return &RetrieverClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		Client:    &http.Client{Timeout: timeout},
		relayKeys: allowed,
		logger:    logger,
	}
}

// commitmentHex is the proxy's standard-mode commitment for c.
func commitmentHex(c *cert.Certificate) (string, error) {
	encoded, err := c.MarshalBinary()
	if err != nil {
		return "", err
	}
	prefix := proxyCertV1
	if c.Version == cert.V1 {
		prefix = proxyCertV0
	}
	encoded[0] = prefix
	return hexutil.Encode(encoded), nil
}

func (c *RetrieverClient) checkRelays(crt *cert.Certificate) error {
	if len(c.relayKeys) == 0 || crt.Version != cert.V2 {
		return nil
	}
	for _, k := range crt.RelayKeys() {
		if _, ok := c.relayKeys[k]; ok {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrNoAllowedRelay, crt.RelayKeys())
}

func (c *RetrieverClient) GetPayload(ctx context.Context, crt *cert.Certificate) ([]byte, error) {
	if err := c.checkRelays(crt); err != nil {
		return nil, err
	}
	commitment, err := commitmentHex(crt)
	if err != nil {
		return nil, fmt.Errorf("encode commitment: %w", err)
	}

	url := fmt.Sprintf("%s/get/%s?commitment_mode=standard", c.BaseURL, commitment)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   truncate(string(body), 256),
		}).Warn("❌ [Retriever] payload request failed")
		return nil, fmt.Errorf("proxy returned error (status %d): %s", resp.StatusCode, truncate(string(body), 256))
	}
	if len(body) == 0 {
		return nil, ErrEmptyPayload
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
