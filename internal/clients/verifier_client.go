package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eigenda-sidecar/internal/cert"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

// VerifierClient runs the cert verifier contract through eth_call.
type VerifierClient struct {
	caller   ContractCaller
	verifier common.Address
	from     common.Address
	logger   *logrus.Logger
}

// NewVerifierClient wraps an existing caller.
func NewVerifierClient(caller ContractCaller, verifier, from common.Address, logger *logrus.Logger) *VerifierClient {
	return &VerifierClient{caller: caller, verifier: verifier, from: from, logger: logger}
}

// DialVerifierClient connects to an execution client at endpoint.
func DialVerifierClient(ctx context.Context, endpoint string, verifier, from common.Address, logger *logrus.Logger) (*VerifierClient, *ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("dial verifier rpc %s: %w", endpoint, err)
	}
	logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"verifier": verifier.Hex(),
	}).Info("🔧 [Verifier] client created")
	return NewVerifierClient(client, verifier, from, logger), client, nil
}

// VerifyCertificate returns false when the verifier rejects or reverts.
func (c *VerifierClient) VerifyCertificate(ctx context.Context, crt *cert.Certificate) (bool, error) {
	calldata, err := crt.VerifierCalldata()
	if err != nil {
		return false, err
	}

	msg := ethereum.CallMsg{
		From: c.from,
		To:   &c.verifier,
		Data: calldata,
	}
	out, err := c.caller.CallContract(ctx, msg, nil)
	if err != nil {
		if isRevert(err) {
			c.logger.WithError(err).WithField("method", crt.VerifierMethod()).Warn("[Verifier] certificate rejected")
			return false, nil
		}
		return false, fmt.Errorf("eth_call %s: %w", crt.VerifierMethod(), err)
	}
	return cert.UnpackVerifierResult(crt.VerifierMethod(), out)
}

func isRevert(err error) bool {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(err.Error(), "execution reverted")
}
