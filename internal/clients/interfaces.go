package clients

import (
	"context"
	"errors"
	"math/big"

	"eigenda-sidecar/internal/cert"

	"github.com/ethereum/go-ethereum"
)

// ErrNotYetAvailable is returned by a Resolver while the certificate for a
// blob id does not exist upstream yet.
var ErrNotYetAvailable = errors.New("certificate not yet available")

//go:generate mockgen -destination=mock/clients_mock.go -package=mock_clients . Resolver,Retriever,Prover,CertVerifier,Notifier,ContractCaller

// Resolver turns a blob id into its certificate.
type Resolver interface {
	GetCertificate(ctx context.Context, blobID string) (*cert.Certificate, error)
}

// Retriever fetches the payload a certificate commits to.
type Retriever interface {
	GetPayload(ctx context.Context, c *cert.Certificate) ([]byte, error)
}

// Prover runs the proving backend.
type Prover interface {
	Prove(ctx context.Context, req *ProveRequest) (*ProveResponse, error)
}

// CertVerifier checks a certificate against the on-chain verifier.
type CertVerifier interface {
	VerifyCertificate(ctx context.Context, c *cert.Certificate) (bool, error)
}

// Notifier publishes terminal proof events.
type Notifier interface {
	Publish(ctx context.Context, ev ProofEvent) error
}

// ContractCaller is the read-only subset of ethclient used for eth_call.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}
