package handlers

import (
	"context"
	"errors"
	"strconv"

	"eigenda-sidecar/internal/metrics"
	"eigenda-sidecar/internal/models"
	"eigenda-sidecar/internal/services"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

// JSON-RPC error codes returned by the proof API.
const (
	CodeInvalidRequest   = -32600
	CodeInvalidParams    = -32602
	CodeInternal         = -32603
	CodeAlreadySubmitted = -32010
	CodeNotFound         = -32011
	CodeQueued           = -32012
)

// APIError is a JSON-RPC error with a fixed code.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string { return e.Message }
func (e *APIError) ErrorCode() int { return e.Code }

var (
	errInvalidBlobID    = &APIError{Code: CodeInvalidParams, Message: "invalid blob id"}
	errInvalidRequest   = &APIError{Code: CodeInvalidRequest, Message: "invalid request"}
	errInternal         = &APIError{Code: CodeInternal, Message: "internal error"}
	errAlreadySubmitted = &APIError{Code: CodeAlreadySubmitted, Message: "already submitted"}
	errNotFound         = &APIError{Code: CodeNotFound, Message: "not found"}
	errQueued           = &APIError{Code: CodeQueued, Message: "proof still queued"}
)

// ProofService is the part of services.ProofRequestService the API needs.
type ProofService interface {
	Submit(ctx context.Context, blobID string) (string, error)
	Query(ctx context.Context, blobID string) (*services.QueryResult, error)
}

// ProofAPI serves generate_proof and get_proof.
type ProofAPI struct {
	svc    ProofService
	logger *logrus.Logger
}

func NewProofAPI(svc ProofService, logger *logrus.Logger) *ProofAPI {
	return &ProofAPI{svc: svc, logger: logger}
}

// NewRPCServer registers the proof API under the "generate" and "get"
// namespaces so the exposed methods are generate_proof and get_proof.
func NewRPCServer(api *ProofAPI) (*rpc.Server, error) {
	srv := rpc.NewServer()
	if err := srv.RegisterName("generate", &generateService{api}); err != nil {
		return nil, err
	}
	if err := srv.RegisterName("get", &getService{api}); err != nil {
		return nil, err
	}
	return srv, nil
}

type generateService struct{ api *ProofAPI }

// Proof queues blobID and returns its normalized form.
func (s *generateService) Proof(ctx context.Context, blobID string) (string, error) {
	id, err := s.api.svc.Submit(ctx, blobID)
	return id, s.api.finish("generate_proof", blobID, err)
}

type getService struct{ api *ProofAPI }

// Proof returns the hex artifact of a finished request.
func (s *getService) Proof(ctx context.Context, blobID string) (string, error) {
	res, err := s.api.svc.Query(ctx, blobID)
	if err != nil {
		return "", s.api.finish("get_proof", blobID, err)
	}

	switch res.State {
	case models.ProofRequestStateDone:
		return res.Proof, s.api.finish("get_proof", blobID, nil)
	case models.ProofRequestStateQueued:
		return "", s.api.finish("get_proof", blobID, errQueued)
	default:
		return "", s.api.finish("get_proof", blobID, errInvalidRequest)
	}
}

// finish maps err to an API error and records the call.
func (a *ProofAPI) finish(method, blobID string, err error) error {
	apiErr := a.toAPIError(method, blobID, err)
	code := "0"
	if apiErr != nil {
		code = strconv.Itoa(apiErr.Code)
	}
	metrics.RPCRequests.WithLabelValues(method, code).Inc()
	if apiErr == nil {
		return nil
	}
	return apiErr
}

func (a *ProofAPI) toAPIError(method, blobID string, err error) *APIError {
	var apiErr *APIError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, services.ErrInvalidBlobID):
		return errInvalidBlobID
	case errors.Is(err, services.ErrAlreadySubmitted):
		return errAlreadySubmitted
	case errors.Is(err, services.ErrNotFound):
		return errNotFound
	default:
		a.logger.WithFields(logrus.Fields{
			"method":  method,
			"blob_id": blobID,
		}).WithError(err).Error("❌ [ProofAPI] internal error")
		return errInternal
	}
}
