package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"eigenda-sidecar/internal/metrics"
	"eigenda-sidecar/internal/models"
	"eigenda-sidecar/internal/repository"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// MaxBlobIDBytes bounds the decoded length of a blob id.
const MaxBlobIDBytes = 64

var (
	ErrInvalidBlobID    = errors.New("invalid blob id")
	ErrAlreadySubmitted = repository.ErrAlreadySubmitted
	ErrNotFound         = repository.ErrNotFound
)

// QueryResult is the state of one request. Proof is set when State is done.
type QueryResult struct {
	State         models.ProofRequestState
	Proof         string
	FailureReason string
}

// ProofRequestService is the submit/query surface in front of the store.
// It is safe for concurrent use.
type ProofRequestService struct {
	repo   repository.ProofRequestRepository
	cache  *lru.Cache[string, *QueryResult]
	logger *logrus.Logger
}

// NewProofRequestService cacheSize bounds the number of terminal results
// kept in memory.
func NewProofRequestService(repo repository.ProofRequestRepository, cacheSize int, logger *logrus.Logger) (*ProofRequestService, error) {
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, err := lru.New[string, *QueryResult](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	return &ProofRequestService{repo: repo, cache: cache, logger: logger}, nil
}

// NormalizeBlobID strips an optional 0x prefix and lowercases the id. The
// id must be non-empty even-length hex of at most MaxBlobIDBytes bytes.
func NormalizeBlobID(id string) (string, error) {
	s := strings.TrimSpace(id)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	s = strings.ToLower(s)
	if s == "" || len(s)%2 != 0 || len(s)/2 > MaxBlobIDBytes {
		return "", fmt.Errorf("%w: %q", ErrInvalidBlobID, id)
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidBlobID, id)
	}
	return s, nil
}

// Submit queues blobID and returns its normalized form. It does not wait for
// the proof.
func (s *ProofRequestService) Submit(ctx context.Context, blobID string) (string, error) {
	id, err := NormalizeBlobID(blobID)
	if err != nil {
		return "", err
	}
	if err := s.repo.Create(ctx, id); err != nil {
		return "", err
	}
	metrics.RequestsSubmitted.Inc()
	s.logger.WithField("blob_id", id).Info("📥 [ProofRequest] queued")
	return id, nil
}

// Query returns the request state, or ErrNotFound.
func (s *ProofRequestService) Query(ctx context.Context, blobID string) (*QueryResult, error) {
	id, err := NormalizeBlobID(blobID)
	if err != nil {
		return nil, err
	}
	if res, ok := s.cache.Get(id); ok {
		return res, nil
	}

	row, err := s.repo.GetByBlobID(ctx, id)
	if err != nil {
		return nil, err
	}

	res := &QueryResult{State: row.State(), FailureReason: row.FailureReason}
	if row.Proof != nil {
		res.Proof = *row.Proof
	}
	// terminal rows never change, queued ones must be re-read
	if res.State != models.ProofRequestStateQueued {
		s.cache.Add(id, res)
	}
	return res, nil
}
