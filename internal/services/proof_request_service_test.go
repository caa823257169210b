package services

import (
	"context"
	"strings"
	"testing"

	"eigenda-sidecar/internal/models"
	"eigenda-sidecar/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBlobID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "abc123", want: "abc123"},
		{in: "0xABC123", want: "abc123"},
		{in: "0XaBc123", want: "abc123"},
		{in: " 0x01 ", want: "01"},
		{in: strings.Repeat("ff", MaxBlobIDBytes), want: strings.Repeat("ff", MaxBlobIDBytes)},
		{in: "", wantErr: true},
		{in: "0x", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "zz", wantErr: true},
		{in: strings.Repeat("ff", MaxBlobIDBytes+1), wantErr: true},
	}
	for _, tt := range tests {
		got, err := NormalizeBlobID(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidBlobID, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestSubmitAndQuery(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc, err := NewProofRequestService(repo, 8, quietLogger())
	require.NoError(t, err)

	id, err := svc.Submit(ctx, "0xABC123")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	// same id in another spelling is a duplicate
	_, err = svc.Submit(ctx, "abc123")
	assert.ErrorIs(t, err, ErrAlreadySubmitted)

	_, err = svc.Submit(ctx, "not-hex")
	assert.ErrorIs(t, err, ErrInvalidBlobID)

	res, err := svc.Query(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, models.ProofRequestStateQueued, res.State)
	assert.Empty(t, res.Proof)

	_, err = svc.Query(ctx, "ffff")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Query(ctx, "xyz")
	assert.ErrorIs(t, err, ErrInvalidBlobID)

	require.NoError(t, repo.MarkDone(ctx, "abc123", "0xdeadbeef"))
	res, err = svc.Query(ctx, "0xabc123")
	require.NoError(t, err)
	assert.Equal(t, models.ProofRequestStateDone, res.State)
	assert.Equal(t, "0xdeadbeef", res.Proof)
}

func TestQueryCachesTerminalResults(t *testing.T) {
	ctx := context.Background()
	repo := &countingRepo{ProofRequestRepository: newTestRepo(t)}
	svc, err := NewProofRequestService(repo, 8, quietLogger())
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "01")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := svc.Query(ctx, "01")
		require.NoError(t, err)
		assert.Equal(t, models.ProofRequestStateQueued, res.State)
	}
	assert.Equal(t, 3, repo.gets)

	require.NoError(t, repo.MarkFailed(ctx, "01", "commitment mismatch"))
	for i := 0; i < 3; i++ {
		res, err := svc.Query(ctx, "01")
		require.NoError(t, err)
		assert.Equal(t, models.ProofRequestStateFailed, res.State)
		assert.Equal(t, "commitment mismatch", res.FailureReason)
	}
	assert.Equal(t, 4, repo.gets)
}

type countingRepo struct {
	repository.ProofRequestRepository
	gets int
}

func (r *countingRepo) GetByBlobID(ctx context.Context, blobID string) (*models.ProofRequest, error) {
	r.gets++
	return r.ProofRequestRepository.GetByBlobID(ctx, blobID)
}
