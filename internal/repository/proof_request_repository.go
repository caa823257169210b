// Package repository provides data access interfaces and implementations
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eigenda-sidecar/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAlreadySubmitted = errors.New("already submitted")
	ErrNotFound         = errors.New("proof request not found")
	ErrAlreadyTerminal  = errors.New("proof request already done or failed")
)

// StateCounts rows per derived state
type StateCounts struct {
	Queued int64
	Done   int64
	Failed int64
}

// ProofRequestRepository defines the interface for ProofRequest data access.
//
// Every mutation is a single statement. Uniqueness of blob_id is enforced by
// the table's unique index and terminal rows are never rewritten.
type ProofRequestRepository interface {
	Create(ctx context.Context, blobID string) error
	GetByBlobID(ctx context.Context, blobID string) (*models.ProofRequest, error)
	// NextQueued returns the oldest queued row, or nil when the queue is empty.
	NextQueued(ctx context.Context) (*models.ProofRequest, error)
	MarkDone(ctx context.Context, blobID, proof string) error
	MarkFailed(ctx context.Context, blobID, reason string) error
	CountByState(ctx context.Context) (StateCounts, error)
}

// proofRequestRepository implements ProofRequestRepository
type proofRequestRepository struct {
	db *gorm.DB
}

// NewProofRequestRepository creates a new ProofRequestRepository instance
func NewProofRequestRepository(db *gorm.DB) ProofRequestRepository {
	return &proofRequestRepository{db: db}
}

// Create inserts a queued row for blobID
func (r *proofRequestRepository) Create(ctx context.Context, blobID string) error {
	row := &models.ProofRequest{BlobID: blobID}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "blob_id"}},
			DoNothing: true,
		}).
		Create(row)
	if result.Error != nil {
		return fmt.Errorf("insert proof request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlreadySubmitted
	}
	return nil
}

// GetByBlobID retrieves a row by blob id
func (r *proofRequestRepository) GetByBlobID(ctx context.Context, blobID string) (*models.ProofRequest, error) {
	var row models.ProofRequest
	err := r.db.WithContext(ctx).Where("blob_id = ?", blobID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

func (r *proofRequestRepository) NextQueued(ctx context.Context) (*models.ProofRequest, error) {
	var rows []models.ProofRequest
	err := r.db.WithContext(ctx).
		Where("proof IS NULL AND failed = ?", false).
		Order("id ASC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *proofRequestRepository) MarkDone(ctx context.Context, blobID, proof string) error {
	return r.finish(ctx, blobID, map[string]interface{}{
		"proof":      proof,
		"updated_at": time.Now(),
	})
}

func (r *proofRequestRepository) MarkFailed(ctx context.Context, blobID, reason string) error {
	return r.finish(ctx, blobID, map[string]interface{}{
		"failed":         true,
		"failure_reason": reason,
		"updated_at":     time.Now(),
	})
}

// finish applies a terminal update only while the row is still queued.
func (r *proofRequestRepository) finish(ctx context.Context, blobID string, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).
		Model(&models.ProofRequest{}).
		Where("blob_id = ? AND proof IS NULL AND failed = ?", blobID, false).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("update proof request: %w", result.Error)
	}
	if result.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProofRequest{}).Where("blob_id = ?", blobID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrAlreadyTerminal
}

func (r *proofRequestRepository) CountByState(ctx context.Context) (StateCounts, error) {
	var rows []struct {
		State string
		N     int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.ProofRequest{}).
		Select("CASE WHEN proof IS NOT NULL THEN 'done' WHEN failed THEN 'failed' ELSE 'queued' END AS state, COUNT(*) AS n").
		Group("state").
		Scan(&rows).Error
	if err != nil {
		return StateCounts{}, err
	}

	var counts StateCounts
	for _, row := range rows {
		switch models.ProofRequestState(row.State) {
		case models.ProofRequestStateDone:
			counts.Done = row.N
		case models.ProofRequestStateFailed:
			counts.Failed = row.N
		default:
			counts.Queued = row.N
		}
	}
	return counts, nil
}
