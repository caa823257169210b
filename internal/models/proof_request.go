package models

import (
	"time"
)

// ProofRequestState is derived from the persisted columns, never stored.
type ProofRequestState string

const (
	ProofRequestStateQueued ProofRequestState = "queued"
	ProofRequestStateDone   ProofRequestState = "done"
	ProofRequestStateFailed ProofRequestState = "failed"
)

// ProofRequest one proof request per blob id
//
// A row is queued while Proof is NULL and Failed is false. The worker moves
// it to done (Proof set) or failed exactly once.
type ProofRequest struct {
	ID     uint64  `json:"id" gorm:"primaryKey;autoIncrement"`
	BlobID string  `json:"blob_id" gorm:"type:varchar(130);not null;uniqueIndex"`
	Proof  *string `json:"proof,omitempty" gorm:"type:text"`
	Failed bool    `json:"failed" gorm:"not null;default:false;index"`

	// 失败原因，仅用于排查
	FailureReason string `json:"failure_reason,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (ProofRequest) TableName() string {
	return "blob_proofs"
}

func (r *ProofRequest) State() ProofRequestState {
	switch {
	case r.Proof != nil:
		return ProofRequestStateDone
	case r.Failed:
		return ProofRequestStateFailed
	default:
		return ProofRequestStateQueued
	}
}
