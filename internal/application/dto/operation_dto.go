package dto

import (
	"encoding/json"
	"time"

	"github.com/jhoicas/medstock-api/internal/domain/entity"
)

// SubmitOperationRequest body de POST /api/operations.
type SubmitOperationRequest struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// RejectRequest body de POST /api/operations/:id/reject (y needs).
type RejectRequest struct {
	Reason string `json:"reason"`
}

// DecisionResponse resultado de submit/approve/reject.
type DecisionResponse struct {
	OperationID int64  `json:"operation_id"`
	Status      string `json:"status"`
}

// OperationResponse salida de una PendingOperation.
type OperationResponse struct {
	ID              int64           `json:"id"`
	Type            string          `json:"type"`
	Data            json.RawMessage `json:"data"`
	UserID          int64           `json:"user_id"`
	Status          string          `json:"status"`
	ApprovedBy      *int64          `json:"approved_by"`
	RejectionReason *string         `json:"rejection_reason"`
	ApprovedAt      *time.Time      `json:"approved_at"`
	CreatedAt       time.Time       `json:"created_at"`
}

// NewOperationResponse mapea la entidad.
func NewOperationResponse(op *entity.PendingOperation) OperationResponse {
	return OperationResponse{
		ID:              op.ID,
		Type:            string(op.Type),
		Data:            op.Data,
		UserID:          op.UserID,
		Status:          op.Status,
		ApprovedBy:      op.ApprovedBy,
		RejectionReason: op.RejectionReason,
		ApprovedAt:      op.ApprovedAt,
		CreatedAt:       op.CreatedAt,
	}
}

// CreateNeedRequest body de POST /api/needs.
type CreateNeedRequest struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Reason    string `json:"reason"`
}

// NeedResponse salida de una necesidad.
type NeedResponse struct {
	ID              int64      `json:"id"`
	ProductID       int64      `json:"product_id"`
	ProductName     string     `json:"product_name,omitempty"`
	Quantity        int        `json:"quantity"`
	Reason          string     `json:"reason"`
	UserID          int64      `json:"user_id"`
	Status          string     `json:"status"`
	ApprovedBy      *int64     `json:"approved_by"`
	RejectionReason *string    `json:"rejection_reason"`
	ApprovedAt      *time.Time `json:"approved_at"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewNeedResponse mapea la entidad.
func NewNeedResponse(n *entity.Need) NeedResponse {
	return NeedResponse{
		ID:              n.ID,
		ProductID:       n.ProductID,
		ProductName:     n.ProductName,
		Quantity:        n.Quantity,
		Reason:          n.Reason,
		UserID:          n.UserID,
		Status:          n.Status,
		ApprovedBy:      n.ApprovedBy,
		RejectionReason: n.RejectionReason,
		ApprovedAt:      n.ApprovedAt,
		CreatedAt:       n.CreatedAt,
	}
}
