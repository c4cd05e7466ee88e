package entity

import (
	"encoding/json"
	"time"
)

// Origin quién pidió y quién autorizó un cambio, y cuándo.
// En el camino directo RequestedBy y ApprovedBy coinciden.
type Origin struct {
	RequestedBy int64
	ApprovedBy  int64
	At          time.Time
}

// Estados de una solicitud sujeta a aprobación (PendingOperation, Need).
// Única transición permitida: pending → approved | rejected.
const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// DefaultRejectionReason se usa cuando el administrador no indica motivo.
const DefaultRejectionReason = "Aucune raison fournie"

// PendingOperation solicitud de escritura capturada y pendiente de decisión del administrador.
// Data se guarda tal cual (JSON del payload tipado) y no se modifica después de crearse.
type PendingOperation struct {
	ID              int64
	Type            OperationType
	Data            json.RawMessage
	UserID          int64
	Status          string
	ApprovedBy      *int64
	RejectionReason *string
	ApprovedAt      *time.Time
	CreatedAt       time.Time
}

// IsPending indica si aún admite decisión.
func (o *PendingOperation) IsPending() bool {
	return o.Status == RequestStatusPending
}

// Payload decodifica Data según Type.
func (o *PendingOperation) Payload() (OperationPayload, error) {
	return DecodeOperationPayload(o.Type, o.Data)
}

// Need solicitud de necesidad de un producto (expresión de besoin).
type Need struct {
	ID              int64
	ProductID       int64
	ProductName     string
	Quantity        int
	Reason          string
	UserID          int64
	Status          string
	ApprovedBy      *int64
	RejectionReason *string
	ApprovedAt      *time.Time
	CreatedAt       time.Time
}
