package entity

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/medstock-api/internal/domain"
)

// OperationType tipo de operación que puede quedar pendiente de aprobación.
type OperationType string

// Tipos soportados.
const (
	OperationReceipt  OperationType = "receipt"
	OperationStockOut OperationType = "stockout"
	OperationVehicle  OperationType = "vehicle"
)

// OperationPayload variante tipada del payload de una PendingOperation.
type OperationPayload interface {
	OperationType() OperationType
	Validate() error
}

// ReceiptLinePayload línea de recepción. Si ProductID es nil se busca por nombre exacto
// y, si no existe, se crea el producto con ProductRef/Category/CriticalLevel.
type ReceiptLinePayload struct {
	ProductID     *int64          `json:"product_id,omitempty"`
	ProductName   string          `json:"product_name,omitempty"`
	ProductRef    *string         `json:"product_ref,omitempty"`
	Category      string          `json:"category,omitempty"`
	CriticalLevel int             `json:"critical_level,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

// ReceiptPayload datos de una recepción.
type ReceiptPayload struct {
	Ref        *string              `json:"ref,omitempty"`
	Supplier   string               `json:"supplier"`
	Agent      string               `json:"agent"`
	ReceivedAt Date                 `json:"received_at"`
	Items      []ReceiptLinePayload `json:"items"`
}

// OperationType implementa OperationPayload.
func (ReceiptPayload) OperationType() OperationType { return OperationReceipt }

// Validate comprueba campos obligatorios y cantidades.
func (p ReceiptPayload) Validate() error {
	v := domain.NewValidationError()
	if strings.TrimSpace(p.Supplier) == "" {
		v.Add("supplier", "requerido")
	}
	if len(p.Items) == 0 {
		v.Add("items", "al menos una línea")
	}
	for i, it := range p.Items {
		prefix := "items." + strconv.Itoa(i)
		if it.ProductID == nil && strings.TrimSpace(it.ProductName) == "" {
			v.Add(prefix+".product_id", "product_id o product_name requerido")
		}
		if it.ProductID != nil && *it.ProductID <= 0 {
			v.Add(prefix+".product_id", "inválido")
		}
		if it.Quantity <= 0 {
			v.Add(prefix+".quantity", "debe ser mayor que 0")
		}
		if it.UnitPrice.IsNegative() {
			v.Add(prefix+".unit_price", "no puede ser negativo")
		}
	}
	return v.OrNil()
}

// StockOutPayload datos de una salida de stock.
type StockOutPayload struct {
	ProductID    int64  `json:"product_id"`
	Quantity     int    `json:"quantity"`
	MovementDate Date   `json:"movement_date"`
	ExitType     string `json:"exit_type,omitempty"`
	Destination  string `json:"destination,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// OperationType implementa OperationPayload.
func (StockOutPayload) OperationType() OperationType { return OperationStockOut }

// Validate comprueba producto y cantidad.
func (p StockOutPayload) Validate() error {
	v := domain.NewValidationError()
	if p.ProductID <= 0 {
		v.Add("product_id", "requerido")
	}
	if p.Quantity <= 0 {
		v.Add("quantity", "debe ser mayor que 0")
	}
	return v.OrNil()
}

// VehiclePayload datos de alta de un vehículo. Status se ignora: siempre nace en pending.
type VehiclePayload struct {
	Plate  string `json:"plate"`
	Brand  string `json:"brand"`
	Model  string `json:"model"`
	Year   int    `json:"year,omitempty"`
	Status string `json:"status,omitempty"`
}

// OperationType implementa OperationPayload.
func (VehiclePayload) OperationType() OperationType { return OperationVehicle }

// Validate comprueba la matrícula.
func (p VehiclePayload) Validate() error {
	v := domain.NewValidationError()
	if strings.TrimSpace(p.Plate) == "" {
		v.Add("plate", "requerido")
	}
	if p.Year < 0 {
		v.Add("year", "inválido")
	}
	return v.OrNil()
}

// DecodeOperationPayload decodifica y valida el JSON del payload para el tipo dado.
// Tipos desconocidos devuelven domain.ErrUnsupportedOperation.
func DecodeOperationPayload(t OperationType, raw json.RawMessage) (OperationPayload, error) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if !isKnownOperation(t) {
			return nil, domain.ErrUnsupportedOperation
		}
		return nil, domain.FieldError("data", "requerido")
	}
	var payload OperationPayload
	switch t {
	case OperationReceipt:
		var p ReceiptPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, domain.FieldError("data", err.Error())
		}
		payload = p
	case OperationStockOut:
		var p StockOutPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, domain.FieldError("data", err.Error())
		}
		payload = p
	case OperationVehicle:
		var p VehiclePayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, domain.FieldError("data", err.Error())
		}
		payload = p
	default:
		return nil, domain.ErrUnsupportedOperation
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return payload, nil
}

func isKnownOperation(t OperationType) bool {
	switch t {
	case OperationReceipt, OperationStockOut, OperationVehicle:
		return true
	}
	return false
}
