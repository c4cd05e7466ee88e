package ports

import (
	"context"

	"github.com/jhoicas/medstock-api/internal/domain/entity"
)

// ReceiptPDFGenerator genera el bon de réception en PDF.
type ReceiptPDFGenerator interface {
	GenerateReceiptPDF(ctx context.Context, receipt *entity.Receipt) ([]byte, error)
}
