package pdf_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/infrastructure/pdf"
)

func TestFormatAmount(t *testing.T) {
	cases := map[string]string{
		"0":         "0,00",
		"12.5":      "12,50",
		"1234567.5": "1 234 567,50",
		"-1000":     "-1 000,00",
		"999.999":   "1 000,00",
	}
	for in, want := range cases {
		assert.Equal(t, want, pdf.FormatAmount(decimal.RequireFromString(in)), in)
	}
}

func TestReceiptNumber_RefOId(t *testing.T) {
	ref := "BR-2026-001"
	assert.Equal(t, "BR-2026-001", pdf.ReceiptNumber(&entity.Receipt{ID: 3, Ref: &ref}))
	assert.Equal(t, "BR-3", pdf.ReceiptNumber(&entity.Receipt{ID: 3}))
}

func TestGenerateReceiptPDF_DevuelveUnPDF(t *testing.T) {
	g := pdf.NewMarotoPDFGenerator("")
	doc, err := g.GenerateReceiptPDF(context.Background(), &entity.Receipt{
		ID: 9, Supplier: "Pharma Sud", Agent: "M. Diallo", Status: entity.ReceiptStatusApproved,
		ReceivedAt: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
		Items: []entity.ReceiptItem{
			{ProductID: 1, ProductName: "Gants nitrile", Quantity: 10, UnitPrice: decimal.NewFromFloat(4.2)},
			{ProductID: 2, Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}
