// Package pdf genera el bon de réception (comprobante de recepción) en PDF.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: MedStock              │  N° bon + fecha + estado    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  PROVEEDOR / AGENTE                                          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Qté | Produit | P.U. | Montant                       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: unidades / importe                                 │
//	│  ─────────────────────────────────────────────────────────  │
//	│  FOOTER: QR con la referencia + firmas                       │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/medstock-api/internal/application/ports"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 105, Blue: 92}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var _ ports.ReceiptPDFGenerator = (*MarotoPDFGenerator)(nil)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator implementa ports.ReceiptPDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct {
	organization string
}

// NewMarotoPDFGenerator construye el generador. organization aparece en la cabecera.
func NewMarotoPDFGenerator(organization string) *MarotoPDFGenerator {
	if organization == "" {
		organization = "MedStock"
	}
	return &MarotoPDFGenerator{organization: organization}
}

// GenerateReceiptPDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateReceiptPDF(_ context.Context, receipt *entity.Receipt) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Bon de réception "+ReceiptNumber(receipt), true).
		WithAuthor(g.organization, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(g.organization, receipt))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(partiesRow(receipt))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(receipt.Items)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(receipt))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(receipt))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ReceiptNumber referencia visible del bon: la ref si existe, si no el ID.
func ReceiptNumber(r *entity.Receipt) string {
	if r.Ref != nil && *r.Ref != "" {
		return *r.Ref
	}
	return "BR-" + strconv.FormatInt(r.ID, 10)
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(organization string, r *entity.Receipt) core.Row {
	status := "Validé"
	if r.Status != entity.ReceiptStatusApproved {
		status = r.Status
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(organization, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Gestion des fournitures médicales", props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("BON DE RÉCEPTION", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(ReceiptNumber(r), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Date : "+r.ReceivedAt.Format("02/01/2006")+"   |   "+status, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func partiesRow(r *entity.Receipt) core.Row {
	return row.New(12).Add(
		col.New(6).Add(
			text.New("FOURNISSEUR", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(nonEmpty(r.Supplier, "—"), props.Text{Size: 9, Top: 6}),
		),
		col.New(6).Add(
			text.New("AGENT RÉCEPTIONNAIRE", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(nonEmpty(r.Agent, "—"), props.Text{Size: 9, Top: 6}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Qté", 1, align.Center),
		h("Produit", 6, align.Left),
		h("P.U.", 2, align.Right),
		h("Montant", 3, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

func tableDetailRows(items []entity.ReceiptItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		amount := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(strconv.Itoa(it.Quantity), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(6).Add(text.New(nonEmpty(it.ProductName, "#"+strconv.FormatInt(it.ProductID, 10)),
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1})),
			col.New(2).Add(text.New(FormatAmount(it.UnitPrice), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(3).Add(text.New(FormatAmount(amount), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

func totalsRow(r *entity.Receipt) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	grand := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: top})
	}
	return row.New(16).Add(
		col.New(6),
		col.New(3).Add(
			label("Unités reçues :"),
			text.New("TOTAL :", props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 7}),
		),
		col.New(3).Add(
			text.New(strconv.Itoa(r.TotalQuantity()), props.Text{Size: 9, Align: align.Right, Right: 1}),
			grand(FormatAmount(r.TotalAmount()), 7),
		),
	)
}

func footerRow(r *entity.Receipt) core.Row {
	return row.New(40).Add(
		col.New(3).Add(code.NewQr("MEDSTOCK-RECEIPT:"+strconv.FormatInt(r.ID, 10), props.Rect{Percent: 90, Center: true})),
		col.New(9).Add(
			text.New("Signature du réceptionnaire", props.Text{Size: 8, Top: 4, Left: 3, Color: colorGray}),
			text.New("Signature du gestionnaire", props.Text{Size: 8, Top: 4, Left: 3, Align: align.Right, Color: colorGray}),
			text.New("Document interne. Les quantités ont été ajoutées au stock à la validation du bon.",
				props.Text{Size: 6.5, Top: 32, Left: 3, Color: colorGray}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// FormatAmount formatea con dos decimales, coma decimal y espacio de miles.
// Ej: 1234567.5 → "1 234 567,50"
func FormatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, c)
	}
	return sign + string(buf) + "," + frac
}
