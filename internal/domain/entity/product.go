package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Product representa un insumo médico del inventario.
// Quantity solo se modifica a través del motor de stock (recepciones, salidas, inventarios).
type Product struct {
	ID            int64
	Ref           *string // código interno único (opcional)
	Name          string
	Category      string
	Quantity      int
	Price         decimal.Decimal
	CriticalLevel int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsCritical indica si el stock está en o por debajo del nivel crítico.
func (p *Product) IsCritical() bool {
	return p.Quantity <= p.CriticalLevel
}

// NormalizeName deja el nombre en NFC y sin espacios sobrantes para que la
// búsqueda por nombre exacto no dependa de cómo se tecleó el acento.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// NormalizeRef devuelve nil para referencias vacías.
func NormalizeRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	r := strings.TrimSpace(*ref)
	if r == "" {
		return nil
	}
	return &r
}
