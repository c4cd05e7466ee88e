package stock

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/medstock-api/internal/application/ports"
	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

// ReceiptService crea recepciones (bon de réception) y aplica sus entradas de stock.
type ReceiptService struct {
	tx       repository.TxRunner
	receipts repository.ReceiptRepository
	engine   *Engine
	effects  *Effects
	pdf      ports.ReceiptPDFGenerator
	now      func() time.Time
}

// NewReceiptService construye el servicio. pdf puede ser nil (sin comprobante).
func NewReceiptService(
	tx repository.TxRunner,
	receipts repository.ReceiptRepository,
	engine *Engine,
	effects *Effects,
	pdf ports.ReceiptPDFGenerator,
) *ReceiptService {
	return &ReceiptService{
		tx:       tx,
		receipts: receipts,
		engine:   engine,
		effects:  effects,
		pdf:      pdf,
		now:      time.Now,
	}
}

// Create camino directo: valida, crea la recepción y aplica el stock en una sola transacción.
func (s *ReceiptService) Create(ctx context.Context, actor entity.Actor, in entity.ReceiptPayload) (*entity.Receipt, error) {
	if !actor.Can(entity.CapReceiptsCreate) {
		return nil, domain.ErrForbidden
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	origin := entity.Origin{RequestedBy: actor.UserID, ApprovedBy: actor.UserID, At: s.now().UTC()}

	var created *entity.Receipt
	err := s.tx.Run(ctx, func(repos repository.TxRepos) error {
		r, err := s.CreateInTx(ctx, repos, in, origin)
		created = r
		return err
	})
	if err != nil {
		return nil, err
	}
	s.effects.StockChanged(ctx, actor.UserID, "receipt", created.ID, ReceiptProductIDs(created))
	return created, nil
}

// CreateInTx crea la recepción (estado approved) con sus líneas y suma cada línea al stock.
// Lo usan el camino directo y el ejecutor de la aprobación, con la misma transacción del llamador.
func (s *ReceiptService) CreateInTx(
	ctx context.Context,
	repos repository.TxRepos,
	in entity.ReceiptPayload,
	origin entity.Origin,
) (*entity.Receipt, error) {
	ref := entity.NormalizeRef(in.Ref)
	if ref != nil {
		existing, err := repos.Receipts.GetByRef(ctx, *ref)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: ya existe una recepción con ref %q", domain.ErrConflict, *ref)
		}
	}

	approvedBy := origin.ApprovedBy
	approvedAt := origin.At
	receipt := &entity.Receipt{
		Ref:        ref,
		Supplier:   strings.TrimSpace(in.Supplier),
		Agent:      strings.TrimSpace(in.Agent),
		ReceivedAt: in.ReceivedAt.OrNow(origin.At),
		Status:     entity.ReceiptStatusApproved,
		ApprovedBy: &approvedBy,
		ApprovedAt: &approvedAt,
		CreatedBy:  origin.RequestedBy,
		CreatedAt:  origin.At,
	}
	if err := repos.Receipts.Create(ctx, receipt); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, fmt.Errorf("%w: ref de recepción duplicada", domain.ErrConflict)
		}
		return nil, err
	}

	for i, line := range in.Items {
		productID, err := resolveProduct(ctx, repos, line, origin.At)
		if err != nil {
			return nil, fmt.Errorf("items.%d: %w", i, err)
		}
		if _, err := s.engine.ApplyReceipt(ctx, repos, productID, line.Quantity); err != nil {
			return nil, err
		}
		item := &entity.ReceiptItem{
			ReceiptID: receipt.ID,
			ProductID: productID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		if err := repos.Receipts.CreateItem(ctx, item); err != nil {
			return nil, err
		}
		receipt.Items = append(receipt.Items, *item)
	}
	return receipt, nil
}

// resolveProduct usa product_id si viene; si no, busca por nombre exacto y, si no existe,
// crea el producto (con cantidad 0: la línea de recepción es la que suma).
func resolveProduct(ctx context.Context, repos repository.TxRepos, line entity.ReceiptLinePayload, now time.Time) (int64, error) {
	if line.ProductID != nil {
		return *line.ProductID, nil
	}
	name := entity.NormalizeName(line.ProductName)
	if err := repos.Products.LockName(ctx, name); err != nil {
		return 0, err
	}
	existing, err := repos.Products.GetByName(ctx, name)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, err
	}

	ref := entity.NormalizeRef(line.ProductRef)
	if ref != nil {
		if _, err := repos.Products.GetByRef(ctx, *ref); err == nil {
			return 0, fmt.Errorf("%w: ya existe un producto con ref %q", domain.ErrConflict, *ref)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return 0, err
		}
	}
	product := &entity.Product{
		Ref:           ref,
		Name:          name,
		Category:      strings.TrimSpace(line.Category),
		Price:         line.UnitPrice,
		CriticalLevel: line.CriticalLevel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := repos.Products.Create(ctx, product); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return 0, fmt.Errorf("%w: producto duplicado", domain.ErrConflict)
		}
		return 0, err
	}
	return product.ID, nil
}

// Get devuelve la recepción con sus líneas.
func (s *ReceiptService) Get(ctx context.Context, id int64) (*entity.Receipt, error) {
	return s.receipts.GetByID(ctx, id)
}

// List lista recepciones (más recientes primero).
func (s *ReceiptService) List(ctx context.Context, page repository.Page) ([]*entity.Receipt, error) {
	return s.receipts.List(ctx, page.Normalize())
}

// PDF genera el comprobante de la recepción.
func (s *ReceiptService) PDF(ctx context.Context, id int64) ([]byte, error) {
	if s.pdf == nil {
		return nil, fmt.Errorf("generador de PDF no configurado")
	}
	receipt, err := s.receipts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.pdf.GenerateReceiptPDF(ctx, receipt)
}

// ReceiptProductIDs ids de producto de las líneas, sin repetir.
func ReceiptProductIDs(r *entity.Receipt) []int64 {
	seen := make(map[int64]bool, len(r.Items))
	out := make([]int64, 0, len(r.Items))
	for _, it := range r.Items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			out = append(out, it.ProductID)
		}
	}
	return out
}
