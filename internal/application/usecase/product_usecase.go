package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/medstock-api/internal/application/dto"
	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

// ProductUseCase casos de uso CRUD para productos. Quantity se maneja vía el motor de stock.
type ProductUseCase struct {
	repo repository.ProductRepository
	now  func() time.Time
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{repo: repo, now: time.Now}
}

// Create crea un nuevo producto con cantidad 0.
func (uc *ProductUseCase) Create(ctx context.Context, actor entity.Actor, in dto.CreateProductRequest) (*entity.Product, error) {
	if !actor.Can(entity.CapProductsManage) {
		return nil, domain.ErrForbidden
	}
	v := domain.NewValidationError()
	name := entity.NormalizeName(in.Name)
	if name == "" {
		v.Add("name", "requerido")
	}
	if in.Price.IsNegative() {
		v.Add("price", "no puede ser negativo")
	}
	if in.CriticalLevel < 0 {
		v.Add("critical_level", "no puede ser negativo")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	ref := entity.NormalizeRef(in.Ref)
	if err := uc.ensureRefFree(ctx, ref, 0); err != nil {
		return nil, err
	}
	now := uc.now().UTC()
	product := &entity.Product{
		Ref:           ref,
		Name:          name,
		Category:      strings.TrimSpace(in.Category),
		Price:         in.Price,
		CriticalLevel: in.CriticalLevel,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, conflictOnDuplicate(err, "ref de producto duplicada")
	}
	return product, nil
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	return uc.repo.GetByID(ctx, id)
}

// Update actualiza un producto. No permite modificar Quantity.
func (uc *ProductUseCase) Update(ctx context.Context, actor entity.Actor, id int64, in dto.UpdateProductRequest) (*entity.Product, error) {
	if !actor.Can(entity.CapProductsManage) {
		return nil, domain.ErrForbidden
	}
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	v := domain.NewValidationError()
	if in.Name != nil {
		product.Name = entity.NormalizeName(*in.Name)
		if product.Name == "" {
			v.Add("name", "requerido")
		}
	}
	if in.Category != nil {
		product.Category = strings.TrimSpace(*in.Category)
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			v.Add("price", "no puede ser negativo")
		}
		product.Price = *in.Price
	}
	if in.CriticalLevel != nil {
		if *in.CriticalLevel < 0 {
			v.Add("critical_level", "no puede ser negativo")
		}
		product.CriticalLevel = *in.CriticalLevel
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	if in.Ref != nil {
		product.Ref = entity.NormalizeRef(in.Ref)
		if err := uc.ensureRefFree(ctx, product.Ref, product.ID); err != nil {
			return nil, err
		}
	}
	product.UpdatedAt = uc.now().UTC()
	if err := uc.repo.Update(ctx, product); err != nil {
		return nil, conflictOnDuplicate(err, "ref de producto duplicada")
	}
	return product, nil
}

// Delete elimina un producto sin historial de movimientos.
func (uc *ProductUseCase) Delete(ctx context.Context, actor entity.Actor, id int64) error {
	if !actor.Can(entity.CapProductsManage) {
		return domain.ErrForbidden
	}
	return uc.repo.Delete(ctx, id)
}

// List lista productos con búsqueda, categoría y paginación.
func (uc *ProductUseCase) List(ctx context.Context, filter repository.ProductFilter) ([]*entity.Product, error) {
	filter.Page = filter.Page.Normalize()
	return uc.repo.List(ctx, filter)
}

// Critical productos en o por debajo de su nivel crítico.
func (uc *ProductUseCase) Critical(ctx context.Context) ([]*entity.Product, error) {
	return uc.repo.ListCritical(ctx)
}

func (uc *ProductUseCase) ensureRefFree(ctx context.Context, ref *string, selfID int64) error {
	if ref == nil {
		return nil
	}
	existing, err := uc.repo.GetByRef(ctx, *ref)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != selfID {
		return fmt.Errorf("%w: ya existe un producto con ref %q", domain.ErrConflict, *ref)
	}
	return nil
}

// conflictOnDuplicate traduce la violación de unicidad del repositorio a un conflicto de negocio.
func conflictOnDuplicate(err error, msg string) error {
	if errors.Is(err, domain.ErrDuplicate) {
		return fmt.Errorf("%w: %s", domain.ErrConflict, msg)
	}
	return err
}
