package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/entity"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
	"github.com/jhoicas/medstock-api/internal/infrastructure/memory"
)

func TestTxRunner_ErrorRestauraElEstado(t *testing.T) {
	store := memory.NewStore()
	tx := memory.NewTxRunner(store)
	ctx := context.Background()
	p := &entity.Product{Name: "Gaze", CreatedAt: time.Now()}
	require.NoError(t, store.Repos().Products.Create(ctx, p))

	boom := errors.New("boom")
	err := tx.Run(ctx, func(repos repository.TxRepos) error {
		if _, err := repos.Products.AdjustQuantity(ctx, p.ID, 50); err != nil {
			return err
		}
		if err := repos.Products.Create(ctx, &entity.Product{Name: "Temporal"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Repos().Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
	n, err := store.Repos().Products.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProductRepository_RefUnicaYCantidadSoloPorAjuste(t *testing.T) {
	store := memory.NewStore()
	repo := store.Repos().Products
	ctx := context.Background()
	ref := "REF-1"
	p := &entity.Product{Ref: &ref, Name: "Gaze"}
	require.NoError(t, repo.Create(ctx, p))
	assert.ErrorIs(t, repo.Create(ctx, &entity.Product{Ref: &ref, Name: "Otro"}), domain.ErrDuplicate)

	q, err := repo.AdjustQuantity(ctx, p.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, -3, q)

	p.Quantity = 1000
	p.Name = "Gaze stérile"
	require.NoError(t, repo.Update(ctx, p))
	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, -3, got.Quantity)
	assert.Equal(t, "Gaze stérile", got.Name)

	_, err = repo.AdjustQuantity(ctx, 999, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRequestRepository_MarkDecidedSoloDesdePending(t *testing.T) {
	store := memory.NewStore()
	ops := store.Repos().Operations
	ctx := context.Background()
	op := &entity.PendingOperation{Type: entity.OperationReceipt, Data: []byte(`{}`), Status: entity.RequestStatusPending, UserID: 1}
	require.NoError(t, ops.Create(ctx, op))

	require.NoError(t, ops.MarkDecided(ctx, op.ID, decision(entity.RequestStatusApproved)))
	assert.ErrorIs(t, ops.MarkDecided(ctx, op.ID, decision(entity.RequestStatusRejected)), domain.ErrInvalidState)
	assert.ErrorIs(t, ops.MarkDecided(ctx, 999, decision(entity.RequestStatusRejected)), domain.ErrNotFound)
}

func decision(status string) repository.Decision {
	return repository.Decision{Status: status, ApproverID: 2, At: time.Now()}
}
