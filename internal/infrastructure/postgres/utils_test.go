package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/medstock-api/internal/domain"
	"github.com/jhoicas/medstock-api/internal/domain/repository"
)

func TestWhere_NumeraArgumentosEnOrden(t *testing.T) {
	var w where
	w.add("(name ILIKE '%%' || $%[1]d || '%%' OR ref ILIKE '%%' || $%[1]d || '%%')", "gaze")
	w.add("category = $%d", "pansements")
	tail := w.page(20, 40)

	assert.Equal(t, " WHERE (name ILIKE '%' || $1 || '%' OR ref ILIKE '%' || $1 || '%') AND category = $2", w.sql())
	assert.Equal(t, " LIMIT $3 OFFSET $4", tail)
	assert.Equal(t, []any{"gaze", "pansements", 20, 40}, w.args)
}

func TestWhere_SinCondiciones(t *testing.T) {
	var w where
	assert.Empty(t, w.sql())
	assert.Equal(t, " LIMIT $1 OFFSET $2", w.page(10, 0))
}

func TestRequestWhere_PrefijoDeAlias(t *testing.T) {
	w, tail := requestWhere(repository.RequestFilter{Status: "pending", UserID: 7}, "n.")
	assert.Equal(t, " WHERE n.status = $1 AND n.user_id = $2", w.sql())
	assert.Equal(t, " ORDER BY n.created_at DESC, n.id DESC LIMIT $3 OFFSET $4", tail)
}

func TestErrores_TraduccionDeCodigosPg(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isForeignKeyViolation(fmt.Errorf("wrap: %w", &pgconn.PgError{Code: "23503"})))

	assert.ErrorIs(t, notFoundOr(pgx.ErrNoRows, "get"), domain.ErrNotFound)
	err := notFoundOr(errors.New("timeout"), "get product")
	assert.EqualError(t, err, "get product: timeout")
}
