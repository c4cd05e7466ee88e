package repository

// Page paginación para listados.
type Page struct {
	Limit  int
	Offset int
}

// Normalize aplica valores por defecto (20) y máximo (100).
func (p Page) Normalize() Page {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}
