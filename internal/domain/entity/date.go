package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout formato de fecha simple usado en los payloads (AAAA-MM-DD).
const DateLayout = "2006-01-02"

// Date fecha que acepta "2006-01-02" o RFC3339 en JSON.
type Date struct {
	time.Time
}

// UnmarshalJSON implementa json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("fecha inválida: %w", err)
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return fmt.Errorf("fecha inválida %q", s)
	}
	d.Time = t
	return nil
}

// MarshalJSON implementa json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

// OrNow devuelve la fecha o now si está vacía.
func (d Date) OrNow(now time.Time) time.Time {
	if d.IsZero() {
		return now
	}
	return d.Time
}
