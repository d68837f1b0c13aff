package pets

import (
	"context"
	"errors"
)

var (
	// ErrNotFound: el servicio de mascotas respondió explícitamente que el
	// pet no existe.
	ErrNotFound = errors.New("pet not found")

	// ErrUnavailable: timeout, fallo de red o error del upstream. Distinto
	// de ErrNotFound: el caller puede reintentar.
	ErrUnavailable = errors.New("pet service unavailable")
)

// Resolver resuelve un petID contra el servicio externo de mascotas. La
// llamada es idempotente y sin efectos; el dueño puede cambiar entre
// llamadas, así que el resultado nunca se cachea.
type Resolver interface {
	Resolve(ctx context.Context, petID string) (Pet, error)
}
