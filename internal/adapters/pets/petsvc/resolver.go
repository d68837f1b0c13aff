package petsvc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pet-health-records/internal/ports/pets"
)

// Resolver implementa pets.Resolver contra el servicio HTTP de mascotas.
// No cachea nada: cada Resolve es una consulta en vivo, porque el dueño
// puede cambiar entre llamadas.
type Resolver struct {
	client *Client
}

func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

func (r *Resolver) Resolve(ctx context.Context, petID string) (pets.Pet, error) {
	if r == nil || r.client == nil {
		return pets.Pet{}, fmt.Errorf("%w: %v", pets.ErrUnavailable, ErrNotConfigured)
	}

	petID = strings.TrimSpace(petID)
	if petID == "" {
		return pets.Pet{}, pets.ErrNotFound
	}

	p, err := r.client.FetchPet(ctx, petID)
	switch {
	case err == nil:
		return pets.Pet{ID: p.ID, OwnerID: p.OwnerID}, nil
	case errors.Is(err, errNotFound):
		return pets.Pet{}, pets.ErrNotFound
	default:
		// Incluye timeouts y context cancelado: el caller no puede saber
		// si el pet existe, así que nunca lo tratamos como NotFound.
		return pets.Pet{}, fmt.Errorf("%w: %v", pets.ErrUnavailable, err)
	}
}
