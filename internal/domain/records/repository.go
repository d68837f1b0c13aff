package records

import (
	"context"
	"time"
)

// Repository es el contrato de persistencia del registro de salud.
//
// GetByID, ListAll y ListByPet excluyen registros con soft-delete.
// Update reemplaza la fila completa y compara expectedVersion contra la
// versión guardada: si no coincide devuelve ErrConflict (concurrencia
// optimista en lugar de last-writer-wins).
type Repository interface {
	Create(ctx context.Context, r HealthRecord) error
	GetByID(ctx context.Context, id string) (HealthRecord, error)
	ListAll(ctx context.Context) ([]HealthRecord, error)
	ListByPet(ctx context.Context, petID string) ([]HealthRecord, error)
	Update(ctx context.Context, r HealthRecord, expectedVersion int64) (HealthRecord, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error

	// Restore revierte un soft-delete. El orquestador no lo expone (Deleted
	// es terminal para la interfaz); existe para auditoría y operaciones
	// manuales.
	Restore(ctx context.Context, id string) error
}
