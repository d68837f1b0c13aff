package records

import "time"

// HealthRecord es un evento médico de una mascota. El petId es inmutable
// después de la creación y la propiedad se re-verifica contra el servicio
// de mascotas en cada mutación (nunca se infiere del registro guardado).
type HealthRecord struct {
	ID    string
	PetID string

	Type RecordType
	Date time.Time

	Title       string
	Description string
	Doctor      string
	Clinic      string

	// MediaIDs es un set sin duplicados; se conserva el orden de inserción
	// solo para presentación.
	MediaIDs []string

	HasNextVisit  bool
	NextVisitDate *time.Time

	// Version crece en cada escritura; el store la usa como token de
	// concurrencia optimista.
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// HasMedia indica si mediaID ya está vinculado.
func (r HealthRecord) HasMedia(mediaID string) bool {
	for _, id := range r.MediaIDs {
		if id == mediaID {
			return true
		}
	}
	return false
}
