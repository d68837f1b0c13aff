package pets

// Pet es la vista mínima que necesitamos del servicio de mascotas: quién
// es el dueño actual.
type Pet struct {
	ID      string
	OwnerID string
}
