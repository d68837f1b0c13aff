package auth

// Claims es la identidad extraída del token. UserID es el ownerId que el
// orquestador usa para la verificación de propiedad.
type Claims struct {
	UserID string
	Email  string
}
