package records

// addMediaID agrega mediaID al final si no está presente. Devuelve el set
// resultante y si hubo cambio.
func addMediaID(ids []string, mediaID string) ([]string, bool) {
	for _, id := range ids {
		if id == mediaID {
			return ids, false
		}
	}
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids...)
	out = append(out, mediaID)
	return out, true
}

// removeMediaID quita TODAS las ocurrencias de mediaID. Datos legados
// pueden traer duplicados; los limpiamos al desvincular. Devuelve el set
// resultante y si hubo cambio.
func removeMediaID(ids []string, mediaID string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	changed := false
	for _, id := range ids {
		if id == mediaID {
			changed = true
			continue
		}
		out = append(out, id)
	}
	return out, changed
}
