package records

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"pet-health-records/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func RegisterRoutes(r chi.Router, svc *Service, log zerolog.Logger) {
	r.Route("/health-records", func(hr chi.Router) {
		hr.Post("/", createRecordHandler(svc, log))
		hr.Get("/", listRecordsHandler(svc, log))
		hr.Get("/{recordID}", getRecordHandler(svc, log))
		hr.Patch("/{recordID}", updateRecordHandler(svc, log))
		hr.Delete("/{recordID}", deleteRecordHandler(svc, log))

		// Vínculos de media: llamadas internas del servicio de media, sin
		// chequeo de propiedad (ver Service.LinkMedia).
		hr.Post("/{recordID}/media/{mediaID}", linkMediaHandler(svc, log))
		hr.Delete("/{recordID}/media/{mediaID}", unlinkMediaHandler(svc, log))
	})

	r.Get("/pets/{petID}/health-records", listByPetHandler(svc, log))
}

// createRecordRequest es el cuerpo para registrar un nuevo evento médico.
type createRecordRequest struct {
	PetID string `json:"pet_id"`
	Type  string `json:"type" enums:"vaccine,consultation,deworming,analysis,other"`
	Date  string `json:"date"` // RFC3339
	Title string `json:"title"`

	Description string   `json:"description"`
	Doctor      string   `json:"doctor"`
	Clinic      string   `json:"clinic"`
	MediaIDs    []string `json:"media_ids"`

	HasNextVisit  bool   `json:"has_next_visit"`
	NextVisitDate string `json:"next_visit_date"` // RFC3339, opcional
}

// updateRecordRequest: campos en puntero = opcionales; nil no toca el
// valor guardado.
type updateRecordRequest struct {
	PetID string `json:"pet_id"` // solo se acepta si coincide con el guardado

	Type  *string `json:"type"`
	Date  *string `json:"date"` // RFC3339
	Title *string `json:"title"`

	Description *string  `json:"description"`
	Doctor      *string  `json:"doctor"`
	Clinic      *string  `json:"clinic"`
	MediaIDs    []string `json:"media_ids"`

	HasNextVisit  *bool   `json:"has_next_visit"`
	NextVisitDate *string `json:"next_visit_date"` // RFC3339
}

// recordResponse representa un registro de salud devuelto por la API.
type recordResponse struct {
	ID    string     `json:"id"`
	PetID string     `json:"pet_id"`
	Type  RecordType `json:"type"`
	Date  time.Time  `json:"date"`
	Title string     `json:"title"`

	Description string   `json:"description,omitempty"`
	Doctor      string   `json:"doctor,omitempty"`
	Clinic      string   `json:"clinic,omitempty"`
	MediaIDs    []string `json:"media_ids"`

	HasNextVisit  bool       `json:"has_next_visit"`
	NextVisitDate *time.Time `json:"next_visit_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// createRecordHandler godoc
// @Summary Crear registro de salud
// @Description Crea un registro médico para una mascota. La propiedad del pet se verifica contra el servicio de mascotas en cada llamada. Autenticación: `X-Debug-User-ID` (dev) o `Authorization: Bearer <token>` (prod).
// @Tags health-records
// @Accept json
// @Produce json
// @Param payload body createRecordRequest true "Datos del registro; fechas en RFC3339"
// @Success 201 {object} recordResponse
// @Failure 400 {string} string "invalid json / campos faltantes"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "el caller no es el dueño del pet"
// @Failure 404 {string} string "el pet no existe"
// @Failure 422 {string} string "invariante temporal violada"
// @Failure 503 {string} string "servicio de mascotas no disponible"
// @Router /health-records [post]
func createRecordHandler(svc *Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := callerID(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		date, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			http.Error(w, "date must be RFC3339", http.StatusBadRequest)
			return
		}

		var nextVisit *time.Time
		if strings.TrimSpace(req.NextVisitDate) != "" {
			t, err := time.Parse(time.RFC3339, req.NextVisitDate)
			if err != nil {
				http.Error(w, "next_visit_date must be RFC3339", http.StatusBadRequest)
				return
			}
			nextVisit = &t
		}

		rec, err := svc.Create(r.Context(), CreateInput{
			PetID:         req.PetID,
			OwnerID:       ownerID,
			Type:          RecordType(req.Type),
			Date:          date,
			Title:         req.Title,
			Description:   req.Description,
			Doctor:        req.Doctor,
			Clinic:        req.Clinic,
			MediaIDs:      req.MediaIDs,
			HasNextVisit:  req.HasNextVisit,
			NextVisitDate: nextVisit,
		})
		if err != nil {
			writeDomainError(w, log, err)
			return
		}

		writeJSON(w, http.StatusCreated, toRecordResponse(rec))
	}
}

// listRecordsHandler godoc
// @Summary Listar todos los registros
// @Description Lista todos los registros de salud activos (uso interno de la plataforma).
// @Tags health-records
// @Produce json
// @Success 200 {array} recordResponse
// @Failure 500 {string} string "internal error"
// @Router /health-records [get]
func listRecordsHandler(svc *Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListAll(r.Context())
		if err != nil {
			writeDomainError(w, log, err)
			return
		}

		out := make([]recordResponse, 0, len(items))
		for _, rec := range items {
			out = append(out, toRecordResponse(rec))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// getRecordHandler godoc
// @Summary Obtener un registro por ID
// @Tags health-records
// @Produce json
// @Param recordID path string true "ID del registro"
// @Success 200 {object} recordResponse
// @Failure 404 {string} string "registro no encontrado (incluye soft-deleted)"
// @Router /health-records/{recordID} [get]
func getRecordHandler(svc *Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.GetByID(r.Context(), chi.URLParam(r, "recordID"))
		if err != nil {
			writeDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toRecordResponse(rec))
	}
}

// listByPetHandler godoc
// @Summary Listar registros de una mascota
// @Tags health-records
// @Produce json
// @Param petID path string true "ID de la mascota"
// @Success 200 {array} recordResponse
// @Router /pets/{petID}/health-records [get]
func listByPetHandler(svc *Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.ListByPet(r.Context(), chi.URLParam(r, "petID"))
		if err != nil {
			writeDomainError(w, log, err)
			return
		}

		out := make([]recordResponse, 0, len(items))
		for _, rec := range items {
			out = append(out, toRecordResponse(rec))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// updateRecordHandler godoc
// @Summary Actualizar un registro
// @Description Actualiza campos del registro. El pet asociado no se puede cambiar; la propiedad se re-verifica contra el servicio de mascotas.
// @Tags health-records
// @Accept json
// @Produce json
// @Param recordID path string true "ID del registro"
// @Param payload body updateRecordRequest true "Campos a actualizar"
// @Success 200 {object} recordResponse
// @Failure 400 {string} string "invalid json / cannot reassign pet"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "registro o pet no encontrado"
// @Failure 409 {string} string "conflicto de versión"
// @Failure 422 {string} string "invariante temporal violada"
// @Failure 503 {string} string "servicio de mascotas no disponible"
// @Router /health-records/{recordID} [patch]
func updateRecordHandler(svc *Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := callerID(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req updateRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateInput{
			ID:       chi.URLParam(r, "recordID"),
			OwnerID:  ownerID,
			PetID:    req.PetID,
			Title:    req.Title,
			MediaIDs: req.MediaIDs,

			Description:  req.Description,
			Doctor:       req.Doctor,
			Clinic:       req.Clinic,
			HasNextVisit: req.HasNextVisit,
		}

		if req.Type != nil {
			t := RecordType(*req.Type)
			in.Type = &t
		}
		if req.Date != nil {
			t, err := time.Parse(time.RFC3339, *req.Date)
			if err != nil {
				http.Error(w, "date must be RFC3339", http.StatusBadRequest)
				return
			}
			in.Date = &t
		}
		if req.NextVisitDate != nil {
			t, err := time.Parse(time.RFC3339, *req.NextVisitDate)
			if err != nil {
				http.Error(w, "next_visit_date must be RFC3339", http.StatusBadRequest)
				return
			}
			in.NextVisitDate = &t
		}

		rec, err := svc.Update(r.Context(), in)
		if err != nil {
			writeDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toRecordResponse(rec))
	}
}

// deleteRecordHandler godoc
// @Summary Eliminar un registro (soft-delete)
// @Description Marca el registro como eliminado. La fila se conserva para auditoría; las lecturas normales dejan de verla.
// @Tags health-records
// @Param recordID path string true "ID del registro"
// @Success 204 {string} string ""
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "registro o pet no encontrado"
// @Router /health-records/{recordID} [delete]
func deleteRecordHandler(svc *Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID, ok := callerID(r)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if err := svc.Delete(r.Context(), chi.URLParam(r, "recordID"), ownerID); err != nil {
			writeDomainError(w, log, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// linkMediaHandler godoc
// @Summary Vincular media a un registro
// @Description Agrega un mediaID al registro. Idempotente: repetir la llamada no duplica. Llamada interna del servicio de media; no exige claims de usuario.
// @Tags media
// @Produce json
// @Param recordID path string true "ID del registro"
// @Param mediaID path string true "ID del media"
// @Success 200 {object} recordResponse
// @Failure 404 {string} string "registro no encontrado"
// @Failure 409 {string} string "conflicto de versión"
// @Router /health-records/{recordID}/media/{mediaID} [post]
func linkMediaHandler(svc *Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.LinkMedia(r.Context(), chi.URLParam(r, "recordID"), chi.URLParam(r, "mediaID"))
		if err != nil {
			writeDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toRecordResponse(rec))
	}
}

// unlinkMediaHandler godoc
// @Summary Desvincular media de un registro
// @Description Quita un mediaID del registro. Si no estaba vinculado, devuelve el registro sin cambios.
// @Tags media
// @Produce json
// @Param recordID path string true "ID del registro"
// @Param mediaID path string true "ID del media"
// @Success 200 {object} recordResponse
// @Failure 404 {string} string "registro no encontrado"
// @Router /health-records/{recordID}/media/{mediaID} [delete]
func unlinkMediaHandler(svc *Service, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.UnlinkMedia(r.Context(), chi.URLParam(r, "recordID"), chi.URLParam(r, "mediaID"))
		if err != nil {
			writeDomainError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, toRecordResponse(rec))
	}
}

func callerID(r *http.Request) (string, bool) {
	claims, ok := middleware.GetClaims(r.Context())
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		return "", false
	}
	return claims.UserID, true
}

// writeDomainError traduce errores de dominio a HTTP conservando tipo y
// mensaje. Cualquier otro fallo se loguea y sale como "internal error"
// genérico: el detalle del backend nunca llega al caller.
func writeDomainError(w http.ResponseWriter, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrInvalidDates):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, ErrPetUnavailable):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		log.Error().Err(err).Msg("unexpected error handling health record operation")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toRecordResponse(r HealthRecord) recordResponse {
	mediaIDs := r.MediaIDs
	if mediaIDs == nil {
		mediaIDs = []string{}
	}
	return recordResponse{
		ID:            r.ID,
		PetID:         r.PetID,
		Type:          r.Type,
		Date:          r.Date,
		Title:         r.Title,
		Description:   r.Description,
		Doctor:        r.Doctor,
		Clinic:        r.Clinic,
		MediaIDs:      mediaIDs,
		HasNextVisit:  r.HasNextVisit,
		NextVisitDate: r.NextVisitDate,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// writeJSON vive acá y no en un helper compartido a propósito; si otro
// módulo lo repite, recién ahí conviene extraerlo.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
