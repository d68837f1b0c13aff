package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pet-health-records/internal/ports/pets"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("not authorized for this pet")
	ErrConflict       = errors.New("record was modified concurrently")
	ErrPetUnavailable = errors.New("pet service unavailable")

	// ErrInvalidDates es la raíz de los fallos temporales; los específicos
	// la envuelven para poder chequear con errors.Is.
	ErrInvalidDates        = errors.New("invalid record dates")
	ErrDateTooFar          = fmt.Errorf("%w: record date too far in the future", ErrInvalidDates)
	ErrNextVisitBeforeDate = fmt.Errorf("%w: next visit must be after the record date", ErrInvalidDates)
	ErrNextVisitInPast     = fmt.Errorf("%w: next visit must be in the future", ErrInvalidDates)
)

// petLookupTimeout acota la espera de la verificación de propiedad. Si
// vence, la operación falla como ErrPetUnavailable y no se persiste nada.
const petLookupTimeout = 5 * time.Second

// Service orquesta el ciclo de vida de los registros de salud: autoriza
// contra el servicio de mascotas, valida invariantes temporales y persiste.
// Es el único componente que conoce el orden de esos pasos; nadie más
// escribe al repositorio.
type Service struct {
	repo Repository
	pets pets.Resolver
	now  func() time.Time
}

func NewService(repo Repository, resolver pets.Resolver) *Service {
	return &Service{
		repo: repo,
		pets: resolver,
		now:  time.Now,
	}
}

type CreateInput struct {
	PetID   string
	OwnerID string

	Type  RecordType
	Date  time.Time
	Title string

	Description string
	Doctor      string
	Clinic      string

	MediaIDs []string

	HasNextVisit  bool
	NextVisitDate *time.Time
}

// UpdateInput usa punteros para los campos opcionales: nil significa "no
// tocar", el valor del dto gana cuando viene presente.
type UpdateInput struct {
	ID      string
	OwnerID string

	// PetID solo se acepta si coincide con el registro guardado; el pet
	// asociado no se puede reasignar.
	PetID string

	Type  *RecordType
	Date  *time.Time
	Title *string

	Description *string
	Doctor      *string
	Clinic      *string

	MediaIDs []string

	HasNextVisit  *bool
	NextVisitDate *time.Time
}

// authorize re-verifica la propiedad del pet contra el servicio externo.
// Se llama en CADA mutación: el dueño autoritativo puede cambiar entre
// llamadas, así que nunca alcanza con lo que ya tenemos guardado.
func (s *Service) authorize(ctx context.Context, petID, ownerID string) error {
	ctx, cancel := context.WithTimeout(ctx, petLookupTimeout)
	defer cancel()

	p, err := s.pets.Resolve(ctx, petID)
	switch {
	case err == nil:
		// sigue abajo
	case errors.Is(err, pets.ErrNotFound):
		return fmt.Errorf("%w: pet %s does not exist", ErrNotFound, petID)
	default:
		// Timeout o fallo del upstream: distinto de NotFound, el caller
		// puede reintentar.
		return fmt.Errorf("%w: %v", ErrPetUnavailable, err)
	}

	if p.OwnerID != ownerID {
		return ErrForbidden
	}
	return nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (HealthRecord, error) {
	petID := strings.TrimSpace(in.PetID)
	ownerID := strings.TrimSpace(in.OwnerID)

	if petID == "" {
		return HealthRecord{}, fmt.Errorf("%w: pet id is required", ErrInvalidInput)
	}
	if ownerID == "" {
		return HealthRecord{}, fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}
	if !in.Type.IsValid() {
		return HealthRecord{}, fmt.Errorf("%w: unknown record type %q", ErrInvalidInput, in.Type)
	}
	if strings.TrimSpace(in.Title) == "" {
		return HealthRecord{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Date.IsZero() {
		return HealthRecord{}, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}

	if err := s.authorize(ctx, petID, ownerID); err != nil {
		return HealthRecord{}, err
	}

	// Normalización: sin próxima visita no hay fecha de próxima visita,
	// venga lo que venga en el dto.
	nextVisit := in.NextVisitDate
	if !in.HasNextVisit {
		nextVisit = nil
	}
	// Invariante del modelo: hasNextVisit=true exige la fecha. El checker
	// temporal no la pide (asume que ya la validamos acá).
	if in.HasNextVisit && nextVisit == nil {
		return HealthRecord{}, fmt.Errorf("%w: next visit date is required when has_next_visit is true", ErrInvalidInput)
	}

	now := s.now()
	if err := CheckDates(in.Date, in.HasNextVisit, nextVisit, now); err != nil {
		return HealthRecord{}, err
	}

	// El ownerId es una credencial de autorización, no estado del
	// registro: HealthRecord ni siquiera tiene el campo.
	r := HealthRecord{
		ID:            uuid.NewString(),
		PetID:         petID,
		Type:          in.Type,
		Date:          in.Date,
		Title:         strings.TrimSpace(in.Title),
		Description:   strings.TrimSpace(in.Description),
		Doctor:        strings.TrimSpace(in.Doctor),
		Clinic:        strings.TrimSpace(in.Clinic),
		MediaIDs:      dedupeMediaIDs(in.MediaIDs),
		HasNextVisit:  in.HasNextVisit,
		NextVisitDate: nextVisit,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return HealthRecord{}, err
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, in UpdateInput) (HealthRecord, error) {
	id := strings.TrimSpace(in.ID)
	ownerID := strings.TrimSpace(in.OwnerID)

	if id == "" {
		return HealthRecord{}, fmt.Errorf("%w: record id is required", ErrInvalidInput)
	}
	if ownerID == "" {
		return HealthRecord{}, fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return HealthRecord{}, err
	}

	if p := strings.TrimSpace(in.PetID); p != "" && p != existing.PetID {
		return HealthRecord{}, fmt.Errorf("%w: cannot reassign pet", ErrInvalidInput)
	}

	// Siempre contra el petId GUARDADO: el del dto no puede cambiarlo.
	if err := s.authorize(ctx, existing.PetID, ownerID); err != nil {
		return HealthRecord{}, err
	}

	next := existing

	if in.Type != nil {
		if !in.Type.IsValid() {
			return HealthRecord{}, fmt.Errorf("%w: unknown record type %q", ErrInvalidInput, *in.Type)
		}
		next.Type = *in.Type
	}
	if in.Date != nil {
		next.Date = *in.Date
	}
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		if t == "" {
			return HealthRecord{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidInput)
		}
		next.Title = t
	}
	if in.Description != nil {
		next.Description = strings.TrimSpace(*in.Description)
	}
	if in.Doctor != nil {
		next.Doctor = strings.TrimSpace(*in.Doctor)
	}
	if in.Clinic != nil {
		next.Clinic = strings.TrimSpace(*in.Clinic)
	}
	if in.MediaIDs != nil {
		next.MediaIDs = dedupeMediaIDs(in.MediaIDs)
	}
	if in.HasNextVisit != nil {
		next.HasNextVisit = *in.HasNextVisit
	}
	if in.NextVisitDate != nil {
		next.NextVisitDate = in.NextVisitDate
	}
	if !next.HasNextVisit {
		next.NextVisitDate = nil
	}
	if next.HasNextVisit && next.NextVisitDate == nil {
		return HealthRecord{}, fmt.Errorf("%w: next visit date is required when has_next_visit is true", ErrInvalidInput)
	}

	if err := CheckDates(next.Date, next.HasNextVisit, next.NextVisitDate, s.now()); err != nil {
		return HealthRecord{}, err
	}

	return s.repo.Update(ctx, next, existing.Version)
}

func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	id = strings.TrimSpace(id)
	ownerID = strings.TrimSpace(ownerID)

	if id == "" {
		return fmt.Errorf("%w: record id is required", ErrInvalidInput)
	}
	if ownerID == "" {
		return fmt.Errorf("%w: owner id is required", ErrInvalidInput)
	}

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.authorize(ctx, existing.PetID, ownerID); err != nil {
		return err
	}

	return s.repo.SoftDelete(ctx, id, s.now())
}

// LinkMedia vincula un media al registro. Idempotente: si ya está
// vinculado devuelve el estado actual sin escribir al store.
//
// Ni LinkMedia ni UnlinkMedia verifican propiedad: llegan únicamente del
// servicio de media, un colaborador interno que ya autorizó la subida
// contra el pet. Frontera de confianza deliberada, no un olvido.
func (s *Service) LinkMedia(ctx context.Context, recordID, mediaID string) (HealthRecord, error) {
	recordID = strings.TrimSpace(recordID)
	mediaID = strings.TrimSpace(mediaID)

	if recordID == "" || mediaID == "" {
		return HealthRecord{}, fmt.Errorf("%w: record id and media id are required", ErrInvalidInput)
	}

	r, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return HealthRecord{}, err
	}

	if r.HasMedia(mediaID) {
		return r, nil
	}

	r.MediaIDs, _ = addMediaID(r.MediaIDs, mediaID)
	return s.repo.Update(ctx, r, r.Version)
}

// UnlinkMedia quita un media del registro. Si no estaba vinculado devuelve
// el registro sin cambios y sin error.
func (s *Service) UnlinkMedia(ctx context.Context, recordID, mediaID string) (HealthRecord, error) {
	recordID = strings.TrimSpace(recordID)
	mediaID = strings.TrimSpace(mediaID)

	if recordID == "" || mediaID == "" {
		return HealthRecord{}, fmt.Errorf("%w: record id and media id are required", ErrInvalidInput)
	}

	r, err := s.repo.GetByID(ctx, recordID)
	if err != nil {
		return HealthRecord{}, err
	}

	next, changed := removeMediaID(r.MediaIDs, mediaID)
	if !changed {
		return r, nil
	}

	r.MediaIDs = next
	return s.repo.Update(ctx, r, r.Version)
}

func (s *Service) GetByID(ctx context.Context, id string) (HealthRecord, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return HealthRecord{}, fmt.Errorf("%w: record id is required", ErrInvalidInput)
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListAll(ctx context.Context) ([]HealthRecord, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) ListByPet(ctx context.Context, petID string) ([]HealthRecord, error) {
	petID = strings.TrimSpace(petID)
	if petID == "" {
		return nil, fmt.Errorf("%w: pet id is required", ErrInvalidInput)
	}
	return s.repo.ListByPet(ctx, petID)
}

func dedupeMediaIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out, _ = addMediaID(out, id)
	}
	return out
}
