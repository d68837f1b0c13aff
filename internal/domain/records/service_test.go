package records

import (
	"context"
	"errors"
	"testing"
	"time"

	"pet-health-records/internal/ports/pets"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

type testRepo struct {
	byID    map[string]HealthRecord
	updates int

	// forceConflict hace que Update falle como si otro caller hubiera
	// escrito en el medio.
	forceConflict bool
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]HealthRecord{}}
}

func (r *testRepo) Create(ctx context.Context, rec HealthRecord) error {
	if rec.ID == "" {
		return errors.New("repo: id required")
	}
	if _, ok := r.byID[rec.ID]; ok {
		return errors.New("repo: already exists")
	}
	r.byID[rec.ID] = rec
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (HealthRecord, error) {
	rec, ok := r.byID[id]
	if !ok || rec.DeletedAt != nil {
		return HealthRecord{}, ErrNotFound
	}
	return rec, nil
}

func (r *testRepo) ListAll(ctx context.Context) ([]HealthRecord, error) {
	out := make([]HealthRecord, 0)
	for _, rec := range r.byID {
		if rec.DeletedAt == nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *testRepo) ListByPet(ctx context.Context, petID string) ([]HealthRecord, error) {
	out := make([]HealthRecord, 0)
	for _, rec := range r.byID {
		if rec.DeletedAt == nil && rec.PetID == petID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *testRepo) Update(ctx context.Context, rec HealthRecord, expectedVersion int64) (HealthRecord, error) {
	stored, ok := r.byID[rec.ID]
	if !ok || stored.DeletedAt != nil {
		return HealthRecord{}, ErrNotFound
	}
	if r.forceConflict || stored.Version != expectedVersion {
		return HealthRecord{}, ErrConflict
	}
	rec.PetID = stored.PetID
	rec.Version = stored.Version + 1
	r.byID[rec.ID] = rec
	r.updates++
	return rec, nil
}

func (r *testRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	rec, ok := r.byID[id]
	if !ok || rec.DeletedAt != nil {
		return ErrNotFound
	}
	rec.DeletedAt = &at
	r.byID[id] = rec
	return nil
}

func (r *testRepo) Restore(ctx context.Context, id string) error {
	rec, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	rec.DeletedAt = nil
	r.byID[id] = rec
	return nil
}

// -------------------------
// Fake pet resolver
// -------------------------

type fakeResolver struct {
	pet   pets.Pet
	err   error
	calls int

	lastPetID string
}

func (f *fakeResolver) Resolve(ctx context.Context, petID string) (pets.Pet, error) {
	f.calls++
	f.lastPetID = petID
	if f.err != nil {
		return pets.Pet{}, f.err
	}
	return f.pet, nil
}

// -------------------------
// Helpers
// -------------------------

var testNow = time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)

func newTestService(repo *testRepo, resolver *fakeResolver) *Service {
	svc := NewService(repo, resolver)
	svc.now = func() time.Time { return testNow }
	return svc
}

func seedRecord(repo *testRepo, rec HealthRecord) HealthRecord {
	if rec.Version == 0 {
		rec.Version = 1
	}
	repo.byID[rec.ID] = rec
	return rec
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func timePtr(t time.Time) *time.Time { return &t }

// -------------------------
// Create
// -------------------------

func TestService_Create_OK_NormalizesAndStripsOwner(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "owner-1"}}
	svc := newTestService(repo, resolver)

	visit := testNow.Add(24 * time.Hour)
	rec, err := svc.Create(context.Background(), CreateInput{
		PetID:   "pet-1",
		OwnerID: "owner-1",
		Type:    RecordTypeVaccine,
		Date:    testNow,
		Title:   "  Vacuna antirrábica  ",
		// duplicados a propósito: el set se dedupe al crear
		MediaIDs: []string{"m-1", "m-2", "m-1"},
		// hasNextVisit false: la fecha suministrada se descarta
		HasNextVisit:  false,
		NextVisitDate: &visit,
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if rec.ID == "" {
		t.Fatalf("expected generated id")
	}
	if rec.PetID != "pet-1" || rec.Type != RecordTypeVaccine {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.Title != "Vacuna antirrábica" {
		t.Fatalf("expected trimmed title, got %q", rec.Title)
	}
	if len(rec.MediaIDs) != 2 || rec.MediaIDs[0] != "m-1" || rec.MediaIDs[1] != "m-2" {
		t.Fatalf("expected deduped media ids, got %#v", rec.MediaIDs)
	}
	if rec.NextVisitDate != nil {
		t.Fatalf("expected next visit forced nil when has_next_visit=false")
	}
	if rec.Version != 1 {
		t.Fatalf("expected version 1, got %d", rec.Version)
	}
	if rec.CreatedAt != testNow || rec.UpdatedAt != testNow {
		t.Fatalf("expected timestamps = now")
	}
	if resolver.calls != 1 {
		t.Fatalf("expected exactly one pet lookup, got %d", resolver.calls)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("expected record persisted")
	}
}

func TestService_Create_MissingOwner_NoLookup(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "owner-1"}}
	svc := newTestService(repo, resolver)

	_, err := svc.Create(context.Background(), CreateInput{
		PetID: "pet-1",
		Type:  RecordTypeOther,
		Date:  testNow,
		Title: "x",
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if resolver.calls != 0 {
		t.Fatalf("pet lookup should not happen without owner id")
	}
}

func TestService_Create_PetNotFound(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{err: pets.ErrNotFound}
	svc := newTestService(repo, resolver)

	_, err := svc.Create(context.Background(), CreateInput{
		PetID:   "pet-missing",
		OwnerID: "owner-1",
		Type:    RecordTypeVaccine,
		Date:    testNow,
		Title:   "x",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if len(repo.byID) != 0 {
		t.Fatalf("nothing may be persisted when the pet does not exist")
	}
}

func TestService_Create_OwnerMismatch_Forbidden(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "U1"}}
	svc := newTestService(repo, resolver)

	_, err := svc.Create(context.Background(), CreateInput{
		PetID:   "pet-1",
		OwnerID: "U2",
		Type:    RecordTypeVaccine,
		Date:    testNow,
		Title:   "x",
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if len(repo.byID) != 0 {
		t.Fatalf("nothing may be persisted on owner mismatch")
	}
}

func TestService_Create_PetServiceDown_Unavailable(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{err: pets.ErrUnavailable}
	svc := newTestService(repo, resolver)

	_, err := svc.Create(context.Background(), CreateInput{
		PetID:   "pet-1",
		OwnerID: "owner-1",
		Type:    RecordTypeVaccine,
		Date:    testNow,
		Title:   "x",
	})
	if !errors.Is(err, ErrPetUnavailable) {
		t.Fatalf("expected ErrPetUnavailable, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("unavailable must never look like not-found")
	}
	if len(repo.byID) != 0 {
		t.Fatalf("nothing may be persisted when the pet service is down")
	}
}

func TestService_Create_DateTooFar(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "owner-1"}}
	svc := newTestService(repo, resolver)

	_, err := svc.Create(context.Background(), CreateInput{
		PetID:   "pet-1",
		OwnerID: "owner-1",
		Type:    RecordTypeConsultation,
		Date:    testNow.Add(8 * 24 * time.Hour),
		Title:   "x",
	})
	if !errors.Is(err, ErrDateTooFar) {
		t.Fatalf("expected ErrDateTooFar, got %v", err)
	}
	if len(repo.byID) != 0 {
		t.Fatalf("nothing may be persisted on temporal violation")
	}
}

func TestService_Create_NextVisitYesterday_FailsOnOrdering(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "owner-1"}}
	svc := newTestService(repo, resolver)

	yesterday := testNow.Add(-24 * time.Hour)
	_, err := svc.Create(context.Background(), CreateInput{
		PetID:         "pet-1",
		OwnerID:       "owner-1",
		Type:          RecordTypeConsultation,
		Date:          testNow,
		Title:         "x",
		HasNextVisit:  true,
		NextVisitDate: &yesterday,
	})
	// viola las dos reglas de próxima visita; gana la primera evaluada
	if !errors.Is(err, ErrNextVisitBeforeDate) {
		t.Fatalf("expected ErrNextVisitBeforeDate, got %v", err)
	}
}

func TestService_Create_NextVisitWithoutDate_Rejected(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "owner-1"}}
	svc := newTestService(repo, resolver)

	_, err := svc.Create(context.Background(), CreateInput{
		PetID:   "pet-1",
		OwnerID: "owner-1",
		Type:    RecordTypeConsultation,
		Date:    testNow,
		Title:   "x",
		// próxima visita sin fecha: el registro quedaría inconsistente
		HasNextVisit: true,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if len(repo.byID) != 0 {
		t.Fatalf("nothing must be persisted")
	}
}

// -------------------------
// Update
// -------------------------

func TestService_Update_MergesDtoOverExisting(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "owner-1"}}
	svc := newTestService(repo, resolver)

	visit := testNow.Add(48 * time.Hour)
	seedRecord(repo, HealthRecord{
		ID:            "rec-1",
		PetID:         "pet-1",
		Type:          RecordTypeConsultation,
		Date:          testNow.Add(-24 * time.Hour),
		Title:         "Control",
		HasNextVisit:  true,
		NextVisitDate: &visit,
	})

	got, err := svc.Update(context.Background(), UpdateInput{
		ID:      "rec-1",
		OwnerID: "owner-1",
		Title:   strPtr("Control anual"),
		// apagar la próxima visita debe limpiar la fecha guardada
		HasNextVisit: boolPtr(false),
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if got.Title != "Control anual" {
		t.Fatalf("expected dto title to win, got %q", got.Title)
	}
	if got.Type != RecordTypeConsultation {
		t.Fatalf("untouched fields must survive, got type %q", got.Type)
	}
	if got.HasNextVisit || got.NextVisitDate != nil {
		t.Fatalf("expected next visit cleared, got %+v", got)
	}
	if got.Version != 2 {
		t.Fatalf("expected version bump, got %d", got.Version)
	}
}

func TestService_Update_NextVisitWithoutDate_Rejected(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "owner-1"}}
	svc := newTestService(repo, resolver)

	seedRecord(repo, HealthRecord{
		ID:    "rec-1",
		PetID: "pet-1",
		Type:  RecordTypeVaccine,
		Date:  testNow,
		Title: "Vacuna",
	})

	// encender has_next_visit sin fecha, ni en el dto ni guardada
	_, err := svc.Update(context.Background(), UpdateInput{
		ID:           "rec-1",
		OwnerID:      "owner-1",
		HasNextVisit: boolPtr(true),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if got := repo.byID["rec-1"]; got.HasNextVisit {
		t.Fatalf("stored record must be unchanged, got %+v", got)
	}
}

func TestService_Update_CannotReassignPet(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "owner-1"}}
	svc := newTestService(repo, resolver)

	seedRecord(repo, HealthRecord{
		ID:    "rec-1",
		PetID: "pet-1",
		Type:  RecordTypeVaccine,
		Date:  testNow,
		Title: "Vacuna",
	})

	_, err := svc.Update(context.Background(), UpdateInput{
		ID:      "rec-1",
		OwnerID: "owner-1",
		PetID:   "pet-2",
		Title:   strPtr("cambiada"),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if resolver.calls != 0 {
		t.Fatalf("reassignment must be rejected before the pet lookup")
	}
	if repo.byID["rec-1"].Title != "Vacuna" {
		t.Fatalf("stored record must be unchanged")
	}
}

func TestService_Update_ReauthorizesAgainstStoredPet(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "owner-1"}}
	svc := newTestService(repo, resolver)

	seedRecord(repo, HealthRecord{
		ID:    "rec-1",
		PetID: "pet-1",
		Type:  RecordTypeVaccine,
		Date:  testNow,
		Title: "Vacuna",
	})

	if _, err := svc.Update(context.Background(), UpdateInput{
		ID:      "rec-1",
		OwnerID: "owner-1",
		Title:   strPtr("Refuerzo"),
	}); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if resolver.lastPetID != "pet-1" {
		t.Fatalf("authorization must use the STORED petId, got %q", resolver.lastPetID)
	}
}

func TestService_Update_OwnershipChanged_Forbidden(t *testing.T) {
	repo := newTestRepo()
	// el pet cambió de dueño desde la creación del registro
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "new-owner"}}
	svc := newTestService(repo, resolver)

	seedRecord(repo, HealthRecord{
		ID:    "rec-1",
		PetID: "pet-1",
		Type:  RecordTypeVaccine,
		Date:  testNow,
		Title: "Vacuna",
	})

	_, err := svc.Update(context.Background(), UpdateInput{
		ID:      "rec-1",
		OwnerID: "old-owner",
		Title:   strPtr("x"),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestService_Update_NotFound(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{}
	svc := newTestService(repo, resolver)

	_, err := svc.Update(context.Background(), UpdateInput{
		ID:      "nope",
		OwnerID: "owner-1",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestService_Update_VersionConflict(t *testing.T) {
	repo := newTestRepo()
	repo.forceConflict = true
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "owner-1"}}
	svc := newTestService(repo, resolver)

	seedRecord(repo, HealthRecord{
		ID:    "rec-1",
		PetID: "pet-1",
		Type:  RecordTypeVaccine,
		Date:  testNow,
		Title: "Vacuna",
	})

	_, err := svc.Update(context.Background(), UpdateInput{
		ID:      "rec-1",
		OwnerID: "owner-1",
		Title:   strPtr("x"),
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestService_Update_TemporalViolation_NothingPersisted(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "owner-1"}}
	svc := newTestService(repo, resolver)

	seedRecord(repo, HealthRecord{
		ID:    "rec-1",
		PetID: "pet-1",
		Type:  RecordTypeVaccine,
		Date:  testNow,
		Title: "Vacuna",
	})

	_, err := svc.Update(context.Background(), UpdateInput{
		ID:      "rec-1",
		OwnerID: "owner-1",
		Date:    timePtr(testNow.Add(30 * 24 * time.Hour)),
	})
	if !errors.Is(err, ErrInvalidDates) {
		t.Fatalf("expected ErrInvalidDates, got %v", err)
	}
	if repo.updates != 0 {
		t.Fatalf("no write may reach the store on temporal violation")
	}
}

// -------------------------
// Delete
// -------------------------

func TestService_Delete_SoftDeletes(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "owner-1"}}
	svc := newTestService(repo, resolver)

	seedRecord(repo, HealthRecord{
		ID:    "rec-1",
		PetID: "pet-1",
		Type:  RecordTypeVaccine,
		Date:  testNow,
		Title: "Vacuna",
	})

	if err := svc.Delete(context.Background(), "rec-1", "owner-1"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	if _, err := svc.GetByID(context.Background(), "rec-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted record must read as not found, got %v", err)
	}

	// la fila sigue existiendo, marcada
	raw, ok := repo.byID["rec-1"]
	if !ok || raw.DeletedAt == nil {
		t.Fatalf("expected row kept with DeletedAt set, got %+v", raw)
	}
}

func TestService_Delete_Forbidden(t *testing.T) {
	repo := newTestRepo()
	resolver := &fakeResolver{pet: pets.Pet{ID: "pet-1", OwnerID: "owner-1"}}
	svc := newTestService(repo, resolver)

	seedRecord(repo, HealthRecord{
		ID:    "rec-1",
		PetID: "pet-1",
		Type:  RecordTypeVaccine,
		Date:  testNow,
		Title: "Vacuna",
	})

	if err := svc.Delete(context.Background(), "rec-1", "intruder"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if repo.byID["rec-1"].DeletedAt != nil {
		t.Fatalf("record must not be deleted")
	}
}

func TestService_Delete_MissingOwner(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, &fakeResolver{})

	if err := svc.Delete(context.Background(), "rec-1", ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

// -------------------------
// Media
// -------------------------

func TestService_LinkMedia_Idempotent(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, &fakeResolver{})

	seedRecord(repo, HealthRecord{
		ID:    "rec-1",
		PetID: "pet-1",
		Type:  RecordTypeAnalysis,
		Date:  testNow,
		Title: "Análisis",
	})

	first, err := svc.LinkMedia(context.Background(), "rec-1", "m-1")
	if err != nil {
		t.Fatalf("LinkMedia #1 error: %v", err)
	}
	if len(first.MediaIDs) != 1 || !first.HasMedia("m-1") {
		t.Fatalf("expected [m-1], got %#v", first.MediaIDs)
	}

	second, err := svc.LinkMedia(context.Background(), "rec-1", "m-1")
	if err != nil {
		t.Fatalf("LinkMedia #2 error: %v", err)
	}
	if len(second.MediaIDs) != 1 {
		t.Fatalf("expected exactly one occurrence after relink, got %#v", second.MediaIDs)
	}
	if repo.updates != 1 {
		t.Fatalf("second link must not write to the store, writes=%d", repo.updates)
	}
}

func TestService_LinkMedia_PreservesInsertionOrder(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, &fakeResolver{})

	seedRecord(repo, HealthRecord{
		ID:    "rec-1",
		PetID: "pet-1",
		Type:  RecordTypeAnalysis,
		Date:  testNow,
		Title: "Análisis",
	})

	for _, m := range []string{"m-3", "m-1", "m-2"} {
		if _, err := svc.LinkMedia(context.Background(), "rec-1", m); err != nil {
			t.Fatalf("LinkMedia(%s) error: %v", m, err)
		}
	}

	got := repo.byID["rec-1"].MediaIDs
	want := []string{"m-3", "m-1", "m-2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected insertion order %v, got %v", want, got)
		}
	}
}

func TestService_UnlinkMedia_AbsentIsNoop(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, &fakeResolver{})

	seedRecord(repo, HealthRecord{
		ID:       "rec-1",
		PetID:    "pet-1",
		Type:     RecordTypeAnalysis,
		Date:     testNow,
		Title:    "Análisis",
		MediaIDs: []string{"m-1"},
	})

	got, err := svc.UnlinkMedia(context.Background(), "rec-1", "m-other")
	if err != nil {
		t.Fatalf("UnlinkMedia error: %v", err)
	}
	if len(got.MediaIDs) != 1 || got.MediaIDs[0] != "m-1" {
		t.Fatalf("record must be unchanged, got %#v", got.MediaIDs)
	}
	if repo.updates != 0 {
		t.Fatalf("no-op unlink must not write to the store")
	}
}

func TestService_UnlinkMedia_RemovesLegacyDuplicates(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, &fakeResolver{})

	// duplicados sembrados directo en el store, como datos legados
	seedRecord(repo, HealthRecord{
		ID:       "rec-1",
		PetID:    "pet-1",
		Type:     RecordTypeAnalysis,
		Date:     testNow,
		Title:    "Análisis",
		MediaIDs: []string{"m-1", "m-2", "m-1"},
	})

	got, err := svc.UnlinkMedia(context.Background(), "rec-1", "m-1")
	if err != nil {
		t.Fatalf("UnlinkMedia error: %v", err)
	}
	if len(got.MediaIDs) != 1 || got.MediaIDs[0] != "m-2" {
		t.Fatalf("expected all occurrences removed, got %#v", got.MediaIDs)
	}
}

func TestService_LinkMedia_RecordNotFound(t *testing.T) {
	repo := newTestRepo()
	svc := newTestService(repo, &fakeResolver{})

	if _, err := svc.LinkMedia(context.Background(), "nope", "m-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
